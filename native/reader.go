// cordova-mifare
// Copyright (c) 2025 Frosty Elk AB and contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of cordova-mifare.
//
// cordova-mifare is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// cordova-mifare is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with cordova-mifare; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package native

import (
	"context"
	"errors"
	"fmt"

	"github.com/FrostyElk/cordova-mifare/pn532"
)

// ErrUnsupportedTag is returned by Detect for tags that are not NTAG21x
var ErrUnsupportedTag = errors.New("unsupported tag type")

// Reader is the NFC hardware the plugin drives. Detect returns an error
// wrapping pn532.ErrNoTagDetected when the field is empty.
type Reader interface {
	Detect(ctx context.Context) (Tag, error)
	Release() error
}

// Tag is a tag in the reader field. Errors wrap the pn532 sentinels:
// pn532.ErrAuthFailed for a rejected password and pn532.ErrDataTooLarge
// when data does not fit.
type Tag interface {
	UID() string
	Authenticate(ctx context.Context, password []byte) error
	// UserBytes returns the size of user memory.
	UserBytes(ctx context.Context) (int, error)
	// ReadPages returns pages start..end inclusive.
	ReadPages(ctx context.Context, start, end int) ([]byte, error)
	WritePages(ctx context.Context, start int, data []byte) error
}

// PN532Reader adapts an initialised pn532.Device.
type PN532Reader struct {
	device *pn532.Device
}

// NewPN532Reader wraps device. The device must already be initialised.
func NewPN532Reader(device *pn532.Device) *PN532Reader {
	return &PN532Reader{device: device}
}

// Detect selects the tag in the field.
func (r *PN532Reader) Detect(ctx context.Context) (Tag, error) {
	detected, err := r.device.DetectTag(ctx)
	if err != nil {
		return nil, err
	}
	if detected.Type != pn532.TagTypeNTAG {
		return nil, fmt.Errorf("%w: %s tag %s", ErrUnsupportedTag, detected.Type, detected.UID)
	}
	return &ntagTag{tag: pn532.NewNTAGTag(r.device, detected.UIDBytes, detected.SAK)}, nil
}

// Release closes the device.
func (r *PN532Reader) Release() error {
	return r.device.Close()
}

type ntagTag struct {
	tag *pn532.NTAGTag
}

func (t *ntagTag) UID() string {
	return t.tag.UID()
}

func (t *ntagTag) Authenticate(ctx context.Context, password []byte) error {
	if len(password) != pn532.NTAGPasswordLength {
		return fmt.Errorf("%w: password must be %d bytes", pn532.ErrAuthFailed, pn532.NTAGPasswordLength)
	}
	_, err := t.tag.PwdAuth(ctx, password)
	return err
}

func (t *ntagTag) UserBytes(ctx context.Context) (int, error) {
	version, err := t.tag.GetVersion(ctx)
	if err != nil {
		return 0, err
	}
	pages := version.UserPages()
	if pages == 0 {
		return 0, fmt.Errorf("%w: unknown NTAG storage size %02X", ErrUnsupportedTag, version.StorageSize)
	}
	return pages * pn532.NTAGPageSize, nil
}

func (t *ntagTag) ReadPages(ctx context.Context, start, end int) ([]byte, error) {
	if start < 0 || end > 0xFF {
		return nil, fmt.Errorf("%w: pages %d-%d", pn532.ErrInvalidParameter, start, end)
	}
	return t.tag.FastRead(ctx, uint8(start), uint8(end))
}

func (t *ntagTag) WritePages(ctx context.Context, start int, data []byte) error {
	if start < 0 || start > 0xFF {
		return fmt.Errorf("%w: start page %d", pn532.ErrInvalidParameter, start)
	}
	return t.tag.WritePages(ctx, uint8(start), data)
}
