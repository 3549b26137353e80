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

package pn532

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
)

// NTAG21x commands
const (
	ntagCmdGetVersion = 0x60
	ntagCmdRead       = 0x30
	ntagCmdFastRead   = 0x3A
	ntagCmdWrite      = 0xA2
	ntagCmdPwdAuth    = 0x1B
)

// NTAG21x memory layout
const (
	NTAGPageSize       = 4
	NTAGUserStartPage  = 4
	NTAGPasswordLength = 4

	ntagReadResponseSize = 16
	// fastReadMaxPages keeps a FAST_READ answer inside one normal frame
	fastReadMaxPages = 60
)

// NTAG storage size codes from GET_VERSION byte 6
const (
	ntagStorage213 = 0x0F
	ntagStorage215 = 0x11
	ntagStorage216 = 0x13
)

// NTAGVersion is the answer to GET_VERSION
type NTAGVersion struct {
	VendorID    byte
	ProductType byte
	StorageSize byte
}

// Model returns the NTAG model name
func (v *NTAGVersion) Model() string {
	switch v.StorageSize {
	case ntagStorage213:
		return "NTAG213"
	case ntagStorage215:
		return "NTAG215"
	case ntagStorage216:
		return "NTAG216"
	default:
		return "NTAG21x"
	}
}

// UserPages returns the number of user memory pages starting at page 4
func (v *NTAGVersion) UserPages() int {
	switch v.StorageSize {
	case ntagStorage213:
		return 36
	case ntagStorage215:
		return 126
	case ntagStorage216:
		return 222
	default:
		return 0
	}
}

// NTAGTag represents an NTAG21x tag selected on a Device
type NTAGTag struct {
	device *Device
	uid    []byte
	sak    byte
}

// NewNTAGTag creates a new NTAG tag instance
func NewNTAGTag(device *Device, uid []byte, sak byte) *NTAGTag {
	return &NTAGTag{
		device: device,
		uid:    uid,
		sak:    sak,
	}
}

// Type returns the tag type
func (*NTAGTag) Type() TagType {
	return TagTypeNTAG
}

// UID returns the UID as a hex string
func (t *NTAGTag) UID() string {
	return hex.EncodeToString(t.uid)
}

// UIDBytes returns the raw UID
func (t *NTAGTag) UIDBytes() []byte {
	return t.uid
}

// GetVersion reads the tag's product information
func (t *NTAGTag) GetVersion(ctx context.Context) (*NTAGVersion, error) {
	data, err := t.device.CommunicateThru(ctx, []byte{ntagCmdGetVersion})
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: GET_VERSION returned %d bytes", ErrInvalidResponse, len(data))
	}
	return &NTAGVersion{
		VendorID:    data[1],
		ProductType: data[2],
		StorageSize: data[6],
	}, nil
}

// PwdAuth authenticates with the 4-byte tag password and returns the PACK
func (t *NTAGTag) PwdAuth(ctx context.Context, password []byte) ([2]byte, error) {
	var pack [2]byte
	if len(password) != NTAGPasswordLength {
		return pack, fmt.Errorf("%w: password must be %d bytes, got %d",
			ErrInvalidParameter, NTAGPasswordLength, len(password))
	}

	cmd := make([]byte, 0, 1+NTAGPasswordLength)
	cmd = append(cmd, ntagCmdPwdAuth)
	cmd = append(cmd, password...)

	data, err := t.device.CommunicateThru(ctx, cmd)
	if err != nil {
		var pe *PN532Error
		if errors.As(err, &pe) {
			// a wrong password is answered with a NAK, which the reader reports as a failed exchange
			return pack, fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		return pack, fmt.Errorf("failed to authenticate: %w", err)
	}
	if len(data) != len(pack) {
		return pack, fmt.Errorf("%w: unexpected PWD_AUTH answer % X", ErrAuthFailed, data)
	}

	copy(pack[:], data)
	debugf("PWD_AUTH ok for %s, PACK % X", t.UID(), pack)
	return pack, nil
}

// ReadPage reads one 4-byte page
func (t *NTAGTag) ReadPage(ctx context.Context, page uint8) ([]byte, error) {
	data, err := t.device.DataExchange(ctx, []byte{ntagCmdRead, page})
	if err != nil {
		return nil, fmt.Errorf("failed to read block %d: %w", page, err)
	}

	// READ returns four pages; only the requested one is used
	if len(data) < NTAGPageSize {
		return nil, fmt.Errorf("invalid read response length: %d", len(data))
	}
	return data[:NTAGPageSize], nil
}

// FastRead reads pages start..end inclusive, splitting the range so every
// answer fits in a frame.
func (t *NTAGTag) FastRead(ctx context.Context, start, end uint8) ([]byte, error) {
	if end < start {
		return nil, fmt.Errorf("%w: end page %d before start page %d", ErrInvalidParameter, end, start)
	}

	out := make([]byte, 0, (int(end)-int(start)+1)*NTAGPageSize)
	for from := int(start); from <= int(end); from += fastReadMaxPages {
		to := min(from+fastReadMaxPages-1, int(end))

		data, err := t.device.CommunicateThru(ctx, []byte{ntagCmdFastRead, byte(from), byte(to)})
		if err != nil {
			return nil, fmt.Errorf("failed to fast read pages %d-%d: %w", from, to, err)
		}

		want := (to - from + 1) * NTAGPageSize
		if len(data) < want {
			return nil, fmt.Errorf("%w: FAST_READ %d-%d returned %d bytes, want %d",
				ErrInvalidResponse, from, to, len(data), want)
		}
		out = append(out, data[:want]...)
	}
	return out, nil
}

// WritePage writes one 4-byte user page
func (t *NTAGTag) WritePage(ctx context.Context, page uint8, data []byte) error {
	if len(data) != NTAGPageSize {
		return fmt.Errorf("%w: page data must be %d bytes, got %d", ErrInvalidParameter, NTAGPageSize, len(data))
	}
	if page < NTAGUserStartPage {
		return fmt.Errorf("%w: page %d is not user memory", ErrInvalidParameter, page)
	}

	cmd := make([]byte, 0, 2+NTAGPageSize)
	cmd = append(cmd, ntagCmdWrite, page)
	cmd = append(cmd, data...)

	if _, err := t.device.DataExchange(ctx, cmd); err != nil {
		return fmt.Errorf("failed to write block %d: %w", page, err)
	}
	return nil
}

// WritePages writes data from page start onwards, zero-padding the last page
func (t *NTAGTag) WritePages(ctx context.Context, start uint8, data []byte) error {
	pages := (len(data) + NTAGPageSize - 1) / NTAGPageSize
	if int(start)+pages > 256 {
		return fmt.Errorf("%w: %d bytes from page %d", ErrDataTooLarge, len(data), start)
	}

	buf := make([]byte, NTAGPageSize)
	for i := 0; i < pages; i++ {
		clear(buf)
		copy(buf, data[i*NTAGPageSize:])
		if err := t.WritePage(ctx, start+uint8(i), buf); err != nil {
			return err
		}
	}
	return nil
}
