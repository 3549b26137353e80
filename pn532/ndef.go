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
	"errors"
	"fmt"

	"github.com/hsanjuan/go-ndef"
)

// ErrNoNDEF is returned when user memory holds no NDEF message TLV
var ErrNoNDEF = errors.New("no NDEF message found")

// NFC Forum Type 2 tag TLV block types
const (
	tlvNull       = 0x00
	tlvLockCtrl   = 0x01
	tlvMemCtrl    = 0x02
	tlvNDEF       = 0x03
	tlvTerminator = 0xFE
)

// BuildNDEFTLV wraps an encoded NDEF message in an NDEF TLV followed by a
// terminator, ready to be written from the first user page.
func BuildNDEFTLV(message []byte) []byte {
	out := make([]byte, 0, len(message)+5)
	out = append(out, tlvNDEF)
	if len(message) < 0xFF {
		out = append(out, byte(len(message)))
	} else {
		out = append(out, 0xFF, byte(len(message)>>8), byte(len(message)))
	}
	out = append(out, message...)
	return append(out, tlvTerminator)
}

// FindNDEFMessage walks the TLV blocks in user memory and returns the
// value of the first NDEF TLV.
func FindNDEFMessage(userMemory []byte) ([]byte, error) {
	for i := 0; i < len(userMemory); {
		switch userMemory[i] {
		case tlvNull:
			i++
			continue
		case tlvTerminator:
			return nil, ErrNoNDEF
		}

		typ := userMemory[i]
		length, hdr, err := tlvLength(userMemory[i+1:])
		if err != nil {
			return nil, err
		}
		start := i + 1 + hdr
		if start+length > len(userMemory) {
			return nil, fmt.Errorf("%w: TLV %02X length %d exceeds memory", ErrInvalidResponse, typ, length)
		}
		if typ == tlvNDEF {
			if length == 0 {
				return nil, ErrNoNDEF
			}
			return userMemory[start : start+length], nil
		}
		i = start + length
	}
	return nil, ErrNoNDEF
}

// tlvLength decodes the one or three byte TLV length field.
func tlvLength(buf []byte) (length, size int, err error) {
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("%w: TLV length missing", ErrInvalidResponse)
	}
	if buf[0] != 0xFF {
		return int(buf[0]), 1, nil
	}
	if len(buf) < 3 {
		return 0, 0, fmt.Errorf("%w: TLV length truncated", ErrInvalidResponse)
	}
	return int(buf[1])<<8 | int(buf[2]), 3, nil
}

// ParseNDEF decodes the NDEF message stored in user memory
func ParseNDEF(userMemory []byte) (*ndef.Message, error) {
	raw, err := FindNDEFMessage(userMemory)
	if err != nil {
		return nil, err
	}

	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("failed to decode NDEF message: %w", err)
	}
	return msg, nil
}

// EncodeNDEF marshals msg and wraps it in TLVs for writing to user memory
func EncodeNDEF(msg *ndef.Message) ([]byte, error) {
	raw, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode NDEF message: %w", err)
	}
	return BuildNDEFTLV(raw), nil
}
