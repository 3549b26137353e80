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

package frame

import (
	"errors"
	"fmt"
)

// Frame parsing errors. Corrupted frames are worth a NACK and a re-read;
// the transports map these onto their retryable error types.
var (
	ErrNoStartCode       = errors.New("frame start code not found")
	ErrLengthChecksum    = errors.New("frame length checksum mismatch")
	ErrDataChecksum      = errors.New("frame data checksum mismatch")
	ErrTruncated         = errors.New("frame truncated")
	ErrUnexpectedTFI     = errors.New("unexpected frame identifier")
	ErrArgumentsTooLarge = errors.New("command arguments exceed frame size")
)

// Build encodes cmd and args into a host-to-PN532 normal information frame.
func Build(cmd byte, args []byte) ([]byte, error) {
	if len(args) > MaxCommandArgs {
		return nil, fmt.Errorf("%w: %d bytes", ErrArgumentsTooLarge, len(args))
	}
	dataLen := byte(2 + len(args))

	frm := make([]byte, 0, int(dataLen)+Overhead)
	frm = append(frm, Preamble, StartCode1, StartCode2, dataLen, CalculateLengthChecksum(dataLen), HostToPn532, cmd)
	frm = append(frm, args...)
	dcs := CalculateDataChecksum(HostToPn532, append([]byte{cmd}, args...))
	return append(frm, dcs, Postamble), nil
}

// IsAck reports whether buf begins with an ACK frame, ignoring leading
// preamble bytes.
func IsAck(buf []byte) bool {
	off, err := FindStart(buf)
	if err != nil || off+2 > len(buf) {
		return false
	}
	return buf[off] == 0x00 && buf[off+1] == 0xFF
}

// FindStart returns the offset of the LEN byte following the first
// 0x00 0xFF start code in buf.
func FindStart(buf []byte) (int, error) {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == StartCode1 && buf[i+1] == StartCode2 {
			return i + 2, nil
		}
	}
	return 0, ErrNoStartCode
}

// Parse extracts the payload of a PN532-to-host frame. The returned slice
// starts at the response code (command + 1) and excludes TFI, DCS and
// postamble. needed is the total number of bytes required when buf is too
// short; callers read more and try again.
func Parse(buf []byte) (data []byte, needed int, err error) {
	off, err := FindStart(buf)
	if err != nil {
		return nil, 0, err
	}
	if off+2 > len(buf) {
		return nil, off + 2, ErrTruncated
	}

	length, lcs := buf[off], buf[off+1]
	if length+lcs != 0 {
		return nil, 0, ErrLengthChecksum
	}

	end := off + 2 + int(length) + 1 // data + DCS
	if end > len(buf) {
		return nil, end, ErrTruncated
	}
	if length == 0 {
		return nil, 0, ErrTruncated
	}

	body := buf[off+2 : end]
	if ValidateChecksum(body) {
		return nil, 0, ErrDataChecksum
	}
	if body[0] != Pn532ToHost {
		return nil, 0, fmt.Errorf("%w: %02X", ErrUnexpectedTFI, body[0])
	}

	out := make([]byte, int(length)-1)
	copy(out, body[1:len(body)-1])
	return out, 0, nil
}

// Encode wraps a PN532-to-host payload into a response frame. It is the
// inverse of Parse and is used by simulated devices.
func Encode(data []byte) []byte {
	length := byte(len(data) + 1)
	frm := make([]byte, 0, len(data)+Overhead)
	frm = append(frm, Preamble, StartCode1, StartCode2, length, CalculateLengthChecksum(length), Pn532ToHost)
	frm = append(frm, data...)
	return append(frm, CalculateDataChecksum(Pn532ToHost, data), Postamble)
}
