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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_GetFirmwareVersion(t *testing.T) {
	t.Parallel()

	frm, err := Build(0x02, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}, frm)
}

func TestBuild_RejectsOversizedArguments(t *testing.T) {
	t.Parallel()

	_, err := Build(0x40, make([]byte, MaxCommandArgs+1))
	require.ErrorIs(t, err, ErrArgumentsTooLarge)

	_, err = Build(0x40, make([]byte, MaxCommandArgs))
	require.NoError(t, err)
}

func TestEncodeParseRoundTrip(t *testing.T) {
	t.Parallel()

	payload := []byte{0x41, 0x00, 0xDE, 0xAD, 0xBE, 0xEF}
	data, needed, err := Parse(Encode(payload))
	require.NoError(t, err)
	assert.Zero(t, needed)
	assert.Equal(t, payload, data)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	good := Encode([]byte{0x03, 0x32, 0x01, 0x06, 0x07})

	tests := []struct {
		mutate  func([]byte) []byte
		wantErr error
		name    string
	}{
		{
			name:    "no start code",
			mutate:  func([]byte) []byte { return []byte{0x01, 0x02, 0x03} },
			wantErr: ErrNoStartCode,
		},
		{
			name:    "truncated body",
			mutate:  func(b []byte) []byte { return b[:6] },
			wantErr: ErrTruncated,
		},
		{
			name: "bad length checksum",
			mutate: func(b []byte) []byte {
				b[4]++
				return b
			},
			wantErr: ErrLengthChecksum,
		},
		{
			name: "bad data checksum",
			mutate: func(b []byte) []byte {
				b[len(b)-2]++
				return b
			},
			wantErr: ErrDataChecksum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := tt.mutate(append([]byte(nil), good...))
			_, _, err := Parse(buf)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_ReportsBytesNeeded(t *testing.T) {
	t.Parallel()

	full := Encode([]byte{0x4B, 0x00})
	_, needed, err := Parse(full[:5])
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, len(full)-1, needed) // postamble is optional
}

func TestIsAck(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAck(AckFrame))
	assert.False(t, IsAck(NackFrame))
	assert.False(t, IsAck([]byte{0x00}))
}

func TestBufferPool(t *testing.T) {
	t.Parallel()

	small := GetSmallBuffer(6)
	assert.Len(t, small, 6)
	small[0] = 0xAA
	PutBuffer(small)
	assert.Equal(t, make([]byte, 6), GetSmallBuffer(6))

	big := GetBuffer(MaxFrameDataLength + Overhead)
	assert.Len(t, big, MaxFrameDataLength+Overhead)
	PutBuffer(big)

	huge := GetBuffer(4096)
	assert.Len(t, huge, 4096)
	PutBuffer(huge)
}
