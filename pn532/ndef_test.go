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
	"testing"

	"github.com/hsanjuan/go-ndef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNDEFTLV(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0x03, 0x02, 0xAA, 0xBB, 0xFE}, BuildNDEFTLV([]byte{0xAA, 0xBB}))

	long := make([]byte, 300)
	tlv := BuildNDEFTLV(long)
	assert.Equal(t, []byte{0x03, 0xFF, 0x01, 0x2C}, tlv[:4])
	assert.Len(t, tlv, 300+5)
	assert.Equal(t, byte(0xFE), tlv[len(tlv)-1])
}

func TestFindNDEFMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		memory  []byte
		want    []byte
		wantErr error
	}{
		{
			name:   "plain",
			memory: []byte{0x03, 0x02, 0xAA, 0xBB, 0xFE, 0x00},
			want:   []byte{0xAA, 0xBB},
		},
		{
			name:   "after lock control and null",
			memory: []byte{0x01, 0x03, 0xA0, 0x10, 0x44, 0x00, 0x03, 0x01, 0xCC, 0xFE},
			want:   []byte{0xCC},
		},
		{
			name:   "three byte length",
			memory: append([]byte{0x03, 0xFF, 0x00, 0x02, 0x01, 0x02}, 0xFE),
			want:   []byte{0x01, 0x02},
		},
		{name: "blank memory", memory: make([]byte, 16), wantErr: ErrNoNDEF},
		{name: "terminator first", memory: []byte{0xFE, 0x03, 0x01, 0x00}, wantErr: ErrNoNDEF},
		{name: "empty NDEF", memory: []byte{0x03, 0x00, 0xFE}, wantErr: ErrNoNDEF},
		{name: "length past end", memory: []byte{0x03, 0x10, 0x01}, wantErr: ErrInvalidResponse},
		{name: "missing length", memory: []byte{0x03}, wantErr: ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := FindNDEFMessage(tt.memory)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeParseNDEF(t *testing.T) {
	t.Parallel()

	encoded, err := EncodeNDEF(ndef.NewTextMessage("hello", "en"))
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), encoded[0])

	memory := make([]byte, 64)
	copy(memory, encoded)

	msg, err := ParseNDEF(memory)
	require.NoError(t, err)
	require.Len(t, msg.Records, 1)
	assert.Equal(t, "T", msg.Records[0].Type())

	payload, err := msg.Records[0].Payload()
	require.NoError(t, err)
	assert.Contains(t, payload.String(), "hello")
}
