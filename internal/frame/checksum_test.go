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
)

func TestCalculateChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{name: "empty", data: []byte{}, want: 0},
		{name: "wraps at 256", data: []byte{0xFF, 0x01}, want: 0x00},
		{name: "firmware response body", data: []byte{0xD5, 0x03, 0x32, 0x01, 0x06, 0x07}, want: 0x18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CalculateChecksum(tt.data))
		})
	}
}

func TestDataChecksumZeroesFrameBody(t *testing.T) {
	t.Parallel()

	// PWD_AUTH through InCommunicateThru
	payload := []byte{0x42, 0x1B, '1', '2', '3', '4'}
	dcs := CalculateDataChecksum(HostToPn532, payload)

	body := append([]byte{HostToPn532}, payload...)
	body = append(body, dcs)
	assert.False(t, ValidateChecksum(body))
	assert.True(t, ValidateChecksum(body[:len(body)-1]))
}

func TestLengthChecksumProperty(t *testing.T) {
	t.Parallel()
	for i := 0; i < 256; i++ {
		length := byte(i)
		assert.Zero(t, length+CalculateLengthChecksum(length), "length %d", i)
	}
}
