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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "transport timeout", err: ErrTransportTimeout, want: true},
		{name: "no ACK", err: ErrNoACK, want: true},
		{name: "checksum mismatch", err: ErrChecksumMismatch, want: true},
		{name: "wrapped frame corrupted", err: fmt.Errorf("read: %w", ErrFrameCorrupted), want: true},
		{name: "tag not found", err: ErrTagNotFound, want: false},
		{name: "auth failed", err: ErrAuthFailed, want: false},
		{name: "data too large", err: ErrDataTooLarge, want: false},
		{name: "string lookalike", err: errors.New("outer: " + ErrTransportTimeout.Error()), want: false},
		{name: "permanent transport error", err: NewDataTooLargeError("send", "/dev/ttyUSB0"), want: false},
		{name: "transient transport error", err: NewNoACKError("waitAck", "/dev/ttyUSB0"), want: true},
		{name: "reader status", err: &PN532Error{Cmd: cmdInDataExchange, Status: statusTimeout}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorTypeTimeout, GetErrorType(NewTimeoutError("read", "i2c-1")))
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(ErrTransportTimeout))
	assert.Equal(t, ErrorTypeTransient, GetErrorType(ErrTransportRead))
	assert.Equal(t, ErrorTypePermanent, GetErrorType(ErrInvalidParameter))
	assert.Equal(t, "transient", ErrorTypeTransient.String())
}

func TestTransportError_Message(t *testing.T) {
	t.Parallel()

	err := NewTimeoutError("receiveFrame", "/dev/ttyUSB0")
	assert.Equal(t, "receiveFrame on /dev/ttyUSB0: transport timeout", err.Error())
	assert.ErrorIs(t, err, ErrTransportTimeout)

	err = NewTransportError("send", "", ErrTransportWrite, ErrorTypeTransient)
	assert.Equal(t, "send: transport write failed", err.Error())
}

func TestPN532Error_Unwrap(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, &PN532Error{Cmd: 0x40, Status: statusTimeout}, ErrTagNotResponding)
	assert.ErrorIs(t, &PN532Error{Cmd: 0x40, Status: statusMifareAuth}, ErrAuthFailed)

	other := &PN532Error{Cmd: 0x42, Status: 0x13}
	assert.NotErrorIs(t, other, ErrTagNotResponding)
	assert.Equal(t, "command 42 failed with status 13", other.Error())
}
