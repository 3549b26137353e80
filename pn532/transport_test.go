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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func TestTransportWithRetry_NewTransportWithRetry(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	tr := NewTransportWithRetry(mock, nil)
	assert.Equal(t, DefaultRetryConfig(), tr.config)
	assert.Same(t, mock, tr.Unwrap())
	assert.Equal(t, TransportMock, tr.Type())
	assert.True(t, tr.IsConnected())
}

func TestTransportWithRetry_SendCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setup     func(*MockTransport)
		wantErr   error
		name      string
		wantCalls int
	}{
		{
			name: "succeeds first time",
			setup: func(m *MockTransport) {
				m.SetResponse(cmdGetFirmwareVersion, []byte{0x03, 0x32, 0x01, 0x06, 0x07})
			},
			wantCalls: 1,
		},
		{
			name: "retryable error uses every attempt",
			setup: func(m *MockTransport) {
				m.SetError(cmdGetFirmwareVersion, ErrNoACK)
			},
			wantErr:   ErrNoACK,
			wantCalls: 3,
		},
		{
			name: "permanent error is not retried",
			setup: func(m *MockTransport) {
				m.SetError(cmdGetFirmwareVersion, ErrDataTooLarge)
			},
			wantErr:   ErrDataTooLarge,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := NewMockTransport()
			tt.setup(mock)
			tr := NewTransportWithRetry(mock, fastRetryConfig(3))

			_, err := tr.SendCommand(cmdGetFirmwareVersion, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, mock.GetCallCount(cmdGetFirmwareVersion))
		})
	}
}

func TestTransportWithRetry_RecoversAfterTransientError(t *testing.T) {
	t.Parallel()

	flaky := &flakyTransport{MockTransport: NewMockTransport(), failures: 2}
	flaky.SetResponse(cmdSamConfiguration, []byte{0x15})

	tr := NewTransportWithRetry(flaky, fastRetryConfig(3))
	resp, err := tr.SendCommand(cmdSamConfiguration, []byte{0x01, 0x00, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x15}, resp)
	assert.Equal(t, 3, flaky.GetCallCount(cmdSamConfiguration))
}

func TestTransportWithRetry_ContextCancelled(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetError(cmdGetFirmwareVersion, ErrTransportTimeout)
	tr := NewTransportWithRetry(mock, &RetryConfig{MaxAttempts: 10, InitialBackoff: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.SendCommandContext(ctx, cmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrTransportTimeout)
	assert.Equal(t, 1, mock.GetCallCount(cmdGetFirmwareVersion))
}

func TestTransportWithRetry_Close(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	tr := NewTransportWithRetry(mock, nil)
	require.NoError(t, tr.Close())
	assert.False(t, mock.IsConnected())

	require.NoError(t, tr.SetTimeout(time.Second))
	assert.Equal(t, time.Second, mock.timeout)
}

func TestNextBackoff(t *testing.T) {
	t.Parallel()

	cfg := &RetryConfig{BackoffMultiplier: 2, MaxBackoff: 30 * time.Millisecond}
	assert.Equal(t, 20*time.Millisecond, nextBackoff(10*time.Millisecond, cfg))
	assert.Equal(t, 30*time.Millisecond, nextBackoff(20*time.Millisecond, cfg))

	d := withJitter(100*time.Millisecond, 0.1)
	assert.InDelta(t, float64(100*time.Millisecond), float64(d), float64(10*time.Millisecond))
}

// flakyTransport fails the first failures commands with a retryable error
type flakyTransport struct {
	*MockTransport
	failures int
}

func (f *flakyTransport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	resp, err := f.MockTransport.SendCommand(cmd, args)
	if f.failures > 0 {
		f.failures--
		return nil, NewFrameCorruptedError("receiveFrame", "mock")
	}
	if err != nil {
		return nil, errors.Join(ErrTransportRead, err)
	}
	return resp, nil
}
