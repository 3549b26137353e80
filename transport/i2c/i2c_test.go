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

package i2c

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/FrostyElk/cordova-mifare/internal/frame"
	"github.com/FrostyElk/cordova-mifare/pn532"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn models the PN532 I2C read behaviour: every read starts with a
// ready byte followed by whatever the chip has queued
type fakeConn struct {
	onWrite func(w []byte) [][]byte
	queue   [][]byte
	writes  [][]byte
	mu      sync.Mutex
}

func (f *fakeConn) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if w != nil {
		f.writes = append(f.writes, append([]byte(nil), w...))
		if f.onWrite != nil {
			f.queue = append(f.queue, f.onWrite(w)...)
		}
	}
	if r != nil {
		clear(r)
		if len(f.queue) == 0 {
			return nil // not ready
		}
		r[0] = 0x01
		copy(r[1:], f.queue[0])
		f.queue = f.queue[1:]
	}
	return nil
}

func TestI2CContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport := NewWithConn(&fakeConn{}, "i2c-1")
	_, err := transport.SendCommandContext(ctx, 0x02, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSendCommand_RoundTrip(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{onWrite: func([]byte) [][]byte {
		return [][]byte{frame.AckFrame, frame.Encode([]byte{0x15})}
	}}
	transport := NewWithConn(conn, "i2c-1")

	resp, err := transport.SendCommand(0x14, []byte{0x01, 0x00, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x15}, resp)

	want, err := frame.Build(0x14, []byte{0x01, 0x00, 0x01})
	require.NoError(t, err)
	assert.Equal(t, want, conn.writes[0])
}

func TestSendCommand_NackRetry(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{onWrite: func(w []byte) [][]byte {
		if bytes.Equal(w, frame.NackFrame) {
			return [][]byte{frame.Encode([]byte{0x15})}
		}
		bad := frame.Encode([]byte{0x15})
		bad[len(bad)-2] ^= 0xFF
		return [][]byte{frame.AckFrame, bad}
	}}
	transport := NewWithConn(conn, "i2c-1")

	resp, err := transport.SendCommand(0x14, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x15}, resp)
	assert.Equal(t, frame.NackFrame, conn.writes[len(conn.writes)-1])
}

func TestSendCommand_NoACK(t *testing.T) {
	t.Parallel()

	transport := NewWithConn(&fakeConn{}, "i2c-1")
	require.NoError(t, transport.SetTimeout(10*time.Millisecond))

	_, err := transport.SendCommand(0x02, nil)
	require.ErrorIs(t, err, pn532.ErrNoACK)
}

func TestSendCommand_BusError(t *testing.T) {
	t.Parallel()

	transport := NewWithConn(errConn{}, "i2c-1")
	_, err := transport.SendCommand(0x02, nil)
	require.ErrorIs(t, err, pn532.ErrTransportWrite)
}

func TestClose(t *testing.T) {
	t.Parallel()

	transport := NewWithConn(&fakeConn{}, "i2c-1")
	assert.Equal(t, pn532.TransportI2C, transport.Type())
	assert.True(t, transport.IsConnected())

	require.NoError(t, transport.Close())
	assert.False(t, transport.IsConnected())

	_, err := transport.SendCommand(0x02, nil)
	require.ErrorIs(t, err, pn532.ErrDeviceNotFound)
}

type errConn struct{}

func (errConn) Tx([]byte, []byte) error { return errors.New("remote I/O error") }
