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

// Package i2c provides I2C transport implementation for PN532
package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FrostyElk/cordova-mifare/internal/frame"
	"github.com/FrostyElk/cordova-mifare/internal/retry"
	"github.com/FrostyElk/cordova-mifare/pn532"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// Address is the 7-bit PN532 I2C address
	Address = 0x24

	pn532Ready   = 0x01
	maxClockFreq = 400 * physic.KiloHertz
	pollInterval = time.Millisecond
	maxFrameRead = frame.MaxFrameDataLength + frame.Overhead
	maxNacks     = 2
)

// Conn is the subset of a periph I2C device the transport needs
type Conn interface {
	Tx(w, r []byte) error
}

// Transport implements the pn532.Transport interface for I2C communication
type Transport struct {
	dev     Conn
	bus     i2c.BusCloser
	busName string
	timeout time.Duration
	mu      sync.Mutex
}

// New opens busName (e.g. "/dev/i2c-1" or "1") and addresses the PN532
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	// continue at the default speed if the bus refuses 400 kHz
	_ = bus.SetSpeed(maxClockFreq)

	t := NewWithConn(&i2c.Dev{Addr: Address, Bus: bus}, busName)
	t.bus = bus
	return t, nil
}

// NewWithConn wraps an existing I2C device connection
func NewWithConn(dev Conn, busName string) *Transport {
	return &Transport{
		dev:     dev,
		busName: busName,
		timeout: 100 * time.Millisecond,
	}
}

// SendCommand sends a command to the PN532 and waits for response
func (t *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return t.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext sends a command and gives up when ctx ends
func (t *Transport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil, pn532.NewTransportError("SendCommand", t.busName, pn532.ErrDeviceNotFound, pn532.ErrorTypePermanent)
	}

	frm, err := frame.Build(cmd, args)
	if err != nil {
		return nil, pn532.NewDataTooLargeError("sendFrame", t.busName)
	}
	if err := t.dev.Tx(frm, nil); err != nil {
		return nil, pn532.NewTransportError("sendFrame", t.busName, errors.Join(pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}

	if err := t.waitAck(ctx); err != nil {
		return nil, err
	}

	resp, err := retry.Do(ctx, retry.Config{MaxRetries: maxNacks, OnRetry: t.sendNack}, func() ([]byte, bool, error) {
		data, err := t.receiveFrame(ctx)
		if errors.Is(err, pn532.ErrFrameCorrupted) || errors.Is(err, pn532.ErrChecksumMismatch) {
			return nil, true, nil
		}
		return data, false, err
	})
	if errors.Is(err, retry.ErrExhausted) {
		return nil, pn532.NewFrameCorruptedError("receiveFrame", t.busName)
	}
	return resp, err
}

// readReady reads len(buf)-1 bytes once the PN532 reports ready; the first
// byte of every I2C read is the ready status.
func (t *Transport) readReady(ctx context.Context, op string, buf []byte) error {
	_, err := retry.Until(ctx, t.timeout, pollInterval, func() (struct{}, bool, error) {
		if err := t.dev.Tx(nil, buf); err != nil {
			return struct{}{}, false, pn532.NewTransportError(op, t.busName,
				errors.Join(pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
		}
		return struct{}{}, buf[0] != pn532Ready, nil
	})
	if errors.Is(err, retry.ErrDeadline) {
		return pn532.NewTimeoutError(op, t.busName)
	}
	return err
}

// waitAck waits for an ACK frame from the PN532
func (t *Transport) waitAck(ctx context.Context) error {
	buf := frame.GetSmallBuffer(1 + len(frame.AckFrame))
	defer frame.PutBuffer(buf)

	if err := t.readReady(ctx, "waitAck", buf); err != nil {
		if errors.Is(err, pn532.ErrTransportTimeout) {
			return pn532.NewNoACKError("waitAck", t.busName)
		}
		return err
	}
	if !frame.IsAck(buf[1:]) {
		return pn532.NewNoACKError("waitAck", t.busName)
	}
	return nil
}

// receiveFrame reads and validates one response frame
func (t *Transport) receiveFrame(ctx context.Context) ([]byte, error) {
	buf := frame.GetBuffer(1 + maxFrameRead)
	defer frame.PutBuffer(buf)

	if err := t.readReady(ctx, "receiveFrame", buf); err != nil {
		return nil, err
	}

	data, _, err := frame.Parse(buf[1:])
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, frame.ErrDataChecksum):
		return nil, pn532.NewChecksumMismatchError("receiveFrame", t.busName)
	default:
		return nil, pn532.NewFrameCorruptedError("receiveFrame", t.busName)
	}
}

func (t *Transport) sendNack() error {
	if err := t.dev.Tx(frame.NackFrame, nil); err != nil {
		return fmt.Errorf("failed to send NACK: %w", err)
	}
	return nil
}

// SetTimeout sets the read timeout for the transport
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close releases the I2C bus
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dev = nil
	if t.bus == nil {
		return nil
	}
	err := t.bus.Close()
	t.bus = nil
	if err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

// Type returns the transport type
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportI2C
}

var _ pn532.TransportContext = (*Transport)(nil)
