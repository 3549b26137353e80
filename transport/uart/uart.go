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

// Package uart provides the PN532 HSU (high speed UART) transport
package uart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FrostyElk/cordova-mifare/internal/frame"
	"github.com/FrostyElk/cordova-mifare/internal/retry"
	"github.com/FrostyElk/cordova-mifare/pn532"
	"go.bug.st/serial"
)

const (
	baudRate       = 115200
	defaultTimeout = time.Second
	ackTimeout     = 50 * time.Millisecond
	readChunk      = 64
	maxFrameNacks  = 2
)

// wakeupSequence brings a sleeping PN532 out of power-down on HSU
var wakeupSequence = []byte{
	0x55, 0x55, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Port is the subset of serial.Port the transport uses
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Transport implements pn532.Transport over a serial port
type Transport struct {
	port     Port
	portName string
	pending  []byte
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens portName at 115200 8N1 and wakes the PN532
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	t, err := NewWithPort(port, portName)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// NewWithPort wraps an already opened port
func NewWithPort(port Port, portName string) (*Transport, error) {
	t := &Transport{
		port:     port,
		portName: portName,
		timeout:  defaultTimeout,
	}
	if err := port.SetReadTimeout(ackTimeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	if _, err := port.Write(wakeupSequence); err != nil {
		return nil, pn532.NewTransportError("wakeup", portName, errors.Join(pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}
	if err := port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("failed to reset input buffer: %w", err)
	}
	return t, nil
}

// SendCommand sends a command to the PN532 and waits for the response
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

	if t.port == nil {
		return nil, pn532.NewTransportError("SendCommand", t.portName, pn532.ErrDeviceNotFound, pn532.ErrorTypePermanent)
	}

	frm, err := frame.Build(cmd, args)
	if err != nil {
		return nil, pn532.NewTransportError("SendCommand", t.portName, errors.Join(pn532.ErrDataTooLarge, err), pn532.ErrorTypePermanent)
	}

	t.pending = t.pending[:0]
	if _, err := t.port.Write(frm); err != nil {
		return nil, pn532.NewTransportError("SendCommand", t.portName, errors.Join(pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}

	if err := t.waitAck(ctx); err != nil {
		return nil, err
	}

	resp, err := retry.Do(ctx, retry.Config{MaxRetries: maxFrameNacks, OnRetry: t.sendNack}, func() ([]byte, bool, error) {
		data, err := t.receiveFrame(ctx)
		if errors.Is(err, pn532.ErrFrameCorrupted) || errors.Is(err, pn532.ErrChecksumMismatch) {
			return nil, true, nil
		}
		return data, false, err
	})
	if errors.Is(err, retry.ErrExhausted) {
		return nil, pn532.NewFrameCorruptedError("receiveFrame", t.portName)
	}
	return resp, err
}

// waitAck reads until an ACK frame arrives, keeping any bytes after it
func (t *Transport) waitAck(ctx context.Context) error {
	deadline := time.Now().Add(ackTimeout + t.timeout/4)
	for {
		off, err := frame.FindStart(t.pending)
		if err == nil && off+2 <= len(t.pending) {
			if frame.IsAck(t.pending) {
				rest := min(off+3, len(t.pending))
				t.pending = append(t.pending[:0], t.pending[rest:]...)
				return nil
			}
			if t.pending[off] == 0xFF && t.pending[off+1] == 0x00 {
				return pn532.NewNoACKError("waitAck", t.portName)
			}
		}
		if err := t.fill(ctx, deadline, "waitAck"); err != nil {
			if errors.Is(err, pn532.ErrTransportTimeout) {
				return pn532.NewNoACKError("waitAck", t.portName)
			}
			return err
		}
	}
}

// receiveFrame reads one response frame
func (t *Transport) receiveFrame(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	for {
		data, _, err := frame.Parse(t.pending)
		switch {
		case err == nil:
			t.pending = t.pending[:0]
			return data, nil
		case errors.Is(err, frame.ErrDataChecksum):
			t.pending = t.pending[:0]
			return nil, pn532.NewChecksumMismatchError("receiveFrame", t.portName)
		case errors.Is(err, frame.ErrLengthChecksum), errors.Is(err, frame.ErrUnexpectedTFI):
			t.pending = t.pending[:0]
			return nil, pn532.NewFrameCorruptedError("receiveFrame", t.portName)
		}

		if err := t.fill(ctx, deadline, "receiveFrame"); err != nil {
			return nil, err
		}
	}
}

// fill appends the next chunk from the port to pending
func (t *Transport) fill(ctx context.Context, deadline time.Time, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if time.Now().After(deadline) {
		return pn532.NewTimeoutError(op, t.portName)
	}

	buf := frame.GetSmallBuffer(readChunk)
	defer frame.PutBuffer(buf)

	n, err := t.port.Read(buf)
	if err != nil {
		return pn532.NewTransportError(op, t.portName, errors.Join(pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
	}
	t.pending = append(t.pending, buf[:n]...)
	return nil
}

func (t *Transport) sendNack() error {
	if _, err := t.port.Write(frame.NackFrame); err != nil {
		return pn532.NewTransportError("sendNack", t.portName, errors.Join(pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}
	return nil
}

// SetTimeout sets the response timeout
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close closes the serial port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// IsConnected returns true if the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportUART
}

var _ pn532.TransportContext = (*Transport)(nil)
