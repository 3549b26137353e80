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

package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FrostyElk/cordova-mifare/pn532"
)

// PN532 command and status bytes answered by the simulator
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSAMConfiguration    = 0x14
	cmdInDataExchange      = 0x40
	cmdInCommunicateThru   = 0x42
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52

	statusOK      = 0x00
	statusTimeout = 0x01
	statusNAK     = 0x14

	portName = "simulator"
)

// Transport is a pn532.Transport backed by a virtual reader field.
type Transport struct {
	tag       *Tag
	selected  bool
	dropAfter int
	commands  map[byte]int
	timeout   time.Duration
	mu        sync.Mutex
	closed    bool
}

// NewTransport returns a simulated reader with an empty field.
func NewTransport() *Transport {
	return &Transport{commands: make(map[byte]int), dropAfter: -1}
}

// Present places tag in the reader field.
func (s *Transport) Present(tag *Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tag = tag
	s.selected = false
}

// Remove takes the tag out of the field.
func (s *Transport) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tag = nil
	s.selected = false
}

// RemoveAfter removes the tag once n more tag exchanges have completed.
// It may be called before Present.
func (s *Transport) RemoveAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropAfter = n
}

// Calls returns how often cmd has been received.
func (s *Transport) Calls(cmd byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands[cmd]
}

// SendCommand answers cmd the way a PN532 would.
func (s *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return s.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext answers cmd unless ctx has ended.
func (s *Transport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, pn532.NewTransportError("SendCommand", portName, pn532.ErrDeviceNotFound, pn532.ErrorTypePermanent)
	}
	s.commands[cmd]++

	switch cmd {
	case cmdGetFirmwareVersion:
		return []byte{cmd + 1, 0x32, 0x01, 0x06, 0x07}, nil
	case cmdSAMConfiguration:
		return []byte{cmd + 1}, nil
	case cmdInListPassiveTarget:
		return s.listTarget(), nil
	case cmdInDataExchange:
		if len(args) == 0 {
			return []byte{cmd + 1, statusNAK}, nil
		}
		return s.exchange(cmd, args[1:]), nil
	case cmdInCommunicateThru:
		return s.exchange(cmd, args), nil
	case cmdInRelease:
		s.selected = false
		return []byte{cmd + 1, statusOK}, nil
	default:
		return nil, pn532.NewTransportError("SendCommand", portName,
			fmt.Errorf("%w: unsupported command %02X", pn532.ErrCommunicationFailed, cmd), pn532.ErrorTypePermanent)
	}
}

func (s *Transport) listTarget() []byte {
	if s.tag == nil {
		return []byte{cmdInListPassiveTarget + 1, 0x00}
	}
	s.tag.reset()
	s.selected = true

	uid := s.tag.UID()
	resp := []byte{cmdInListPassiveTarget + 1, 0x01, 0x01, 0x00, 0x44, 0x00, byte(len(uid))}
	return append(resp, uid...)
}

func (s *Transport) exchange(cmd byte, data []byte) []byte {
	if s.tag == nil || !s.selected {
		return []byte{cmd + 1, statusTimeout}
	}
	if s.dropAfter == 0 {
		s.tag, s.selected, s.dropAfter = nil, false, -1
		return []byte{cmd + 1, statusTimeout}
	}
	if s.dropAfter > 0 {
		s.dropAfter--
	}

	out, ok := s.tag.transceive(data)
	if !ok {
		return []byte{cmd + 1, statusNAK}
	}
	resp := make([]byte, 0, 2+len(out))
	resp = append(resp, cmd+1, statusOK)
	return append(resp, out...)
}

// Close closes the simulated reader.
func (s *Transport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SetTimeout records the timeout; the simulator answers immediately.
func (s *Transport) SetTimeout(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = timeout
	return nil
}

// IsConnected reports whether Close has not been called.
func (s *Transport) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Type returns pn532.TransportMock.
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportMock
}

var _ pn532.TransportContext = (*Transport)(nil)
