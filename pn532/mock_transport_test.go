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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// MockTransport answers commands from per-command canned responses
type MockTransport struct {
	responses map[byte][]byte
	queued    map[byte][][]byte
	errs      map[byte]error
	calls     map[byte]int
	lastArgs  map[byte][]byte
	timeout   time.Duration
	mu        sync.Mutex
	closed    bool
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][]byte),
		queued:    make(map[byte][][]byte),
		errs:      make(map[byte]error),
		calls:     make(map[byte]int),
		lastArgs:  make(map[byte][]byte),
	}
}

func (m *MockTransport) SetResponse(cmd byte, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = resp
	delete(m.errs, cmd)
}

// QueueResponses makes the next calls for cmd return resps in order before
// falling back to the fixed response
func (m *MockTransport) QueueResponses(cmd byte, resps ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued[cmd] = append(m.queued[cmd], resps...)
}

func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[cmd] = err
}

func (m *MockTransport) GetCallCount(cmd byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[cmd]
}

func (m *MockTransport) LastArgs(cmd byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastArgs[cmd]
}

func (m *MockTransport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[cmd]++
	m.lastArgs[cmd] = append([]byte(nil), args...)

	if err := m.errs[cmd]; err != nil {
		return nil, err
	}
	if q := m.queued[cmd]; len(q) > 0 {
		m.queued[cmd] = q[1:]
		return append([]byte(nil), q[0]...), nil
	}
	if resp, ok := m.responses[cmd]; ok {
		return append([]byte(nil), resp...), nil
	}
	return nil, fmt.Errorf("no response configured for command %02X", cmd)
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (*MockTransport) Type() TransportType {
	return TransportMock
}

func createMockDeviceWithTransport(t *testing.T) (*Device, *MockTransport) {
	t.Helper()
	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)
	return device, mock
}
