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

package bridge

import "sync"

type events struct {
	subs   map[string]map[uint64]func(any)
	mu     sync.Mutex
	nextID uint64
}

func newEvents() *events {
	return &events{subs: make(map[string]map[uint64]func(any))}
}

// Subscribe registers fn for document events called name. The returned
// function removes the subscription.
func (h *Host) Subscribe(name string, fn func(data any)) (cancel func()) {
	e := h.events
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	if e.subs[name] == nil {
		e.subs[name] = make(map[uint64]func(any))
	}
	e.subs[name][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs[name], id)
	}
}

// FireDocumentEvent delivers data to every subscriber of name on the
// delivery goroutine.
func (h *Host) FireDocumentEvent(name string, data any) {
	msg, err := roundTrip(data)
	if err != nil {
		h.logger.Error("event data does not survive the bridge", "event", name, "error", err)
		return
	}

	e := h.events
	e.mu.Lock()
	handlers := make([]func(any), 0, len(e.subs[name]))
	for _, fn := range e.subs[name] {
		handlers = append(handlers, fn)
	}
	e.mu.Unlock()

	h.logger.Debug("document event", "event", name, "subscribers", len(handlers))
	for _, fn := range handlers {
		h.loop.post(func() { fn(msg) })
	}
}
