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

import (
	"log/slog"
	"sync"
)

// loop runs continuations and event handlers one at a time, in the order
// they were posted, like the script thread on the other side of a WebView
// bridge.
type loop struct {
	logger  *slog.Logger
	wake    chan struct{}
	done    chan struct{}
	queue   []func()
	mu      sync.Mutex
	stopped bool
}

func newLoop(logger *slog.Logger) *loop {
	l := &loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// post never blocks. After shutdown fn runs on its own goroutine.
func (l *loop) post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		go l.call(fn)
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		stopping := l.stopped
		l.mu.Unlock()

		for _, fn := range batch {
			l.call(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if stopping {
			return
		}
		<-l.wake
	}
}

func (l *loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("continuation panicked", "panic", r)
		}
	}()
	fn()
}

// shutdown drains queued work and stops the loop. It must not be called
// from a continuation.
func (l *loop) shutdown() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	l.signal()
	<-l.done
}
