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

// Package bridge is the invocation boundary between script-facing adapters
// and native plugins.
//
// A Host dispatches Exec calls to registered plugins. Arguments cross the
// boundary as a JSON array and results come back JSON round tripped, the
// same shape a WebView bridge would deliver. Each call is completed exactly
// once through its CallbackContext; continuations run on a single delivery
// goroutine in completion order.
//
// No timeout applies to a dispatched call. If a plugin never completes a
// call, neither continuation runs.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrPluginExists is returned when a service name is registered twice
var ErrPluginExists = errors.New("plugin already registered")

// hostClosedMessage is the failure value for calls made after Close.
const hostClosedMessage = "HOST_CLOSED"

// Callback is a continuation receiving the value the native side reported.
type Callback func(result any)

// Executor is the generic invocation primitive: two continuations, a target
// service, an action name and the argument list.
type Executor interface {
	Exec(onSuccess, onFailure Callback, service, action string, args []any)
}

// Plugin is a native service. Execute returns false when it does not
// recognise action; the host then fails the call with StatusInvalidAction.
// A plugin may complete cb before or after Execute returns.
type Plugin interface {
	Execute(ctx context.Context, action string, args Args, cb *CallbackContext) bool
}

// Pauser is implemented by plugins that stop work while the host is paused.
type Pauser interface {
	Pause()
}

// Resumer is implemented by plugins that restart work on resume.
type Resumer interface {
	Resume(ctx context.Context)
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithContext sets the parent context handed to plugins.
func WithContext(ctx context.Context) Option {
	return func(h *Host) {
		h.parent = ctx
	}
}

// Host routes calls to plugins and results back to continuations.
type Host struct {
	parent   context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
	loop     *loop
	plugins  map[string]Plugin
	events   *events
	inflight sync.WaitGroup
	mu       sync.RWMutex
	nextID   atomic.Uint64
	closed   bool
}

// NewHost creates a Host with no plugins registered.
func NewHost(opts ...Option) *Host {
	h := &Host{
		parent:  context.Background(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		plugins: make(map[string]Plugin),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.ctx, h.cancel = context.WithCancel(h.parent)
	h.loop = newLoop(h.logger)
	h.events = newEvents()
	return h
}

var _ Executor = (*Host)(nil)

// Register makes p reachable under service.
func (h *Host) Register(service string, p Plugin) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.plugins[service]; ok {
		return fmt.Errorf("%w: %s", ErrPluginExists, service)
	}
	h.plugins[service] = p
	h.logger.Debug("plugin registered", "service", service)
	return nil
}

// Unregister removes service. Calls already dispatched still complete.
func (h *Host) Unregister(service string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.plugins, service)
}

// Exec dispatches action to service without blocking.
func (h *Host) Exec(onSuccess, onFailure Callback, service, action string, args []any) {
	cb := &CallbackContext{
		onSuccess: onSuccess,
		onFailure: onFailure,
		post:      h.loop.post,
		logger:    h.logger,
		id:        fmt.Sprintf("%s%d", service, h.nextID.Add(1)),
	}
	h.logger.Debug("exec", "callback", cb.id, "action", action)

	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		h.logger.Warn("arguments do not survive the bridge", "callback", cb.id, "error", err)
		cb.SendPluginResult(NewResult(StatusJSONException, nil))
		return
	}
	decoded, err := NewArgs(encoded)
	if err != nil {
		cb.SendPluginResult(NewResult(StatusJSONException, nil))
		return
	}

	h.mu.RLock()
	plugin, ok := h.plugins[service]
	closed := h.closed
	if ok && !closed {
		h.inflight.Add(1)
	}
	h.mu.RUnlock()

	switch {
	case closed:
		cb.Error(hostClosedMessage)
		return
	case !ok:
		h.logger.Warn("unknown service", "callback", cb.id, "service", service)
		cb.SendPluginResult(NewResult(StatusClassNotFound, nil))
		return
	}

	go func() {
		defer h.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("plugin panicked", "callback", cb.id, "action", action, "panic", r)
				cb.Error(fmt.Sprint(r))
			}
		}()
		if !plugin.Execute(h.ctx, action, decoded, cb) {
			cb.SendPluginResult(NewResult(StatusInvalidAction, nil))
		}
	}()
}

// Pause forwards to every plugin implementing Pauser.
func (h *Host) Pause() {
	for _, p := range h.snapshot() {
		if pauser, ok := p.(Pauser); ok {
			pauser.Pause()
		}
	}
}

// Resume forwards to every plugin implementing Resumer.
func (h *Host) Resume() {
	for _, p := range h.snapshot() {
		if resumer, ok := p.(Resumer); ok {
			resumer.Resume(h.ctx)
		}
	}
}

func (h *Host) snapshot() []Plugin {
	h.mu.RLock()
	defer h.mu.RUnlock()
	plugins := make([]Plugin, 0, len(h.plugins))
	for _, p := range h.plugins {
		plugins = append(plugins, p)
	}
	return plugins
}

// Close closes plugins implementing io.Closer, waits for in-flight Execute
// calls and delivers outstanding results. It must not be called from a
// continuation.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()

	var errs []error
	for _, p := range h.snapshot() {
		if closer, ok := p.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	h.inflight.Wait()
	h.loop.shutdown()
	return errors.Join(errs...)
}

// roundTrip returns v as it looks after crossing the bridge.
func roundTrip(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}
