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

// Package native implements the MifarePlugin service behind the bridge.
//
// The plugin arms a reader with a tag password on init, scans for tags in
// the background and reports every tag read as an onTagDetected document
// event. writeTag queues a payload for the next tag in the field.
package native

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	mifare "github.com/FrostyElk/cordova-mifare"
	"github.com/FrostyElk/cordova-mifare/bridge"
)

// Failure values reported to the script side
const (
	MsgOK             = "OK"
	MsgOptionsNotJSON = "Options not JSON"
	MsgNotInitialized = "NOT_INITIALIZED"
	MsgTagLost        = "TAG_LOST"
	MsgAuthFailed     = "AUTH_FAILED"
	MsgPayloadTooBig  = "PAYLOAD_TOO_LARGE"
	MsgWritePending   = "WRITE_PENDING"
	MsgPluginClosed   = "PLUGIN_CLOSED"
)

const (
	// DefaultReadPages covers the whole NTAG216 memory
	DefaultReadPages    = 221
	DefaultPollInterval = 250 * time.Millisecond
)

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the plugin logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPollInterval sets the pause between reader polls.
func WithPollInterval(d time.Duration) Option {
	return func(p *Plugin) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithReadPages sets how many pages are read from page 0 for events.
func WithReadPages(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.readPages = n
		}
	}
}

// WithEvents sets where onTagDetected events go.
func WithEvents(events EventEmitter) Option {
	return func(p *Plugin) {
		p.events = events
	}
}

// writeRequest is a payload waiting for a tag.
type writeRequest struct {
	cb      *bridge.CallbackContext
	payload []byte
}

// Plugin is the native MifarePlugin.
type Plugin struct {
	reader       Reader
	events       EventEmitter
	logger       *slog.Logger
	scanner      *scanner
	pending      *writeRequest
	password     []byte
	pollInterval time.Duration
	readPages    int
	// lifecycle serialises scanner start and stop; taken before mu
	lifecycle    sync.Mutex
	mu           sync.Mutex
	initialised  bool
	closed       bool
}

var (
	_ bridge.Plugin  = (*Plugin)(nil)
	_ bridge.Pauser  = (*Plugin)(nil)
	_ bridge.Resumer = (*Plugin)(nil)
	_ io.Closer      = (*Plugin)(nil)
)

// New creates a plugin driving reader. Nothing touches the reader until
// init is called.
func New(reader Reader, opts ...Option) *Plugin {
	p := &Plugin{
		reader:       reader,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pollInterval: DefaultPollInterval,
		readPages:    DefaultReadPages,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute handles init and writeTag. Other actions are not recognised.
func (p *Plugin) Execute(ctx context.Context, action string, args bridge.Args, cb *bridge.CallbackContext) bool {
	p.logger.Debug("execute", "action", action, "callback", cb.CallbackID())

	switch action {
	case mifare.ActionInit:
		p.init(ctx, args, cb)
	case mifare.ActionWriteTag:
		p.writeTag(args, cb)
	default:
		return false
	}
	return true
}

func (p *Plugin) init(ctx context.Context, args bridge.Args, cb *bridge.CallbackContext) {
	var opts struct {
		Password *string `json:"password"`
	}
	if err := args.Object(0, &opts); err != nil || opts.Password == nil {
		p.logger.Warn("init options rejected", "error", err)
		cb.Error(MsgOptionsNotJSON)
		return
	}

	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cb.Error(MsgPluginClosed)
		return
	}
	p.password = []byte(*opts.Password)
	p.initialised = true
	p.startLocked(ctx)
	p.mu.Unlock()

	p.logger.Info("reader armed")
	cb.Success(MsgOK)
}

func (p *Plugin) writeTag(args bridge.Args, cb *bridge.CallbackContext) {
	var data mifare.WritePayload
	if err := args.Object(0, &data); err != nil || data.Payload == nil {
		p.logger.Warn("write payload rejected", "error", err)
		cb.Error(MsgOptionsNotJSON)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.closed || (p.initialised && p.scanner == nil):
		cb.Error(MsgPluginClosed)
	case !p.initialised:
		cb.Error(MsgNotInitialized)
	case p.pending != nil:
		cb.Error(MsgWritePending)
	default:
		p.pending = &writeRequest{cb: cb, payload: data.Payload}
		p.logger.Debug("write queued", "bytes", len(data.Payload), "callback", cb.CallbackID())
	}
}

// Resume restarts scanning after Pause if init has been called.
func (p *Plugin) Resume(ctx context.Context) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialised && !p.closed {
		p.startLocked(ctx)
	}
}

// Pause stops scanning and returns once the scan loop has exited. A queued
// write fails with PLUGIN_CLOSED.
func (p *Plugin) Pause() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.mu.Lock()
	s := p.scanner
	p.scanner = nil
	req := p.pending
	p.pending = nil
	p.mu.Unlock()

	if s != nil {
		s.stop()
	}
	if req != nil {
		req.cb.Error(MsgPluginClosed)
	}
}

// Close stops scanning and releases the reader.
func (p *Plugin) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.Pause()
	return p.reader.Release()
}

func (p *Plugin) startLocked(ctx context.Context) {
	if p.scanner != nil {
		return
	}
	p.scanner = startScanner(ctx, p)
}

// takePending removes and returns the queued write, if any.
func (p *Plugin) takePending() *writeRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	req := p.pending
	p.pending = nil
	return req
}

func (p *Plugin) currentPassword() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.password
}
