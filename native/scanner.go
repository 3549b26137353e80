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

package native

import (
	"context"
	"errors"
	"time"

	"github.com/FrostyElk/cordova-mifare/pn532"
)

// scanner polls the reader until stopped. A tag staying in the field is
// read once; it is read again after it has left and come back.
type scanner struct {
	plugin  *Plugin
	cancel  context.CancelFunc
	done    chan struct{}
	present string
}

func startScanner(ctx context.Context, p *Plugin) *scanner {
	ctx, cancel := context.WithCancel(ctx)
	s := &scanner{
		plugin: p,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// stop cancels the loop and waits for it to exit.
func (s *scanner) stop() {
	s.cancel()
	<-s.done
}

func (s *scanner) run(ctx context.Context) {
	defer close(s.done)
	logger := s.plugin.logger
	logger.Debug("scanner started")
	defer logger.Debug("scanner stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.poll(ctx)
		timer.Reset(s.plugin.pollInterval)
	}
}

func (s *scanner) poll(ctx context.Context) {
	tag, err := s.plugin.reader.Detect(ctx)
	if err != nil {
		if !errors.Is(err, pn532.ErrNoTagDetected) && ctx.Err() == nil {
			s.plugin.logger.Debug("poll failed", "error", err)
		}
		s.present = ""
		return
	}

	uid := tag.UID()
	if req := s.plugin.takePending(); req != nil {
		s.write(ctx, tag, req)
		s.present = uid
		return
	}
	if uid == s.present {
		return
	}
	s.present = uid
	s.read(ctx, tag)
}

// write authenticates and writes req.payload from the first user page.
func (s *scanner) write(ctx context.Context, tag Tag, req *writeRequest) {
	logger := s.plugin.logger.With("uid", tag.UID(), "callback", req.cb.CallbackID())

	err := s.writeTag(ctx, tag, req.payload)
	if err != nil {
		msg := writeFailure(ctx, err)
		logger.Warn("write failed", "error", err, "result", msg)
		req.cb.Error(msg)
		return
	}
	logger.Info("tag written", "bytes", len(req.payload))
	req.cb.Success(true)
}

func (s *scanner) writeTag(ctx context.Context, tag Tag, payload []byte) error {
	if err := tag.Authenticate(ctx, s.plugin.currentPassword()); err != nil {
		return err
	}
	capacity, err := tag.UserBytes(ctx)
	if err != nil {
		return err
	}
	if len(payload) > capacity {
		return pn532.ErrDataTooLarge
	}
	return tag.WritePages(ctx, pn532.NTAGUserStartPage, payload)
}

// writeFailure maps a write error to the value reported to the script side.
func writeFailure(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil:
		return MsgPluginClosed
	case errors.Is(err, pn532.ErrAuthFailed):
		return MsgAuthFailed
	case errors.Is(err, pn532.ErrDataTooLarge):
		return MsgPayloadTooBig
	default:
		return MsgTagLost
	}
}

// read authenticates, reads the configured pages and fires an event.
// Failures are logged only.
func (s *scanner) read(ctx context.Context, tag Tag) {
	p := s.plugin
	logger := p.logger.With("uid", tag.UID())

	if err := tag.Authenticate(ctx, p.currentPassword()); err != nil {
		logger.Warn("authentication failed", "error", err)
		return
	}
	data, err := tag.ReadPages(ctx, 0, p.readPages-1)
	if err != nil {
		logger.Warn("read failed", "error", err)
		return
	}

	if p.events == nil {
		logger.Debug("tag read, no event listener", "bytes", len(data))
		return
	}

	event, err := newTagEvent(tag.UID(), data)
	if err != nil {
		logger.Debug("no NDEF message decoded", "error", err)
	}
	logger.Info("tag read", "bytes", len(data), "records", len(event.Records))
	p.events.FireDocumentEvent(EventTagDetected, event)
}
