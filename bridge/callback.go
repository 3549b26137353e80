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
	"sync/atomic"
)

// CallbackContext completes one call. The first completion wins; later
// ones are dropped.
type CallbackContext struct {
	onSuccess Callback
	onFailure Callback
	post      func(func())
	logger    *slog.Logger
	id        string
	done      atomic.Bool
}

// CallbackID identifies the call in logs, e.g. "MifarePlugin3".
func (c *CallbackContext) CallbackID() string {
	return c.id
}

// IsFinished reports whether the call has been completed.
func (c *CallbackContext) IsFinished() bool {
	return c.done.Load()
}

// Success completes the call with StatusOK.
func (c *CallbackContext) Success(message any) {
	c.SendPluginResult(NewResult(StatusOK, message))
}

// Error completes the call with StatusError.
func (c *CallbackContext) Error(message any) {
	c.SendPluginResult(NewResult(StatusError, message))
}

// SendPluginResult completes the call with r. OK results go to the success
// continuation, everything else to the failure continuation.
func (c *CallbackContext) SendPluginResult(r Result) {
	if !c.done.CompareAndSwap(false, true) {
		c.logger.Warn("dropping result for finished call",
			"callback", c.id, "status", r.Status.String())
		return
	}

	msg, err := roundTrip(r.Message)
	if err != nil {
		c.logger.Error("result does not survive the bridge", "callback", c.id, "error", err)
		r, msg = NewResult(StatusJSONException, nil), nil
	}

	c.logger.Debug("call finished", "callback", c.id, "status", r.Status.String())

	if r.Status == StatusOK {
		c.post(func() { invoke(c.onSuccess, msg) })
		return
	}
	r.Message = msg
	value := r.failureValue()
	c.post(func() { invoke(c.onFailure, value) })
}

func invoke(cb Callback, v any) {
	if cb != nil {
		cb(v)
	}
}
