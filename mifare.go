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

package mifare

import "github.com/FrostyElk/cordova-mifare/bridge"

const (
	// ServiceName is the native service both operations target
	ServiceName = "MifarePlugin"
	// ActionInit arms the reader with a tag password
	ActionInit = "init"
	// ActionWriteTag writes a payload to the next tag presented
	ActionWriteTag = "writeTag"
)

// InitOptions configures the native reader. Password is the tag
// credential used for authentication.
type InitOptions struct {
	Password string `json:"password"`
}

// WritePayload carries the bytes to write to a tag.
type WritePayload struct {
	Payload Bytes `json:"payload"`
}

// Plugin forwards operations to the native MifarePlugin service.
type Plugin struct {
	exec bridge.Executor
}

// New returns an adapter dispatching through exec.
func New(exec bridge.Executor) *Plugin {
	return &Plugin{exec: exec}
}

// Init forwards options to the native init action unchanged. An empty
// password is sent as "".
func (p *Plugin) Init(options InitOptions, onSuccess, onFailure bridge.Callback) {
	p.exec.Exec(onSuccess, onFailure, ServiceName, ActionInit, []any{options})
}

// WriteTag forwards data to the native writeTag action. The payload is not
// inspected here; size limits are enforced by the native side.
func (p *Plugin) WriteTag(data WritePayload, onSuccess, onFailure bridge.Callback) {
	p.exec.Exec(onSuccess, onFailure, ServiceName, ActionWriteTag, []any{data})
}
