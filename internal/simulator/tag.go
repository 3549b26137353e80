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

// Package simulator provides a virtual NTAG21x tag and a PN532 transport
// that talks to it, for tests and for running without hardware.
package simulator

import (
	"encoding/hex"
	"fmt"
	"sync"
)

// Model selects the NTAG21x memory size.
type Model int

const (
	NTAG213 Model = iota
	NTAG215
	NTAG216
)

type modelInfo struct {
	name      string
	userPages int
	storage   byte
	ccSize    byte
}

var models = map[Model]modelInfo{
	NTAG213: {name: "NTAG213", userPages: 36, storage: 0x0F, ccSize: 0x12},
	NTAG215: {name: "NTAG215", userPages: 126, storage: 0x11, ccSize: 0x3E},
	NTAG216: {name: "NTAG216", userPages: 222, storage: 0x13, ccSize: 0x6D},
}

const (
	pageSize      = 4
	userStart     = 4
	configPages   = 5
	readPages     = 4
	noProtection  = 0xFF
	cmdGetVersion = 0x60
	cmdRead       = 0x30
	cmdFastRead   = 0x3A
	cmdWrite      = 0xA2
	cmdPwdAuth    = 0x1B
)

// DefaultUID is the UID given to tags created with a nil UID.
var DefaultUID = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}

// Tag is a virtual NTAG21x.
type Tag struct {
	uid      []byte
	pages    [][pageSize]byte
	model    modelInfo
	password [4]byte
	pack     [2]byte
	auth0    int
	authed   bool
	mu       sync.Mutex
}

// NewTag creates a blank tag of the given model with an empty NDEF TLV,
// as shipped from the factory.
func NewTag(model Model, uid []byte) *Tag {
	info, ok := models[model]
	if !ok {
		info = models[NTAG216]
	}
	if uid == nil {
		uid = DefaultUID
	}

	t := &Tag{
		uid:   append([]byte(nil), uid...),
		model: info,
		pages: make([][pageSize]byte, userStart+info.userPages+configPages),
		auth0: noProtection,
	}
	copy(t.pages[0][:3], uid)
	if len(uid) > 3 {
		copy(t.pages[1][:], uid[3:])
	}
	t.pages[3] = [pageSize]byte{0xE1, 0x10, info.ccSize, 0x00}
	t.pages[userStart] = [pageSize]byte{0x03, 0x00, 0xFE, 0x00}
	return t
}

// NewNTAG216 creates a blank NTAG216.
func NewNTAG216(uid []byte) *Tag {
	return NewTag(NTAG216, uid)
}

// UID returns the tag UID.
func (t *Tag) UID() []byte {
	return t.uid
}

// UIDString returns the UID as lowercase hex.
func (t *Tag) UIDString() string {
	return hex.EncodeToString(t.uid)
}

// Model returns the model name, e.g. "NTAG216".
func (t *Tag) Model() string {
	return t.model.name
}

// UserPages returns the number of user memory pages.
func (t *Tag) UserPages() int {
	return t.model.userPages
}

// TotalPages returns the number of addressable pages.
func (t *Tag) TotalPages() int {
	return len(t.pages)
}

// SetPassword protects pages from auth0 onwards against writes until
// PWD_AUTH succeeds with pwd.
func (t *Tag) SetPassword(pwd [4]byte, pack [2]byte, auth0 int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.password = pwd
	t.pack = pack
	t.auth0 = auth0
}

// LoadUser copies data into user memory from the first user page.
func (t *Tag) LoadUser(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(data) > t.model.userPages*pageSize {
		return fmt.Errorf("%d bytes do not fit in %s user memory", len(data), t.model.name)
	}
	for i := 0; i*pageSize < len(data); i++ {
		t.pages[userStart+i] = [pageSize]byte{}
		copy(t.pages[userStart+i][:], data[i*pageSize:])
	}
	return nil
}

// User returns a copy of user memory.
func (t *Tag) User() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]byte, 0, t.model.userPages*pageSize)
	for _, p := range t.pages[userStart : userStart+t.model.userPages] {
		out = append(out, p[:]...)
	}
	return out
}

// reset drops authentication, as a fresh selection does.
func (t *Tag) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.authed = false
}

// transceive executes one NTAG command. ok is false for a NAK.
func (t *Tag) transceive(cmd []byte) (resp []byte, ok bool) {
	if len(cmd) == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch cmd[0] {
	case cmdGetVersion:
		return []byte{0x00, 0x04, 0x04, 0x02, 0x01, 0x00, t.model.storage, 0x03}, true
	case cmdRead:
		if len(cmd) < 2 || int(cmd[1]) >= len(t.pages) {
			return nil, false
		}
		out := make([]byte, 0, readPages*pageSize)
		for i := range readPages {
			out = append(out, t.readable((int(cmd[1])+i)%len(t.pages))...)
		}
		return out, true
	case cmdFastRead:
		if len(cmd) < 3 || cmd[1] > cmd[2] || int(cmd[2]) >= len(t.pages) {
			return nil, false
		}
		out := make([]byte, 0, (int(cmd[2])-int(cmd[1])+1)*pageSize)
		for p := int(cmd[1]); p <= int(cmd[2]); p++ {
			out = append(out, t.readable(p)...)
		}
		return out, true
	case cmdWrite:
		if len(cmd) < 2+pageSize {
			return nil, false
		}
		page := int(cmd[1])
		if page < userStart-1 || page >= len(t.pages) {
			return nil, false
		}
		if page >= t.auth0 && !t.authed {
			return nil, false
		}
		copy(t.pages[page][:], cmd[2:2+pageSize])
		return nil, true
	case cmdPwdAuth:
		if len(cmd) < 5 || [4]byte(cmd[1:5]) != t.password {
			t.authed = false
			return nil, false
		}
		t.authed = true
		return t.pack[:], true
	default:
		return nil, false
	}
}

// readable returns page p as a reader sees it; PWD and PACK read as zero.
func (t *Tag) readable(p int) []byte {
	if p >= len(t.pages)-2 {
		return make([]byte, pageSize)
	}
	return append([]byte(nil), t.pages[p][:]...)
}
