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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrArgIndex is returned when an argument index is out of range
	ErrArgIndex = errors.New("argument index out of range")
	// ErrNotObject is returned by Args.Object for non-object arguments
	ErrNotObject = errors.New("argument is not a JSON object")
)

// Args is the argument list of a call as it arrived on the native side.
type Args struct {
	raw []json.RawMessage
}

// NewArgs decodes a JSON array into Args.
func NewArgs(data []byte) (Args, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Args{}, fmt.Errorf("failed to decode arguments: %w", err)
	}
	return Args{raw: raw}, nil
}

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a.raw)
}

// Raw returns argument i undecoded.
func (a Args) Raw(i int) (json.RawMessage, error) {
	if i < 0 || i >= len(a.raw) {
		return nil, fmt.Errorf("%w: %d of %d", ErrArgIndex, i, len(a.raw))
	}
	return a.raw[i], nil
}

// Object decodes argument i, which must be a JSON object, into v.
func (a Args) Object(i int, v any) error {
	raw, err := a.Raw(i)
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return fmt.Errorf("%w: argument %d", ErrNotObject, i)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode argument %d: %w", i, err)
	}
	return nil
}
