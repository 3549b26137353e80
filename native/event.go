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
	"errors"

	mifare "github.com/FrostyElk/cordova-mifare"
	"github.com/FrostyElk/cordova-mifare/pn532"
)

// EventTagDetected is the document event fired for every tag read
const EventTagDetected = "onTagDetected"

// EventEmitter delivers document events to the script side.
type EventEmitter interface {
	FireDocumentEvent(name string, data any)
}

// TagEvent is the payload of EventTagDetected.
type TagEvent struct {
	UID     string       `json:"uid"`
	Payload mifare.Bytes `json:"payload"`
	Records []Record     `json:"records,omitempty"`
}

// Record is one decoded NDEF record.
type Record struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload string `json:"payload"`
	TNF     byte   `json:"tnf"`
}

// newTagEvent builds the event for a tag whose memory from page 0 is data.
func newTagEvent(uid string, data []byte) (TagEvent, error) {
	event := TagEvent{UID: uid, Payload: data}

	userStart := pn532.NTAGUserStartPage * pn532.NTAGPageSize
	if len(data) <= userStart {
		return event, nil
	}
	msg, err := pn532.ParseNDEF(data[userStart:])
	if errors.Is(err, pn532.ErrNoNDEF) {
		return event, nil
	}
	if err != nil {
		return event, err
	}

	for _, r := range msg.Records {
		rec := Record{TNF: r.TNF(), Type: r.Type(), ID: r.ID()}
		if payload, err := r.Payload(); err == nil && payload != nil {
			rec.Payload = payload.String()
		}
		event.Records = append(event.Records, rec)
	}
	return event, nil
}
