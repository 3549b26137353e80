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

// Status is the outcome class of a native call. The values mirror the
// Cordova plugin result statuses.
type Status int

const (
	StatusNoResult Status = iota
	StatusOK
	StatusClassNotFound
	StatusIllegalAccess
	StatusInstantiation
	StatusMalformedURL
	StatusIOException
	StatusInvalidAction
	StatusJSONException
	StatusError
)

var statusNames = [...]string{
	StatusNoResult:       "NO_RESULT",
	StatusOK:             "OK",
	StatusClassNotFound:  "CLASS_NOT_FOUND",
	StatusIllegalAccess:  "ILLEGAL_ACCESS",
	StatusInstantiation:  "INSTANTIATION",
	StatusMalformedURL:   "MALFORMED_URL",
	StatusIOException:    "IO_EXCEPTION",
	StatusInvalidAction:  "INVALID_ACTION",
	StatusJSONException:  "JSON_EXCEPTION",
	StatusError:          "ERROR",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "ERROR"
	}
	return statusNames[s]
}

// Result is what a native plugin reports for a call.
type Result struct {
	// Message is delivered to the continuation after a JSON round trip.
	Message any
	Status  Status
}

// NewResult builds a Result.
func NewResult(status Status, message any) Result {
	return Result{Status: status, Message: message}
}

// failureValue is what the failure continuation receives. A non-OK result
// with no message reports the status name.
func (r Result) failureValue() any {
	if r.Message == nil {
		return r.Status.String()
	}
	return r.Message
}
