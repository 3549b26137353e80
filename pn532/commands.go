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

package pn532

// PN532 command codes
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSamConfiguration    = 0x14
	cmdInListPassiveTarget = 0x4A
	cmdInDataExchange      = 0x40
	cmdInCommunicateThru   = 0x42
	cmdInRelease           = 0x52
)

// SAM configuration modes
const (
	samModeNormal   = 0x01
	samTimeoutNone  = 0x00
	samUseIRQ       = 0x01
	brTy106kbpsA    = 0x00
	maxTargetsToAsk = 0x01
	defaultTarget   = 0x01
)

// firmwareIC is the IC byte reported by a genuine PN532
const firmwareIC = 0x32
