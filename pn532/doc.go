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

/*
Package pn532 drives a PN532 NFC controller far enough to work with NTAG21x
tags: reader initialisation, target detection, and the NTAG GET_VERSION,
PWD_AUTH, READ, FAST_READ and WRITE commands.

Transports live in sub-packages (transport/uart, transport/i2c) and only
have to move command/response payloads; the Device adds response checking
and PN532 status decoding on top.

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
		return err
	}
	device, err := pn532.New(transport, pn532.WithRetryConfig(pn532.DefaultRetryConfig()))
	if err != nil {
		return err
	}
	if err := device.Init(ctx); err != nil {
		return err
	}

	detected, err := device.DetectTag(ctx)
	if errors.Is(err, pn532.ErrNoTagDetected) {
		// field is empty
	}
	tag := pn532.NewNTAGTag(device, detected.UIDBytes, detected.SAK)
	if _, err := tag.PwdAuth(ctx, []byte("1234")); err != nil {
		return err
	}
	data, err := tag.FastRead(ctx, 0, 220)

Errors can be inspected with errors.Is against the package sentinels;
reader status codes surface as *PN532Error and unwrap to ErrTagNotResponding
or ErrAuthFailed where that applies.
*/
package pn532
