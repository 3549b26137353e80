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

// Package mifare is the script-facing adapter of the MIFARE plugin.
//
// It exposes two asynchronous operations, Init and WriteTag, and forwards
// each to a bridge.Executor under the "MifarePlugin" service. The adapter
// keeps no state and does no validation of its own: options and payloads
// are passed through untouched and every failure comes from the native
// side. Exactly one of the two continuations runs per call, whenever the
// native side completes it.
//
// Basic usage:
//
//	host := bridge.NewHost()
//	defer host.Close()
//	_ = host.Register(mifare.ServiceName, native.New(reader))
//
//	plugin := mifare.New(host)
//	plugin.Init(mifare.InitOptions{Password: "1234"},
//		func(v any) { fmt.Println("ready:", v) },
//		func(v any) { fmt.Println("init failed:", v) })
//	plugin.WriteTag(mifare.WritePayload{Payload: mifare.Bytes{0x01, 0x02, 0x03}},
//		func(v any) { fmt.Println("written") },
//		func(v any) { fmt.Println("write failed:", v) })
package mifare
