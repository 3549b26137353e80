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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns USB devices that should not be probed during
// detection. Entries are VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{
		"2341:0043", // Arduino Uno, resets on open
		"2341:0001", // Arduino Uno (old bootloader)
		"1366:0105", // SEGGER J-Link CDC
	}
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	if vidpid == "" {
		return false
	}

	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// ParseVIDPID extracts VID:PID from the USB descriptor formats seen in port
// listings: "VID:1234 PID:5678", "vendor=1234 product=5678", "1234:5678".
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := hexAfter(descriptor, "VID:", "VENDOR=", "VID=", "VID_")
	pid := hexAfter(descriptor, "PID:", "PRODUCT=", "PID=", "PID_")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if parts := strings.Split(descriptor, ":"); len(parts) == 2 && isHex(parts[0]) && isHex(parts[1]) {
		return descriptor
	}
	return ""
}

// hexAfter returns the hex run following the first marker found in s.
func hexAfter(s string, markers ...string) string {
	for _, m := range markers {
		if idx := strings.Index(s, m); idx >= 0 {
			return extractHex(s[idx+len(m):])
		}
	}
	return ""
}

func extractHex(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool { return !isHexRune(r) })
	if end < 0 {
		return s
	}
	return s[:end]
}

func isHex(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return !isHexRune(r) }) < 0
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}

// IsPathIgnored checks if a device path should be ignored. Paths are
// compared cleaned and case-insensitively so COM ports match on Windows.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}

	normalized := normalizedPath(devicePath)
	for _, ignore := range ignorePaths {
		if ignore != "" && normalizedPath(ignore) == normalized {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
