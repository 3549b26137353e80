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

//go:build linux

package i2c

import (
	"fmt"
	"path/filepath"

	"github.com/FrostyElk/cordova-mifare/detection"
	"golang.org/x/sys/unix"
)

const (
	// ioctlSlave selects the target address for subsequent reads
	ioctlSlave = 0x0703
	// ioctlFuncs reports adapter functionality
	ioctlFuncs = 0x0705
	// funcI2C indicates plain I2C support
	funcI2C = 0x00000001
)

// findBuses returns the /dev/i2c-* adapters that support plain I2C.
func findBuses() ([]string, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C devices: %w", err)
	}

	buses := make([]string, 0, len(matches))
	for _, path := range matches {
		if !detection.CanAccess(path) {
			continue
		}
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		funcs, err := unix.IoctlGetUint32(fd, ioctlFuncs)
		_ = unix.Close(fd)
		if err != nil || funcs&funcI2C == 0 {
			continue
		}
		buses = append(buses, path)
	}
	return buses, nil
}

// addressResponds reports whether a one byte read at addr is acknowledged.
func addressResponds(bus string, addr int) bool {
	fd, err := unix.Open(bus, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return false
	}
	defer func() { _ = unix.Close(fd) }()

	if err := unix.IoctlSetInt(fd, ioctlSlave, addr); err != nil {
		return false
	}
	buf := make([]byte, 1)
	_, err = unix.Read(fd, buf)
	return err == nil
}
