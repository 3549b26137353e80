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

// Package i2c detects PN532 readers on Linux I2C buses.
package i2c

import (
	"context"
	"fmt"

	"github.com/FrostyElk/cordova-mifare/detection"
	"github.com/FrostyElk/cordova-mifare/pn532"
	i2ctransport "github.com/FrostyElk/cordova-mifare/transport/i2c"
)

// DefaultPN532Address is the standard I2C address for PN532 (0x48 >> 1)
const DefaultPN532Address = i2ctransport.Address

type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "i2c"
}

// Detect searches for PN532 devices on I2C buses
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	buses, err := findBuses()
	if err != nil {
		return nil, err
	}

	var devices []detection.DeviceInfo
	for _, bus := range buses {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}

		path := fmt.Sprintf("%s:0x%02X", bus, DefaultPN532Address)
		if detection.IsPathIgnored(path, opts.IgnorePaths) || !addressResponds(bus, DefaultPN532Address) {
			continue
		}

		device := detection.DeviceInfo{
			Transport:  "i2c",
			Path:       path,
			Name:       fmt.Sprintf("I2C device at %s address 0x%02X", bus, DefaultPN532Address),
			Confidence: detection.Medium,
			Metadata: map[string]string{
				"bus":     bus,
				"address": fmt.Sprintf("0x%02X", DefaultPN532Address),
			},
		}
		if opts.Mode == detection.Safe {
			if fw, err := probeFirmware(ctx, bus); err == nil {
				device.Confidence = detection.High
				device.Metadata["firmware"] = fw.Version
			}
		}
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func probeFirmware(ctx context.Context, bus string) (*pn532.FirmwareVersion, error) {
	transport, err := i2ctransport.New(bus)
	if err != nil {
		return nil, err
	}
	device, err := pn532.New(transport, pn532.WithMaxRetries(1))
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	defer func() { _ = device.Close() }()

	return device.GetFirmwareVersion(ctx)
}
