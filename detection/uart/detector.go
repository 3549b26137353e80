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

// Package uart detects PN532 readers behind USB serial bridges.
package uart

import (
	"context"
	"fmt"
	"strings"

	"github.com/FrostyElk/cordova-mifare/detection"
	"github.com/FrostyElk/cordova-mifare/pn532"
	uarttransport "github.com/FrostyElk/cordova-mifare/transport/uart"
	"go.bug.st/serial/enumerator"
)

// knownBridges lists USB serial chips commonly fitted to PN532 boards.
var knownBridges = map[string]string{
	"1A86:7523": "CH340",
	"1A86:55D4": "CH9102",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"0403:6015": "FT231X",
	"067B:2303": "PL2303",
}

// listPorts and probe are swapped out by tests.
var (
	listPorts = enumerator.GetDetailedPortsList
	probe     = probeFirmware
)

type detector struct{}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports and ranks them by how likely they host a PN532
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if device, ok := classify(ctx, port, opts); ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func classify(ctx context.Context, port *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	if !port.IsUSB || detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	vidpid := strings.ToUpper(port.VID + ":" + port.PID)
	if detection.IsBlocked(vidpid, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       port.Name,
		Name:       port.Product,
		Confidence: detection.Low,
		Metadata: map[string]string{
			"vidpid": vidpid,
			"serial": port.SerialNumber,
		},
	}
	if chip, ok := knownBridges[vidpid]; ok {
		device.Confidence = detection.Medium
		device.Metadata["bridge"] = chip
		if device.Name == "" {
			device.Name = chip + " serial adapter"
		}
	}

	if !detection.CanAccess(port.Name) {
		device.Metadata["access"] = "denied"
		return device, true
	}

	if opts.Mode == detection.Safe {
		if fw, err := probe(ctx, port.Name); err == nil {
			device.Confidence = detection.High
			device.Metadata["firmware"] = fw.Version
		}
	}
	return device, true
}

// probeFirmware opens the port and asks for the firmware version.
func probeFirmware(ctx context.Context, path string) (*pn532.FirmwareVersion, error) {
	transport, err := uarttransport.New(path)
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
