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

// Package detection finds PN532 readers attached over UART or I2C.
//
// Transport specific detectors live in sub-packages and register
// themselves on import:
//
//	import (
//		"github.com/FrostyElk/cordova-mifare/detection"
//		_ "github.com/FrostyElk/cordova-mifare/detection/uart"
//	)
//
//	devices, err := detection.DetectAll(ctx, detection.DefaultOptions())
package detection

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNoDevicesFound is returned when no reader could be located
	ErrNoDevicesFound = errors.New("no PN532 devices found")
	// ErrDetectionTimeout is returned when the context ends mid-scan
	ErrDetectionTimeout = errors.New("device detection timed out")
	// ErrUnsupportedPlatform is returned by detectors with no support for
	// the running OS
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
)

// Mode controls how intrusive detection may be.
type Mode int

const (
	// Passive only inspects port metadata and never talks to a device
	Passive Mode = iota
	// Safe additionally sends GetFirmwareVersion to candidate devices
	Safe
)

// Confidence ranks how likely a DeviceInfo is a PN532.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// DeviceInfo describes a candidate reader.
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

// Options configures detection.
type Options struct {
	// Blocklist holds VID:PID pairs that must never be probed
	Blocklist []string
	// IgnorePaths holds device paths to skip entirely
	IgnorePaths []string
	Timeout     time.Duration
	Mode        Mode
}

// DefaultOptions returns passive detection with the default blocklist.
func DefaultOptions() Options {
	return Options{
		Mode:      Passive,
		Timeout:   5 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds devices for one transport.
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registry   = make(map[string]Detector)
	registryMu sync.RWMutex
)

// RegisterDetector makes d available to DetectAll. A later registration
// for the same transport replaces the earlier one.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// Transports lists the registered transports in name order.
func Transports() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DetectAll runs every registered detector and returns the devices found,
// best candidates first.
func DetectAll(ctx context.Context, opts Options) ([]DeviceInfo, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, name := range Transports() {
		registryMu.RLock()
		d := registry[name]
		registryMu.RUnlock()

		found, err := d.Detect(ctx, &opts)
		devices = append(devices, found...)
		if err != nil && !errors.Is(err, ErrNoDevicesFound) && !errors.Is(err, ErrUnsupportedPlatform) {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			return sortByConfidence(devices), ErrDetectionTimeout
		}
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, ErrNoDevicesFound
	}
	return sortByConfidence(devices), nil
}

func sortByConfidence(devices []DeviceInfo) []DeviceInfo {
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices
}
