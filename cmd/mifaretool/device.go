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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FrostyElk/cordova-mifare/detection"
	// Register detectors
	_ "github.com/FrostyElk/cordova-mifare/detection/i2c"
	_ "github.com/FrostyElk/cordova-mifare/detection/uart"
	"github.com/FrostyElk/cordova-mifare/internal/config"
	"github.com/FrostyElk/cordova-mifare/internal/simulator"
	"github.com/FrostyElk/cordova-mifare/pn532"
	"github.com/FrostyElk/cordova-mifare/transport/i2c"
	"github.com/FrostyElk/cordova-mifare/transport/uart"
)

// openDevice returns an initialised reader.
func openDevice(ctx context.Context, cfg config.Config, opts options, logger *slog.Logger) (*pn532.Device, error) {
	transport, err := openTransport(ctx, cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	device, err := pn532.New(transport, pn532.WithRetryConfig(cfg.RetryConfig()))
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	initCtx, cancel := deadlineFrom(ctx, cfg.Timeout)
	defer cancel()
	if err := device.Init(initCtx); err != nil {
		_ = device.Close()
		return nil, fmt.Errorf("initialise reader: %w", err)
	}

	if fw, err := device.GetFirmwareVersion(initCtx); err == nil {
		logger.Info("reader ready", "transport", transport.Type(), "firmware", fw.Version)
	}
	return device, nil
}

func openTransport(ctx context.Context, cfg config.Config, opts options, logger *slog.Logger) (pn532.Transport, error) {
	if opts.simulate {
		return simulated(cfg), nil
	}
	if cfg.Device != "" {
		return newTransport(cfg.Transport, cfg.Device)
	}

	detectOpts := cfg.DetectionOptions()
	devices, err := detection.DetectAll(ctx, detectOpts)
	if err != nil {
		return nil, fmt.Errorf("auto-detect: %w", err)
	}
	for _, dev := range devices {
		logger.Debug("candidate reader", "transport", dev.Transport, "path", dev.Path,
			"confidence", dev.Confidence.String())
		transport, err := newTransport(dev.Transport, dev.Path)
		if err != nil {
			logger.Warn("cannot open reader", "path", dev.Path, "error", err)
			continue
		}
		return transport, nil
	}
	return nil, detection.ErrNoDevicesFound
}

func newTransport(kind, path string) (pn532.Transport, error) {
	switch kind {
	case config.TransportUART:
		t, err := uart.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return t, nil
	case config.TransportI2C:
		t, err := i2c.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", kind)
	}
}

// simulated returns a reader with an NTAG216 in the field, protected by
// the configured password when it is four bytes long.
func simulated(cfg config.Config) pn532.Transport {
	tag := simulator.NewNTAG216(nil)
	if pwd := []byte(cfg.Password); len(pwd) == pn532.NTAGPasswordLength {
		tag.SetPassword([4]byte(pwd), [2]byte{0x80, 0x80}, pn532.NTAGUserStartPage)
	}
	sim := simulator.NewTransport()
	sim.Present(tag)
	return sim
}
