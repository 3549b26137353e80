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

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// RetryConfig configures retry behavior for transport operations
	RetryConfig *RetryConfig
	// Timeout is the default timeout for operations
	Timeout time.Duration
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig: DefaultRetryConfig(),
		Timeout:     1 * time.Second,
	}
}

// FirmwareVersion is the answer to GetFirmwareVersion
type FirmwareVersion struct {
	Version string
	IC      byte
	Ver     byte
	Rev     byte
	Support byte
}

// TagType identifies the tag family from its SAK
type TagType string

const (
	TagTypeNTAG    TagType = "NTAG"
	TagTypeMIFARE  TagType = "MIFARE"
	TagTypeUnknown TagType = "UNKNOWN"
)

// DetectedTag describes a target found by InListPassiveTarget
type DetectedTag struct {
	DetectedAt   time.Time
	UID          string
	Type         TagType
	UIDBytes     []byte
	ATQ          []byte
	SAK          byte
	TargetNumber byte
}

// Device represents a PN532 NFC reader device.
//
// Commands are serialised internally, so a Device may be shared between a
// polling goroutine and callers that release or close it.
type Device struct {
	transport Transport
	config    *DeviceConfig
	firmware  *FirmwareVersion
	mu        sync.Mutex
}

// New creates a new PN532 device with the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// SetTimeout sets the default timeout for operations
func (d *Device) SetTimeout(timeout time.Duration) error {
	d.config.Timeout = timeout
	if err := d.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on transport: %w", err)
	}
	return nil
}

// SetRetryConfig wraps the transport with retries, or updates the existing wrapper
func (d *Device) SetRetryConfig(config *RetryConfig) {
	d.config.RetryConfig = config
	if tr, ok := d.transport.(*TransportWithRetry); ok {
		tr.SetRetryConfig(config)
		return
	}
	d.transport = NewTransportWithRetry(d.transport, config)
}

func (d *Device) retryConfig() *RetryConfig {
	if d.config.RetryConfig == nil {
		return DefaultRetryConfig()
	}
	return d.config.RetryConfig
}

// Init checks the firmware and puts the SAM into normal mode
func (d *Device) Init(ctx context.Context) error {
	fw, err := d.GetFirmwareVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get firmware version: %w", err)
	}
	debugf("PN532 firmware %s (support %02X)", fw.Version, fw.Support)

	if err := d.SAMConfiguration(ctx); err != nil {
		return fmt.Errorf("failed to configure SAM: %w", err)
	}
	return nil
}

// GetFirmwareVersion returns the PN532 firmware version
func (d *Device) GetFirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	resp, err := d.send(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return nil, err
	}
	if len(resp) < 5 {
		return nil, fmt.Errorf("%w: firmware response too short: %d bytes", ErrInvalidResponse, len(resp))
	}
	if resp[1] != firmwareIC {
		return nil, fmt.Errorf("%w: IC %02X", ErrUnsupportedDevice, resp[1])
	}

	fw := &FirmwareVersion{
		IC:      resp[1],
		Ver:     resp[2],
		Rev:     resp[3],
		Support: resp[4],
		Version: fmt.Sprintf("%d.%d", resp[2], resp[3]),
	}
	d.firmware = fw
	return fw, nil
}

// SAMConfiguration puts the secure access module into normal mode
func (d *Device) SAMConfiguration(ctx context.Context) error {
	_, err := d.send(ctx, cmdSamConfiguration, []byte{samModeNormal, samTimeoutNone, samUseIRQ})
	return err
}

// DetectTag lists one 106 kbps type A target. It returns ErrNoTagDetected
// when the field is empty.
func (d *Device) DetectTag(ctx context.Context) (*DetectedTag, error) {
	resp, err := d.send(ctx, cmdInListPassiveTarget, []byte{maxTargetsToAsk, brTy106kbpsA})
	if err != nil {
		return nil, err
	}
	if len(resp) < 2 || resp[1] == 0 {
		return nil, ErrNoTagDetected
	}

	// [0x4B, NbTg, Tg, ATQA(2), SAK, UIDLen, UID...]
	if len(resp) < 7 {
		return nil, fmt.Errorf("%w: target data too short: %d bytes", ErrInvalidResponse, len(resp))
	}
	uidLen := int(resp[6])
	if len(resp) < 7+uidLen {
		return nil, fmt.Errorf("%w: UID truncated", ErrInvalidResponse)
	}

	uid := make([]byte, uidLen)
	copy(uid, resp[7:7+uidLen])

	tag := &DetectedTag{
		TargetNumber: resp[2],
		ATQ:          []byte{resp[3], resp[4]},
		SAK:          resp[5],
		UIDBytes:     uid,
		UID:          hex.EncodeToString(uid),
		Type:         identifyTagType(resp[5]),
		DetectedAt:   time.Now(),
	}
	debugf("detected %s tag %s (SAK %02X)", tag.Type, tag.UID, tag.SAK)
	return tag, nil
}

func identifyTagType(sak byte) TagType {
	switch sak {
	case 0x00:
		return TagTypeNTAG
	case 0x08, 0x09, 0x18:
		return TagTypeMIFARE
	default:
		return TagTypeUnknown
	}
}

// DataExchange sends data to the selected target with InDataExchange
func (d *Device) DataExchange(ctx context.Context, data []byte) ([]byte, error) {
	args := make([]byte, 0, len(data)+1)
	args = append(args, defaultTarget)
	args = append(args, data...)
	return d.exchange(ctx, cmdInDataExchange, args)
}

// CommunicateThru sends raw data to the target with InCommunicateThru.
// NTAG commands that InDataExchange does not pass through (GET_VERSION,
// FAST_READ, PWD_AUTH) use this path.
func (d *Device) CommunicateThru(ctx context.Context, data []byte) ([]byte, error) {
	return d.exchange(ctx, cmdInCommunicateThru, data)
}

func (d *Device) exchange(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	resp, err := d.send(ctx, cmd, args)
	if err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, fmt.Errorf("%w: exchange response too short", ErrInvalidResponse)
	}
	if status := resp[1] & statusErrorMask; status != statusOK {
		return nil, &PN532Error{Cmd: cmd, Status: status}
	}
	return resp[2:], nil
}

// Release deselects all targets
func (d *Device) Release(ctx context.Context) error {
	_, err := d.send(ctx, cmdInRelease, []byte{0x00})
	return err
}

// Close closes the device connection
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transport != nil {
		if err := d.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

func (d *Device) send(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		resp []byte
		err  error
	)
	if tc, ok := d.transport.(TransportContext); ok {
		resp, err = tc.SendCommandContext(ctx, cmd, args)
	} else {
		resp, err = d.transport.SendCommand(cmd, args)
	}
	if err != nil {
		return nil, fmt.Errorf("command %02X: %w", cmd, err)
	}

	if len(resp) == 0 || resp[0] != cmd+1 {
		return nil, fmt.Errorf("%w: unexpected response to command %02X: % X", ErrInvalidResponse, cmd, resp)
	}
	return resp, nil
}
