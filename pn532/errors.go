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
	"errors"
	"fmt"
)

// Transport-level errors. These describe the link to the reader, not the tag.
var (
	ErrTransportTimeout    = errors.New("transport timeout")
	ErrTransportRead       = errors.New("transport read failed")
	ErrTransportWrite      = errors.New("transport write failed")
	ErrCommunicationFailed = errors.New("communication failed")
	ErrNoACK               = errors.New("no ACK received")
	ErrFrameCorrupted      = errors.New("frame corrupted")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrTransportNotReady   = errors.New("transport not ready")
	ErrDeviceNotFound      = errors.New("device not found")
)

// Device and tag errors.
var (
	ErrNoTagDetected     = errors.New("no tag detected")
	ErrTagNotFound       = errors.New("tag not found")
	ErrTagNotResponding  = errors.New("tag not responding")
	ErrAuthFailed        = errors.New("tag authentication failed")
	ErrDataTooLarge      = errors.New("data too large")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrInvalidResponse   = errors.New("invalid response")
	ErrUnsupportedDevice = errors.New("unsupported device")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors are timeouts, retryable
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError carries the operation and port that failed
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError whose retryability follows its type
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError reports a transport timeout
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewNoACKError reports a missing ACK frame
func NewNoACKError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrNoACK, ErrorTypeTransient)
}

// NewFrameCorruptedError reports an unparseable frame
func NewFrameCorruptedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewChecksumMismatchError reports a frame with a bad checksum
func NewChecksumMismatchError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrChecksumMismatch, ErrorTypeTransient)
}

// NewDataTooLargeError reports a command that does not fit in a frame
func NewDataTooLargeError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrDataTooLarge, ErrorTypePermanent)
}

// NewTransportNotReadyError reports a device that did not signal ready
func NewTransportNotReadyError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportNotReady, ErrorTypeTransient)
}

var retryableErrors = []error{
	ErrTransportTimeout,
	ErrTransportRead,
	ErrTransportWrite,
	ErrCommunicationFailed,
	ErrNoACK,
	ErrFrameCorrupted,
	ErrChecksumMismatch,
	ErrTransportNotReady,
}

// IsRetryable reports whether err is worth retrying at the transport level
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	for _, target := range retryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	if errors.Is(err, ErrTransportTimeout) {
		return ErrorTypeTimeout
	}
	if IsRetryable(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}

// PN532 status codes returned in the second byte of InDataExchange and
// InCommunicateThru responses.
const (
	statusOK          = 0x00
	statusTimeout     = 0x01
	statusCRC         = 0x02
	statusParity      = 0x03
	statusMifareAuth  = 0x14
	statusInvalidTg   = 0x27
	statusErrorMask   = 0x3F
	statusNoTargetSel = 0x2B
)

// PN532Error is a non-zero status reported by the reader for a tag command
type PN532Error struct {
	Cmd    byte
	Status byte
}

func (e *PN532Error) Error() string {
	return fmt.Sprintf("command %02X failed with status %02X", e.Cmd, e.Status)
}

// Unwrap maps reader status codes onto the package sentinels
func (e *PN532Error) Unwrap() error {
	switch e.Status {
	case statusTimeout, statusCRC, statusParity, statusInvalidTg, statusNoTargetSel:
		return ErrTagNotResponding
	case statusMifareAuth:
		return ErrAuthFailed
	default:
		return nil
	}
}
