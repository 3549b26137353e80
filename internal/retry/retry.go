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

// Package retry holds the polling and retry loops shared by the transports.
package retry

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrExhausted is returned when an operation still asked for a retry
	// after MaxRetries attempts.
	ErrExhausted = errors.New("retries exhausted")
	// ErrDeadline is returned by Until when the deadline passes first.
	ErrDeadline = errors.New("deadline exceeded while waiting")
)

// Operation returns a result, whether it should be retried, and any
// permanent error that stops the loop.
type Operation[T any] func() (T, bool, error)

// Config configures Do.
type Config struct {
	// OnRetry runs before every retry, e.g. to send a NACK.
	OnRetry    func() error
	MaxRetries int
	Delay      time.Duration
}

// Do runs op until it succeeds, fails permanently, or has been retried
// cfg.MaxRetries times.
func Do[T any](ctx context.Context, cfg Config, op Operation[T]) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, again, err := op()
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		if attempt >= cfg.MaxRetries {
			return zero, ErrExhausted
		}
		if cfg.OnRetry != nil {
			if err := cfg.OnRetry(); err != nil {
				return zero, err
			}
		}
		if err := sleep(ctx, cfg.Delay); err != nil {
			return zero, err
		}
	}
}

// Until runs op every interval until it stops asking for a retry or the
// timeout expires.
func Until[T any](ctx context.Context, timeout, interval time.Duration, op Operation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		result, again, err := op()
		if err != nil {
			return zero, err
		}
		if !again {
			return result, nil
		}
		if err := sleep(ctx, interval); err != nil {
			return zero, err
		}
	}

	return zero, ErrDeadline
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
