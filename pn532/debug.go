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
	"fmt"
	"log/slog"
	"sync/atomic"
)

var (
	debugEnabled atomic.Bool
	debugLogger  atomic.Pointer[slog.Logger]
)

// SetDebugEnabled turns protocol tracing on or off
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetDebugLogger sets the logger that receives protocol traces.
// Traces are emitted at debug level; nil restores slog.Default().
func SetDebugLogger(logger *slog.Logger) {
	debugLogger.Store(logger)
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	logger := debugLogger.Load()
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...), "component", "pn532")
}
