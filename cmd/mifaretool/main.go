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

// Command mifaretool drives a PN532 reader through the MifarePlugin bridge.
// Without --write or --text it prints the first tag it sees.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hsanjuan/go-ndef"
	"github.com/spf13/pflag"

	mifare "github.com/FrostyElk/cordova-mifare"
	"github.com/FrostyElk/cordova-mifare/bridge"
	"github.com/FrostyElk/cordova-mifare/internal/config"
	"github.com/FrostyElk/cordova-mifare/native"
	"github.com/FrostyElk/cordova-mifare/pn532"
)

var (
	errPasswordRequired = errors.New("a password is required (--password or config)")
	errConflictingWrite = errors.New("--write and --text are mutually exclusive")
)

type options struct {
	configPath string
	writeHex   string
	text       string
	lang       string
	simulate   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "mifaretool: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// The scanner goroutine logs to stderr while run prints prompts to it.
	stderr = &lockedWriter{w: stderr}

	cfg, opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	if level <= slog.LevelDebug {
		pn532.SetDebugLogger(logger)
		pn532.SetDebugEnabled(true)
	}

	payload, err := opts.payload()
	if err != nil {
		return err
	}
	if cfg.Password == "" {
		return errPasswordRequired
	}

	device, err := openDevice(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}

	host := bridge.NewHost(bridge.WithLogger(logger))
	defer func() { _ = host.Close() }()

	plugin := native.New(native.NewPN532Reader(device),
		native.WithLogger(logger),
		native.WithEvents(host),
		native.WithPollInterval(cfg.PollInterval),
		native.WithReadPages(cfg.ReadPages),
	)
	if err := host.Register(mifare.ServiceName, plugin); err != nil {
		_ = plugin.Close()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	// Subscribe first: the scanner polls as soon as init succeeds.
	events, unsubscribe := firstTag(host)
	defer unsubscribe()

	adapter := mifare.New(host)
	if _, err := await(ctx, func(ok, fail bridge.Callback) {
		adapter.Init(mifare.InitOptions{Password: cfg.Password}, ok, fail)
	}); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	if payload != nil {
		_, _ = fmt.Fprintln(stderr, "Hold a tag to the reader to write...")
		if _, err := await(ctx, func(ok, fail bridge.Callback) {
			adapter.WriteTag(mifare.WritePayload{Payload: payload}, ok, fail)
		}); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "wrote %d bytes\n", len(payload))
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Waiting for a tag...")
	select {
	case data := <-events:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case <-ctx.Done():
		return fmt.Errorf("no tag: %w", ctx.Err())
	}
}

func parseArgs(args []string, stderr io.Writer) (config.Config, options, error) {
	var opts options
	fs := pflag.NewFlagSet("mifaretool", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	defaults := config.Default()
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	device := fs.String("device", "", "serial port or I2C bus; empty auto-detects")
	transport := fs.String("transport", defaults.Transport, "transport for --device: uart or i2c")
	password := fs.String("password", "", "4-byte NTAG password")
	timeout := fs.Duration("timeout", defaults.Timeout, "give up after this long")
	logLevel := fs.String("log-level", defaults.LogLevel, "debug, info, warn or error")
	fs.StringVar(&opts.writeHex, "write", "", "hex bytes to write to the tag")
	fs.StringVar(&opts.text, "text", "", "write an NDEF text record")
	fs.StringVar(&opts.lang, "lang", "en", "language code for --text")
	fs.BoolVar(&opts.simulate, "simulate", false, "use a simulated reader with an NTAG216 in the field")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, opts, err
	}

	cfg := defaults
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, opts, err
		}
		cfg = loaded
	}

	if fs.Changed("device") {
		cfg.Device = *device
	}
	if fs.Changed("transport") {
		cfg.Transport = *transport
	}
	if fs.Changed("password") {
		cfg.Password = *password
	}
	if fs.Changed("timeout") {
		cfg.Timeout = *timeout
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, opts, err
	}
	return cfg, opts, nil
}

// payload returns the bytes to write, or nil in read mode.
func (o options) payload() ([]byte, error) {
	switch {
	case o.writeHex != "" && o.text != "":
		return nil, errConflictingWrite
	case o.writeHex != "":
		data, err := hex.DecodeString(o.writeHex)
		if err != nil {
			return nil, fmt.Errorf("--write: %w", err)
		}
		return data, nil
	case o.text != "":
		return pn532.EncodeNDEF(ndef.NewTextMessage(o.text, o.lang))
	default:
		return nil, nil
	}
}

// await issues one call and blocks until its continuation fires or ctx ends.
func await(ctx context.Context, call func(ok, fail bridge.Callback)) (any, error) {
	type outcome struct {
		value any
		ok    bool
	}
	done := make(chan outcome, 1)
	call(
		func(v any) { done <- outcome{value: v, ok: true} },
		func(v any) { done <- outcome{value: v} },
	)

	select {
	case o := <-done:
		if !o.ok {
			return nil, fmt.Errorf("%v", o.value)
		}
		return o.value, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no tag: %w", ctx.Err())
	}
}

// firstTag delivers the first tag detected event.
func firstTag(host *bridge.Host) (<-chan any, func()) {
	events := make(chan any, 1)
	cancel := host.Subscribe(native.EventTagDetected, func(data any) {
		select {
		case events <- data:
		default:
		}
	})
	return events, cancel
}

// deadlineFrom bounds device setup so a missing reader cannot hang startup.
func deadlineFrom(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// lockedWriter serialises writes from several goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
