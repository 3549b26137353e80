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

package native

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mifare "github.com/FrostyElk/cordova-mifare"
	"github.com/FrostyElk/cordova-mifare/pn532"
	"github.com/hsanjuan/go-ndef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFailure(t *testing.T) {
	t.Parallel()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		ctx  context.Context
		err  error
		name string
		want string
	}{
		{name: "auth", ctx: context.Background(), err: fmt.Errorf("wrapped: %w", pn532.ErrAuthFailed), want: MsgAuthFailed},
		{name: "too large", ctx: context.Background(), err: pn532.ErrDataTooLarge, want: MsgPayloadTooBig},
		{name: "tag gone", ctx: context.Background(), err: pn532.ErrTagNotResponding, want: MsgTagLost},
		{name: "transport", ctx: context.Background(), err: errors.New("i/o"), want: MsgTagLost},
		{name: "stopped", ctx: cancelled, err: pn532.ErrAuthFailed, want: MsgPluginClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, writeFailure(tt.ctx, tt.err))
		})
	}
}

func TestNewTagEvent(t *testing.T) {
	t.Parallel()

	t.Run("blank tag", func(t *testing.T) {
		t.Parallel()
		data := make([]byte, 64)
		event, err := newTagEvent("04aa", data)
		require.NoError(t, err)
		assert.Equal(t, "04aa", event.UID)
		assert.Len(t, event.Payload, 64)
		assert.Empty(t, event.Records)
	})

	t.Run("header only", func(t *testing.T) {
		t.Parallel()
		event, err := newTagEvent("04aa", make([]byte, 8))
		require.NoError(t, err)
		assert.Empty(t, event.Records)
	})

	t.Run("uri record", func(t *testing.T) {
		t.Parallel()
		tlv, err := pn532.EncodeNDEF(ndef.NewURIMessage("https://example.com"))
		require.NoError(t, err)
		data := make([]byte, 16, 128)
		data = append(data, tlv...)

		event, err := newTagEvent("04aa", data)
		require.NoError(t, err)
		require.Len(t, event.Records, 1)
		assert.Equal(t, "U", event.Records[0].Type)
		assert.Equal(t, byte(0x01), event.Records[0].TNF)
		assert.Contains(t, event.Records[0].Payload, "example.com")
	})

	t.Run("corrupt TLV", func(t *testing.T) {
		t.Parallel()
		data := make([]byte, 16, 32)
		data = append(data, 0x03, 0x40, 0xD1)
		event, err := newTagEvent("04aa", data)
		require.Error(t, err)
		assert.Equal(t, "04aa", event.UID)
	})
}

// stubReader reports a fixed detection result.
type stubReader struct {
	err      error
	released bool
}

func (s *stubReader) Detect(context.Context) (Tag, error) { return nil, s.err }
func (s *stubReader) Release() error                     { s.released = true; return nil }

func TestPlugin_NoInitNoScanning(t *testing.T) {
	t.Parallel()

	reader := &stubReader{err: pn532.ErrNoTagDetected}
	p := New(reader, WithReadPages(16), WithPollInterval(0))
	assert.Equal(t, 16, p.readPages)
	assert.Equal(t, DefaultPollInterval, p.pollInterval)

	p.Resume(context.Background())
	assert.Nil(t, p.scanner)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, reader.released)
}

// countingReader tracks how many Detect calls overlap.
type countingReader struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (c *countingReader) Detect(ctx context.Context) (Tag, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Millisecond):
	}
	return nil, pn532.ErrNoTagDetected
}

func (*countingReader) Release() error { return nil }

func TestPlugin_PauseResumeRunsOneScanner(t *testing.T) {
	t.Parallel()

	reader := &countingReader{}
	p := New(reader, WithPollInterval(time.Millisecond))
	p.mu.Lock()
	p.initialised = true
	p.mu.Unlock()
	p.Resume(context.Background())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.Pause()
		}()
		go func() {
			defer wg.Done()
			p.Resume(context.Background())
		}()
	}
	wg.Wait()

	require.NoError(t, p.Close())
	assert.LessOrEqual(t, reader.maxSeen.Load(), int32(1))
	assert.Zero(t, reader.active.Load())
}

// fixedTag returns canned user memory.
type fixedTag struct {
	data  []byte
	reads int
}

func (*fixedTag) UID() string { return "04a1b2c3d4e5f6" }

func (*fixedTag) Authenticate(context.Context, []byte) error { return nil }

func (t *fixedTag) UserBytes(context.Context) (int, error) { return len(t.data), nil }

func (*fixedTag) WritePages(context.Context, int, []byte) error { return nil }

func (t *fixedTag) ReadPages(context.Context, int, int) ([]byte, error) {
	t.reads++
	return t.data, nil
}

type recordingEmitter struct {
	events []any
}

func (r *recordingEmitter) FireDocumentEvent(_ string, data any) {
	r.events = append(r.events, data)
}

func TestScanner_Read(t *testing.T) {
	t.Parallel()

	data := make([]byte, 64)
	copy(data[16:], pn532.BuildNDEFTLV(nil))

	t.Run("without listener", func(t *testing.T) {
		t.Parallel()
		tag := &fixedTag{data: data}
		s := &scanner{plugin: New(&stubReader{})}
		s.read(context.Background(), tag)
		assert.Equal(t, 1, tag.reads)
	})

	t.Run("with listener", func(t *testing.T) {
		t.Parallel()
		tag := &fixedTag{data: data}
		emitter := &recordingEmitter{}
		s := &scanner{plugin: New(&stubReader{}, WithEvents(emitter))}
		s.read(context.Background(), tag)
		require.Len(t, emitter.events, 1)
		event, ok := emitter.events[0].(TagEvent)
		require.True(t, ok)
		assert.Equal(t, "04a1b2c3d4e5f6", event.UID)
		assert.Equal(t, mifare.Bytes(data), event.Payload)
	})
}
