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

package simulator

import (
	"context"
	"testing"

	"github.com/FrostyElk/cordova-mifare/pn532"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) (*pn532.Device, *Transport) {
	t.Helper()
	sim := NewTransport()
	device, err := pn532.New(sim)
	require.NoError(t, err)
	require.NoError(t, device.Init(context.Background()))
	return device, sim
}

func selectTag(t *testing.T, device *pn532.Device) *pn532.NTAGTag {
	t.Helper()
	detected, err := device.DetectTag(context.Background())
	require.NoError(t, err)
	return pn532.NewNTAGTag(device, detected.UIDBytes, detected.SAK)
}

func TestEmptyField(t *testing.T) {
	t.Parallel()

	device, _ := newDevice(t)
	_, err := device.DetectTag(context.Background())
	require.ErrorIs(t, err, pn532.ErrNoTagDetected)
}

func TestDetectAndVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model     Model
		name      string
		userPages int
		total     int
	}{
		{model: NTAG213, name: "NTAG213", userPages: 36, total: 45},
		{model: NTAG215, name: "NTAG215", userPages: 126, total: 135},
		{model: NTAG216, name: "NTAG216", userPages: 222, total: 231},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, sim := newDevice(t)
			vtag := NewTag(tt.model, nil)
			sim.Present(vtag)
			assert.Equal(t, tt.total, vtag.TotalPages())

			tag := selectTag(t, device)
			assert.Equal(t, "04abcdef123456", tag.UID())

			version, err := tag.GetVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.name, version.Model())
			assert.Equal(t, tt.userPages, version.UserPages())
		})
	}
}

func TestPasswordProtectedWrite(t *testing.T) {
	t.Parallel()

	device, sim := newDevice(t)
	vtag := NewNTAG216(nil)
	vtag.SetPassword([4]byte{'1', '2', '3', '4'}, [2]byte{0xAA, 0x55}, 4)
	sim.Present(vtag)
	ctx := context.Background()

	tag := selectTag(t, device)
	err := tag.WritePages(ctx, 4, []byte{1, 2, 3})
	require.Error(t, err, "write before PWD_AUTH must be refused")

	_, err = tag.PwdAuth(ctx, []byte("0000"))
	require.ErrorIs(t, err, pn532.ErrAuthFailed)

	pack, err := tag.PwdAuth(ctx, []byte("1234"))
	require.NoError(t, err)
	assert.Equal(t, [2]byte{0xAA, 0x55}, pack)

	require.NoError(t, tag.WritePages(ctx, 4, []byte{1, 2, 3, 4, 5}))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, vtag.User()[:8])

	data, err := tag.FastRead(ctx, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, data)

	page, err := tag.ReadPage(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, page)

	// a new selection drops authentication
	tag = selectTag(t, device)
	require.Error(t, tag.WritePage(ctx, 4, []byte{9, 9, 9, 9}))
}

func TestFastReadWholeNTAG216(t *testing.T) {
	t.Parallel()

	device, sim := newDevice(t)
	vtag := NewNTAG216(nil)
	require.NoError(t, vtag.LoadUser([]byte{0x03, 0x01, 0xD0, 0xFE}))
	sim.Present(vtag)

	tag := selectTag(t, device)
	data, err := tag.FastRead(context.Background(), 0, 220)
	require.NoError(t, err)
	require.Len(t, data, 221*4)
	assert.Equal(t, []byte{0x04, 0xAB, 0xCD}, data[:3])
	assert.Equal(t, []byte{0xE1, 0x10, 0x6D, 0x00}, data[12:16])
	assert.Equal(t, []byte{0x03, 0x01, 0xD0, 0xFE}, data[16:20])

	_, err = tag.FastRead(context.Background(), 0, 240)
	require.Error(t, err)
}

func TestTagLeavesMidWrite(t *testing.T) {
	t.Parallel()

	device, sim := newDevice(t)
	sim.Present(NewNTAG216(nil))
	tag := selectTag(t, device)

	sim.RemoveAfter(2)
	err := tag.WritePages(context.Background(), 4, make([]byte, 16))
	require.ErrorIs(t, err, pn532.ErrTagNotResponding)

	_, err = device.DetectTag(context.Background())
	require.ErrorIs(t, err, pn532.ErrNoTagDetected)
}

func TestLoadUserTooLarge(t *testing.T) {
	t.Parallel()

	vtag := NewTag(NTAG213, []byte{0x04, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	require.Error(t, vtag.LoadUser(make([]byte, 36*4+1)))
	assert.Equal(t, "NTAG213", vtag.Model())
	assert.Equal(t, "04010203040506", vtag.UIDString())
}

func TestClosedTransport(t *testing.T) {
	t.Parallel()

	sim := NewTransport()
	assert.Equal(t, pn532.TransportMock, sim.Type())
	require.NoError(t, sim.Close())
	assert.False(t, sim.IsConnected())

	_, err := sim.SendCommand(0x02, nil)
	require.ErrorIs(t, err, pn532.ErrDeviceNotFound)
}
