// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package io

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/aamcrae/winch/drive"
)

type fakeBus struct {
	addr   uint16
	writes [][]byte
}

func (b *fakeBus) String() string { return "fake" }

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	b.addr = addr
	saved := make([]byte, len(w))
	copy(saved, w)
	b.writes = append(b.writes, saved)
	return nil
}

func (b *fakeBus) SetSpeed(f physic.Frequency) error { return nil }

func newHat(t *testing.T) (*MotorHat, *fakeBus) {
	t.Helper()
	bus := &fakeBus{}
	h, err := NewMotorHat(bus, DefaultHatAddress)
	require.NoError(t, err)
	bus.writes = nil
	return h, bus
}

func TestMotorHatInit(t *testing.T) {
	bus := &fakeBus{}
	_, err := NewMotorHat(bus, DefaultHatAddress)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x60), bus.addr)
	// Sleep, prescale for 1.6 kHz, wake with auto-increment, restart.
	assert.Equal(t, [][]byte{
		{0x00, 0x10},
		{0xFE, 0x02},
		{0x00, 0x20},
		{0x00, 0xA0},
	}, bus.writes)
}

func TestMotorHatAttach(t *testing.T) {
	h, _ := newHat(t)
	assert.NoError(t, h.Attach(0, 1))
	assert.Error(t, h.Attach(1, 5))
	assert.Error(t, h.SetSpeed(7, 0.5))
	assert.Error(t, h.Run(7, drive.Forward))
}

func TestMotorHatSpeed(t *testing.T) {
	h, bus := newHat(t)
	require.NoError(t, h.Attach(0, 1))

	// Half duty on motor 1's PWM channel 8 (register 0x06 + 4*8).
	require.NoError(t, h.SetSpeed(0, 0.5))
	assert.Equal(t, [][]byte{{0x26, 0x00, 0x00, 0xFF, 0x07}}, bus.writes)

	// Full duty uses the full-on bit rather than a 4095 count.
	bus.writes = nil
	require.NoError(t, h.SetSpeed(0, 1.0))
	assert.Equal(t, [][]byte{{0x26, 0x00, 0x10, 0x00, 0x00}}, bus.writes)

	// Out of range magnitudes clamp.
	bus.writes = nil
	require.NoError(t, h.SetSpeed(0, -2))
	assert.Equal(t, [][]byte{{0x26, 0x00, 0x00, 0x00, 0x00}}, bus.writes)
}

func TestMotorHatRun(t *testing.T) {
	h, bus := newHat(t)
	require.NoError(t, h.Attach(0, 1))

	// Forward: IN1 (channel 10) high, IN2 (channel 9) low.
	require.NoError(t, h.Run(0, drive.Forward))
	assert.Equal(t, [][]byte{
		{0x2E, 0x00, 0x10, 0x00, 0x00},
		{0x2A, 0x00, 0x00, 0x00, 0x10},
	}, bus.writes)

	bus.writes = nil
	require.NoError(t, h.Run(0, drive.Backward))
	assert.Equal(t, [][]byte{
		{0x2E, 0x00, 0x00, 0x00, 0x10},
		{0x2A, 0x00, 0x10, 0x00, 0x00},
	}, bus.writes)
}

func TestMotorHatStop(t *testing.T) {
	h, bus := newHat(t)
	require.NoError(t, h.Attach(0, 2))

	// Motor 2's PWM channel is 13 (register 0x06 + 4*13).
	require.NoError(t, h.Stop(0))
	assert.Equal(t, [][]byte{{0x3A, 0x00, 0x00, 0x00, 0x10}}, bus.writes)
}
