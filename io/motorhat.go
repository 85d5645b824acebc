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

// Adafruit Motor Shield V2.3 driver.
// The shield is a PCA9685 16-channel PWM controller with each DC motor
// wired to a TB6612 bridge through three PCA9685 channels: a PWM
// (speed) channel and two full-on/off direction inputs.

package io

import (
	"fmt"
	"time"

	"github.com/aamcrae/winch/drive"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	hatMode1    = 0x00
	hatPrescale = 0xFE
	hatLed0     = 0x06

	hatSleep   = 0x10
	hatAutoInc = 0x20
	hatRestart = 0x80

	// Full on/off bit in the channel ON/OFF registers.
	hatFull = 0x1000

	hatOscillator = 25000000
	hatPwmFreq    = 1600

	// DefaultHatAddress is the stock shield I2C address.
	DefaultHatAddress = 0x60
)

// PCA9685 channels for each shield motor: PWM, IN2, IN1.
var hatMotors = map[int][3]int{
	1: {8, 9, 10},
	2: {13, 12, 11},
	3: {2, 3, 4},
	4: {7, 6, 5},
}

// MotorHat drives the DC motor outputs of the shield.
type MotorHat struct {
	dev    i2c.Dev
	motors map[int]int // channel id to shield motor number
}

// OpenMotorHat initialises the host I2C bus and opens the shield.
// bus is the I2C bus name or number (e.g. "1" on a Raspberry Pi).
func OpenMotorHat(bus string, addr uint16) (*MotorHat, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, err
	}
	return NewMotorHat(b, addr)
}

// NewMotorHat creates a MotorHat on an open bus and resets the
// PCA9685: oscillator asleep, prescale for the shield's 1.6 kHz PWM,
// then awake with register auto-increment for the 4-byte channel
// writes.
func NewMotorHat(bus i2c.Bus, addr uint16) (*MotorHat, error) {
	h := new(MotorHat)
	h.dev = i2c.Dev{Bus: bus, Addr: addr}
	h.motors = make(map[int]int)
	prescale := byte(hatOscillator/(4096*hatPwmFreq) - 1)
	if err := h.write(hatMode1, hatSleep); err != nil {
		return nil, err
	}
	if err := h.write(hatPrescale, prescale); err != nil {
		return nil, err
	}
	if err := h.write(hatMode1, hatAutoInc); err != nil {
		return nil, err
	}
	// Oscillator startup.
	time.Sleep(time.Millisecond)
	if err := h.write(hatMode1, hatRestart|hatAutoInc); err != nil {
		return nil, err
	}
	return h, nil
}

// Attach binds a channel id to a shield motor output (1-4).
func (h *MotorHat) Attach(id, motor int) error {
	if _, ok := hatMotors[motor]; !ok {
		return fmt.Errorf("hat: motor must be 1-4, got %d", motor)
	}
	h.motors[id] = motor
	return nil
}

// SetSpeed sets the PWM duty for the channel's motor.
func (h *MotorHat) SetSpeed(id int, magnitude float64) error {
	pins, err := h.pins(id)
	if err != nil {
		return err
	}
	if magnitude < 0 {
		magnitude = 0
	}
	if magnitude > 1 {
		magnitude = 1
	}
	duty := uint16(magnitude * 4095)
	if duty >= 4095 {
		return h.setPin(pins[0], 1)
	}
	return h.setChannel(pins[0], 0, duty)
}

// Run sets the bridge direction inputs for the channel's motor.
func (h *MotorHat) Run(id int, dir drive.Direction) error {
	pins, err := h.pins(id)
	if err != nil {
		return err
	}
	in1, in2 := 1, 0
	if dir == drive.Backward {
		in1, in2 = 0, 1
	}
	if err := h.setPin(pins[2], in1); err != nil {
		return err
	}
	return h.setPin(pins[1], in2)
}

// Stop releases the motor (PWM off, coasting). Not used by the control
// loop; for manual checks.
func (h *MotorHat) Stop(id int) error {
	pins, err := h.pins(id)
	if err != nil {
		return err
	}
	return h.setPin(pins[0], 0)
}

func (h *MotorHat) pins(id int) ([3]int, error) {
	m, ok := h.motors[id]
	if !ok {
		return [3]int{}, fmt.Errorf("hat: no motor for channel %d", id)
	}
	return hatMotors[m], nil
}

// setChannel writes the 4 ON/OFF registers of one PCA9685 channel.
func (h *MotorHat) setChannel(ch int, on, off uint16) error {
	reg := byte(hatLed0 + 4*ch)
	return h.dev.Tx([]byte{reg, byte(on), byte(on >> 8), byte(off), byte(off >> 8)}, nil)
}

// setPin sets a channel to steady high or low using the full on/off bits.
func (h *MotorHat) setPin(ch, v int) error {
	if v == 0 {
		return h.setChannel(ch, 0, hatFull)
	}
	return h.setChannel(ch, hatFull, 0)
}

func (h *MotorHat) write(reg, val byte) error {
	return h.dev.Tx([]byte{reg, val}, nil)
}
