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

// GPIO H-bridge motor driver.

package io

import (
	"fmt"
	"time"

	"github.com/aamcrae/winch/drive"
)

// Default PWM period for the enable line. Software PWM cannot hold a
// much shorter period reliably.
const bridgePeriod = 5 * time.Millisecond

type bridgeMotor struct {
	in1, in2 Setter
	pwm      PWM
}

// HBridge drives DC motors through a pair of direction inputs and a
// PWM enable line (e.g. an L298N). It is an alternative to the I2C
// motor shield for rigs wired straight to GPIO.
type HBridge struct {
	motors map[int]*bridgeMotor
	period time.Duration
}

// NewHBridge creates an empty H-bridge driver.
func NewHBridge() *HBridge {
	h := new(HBridge)
	h.motors = make(map[int]*bridgeMotor)
	h.period = bridgePeriod
	return h
}

// Attach binds a channel id to a set of bridge lines.
func (h *HBridge) Attach(id int, in1, in2 Setter, pwm PWM) {
	h.motors[id] = &bridgeMotor{in1: in1, in2: in2, pwm: pwm}
}

// SetSpeed sets the duty on the enable line.
func (h *HBridge) SetSpeed(id int, magnitude float64) error {
	m, ok := h.motors[id]
	if !ok {
		return fmt.Errorf("bridge: no motor for channel %d", id)
	}
	if magnitude < 0 {
		magnitude = 0
	}
	if magnitude > 1 {
		magnitude = 1
	}
	return m.pwm.Set(h.period, magnitude)
}

// Run sets the direction inputs.
func (h *HBridge) Run(id int, dir drive.Direction) error {
	m, ok := h.motors[id]
	if !ok {
		return fmt.Errorf("bridge: no motor for channel %d", id)
	}
	in1, in2 := 1, 0
	if dir == drive.Backward {
		in1, in2 = 0, 1
	}
	if err := m.in1.Set(in1); err != nil {
		return err
	}
	return m.in2.Set(in2)
}

// Close stops the PWM outputs.
func (h *HBridge) Close() {
	for _, m := range h.motors {
		m.pwm.Set(h.period, 0)
		m.in1.Set(0)
		m.in2.Set(0)
	}
}
