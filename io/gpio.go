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

// Package io manages the hardware for the winches: GPIO lines, motor
// drivers and the non-volatile position store.
// GPIO is accessed through the character device so that input bias can
// be set and edge events delivered as callbacks.

package io

import (
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Setter is an interface for setting an output value on a GPIO
type Setter interface {
	Set(int) error
}

// Gpio represents one requested GPIO line.
type Gpio struct {
	line *gpiocdev.Line
}

// OutputPin requests a GPIO line as an output, initially low.
func OutputPin(chip string, pin int) (*Gpio, error) {
	l, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	return &Gpio{line: l}, nil
}

// InputPin requests a GPIO line as a pulled-up input.
func InputPin(chip string, pin int) (*Gpio, error) {
	l, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, err
	}
	return &Gpio{line: l}, nil
}

// Set sets the output value of the GPIO line.
func (g *Gpio) Set(v int) error {
	return g.line.SetValue(v)
}

// Get returns the current value of the GPIO line.
func (g *Gpio) Get() (int, error) {
	return g.line.Value()
}

// Close releases the GPIO line.
func (g *Gpio) Close() {
	g.line.Close()
}

// EncoderPins owns the A/B input lines of one quadrature encoder.
// Both edges of the A line are delivered to the handler, together with
// the A level at the event instant and the B level sampled on receipt.
// The handler runs on the event goroutine and must not block.
type EncoderPins struct {
	a *gpiocdev.Line
	b *gpiocdev.Line
}

// Encoder requests the encoder input lines and registers the edge
// handler on the A line. A non-zero debounce enables the kernel
// debounce filter; the default is no filtering.
func Encoder(chip string, pinA, pinB int, debounce time.Duration, edge func(a, b int)) (*EncoderPins, error) {
	e := new(EncoderPins)
	var err error
	e.b, err = gpiocdev.RequestLine(chip, pinB, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, err
	}
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			a := 0
			if evt.Type == gpiocdev.LineEventRisingEdge {
				a = 1
			}
			b, err := e.b.Value()
			if err != nil {
				return
			}
			edge(a, b)
		}),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}
	e.a, err = gpiocdev.RequestLine(chip, pinA, opts...)
	if err != nil {
		e.b.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the encoder lines and stops edge delivery.
func (e *EncoderPins) Close() {
	e.a.Close()
	e.b.Close()
}
