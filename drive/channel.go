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

// Package drive controls a set of winch motors, each tracked by a
// quadrature encoder, oscillating between a lower travel bound and a
// calibrated target step count.

package drive

import (
	"sync"
	"time"
)

// Direction of winch travel.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// Channel holds the state owned by one winch: a motor, its quadrature
// encoder, and the position bookkeeping for control and persistence.
// count and lastChange are written by the encoder edge handler, which runs
// asynchronously to the control loop, so they are only ever read together
// through Snapshot.
// lastSaved is owned by the control loop and needs no locking.
type Channel struct {
	ID     int     // Index used to address the driver and the saved record
	Name   string  // Name of this winch
	Target int64   // Calibrated target step count (upper travel bound)
	Speed  float64 // Duty magnitude passed to the driver at startup

	mu         sync.Mutex // Guards count and lastChange
	count      int64      // Signed decoded position
	lastChange time.Time  // Time of the most recent decoded edge

	lastSaved int64 // Count value most recently persisted
}

// NewChannel creates and initialises a Channel.
func NewChannel(id int, name string, target int64, speed float64) *Channel {
	c := new(Channel)
	c.ID = id
	c.Name = name
	c.Target = target
	c.Speed = speed
	return c
}

// apply folds one decoded edge into the channel state.
// Called from the edge-notification context; must stay short.
func (c *Channel) apply(delta int64, now time.Time) {
	c.mu.Lock()
	c.count += delta
	c.lastChange = now
	c.mu.Unlock()
}

// Snapshot returns the current count and last-edge time as a single
// consistent pair. This is the only read path across the two
// concurrency domains.
func (c *Channel) Snapshot() (int64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, c.lastChange
}

// restore seeds the count from persisted state before the encoder and
// control loop are started.
func (c *Channel) restore(count int64) {
	c.mu.Lock()
	c.count = count
	c.mu.Unlock()
	c.lastSaved = count
}
