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

// Position controller.

package drive

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Driver is the motor driver capability. The speed magnitude is set
// once per channel at startup; after that the controller only ever
// asserts a run direction. There is no stop primitive - the winches
// run continuously.
type Driver interface {
	SetSpeed(id int, magnitude float64) error
	Run(id int, dir Direction) error
}

const (
	DefaultPeriod = 100 * time.Millisecond
	DefaultIdle   = 5 * time.Second
)

// Controller runs the cooperative control loop: on each tick it reads
// a snapshot of every channel, asserts a direction at the travel
// bounds, evaluates persistence eligibility, and publishes telemetry.
// One iteration completes before the next begins; nothing in the loop
// blocks apart from the synchronous store write.
//
// The direction law is deliberately not setpoint-seeking. A channel is
// commanded backward when count >= Target and forward when count < 0;
// between the bounds the current direction is simply left alone,
// producing a continuous oscillation over the travel. A non-positive
// Target is a misconfiguration that degenerates to commanding backward
// every cycle; it is not handled specially.
type Controller struct {
	Period time.Duration // Control cycle period
	Idle   time.Duration // Idle threshold gating persistence
	Clock  clock.Clock   // Time source, replaceable for tests
	Sink   Sink          // Telemetry output, may be nil

	channels []*Channel
	driver   Driver
	store    Store
	log      *zap.SugaredLogger
}

// NewController creates a Controller for the channels. Channel IDs
// must equal their slice index; the index addresses both the driver
// and the slot in the persisted record.
func NewController(channels []*Channel, driver Driver, store Store, log *zap.SugaredLogger) *Controller {
	c := new(Controller)
	c.channels = channels
	c.driver = driver
	c.store = store
	c.log = log
	c.Period = DefaultPeriod
	c.Idle = DefaultIdle
	c.Clock = clock.New()
	return c
}

// Start applies the configured speed to every channel and runs the
// control loop until the context is cancelled. Collaborator failures
// inside the loop are logged and the loop keeps running; only a
// startup failure is returned.
func (c *Controller) Start(ctx context.Context) error {
	for _, ch := range c.channels {
		if err := c.driver.SetSpeed(ch.ID, ch.Speed); err != nil {
			return err
		}
	}
	ticker := c.Clock.Ticker(c.Period)
	defer ticker.Stop()
	c.log.Infof("control loop started, period %s, idle threshold %s", c.Period, c.Idle)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.step()
		}
	}
}

// step runs one control cycle.
func (c *Controller) step() {
	now := c.Clock.Now()
	counts := make([]int64, len(c.channels))
	snap := make(Snapshot, len(c.channels))
	var eligible []*Channel
	for i, ch := range c.channels {
		count, last := ch.Snapshot()
		counts[i] = count
		switch {
		case count >= ch.Target:
			c.run(ch, Backward)
		case count < 0:
			c.run(ch, Forward)
		}
		if count != ch.lastSaved && now.Sub(last) > c.Idle {
			eligible = append(eligible, ch)
		}
		snap[ch.ID] = Status{Count: count, Target: ch.Target}
	}
	c.maybeFlush(counts, eligible)
	if c.Sink != nil {
		c.Sink.Publish(snap)
	}
}

// run asserts a direction on the driver. A driver failure does not
// stop the loop; the command is re-asserted while the bound condition
// holds.
func (c *Controller) run(ch *Channel, dir Direction) {
	if err := c.driver.Run(ch.ID, dir); err != nil {
		c.log.Warnf("%s: run %s: %v", ch.Name, dir, err)
	}
}
