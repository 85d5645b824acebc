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

package drive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type runCmd struct {
	id  int
	dir Direction
}

type fakeDriver struct {
	speeds map[int]float64
	runs   []runCmd
	runErr error
}

func (d *fakeDriver) SetSpeed(id int, magnitude float64) error {
	d.speeds[id] = magnitude
	return nil
}

func (d *fakeDriver) Run(id int, dir Direction) error {
	if d.runErr != nil {
		return d.runErr
	}
	d.runs = append(d.runs, runCmd{id, dir})
	return nil
}

type fakeStore struct {
	counts  []int64
	valid   bool
	saves   [][]int64
	loadErr error
	saveErr error
}

func (s *fakeStore) Load() ([]int64, bool, error) {
	if s.loadErr != nil {
		return nil, false, s.loadErr
	}
	if !s.valid {
		return nil, false, nil
	}
	counts := make([]int64, len(s.counts))
	copy(counts, s.counts)
	return counts, true, nil
}

func (s *fakeStore) Save(counts []int64) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	saved := make([]int64, len(counts))
	copy(saved, counts)
	s.saves = append(s.saves, saved)
	s.counts = saved
	s.valid = true
	return nil
}

type fakeSink struct {
	snaps []Snapshot
}

func (s *fakeSink) Publish(snap Snapshot) {
	s.snaps = append(s.snaps, snap)
}

func newTestController(targets ...int64) (*Controller, *fakeDriver, *fakeStore, *clock.Mock) {
	var channels []*Channel
	for i, target := range targets {
		channels = append(channels, NewChannel(i, "test", target, 0.5))
	}
	driver := &fakeDriver{speeds: make(map[int]float64)}
	store := &fakeStore{}
	c := NewController(channels, driver, store, zap.NewNop().Sugar())
	mock := clock.NewMock()
	c.Clock = mock
	return c, driver, store, mock
}

func TestControllerBounds(t *testing.T) {
	c, driver, _, mock := newTestController(10)
	ch := c.channels[0]

	// Between the bounds no direction is asserted.
	ch.apply(5, mock.Now())
	c.step()
	assert.Empty(t, driver.runs)

	// Reaching the target commands backward (closed upper bound).
	ch.apply(5, mock.Now())
	c.step()
	assert.Equal(t, []runCmd{{0, Backward}}, driver.runs)

	// Past the target it keeps commanding backward every cycle.
	ch.apply(1, mock.Now())
	c.step()
	assert.Equal(t, []runCmd{{0, Backward}, {0, Backward}}, driver.runs)

	// Back inside the travel: hold.
	ch.apply(-6, mock.Now())
	c.step()
	assert.Len(t, driver.runs, 2)

	// Zero is inside the travel (open lower bound).
	ch.apply(-5, mock.Now())
	c.step()
	assert.Len(t, driver.runs, 2)

	// Below zero commands forward.
	ch.apply(-1, mock.Now())
	c.step()
	assert.Equal(t, runCmd{0, Forward}, driver.runs[2])
}

func TestControllerDegenerateTarget(t *testing.T) {
	// A zero target immediately and repeatedly commands backward.
	c, driver, _, _ := newTestController(0)
	c.step()
	c.step()
	assert.Equal(t, []runCmd{{0, Backward}, {0, Backward}}, driver.runs)
}

func TestControllerIndependentDirections(t *testing.T) {
	c, driver, _, mock := newTestController(10, 10)
	c.channels[0].apply(10, mock.Now())
	c.channels[1].apply(-1, mock.Now())
	c.step()
	assert.Equal(t, []runCmd{{0, Backward}, {1, Forward}}, driver.runs)
}

func TestControllerDriverFailure(t *testing.T) {
	// A driver failure is logged, not fatal; the cycle still
	// publishes telemetry and the next cycle retries the command.
	c, driver, _, mock := newTestController(10)
	sink := &fakeSink{}
	c.Sink = sink
	driver.runErr = errors.New("bus error")
	c.channels[0].apply(10, mock.Now())
	c.step()
	c.step()
	assert.Empty(t, driver.runs)
	assert.Len(t, sink.snaps, 2)
}

func TestControllerTelemetry(t *testing.T) {
	c, _, _, mock := newTestController(10, 20)
	sink := &fakeSink{}
	c.Sink = sink
	c.channels[0].apply(4, mock.Now())
	c.channels[1].apply(-3, mock.Now())
	c.step()
	assert.Equal(t, []Snapshot{{
		0: {Count: 4, Target: 10},
		1: {Count: -3, Target: 20},
	}}, sink.snaps)
}

func TestControllerStart(t *testing.T) {
	c, driver, _, _ := newTestController(10)
	c.Clock = clock.New()
	c.Period = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- c.Start(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	// The speed is applied once per channel at startup.
	assert.Equal(t, map[int]float64{0: 0.5}, driver.speeds)
}
