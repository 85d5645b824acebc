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

// Simulator winch program.
// Runs the real decoder, controller and persistence against a fake
// motor driver and synthesized quadrature edges, as a smoke test for
// the whole control path. The web status page is served as usual.

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aamcrae/winch/drive"
)

var winches = flag.Int("winches", 3, "Number of simulated winches")
var distance = flag.Float64("distance", 25, "Travel distance (cm)")
var spool = flag.Float64("spool", 7.0, "Spool diameter (cm)")
var resolution = flag.Int("resolution", 525, "Counts per spool revolution")
var edgeRate = flag.Int("rate", 200, "Encoder edges per second at full duty")
var idle = flag.Duration("idle", 2*time.Second, "Idle threshold for saving")
var port = flag.String("port", ":8080", "Web server address")

type simMotor struct {
	mu    sync.Mutex
	dir   drive.Direction
	speed float64
}

// simDriver pretends to be the motor shield: it just remembers the
// commanded direction and speed for the edge generators to consume.
type simDriver struct {
	motors []*simMotor
}

func (d *simDriver) SetSpeed(id int, magnitude float64) error {
	m := d.motors[id]
	m.mu.Lock()
	m.speed = magnitude
	m.mu.Unlock()
	return nil
}

func (d *simDriver) Run(id int, dir drive.Direction) error {
	m := d.motors[id]
	m.mu.Lock()
	m.dir = dir
	m.mu.Unlock()
	return nil
}

func (d *simDriver) state(id int) (drive.Direction, float64) {
	m := d.motors[id]
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir, m.speed
}

// memStore is an in-memory Store that counts saves.
type memStore struct {
	mu     sync.Mutex
	counts []int64
	valid  bool
	saves  int
}

func (s *memStore) Load() ([]int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.valid {
		return nil, false, nil
	}
	counts := make([]int64, len(s.counts))
	copy(counts, s.counts)
	return counts, true, nil
}

func (s *memStore) Save(counts []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = make([]int64, len(counts))
	copy(s.counts, counts)
	s.valid = true
	s.saves++
	return nil
}

func (s *memStore) stats() (int, []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make([]int64, len(s.counts))
	copy(counts, s.counts)
	return s.saves, counts
}

func main() {
	flag.Parse()
	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	log := zl.Sugar()

	driver := &simDriver{}
	store := &memStore{}
	var channels []*drive.Channel
	for i := 0; i < *winches; i++ {
		target := drive.TargetSteps(*distance, *spool, *resolution)
		channels = append(channels, drive.NewChannel(i, fmt.Sprintf("sim%d", i), target, 0.5))
		driver.motors = append(driver.motors, &simMotor{})
	}

	ctrl := drive.NewController(channels, driver, store, log)
	ctrl.Idle = *idle
	ss := drive.NewStatusServer(log)
	ctrl.Sink = drive.Sinks{&drive.LogSink{Log: log}, ss}
	go func() {
		if err := ss.Serve(*port); err != nil {
			log.Warnf("status server: %v", err)
		}
	}()

	if err := ctrl.Restore(); err != nil {
		log.Fatalf("restore: %v", err)
	}

	for i, ch := range channels {
		go edges(drive.NewDecoder(ch, ctrl.Clock), driver, i)
	}
	go ctrl.Start(context.Background())

	for {
		time.Sleep(5 * time.Second)
		saves, saved := store.stats()
		for _, ch := range channels {
			count, _ := ch.Snapshot()
			fmt.Printf("%s: count %d / target %d\n", ch.Name, count, ch.Target)
		}
		fmt.Printf("store: %d saves, last %v\n", saves, saved)
	}
}

// edges synthesizes quadrature edges for one channel in whatever
// direction the driver was last commanded, with occasional pauses so
// the idle-save path gets exercised.
func edges(dec *drive.Decoder, driver *simDriver, id int) {
	for {
		dir, speed := driver.state(id)
		if speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if rand.Intn(1000) == 0 {
			// Simulate the rig stalling for a while.
			time.Sleep(*idle + time.Second)
			continue
		}
		// One A edge per interval; levels agree on forward motion.
		if dir == drive.Forward {
			dec.Edge(1, 1)
		} else {
			dec.Edge(1, 0)
		}
		time.Sleep(time.Second / time.Duration(float64(*edgeRate)*speed))
	}
}
