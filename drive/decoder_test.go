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
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestDecoderSignLaw(t *testing.T) {
	clk := clock.NewMock()
	ch := NewChannel(0, "test", 100, 0.5)
	dec := NewDecoder(ch, clk)

	// Levels agree: +1 for either polarity.
	dec.Edge(1, 1)
	dec.Edge(0, 0)
	count, _ := ch.Snapshot()
	assert.Equal(t, int64(2), count)

	// Levels disagree: -1 for either polarity.
	dec.Edge(1, 0)
	dec.Edge(0, 1)
	count, _ = ch.Snapshot()
	assert.Equal(t, int64(0), count)
}

func TestDecoderSequenceSum(t *testing.T) {
	clk := clock.NewMock()
	ch := NewChannel(0, "test", 100, 0.5)
	dec := NewDecoder(ch, clk)
	edges := []struct{ a, b int }{
		{1, 1}, {0, 0}, {1, 1}, {1, 0}, {0, 0}, {0, 1}, {1, 1}, {1, 0},
	}
	sum := int64(0)
	for _, e := range edges {
		dec.Edge(e.a, e.b)
		if e.a == e.b {
			sum++
		} else {
			sum--
		}
	}
	count, _ := ch.Snapshot()
	assert.Equal(t, sum, count)
}

func TestDecoderActivityTimestamp(t *testing.T) {
	clk := clock.NewMock()
	ch := NewChannel(0, "test", 100, 0.5)
	dec := NewDecoder(ch, clk)

	dec.Edge(1, 1)
	_, last := ch.Snapshot()
	assert.Equal(t, clk.Now(), last)

	clk.Add(3 * time.Second)
	dec.Edge(1, 0)
	_, last = ch.Snapshot()
	assert.Equal(t, clk.Now(), last)

	// The timestamp moves even when the count only dithers.
	before := last
	clk.Add(time.Second)
	dec.Edge(0, 1)
	_, last = ch.Snapshot()
	assert.True(t, last.After(before))
}

// Channels own disjoint state, so concurrent edges on different
// channels must never interfere.
func TestDecoderIndependentChannels(t *testing.T) {
	clk := clock.NewMock()
	const edges = 5000
	ch1 := NewChannel(0, "one", 100, 0.5)
	ch2 := NewChannel(1, "two", 100, 0.5)
	d1 := NewDecoder(ch1, clk)
	d2 := NewDecoder(ch2, clk)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < edges; i++ {
			d1.Edge(1, 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < edges; i++ {
			d2.Edge(1, 0)
		}
	}()
	wg.Wait()
	c1, _ := ch1.Snapshot()
	c2, _ := ch2.Snapshot()
	assert.Equal(t, int64(edges), c1)
	assert.Equal(t, int64(-edges), c2)
}
