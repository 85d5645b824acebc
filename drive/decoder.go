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

// Quadrature decoder.

package drive

import (
	"github.com/benbjohnson/clock"
)

// Decoder turns edge notifications on a channel's A line into signed
// count updates. The input capability invokes Edge with the A and B
// levels sampled at the instant of the edge; when the levels agree the
// spool moved forward, otherwise backward.
// Each channel has its own Decoder and the channels share no state, so
// edges on different channels may be delivered concurrently.
// No debounce or missed-edge recovery is attempted here; the edge rate
// is assumed low enough that B is stable when A is sampled.
type Decoder struct {
	ch  *Channel
	clk clock.Clock
}

// NewDecoder creates a Decoder for the channel.
func NewDecoder(ch *Channel, clk clock.Clock) *Decoder {
	d := new(Decoder)
	d.ch = ch
	d.clk = clk
	return d
}

// Edge handles one level change on the A line.
// Runs in the notification context: one count update, one timestamp,
// no blocking.
func (d *Decoder) Edge(a, b int) {
	if a == b {
		d.ch.apply(1, d.clk.Now())
	} else {
		d.ch.apply(-1, d.clk.Now())
	}
}
