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

// HTTP server for winch status
package drive

import (
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"sort"
	"sync"

	"github.com/fogleman/gg"

	"go.uber.org/zap"
)

const (
	gaugeWidth  = 640
	gaugeBarH   = 40
	gaugeMargin = 20
)

// StatusServer serves the most recent telemetry snapshot as JSON and
// as a rendered position gauge. It is a telemetry sink; the control
// loop never depends on it.
type StatusServer struct {
	log  *zap.SugaredLogger
	mu   sync.Mutex
	last Snapshot
}

// NewStatusServer creates a StatusServer.
func NewStatusServer(log *zap.SugaredLogger) *StatusServer {
	s := new(StatusServer)
	s.log = log
	s.last = Snapshot{}
	return s
}

// Publish stores the latest snapshot for serving.
func (s *StatusServer) Publish(snap Snapshot) {
	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
}

// Serve runs the status server on the address given.
func (s *StatusServer) Serve(addr string) error {
	http.Handle("/status", http.HandlerFunc(s.status))
	http.Handle("/winches.png", http.HandlerFunc(s.gauge))
	s.log.Infof("status server on %s", addr)
	server := &http.Server{Addr: addr}
	return server.ListenAndServe()
}

func (s *StatusServer) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *StatusServer) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		s.log.Warnf("status encode: %v", err)
	}
}

// gauge renders one horizontal bar per channel showing the current
// position within 0..target.
func (s *StatusServer) gauge(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	ids := make([]int, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	height := gaugeMargin + len(ids)*(gaugeBarH+gaugeMargin)
	if height == gaugeMargin {
		height += gaugeBarH
	}
	c := gg.NewContext(gaugeWidth, height)
	c.SetRGB(1, 1, 1)
	c.Clear()
	for i, id := range ids {
		st := snap[id]
		y := float64(gaugeMargin + i*(gaugeBarH+gaugeMargin))
		barW := float64(gaugeWidth - 2*gaugeMargin)
		c.SetRGB(0.85, 0.85, 0.85)
		c.DrawRectangle(gaugeMargin, y, barW, gaugeBarH)
		c.Fill()
		frac := 0.0
		if st.Target > 0 {
			frac = float64(st.Count) / float64(st.Target)
			if frac < 0 {
				frac = 0
			}
			if frac > 1 {
				frac = 1
			}
		}
		c.SetRGB(0.1, 0.4, 0.8)
		c.DrawRectangle(gaugeMargin, y, barW*frac, gaugeBarH)
		c.Fill()
		c.SetRGB(0, 0, 0)
		c.DrawString(fmt.Sprintf("winch %d: %d / %d", id, st.Count, st.Target), gaugeMargin+4, y-4)
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, c.Image()); err != nil {
		s.log.Warnf("gauge encode: %v", err)
	}
}
