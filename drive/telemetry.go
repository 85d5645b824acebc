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

// Telemetry output.

package drive

import (
	"go.uber.org/zap"
)

// Status is the per-channel telemetry payload.
type Status struct {
	Count  int64 `json:"count"`
	Target int64 `json:"target"`
}

// Snapshot maps channel id to its status for one control cycle.
type Snapshot map[int]Status

// Sink receives one Snapshot per control cycle. Purely an output;
// no control behaviour depends on it.
type Sink interface {
	Publish(Snapshot)
}

// Sinks fans a snapshot out to multiple sinks.
type Sinks []Sink

func (s Sinks) Publish(snap Snapshot) {
	for _, sink := range s {
		sink.Publish(snap)
	}
}

// LogSink writes snapshots to the debug log.
type LogSink struct {
	Log *zap.SugaredLogger
}

func (l *LogSink) Publish(snap Snapshot) {
	for id, st := range snap {
		l.Log.Debugw("winch position", "channel", id, "count", st.Count, "target", st.Target)
	}
}
