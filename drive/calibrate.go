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

// Startup calibration.

package drive

import (
	"math"
)

// TargetSteps computes the encoder count corresponding to a travel
// distance. resolution is the number of decoded counts per revolution
// of the spool, and spool is the spool diameter in the same length
// units as distance. The result is truncated toward zero; the same
// policy applies to every channel.
// Calibration runs once at startup; changing the physical parameters
// requires a restart.
func TargetSteps(distance, spool float64, resolution int) int64 {
	perUnit := float64(resolution) / (math.Pi * spool)
	return int64(distance * perUnit)
}
