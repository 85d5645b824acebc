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

// Position persistence.

package drive

import (
	"fmt"
)

// Store is the non-volatile storage capability for channel counts.
// The store owns the byte-level record layout, including the validity
// marker; Load reports an invalid or absent record as ok == false
// rather than an error. Failures are reported, never retried, by the
// store.
type Store interface {
	// Load returns the persisted counts and whether a valid record
	// was present.
	Load() ([]int64, bool, error)
	// Save durably writes a valid record holding these counts.
	Save(counts []int64) error
}

// Restore loads the persisted counts into the channels. If no valid
// record exists the channels are zeroed and a fresh valid record is
// written immediately, so storage is never left invalid after startup.
// An I/O error is returned to the caller; the daemon should not enter
// the control loop without a successful restore.
func (c *Controller) Restore() error {
	counts, ok, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	// A valid record sized for a different channel count is stale
	// config, not usable state.
	if !ok || len(counts) != len(c.channels) {
		for _, ch := range c.channels {
			ch.restore(0)
		}
		if err := c.store.Save(make([]int64, len(c.channels))); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		c.log.Infof("no saved state, initialised %d channels to zero", len(c.channels))
		return nil
	}
	for i, ch := range c.channels {
		ch.restore(counts[i])
		c.log.Infof("%s: restored count %d", ch.Name, counts[i])
	}
	return nil
}

// maybeFlush persists the counts if any channel has been idle past the
// idle threshold with an unsaved change. All channels are always
// written together as one record, so the stored record stays
// self-consistent even when only one channel changed; at most one
// write happens per cycle. A write failure leaves lastSaved untouched,
// so the flush is re-attempted on a later eligible cycle and in-memory
// state remains authoritative meanwhile.
func (c *Controller) maybeFlush(counts []int64, eligible []*Channel) {
	if len(eligible) == 0 {
		return
	}
	if err := c.store.Save(counts); err != nil {
		c.log.Errorf("state save failed: %v", err)
		return
	}
	for _, ch := range eligible {
		ch.lastSaved = counts[ch.ID]
		c.log.Debugf("%s: saved count %d", ch.Name, ch.lastSaved)
	}
}
