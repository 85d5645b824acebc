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

// File-backed position record.

package io

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// The record is one little-endian int32 count per channel followed by
// a 16-bit validity marker, at a fixed offset. Any other marker value
// (or a file too short to hold the record) means no prior state.
const recordMarker = 0xA55A

// FileStore holds the persisted counts in a single fixed-size record,
// mirroring the EEPROM layout the winches used before. A lock file
// keeps the daemon and the clearing utility from interleaving writes.
type FileStore struct {
	path     string
	offset   int64
	channels int
	lock     *flock.Flock
}

// NewFileStore opens the store for the given channel count, taking the
// file lock. It fails if another process holds the store.
func NewFileStore(path string, offset int64, channels int) (*FileStore, error) {
	f := new(FileStore)
	f.path = path
	f.offset = offset
	f.channels = channels
	f.lock = flock.New(path + ".lock")
	ok, err := f.lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: locked by another process", path)
	}
	return f, nil
}

// Close releases the file lock.
func (f *FileStore) Close() error {
	return f.lock.Unlock()
}

func (f *FileStore) size() int {
	return 4*f.channels + 2
}

// Load reads the record. An absent file, a short file or a marker
// mismatch is reported as no prior state, not an error; only a real
// read failure returns one.
func (f *FileStore) Load() ([]int64, bool, error) {
	fd, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer fd.Close()
	st, err := fd.Stat()
	if err != nil {
		return nil, false, err
	}
	if st.Size() < f.offset+int64(f.size()) {
		return nil, false, nil
	}
	buf := make([]byte, f.size())
	if _, err := fd.ReadAt(buf, f.offset); err != nil {
		return nil, false, err
	}
	if binary.LittleEndian.Uint16(buf[4*f.channels:]) != recordMarker {
		return nil, false, nil
	}
	counts := make([]int64, f.channels)
	for i := range counts {
		counts[i] = int64(int32(binary.LittleEndian.Uint32(buf[4*i:])))
	}
	return counts, true, nil
}

// Save writes a valid record holding the counts, syncing the file so
// the record survives a power cycle.
func (f *FileStore) Save(counts []int64) error {
	if len(counts) != f.channels {
		return fmt.Errorf("%s: expected %d counts, got %d", f.path, f.channels, len(counts))
	}
	return f.writeRecord(counts, recordMarker)
}

// Clear overwrites the record with a zeroed, invalid one, so the next
// startup re-initialises.
func (f *FileStore) Clear() error {
	return f.writeRecord(make([]int64, f.channels), 0)
}

func (f *FileStore) writeRecord(counts []int64, marker uint16) error {
	buf := make([]byte, f.size())
	for i, c := range counts {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(int32(c)))
	}
	binary.LittleEndian.PutUint16(buf[4*len(counts):], marker)
	fd, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer fd.Close()
	if _, err := fd.WriteAt(buf, f.offset); err != nil {
		return err
	}
	return fd.Sync()
}
