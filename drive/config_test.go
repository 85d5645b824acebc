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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "winchd.conf")
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func TestLoadConfig(t *testing.T) {
	file := writeConf(t, `
[control]
winches=left,right
period=50ms
idle=2s

[driver]
type=bridge
bus=2
address=97
chip=gpiochip1

[storage]
file=/var/lib/winchd/state
offset=16

[left]
motor=1
speed=0.5
encoder=17,27
distance=25
spool=7.0
resolution=525

[right]
motor=2
speed=0.75
encoder=22,23
distance=30
spool=7.0
resolution=525
bridge=5,6,12
pwm=0
`)
	c, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, c.Period)
	assert.Equal(t, 2*time.Second, c.Idle)
	assert.Equal(t, "bridge", c.Driver)
	assert.Equal(t, "2", c.Bus)
	assert.Equal(t, 97, c.Address)
	assert.Equal(t, "/var/lib/winchd/state", c.File)
	assert.Equal(t, int64(16), c.Offset)
	require.Len(t, c.Winches, 2)

	left := c.Winches[0]
	assert.Equal(t, "left", left.Name)
	assert.Equal(t, 1, left.Motor)
	assert.Equal(t, 0.5, left.Speed)
	assert.Equal(t, 17, left.PinA)
	assert.Equal(t, 27, left.PinB)
	assert.Equal(t, "gpiochip1", left.Chip)
	assert.Equal(t, 25.0, left.Distance)
	assert.Equal(t, 7.0, left.Spool)
	assert.Equal(t, 525, left.Resolution)
	assert.Nil(t, left.Bridge)
	assert.Equal(t, -1, left.PwmUnit)

	right := c.Winches[1]
	assert.Equal(t, []int{5, 6, 12}, right.Bridge)
	assert.Equal(t, 0, right.PwmUnit)
}

func TestLoadConfigDefaults(t *testing.T) {
	file := writeConf(t, `
[control]
winches=main

[storage]
file=/tmp/state

[main]
motor=1
speed=0.5
encoder=17,27
distance=25
spool=7.0
resolution=525
`)
	c, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, DefaultPeriod, c.Period)
	assert.Equal(t, DefaultIdle, c.Idle)
	assert.Equal(t, "hat", c.Driver)
	assert.Equal(t, "1", c.Bus)
	assert.Equal(t, 0x60, c.Address)
	assert.Equal(t, int64(0), c.Offset)
	assert.Equal(t, "gpiochip0", c.Winches[0].Chip)
}

func TestLoadConfigErrors(t *testing.T) {
	// No control section.
	_, err := Load(writeConf(t, `
[storage]
file=/tmp/state
`))
	assert.Error(t, err)

	// No storage section.
	_, err = Load(writeConf(t, `
[control]
winches=main

[main]
motor=1
speed=0.5
encoder=17,27
distance=25
spool=7.0
resolution=525
`))
	assert.Error(t, err)

	// Named winch has no section.
	_, err = Load(writeConf(t, `
[control]
winches=main,ghost

[storage]
file=/tmp/state

[main]
motor=1
speed=0.5
encoder=17,27
distance=25
spool=7.0
resolution=525
`))
	assert.Error(t, err)

	// Unknown driver type.
	_, err = Load(writeConf(t, `
[control]
winches=main

[driver]
type=servo

[storage]
file=/tmp/state

[main]
motor=1
speed=0.5
encoder=17,27
distance=25
spool=7.0
resolution=525
`))
	assert.Error(t, err)

	// Incomplete winch section.
	_, err = Load(writeConf(t, `
[control]
winches=main

[storage]
file=/tmp/state

[main]
motor=1
speed=0.5
`))
	assert.Error(t, err)
}
