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
	"fmt"
	"strings"
	"time"

	"github.com/aamcrae/config"
)

// WinchConfig is the configuration for one winch, read from its own
// section of the configuration file.
type WinchConfig struct {
	Name       string
	Motor      int     // Driver output the motor is wired to (1-4 on the shield)
	Speed      float64 // Duty magnitude 0..1
	PinA       int     // Encoder A GPIO (BCM)
	PinB       int     // Encoder B GPIO (BCM)
	Chip       string  // GPIO character device
	Distance   float64 // Travel distance (cm)
	Spool      float64 // Spool diameter (cm)
	Resolution int     // Decoded counts per spool revolution
	Bridge     []int   // Optional H-bridge IN1,IN2,ENABLE GPIOs
	PwmUnit    int     // Hardware PWM unit for the bridge, -1 for software PWM
}

// Config is the assembled daemon configuration.
// Sample config:
//  [control]
//  winches=left,centre,right  # winch section names, in record order
//  period=100ms               # control cycle period
//  idle=5s                    # idle threshold before a save
//
//  [driver]
//  type=hat                   # hat (I2C motor shield) or bridge (GPIO)
//  bus=1                      # I2C bus for the shield
//  address=0x60               # shield address
//
//  [storage]
//  file=/var/lib/winchd/state # backing file for the position record
//  offset=0                   # record offset within the file
//
//  [left]
//  motor=1                    # shield output
//  speed=0.5                  # duty magnitude
//  encoder=17,27              # A,B GPIOs
//  distance=25                # travel (cm)
//  spool=7.0                  # spool diameter (cm)
//  resolution=525             # decoded counts per spool revolution
type Config struct {
	Winches []*WinchConfig
	Period  time.Duration
	Idle    time.Duration
	Driver  string
	Bus     string
	Address int
	File    string
	Offset  int64
	Chip    string
}

// Load reads and validates the daemon configuration.
func Load(file string) (*Config, error) {
	conf, err := config.ParseFile(file)
	if err != nil {
		return nil, err
	}
	c := new(Config)
	c.Period = DefaultPeriod
	c.Idle = DefaultIdle
	c.Driver = "hat"
	c.Bus = "1"
	c.Address = 0x60
	c.Chip = "gpiochip0"

	s := conf.GetSection("control")
	if s == nil {
		return nil, fmt.Errorf("no control section")
	}
	names, err := s.GetArg("winches")
	if err != nil {
		return nil, fmt.Errorf("winches: %v", err)
	}
	if p, err := s.GetArg("period"); err == nil {
		c.Period, err = time.ParseDuration(p)
		if err != nil {
			return nil, fmt.Errorf("period: %v", err)
		}
	}
	if p, err := s.GetArg("idle"); err == nil {
		c.Idle, err = time.ParseDuration(p)
		if err != nil {
			return nil, fmt.Errorf("idle: %v", err)
		}
	}

	if s = conf.GetSection("driver"); s != nil {
		if t, err := s.GetArg("type"); err == nil {
			c.Driver = t
		}
		if b, err := s.GetArg("bus"); err == nil {
			c.Bus = b
		}
		s.Parse("address", "%v", &c.Address)
		if ch, err := s.GetArg("chip"); err == nil {
			c.Chip = ch
		}
	}
	if c.Driver != "hat" && c.Driver != "bridge" {
		return nil, fmt.Errorf("driver: unknown type %s", c.Driver)
	}

	s = conf.GetSection("storage")
	if s == nil {
		return nil, fmt.Errorf("no storage section")
	}
	c.File, err = s.GetArg("file")
	if err != nil {
		return nil, fmt.Errorf("storage file: %v", err)
	}
	s.Parse("offset", "%d", &c.Offset)

	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		wc, err := Winch(conf, name)
		if err != nil {
			return nil, err
		}
		wc.Chip = c.Chip
		c.Winches = append(c.Winches, wc)
	}
	return c, nil
}

// Winch reads and validates one winch config from a config file section.
// Sample section:
//  [left]
//  motor=1                # driver output for this winch
//  speed=0.5              # duty magnitude 0..1
//  encoder=17,27          # GPIOs for encoder A and B
//  distance=25            # travel distance
//  spool=7.0              # spool diameter
//  resolution=525         # decoded counts per spool revolution
//  bridge=23,24,18        # optional H-bridge IN1,IN2,ENABLE GPIOs
//  pwm=0                  # optional hardware PWM unit for the bridge
func Winch(conf *config.Config, name string) (*WinchConfig, error) {
	s := conf.GetSection(name)
	if s == nil {
		return nil, fmt.Errorf("no config for %s", name)
	}
	var w WinchConfig
	w.Name = name
	w.PwmUnit = -1
	n, err := s.Parse("motor", "%d", &w.Motor)
	if err != nil || n != 1 {
		return nil, fmt.Errorf("%s motor: %v", name, err)
	}
	n, err = s.Parse("speed", "%f", &w.Speed)
	if err != nil || n != 1 {
		return nil, fmt.Errorf("%s speed: %v", name, err)
	}
	n, err = s.Parse("encoder", "%d,%d", &w.PinA, &w.PinB)
	if err != nil || n != 2 {
		return nil, fmt.Errorf("%s encoder: %v", name, err)
	}
	n, err = s.Parse("distance", "%f", &w.Distance)
	if err != nil || n != 1 {
		return nil, fmt.Errorf("%s distance: %v", name, err)
	}
	n, err = s.Parse("spool", "%f", &w.Spool)
	if err != nil || n != 1 {
		return nil, fmt.Errorf("%s spool: %v", name, err)
	}
	n, err = s.Parse("resolution", "%d", &w.Resolution)
	if err != nil || n != 1 {
		return nil, fmt.Errorf("%s resolution: %v", name, err)
	}
	var in1, in2, en int
	if n, err = s.Parse("bridge", "%d,%d,%d", &in1, &in2, &en); err == nil {
		if n != 3 {
			return nil, fmt.Errorf("%s bridge: argument count", name)
		}
		w.Bridge = []int{in1, in2, en}
	}
	if n, err = s.Parse("pwm", "%d", &w.PwmUnit); err != nil || n != 1 {
		w.PwmUnit = -1
	}
	return &w, nil
}
