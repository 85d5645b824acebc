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

// Hardware PWM via the kernel sysfs interface.

package io

import (
	"fmt"
	"os"
	"os/user"
	"time"

	"golang.org/x/sys/unix"
)

const (
	pwmBaseDir      = "/sys/class/pwm/pwmchip0/"
	pwmExportFile   = pwmBaseDir + "export"
	pwmUnexportFile = pwmBaseDir + "unexport"
	periodFile      = "/period"
	dutyFile        = "/duty_cycle"
	enableFile      = "/enable"
)

const verifyTimeout = 2 * time.Second

// Verify will enable waiting for exported sysfs PWM files to become
// writable. This is necessary if the process is not running as root -
// systemd and udev will change the group permissions on the exported
// files, but this takes some time to do. If we try and access the
// files before the file group/modes are changed, we will get a
// permission error.
// This can be overridden.
var Verify = false

func init() {
	// If the user is not root, enable Verify mode
	u, err := user.Current()
	if err == nil && u.Uid != "0" {
		Verify = true
	}
}

// HwPwm is a hardware PWM unit.
type HwPwm struct {
	unit   int
	base   string
	pFile  *os.File
	dFile  *os.File
	period int64
	duty   int64
}

// NewHwPWM creates a new hardware PWM controller.
func NewHwPWM(unit int) (*HwPwm, error) {
	p := new(HwPwm)
	p.unit = unit
	p.base = fmt.Sprintf("%spwm%d", pwmBaseDir, unit)
	p.period = -1
	p.duty = -1

	vFile := fmt.Sprintf("%s%s", p.base, periodFile)
	err := export(vFile, pwmExportFile, unit)
	if err != nil {
		return nil, err
	}
	p.pFile, err = os.OpenFile(fmt.Sprintf("%s%s", p.base, periodFile), os.O_RDWR, 0600)
	if err != nil {
		unexport(pwmUnexportFile, unit)
		return nil, err
	}
	dName := fmt.Sprintf("%s%s", p.base, dutyFile)
	err = verifyFile(dName)
	if err != nil {
		p.pFile.Close()
		unexport(pwmUnexportFile, unit)
		return nil, err
	}
	p.dFile, err = os.OpenFile(dName, os.O_RDWR, 0600)
	if err != nil {
		p.pFile.Close()
		unexport(pwmUnexportFile, unit)
		return nil, err
	}
	// Default settings
	p.Set(time.Millisecond*100, 0)
	err = writeFile(fmt.Sprintf("%s%s", p.base, enableFile), "1")
	if err != nil {
		p.pFile.Close()
		p.dFile.Close()
		unexport(pwmUnexportFile, unit)
		return nil, err
	}
	return p, nil
}

// Close closes the PWM controller
func (p *HwPwm) Close() {
	writeFile(fmt.Sprintf("%s%s", p.base, enableFile), "0")
	p.pFile.Close()
	p.dFile.Close()
	unexport(pwmUnexportFile, p.unit)
}

// Set sets the PWM parameters.
func (p *HwPwm) Set(period time.Duration, duty float64) error {
	if duty < 0 || duty > 1 {
		return fmt.Errorf("%f: invalid duty fraction", duty)
	}
	pNano := period.Nanoseconds()
	if pNano < 15 {
		return fmt.Errorf("invalid period")
	}
	dNano := int64(float64(pNano) * duty)
	// When writing the period and duty cycle, the order may be important
	// since duty cycle must not be greater than the current period.
	if dNano > p.period {
		// Write period first
		_, err := p.pFile.WriteAt([]byte(fmt.Sprintf("%d", pNano)), 0)
		if err != nil {
			return err
		}
		_, err = p.dFile.WriteAt([]byte(fmt.Sprintf("%d", dNano)), 0)
		if err != nil {
			return err
		}
	} else {
		if dNano != p.duty {
			_, err := p.dFile.WriteAt([]byte(fmt.Sprintf("%d", dNano)), 0)
			if err != nil {
				return err
			}
		}
		if pNano != p.period {
			_, err := p.pFile.WriteAt([]byte(fmt.Sprintf("%d", pNano)), 0)
			if err != nil {
				return err
			}
		}
	}
	p.period = pNano
	p.duty = dNano
	return nil
}

// unexport writes a unit number to an unexport file.
func unexport(f string, g int) error {
	return writeFile(f, fmt.Sprintf("%d", g))
}

// export will check for the existence of a file, and if it is
// not writable, will write a unit number to an export file, and then
// optionally wait for the file to appear and become writable.
func export(f, expfile string, g int) error {
	// Check if directory and files already exist.
	err := unix.Access(f, unix.W_OK|unix.R_OK)
	if err == nil {
		return nil
	}
	err = writeFile(expfile, fmt.Sprintf("%d", g))
	if err == nil && Verify {
		return verifyFile(f)
	}
	return err
}

// Write a string to a file.
func writeFile(fname, s string) error {
	f, err := os.OpenFile(fname, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(s))
	return err
}

// Wait for file to become writable.
func verifyFile(f string) error {
	var tout time.Duration
	sl := time.Millisecond
	for tout = 0; tout < verifyTimeout; tout += sl {
		err := unix.Access(f, unix.W_OK)
		if err == nil {
			return nil
		}
		time.Sleep(sl)
	}
	return fmt.Errorf("%s: not writable", f)
}
