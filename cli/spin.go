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

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aamcrae/winch/drive"
	"github.com/aamcrae/winch/io"
)

// spinCmd spins one shield output at a fixed duty for a duration.
// The sign of the duty selects the direction.
func spinCmd() *cobra.Command {
	var bus string
	var address uint16
	var motor int
	var duty float64
	var seconds float64
	cmd := &cobra.Command{
		Use:   "spin",
		Short: "Spin a motor at a fixed duty for a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			hat, err := io.OpenMotorHat(bus, address)
			if err != nil {
				return err
			}
			if err := hat.Attach(0, motor); err != nil {
				return err
			}
			dir := drive.Forward
			if duty < 0 {
				dir = drive.Backward
				duty = -duty
			}
			if err := hat.SetSpeed(0, duty); err != nil {
				return err
			}
			if err := hat.Run(0, dir); err != nil {
				return err
			}
			fmt.Printf("motor %d %s at %.0f%% for %.1fs\n", motor, dir, duty*100, seconds)
			time.Sleep(time.Duration(seconds * float64(time.Second)))
			return hat.Stop(0)
		},
	}
	cmd.Flags().StringVar(&bus, "bus", "1", "I2C bus for the motor shield")
	cmd.Flags().Uint16Var(&address, "address", io.DefaultHatAddress, "Shield I2C address")
	cmd.Flags().IntVar(&motor, "motor", 1, "Shield motor output (1-4)")
	cmd.Flags().Float64Var(&duty, "duty", 0.5, "Duty -1..1, sign sets direction")
	cmd.Flags().Float64Var(&seconds, "seconds", 2.0, "Duration to spin")
	return cmd
}
