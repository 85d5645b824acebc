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

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/aamcrae/winch/drive"
	"github.com/aamcrae/winch/io"
)

// watchCmd decodes a quadrature encoder and prints the live count.
// Useful for checking wiring and the sign of the count before
// configuring a winch.
func watchCmd() *cobra.Command {
	var chip string
	var pinA, pinB int
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the decoded count of an encoder",
		RunE: func(cmd *cobra.Command, args []string) error {
			ch := drive.NewChannel(0, "watch", 0, 0)
			dec := drive.NewDecoder(ch, clock.New())
			enc, err := io.Encoder(chip, pinA, pinB, 0, dec.Edge)
			if err != nil {
				return err
			}
			defer enc.Close()
			fmt.Printf("watching A=%d B=%d on %s, interrupt to stop\n", pinA, pinB, chip)
			for {
				time.Sleep(interval)
				count, last := ch.Snapshot()
				idle := ""
				if !last.IsZero() {
					idle = fmt.Sprintf(" (last edge %s ago)", time.Since(last).Truncate(time.Millisecond))
				}
				fmt.Printf("count %d%s\n", count, idle)
			}
		},
	}
	cmd.Flags().StringVar(&chip, "chip", "gpiochip0", "GPIO character device")
	cmd.Flags().IntVar(&pinA, "a", 17, "Encoder A GPIO (BCM)")
	cmd.Flags().IntVar(&pinB, "b", 27, "Encoder B GPIO (BCM)")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Print interval")
	return cmd
}
