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

	"github.com/spf13/cobra"

	"github.com/aamcrae/winch/io"
)

// clearCmd invalidates the persisted position record so the daemon
// starts from zero on its next run. Refuses to run while the daemon
// holds the store.
func clearCmd() *cobra.Command {
	var file string
	var offset int64
	var channels int
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Invalidate the saved winch positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := io.NewFileStore(file, offset, channels)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Printf("%s: record cleared\n", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "/var/lib/winchd/state", "Position record file")
	cmd.Flags().Int64Var(&offset, "offset", 0, "Record offset within the file")
	cmd.Flags().IntVar(&channels, "channels", 3, "Number of configured winches")
	return cmd
}
