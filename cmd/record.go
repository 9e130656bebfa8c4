// =================================================================================
//
//		goxlrd - https://github.com/GoXLR-on-Linux/goxlrd
//
//	 goxlrd is a userspace driver and control daemon for the TC-Helicon GoXLR
//	 mixer, speaking its vendor USB protocol and recording its sampler audio
//
//		Copyright (c) 2026 the goxlrd contributors
//
//		Licensed under the Apache License, Version 2.0 (the "License");
//		you may not use this file except in compliance with the License.
//		You may obtain a copy of the License at
//
//		     http://www.apache.org/licenses/LICENSE-2.0
//
//		Unless required by applicable law or agreed to in writing, software
//		distributed under the License is distributed on an "AS IS" BASIS,
//		WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//		See the License for the specific language governing permissions and
//		limitations under the License.
//
// =================================================================================
package cmd

import (
	"path/filepath"
	"time"

	"goxlrd/app"
	"goxlrd/audio"

	"github.com/spf13/cobra"
)

var (
	argRecordOutput   string
	argRecordSimulate bool

	recordCmd = &cobra.Command{
		Use:   "record",
		Short: "Record a single gated take, without running the daemon",

		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			path := argRecordOutput
			if path == "" {
				path = filepath.Join(config.Recorder.OutputDirectory,
					"goxlr-"+time.Now().Format("2006-01-02-150405")+".wav")
			}

			var backend audio.Backend
			if argRecordSimulate {
				backend = audio.NewSyntheticBackend(nil).Realtime()
			}

			return app.RunRecordOnce(config, backend, path)
		},
	}
)

func init() {
	recordCmd.Flags().StringVarP(&argRecordOutput, "output", "o", "", "Output WAV path (default: timestamped file in the output directory)")
	recordCmd.Flags().BoolVar(&argRecordSimulate, "simulate", false, "Use a synthetic audio backend instead of capture hardware")

	rootCmd.AddCommand(recordCmd)
}
