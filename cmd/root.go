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
	"os"

	"goxlrd/app"
	"goxlrd/audio"
	"goxlrd/model"
	"goxlrd/shared"

	"github.com/spf13/cobra"
)

var (
	// arguments
	argConfigFile string
	argLogLevel   string
	argSimulate   bool

	rootCmd = &cobra.Command{
		Use:   "goxlrd",
		Short: "GoXLR mixer control daemon",
		Long: "goxlrd drives TC-Helicon GoXLR mixers over USB: it watches the bus,\n" +
			"polls the control surface, records the sampler output behind a\n" +
			"loudness gate, and exposes a JSON control API over HTTP.",

		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			var backend audio.Backend
			if argSimulate {
				backend = audio.NewSyntheticBackend(nil).Realtime()
			}

			return app.RunDaemon(config, backend)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&argConfigFile, "config", "c", "", "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&argLogLevel, "log-level", "", "Override the configured log level")

	rootCmd.Flags().BoolVar(&argSimulate, "simulate", false, "Use a synthetic audio backend instead of capture hardware")
}

// loadConfig reads the config file, applies CLI overrides, and installs
// the logger before anything else runs.
func loadConfig() (*model.Config, error) {
	config, err := model.LoadConfig(argConfigFile)
	if err != nil {
		return nil, err
	}

	if argLogLevel != "" {
		config.LogLevel = argLogLevel
	}

	level, err := shared.ParseLogLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}
	shared.ConfigureTextLogger(level)

	return config, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
