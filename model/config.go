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
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the daemon's effective configuration, loaded from a YAML
// file with every field defaulted.
type Config struct {
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Device   DeviceConfig   `mapstructure:"device" yaml:"device"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
}

// HTTPConfig configures the control API listener.
type HTTPConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// DeviceConfig configures the USB side of the daemon.
type DeviceConfig struct {
	WaitStrategy    string `mapstructure:"wait_strategy" yaml:"wait_strategy"`
	PollIntervalMS  int    `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	ScanIntervalMS  int    `mapstructure:"scan_interval_ms" yaml:"scan_interval_ms"`
	CooldownSeconds int    `mapstructure:"cooldown_seconds" yaml:"cooldown_seconds"`
}

// RecorderConfig configures the sampler capture pipeline.
type RecorderConfig struct {
	Backend         string  `mapstructure:"backend" yaml:"backend"`
	DeviceMatch     string  `mapstructure:"device_match" yaml:"device_match"`
	SampleRate      int     `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels        int     `mapstructure:"channels" yaml:"channels"`
	BlockFrames     int     `mapstructure:"block_frames" yaml:"block_frames"`
	PrerollSeconds  float64 `mapstructure:"preroll_seconds" yaml:"preroll_seconds"`
	GateThresholdDB float64 `mapstructure:"gate_threshold_db" yaml:"gate_threshold_db"`
	OutputDirectory string  `mapstructure:"output_directory" yaml:"output_directory"`
	ProducerBuffer  int     `mapstructure:"producer_buffer" yaml:"producer_buffer"`
}

// LoadConfig reads the config file and applies defaults. An empty path
// searches the usual locations and tolerates a missing file; an explicit
// path must exist.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("http.listen", "127.0.0.1:14564")
	v.SetDefault("device.wait_strategy", "sleep")
	v.SetDefault("device.poll_interval_ms", 100)
	v.SetDefault("device.scan_interval_ms", 100)
	v.SetDefault("device.cooldown_seconds", 10)
	v.SetDefault("recorder.backend", "auto")
	v.SetDefault("recorder.device_match", "GoXLR")
	v.SetDefault("recorder.sample_rate", 48000)
	v.SetDefault("recorder.channels", 2)
	v.SetDefault("recorder.block_frames", 4800)
	v.SetDefault("recorder.preroll_seconds", 2.0)
	v.SetDefault("recorder.gate_threshold_db", -45.0)
	v.SetDefault("recorder.output_directory", ".")
	v.SetDefault("recorder.producer_buffer", 32)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("goxlrd")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/goxlrd")
		v.AddConfigPath("$HOME/.config/goxlrd")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("goxlrd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return config, nil
}
