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
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goxlrd.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if config.LogLevel != "debug" {
		t.Errorf("log_level = %q", config.LogLevel)
	}
	if config.Device.WaitStrategy != "sleep" {
		t.Errorf("default wait_strategy = %q", config.Device.WaitStrategy)
	}
	if config.Device.CooldownSeconds != 10 {
		t.Errorf("default cooldown_seconds = %d", config.Device.CooldownSeconds)
	}
	if config.Recorder.SampleRate != 48000 {
		t.Errorf("default sample_rate = %d", config.Recorder.SampleRate)
	}
	if config.Recorder.GateThresholdDB != -45.0 {
		t.Errorf("default gate_threshold_db = %v", config.Recorder.GateThresholdDB)
	}
	if config.HTTP.Listen == "" {
		t.Error("default http.listen is empty")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goxlrd.yaml")
	content := `
device:
  wait_strategy: interrupt
  poll_interval_ms: 50
recorder:
  gate_threshold_db: -80
  output_directory: /srv/takes
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if config.Device.WaitStrategy != "interrupt" {
		t.Errorf("wait_strategy = %q", config.Device.WaitStrategy)
	}
	if config.Device.PollIntervalMS != 50 {
		t.Errorf("poll_interval_ms = %d", config.Device.PollIntervalMS)
	}
	if config.Recorder.GateThresholdDB != -80.0 {
		t.Errorf("gate_threshold_db = %v", config.Recorder.GateThresholdDB)
	}
	if config.Recorder.OutputDirectory != "/srv/takes" {
		t.Errorf("output_directory = %q", config.Recorder.OutputDirectory)
	}

	// untouched sections keep their defaults
	if config.Recorder.Channels != 2 {
		t.Errorf("channels = %d", config.Recorder.Channels)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}
