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
package audio

import (
	"math"
	"testing"
)

func TestLoudnessMeterEmptyIsSilent(t *testing.T) {
	m := NewLoudnessMeter(SampleRate, Channels)

	if got := m.Momentary(); !math.IsInf(got, -1) {
		t.Errorf("empty meter reads %v, expected -Inf", got)
	}
}

// A dual-mono full-scale 997Hz sine should read near -3: the tone's
// mean square is -3.01dB and the -0.691 offset cancels the K-weighting
// gain at 997Hz.
func TestLoudnessMeterFullScaleTone(t *testing.T) {
	m := NewLoudnessMeter(SampleRate, Channels)
	m.Process(GenerateTone(997, 1.0, SampleRate, Channels, SampleRate))

	got := m.Momentary()
	if got < -4.5 || got > -1.5 {
		t.Errorf("full-scale tone reads %.2f, expected about -3", got)
	}
}

func TestLoudnessMeterTracksLevel(t *testing.T) {
	loud := NewLoudnessMeter(SampleRate, Channels)
	loud.Process(GenerateTone(997, 0.1, SampleRate, Channels, SampleRate))

	quiet := NewLoudnessMeter(SampleRate, Channels)
	quiet.Process(GenerateTone(997, 0.01, SampleRate, Channels, SampleRate))

	diff := loud.Momentary() - quiet.Momentary()
	if diff < 19 || diff > 21 {
		t.Errorf("20dB amplitude ratio reads as %.2f dB difference", diff)
	}
}

// The momentary window is 400ms: a burst older than that no longer
// registers.
func TestLoudnessMeterForgetsOldAudio(t *testing.T) {
	m := NewLoudnessMeter(SampleRate, Channels)

	m.Process(GenerateTone(997, 1.0, SampleRate/2, Channels, SampleRate))
	m.Process(make([]float32, SampleRate/2*Channels))

	if got := m.Momentary(); got > -60 {
		t.Errorf("meter still reads %.2f after 500ms of silence", got)
	}
}
