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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

// chunkFrames matches the gate evaluation granularity at 48kHz.
const chunkFrames = SampleRate / 20

func runSession(t *testing.T, path string, thresholdDB float64, blocks ...[]float32) *RecordingSession {
	t.Helper()

	ch := make(chan []float32, len(blocks))
	for _, b := range blocks {
		ch <- b
	}
	close(ch)

	session, err := StartSession(SessionConfig{
		Path:            path,
		SampleRate:      SampleRate,
		Channels:        Channels,
		GateThresholdDB: thresholdDB,
	}, nil, ch, func() {})
	if err != nil {
		t.Fatalf("starting session: %v", err)
	}

	if err := session.Wait(); err != nil {
		t.Fatalf("session failed: %v", err)
	}

	return session
}

func TestSessionGateLatchesPermanently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latch.wav")

	// 200ms of tone, then 400ms of silence
	session := runSession(t, path, -45,
		GenerateTone(997, 0.5, 4*chunkFrames, Channels, SampleRate),
		make([]float32, 8*chunkFrames*Channels),
	)

	if !session.Started() {
		t.Fatal("gate never opened on a -6dB tone")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}

	// the silent tail is written too: the gate never closes again
	decoder := mustDecode(t, path)
	if dur := mustDuration(t, decoder); dur < 550*time.Millisecond {
		t.Errorf("recording is %v, expected the silent tail to be kept", dur)
	}
}

func TestSessionDeletesSilentRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silent.wav")

	// 500ms of noise well under the gate threshold
	session := runSession(t, path, -45,
		GenerateNoise(0.001, 10*chunkFrames, Channels),
	)

	if session.Started() {
		t.Fatal("gate opened on -60dB noise")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("silent recording was not deleted: %v", err)
	}
}

// Quiet noise followed by a short tone: only the tone makes it to disk,
// starting from the chunk that opened the gate.
func TestSessionGatesOutLeadingNoise(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gated.wav")

	session := runSession(t, path, -80,
		GenerateNoise(0.00003, 6*chunkFrames, Channels), // about -90dB, 300ms
		GenerateTone(997, 0.1, 4*chunkFrames, Channels, SampleRate), // -20dB, 200ms
	)

	if !session.Started() {
		t.Fatal("gate never opened on the tone")
	}

	decoder := mustDecode(t, path)
	dur := mustDuration(t, decoder)

	if dur < 150*time.Millisecond || dur > 250*time.Millisecond {
		t.Errorf("recording is %v, expected about 200ms", dur)
	}
}

func TestSessionWritesFloatWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "format.wav")

	runSession(t, path, -45,
		GenerateTone(997, 0.5, 4*chunkFrames, Channels, SampleRate),
	)

	decoder := mustDecode(t, path)
	if decoder.WavAudioFormat != wavFormatIEEEFloat {
		t.Errorf("audio format is %d, expected %d", decoder.WavAudioFormat, wavFormatIEEEFloat)
	}
	if decoder.BitDepth != 32 {
		t.Errorf("bit depth is %d, expected 32", decoder.BitDepth)
	}
	if decoder.SampleRate != SampleRate {
		t.Errorf("sample rate is %d, expected %d", decoder.SampleRate, SampleRate)
	}
	if int(decoder.NumChans) != Channels {
		t.Errorf("channel count is %d, expected %d", decoder.NumChans, Channels)
	}
}

func TestRegistryStalledConsumerIsIsolated(t *testing.T) {
	registry := NewProducerRegistry()

	_, stalled := registry.Register(1)
	healthyID, healthy := registry.Register(200)

	block := make([]float32, 64)
	for i := 0; i < 100; i++ {
		registry.Fanout(block)
	}

	if got := len(healthy); got != 100 {
		t.Errorf("healthy consumer received %d blocks, expected 100", got)
	}
	if got := len(stalled); got != 1 {
		t.Errorf("stalled consumer holds %d blocks, expected its buffer of 1", got)
	}

	registry.Unregister(healthyID)
	if registry.Count() != 1 {
		t.Errorf("registry holds %d consumers after unregister, expected 1", registry.Count())
	}

	registry.Fanout(block)
	if got := len(healthy); got != 100 {
		t.Errorf("unregistered consumer received a block, holds %d", got)
	}
}

func TestEngineNotReadyBeforeStreamOpens(t *testing.T) {
	engine := NewEngine(EngineConfig{}, NewSyntheticBackend(nil))

	if engine.Ready() {
		t.Fatal("engine reports ready before Run")
	}
	if _, err := engine.StartRecording(filepath.Join(t.TempDir(), "never.wav")); !errors.Is(err, ErrNotReady) {
		t.Errorf("StartRecording returned %v, expected ErrNotReady", err)
	}
}

func TestEngineCapturesAndGates(t *testing.T) {
	backend := NewSyntheticBackend(nil).Realtime()
	engine := NewEngine(EngineConfig{
		PrerollSeconds:  0.2,
		GateThresholdDB: -45,
	}, backend)

	go engine.Run()
	defer engine.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for !engine.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("engine never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	path := filepath.Join(t.TempDir(), "quiet.wav")
	session, err := engine.StartRecording(path)
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	session.Stop()
	if err := session.Wait(); err != nil {
		t.Fatalf("session failed: %v", err)
	}

	// the default synthetic signal sits far below the gate
	if session.Started() {
		t.Error("gate opened on background noise")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("quiet recording was not deleted: %v", err)
	}
}

func mustDecode(t *testing.T, path string) *wav.Decoder {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	t.Cleanup(func() { f.Close() })

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		t.Fatalf("%s is not a valid WAV file", path)
	}

	f.Seek(0, 0)
	decoder = wav.NewDecoder(f)
	decoder.ReadInfo()
	return decoder
}

func mustDuration(t *testing.T, decoder *wav.Decoder) time.Duration {
	t.Helper()

	dur, err := decoder.Duration()
	if err != nil {
		t.Fatalf("reading duration: %v", err)
	}
	return dur
}
