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
	"fmt"
	"time"
)

// Capture pipeline fixed format. The GoXLR's sampler stream is 48kHz
// stereo; resampling, when a backend needs it, happens inside the
// backend, never in the ring buffer or the gate.
const (
	SampleRate = 48000
	Channels   = 2
)

// Backend errors.
var (
	// ErrNoInput indicates no input device matched the configured name.
	ErrNoInput = errors.New("no matching input device")

	// ErrReadTimeout indicates a bounded stream read elapsed with no
	// audio. Not fatal; the caller rechecks its stop flag and reads
	// again.
	ErrReadTimeout = errors.New("stream read timed out")

	// ErrStreamClosed indicates the stream was closed under the reader.
	ErrStreamClosed = errors.New("stream closed")
)

// StreamConfig is the open parameters for one input stream.
type StreamConfig struct {
	SampleRate  int
	Channels    int
	BlockFrames int // frames per read, bounds the blocking time
}

// DefaultStreamConfig returns the pipeline's fixed capture format with a
// 100ms block.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate:  SampleRate,
		Channels:    Channels,
		BlockFrames: SampleRate / 10,
	}
}

// InputInfo describes one capture device a backend exposes.
type InputInfo struct {
	ID         string
	Name       string
	SampleRate int
	Channels   int
}

// InputStream is one open capture stream. Read blocks for at most
// roughly the block duration (or the given timeout, whichever the
// backend can honour) so shutdown signals are observed promptly.
type InputStream interface {
	// Read returns the next block of interleaved float32 samples. A
	// quiet period returns ErrReadTimeout; any other error means the
	// stream is gone and must be reopened.
	Read(timeout time.Duration) ([]float32, error)

	Close() error
}

// Backend is one platform audio implementation. The gate and ring
// buffer logic above it is backend-agnostic.
type Backend interface {
	Name() string
	ListInputs() ([]InputInfo, error)

	// OpenInput opens the first input whose name contains match
	// (case-insensitive; empty picks the default device).
	OpenInput(match string, cfg StreamConfig) (InputStream, error)
}

// NewBackend selects a backend by configured name. "auto" prefers
// PortAudio.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "", "auto", "portaudio":
		return newPortAudioBackend()
	case "malgo", "miniaudio":
		return newMalgoBackend()
	case "synthetic":
		return NewSyntheticBackend(nil), nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", name)
}
