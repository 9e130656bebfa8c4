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
	"math/rand"
	"time"
)

// Segment describes one stretch of generated audio.
type Segment struct {
	Frames   int
	generate func(frame int, channels int, out []float32)
}

// ToneSegment generates a sine tone on every channel.
func ToneSegment(freq, amplitude float64, d time.Duration, sampleRate int) Segment {
	step := 2 * math.Pi * freq / float64(sampleRate)

	return Segment{
		Frames: int(d.Seconds() * float64(sampleRate)),
		generate: func(frame int, channels int, out []float32) {
			v := float32(amplitude * math.Sin(step*float64(frame)))
			for ch := 0; ch < channels; ch++ {
				out[ch] = v
			}
		},
	}
}

// NoiseSegment generates uniform white noise on every channel.
func NoiseSegment(amplitude float64, d time.Duration, sampleRate int) Segment {
	rng := rand.New(rand.NewSource(1))

	return Segment{
		Frames: int(d.Seconds() * float64(sampleRate)),
		generate: func(frame int, channels int, out []float32) {
			for ch := 0; ch < channels; ch++ {
				out[ch] = float32(amplitude * (rng.Float64()*2 - 1))
			}
		},
	}
}

// SyntheticBackend generates audio in software. It backs the --simulate
// mode and the test suite, where no capture hardware is available.
type SyntheticBackend struct {
	segments []Segment
	loop     bool
	realtime bool
}

// NewSyntheticBackend creates a generator backend. A nil segment list
// produces quiet looping background noise.
func NewSyntheticBackend(segments []Segment) *SyntheticBackend {
	loop := false

	if segments == nil {
		segments = []Segment{NoiseSegment(0.001, time.Second, SampleRate)}
		loop = true
	}

	return &SyntheticBackend{segments: segments, loop: loop}
}

// Realtime makes streams pace their output at the nominal sample rate
// instead of returning blocks as fast as they are requested.
func (b *SyntheticBackend) Realtime() *SyntheticBackend {
	b.realtime = true
	return b
}

func (b *SyntheticBackend) Name() string {
	return "synthetic"
}

func (b *SyntheticBackend) ListInputs() ([]InputInfo, error) {
	return []InputInfo{{Name: "synthetic", SampleRate: SampleRate, Channels: Channels}}, nil
}

func (b *SyntheticBackend) OpenInput(match string, cfg StreamConfig) (InputStream, error) {
	return &syntheticStream{
		segments: b.segments,
		loop:     b.loop,
		realtime: b.realtime,
		cfg:      cfg,
	}, nil
}

type syntheticStream struct {
	segments []Segment
	loop     bool
	realtime bool
	cfg      StreamConfig

	segment int
	frame   int
	closed  bool
}

// Read produces the next block. Once the script is exhausted on a
// non-looping stream, it returns ErrStreamClosed.
func (s *syntheticStream) Read(timeout time.Duration) ([]float32, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}

	channels := s.cfg.Channels
	out := make([]float32, s.cfg.BlockFrames*channels)
	frame := make([]float32, channels)

	for i := 0; i < s.cfg.BlockFrames; i++ {
		if s.segment >= len(s.segments) {
			if !s.loop {
				if i == 0 {
					return nil, ErrStreamClosed
				}
				return out[:i*channels], nil
			}

			s.segment = 0
			s.frame = 0
		}

		seg := s.segments[s.segment]
		seg.generate(s.frame, channels, frame)
		copy(out[i*channels:], frame)

		s.frame++
		if s.frame >= seg.Frames {
			s.segment++
			s.frame = 0
		}
	}

	if s.realtime {
		block := time.Duration(s.cfg.BlockFrames) * time.Second / time.Duration(s.cfg.SampleRate)
		time.Sleep(block)
	}

	return out, nil
}

func (s *syntheticStream) Close() error {
	s.closed = true
	return nil
}

// GenerateTone renders an interleaved sine tone, for tests and
// calibration.
func GenerateTone(freq, amplitude float64, frames, channels, sampleRate int) []float32 {
	seg := ToneSegment(freq, amplitude, time.Second, sampleRate)
	out := make([]float32, frames*channels)
	frame := make([]float32, channels)

	for i := 0; i < frames; i++ {
		seg.generate(i, channels, frame)
		copy(out[i*channels:], frame)
	}

	return out
}

// GenerateNoise renders interleaved uniform noise.
func GenerateNoise(amplitude float64, frames, channels int) []float32 {
	seg := NoiseSegment(amplitude, time.Second, SampleRate)
	out := make([]float32, frames*channels)
	frame := make([]float32, channels)

	for i := 0; i < frames; i++ {
		seg.generate(i, channels, frame)
		copy(out[i*channels:], frame)
	}

	return out
}
