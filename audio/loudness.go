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

import "math"

// momentaryWindow is the BS.1770 momentary loudness window.
const momentaryWindowSeconds = 0.4

// biquad is a second-order IIR section in transposed direct form II.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// kWeighting is the two-stage BS.1770 pre-filter: a high-frequency shelf
// modelling head diffraction, then the RLB high-pass. Coefficients are
// the standard's reference values for 48kHz.
type kWeighting struct {
	shelf    biquad
	highpass biquad
}

func newKWeighting() kWeighting {
	return kWeighting{
		shelf: biquad{
			b0: 1.53512485958697,
			b1: -2.69169618940638,
			b2: 1.19839281085285,
			a1: -1.69065929318241,
			a2: 0.73248077421585,
		},
		highpass: biquad{
			b0: 1.0,
			b1: -2.0,
			b2: 1.0,
			a1: -1.99004745483398,
			a2: 0.99007225036621,
		},
	}
}

func (k *kWeighting) process(x float64) float64 {
	return k.highpass.process(k.shelf.process(x))
}

// LoudnessMeter measures BS.1770-style momentary loudness over an
// interleaved float32 stream: per-channel K-weighting, mean square over
// a sliding 400ms window, channels summed.
type LoudnessMeter struct {
	channels int
	filters  []kWeighting

	window []float64 // per-frame summed weighted squares
	head   int
	filled int
	sum    float64
}

// NewLoudnessMeter builds a meter for interleaved audio at the given
// sample rate and channel count. Only 48kHz filter coefficients are
// carried; the capture pipeline is fixed at 48kHz.
func NewLoudnessMeter(sampleRate, channels int) *LoudnessMeter {
	if channels < 1 {
		channels = 1
	}

	filters := make([]kWeighting, channels)
	for i := range filters {
		filters[i] = newKWeighting()
	}

	frames := int(float64(sampleRate) * momentaryWindowSeconds)
	if frames < 1 {
		frames = 1
	}

	return &LoudnessMeter{
		channels: channels,
		filters:  filters,
		window:   make([]float64, frames),
	}
}

// Process feeds interleaved samples through the filters and the window.
// Trailing samples short of a full frame are dropped.
func (m *LoudnessMeter) Process(samples []float32) {
	for i := 0; i+m.channels <= len(samples); i += m.channels {
		var frameEnergy float64

		for ch := 0; ch < m.channels; ch++ {
			w := m.filters[ch].process(float64(samples[i+ch]))
			frameEnergy += w * w
		}
		// channel mean keeps a mono and a dual-mono signal reading alike
		frameEnergy /= float64(m.channels)

		m.sum -= m.window[m.head]
		m.window[m.head] = frameEnergy
		m.sum += frameEnergy

		m.head++
		if m.head == len(m.window) {
			m.head = 0
		}
		if m.filled < len(m.window) {
			m.filled++
		}
	}
}

// Momentary returns the current momentary loudness in dB (LUFS-style,
// -0.691 offset per BS.1770). Returns -Inf before any audio arrives.
func (m *LoudnessMeter) Momentary() float64 {
	if m.filled == 0 || m.sum <= 0 {
		return math.Inf(-1)
	}

	meanSquare := m.sum / float64(m.filled)
	return -0.691 + 10*math.Log10(meanSquare)
}
