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
	"fmt"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"
)

type portAudioBackend struct{}

func newPortAudioBackend() (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	return &portAudioBackend{}, nil
}

func (b *portAudioBackend) Name() string {
	return "portaudio"
}

func (b *portAudioBackend) ListInputs() ([]InputInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating portaudio devices: %w", err)
	}

	infos := make([]InputInfo, 0, len(devices))

	for _, dev := range devices {
		if dev.MaxInputChannels == 0 {
			continue
		}

		infos = append(infos, InputInfo{
			Name:       dev.Name,
			SampleRate: int(dev.DefaultSampleRate),
			Channels:   dev.MaxInputChannels,
		})
	}

	return infos, nil
}

func (b *portAudioBackend) OpenInput(match string, cfg StreamConfig) (InputStream, error) {
	dev, err := b.findInput(match)
	if err != nil {
		return nil, err
	}

	buf := make([]float32, cfg.BlockFrames*cfg.Channels)

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.BlockFrames

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("opening portaudio stream on %s: %w", dev.Name, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("starting portaudio stream: %w", err)
	}

	return &portAudioStream{stream: stream, buf: buf}, nil
}

func (b *portAudioBackend) findInput(match string) (*portaudio.DeviceInfo, error) {
	if match == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, ErrNoInput
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating portaudio devices: %w", err)
	}

	for _, dev := range devices {
		if dev.MaxInputChannels > 0 && strings.Contains(strings.ToLower(dev.Name), strings.ToLower(match)) {
			return dev, nil
		}
	}

	return nil, ErrNoInput
}

type portAudioStream struct {
	stream *portaudio.Stream
	buf    []float32
	closed bool
}

// Read blocks for at most one buffer period, so the caller's timeout is
// honored at block granularity rather than enforced exactly.
func (s *portAudioStream) Read(timeout time.Duration) ([]float32, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}

	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("reading portaudio stream: %w", err)
	}

	out := make([]float32, len(s.buf))
	copy(out, s.buf)
	return out, nil
}

func (s *portAudioStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.stream.Stop()
	return s.stream.Close()
}
