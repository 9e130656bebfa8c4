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
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/gen2brain/malgo"
)

type malgoBackend struct {
	ctx *malgo.AllocatedContext
}

func newMalgoBackend() (Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("miniaudio: " + strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("initializing miniaudio context: %w", err)
	}

	return &malgoBackend{ctx: ctx}, nil
}

func (b *malgoBackend) Name() string {
	return "miniaudio"
}

func (b *malgoBackend) ListInputs() ([]InputInfo, error) {
	devices, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerating capture devices: %w", err)
	}

	infos := make([]InputInfo, 0, len(devices))
	for _, dev := range devices {
		infos = append(infos, InputInfo{Name: dev.Name()})
	}

	return infos, nil
}

func (b *malgoBackend) OpenInput(match string, cfg StreamConfig) (InputStream, error) {
	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = uint32(cfg.Channels)
	deviceCfg.SampleRate = uint32(cfg.SampleRate)

	if match != "" {
		id, err := b.findInput(match)
		if err != nil {
			return nil, err
		}
		deviceCfg.Capture.DeviceID = id.Pointer()
	}

	// Sized to hold roughly a second of blocks before the callback
	// starts dropping.
	stream := &malgoStream{blocks: make(chan []float32, 16)}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			samples := decodeF32LE(input, int(frameCount)*cfg.Channels)

			select {
			case stream.blocks <- samples:
			default:
				slog.Warn("Capture callback overrun, dropping " + fmt.Sprint(frameCount) + " frames")
			}
		},
	}

	device, err := malgo.InitDevice(b.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("opening capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("starting capture device: %w", err)
	}

	stream.device = device
	return stream, nil
}

func (b *malgoBackend) findInput(match string) (malgo.DeviceID, error) {
	devices, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("enumerating capture devices: %w", err)
	}

	for _, dev := range devices {
		if strings.Contains(strings.ToLower(dev.Name()), strings.ToLower(match)) {
			return dev.ID, nil
		}
	}

	return malgo.DeviceID{}, ErrNoInput
}

type malgoStream struct {
	device *malgo.Device
	blocks chan []float32
	closed bool
}

func (s *malgoStream) Read(timeout time.Duration) ([]float32, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}

	select {
	case block, ok := <-s.blocks:
		if !ok {
			return nil, ErrStreamClosed
		}
		return block, nil
	case <-time.After(timeout):
		return nil, ErrReadTimeout
	}
}

func (s *malgoStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.device.Uninit()
	return nil
}

func decodeF32LE(raw []byte, samples int) []float32 {
	out := make([]float32, samples)
	for i := 0; i < samples && (i+1)*4 <= len(raw); i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}
