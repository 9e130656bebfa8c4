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
	"log/slog"
	"sync"
	"time"
)

// ErrNotReady is returned when a recording is requested before the
// capture stream is up.
var ErrNotReady = errors.New("capture stream is not ready")

// reopenDelay is how long the capture loop waits before trying to
// reacquire a lost input stream.
const reopenDelay = time.Second

// EngineConfig describes the capture pipeline.
type EngineConfig struct {
	DeviceMatch     string
	SampleRate      int
	Channels        int
	BlockFrames     int
	PrerollSeconds  float64
	GateThresholdDB float64
	ProducerBuffer  int
}

// Engine owns the capture stream, the pre-roll ring buffer and the
// consumer fan-out. It keeps reading from the backend for its whole
// lifetime; recordings attach and detach as consumers.
type Engine struct {
	cfg      EngineConfig
	backend  Backend
	preroll  *RingBuffer
	registry *ProducerRegistry

	mu    sync.Mutex
	ready bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewEngine builds a capture engine on the given backend.
func NewEngine(cfg EngineConfig, backend Backend) *Engine {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = SampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = Channels
	}
	if cfg.BlockFrames == 0 {
		cfg.BlockFrames = DefaultStreamConfig().BlockFrames
	}
	if cfg.ProducerBuffer == 0 {
		cfg.ProducerBuffer = 32
	}

	prerollSamples := int(cfg.PrerollSeconds*float64(cfg.SampleRate)) * cfg.Channels

	return &Engine{
		cfg:      cfg,
		backend:  backend,
		preroll:  NewRingBuffer(prerollSamples),
		registry: NewProducerRegistry(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run drives the capture loop until Stop is called. A lost stream is
// dropped, the pre-roll is cleared, and the input is reacquired.
func (e *Engine) Run() {
	defer close(e.done)

	cfg := StreamConfig{
		SampleRate:  e.cfg.SampleRate,
		Channels:    e.cfg.Channels,
		BlockFrames: e.cfg.BlockFrames,
	}
	blockDuration := time.Duration(cfg.BlockFrames) * time.Second / time.Duration(cfg.SampleRate)
	readTimeout := blockDuration * 4

	for {
		select {
		case <-e.stop:
			return
		default:
		}

		stream, err := e.backend.OpenInput(e.cfg.DeviceMatch, cfg)
		if err != nil {
			slog.Warn("Could not open capture stream: " + err.Error())

			select {
			case <-e.stop:
				return
			case <-time.After(reopenDelay):
			}
			continue
		}

		slog.Info("Capture stream opened on backend " + e.backend.Name())
		e.setReady(true)
		e.readLoop(stream, readTimeout)
		e.setReady(false)

		stream.Close()
		e.preroll.Clear()

		select {
		case <-e.stop:
			return
		case <-time.After(reopenDelay):
		}
	}
}

func (e *Engine) readLoop(stream InputStream, timeout time.Duration) {
	for {
		select {
		case <-e.stop:
			return
		default:
		}

		block, err := stream.Read(timeout)
		if errors.Is(err, ErrReadTimeout) {
			continue
		}
		if err != nil {
			slog.Warn("Capture stream lost: " + err.Error())
			return
		}

		e.preroll.Write(block)
		e.registry.Fanout(block)
	}
}

// StartRecording attaches a gated recording session fed by the pre-roll
// contents followed by the live stream.
func (e *Engine) StartRecording(path string) (*RecordingSession, error) {
	e.mu.Lock()
	ready := e.ready
	e.mu.Unlock()

	if !ready {
		return nil, ErrNotReady
	}

	id, blocks := e.registry.Register(e.cfg.ProducerBuffer)
	preroll := e.preroll.Drain()

	session, err := StartSession(SessionConfig{
		Path:            path,
		SampleRate:      e.cfg.SampleRate,
		Channels:        e.cfg.Channels,
		GateThresholdDB: e.cfg.GateThresholdDB,
	}, preroll, blocks, func() { e.registry.Unregister(id) })
	if err != nil {
		e.registry.Unregister(id)
		return nil, err
	}

	return session, nil
}

// Ready reports whether the capture stream is currently up.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *Engine) setReady(ready bool) {
	e.mu.Lock()
	e.ready = ready
	e.mu.Unlock()
}

// Stop shuts the capture loop down. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
	<-e.done
}
