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
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultGateThresholdDB is the loudness level, in LUFS, a recording must
// reach before its output file is considered worth keeping.
const DefaultGateThresholdDB = -45.0

// gateChunk is the granularity at which the loudness gate is evaluated.
const gateChunk = 50 * time.Millisecond

// ProducerRegistry fans captured audio blocks out to any number of
// consumers. A consumer that stops draining its channel loses blocks but
// never stalls the capture loop or its sibling consumers.
type ProducerRegistry struct {
	mu        sync.Mutex
	nextID    uint32
	producers map[uint32]chan []float32
}

func NewProducerRegistry() *ProducerRegistry {
	return &ProducerRegistry{producers: make(map[uint32]chan []float32)}
}

// Register adds a consumer and returns its handle and block channel.
func (r *ProducerRegistry) Register(buffer int) (uint32, <-chan []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	ch := make(chan []float32, buffer)
	r.producers[r.nextID] = ch

	return r.nextID, ch
}

// Unregister removes a consumer. Its channel is left open; consumers
// end on their own stop signal, so a block in flight is never sent on a
// closed channel.
func (r *ProducerRegistry) Unregister(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.producers, id)
}

// Fanout delivers a block to every registered consumer without
// blocking. The registry lock covers only the snapshot, not the sends.
func (r *ProducerRegistry) Fanout(block []float32) {
	type target struct {
		id uint32
		ch chan []float32
	}

	r.mu.Lock()
	targets := make([]target, 0, len(r.producers))
	for id, ch := range r.producers {
		targets = append(targets, target{id, ch})
	}
	r.mu.Unlock()

	for _, t := range targets {
		select {
		case t.ch <- block:
		default:
			slog.Debug("Consumer " + fmt.Sprint(t.id) + " is not keeping up, dropping block")
		}
	}
}

// Count returns the number of registered consumers.
func (r *ProducerRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.producers)
}

// SessionConfig describes one gated recording.
type SessionConfig struct {
	Path            string
	SampleRate      int
	Channels        int
	GateThresholdDB float64
}

// RecordingSession writes captured audio to a WAV file behind a loudness
// gate. Audio is held back until a 50ms chunk reaches the gate threshold;
// from that point on everything is written. If the gate never opens the
// output file is deleted when the session ends.
type RecordingSession struct {
	ID  uuid.UUID
	cfg SessionConfig

	file   *OutputFile
	meter  *LoudnessMeter
	blocks <-chan []float32
	detach func()

	chunkSamples int
	pending      []float32

	mu      sync.Mutex
	latched bool
	err     error

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// StartSession opens the output file and begins consuming blocks. The
// preroll samples are processed before anything read from the channel.
// detach is invoked once when the session stops consuming, so the caller
// can unregister it from the fan-out registry.
func StartSession(cfg SessionConfig, preroll []float32, blocks <-chan []float32, detach func()) (*RecordingSession, error) {
	if cfg.GateThresholdDB == 0 {
		cfg.GateThresholdDB = DefaultGateThresholdDB
	}

	file, err := NewOutputFile(cfg.Path, cfg.SampleRate, cfg.Channels)
	if err != nil {
		return nil, err
	}

	s := &RecordingSession{
		ID:           uuid.New(),
		cfg:          cfg,
		file:         file,
		meter:        NewLoudnessMeter(cfg.SampleRate, cfg.Channels),
		blocks:       blocks,
		detach:       detach,
		chunkSamples: int(gateChunk.Seconds()*float64(cfg.SampleRate)) * cfg.Channels,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	go s.run(preroll)
	return s, nil
}

func (s *RecordingSession) run(preroll []float32) {
	defer close(s.done)
	defer s.detach()

	if len(preroll) > 0 {
		s.process(preroll)
	}

	for {
		select {
		case <-s.stop:
			s.finalize()
			return
		case block, ok := <-s.blocks:
			if !ok {
				s.finalize()
				return
			}
			s.process(block)
		}
	}
}

// process evaluates complete gate chunks and writes them once latched.
func (s *RecordingSession) process(block []float32) {
	s.pending = append(s.pending, block...)

	for len(s.pending) >= s.chunkSamples {
		chunk := s.pending[:s.chunkSamples]
		s.pending = s.pending[s.chunkSamples:]
		s.writeChunk(chunk)
	}
}

func (s *RecordingSession) writeChunk(chunk []float32) {
	s.meter.Process(chunk)

	s.mu.Lock()
	if !s.latched && s.meter.Momentary() >= s.cfg.GateThresholdDB {
		s.latched = true
		slog.Info("Gate opened for recording " + s.cfg.Path)
	}
	latched := s.latched
	s.mu.Unlock()

	if !latched {
		return
	}

	if err := s.file.Write(chunk); err != nil {
		s.setErr(err)
	}
}

func (s *RecordingSession) finalize() {
	s.mu.Lock()
	latched := s.latched
	s.mu.Unlock()

	if latched && len(s.pending) > 0 {
		if err := s.file.Write(s.pending); err != nil {
			s.setErr(err)
		}
	}
	s.pending = nil

	if err := s.file.Close(); err != nil {
		s.setErr(err)
	}

	if !latched {
		slog.Info("Recording " + s.cfg.Path + " never reached the gate threshold, deleting")
		if err := s.file.Delete(); err != nil {
			s.setErr(err)
		}
	}
}

func (s *RecordingSession) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Stop ends the session. Safe to call more than once.
func (s *RecordingSession) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Wait blocks until the session has finished writing and returns the
// first error it hit, if any.
func (s *RecordingSession) Wait() error {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Started reports whether the loudness gate has opened.
func (s *RecordingSession) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched
}

// Path returns the output file path.
func (s *RecordingSession) Path() string {
	return s.cfg.Path
}
