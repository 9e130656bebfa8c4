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
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"goxlrd/usb"
)

// Vendor request numbers on the control pipe.
const (
	requestActivation uint8 = 0 // IN, 24-byte activation status
	requestWake       uint8 = 1 // OUT, no body
	requestCommand    uint8 = 2 // OUT, framed command
	requestResponse   uint8 = 3 // IN, framed response
)

const (
	// responsePollDelay is how long the simple path sleeps between the
	// command write and the response read. The protocol has no ready
	// signal on this path; the firmware needs a moment to process.
	responsePollDelay = 10 * time.Millisecond

	// interruptWaitTimeout caps the blocking interrupt wait on the
	// advanced path.
	interruptWaitTimeout = 60 * time.Second

	// requestAttempts bounds retries of transient transfer errors before
	// the session is declared dead.
	requestAttempts = 3

	// retryDelay spaces transient-error retries.
	retryDelay = 50 * time.Millisecond
)

// WaitStrategy selects how request() waits for the firmware to finish
// processing a command. Both are valid; a session picks one at open time
// and never mixes them.
type WaitStrategy int

const (
	// WaitSleep sleeps a fixed delay, then polls the response buffer.
	WaitSleep WaitStrategy = iota

	// WaitInterrupt blocks on the interrupt endpoint until the device
	// signals readiness.
	WaitInterrupt
)

// ParseWaitStrategy maps the config spelling onto a strategy.
func ParseWaitStrategy(name string) (WaitStrategy, error) {
	switch name {
	case "", "sleep":
		return WaitSleep, nil
	case "interrupt":
		return WaitInterrupt, nil
	}
	return WaitSleep, fmt.Errorf("unknown wait strategy %q", name)
}

// Session errors.
var (
	// ErrSessionDead indicates the session hit a fatal error or was
	// closed; the device must be rediscovered.
	ErrSessionDead = errors.New("device session is dead")
)

// Session owns an open, claimed GoXLR and serializes the command
// protocol against it. The command index scheme allows one in-flight
// request per device, so every operation funnels through a mutex.
type Session struct {
	handle   usb.Handle
	info     usb.DeviceInfo
	desc     usb.Descriptor
	strategy WaitStrategy

	mu           sync.Mutex
	commandIndex uint16
	activated    bool
	dead         bool
	closed       bool
}

// Open claims the device behind handle and brings the command protocol
// up: language descriptor check, configuration 1, interface 0, then a
// ResetCommandIndex as the first command of the fresh session.
func Open(handle usb.Handle, info usb.DeviceInfo, strategy WaitStrategy) (*Session, error) {
	langs, err := handle.ReadLanguages()
	if err != nil {
		return nil, fmt.Errorf("probing device %s: %w", info.Location(), err)
	}
	if len(langs) == 0 {
		return nil, fmt.Errorf("device %s reports no languages: %w", info.Location(), usb.ErrNotGoXLR)
	}

	if err := handle.SetConfiguration(1); err != nil {
		return nil, err
	}
	if err := handle.ClaimInterface(0); err != nil {
		return nil, err
	}

	s := &Session{
		handle:   handle,
		info:     info,
		desc:     handle.Descriptor(),
		strategy: strategy,
	}

	if _, err := s.Request(usb.CommandResetCommandIndex, nil); err != nil {
		return nil, fmt.Errorf("resetting command index: %w", err)
	}

	return s, nil
}

// Info returns the bus identity this session was opened against.
func (s *Session) Info() usb.DeviceInfo {
	return s.info
}

// Descriptor returns the USB identity strings cached at open.
func (s *Session) Descriptor() usb.Descriptor {
	return s.desc
}

// Dead reports whether the session hit a fatal error. A dead session
// rejects all requests; the owner must forget the device and let the
// scanner rediscover it after its cool-down.
func (s *Session) Dead() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dead
}

// Close releases the interface and the underlying handle. Safe to call
// more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.dead = true
	s.mu.Unlock()

	s.handle.ReleaseInterface(0)
	return s.handle.Close()
}

// Request is the choke point every typed operation funnels through: it
// frames the command, performs the write/wait/read round trip, and
// validates the echoed length and index. Transient transfer errors are
// retried a bounded number of times; protocol desync is fatal.
func (s *Session) Request(commandID uint32, body []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead {
		return nil, ErrSessionDead
	}

	var lastErr error

	for attempt := 0; attempt < requestAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		response, err := s.roundTrip(commandID, body)
		if err == nil {
			return response, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, usb.ErrPipe) && !s.activated:
			// A stall here means the device has sat untouched since
			// power-on and needs the one-time activation handshake, not
			// a retry.
			if aerr := s.activate(); aerr != nil {
				s.dead = true
				return nil, fmt.Errorf("activating device %s: %w", s.info.Location(), aerr)
			}
			continue

		case errors.Is(err, usb.ErrLengthMismatch), errors.Is(err, usb.ErrIndexMismatch):
			// Desync has no recovery path; resyncing would risk pairing
			// responses with the wrong requests.
			s.dead = true
			return nil, err

		case errors.Is(err, usb.ErrNoDevice), errors.Is(err, usb.ErrAccess):
			s.dead = true
			return nil, err
		}

		slog.Warn(fmt.Sprintf("Command 0x%x failed, retrying: %v", commandID, err))
	}

	s.dead = true
	return nil, fmt.Errorf("request 0x%x failed after %d attempts: %w", commandID, requestAttempts, lastErr)
}

func (s *Session) roundTrip(commandID uint32, body []byte) ([]byte, error) {
	index := s.nextIndex()
	frame := usb.EncodeFrame(commandID, index, body)

	if _, err := s.handle.VendorWrite(requestCommand, 0, 0, frame); err != nil {
		return nil, fmt.Errorf("command write: %w", err)
	}

	s.waitForResponse()

	buf := make([]byte, usb.ResponseBufferSize)
	n, err := s.handle.VendorRead(requestResponse, 0, 0, buf)
	if err != nil {
		return nil, fmt.Errorf("response read: %w", err)
	}

	response, err := usb.DecodeFrame(buf[:n])
	if err != nil {
		return nil, err
	}

	if response.Index != index {
		return nil, fmt.Errorf("sent index %d, device echoed %d: %w",
			index, response.Index, usb.ErrIndexMismatch)
	}

	return response.Body, nil
}

// nextIndex allocates the next command index. It wraps silently: the
// index correlates one round trip, it is not a long-lived sequence
// number.
func (s *Session) nextIndex() uint16 {
	s.commandIndex++
	return s.commandIndex
}

func (s *Session) waitForResponse() {
	if s.strategy == WaitSleep {
		time.Sleep(responsePollDelay)
		return
	}

	buf := make([]byte, 6)
	if _, err := s.handle.InterruptRead(usb.InterruptEndpoint, buf, interruptWaitTimeout); err != nil {
		// The response buffer may still be valid; fall through to the
		// read rather than failing the round trip here.
		slog.Debug("Interrupt wait failed: " + err.Error())
	}
}

// activate performs the one-time per-physical-connection fixup for a
// device whose vendor interface has never been touched since power-on:
// wake it, read the activation status, enable the audio interface at
// 48kHz, then reset the port so it re-enumerates initialised.
func (s *Session) activate() error {
	slog.Info("Device " + s.info.Location() + " is uninitialised, running activation handshake")

	if err := s.handle.ClaimInterface(0); err != nil {
		return err
	}

	if _, err := s.handle.VendorWrite(requestWake, 0, 0, nil); err != nil {
		return fmt.Errorf("wake request: %w", err)
	}

	status := make([]byte, 24)
	if _, err := s.handle.VendorRead(requestActivation, 0, 0, status); err != nil {
		return fmt.Errorf("activation status read: %w", err)
	}

	// UAC SET_CUR on the sampling frequency control: 48000Hz, which also
	// brings the audio interface out of its idle state.
	if _, err := s.handle.ClassWrite(0x01, 0x0100, 0x2900, []byte{0x80, 0xbb, 0x00, 0x00}); err != nil {
		return fmt.Errorf("enabling audio interface: %w", err)
	}

	if err := s.handle.Reset(); err != nil {
		return fmt.Errorf("post-activation reset: %w", err)
	}

	s.activated = true
	return nil
}
