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
	"log/slog"
	"time"
)

// DefaultPollInterval is the control surface poll cadence.
const DefaultPollInterval = 100 * time.Millisecond

// Poller reads the control surface state on a fixed cadence and diffs
// consecutive snapshots into edge events. Downstream behaviour (macros,
// lighting reactions) hangs off the callbacks.
type Poller struct {
	session  *Session
	interval time.Duration

	// Callbacks fire on the poller goroutine; they must not block.
	OnButtonDown func(Button)
	OnButtonUp   func(Button)
	OnEncoder    func(Encoder, int8)
	OnMixer      func(mixer int, value uint8)

	prev    StatusSnapshot
	hasPrev bool
}

// NewPoller builds a poller over an open session.
func NewPoller(session *Session, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Poller{
		session:  session,
		interval: interval,
	}
}

// Run polls until stop closes or the session dies. It returns the error
// that killed the session, or nil on a clean stop.
func (p *Poller) Run(stop <-chan struct{}) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}

		snapshot, err := p.session.GetButtonStates()
		if err != nil {
			if p.session.Dead() {
				return err
			}
			slog.Warn("Status poll failed: " + err.Error())
			continue
		}

		p.dispatch(snapshot)
	}
}

// dispatch diffs against the previous snapshot and fires edge callbacks.
// The first snapshot of a session establishes the baseline; a button
// already held at open is not an edge.
func (p *Poller) dispatch(snapshot StatusSnapshot) {
	if !p.hasPrev {
		p.prev = snapshot
		p.hasPrev = true
		return
	}

	delta := snapshot.Diff(p.prev)
	p.prev = snapshot

	if delta.Empty() {
		return
	}

	for _, b := range delta.Pressed {
		if p.OnButtonDown != nil {
			p.OnButtonDown(b)
		}
	}
	for _, b := range delta.Released {
		if p.OnButtonUp != nil {
			p.OnButtonUp(b)
		}
	}
	for enc, value := range delta.Encoders {
		if p.OnEncoder != nil {
			p.OnEncoder(enc, value)
		}
	}
	for mixer, value := range delta.Mixers {
		if p.OnMixer != nil {
			p.OnMixer(mixer, value)
		}
	}
}
