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
	"sync"
	"time"

	"goxlrd/usb"
)

const (
	// DefaultScanInterval spaces bus rescans.
	DefaultScanInterval = 100 * time.Millisecond

	// DefaultCooldown keeps a device that died fatally off the active set
	// so a wedged USB state is not hot-looped against.
	DefaultCooldown = 10 * time.Second
)

// Scanner rescans the bus on a fixed interval, tracks presence by
// (bus, address), and reports devices arriving and departing. Devices
// whose sessions die fatally are placed on a timed ignore list.
type Scanner struct {
	scan     func() ([]usb.DeviceInfo, error)
	interval time.Duration
	cooldown time.Duration

	OnArrived  func(usb.DeviceInfo)
	OnDeparted func(usb.DeviceInfo)

	mu      sync.Mutex
	known   map[string]usb.DeviceInfo
	ignored map[string]time.Time
}

// NewScanner builds a scanner over the real bus. Tests replace scan.
func NewScanner(interval, cooldown time.Duration) *Scanner {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	return &Scanner{
		scan:     usb.Scan,
		interval: interval,
		cooldown: cooldown,
		known:    make(map[string]usb.DeviceInfo),
		ignored:  make(map[string]time.Time),
	}
}

// Ignore places a device on the cool-down list. The scanner will not
// report it arriving again until the cool-down elapses, even if it is
// still on the bus.
func (s *Scanner) Ignore(info usb.DeviceInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ignored[info.Location()] = time.Now().Add(s.cooldown)
	delete(s.known, info.Location())
}

// Run rescans until stop closes.
func (s *Scanner) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		s.poll()
	}
}

// poll performs one scan cycle: diff the bus against the known set.
func (s *Scanner) poll() {
	found, err := s.scan()
	if err != nil {
		slog.Warn("Bus scan failed: " + err.Error())
		return
	}

	var arrived, departed []usb.DeviceInfo

	s.mu.Lock()

	now := time.Now()
	present := make(map[string]bool, len(found))

	for _, info := range found {
		loc := info.Location()
		present[loc] = true

		if until, ok := s.ignored[loc]; ok {
			if now.Before(until) {
				continue
			}
			delete(s.ignored, loc)
		}

		if _, ok := s.known[loc]; !ok {
			s.known[loc] = info
			arrived = append(arrived, info)
		}
	}

	for loc, info := range s.known {
		if !present[loc] {
			delete(s.known, loc)
			departed = append(departed, info)
		}
	}

	s.mu.Unlock()

	// Callbacks run outside the lock: arrival handlers open devices,
	// which is slow and can re-enter Ignore.
	for _, info := range departed {
		slog.Info("Device departed: " + info.Location())
		if s.OnDeparted != nil {
			s.OnDeparted(info)
		}
	}
	for _, info := range arrived {
		slog.Info("Device arrived: " + info.Location())
		if s.OnArrived != nil {
			s.OnArrived(info)
		}
	}
}
