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

// Package reaper coordinates daemon shutdown: long-running goroutines
// register by name, cleanup callbacks run in reverse registration order
// once Reap is called, and Wait blocks until every registration is done.
package reaper

import (
	"log/slog"
	"slices"
	"sync"
)

var (
	mu            sync.Mutex
	reapRequested bool
	callbacks     []callback
	registrations []string
	waitgroup     sync.WaitGroup
)

type callback struct {
	name         string
	callbackFunc func()
}

// Reaped reports whether shutdown has been requested. Worker loops poll
// this between units of work.
func Reaped() bool {
	mu.Lock()
	defer mu.Unlock()
	return reapRequested
}

// Reap requests shutdown and runs the registered callbacks, newest
// first. Calling it again is a no-op.
func Reap() {
	mu.Lock()
	if reapRequested {
		mu.Unlock()
		return
	}
	reapRequested = true
	toRun := slices.Clone(callbacks)
	mu.Unlock()

	slices.Reverse(toRun)

	for _, cb := range toRun {
		slog.Info("reaper: calling reap callback for '" + cb.name + "'")
		cb.callbackFunc()
	}
}

// Callback registers a cleanup function to run during Reap.
func Callback(name string, callbackFunc func()) {
	mu.Lock()
	defer mu.Unlock()

	callbacks = append(callbacks, callback{
		name:         name,
		callbackFunc: callbackFunc,
	})
}

// Register marks a named goroutine as running. Wait blocks until every
// registered name has called Done.
func Register(name string) {
	mu.Lock()
	defer mu.Unlock()

	if slices.Contains(registrations, name) {
		slog.Warn("reaper: already registered '" + name + "'")
		return
	}

	registrations = append(registrations, name)
	waitgroup.Add(1)
	slog.Debug("reaper: registered '" + name + "'")
}

// Done marks a registered goroutine as finished.
func Done(name string) {
	mu.Lock()
	defer mu.Unlock()

	if !slices.Contains(registrations, name) {
		slog.Warn("reaper: already done or doesn't exist: '" + name + "'")
		return
	}

	registrations = slices.DeleteFunc(registrations, func(test string) bool {
		return test == name
	})

	slog.Debug("reaper: done: '" + name + "'")
	waitgroup.Done()
}

// Wait blocks until every registered goroutine has called Done.
func Wait() {
	waitgroup.Wait()
}
