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
package usb

import "errors"

// Transport errors.
var (
	// ErrPipe indicates a stalled control pipe. On the GoXLR this means
	// the vendor interface has never been activated since power-on.
	ErrPipe = errors.New("control pipe stalled")

	// ErrTimeout indicates a transfer timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrNoDevice indicates the device is no longer present on the bus.
	ErrNoDevice = errors.New("device not present")

	// ErrAccess indicates insufficient permissions to open the device.
	ErrAccess = errors.New("insufficient permissions")

	// ErrBusy indicates the device or interface is held by another driver.
	ErrBusy = errors.New("device busy")
)

// Protocol errors. Both are fatal to the session that observes them;
// there is no resync path, the device must be closed and rediscovered.
var (
	// ErrLengthMismatch indicates the response body was shorter than the
	// length declared in its header.
	ErrLengthMismatch = errors.New("response length mismatch")

	// ErrIndexMismatch indicates the command index echoed by the device
	// does not match the request that was just sent.
	ErrIndexMismatch = errors.New("command index mismatch")
)

// ErrNotGoXLR indicates a device matched by VID/PID but missing the
// expected language descriptors. Treated as misidentification, skipped.
var ErrNotGoXLR = errors.New("device is not a GoXLR")
