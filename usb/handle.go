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

import (
	"fmt"
	"time"
)

// USB identity of the GoXLR hardware.
const (
	VendorID      uint16 = 0x1220
	ProductIDFull uint16 = 0x8fe0
	ProductIDMini uint16 = 0x8fe4
)

// InterruptEndpoint is the IN endpoint the device raises when a command
// response or a state change is ready.
const InterruptEndpoint uint8 = 0x81

// DeviceInfo identifies one enumeration point on the bus. It is not an
// open handle: scans rebuild it every cycle and presence is tracked by
// comparing (bus, address) pairs.
type DeviceInfo struct {
	Bus       int
	Address   int
	VendorID  uint16
	ProductID uint16
}

// Location renders the (bus, address) pair used as the device's identity
// between scan cycles.
func (d DeviceInfo) Location() string {
	return fmt.Sprintf("%d:%d", d.Bus, d.Address)
}

// SameLocation reports whether two scan results describe the same
// physical enumeration point.
func (d DeviceInfo) SameLocation(other DeviceInfo) bool {
	return d.Bus == other.Bus && d.Address == other.Address
}

// IsMini reports whether the device is the GoXLR Mini variant.
func (d DeviceInfo) IsMini() bool {
	return d.ProductID == ProductIDMini
}

// Descriptor carries the identity strings read from an open device.
type Descriptor struct {
	VendorID     uint16
	ProductID    uint16
	Version      string
	Manufacturer string
	Product      string
}

// Handle is the raw transport under a device session: vendor and class
// control transfers plus the interrupt endpoint, over an open, claimed
// USB device. Implementations are the libusb-backed handle and in-memory
// handles for tests.
type Handle interface {
	// VendorWrite issues a vendor control OUT transfer.
	VendorWrite(request uint8, value, index uint16, data []byte) (int, error)

	// VendorRead issues a vendor control IN transfer into data.
	VendorRead(request uint8, value, index uint16, data []byte) (int, error)

	// ClassWrite issues a class control OUT transfer against the claimed
	// interface. Used once, during device activation.
	ClassWrite(request uint8, value, index uint16, data []byte) (int, error)

	// InterruptRead blocks on an interrupt IN endpoint until the device
	// signals, data arrives, or the timeout elapses.
	InterruptRead(endpoint uint8, data []byte, timeout time.Duration) (int, error)

	// SetConfiguration selects the active device configuration.
	SetConfiguration(config int) error

	// ClaimInterface claims exclusive ownership of an interface.
	ClaimInterface(iface int) error

	// ReleaseInterface releases a claimed interface.
	ReleaseInterface(iface int) error

	// ReadLanguages returns the language IDs the device's string
	// descriptors support. A GoXLR always reports at least one.
	ReadLanguages() ([]uint16, error)

	// Descriptor returns the cached identity of the open device.
	Descriptor() Descriptor

	// Reset performs a USB port reset of the device.
	Reset() error

	// Close releases the interface and the handle.
	Close() error
}
