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
	"testing"
	"time"

	"goxlrd/usb"
)

func testScanner(cooldown time.Duration, bus *[]usb.DeviceInfo) (*Scanner, *[]string, *[]string) {
	s := NewScanner(time.Millisecond, cooldown)
	s.scan = func() ([]usb.DeviceInfo, error) {
		return *bus, nil
	}

	var arrived, departed []string
	s.OnArrived = func(info usb.DeviceInfo) { arrived = append(arrived, info.Location()) }
	s.OnDeparted = func(info usb.DeviceInfo) { departed = append(departed, info.Location()) }

	return s, &arrived, &departed
}

func TestScannerReportsArrivalsAndDepartures(t *testing.T) {
	full := usb.DeviceInfo{Bus: 1, Address: 5, VendorID: usb.VendorID, ProductID: usb.ProductIDFull}
	mini := usb.DeviceInfo{Bus: 2, Address: 3, VendorID: usb.VendorID, ProductID: usb.ProductIDMini}

	bus := []usb.DeviceInfo{full}
	s, arrived, departed := testScanner(time.Minute, &bus)

	s.poll()
	if len(*arrived) != 1 || (*arrived)[0] != "1:5" {
		t.Fatalf("arrived = %v, want [1:5]", *arrived)
	}

	// no change: second poll is quiet
	s.poll()
	if len(*arrived) != 1 {
		t.Errorf("arrived twice for the same device: %v", *arrived)
	}

	bus = []usb.DeviceInfo{full, mini}
	s.poll()
	if len(*arrived) != 2 || (*arrived)[1] != "2:3" {
		t.Errorf("arrived = %v, want [1:5 2:3]", *arrived)
	}

	bus = []usb.DeviceInfo{mini}
	s.poll()
	if len(*departed) != 1 || (*departed)[0] != "1:5" {
		t.Errorf("departed = %v, want [1:5]", *departed)
	}
}

func TestScannerCooldownSuppressesRediscovery(t *testing.T) {
	full := usb.DeviceInfo{Bus: 1, Address: 5, VendorID: usb.VendorID, ProductID: usb.ProductIDFull}

	bus := []usb.DeviceInfo{full}
	s, arrived, _ := testScanner(50*time.Millisecond, &bus)

	s.poll()
	if len(*arrived) != 1 {
		t.Fatalf("arrived = %v, want one entry", *arrived)
	}

	// session died fatally: owner benches the device
	s.Ignore(full)

	s.poll()
	s.poll()
	if len(*arrived) != 1 {
		t.Fatalf("device rediscovered during cool-down: %v", *arrived)
	}

	time.Sleep(60 * time.Millisecond)

	s.poll()
	if len(*arrived) != 2 {
		t.Errorf("device not rediscovered after cool-down: %v", *arrived)
	}
}
