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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// controlTimeout bounds every control transfer. Simple commands complete
// in a few milliseconds; anything past a second is a wedged device.
const controlTimeout = 1 * time.Second

// Scan enumerates GoXLR devices currently on the bus. Devices are not
// opened; only descriptors are read.
func Scan() ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []DeviceInfo

	// OpenDevices is used purely as an enumerator: the predicate records
	// matching descriptors and never asks for the device to be opened.
	_, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if uint16(desc.Vendor) != VendorID {
			return false
		}

		pid := uint16(desc.Product)
		if pid != ProductIDFull && pid != ProductIDMini {
			return false
		}

		found = append(found, DeviceInfo{
			Bus:       desc.Bus,
			Address:   desc.Address,
			VendorID:  uint16(desc.Vendor),
			ProductID: pid,
		})

		return false
	})
	if err != nil {
		return nil, fmt.Errorf("bus scan: %w", mapUSBError(err))
	}

	return found, nil
}

// Open opens an exclusive handle on the device at info's bus location.
func Open(info DeviceInfo) (Handle, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == info.Bus && desc.Address == info.Address
	})
	if err != nil {
		for _, d := range devs {
			d.Close()
		}
		ctx.Close()
		return nil, fmt.Errorf("opening device %s: %w", info.Location(), mapUSBError(err))
	}
	if len(devs) == 0 {
		ctx.Close()
		return nil, fmt.Errorf("device %s: %w", info.Location(), ErrNoDevice)
	}

	dev := devs[0]
	for _, d := range devs[1:] {
		d.Close()
	}

	dev.ControlTimeout = controlTimeout

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("detaching kernel driver: %w", mapUSBError(err))
	}

	desc := Descriptor{
		VendorID:  uint16(dev.Desc.Vendor),
		ProductID: uint16(dev.Desc.Product),
		Version:   dev.Desc.Device.String(),
	}

	// Identity strings are best effort; a device stuck in its power-on
	// state may refuse them until it is activated.
	if s, err := dev.Manufacturer(); err == nil {
		desc.Manufacturer = s
	}
	if s, err := dev.Product(); err == nil {
		desc.Product = s
	}

	return &libusbHandle{ctx: ctx, dev: dev, desc: desc}, nil
}

// libusbHandle is the gousb-backed Handle used against real hardware.
type libusbHandle struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	ep   *gousb.InEndpoint
	desc Descriptor
}

func (h *libusbHandle) VendorWrite(request uint8, value, index uint16, data []byte) (int, error) {
	rType := gousb.ControlOut | gousb.ControlVendor | gousb.ControlInterface
	n, err := h.dev.Control(rType, request, value, index, data)
	return n, mapUSBError(err)
}

func (h *libusbHandle) VendorRead(request uint8, value, index uint16, data []byte) (int, error) {
	rType := gousb.ControlIn | gousb.ControlVendor | gousb.ControlInterface
	n, err := h.dev.Control(rType, request, value, index, data)
	return n, mapUSBError(err)
}

func (h *libusbHandle) ClassWrite(request uint8, value, index uint16, data []byte) (int, error) {
	rType := gousb.ControlOut | gousb.ControlClass | gousb.ControlInterface
	n, err := h.dev.Control(rType, request, value, index, data)
	return n, mapUSBError(err)
}

func (h *libusbHandle) InterruptRead(endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	if h.intf == nil {
		return 0, fmt.Errorf("interrupt read: interface not claimed")
	}

	if h.ep == nil {
		ep, err := h.intf.InEndpoint(int(endpoint & 0x0f))
		if err != nil {
			return 0, fmt.Errorf("opening interrupt endpoint 0x%02x: %w", endpoint, mapUSBError(err))
		}
		h.ep = ep
	}

	rctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := h.ep.ReadContext(rctx, data)
	if errors.Is(err, context.DeadlineExceeded) {
		return n, ErrTimeout
	}
	return n, mapUSBError(err)
}

func (h *libusbHandle) SetConfiguration(config int) error {
	cfg, err := h.dev.Config(config)
	if err != nil {
		return fmt.Errorf("setting configuration %d: %w", config, mapUSBError(err))
	}

	if h.cfg != nil {
		h.cfg.Close()
	}
	h.cfg = cfg

	return nil
}

func (h *libusbHandle) ClaimInterface(iface int) error {
	if h.cfg == nil {
		if err := h.SetConfiguration(1); err != nil {
			return err
		}
	}
	if h.intf != nil {
		return nil
	}

	intf, err := h.cfg.Interface(iface, 0)
	if err != nil {
		return fmt.Errorf("claiming interface %d: %w", iface, mapUSBError(err))
	}
	h.intf = intf

	return nil
}

func (h *libusbHandle) ReleaseInterface(iface int) error {
	if h.intf != nil {
		h.intf.Close()
		h.intf = nil
		h.ep = nil
	}
	return nil
}

func (h *libusbHandle) ReadLanguages() ([]uint16, error) {
	// GET_DESCRIPTOR for string index 0 returns the supported language IDs.
	rType := gousb.ControlIn | gousb.ControlStandard | gousb.ControlDevice

	buf := make([]byte, 255)
	n, err := h.dev.Control(rType, 0x06, 0x0300, 0, buf)
	if err != nil {
		return nil, fmt.Errorf("reading language descriptors: %w", mapUSBError(err))
	}
	if n < 4 || int(buf[0]) > n {
		return nil, nil
	}

	langs := make([]uint16, 0, (n-2)/2)
	for i := 2; i+1 < int(buf[0]); i += 2 {
		langs = append(langs, uint16(buf[i])|uint16(buf[i+1])<<8)
	}

	return langs, nil
}

func (h *libusbHandle) Descriptor() Descriptor {
	return h.desc
}

func (h *libusbHandle) Reset() error {
	return mapUSBError(h.dev.Reset())
}

func (h *libusbHandle) Close() error {
	h.ReleaseInterface(0)

	if h.cfg != nil {
		h.cfg.Close()
		h.cfg = nil
	}

	err := h.dev.Close()
	h.ctx.Close()

	return mapUSBError(err)
}

// mapUSBError translates libusb result codes into this package's
// sentinels so upper layers can classify without importing gousb.
func mapUSBError(err error) error {
	if err == nil {
		return nil
	}

	var code gousb.Error
	if !errors.As(err, &code) {
		return err
	}

	switch code {
	case gousb.ErrorPipe:
		return fmt.Errorf("%v: %w", err, ErrPipe)
	case gousb.ErrorTimeout:
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	case gousb.ErrorNoDevice, gousb.ErrorNotFound:
		return fmt.Errorf("%v: %w", err, ErrNoDevice)
	case gousb.ErrorAccess:
		return fmt.Errorf("%v: %w", err, ErrAccess)
	case gousb.ErrorBusy:
		return fmt.Errorf("%v: %w", err, ErrBusy)
	}

	return err
}
