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
package app

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"goxlrd/device"
	"goxlrd/usb"
)

// defaultFaders is the channel assignment applied to a freshly attached
// device, fader A through D.
var defaultFaders = [4]device.Channel{
	device.ChannelMic,
	device.ChannelMusic,
	device.ChannelChat,
	device.ChannelSystem,
}

// deviceEntry is one attached mixer: its open session, its poller, and
// the surface state the daemon maintains for it.
type deviceEntry struct {
	info     usb.DeviceInfo
	session  *device.Session
	identity device.HardwareIdentity
	firmware device.FirmwareInfo
	stop     chan struct{}

	mu     sync.Mutex
	faders [4]device.Channel
	muted  map[device.Channel]bool
	lights [device.ButtonCount]device.ButtonLightState
}

// deviceArrived opens a session on a newly scanned device, initializes
// its surface, and starts polling it. Fires on the scanner goroutine.
func (d *Daemon) deviceArrived(info usb.DeviceInfo) {
	slog.Info("Device arrived at " + info.Location())

	handle, err := usb.Open(info)
	if err != nil {
		slog.Warn("Could not open device at " + info.Location() + ": " + err.Error())
		d.scanner.Ignore(info)
		return
	}

	session, err := device.Open(handle, info, d.strategy)
	if err != nil {
		slog.Warn("Could not bring up device at " + info.Location() + ": " + err.Error())
		handle.Close()
		d.scanner.Ignore(info)
		return
	}

	entry := &deviceEntry{
		info:    info,
		session: session,
		stop:    make(chan struct{}),
		faders:  defaultFaders,
		muted:   make(map[device.Channel]bool),
	}

	if err := entry.initialize(); err != nil {
		slog.Warn("Device initialization failed: " + err.Error())
		session.Close()
		d.scanner.Ignore(info)
		return
	}

	slog.Info("Attached " + entry.identity.SerialNumber +
		" (firmware " + formatVersion(entry.firmware.Firmware) + ")")

	d.mu.Lock()
	d.devices[entry.identity.SerialNumber] = entry
	d.mu.Unlock()

	go d.pollDevice(entry)
}

// deviceDeparted tears down the entry for a device that left the bus.
func (d *Daemon) deviceDeparted(info usb.DeviceInfo) {
	slog.Info("Device departed from " + info.Location())

	d.mu.Lock()
	var entry *deviceEntry
	for serial, e := range d.devices {
		if e.info.SameLocation(info) {
			entry = e
			delete(d.devices, serial)
			break
		}
	}
	d.mu.Unlock()

	if entry == nil {
		return
	}

	close(entry.stop)
	entry.session.Close()
}

// pollDevice runs the poller until the device leaves or its session
// dies. A fatal death puts the device on the scanner's cool-down list.
func (d *Daemon) pollDevice(entry *deviceEntry) {
	poller := device.NewPoller(entry.session, time.Duration(d.config.Device.PollIntervalMS)*time.Millisecond)
	poller.OnButtonDown = func(b device.Button) { d.buttonDown(entry, b) }
	poller.OnButtonUp = func(b device.Button) { d.buttonUp(entry, b) }
	poller.OnEncoder = func(e device.Encoder, value int8) {
		slog.Debug("Encoder " + e.String() + " moved to " + fmt.Sprint(value))
	}
	poller.OnMixer = func(mixer int, value uint8) { d.mixerMoved(entry, mixer, value) }

	if err := poller.Run(entry.stop); err != nil {
		slog.Warn("Device " + entry.identity.SerialNumber + " session died: " + err.Error())

		d.mu.Lock()
		delete(d.devices, entry.identity.SerialNumber)
		d.mu.Unlock()

		entry.session.Close()
		d.scanner.Ignore(entry.info)
	}
}

// initialize queries the hardware identity and applies the default
// surface state: fader assignments, volumes, routing, lighting.
func (e *deviceEntry) initialize() error {
	identity, err := e.session.GetSerialNumber()
	if err != nil {
		return err
	}
	e.identity = identity

	firmware, err := e.session.GetFirmwareVersion()
	if err != nil {
		return err
	}
	e.firmware = firmware

	for i, channel := range e.faders {
		if err := e.session.SetFader(device.Fader(i), channel); err != nil {
			return err
		}
		if err := e.session.SetVolume(channel, 0xc0); err != nil {
			return err
		}
		if err := e.session.SetFaderDisplayMode(device.Fader(i), device.FaderDisplayMode{Gradient: true}); err != nil {
			return err
		}
	}

	// route every input to the headphones and the broadcast mix
	row := device.BuildRouteRow(device.OutputHeadphones, device.OutputBroadcastMix)
	for input := device.InputMicrophone; input <= device.InputSamples; input++ {
		if err := e.session.SetRouting(input, row); err != nil {
			return err
		}
	}

	for i := range e.lights {
		e.lights[i] = device.LightDimmedColour1
	}

	return e.session.SetButtonStates(e.lights)
}

// buttonDown reacts to a press edge. Mute buttons toggle their fader's
// channel; cough mutes the mic while held.
func (d *Daemon) buttonDown(entry *deviceEntry, b device.Button) {
	slog.Debug("Button down: " + b.String())

	switch b {
	case device.ButtonFader1Mute, device.ButtonFader2Mute, device.ButtonFader3Mute, device.ButtonFader4Mute:
		fader := int(b - device.ButtonFader1Mute)
		if err := entry.toggleMute(fader, b); err != nil {
			slog.Warn("Mute toggle failed: " + err.Error())
		}
	case device.ButtonCough:
		if err := entry.setChannelMute(device.ChannelMic, true, b); err != nil {
			slog.Warn("Cough mute failed: " + err.Error())
		}
	}
}

// buttonUp reacts to a release edge.
func (d *Daemon) buttonUp(entry *deviceEntry, b device.Button) {
	slog.Debug("Button up: " + b.String())

	if b == device.ButtonCough {
		if err := entry.setChannelMute(device.ChannelMic, false, b); err != nil {
			slog.Warn("Cough unmute failed: " + err.Error())
		}
	}
}

// mixerMoved applies a physical fader move to the assigned channel's
// volume.
func (d *Daemon) mixerMoved(entry *deviceEntry, mixer int, value uint8) {
	entry.mu.Lock()
	channel := entry.faders[mixer]
	entry.mu.Unlock()

	if err := entry.session.SetVolume(channel, value); err != nil {
		slog.Warn("Volume update failed: " + err.Error())
	}
}

// toggleMute flips the mute state of the channel assigned to fader.
func (e *deviceEntry) toggleMute(fader int, light device.Button) error {
	e.mu.Lock()
	channel := e.faders[fader]
	muted := !e.muted[channel]
	e.mu.Unlock()

	return e.setChannelMute(channel, muted, light)
}

// setChannelMute applies a mute state and updates the button light.
func (e *deviceEntry) setChannelMute(channel device.Channel, muted bool, light device.Button) error {
	state := device.StateUnmuted
	lightState := device.LightDimmedColour1
	if muted {
		state = device.StateMuted
		lightState = device.LightColour1
	}

	if err := e.session.SetChannelState(channel, state); err != nil {
		return err
	}

	e.mu.Lock()
	e.muted[channel] = muted
	e.lights[light] = lightState
	lights := e.lights
	e.mu.Unlock()

	return e.session.SetButtonStates(lights)
}

// closeAllDevices shuts every open session down.
func (d *Daemon) closeAllDevices() {
	d.mu.Lock()
	entries := make([]*deviceEntry, 0, len(d.devices))
	for _, entry := range d.devices {
		entries = append(entries, entry)
	}
	d.devices = make(map[string]*deviceEntry)
	d.mu.Unlock()

	for _, entry := range entries {
		close(entry.stop)
		entry.session.Close()
	}
}

func formatVersion(v device.VersionNumber) string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
