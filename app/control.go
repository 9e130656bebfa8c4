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
	"path/filepath"
	"sort"
	"time"

	"goxlrd/audio"
	"goxlrd/device"
	"goxlrd/server"
)

// Status implements the control API's daemon overview.
func (d *Daemon) Status() server.DaemonStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	recordings := make([]server.RecordingStatus, 0, len(d.recordings))
	for id, session := range d.recordings {
		recordings = append(recordings, server.RecordingStatus{
			ID:      id,
			Path:    session.Path(),
			Started: session.Started(),
		})
	}
	sort.Slice(recordings, func(i, j int) bool { return recordings[i].ID < recordings[j].ID })

	return server.DaemonStatus{
		Devices:      len(d.devices),
		CaptureReady: d.engine.Ready(),
		Recordings:   recordings,
	}
}

// Devices lists the attached mixers.
func (d *Daemon) Devices() []server.DeviceStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	devices := make([]server.DeviceStatus, 0, len(d.devices))
	for serial, entry := range d.devices {
		model := "Full"
		if entry.info.IsMini() {
			model = "Mini"
		}

		devices = append(devices, server.DeviceStatus{
			Serial:          serial,
			Model:           model,
			Location:        entry.info.Location(),
			Firmware:        formatVersion(entry.firmware.Firmware),
			Dice:            formatVersion(entry.firmware.Dice),
			ManufactureDate: entry.identity.ManufactureDate,
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Serial < devices[j].Serial })

	return devices
}

// SetVolume sets a channel's volume on the named device.
func (d *Daemon) SetVolume(serial, channel string, volume uint8) error {
	entry, err := d.lookupDevice(serial)
	if err != nil {
		return err
	}

	ch, err := device.ParseChannel(channel)
	if err != nil {
		return fmt.Errorf("%w: %v", server.ErrBadRequest, err)
	}

	return entry.session.SetVolume(ch, volume)
}

// AssignFader binds a channel to a physical fader on the named device.
func (d *Daemon) AssignFader(serial, fader, channel string) error {
	entry, err := d.lookupDevice(serial)
	if err != nil {
		return err
	}

	f, err := device.ParseFader(fader)
	if err != nil {
		return fmt.Errorf("%w: %v", server.ErrBadRequest, err)
	}
	ch, err := device.ParseChannel(channel)
	if err != nil {
		return fmt.Errorf("%w: %v", server.ErrBadRequest, err)
	}

	if err := entry.session.SetFader(f, ch); err != nil {
		return err
	}

	entry.mu.Lock()
	entry.faders[f] = ch
	entry.mu.Unlock()

	return nil
}

// SetMute mutes or unmutes a channel on the named device.
func (d *Daemon) SetMute(serial, channel string, muted bool) error {
	entry, err := d.lookupDevice(serial)
	if err != nil {
		return err
	}

	ch, err := device.ParseChannel(channel)
	if err != nil {
		return fmt.Errorf("%w: %v", server.ErrBadRequest, err)
	}

	// reuse the fader's mute light when the channel is on a fader
	light := device.ButtonCough
	entry.mu.Lock()
	for i, assigned := range entry.faders {
		if assigned == ch {
			light = device.ButtonFader1Mute + device.Button(i)
			break
		}
	}
	entry.mu.Unlock()

	return entry.setChannelMute(ch, muted, light)
}

// SetRouting replaces the routing row for one input on the named device.
func (d *Daemon) SetRouting(serial, input string, outputs []string) error {
	entry, err := d.lookupDevice(serial)
	if err != nil {
		return err
	}

	in, err := device.ParseInputDevice(input)
	if err != nil {
		return fmt.Errorf("%w: %v", server.ErrBadRequest, err)
	}

	outs := make([]device.OutputDevice, 0, len(outputs))
	for _, name := range outputs {
		out, err := device.ParseOutputDevice(name)
		if err != nil {
			return fmt.Errorf("%w: %v", server.ErrBadRequest, err)
		}
		outs = append(outs, out)
	}

	return entry.session.SetRouting(in, device.BuildRouteRow(outs...))
}

// StartRecording begins a gated take into the configured output
// directory.
func (d *Daemon) StartRecording() (server.RecordingStatus, error) {
	path := filepath.Join(d.config.Recorder.OutputDirectory,
		"goxlr-"+time.Now().Format("2006-01-02-150405")+".wav")

	session, err := d.engine.StartRecording(path)
	if err != nil {
		return server.RecordingStatus{}, err
	}

	id := session.ID.String()

	d.mu.Lock()
	d.recordings[id] = session
	d.mu.Unlock()

	return server.RecordingStatus{ID: id, Path: path}, nil
}

// StopRecording ends a take and reports whether the file was kept.
func (d *Daemon) StopRecording(id string) (server.RecordingStatus, error) {
	d.mu.Lock()
	session, ok := d.recordings[id]
	if ok {
		delete(d.recordings, id)
	}
	d.mu.Unlock()

	if !ok {
		return server.RecordingStatus{}, server.ErrUnknownRecording
	}

	session.Stop()
	if err := session.Wait(); err != nil {
		return server.RecordingStatus{}, err
	}

	return server.RecordingStatus{
		ID:      id,
		Path:    session.Path(),
		Started: session.Started(),
		Kept:    session.Started(),
	}, nil
}

func (d *Daemon) lookupDevice(serial string) (*deviceEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.devices[serial]
	if !ok {
		return nil, server.ErrUnknownDevice
	}
	return entry, nil
}

// stopAllRecordings finalizes every in-flight take.
func (d *Daemon) stopAllRecordings() {
	d.mu.Lock()
	recordings := d.recordings
	d.recordings = make(map[string]*audio.RecordingSession)
	d.mu.Unlock()

	for _, session := range recordings {
		session.Stop()
		session.Wait()
	}
}
