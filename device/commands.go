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
	"encoding/binary"
	"fmt"

	"goxlrd/usb"
)

// ScribbleSize is the byte size of one fader scribble bitmap
// (128x64 pixels, 1 bit per pixel).
const ScribbleSize = 1024

// SetFader assigns a mixer channel to a physical fader.
func (s *Session) SetFader(fader Fader, channel Channel) error {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, uint32(channel))

	_, err := s.Request(usb.BuildCommandID(usb.OpSetFader, uint16(fader)), body)
	return err
}

// SetVolume sets a channel's volume, 0..255.
func (s *Session) SetVolume(channel Channel, volume uint8) error {
	_, err := s.Request(usb.BuildCommandID(usb.OpSetChannelVolume, uint16(channel)), []byte{volume})
	return err
}

// SetChannelState mutes or unmutes a channel.
func (s *Session) SetChannelState(channel Channel, state ChannelState) error {
	_, err := s.Request(usb.BuildCommandID(usb.OpSetChannelState, uint16(channel)), []byte{byte(state)})
	return err
}

// SetRouting replaces one input's row of the routing matrix.
func (s *Session) SetRouting(input InputDevice, row [RoutingRowSize]byte) error {
	_, err := s.Request(usb.BuildCommandID(usb.OpSetRouting, uint16(input)), row[:])
	return err
}

// SetButtonStates sets the lighting state byte for every button. The
// slice is indexed by button bit position (see buttonPositions).
func (s *Session) SetButtonStates(states [ButtonCount]ButtonLightState) error {
	body := make([]byte, ButtonCount)
	for i, st := range states {
		body[i] = byte(st)
	}

	_, err := s.Request(usb.BuildCommandID(usb.OpSetButtonStates, 0), body)
	return err
}

// SetButtonColours uploads a raw colour map. The map layout is fixed by
// the hardware variant; it is passed through untouched.
func (s *Session) SetButtonColours(colourMap []byte) error {
	_, err := s.Request(usb.BuildCommandID(usb.OpSetColourMap, 0), colourMap)
	return err
}

// SetFaderDisplayMode configures a fader's LED strip.
func (s *Session) SetFaderDisplayMode(fader Fader, mode FaderDisplayMode) error {
	body := make([]byte, 2)
	if mode.Gradient {
		body[0] = 1
	}
	if mode.Meter {
		body[1] = 1
	}

	_, err := s.Request(usb.BuildCommandID(usb.OpSetFaderDisplayMode, uint16(fader)), body)
	return err
}

// SetFaderScribble uploads the 1-bit bitmap shown on a fader's scribble
// strip. Only the full-size device has scribble displays.
func (s *Session) SetFaderScribble(fader Fader, bitmap []byte) error {
	if s.info.IsMini() {
		return fmt.Errorf("device %s has no scribble displays", s.info.Location())
	}
	if len(bitmap) != ScribbleSize {
		return fmt.Errorf("scribble bitmap must be %d bytes, got %d", ScribbleSize, len(bitmap))
	}

	_, err := s.Request(usb.BuildCommandID(usb.OpSetScribble, uint16(fader)), bitmap)
	return err
}

// SetMicrophoneGain sets the gain for one microphone input type.
func (s *Session) SetMicrophoneGain(mic MicrophoneType, gain uint16) error {
	body := make([]byte, 2)
	binary.LittleEndian.PutUint16(body, gain)

	_, err := s.Request(usb.BuildCommandID(usb.OpSetMicrophoneParameters, uint16(mic)), body)
	return err
}

// SetEffectValues writes a batch of DSP parameters, 8 bytes per entry.
func (s *Session) SetEffectValues(effects []EffectValue) error {
	body := make([]byte, 8*len(effects))
	for i, e := range effects {
		binary.LittleEndian.PutUint32(body[i*8:], e.Key)
		binary.LittleEndian.PutUint32(body[i*8+4:], uint32(e.Value))
	}

	_, err := s.Request(usb.BuildCommandID(usb.OpSetEffectParameters, 0), body)
	return err
}

// SetEncoderValue moves one encoder's logical position.
func (s *Session) SetEncoderValue(encoder Encoder, value int8) error {
	_, err := s.Request(usb.BuildCommandID(usb.OpSetEncoderValue, uint16(encoder)), []byte{byte(value)})
	return err
}

// SetEncoderMode switches an encoder between its hardware modes.
func (s *Session) SetEncoderMode(encoder Encoder, mode, resolution uint8) error {
	_, err := s.Request(usb.BuildCommandID(usb.OpSetEncoderMode, uint16(encoder)), []byte{mode, resolution})
	return err
}

// GetButtonStates polls the current button/encoder/mixer snapshot.
func (s *Session) GetButtonStates() (StatusSnapshot, error) {
	body, err := s.Request(usb.BuildCommandID(usb.OpGetButtonStates, 0), nil)
	if err != nil {
		return StatusSnapshot{}, err
	}

	return DecodeStatus(body)
}

// GetMicrophoneLevel reads the current microphone input level. The raw
// value is the firmware's fixed-point meter reading.
func (s *Session) GetMicrophoneLevel() (uint16, error) {
	body, err := s.Request(usb.BuildCommandID(usb.OpGetMicrophoneLevel, 0), nil)
	if err != nil {
		return 0, err
	}
	if len(body) < 2 {
		return 0, fmt.Errorf("microphone level body is %d bytes: %w", len(body), usb.ErrLengthMismatch)
	}

	return binary.LittleEndian.Uint16(body[0:2]), nil
}

// GetFirmwareVersion queries the firmware and DICE component versions.
func (s *Session) GetFirmwareVersion() (FirmwareInfo, error) {
	body, err := s.Request(usb.BuildCommandID(usb.OpGetHardwareInfo, usb.HardwareInfoFirmwareVersion), nil)
	if err != nil {
		return FirmwareInfo{}, err
	}
	if len(body) < 16 {
		return FirmwareInfo{}, fmt.Errorf("firmware info body is %d bytes: %w", len(body), usb.ErrLengthMismatch)
	}

	return FirmwareInfo{
		Firmware:      UnpackFirmwareVersion(binary.LittleEndian.Uint32(body[0:4])),
		FirmwareBuild: binary.LittleEndian.Uint32(body[4:8]),
		Dice:          UnpackDiceVersion(binary.LittleEndian.Uint32(body[8:12])),
		DiceBuild:     binary.LittleEndian.Uint32(body[12:16]),
	}, nil
}

// GetSerialNumber reads the serial number and manufacture date, two
// NUL-terminated ASCII strings at fixed offsets of the raw buffer.
func (s *Session) GetSerialNumber() (HardwareIdentity, error) {
	body, err := s.Request(usb.BuildCommandID(usb.OpGetHardwareInfo, usb.HardwareInfoSerialNumber), nil)
	if err != nil {
		return HardwareIdentity{}, err
	}
	if len(body) < 24 {
		return HardwareIdentity{}, fmt.Errorf("serial number body is %d bytes: %w", len(body), usb.ErrLengthMismatch)
	}

	return HardwareIdentity{
		SerialNumber:    cString(body[0:24]),
		ManufactureDate: cString(body[24:]),
	}, nil
}

// SupportsDCPCategory asks the system info family whether the device
// firmware speaks the DCP command category.
func (s *Session) SupportsDCPCategory() (bool, error) {
	selector := make([]byte, 4)
	binary.LittleEndian.PutUint32(selector, usb.SystemInfoSupportsDCPCategory)

	body, err := s.Request(usb.CommandSystemInfo, selector)
	if err != nil {
		return false, err
	}

	return len(body) > 0 && body[0] != 0, nil
}

func cString(raw []byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}
