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
	"fmt"
	"strings"
)

// Channel addresses one mixer channel. The numeric value is the command
// sub id the hardware expects, not an arbitrary enum order.
type Channel uint16

const (
	ChannelMic Channel = iota
	ChannelLineIn
	ChannelConsole
	ChannelSystem
	ChannelGame
	ChannelChat
	ChannelSample
	ChannelMusic
	ChannelHeadphones
	ChannelMicMonitor
	ChannelLineOut
)

var channelNames = map[Channel]string{
	ChannelMic:        "Mic",
	ChannelLineIn:     "LineIn",
	ChannelConsole:    "Console",
	ChannelSystem:     "System",
	ChannelGame:       "Game",
	ChannelChat:       "Chat",
	ChannelSample:     "Sample",
	ChannelMusic:      "Music",
	ChannelHeadphones: "Headphones",
	ChannelMicMonitor: "MicMonitor",
	ChannelLineOut:    "LineOut",
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseChannel maps a channel name, as String prints it, back onto the
// channel. Matching is case-insensitive.
func ParseChannel(name string) (Channel, error) {
	for ch, n := range channelNames {
		if strings.EqualFold(n, name) {
			return ch, nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}

// Fader addresses one of the four physical faders, left to right.
type Fader uint16

const (
	FaderA Fader = iota
	FaderB
	FaderC
	FaderD
)

func (f Fader) String() string {
	if f <= FaderD {
		return string(rune('A' + f))
	}
	return "unknown"
}

// ParseFader maps "A".."D" (case-insensitive) onto a fader.
func ParseFader(name string) (Fader, error) {
	if len(name) == 1 {
		switch name[0] {
		case 'a', 'A':
			return FaderA, nil
		case 'b', 'B':
			return FaderB, nil
		case 'c', 'C':
			return FaderC, nil
		case 'd', 'D':
			return FaderD, nil
		}
	}
	return 0, fmt.Errorf("unknown fader %q", name)
}

// Encoder addresses one of the four rotary encoders.
type Encoder uint16

const (
	EncoderPitch Encoder = iota
	EncoderGender
	EncoderReverb
	EncoderEcho
)

func (e Encoder) String() string {
	switch e {
	case EncoderPitch:
		return "Pitch"
	case EncoderGender:
		return "Gender"
	case EncoderReverb:
		return "Reverb"
	case EncoderEcho:
		return "Echo"
	}
	return "unknown"
}

// ChannelState is the mute byte the hardware expects.
type ChannelState byte

const (
	StateUnmuted ChannelState = 0x00
	StateMuted   ChannelState = 0x01
)

// InputDevice addresses one row of the routing matrix.
type InputDevice uint16

const (
	InputMicrophone InputDevice = iota
	InputChat
	InputMusic
	InputGame
	InputConsole
	InputLineIn
	InputSystem
	InputSamples
)

var inputNames = map[InputDevice]string{
	InputMicrophone: "Microphone",
	InputChat:       "Chat",
	InputMusic:      "Music",
	InputGame:       "Game",
	InputConsole:    "Console",
	InputLineIn:     "LineIn",
	InputSystem:     "System",
	InputSamples:    "Samples",
}

func (i InputDevice) String() string {
	if name, ok := inputNames[i]; ok {
		return name
	}
	return "unknown"
}

// ParseInputDevice maps a routing input name back onto the input.
func ParseInputDevice(name string) (InputDevice, error) {
	for input, n := range inputNames {
		if strings.EqualFold(n, name) {
			return input, nil
		}
	}
	return 0, fmt.Errorf("unknown routing input %q", name)
}

// RoutingRowSize is the fixed width of one routing matrix row.
const RoutingRowSize = 22

// routeEnabled is the byte the firmware uses for an enabled route.
const routeEnabled byte = 0x20

// OutputDevice selects columns within a routing row. Each output is a
// stereo pair of byte positions in the row; the table below is the
// hardware's wiring order, which does not follow declaration order.
type OutputDevice uint8

const (
	OutputHeadphones OutputDevice = iota
	OutputBroadcastMix
	OutputLineOut
	OutputChatMic
	OutputSampler
)

var outputNames = map[OutputDevice]string{
	OutputHeadphones:   "Headphones",
	OutputBroadcastMix: "BroadcastMix",
	OutputLineOut:      "LineOut",
	OutputChatMic:      "ChatMic",
	OutputSampler:      "Sampler",
}

func (o OutputDevice) String() string {
	if name, ok := outputNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOutputDevice maps a routing output name back onto the output.
func ParseOutputDevice(name string) (OutputDevice, error) {
	for output, n := range outputNames {
		if strings.EqualFold(n, name) {
			return output, nil
		}
	}
	return 0, fmt.Errorf("unknown routing output %q", name)
}

// routingPositions maps an output to the (left, right) byte offsets of
// its columns within a routing row.
var routingPositions = map[OutputDevice][2]int{
	OutputHeadphones:   {2, 3},
	OutputBroadcastMix: {4, 5},
	OutputLineOut:      {6, 7},
	OutputChatMic:      {8, 9},
	OutputSampler:      {10, 11},
}

// BuildRouteRow packs the enabled outputs into one routing matrix row.
func BuildRouteRow(outputs ...OutputDevice) [RoutingRowSize]byte {
	var row [RoutingRowSize]byte

	for _, out := range outputs {
		pos, ok := routingPositions[out]
		if !ok {
			continue
		}
		row[pos[0]] = routeEnabled
		row[pos[1]] = routeEnabled
	}

	return row
}

// MicrophoneType selects which of the three mic inputs a gain applies to.
type MicrophoneType uint16

const (
	MicDynamic MicrophoneType = iota
	MicCondenser
	MicJack
)

// EffectValue is one (key, value) pair for SetEffectParameters. Keys are
// the firmware's DSP parameter addresses.
type EffectValue struct {
	Key   uint32
	Value int32
}

// ButtonLightState is the lighting byte per button for SetButtonStates.
type ButtonLightState byte

const (
	LightColour1       ButtonLightState = 0x01
	LightColour2       ButtonLightState = 0x00
	LightDimmedColour1 ButtonLightState = 0x02
	LightDimmedColour2 ButtonLightState = 0x04
	LightBlinking      ButtonLightState = 0x03
)

// FaderDisplayMode configures the fader's LED strip behaviour.
type FaderDisplayMode struct {
	Gradient bool
	Meter    bool
}

// VersionNumber is an unpacked firmware component version.
type VersionNumber struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// UnpackFirmwareVersion splits the packed u32 the firmware reports:
// major in bits 12 and up, minor in 8..12, patch in 0..8.
func UnpackFirmwareVersion(packed uint32) VersionNumber {
	return VersionNumber{
		Major: packed >> 12,
		Minor: (packed >> 8) & 0xf,
		Patch: packed & 0xff,
	}
}

// UnpackDiceVersion splits the DICE subsystem's packed u32, which uses a
// different split: major 20..24, minor 12..20, patch 0..12.
func UnpackDiceVersion(packed uint32) VersionNumber {
	return VersionNumber{
		Major: (packed >> 20) & 0xf,
		Minor: (packed >> 12) & 0xff,
		Patch: packed & 0xfff,
	}
}

// FirmwareInfo is the response to the firmware version query.
type FirmwareInfo struct {
	Firmware      VersionNumber
	FirmwareBuild uint32
	Dice          VersionNumber
	DiceBuild     uint32
}

// HardwareIdentity is the response to the serial number query.
type HardwareIdentity struct {
	SerialNumber    string
	ManufactureDate string
}
