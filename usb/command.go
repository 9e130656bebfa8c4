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

// Opcode identifies a command family. The full command ID packs an opcode
// with a 12-bit target selector (fader, channel, encoder, input...): the
// opcode says what kind of operation, the low bits say which target.
type Opcode uint16

const (
	OpGetButtonStates         Opcode = 0x800 // no sub id
	OpSetEffectParameters     Opcode = 0x801
	OpSetScribble             Opcode = 0x802
	OpSetColourMap            Opcode = 0x803
	OpSetRouting              Opcode = 0x804
	OpSetFader                Opcode = 0x805
	OpSetChannelVolume        Opcode = 0x806
	OpSetButtonStates         Opcode = 0x808
	OpSetChannelState         Opcode = 0x809
	OpSetEncoderValue         Opcode = 0x80a
	OpSetMicrophoneParameters Opcode = 0x80b
	OpGetMicrophoneLevel      Opcode = 0x80c
	OpGetHardwareInfo         Opcode = 0x80f
	OpSetEncoderMode          Opcode = 0x811
	OpSetFaderDisplayMode     Opcode = 0x814
)

// Firmware update command families. The wire shape (1012-byte chunks with
// a running offset, then a validate round-trip) mirrors official tooling.
const (
	OpFirmwareStart    Opcode = 0x001
	OpFirmwareData     Opcode = 0x002
	OpFirmwareValidate Opcode = 0x003
)

// Commands outside the opcode<<12 scheme.
const (
	// CommandResetCommandIndex synchronizes the firmware's command index
	// with the host. It must be the first command of every fresh session.
	CommandResetCommandIndex uint32 = 0x000000

	// CommandSystemInfo addresses the system info family. Unlike the
	// addressed commands, its variants are selected by body content: a
	// 4-byte little-endian selector.
	CommandSystemInfo uint32 = 0x000001
)

// SystemInfo body selectors.
const (
	SystemInfoSupportsDCPCategory uint32 = 1
	SystemInfoFirmwareVersion     uint32 = 2
)

// GetHardwareInfo sub ids.
const (
	HardwareInfoFirmwareVersion uint16 = 0
	HardwareInfoSerialNumber    uint16 = 1
)

// BuildCommandID packs an opcode and a target selector into the 32-bit
// command ID space. The selector occupies the low 12 bits.
func BuildCommandID(op Opcode, sub uint16) uint32 {
	return uint32(op)<<12 | uint32(sub&0x0fff)
}

func (o Opcode) String() string {
	switch o {
	case OpGetButtonStates:
		return "GetButtonStates"
	case OpSetEffectParameters:
		return "SetEffectParameters"
	case OpSetScribble:
		return "SetScribble"
	case OpSetColourMap:
		return "SetColourMap"
	case OpSetRouting:
		return "SetRouting"
	case OpSetFader:
		return "SetFader"
	case OpSetChannelVolume:
		return "SetChannelVolume"
	case OpSetButtonStates:
		return "SetButtonStates"
	case OpSetChannelState:
		return "SetChannelState"
	case OpSetEncoderValue:
		return "SetEncoderValue"
	case OpSetMicrophoneParameters:
		return "SetMicrophoneParameters"
	case OpGetMicrophoneLevel:
		return "GetMicrophoneLevel"
	case OpGetHardwareInfo:
		return "GetHardwareInfo"
	case OpSetEncoderMode:
		return "SetEncoderMode"
	case OpSetFaderDisplayMode:
		return "SetFaderDisplayMode"
	case OpFirmwareStart:
		return "FirmwareStart"
	case OpFirmwareData:
		return "FirmwareData"
	case OpFirmwareValidate:
		return "FirmwareValidate"
	}
	return "unknown"
}
