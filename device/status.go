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

// Button is one logical button on the control surface.
type Button uint8

const (
	ButtonFader1Mute Button = iota
	ButtonFader2Mute
	ButtonFader3Mute
	ButtonFader4Mute
	ButtonBleep
	ButtonCough
	ButtonEffectSelect1
	ButtonEffectSelect2
	ButtonEffectSelect3
	ButtonEffectSelect4
	ButtonEffectSelect5
	ButtonEffectSelect6
	ButtonEffectFx
	ButtonEffectMegaphone
	ButtonEffectRobot
	ButtonEffectHardTune
	ButtonSamplerSelectA
	ButtonSamplerSelectB
	ButtonSamplerSelectC
	ButtonSamplerTopLeft
	ButtonSamplerTopRight
	ButtonSamplerBottomLeft
	ButtonSamplerBottomRight
	ButtonSamplerClear

	// ButtonCount is the number of logical buttons, and the width of the
	// SetButtonStates body.
	ButtonCount = iota
)

// buttonPositions maps each logical button to its bit in the state mask.
// The hardware's bit layout follows the button matrix wiring, not the
// declaration order above, so every position is explicit.
var buttonPositions = map[Button]uint{
	ButtonEffectSelect1:      0,
	ButtonEffectMegaphone:    1,
	ButtonSamplerSelectA:     2,
	ButtonSamplerTopLeft:     3,
	ButtonFader1Mute:         4,
	ButtonEffectSelect2:      5,
	ButtonEffectRobot:        6,
	ButtonSamplerSelectB:     7,
	ButtonSamplerTopRight:    8,
	ButtonFader2Mute:         9,
	ButtonEffectSelect3:      10,
	ButtonEffectHardTune:     11,
	ButtonSamplerSelectC:     12,
	ButtonSamplerBottomLeft:  13,
	ButtonFader3Mute:         14,
	ButtonEffectSelect4:      15,
	ButtonEffectFx:           16,
	ButtonSamplerBottomRight: 17,
	ButtonSamplerClear:       18,
	ButtonFader4Mute:         19,
	ButtonEffectSelect5:      20,
	ButtonEffectSelect6:      21,
	ButtonBleep:              22,
	ButtonCough:              23,
}

var buttonNames = map[Button]string{
	ButtonFader1Mute:         "Fader1Mute",
	ButtonFader2Mute:         "Fader2Mute",
	ButtonFader3Mute:         "Fader3Mute",
	ButtonFader4Mute:         "Fader4Mute",
	ButtonBleep:              "Bleep",
	ButtonCough:              "Cough",
	ButtonEffectSelect1:      "EffectSelect1",
	ButtonEffectSelect2:      "EffectSelect2",
	ButtonEffectSelect3:      "EffectSelect3",
	ButtonEffectSelect4:      "EffectSelect4",
	ButtonEffectSelect5:      "EffectSelect5",
	ButtonEffectSelect6:      "EffectSelect6",
	ButtonEffectFx:           "EffectFx",
	ButtonEffectMegaphone:    "EffectMegaphone",
	ButtonEffectRobot:        "EffectRobot",
	ButtonEffectHardTune:     "EffectHardTune",
	ButtonSamplerSelectA:     "SamplerSelectA",
	ButtonSamplerSelectB:     "SamplerSelectB",
	ButtonSamplerSelectC:     "SamplerSelectC",
	ButtonSamplerTopLeft:     "SamplerTopLeft",
	ButtonSamplerTopRight:    "SamplerTopRight",
	ButtonSamplerBottomLeft:  "SamplerBottomLeft",
	ButtonSamplerBottomRight: "SamplerBottomRight",
	ButtonSamplerClear:       "SamplerClear",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return "unknown"
}

// ButtonSet is the decoded button bitmask of one status snapshot.
type ButtonSet uint32

// Has reports whether the button is pressed in this set.
func (s ButtonSet) Has(b Button) bool {
	pos, ok := buttonPositions[b]
	if !ok {
		return false
	}
	return s&(1<<pos) != 0
}

// statusBodySize is the minimum GetButtonStates body: 4 bytes of button
// mask, 4 signed encoder bytes, 4 mixer volume bytes.
const statusBodySize = 12

// StatusSnapshot is the control surface state at one poll. It is a value
// type, produced fresh on every poll; callers diff against the previous
// snapshot to derive edges.
type StatusSnapshot struct {
	Pressed  ButtonSet
	Encoders [4]int8
	Mixers   [4]uint8
}

// DecodeStatus parses a GetButtonStates response body.
func DecodeStatus(body []byte) (StatusSnapshot, error) {
	if len(body) < statusBodySize {
		return StatusSnapshot{}, fmt.Errorf("status body is %d bytes, need %d: %w",
			len(body), statusBodySize, usb.ErrLengthMismatch)
	}

	snapshot := StatusSnapshot{
		Pressed: ButtonSet(binary.LittleEndian.Uint32(body[0:4])),
	}

	for i := 0; i < 4; i++ {
		snapshot.Encoders[i] = int8(body[4+i])
		snapshot.Mixers[i] = body[8+i]
	}

	return snapshot, nil
}

// StatusDelta is the set of edges between two snapshots.
type StatusDelta struct {
	Pressed  []Button
	Released []Button
	Encoders map[Encoder]int8
	Mixers   map[int]uint8
}

// Empty reports whether nothing changed between the two snapshots.
func (d StatusDelta) Empty() bool {
	return len(d.Pressed) == 0 && len(d.Released) == 0 && len(d.Encoders) == 0 && len(d.Mixers) == 0
}

// Diff derives the button press/release edges and encoder/mixer changes
// from the previous snapshot to this one.
func (s StatusSnapshot) Diff(prev StatusSnapshot) StatusDelta {
	delta := StatusDelta{
		Encoders: make(map[Encoder]int8),
		Mixers:   make(map[int]uint8),
	}

	for b := Button(0); b < ButtonCount; b++ {
		now, before := s.Pressed.Has(b), prev.Pressed.Has(b)
		if now && !before {
			delta.Pressed = append(delta.Pressed, b)
		}
		if !now && before {
			delta.Released = append(delta.Released, b)
		}
	}

	for i := 0; i < 4; i++ {
		if s.Encoders[i] != prev.Encoders[i] {
			delta.Encoders[Encoder(i)] = s.Encoders[i]
		}
		if s.Mixers[i] != prev.Mixers[i] {
			delta.Mixers[i] = s.Mixers[i]
		}
	}

	return delta
}
