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
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name      string
		commandID uint32
		index     uint16
		body      []byte
	}{
		{"empty body", BuildCommandID(OpGetButtonStates, 0), 1, nil},
		{"small body", BuildCommandID(OpSetChannelVolume, 3), 42, []byte{0xff}},
		{"max body", BuildCommandID(OpSetColourMap, 0), 65535, bytes.Repeat([]byte{0xab}, MaxBodySize)},
		{"index zero", CommandResetCommandIndex, 0, nil},
		{"wrapped index", BuildCommandID(OpSetFader, 2), 65534, []byte{1, 2, 3, 4}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := EncodeFrame(tc.commandID, tc.index, tc.body)

			if len(raw) != HeaderSize+len(tc.body) {
				t.Errorf("encoded length = %d, want %d", len(raw), HeaderSize+len(tc.body))
			}

			frame, err := DecodeFrame(raw)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}

			if frame.CommandID != tc.commandID {
				t.Errorf("CommandID = 0x%x, want 0x%x", frame.CommandID, tc.commandID)
			}
			if frame.Index != tc.index {
				t.Errorf("Index = %d, want %d", frame.Index, tc.index)
			}
			if !bytes.Equal(frame.Body, tc.body) {
				t.Errorf("Body = %v, want %v", frame.Body, tc.body)
			}
		})
	}
}

func TestFrameRoundTripRandomized(t *testing.T) {
	for i := 0; i < 200; i++ {
		commandID := rand.Uint32()
		index := uint16(rand.UintN(65536))
		body := make([]byte, rand.IntN(MaxBodySize+1))
		for j := range body {
			body[j] = byte(rand.UintN(256))
		}

		frame, err := DecodeFrame(EncodeFrame(commandID, index, body))
		if err != nil {
			t.Fatalf("DecodeFrame: %v", err)
		}
		if frame.CommandID != commandID || frame.Index != index || !bytes.Equal(frame.Body, body) {
			t.Fatalf("round trip mismatch for id=0x%x index=%d len=%d", commandID, index, len(body))
		}
	}
}

func TestEncodeFrameHeaderLayout(t *testing.T) {
	raw := EncodeFrame(0x805002, 0x0102, []byte{0xaa, 0xbb, 0xcc})

	want := []byte{
		0x02, 0x50, 0x80, 0x00, // command id, LE
		0x03, 0x00, // body length
		0x02, 0x01, // command index
		0, 0, 0, 0, 0, 0, 0, 0, // reserved
		0xaa, 0xbb, 0xcc,
	}

	if !bytes.Equal(raw, want) {
		t.Errorf("encoded frame = % x, want % x", raw, want)
	}
}

func TestDecodeFrameTruncatedHeader(t *testing.T) {
	for n := 0; n < HeaderSize; n++ {
		_, err := DecodeFrame(make([]byte, n))
		if !errors.Is(err, ErrLengthMismatch) {
			t.Errorf("DecodeFrame with %d bytes: err = %v, want ErrLengthMismatch", n, err)
		}
	}
}

func TestDecodeFrameShortBody(t *testing.T) {
	raw := EncodeFrame(BuildCommandID(OpGetHardwareInfo, 1), 7, bytes.Repeat([]byte{0}, 32))

	// chop two body bytes so the declared length exceeds what arrived
	_, err := DecodeFrame(raw[:len(raw)-2])
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestDecodeFrameTruncatesTrailingBytes(t *testing.T) {
	raw := EncodeFrame(BuildCommandID(OpGetButtonStates, 0), 9, []byte{1, 2, 3})

	// the response buffer is fixed size, trailing garbage must be ignored
	padded := append(raw, 0xde, 0xad)

	frame, err := DecodeFrame(padded)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if !bytes.Equal(frame.Body, []byte{1, 2, 3}) {
		t.Errorf("Body = %v, want [1 2 3]", frame.Body)
	}
}

func TestBuildCommandID(t *testing.T) {
	cases := []struct {
		op   Opcode
		sub  uint16
		want uint32
	}{
		{OpSetFader, 2, 0x805<<12 | 2},
		{OpGetButtonStates, 0, 0x800 << 12},
		{OpSetChannelVolume, 0xfff, 0x806<<12 | 0xfff},
		{OpSetChannelVolume, 0x1fff, 0x806<<12 | 0xfff}, // selector clamped to 12 bits
		{OpGetHardwareInfo, 1, 0x80f<<12 | 1},
	}

	for _, tc := range cases {
		if got := BuildCommandID(tc.op, tc.sub); got != tc.want {
			t.Errorf("BuildCommandID(0x%x, %d) = 0x%x, want 0x%x", uint16(tc.op), tc.sub, got, tc.want)
		}
	}
}
