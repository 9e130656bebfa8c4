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
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the fixed wire header preceding every command body.
	HeaderSize = 16

	// MaxBodySize is the largest response body a standard command returns.
	MaxBodySize = 1024

	// ResponseBufferSize is the buffer handed to the vendor IN transfer
	// that fetches a command response.
	ResponseBufferSize = HeaderSize + MaxBodySize
)

// Frame is one decoded command header plus its body.
//
// Wire layout, all little-endian:
//
//	offset 0..4   command id     u32  (opcode<<12 | sub id)
//	offset 4..6   body length    u16
//	offset 6..8   command index  u16
//	offset 8..16  reserved       zero
//	offset 16..   body
type Frame struct {
	CommandID uint32
	Index     uint16
	Body      []byte
}

// EncodeFrame builds the wire form of one command. No size limit is
// enforced here beyond what the transport allows; callers with payloads
// larger than a control transfer (firmware blocks) chunk them themselves.
func EncodeFrame(commandID uint32, index uint16, body []byte) []byte {
	buf := make([]byte, HeaderSize+len(body))

	binary.LittleEndian.PutUint32(buf[0:4], commandID)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(body)))
	binary.LittleEndian.PutUint16(buf[6:8], index)
	copy(buf[HeaderSize:], body)

	return buf
}

// DecodeFrame splits a raw response into its mirrored header and body.
// The body is truncated to the declared length; receiving fewer bytes
// than declared is corruption and fails with ErrLengthMismatch.
func DecodeFrame(raw []byte) (Frame, error) {
	if len(raw) < HeaderSize {
		return Frame{}, fmt.Errorf("response truncated to %d bytes: %w", len(raw), ErrLengthMismatch)
	}

	declared := int(binary.LittleEndian.Uint16(raw[4:6]))

	if len(raw)-HeaderSize < declared {
		return Frame{}, fmt.Errorf("header declares %d body bytes, received %d: %w",
			declared, len(raw)-HeaderSize, ErrLengthMismatch)
	}

	return Frame{
		CommandID: binary.LittleEndian.Uint32(raw[0:4]),
		Index:     binary.LittleEndian.Uint16(raw[6:8]),
		Body:      raw[HeaderSize : HeaderSize+declared],
	}, nil
}
