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
	"log/slog"

	"goxlrd/usb"
)

// FirmwareChunkSize is the payload per firmware data command: the
// response buffer body, minus the 12-byte offset/length prefix.
const FirmwareChunkSize = 1012

// UploadFirmware streams a firmware image to the device: a start
// command carrying the total size, data chunks with a running offset,
// then a validate round trip.
//
// The validate packet carries a running additive accumulator over the
// image bytes. Official tooling sends it but never checks the device's
// answer, and the real algorithm has not been reverse-engineered, so a
// mismatch is logged rather than treated as failure.
func (s *Session) UploadFirmware(image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("empty firmware image")
	}

	start := make([]byte, 4)
	binary.LittleEndian.PutUint32(start, uint32(len(image)))
	if _, err := s.Request(usb.BuildCommandID(usb.OpFirmwareStart, 0), start); err != nil {
		return fmt.Errorf("starting firmware upload: %w", err)
	}

	var accumulator uint32

	for offset := 0; offset < len(image); offset += FirmwareChunkSize {
		end := offset + FirmwareChunkSize
		if end > len(image) {
			end = len(image)
		}
		chunk := image[offset:end]

		body := make([]byte, 4+len(chunk))
		binary.LittleEndian.PutUint32(body, uint32(offset))
		copy(body[4:], chunk)

		if _, err := s.Request(usb.BuildCommandID(usb.OpFirmwareData, 0), body); err != nil {
			return fmt.Errorf("writing firmware chunk at offset %d: %w", offset, err)
		}

		for _, b := range chunk {
			accumulator += uint32(b)
		}
	}

	validate := make([]byte, 8)
	binary.LittleEndian.PutUint32(validate[0:4], accumulator)
	binary.LittleEndian.PutUint32(validate[4:8], uint32(len(image)))

	response, err := s.Request(usb.BuildCommandID(usb.OpFirmwareValidate, 0), validate)
	if err != nil {
		return fmt.Errorf("validating firmware upload: %w", err)
	}

	if len(response) >= 4 {
		echoed := binary.LittleEndian.Uint32(response[0:4])
		if echoed != accumulator {
			slog.Warn(fmt.Sprintf("Firmware validate accumulator mismatch: sent 0x%x, device answered 0x%x", accumulator, echoed))
		}
	}

	return nil
}
