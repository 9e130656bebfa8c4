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
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"goxlrd/usb"
)

// stubHandle is an in-memory transport for exercising the session state
// machine without hardware.
type stubHandle struct {
	langs []uint16

	// frames collects every decoded command write, in order.
	frames []usb.Frame

	// writeErrs is a queue of errors returned by successive command
	// writes; nil entries mean success.
	writeErrs []error

	// respond builds the raw response returned for the last command
	// frame. When nil, the stub echoes the frame's index with an empty
	// body.
	respond func(last usb.Frame) []byte

	wakes           int
	activationReads int
	classWrites     int
	resets          int
	claims          int
	closed          bool
}

func newStubHandle() *stubHandle {
	return &stubHandle{langs: []uint16{0x0409}}
}

func (h *stubHandle) VendorWrite(request uint8, value, index uint16, data []byte) (int, error) {
	switch request {
	case requestWake:
		h.wakes++
		return 0, nil
	case requestCommand:
		frame, err := usb.DecodeFrame(data)
		if err != nil {
			return 0, err
		}
		h.frames = append(h.frames, frame)

		if len(h.writeErrs) > 0 {
			werr := h.writeErrs[0]
			h.writeErrs = h.writeErrs[1:]
			if werr != nil {
				return 0, werr
			}
		}
		return len(data), nil
	}
	return 0, errors.New("unexpected vendor write")
}

func (h *stubHandle) VendorRead(request uint8, value, index uint16, data []byte) (int, error) {
	switch request {
	case requestActivation:
		h.activationReads++
		return 24, nil
	case requestResponse:
		if len(h.frames) == 0 {
			return 0, errors.New("response read before any command")
		}
		last := h.frames[len(h.frames)-1]

		var raw []byte
		if h.respond != nil {
			raw = h.respond(last)
		} else {
			raw = usb.EncodeFrame(last.CommandID, last.Index, nil)
		}
		return copy(data, raw), nil
	}
	return 0, errors.New("unexpected vendor read")
}

func (h *stubHandle) ClassWrite(request uint8, value, index uint16, data []byte) (int, error) {
	h.classWrites++
	return len(data), nil
}

func (h *stubHandle) InterruptRead(endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	return 0, nil
}

func (h *stubHandle) SetConfiguration(config int) error { return nil }
func (h *stubHandle) ClaimInterface(iface int) error    { h.claims++; return nil }
func (h *stubHandle) ReleaseInterface(iface int) error  { return nil }
func (h *stubHandle) ReadLanguages() ([]uint16, error)  { return h.langs, nil }
func (h *stubHandle) Descriptor() usb.Descriptor {
	return usb.Descriptor{VendorID: usb.VendorID, ProductID: usb.ProductIDFull}
}
func (h *stubHandle) Reset() error { h.resets++; return nil }
func (h *stubHandle) Close() error { h.closed = true; return nil }

func testInfo() usb.DeviceInfo {
	return usb.DeviceInfo{Bus: 1, Address: 4, VendorID: usb.VendorID, ProductID: usb.ProductIDFull}
}

func openTestSession(t *testing.T, h *stubHandle) *Session {
	t.Helper()

	s, err := Open(h, testInfo(), WaitSleep)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenSendsResetCommandIndexFirst(t *testing.T) {
	h := newStubHandle()
	openTestSession(t, h)

	if len(h.frames) != 1 {
		t.Fatalf("open sent %d commands, want 1", len(h.frames))
	}
	if h.frames[0].CommandID != usb.CommandResetCommandIndex {
		t.Errorf("first command = 0x%x, want ResetCommandIndex", h.frames[0].CommandID)
	}
}

func TestOpenRejectsDeviceWithoutLanguages(t *testing.T) {
	h := newStubHandle()
	h.langs = nil

	_, err := Open(h, testInfo(), WaitSleep)
	if !errors.Is(err, usb.ErrNotGoXLR) {
		t.Errorf("err = %v, want ErrNotGoXLR", err)
	}
}

func TestRequestRejectsStaleIndex(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	// answer every request with the previous request's index
	h.respond = func(last usb.Frame) []byte {
		return usb.EncodeFrame(last.CommandID, last.Index-1, nil)
	}

	_, err := s.Request(usb.BuildCommandID(usb.OpGetButtonStates, 0), nil)
	if !errors.Is(err, usb.ErrIndexMismatch) {
		t.Fatalf("err = %v, want ErrIndexMismatch", err)
	}

	// desync is fatal, the session must refuse further traffic
	if !s.Dead() {
		t.Error("session should be dead after an index mismatch")
	}
	if _, err := s.Request(usb.BuildCommandID(usb.OpGetButtonStates, 0), nil); !errors.Is(err, ErrSessionDead) {
		t.Errorf("request on dead session: err = %v, want ErrSessionDead", err)
	}
}

func TestRequestRejectsShortBody(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	h.respond = func(last usb.Frame) []byte {
		raw := usb.EncodeFrame(last.CommandID, last.Index, []byte{1, 2, 3, 4})
		return raw[:len(raw)-2]
	}

	_, err := s.Request(usb.BuildCommandID(usb.OpGetMicrophoneLevel, 0), nil)
	if !errors.Is(err, usb.ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
	if !s.Dead() {
		t.Error("session should be dead after a length mismatch")
	}
}

func TestPipeTriggersSingleActivationHandshake(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	// first command write stalls, everything after succeeds
	h.writeErrs = []error{usb.ErrPipe}

	if _, err := s.Request(usb.BuildCommandID(usb.OpGetButtonStates, 0), nil); err != nil {
		t.Fatalf("Request after pipe: %v", err)
	}

	if h.wakes != 1 {
		t.Errorf("wake requests = %d, want 1", h.wakes)
	}
	if h.activationReads != 1 {
		t.Errorf("activation reads = %d, want 1", h.activationReads)
	}
	if h.classWrites != 1 {
		t.Errorf("class writes = %d, want 1", h.classWrites)
	}
	if h.resets != 1 {
		t.Errorf("device resets = %d, want 1", h.resets)
	}
	if s.Dead() {
		t.Error("session should survive the activation handshake")
	}
}

func TestTransientErrorsAreRetried(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	h.writeErrs = []error{usb.ErrTimeout, usb.ErrTimeout, nil}

	if _, err := s.Request(usb.BuildCommandID(usb.OpGetButtonStates, 0), nil); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if s.Dead() {
		t.Error("session should survive transient errors within the retry budget")
	}
}

func TestRetryExhaustionKillsSession(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	h.writeErrs = []error{usb.ErrTimeout, usb.ErrTimeout, usb.ErrTimeout}

	_, err := s.Request(usb.BuildCommandID(usb.OpGetButtonStates, 0), nil)
	if !errors.Is(err, usb.ErrTimeout) {
		t.Fatalf("err = %v, want wrapped ErrTimeout", err)
	}
	if !s.Dead() {
		t.Error("session should be dead after exhausting retries")
	}
}

func TestNoDeviceIsImmediatelyFatal(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	h.writeErrs = []error{usb.ErrNoDevice}

	wrote := len(h.frames)

	_, err := s.Request(usb.BuildCommandID(usb.OpGetButtonStates, 0), nil)
	if !errors.Is(err, usb.ErrNoDevice) {
		t.Fatalf("err = %v, want ErrNoDevice", err)
	}
	if got := len(h.frames) - wrote; got != 1 {
		t.Errorf("command writes after disconnect = %d, want 1 (no retries)", got)
	}
}

func TestCommandIndexIncrementsPerRequest(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	for i := 0; i < 3; i++ {
		if _, err := s.Request(usb.BuildCommandID(usb.OpGetButtonStates, 0), nil); err != nil {
			t.Fatalf("Request %d: %v", i, err)
		}
	}

	for i := 1; i < len(h.frames); i++ {
		if h.frames[i].Index != h.frames[i-1].Index+1 {
			t.Errorf("frame %d index = %d, previous = %d, want +1", i, h.frames[i].Index, h.frames[i-1].Index)
		}
	}
}

func TestSetFaderCommandID(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	if err := s.SetFader(FaderC, ChannelMusic); err != nil {
		t.Fatalf("SetFader: %v", err)
	}

	last := h.frames[len(h.frames)-1]

	if want := uint32(0x805)<<12 | 2; last.CommandID != want {
		t.Errorf("SetFader(FaderC) command id = 0x%x, want 0x%x", last.CommandID, want)
	}

	wantBody := make([]byte, 4)
	binary.LittleEndian.PutUint32(wantBody, uint32(ChannelMusic))
	if !bytes.Equal(last.Body, wantBody) {
		t.Errorf("SetFader body = % x, want % x", last.Body, wantBody)
	}
}

func TestSetVolumePacking(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	if err := s.SetVolume(ChannelChat, 0xc8); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}

	last := h.frames[len(h.frames)-1]
	if want := usb.BuildCommandID(usb.OpSetChannelVolume, uint16(ChannelChat)); last.CommandID != want {
		t.Errorf("command id = 0x%x, want 0x%x", last.CommandID, want)
	}
	if !bytes.Equal(last.Body, []byte{0xc8}) {
		t.Errorf("body = % x, want c8", last.Body)
	}
}

func TestGetFirmwareVersionUnpacking(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	h.respond = func(last usb.Frame) []byte {
		body := make([]byte, 16)
		binary.LittleEndian.PutUint32(body[0:4], 1<<12|4<<8|22)      // 1.4.22
		binary.LittleEndian.PutUint32(body[4:8], 144)                // build
		binary.LittleEndian.PutUint32(body[8:12], 3<<20|12<<12|345)  // DICE 3.12.345
		binary.LittleEndian.PutUint32(body[12:16], 9)                // DICE build
		return usb.EncodeFrame(last.CommandID, last.Index, body)
	}

	info, err := s.GetFirmwareVersion()
	if err != nil {
		t.Fatalf("GetFirmwareVersion: %v", err)
	}

	if info.Firmware != (VersionNumber{1, 4, 22}) {
		t.Errorf("Firmware = %+v, want 1.4.22", info.Firmware)
	}
	if info.FirmwareBuild != 144 {
		t.Errorf("FirmwareBuild = %d, want 144", info.FirmwareBuild)
	}
	if info.Dice != (VersionNumber{3, 12, 345}) {
		t.Errorf("Dice = %+v, want 3.12.345", info.Dice)
	}
	if info.DiceBuild != 9 {
		t.Errorf("DiceBuild = %d, want 9", info.DiceBuild)
	}
}

func TestGetSerialNumberParsing(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	h.respond = func(last usb.Frame) []byte {
		body := make([]byte, 40)
		copy(body[0:], "GX2209150123\x00")
		copy(body[24:], "2022-09-15\x00")
		return usb.EncodeFrame(last.CommandID, last.Index, body)
	}

	identity, err := s.GetSerialNumber()
	if err != nil {
		t.Fatalf("GetSerialNumber: %v", err)
	}

	if identity.SerialNumber != "GX2209150123" {
		t.Errorf("SerialNumber = %q", identity.SerialNumber)
	}
	if identity.ManufactureDate != "2022-09-15" {
		t.Errorf("ManufactureDate = %q", identity.ManufactureDate)
	}
}

func TestScribbleRejectedOnMini(t *testing.T) {
	h := newStubHandle()

	info := testInfo()
	info.ProductID = usb.ProductIDMini

	s, err := Open(h, info, WaitSleep)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.SetFaderScribble(FaderA, make([]byte, ScribbleSize)); err == nil {
		t.Error("expected scribble upload to fail on the mini variant")
	}
}

func TestUploadFirmwareChunking(t *testing.T) {
	h := newStubHandle()
	s := openTestSession(t, h)

	image := make([]byte, FirmwareChunkSize*2+100)
	for i := range image {
		image[i] = byte(i)
	}

	before := len(h.frames)

	if err := s.UploadFirmware(image); err != nil {
		t.Fatalf("UploadFirmware: %v", err)
	}

	// start + 3 data chunks + validate
	uploads := h.frames[before:]
	if len(uploads) != 5 {
		t.Fatalf("upload sent %d commands, want 5", len(uploads))
	}

	if uploads[0].CommandID != usb.BuildCommandID(usb.OpFirmwareStart, 0) {
		t.Errorf("first upload command = 0x%x, want FirmwareStart", uploads[0].CommandID)
	}

	var total int
	for i, frame := range uploads[1:4] {
		if frame.CommandID != usb.BuildCommandID(usb.OpFirmwareData, 0) {
			t.Errorf("chunk %d command = 0x%x, want FirmwareData", i, frame.CommandID)
			continue
		}
		offset := binary.LittleEndian.Uint32(frame.Body[0:4])
		if int(offset) != i*FirmwareChunkSize {
			t.Errorf("chunk %d offset = %d, want %d", i, offset, i*FirmwareChunkSize)
		}
		total += len(frame.Body) - 4
	}
	if total != len(image) {
		t.Errorf("chunked bytes = %d, want %d", total, len(image))
	}

	if uploads[4].CommandID != usb.BuildCommandID(usb.OpFirmwareValidate, 0) {
		t.Errorf("last upload command = 0x%x, want FirmwareValidate", uploads[4].CommandID)
	}
}
