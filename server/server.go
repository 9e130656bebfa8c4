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

// Package server exposes the daemon's JSON control API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"goxlrd/audio"
)

// Controller errors the server maps onto HTTP status codes.
var (
	ErrUnknownDevice    = errors.New("no such device")
	ErrUnknownRecording = errors.New("no such recording")
	ErrBadRequest       = errors.New("bad request")
)

// DaemonStatus is the GET /api/status payload.
type DaemonStatus struct {
	Devices      int               `json:"devices"`
	CaptureReady bool              `json:"capture_ready"`
	Recordings   []RecordingStatus `json:"recordings"`
}

// DeviceStatus describes one connected mixer.
type DeviceStatus struct {
	Serial          string `json:"serial"`
	Model           string `json:"model"`
	Location        string `json:"location"`
	Firmware        string `json:"firmware"`
	Dice            string `json:"dice"`
	ManufactureDate string `json:"manufacture_date"`
}

// RecordingStatus describes one recording session.
type RecordingStatus struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Started bool   `json:"started"`
	Kept    bool   `json:"kept"`
}

// Controller is the surface the daemon exposes to the API. String
// parameters (channel, fader) use the names the hardware enums print.
type Controller interface {
	Status() DaemonStatus
	Devices() []DeviceStatus
	SetVolume(serial, channel string, volume uint8) error
	AssignFader(serial, fader, channel string) error
	SetMute(serial, channel string, muted bool) error
	SetRouting(serial, input string, outputs []string) error
	StartRecording() (RecordingStatus, error)
	StopRecording(id string) (RecordingStatus, error)
}

// Server is the HTTP control API.
type Server struct {
	controller Controller
	httpServer *http.Server
}

func New(controller Controller) *Server {
	return &Server{controller: controller}
}

// Start binds the listener and serves in the background. A bind failure
// is reported here, not from the serving goroutine.
func (s *Server) Start(listen string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("POST /api/devices/{serial}/volume", s.handleVolume)
	mux.HandleFunc("POST /api/devices/{serial}/fader", s.handleFader)
	mux.HandleFunc("POST /api/devices/{serial}/mute", s.handleMute)
	mux.HandleFunc("POST /api/devices/{serial}/routing", s.handleRouting)
	mux.HandleFunc("POST /api/record/start", s.handleRecordStart)
	mux.HandleFunc("POST /api/record/{id}/stop", s.handleRecordStop)

	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Control API server failed: " + err.Error())
		}
	}()

	slog.Info("Control API listening on " + listen)
	return nil
}

// Shutdown stops the listener, waiting for in-flight requests.
func (s *Server) Shutdown() {
	if s.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Warn("Control API shutdown: " + err.Error())
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Devices())
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Channel string `json:"channel"`
		Volume  uint8  `json:"volume"`
	}
	if !readJSON(w, r, &body) {
		return
	}

	writeResult(w, s.controller.SetVolume(r.PathValue("serial"), body.Channel, body.Volume))
}

func (s *Server) handleFader(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fader   string `json:"fader"`
		Channel string `json:"channel"`
	}
	if !readJSON(w, r, &body) {
		return
	}

	writeResult(w, s.controller.AssignFader(r.PathValue("serial"), body.Fader, body.Channel))
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Channel string `json:"channel"`
		Muted   bool   `json:"muted"`
	}
	if !readJSON(w, r, &body) {
		return
	}

	writeResult(w, s.controller.SetMute(r.PathValue("serial"), body.Channel, body.Muted))
}

func (s *Server) handleRouting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Input   string   `json:"input"`
		Outputs []string `json:"outputs"`
	}
	if !readJSON(w, r, &body) {
		return
	}

	writeResult(w, s.controller.SetRouting(r.PathValue("serial"), body.Input, body.Outputs))
}

func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	status, err := s.controller.StartRecording()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	status, err := s.controller.StopRecording(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func readJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ErrUnknownDevice) || errors.Is(err, ErrUnknownRecording):
		status = http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, audio.ErrNotReady):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("Failed to encode API response: " + err.Error())
	}
}
