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
	"errors"
	"log/slog"
	"sync"
	"time"

	"goxlrd/audio"
	"goxlrd/device"
	"goxlrd/model"
	"goxlrd/reaper"
	"goxlrd/server"
	"goxlrd/shared"
)

// Daemon ties the USB side (scanner, sessions, pollers) to the audio
// side (capture engine, recordings) and implements the control API.
type Daemon struct {
	config   *model.Config
	strategy device.WaitStrategy
	engine   *audio.Engine
	scanner  *device.Scanner

	mu         sync.Mutex
	devices    map[string]*deviceEntry
	recordings map[string]*audio.RecordingSession
}

// RunDaemon brings the whole daemon up and blocks until shutdown. A nil
// backend selects one from the config; --simulate passes a synthetic
// backend in.
func RunDaemon(config *model.Config, backend audio.Backend) error {
	strategy, err := device.ParseWaitStrategy(config.Device.WaitStrategy)
	if err != nil {
		return err
	}

	if backend == nil {
		backend, err = audio.NewBackend(config.Recorder.Backend)
		if err != nil {
			return err
		}
	}

	daemon := &Daemon{
		config:     config,
		strategy:   strategy,
		devices:    make(map[string]*deviceEntry),
		recordings: make(map[string]*audio.RecordingSession),
	}

	daemon.engine = audio.NewEngine(audio.EngineConfig{
		DeviceMatch:     config.Recorder.DeviceMatch,
		SampleRate:      config.Recorder.SampleRate,
		Channels:        config.Recorder.Channels,
		BlockFrames:     config.Recorder.BlockFrames,
		PrerollSeconds:  config.Recorder.PrerollSeconds,
		GateThresholdDB: config.Recorder.GateThresholdDB,
		ProducerBuffer:  config.Recorder.ProducerBuffer,
	}, backend)

	reaper.Register("capture engine")
	go func() {
		daemon.engine.Run()
		reaper.Done("capture engine")
	}()
	reaper.Callback("stop capture engine", daemon.engine.Stop)
	reaper.Callback("stop recordings", daemon.stopAllRecordings)
	reaper.Callback("close devices", daemon.closeAllDevices)

	daemon.scanner = device.NewScanner(
		time.Duration(config.Device.ScanIntervalMS)*time.Millisecond,
		time.Duration(config.Device.CooldownSeconds)*time.Second,
	)
	daemon.scanner.OnArrived = daemon.deviceArrived
	daemon.scanner.OnDeparted = daemon.deviceDeparted

	scanStop := make(chan struct{})
	reaper.Register("device scanner")
	go func() {
		daemon.scanner.Run(scanStop)
		reaper.Done("device scanner")
	}()
	reaper.Callback("stop device scanner", func() { close(scanStop) })

	api := server.New(daemon)
	if err := api.Start(config.HTTP.Listen); err != nil {
		reaper.Reap()
		reaper.Wait()
		return err
	}
	reaper.Callback("stop control api", api.Shutdown)

	shared.CatchSigint(func() {
		slog.Info("Caught sigint, calling reaper")
		reaper.Reap()
	})

	reaper.Wait()
	return nil
}

// RunRecordOnce records a single gated take: bring the capture engine
// up, record until interrupted, and report whether the file was kept.
func RunRecordOnce(config *model.Config, backend audio.Backend, path string) error {
	var err error
	if backend == nil {
		backend, err = audio.NewBackend(config.Recorder.Backend)
		if err != nil {
			return err
		}
	}

	engine := audio.NewEngine(audio.EngineConfig{
		DeviceMatch:     config.Recorder.DeviceMatch,
		SampleRate:      config.Recorder.SampleRate,
		Channels:        config.Recorder.Channels,
		BlockFrames:     config.Recorder.BlockFrames,
		PrerollSeconds:  config.Recorder.PrerollSeconds,
		GateThresholdDB: config.Recorder.GateThresholdDB,
		ProducerBuffer:  config.Recorder.ProducerBuffer,
	}, backend)

	go engine.Run()
	defer engine.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for !engine.Ready() {
		if time.Now().After(deadline) {
			return errors.New("capture stream never became ready")
		}
		time.Sleep(50 * time.Millisecond)
	}

	session, err := engine.StartRecording(path)
	if err != nil {
		return err
	}

	slog.Info("Recording to " + path + ", press ctrl+c to stop")

	done := make(chan struct{})
	shared.CatchSigint(func() {
		select {
		case <-done:
		default:
			close(done)
		}
	})
	<-done

	session.Stop()
	if err := session.Wait(); err != nil {
		return err
	}

	if session.Started() {
		slog.Info("Recording kept: " + path)
	} else {
		slog.Info("Recording never reached the gate threshold and was deleted")
	}

	return nil
}
