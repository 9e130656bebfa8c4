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
package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatIEEEFloat is the WAV audio format tag for float PCM.
const wavFormatIEEEFloat = 3

// OutputFile is a 32-bit float PCM WAV sink for recorded sampler audio.
type OutputFile struct {
	FilePath   string
	FileHandle *os.File
	Encoder    *wav.Encoder
	Format     *goaudio.Format

	samplesWritten int
}

// NewOutputFile creates the file and its WAV encoder.
func NewOutputFile(path string, sampleRate, channels int) (*OutputFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}

	return &OutputFile{
		FilePath:   path,
		FileHandle: f,
		Encoder:    wav.NewEncoder(f, sampleRate, 32, channels, wavFormatIEEEFloat),
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
	}, nil
}

// Write appends interleaved float32 samples.
func (of *OutputFile) Write(samples []float32) error {
	for _, sample := range samples {
		if err := of.Encoder.WriteFrame(sample); err != nil {
			return fmt.Errorf("writing sample to %s: %w", of.FilePath, err)
		}
	}

	of.samplesWritten += len(samples)
	return nil
}

// WriteBuffer appends an interleaved float buffer.
func (of *OutputFile) WriteBuffer(buf *goaudio.Float32Buffer) error {
	return of.Write(buf.Data)
}

// SamplesWritten returns the count of samples committed so far.
func (of *OutputFile) SamplesWritten() int {
	return of.samplesWritten
}

// Close finalizes the WAV header and closes the file.
func (of *OutputFile) Close() error {
	var err error

	if of.Encoder != nil {
		err = of.Encoder.Close()
	}
	if of.FileHandle != nil {
		if cerr := of.FileHandle.Close(); err == nil {
			err = cerr
		}
	}

	return err
}

// Delete removes the file from disk. Used when a recording session ends
// without the loudness gate ever opening.
func (of *OutputFile) Delete() error {
	return os.Remove(of.FilePath)
}
