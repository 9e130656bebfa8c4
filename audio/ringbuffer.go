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

import "sync"

// RingBuffer is a fixed-capacity circular store of float32 samples with
// overwrite-oldest semantics: a write never blocks and never fails, it
// evicts the oldest unread samples when room runs out. The buffer always
// holds the most recent Cap() samples written.
type RingBuffer struct {
	mu   sync.Mutex
	buf  []float32
	read int // index of the oldest unread sample
	size int // unread sample count
}

// NewRingBuffer allocates a buffer holding capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]float32, capacity)}
}

// Write accepts all incoming samples, discarding the oldest unread data
// when the incoming block does not fit in the remaining free space.
func (rb *RingBuffer) Write(samples []float32) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	length := len(samples)
	if length == 0 {
		return
	}

	capacity := len(rb.buf)

	if length >= capacity {
		// the burst alone overflows the whole buffer: everything unread
		// is stale, keep only the trailing window of the burst
		copy(rb.buf, samples[length-capacity:])
		rb.read = 0
		rb.size = capacity
		return
	}

	if free := capacity - rb.size; length > free {
		// evict exactly enough of the oldest samples to fit
		evict := length - free
		rb.read = (rb.read + evict) % capacity
		rb.size -= evict
	}

	write := (rb.read + rb.size) % capacity
	n := copy(rb.buf[write:], samples)
	if n < length {
		copy(rb.buf, samples[n:])
	}
	rb.size += length
}

// Drain copies out everything unread, oldest first, and fast-forwards
// the read cursor to the write cursor.
func (rb *RingBuffer) Drain() []float32 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return nil
	}

	out := make([]float32, rb.size)

	n := copy(out, rb.buf[rb.read:min(rb.read+rb.size, len(rb.buf))])
	if n < rb.size {
		copy(out[n:], rb.buf[:rb.size-n])
	}

	rb.read = (rb.read + rb.size) % len(rb.buf)
	rb.size = 0

	return out
}

// Clear discards everything unread without copying.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.read = (rb.read + rb.size) % len(rb.buf)
	rb.size = 0
}

// Len returns the unread sample count.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// Cap returns the buffer capacity in samples.
func (rb *RingBuffer) Cap() int {
	return len(rb.buf)
}
