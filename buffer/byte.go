/*
 * MIT License
 *
 * Copyright (c) 2026 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package buffer implements the growable read/write byte container and the
// fixed-capacity slab used by the log pipeline.
package buffer

import (
	"golang.org/x/sys/unix"
)

// scratchSize is the size of the stack scratch segment used by Byte.ReadFrom
// to absorb bursts larger than the current writable window without forcing
// a pre-sized socket buffer.
const scratchSize = 64 * 1024

// Byte is a growable byte container with a read offset R and a write offset
// W such that R <= W <= cap(buf). Unread bytes live in buf[R:W]. It is not
// safe for concurrent use; each Conn owns exactly one.
type Byte struct {
	buf []byte
	r   int
	w   int
}

// NewByte allocates a Byte with the given initial capacity.
func NewByte(capacity int) *Byte {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Byte{buf: make([]byte, capacity)}
}

// Readable returns the number of unread bytes.
func (b *Byte) Readable() int {
	return b.w - b.r
}

// Writable returns the number of bytes available to append before growth or
// compaction would be required.
func (b *Byte) Writable() int {
	return len(b.buf) - b.w
}

// Cap returns the current backing capacity.
func (b *Byte) Cap() int {
	return len(b.buf)
}

// Peek returns the unread region without consuming it. The slice is only
// valid until the next mutating call.
func (b *Byte) Peek() []byte {
	return b.buf[b.r:b.w]
}

// Drain consumes up to n bytes from the front of the unread region. If n
// exceeds Readable, the whole unread region is consumed. R is reset to 0
// together with W once the buffer is fully drained, per the buffer
// compaction invariant.
func (b *Byte) Drain(n int) {
	if n <= 0 {
		return
	}
	if n > b.Readable() {
		n = b.Readable()
	}
	b.r += n
	if b.r == b.w {
		b.r, b.w = 0, 0
	}
}

// DrainUntil consumes bytes up to (but excluding) the given absolute offset
// within Peek()'s slice, e.g. the offset of a CRLF found via bytes.Index on
// the result of Peek. ptr is relative to the start of the unread region.
func (b *Byte) DrainUntil(ptr int) {
	b.Drain(ptr)
}

// DrainAll discards every unread byte and resets the buffer to empty.
func (b *Byte) DrainAll() {
	b.r, b.w = 0, 0
}

// ensure guarantees at least `need` bytes of writable room, either by
// compacting (shifting the unread region down to offset 0) or by growing
// the backing array to w+need+1, per the spec's growth rule.
func (b *Byte) ensure(need int) {
	if b.Writable() >= need {
		return
	}

	// Compaction alone is enough only if shifting unread bytes to the
	// front frees up sufficient room; otherwise the buffer must grow.
	if b.r > 0 && len(b.buf)-b.Readable() >= need {
		n := copy(b.buf, b.buf[b.r:b.w])
		b.r = 0
		b.w = n
		return
	}

	grown := make([]byte, b.w+need+1)
	copy(grown, b.buf[:b.w])
	b.buf = grown
}

// Append copies p into the buffer, growing or compacting first if required.
func (b *Byte) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.ensure(len(p))
	b.w += copy(b.buf[b.w:], p)
}

// ReadFrom drains fd into the buffer using a scatter read: the kernel first
// fills the buffer's writable window, then spills any remainder into a
// stack scratch segment which is appended (growing the buffer if needed).
// This keeps the common case zero-copy while still tolerating a burst
// larger than the buffer's current writable window.
//
// It returns the number of bytes read and the syscall error, unmodified;
// EAGAIN is not special-cased here, callers treat it as "no data right now".
func (b *Byte) ReadFrom(fd int) (int, error) {
	var scratch [scratchSize]byte

	window := b.buf[b.w:]
	if len(window) == 0 {
		// No writable window at all: read straight into the scratch
		// segment so a single syscall can still make progress.
		n, err := unix.Read(fd, scratch[:])
		if n > 0 {
			b.Append(scratch[:n])
		}
		return n, err
	}

	n, err := unix.Readv(fd, [][]byte{window, scratch[:]})
	if n <= 0 {
		return n, err
	}

	if n <= len(window) {
		b.w += n
		return n, err
	}

	b.w += len(window)
	overflow := n - len(window)
	b.Append(scratch[:overflow])
	return n, err
}
