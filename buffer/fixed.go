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

package buffer

const (
	// SmallSlabSize is the per-log-line formatting slab size.
	SmallSlabSize = 4096
	// LargeSlabSize is the async log back-end slab size.
	LargeSlabSize = 4 * 1024 * 1024
)

// Fixed is a fixed-capacity byte slab with a write cursor C in [0, len(buf)].
// Append silently truncates overflow rather than growing or erroring — this
// is a documented limitation (see spec §9) acceptable because both callers
// (per-line formatting and the async log back-end) bound what they append.
type Fixed struct {
	buf []byte
	c   int
}

// NewFixed allocates a Fixed slab of the given capacity.
func NewFixed(capacity int) *Fixed {
	return &Fixed{buf: make([]byte, capacity)}
}

// Len returns the number of bytes currently appended.
func (f *Fixed) Len() int {
	return f.c
}

// Cap returns the slab's fixed capacity.
func (f *Fixed) Cap() int {
	return len(f.buf)
}

// Remaining returns how many more bytes can be appended before truncation.
func (f *Fixed) Remaining() int {
	return len(f.buf) - f.c
}

// Bytes returns the appended region. The slice is only valid until the next
// Append or Reset call.
func (f *Fixed) Bytes() []byte {
	return f.buf[:f.c]
}

// Append copies as much of p as fits, silently dropping the tail if
// c+len(p) exceeds the slab's capacity.
func (f *Fixed) Append(p []byte) {
	n := copy(f.buf[f.c:], p)
	f.c += n
}

// AppendString is a convenience wrapper avoiding an explicit []byte(s) at
// call sites that only have a string.
func (f *Fixed) AppendString(s string) {
	n := copy(f.buf[f.c:], s)
	f.c += n
}

// Reset rewinds the cursor to the start without zeroing memory.
func (f *Fixed) Reset() {
	f.c = 0
}
