/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package hookfile

import "context"

// Write hands p to the underlying asynclog.Writer, which copies it into
// its current slab and returns immediately. Implements io.Writer.
func (o *hkf) Write(p []byte) (n int, err error) {
	o.w.Append(p)
	return len(p), nil
}

// Close marks the hook as no longer running. The asynclog.Writer itself
// is stopped by whoever constructed it, not by the hook, since several
// hooks (file, access log) commonly share one Writer.
func (o *hkf) Close() error {
	o.r.Store(false)
	return nil
}

// IsRunning reports whether the hook is still accepting entries.
func (o *hkf) IsRunning() bool {
	return o.r.Load()
}

// Run blocks until ctx is canceled, then marks the hook stopped. The
// hook has no background work of its own; the asynclog.Writer runs its
// own drain goroutine independently.
func (o *hkf) Run(ctx context.Context) {
	<-ctx.Done()
	o.r.Store(false)
}
