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

// Package asynclog decouples log-line producers (any goroutine calling
// Append) from the single background goroutine that owns the destination
// file, using a double-buffered hand-off so a burst of log lines never
// blocks its caller on disk I/O.
package asynclog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sabouaram/tinyweb/buffer"
)

// maxPendingSlabs is the point past which the writer considers the
// producer side to be overwhelming the disk and starts dropping slabs
// instead of writing them all.
const maxPendingSlabs = 25

// keptOnDrop is how many of the oldest pending slabs are written before the
// rest of the backlog (beyond the drop-notice) is discarded.
const keptOnDrop = 2

// Writer is the async log pipeline's front end and back-end thread
// together. Append is safe to call from any goroutine; the pending slab
// list and the two working slabs (current, next) are guarded by mu, and
// only the background goroutine started by Start ever touches the file.
type Writer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	current *buffer.Fixed
	next    *buffer.Fixed
	pending []*buffer.Fixed

	running bool
	stopped bool
	doneCh  chan struct{}

	flushEvery time.Duration
	file       *rollingFile
}

// New returns a Writer that rolls log files under dir using basename, each
// capped at sizeMiB megabytes, flushing to disk at least every
// flushInterval even if no slab has filled up in that time.
func New(dir, basename string, sizeMiB int, flushInterval time.Duration) (*Writer, error) {
	f, err := newRollingFile(dir, basename, int64(sizeMiB)*1024*1024)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		current:    buffer.NewFixed(buffer.LargeSlabSize),
		next:       buffer.NewFixed(buffer.LargeSlabSize),
		flushEvery: flushInterval,
		file:       f,
	}
	w.cond = sync.NewCond(&w.mu)
	return w, nil
}

// Start launches the background writer goroutine and a ticker goroutine
// that wakes it periodically so a slab that never fills up still reaches
// disk within flushEvery. Calling Start twice is a no-op.
func (w *Writer) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.tick()
	go w.run()
}

// tick periodically forces whatever is in the current slab out to the
// background writer, even if it never filled up, so a quiet period never
// leaves a log line sitting in memory indefinitely.
func (w *Writer) tick() {
	t := time.NewTicker(w.flushEvery)
	defer t.Stop()
	for range t.C {
		w.mu.Lock()
		stopped := w.stopped
		if !stopped && w.current.Len() > 0 {
			w.pending = append(w.pending, w.current)
			if w.next != nil {
				w.current = w.next
				w.next = nil
			} else {
				w.current = buffer.NewFixed(buffer.LargeSlabSize)
			}
		}
		w.cond.Broadcast()
		w.mu.Unlock()
		if stopped {
			return
		}
	}
}

// Append copies logLine into the current slab, swapping in the spare slab
// (or, rarely, allocating a fresh one) if it doesn't fit, and waking the
// background writer. Safe for concurrent callers.
func (w *Writer) Append(logLine []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current.Remaining() > len(logLine) {
		w.current.Append(logLine)
		return
	}

	w.pending = append(w.pending, w.current)
	if w.next != nil {
		w.current = w.next
		w.next = nil
	} else {
		w.current = buffer.NewFixed(buffer.LargeSlabSize)
	}
	w.current.Append(logLine)
	w.cond.Signal()
}

// run is the single background goroutine draining pending slabs into the
// rolling log file, matching the spare-slab recycling and
// drop-on-overflow policy of a classic double-buffered async logger.
func (w *Writer) run() {
	defer close(w.doneCh)

	spare1 := buffer.NewFixed(buffer.LargeSlabSize)
	spare2 := buffer.NewFixed(buffer.LargeSlabSize)

	for {
		w.mu.Lock()
		for len(w.pending) == 0 && !w.stopped {
			w.cond.Wait()
		}
		if len(w.pending) == 0 && w.stopped {
			w.mu.Unlock()
			_ = w.file.Flush()
			return
		}

		w.pending = append(w.pending, w.current)
		w.current = spare1
		spare1 = nil
		if w.next == nil {
			w.next = spare2
			spare2 = nil
		}
		toWrite := w.pending
		w.pending = nil
		w.mu.Unlock()

		toWrite = w.dropOverflow(toWrite)
		w.drain(toWrite)

		if len(toWrite) > keptOnDrop {
			toWrite = toWrite[:keptOnDrop]
		}
		for _, slab := range toWrite {
			slab.Reset()
			switch {
			case spare1 == nil:
				spare1 = slab
			case spare2 == nil:
				spare2 = slab
			}
		}
		if spare1 == nil {
			spare1 = buffer.NewFixed(buffer.LargeSlabSize)
		}
		if spare2 == nil {
			spare2 = buffer.NewFixed(buffer.LargeSlabSize)
		}

		_ = w.file.Flush()
	}
}

// dropOverflow implements the backlog-drop policy: once more than
// maxPendingSlabs slabs have accumulated, write one drop-notice line (also
// sent to stderr) and discard everything past the first keptOnDrop slabs.
func (w *Writer) dropOverflow(pending []*buffer.Fixed) []*buffer.Fixed {
	if len(pending) <= maxPendingSlabs {
		return pending
	}

	notice := fmt.Sprintf(
		"Dropped log messages at %s, %d larger buffers\n",
		time.Now().Format("2006-01-02 15:04:05.000000"),
		len(pending)-keptOnDrop,
	)
	fmt.Fprint(os.Stderr, notice)
	_ = w.file.Append([]byte(notice))

	return pending[:keptOnDrop]
}

func (w *Writer) drain(slabs []*buffer.Fixed) {
	for _, slab := range slabs {
		if slab.Len() == 0 {
			continue
		}
		_ = w.file.Append(slab.Bytes())
	}
}

// Stop signals the background goroutine to flush its remaining slabs and
// exit, and waits for it to finish.
func (w *Writer) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.stopped = true
	w.pending = append(w.pending, w.current)
	w.current = buffer.NewFixed(buffer.LargeSlabSize)
	w.cond.Broadcast()
	done := w.doneCh
	w.mu.Unlock()

	<-done
}
