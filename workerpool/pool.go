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

// Package workerpool runs blocking request work (parse, handler, file I/O)
// off the reactor thread on a fixed number of goroutines, so the reactor's
// epoll wait is never held up by a slow client or a slow handler.
package workerpool

import (
	"context"
	"runtime"
	"sync"

	libatm "github.com/sabouaram/tinyweb/atomic"
	"github.com/sabouaram/tinyweb/queue"
)

// Task is a unit of work submitted to the pool. It must not block forever;
// the pool shuts down by draining the queue, not by canceling in-flight
// tasks.
type Task func()

// Handle is returned by Submit and closes once the task has run.
type Handle struct {
	done chan struct{}
}

// Wait blocks until the submitted task has finished.
func (h *Handle) Wait() {
	<-h.done
}

// Done reports whether the task has finished without blocking.
func (h *Handle) Done() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

type job struct {
	task Task
	h    *Handle
}

// Pool is a fixed-size set of worker goroutines draining a bounded queue.
type Pool struct {
	q       *queue.Blocking[job]
	wg      sync.WaitGroup
	workers int
	active  libatm.Value[int64]
}

// DefaultWorkers returns the pool size used when size <= 0 is passed to New:
// twice the number of usable CPUs, matching the teacher's oversubscription
// rule for I/O-bound worker pools sized against blocking syscalls rather
// than pure compute.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0) * 2
	if n < 2 {
		n = 2
	}
	return n
}

// New starts a Pool with the given worker count and queue depth. A
// non-positive size falls back to DefaultWorkers(); a non-positive depth
// falls back to 4x the worker count.
func New(size, depth int) *Pool {
	if size <= 0 {
		size = DefaultWorkers()
	}
	if depth <= 0 {
		depth = size * 4
	}

	p := &Pool{
		q:       queue.NewBlocking[job](depth),
		workers: size,
		active:  libatm.NewValue[int64](),
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.run()
	}

	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		j, err := p.q.Pop()
		if err != nil {
			return
		}
		p.addActive(1)
		j.task()
		p.addActive(-1)
		close(j.h.done)
	}
}

// addActive bumps the active-task gauge by delta, retrying the
// compare-and-swap against concurrent workers finishing or starting a
// task at the same time.
func (p *Pool) addActive(delta int64) {
	for {
		cur := p.active.Load()
		if p.active.CompareAndSwap(cur, cur+delta) {
			return
		}
	}
}

// Active reports the number of tasks currently being run by a worker, as
// opposed to sitting in the queue. Exposed for the metrics collector.
func (p *Pool) Active() int64 {
	return p.active.Load()
}

// Submit enqueues task, blocking if the queue is saturated, and returns a
// Handle the caller can Wait on. It reports an error only once the pool has
// been Closed.
func (p *Pool) Submit(task Task) (*Handle, error) {
	h := &Handle{done: make(chan struct{})}
	if err := p.q.Push(job{task: task, h: h}); err != nil {
		close(h.done)
		return nil, err
	}
	return h, nil
}

// TrySubmit enqueues task without blocking, reporting false if the queue is
// full or the pool is closed.
func (p *Pool) TrySubmit(task Task) (*Handle, bool) {
	h := &Handle{done: make(chan struct{})}
	if !p.q.TryPush(job{task: task, h: h}) {
		close(h.done)
		return nil, false
	}
	return h, true
}

// Workers reports the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Pending reports the number of tasks currently queued but not yet picked
// up by a worker.
func (p *Pool) Pending() int {
	return p.q.Len()
}

// Close stops accepting new work, lets already-queued tasks drain, then
// waits for every worker goroutine to exit. ctx only bounds the wait: if it
// is canceled first, Close returns ctx.Err() while workers keep draining in
// the background.
func (p *Pool) Close(ctx context.Context) error {
	p.q.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
