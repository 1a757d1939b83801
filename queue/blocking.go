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

// Package queue implements a bounded, generic blocking FIFO used to hand
// work from the reactor thread to the worker pool.
package queue

import (
	"sync"
)

// ErrClosed is returned by Push and Pop once Close has been called and, for
// Pop, the queue has also drained.
var ErrClosed = ErrorClosed.Error()

// Blocking is a fixed-capacity FIFO. Push blocks while the queue is full;
// Pop blocks while the queue is empty. It is safe for any number of
// concurrent producers and consumers.
type Blocking[T any] struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	notFull  sync.Cond
	items    []T
	cap      int
	closed   bool
}

// NewBlocking returns a Blocking queue with the given capacity. A capacity
// of 0 or less is treated as 1, since an unbounded queue would defeat its
// purpose as a backpressure point between the reactor and the worker pool.
func NewBlocking[T any](capacity int) *Blocking[T] {
	if capacity <= 0 {
		capacity = 1
	}
	q := &Blocking[T]{cap: capacity}
	q.notEmpty.L = &q.mu
	q.notFull.L = &q.mu
	return q
}

// Push appends an item, blocking while the queue is at capacity. It returns
// ErrClosed without enqueuing if the queue has been closed.
func (q *Blocking[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) >= q.cap && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrClosed
	}

	q.items = append(q.items, v)
	q.notEmpty.Signal()
	return nil
}

// TryPush appends an item without blocking, reporting false if the queue is
// full or closed.
func (q *Blocking[T]) TryPush(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.items) >= q.cap {
		return false
	}
	q.items = append(q.items, v)
	q.notEmpty.Signal()
	return true
}

// Pop removes and returns the oldest item, blocking while the queue is
// empty. Once closed and drained, it returns ErrClosed.
func (q *Blocking[T]) Pop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		var zero T
		return zero, ErrClosed
	}

	v := q.items[0]
	q.items = q.items[1:]
	q.notFull.Signal()
	return v, nil
}

// Len reports the number of items currently queued.
func (q *Blocking[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed and wakes every blocked Push and Pop.
// Already-queued items remain available to Pop until drained.
func (q *Blocking[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
