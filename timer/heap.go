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

// Package timer implements an indexed binary min-heap of idle-timeout
// deadlines keyed by an opaque connection handle. Only the reactor thread
// may call into a Heap; it is not safe for concurrent use.
package timer

import "time"

// ID identifies a timer node. The reactor uses the connection's table index
// (not a raw callback closure — see spec §9's redesign note about breaking
// the timer/connection reference cycle) as the ID.
type ID uint64

// node is one entry in the heap's backing array.
type node struct {
	id     ID
	expire time.Time
}

// Heap is an array-backed binary min-heap ordered by expiration, with an
// auxiliary id->index map so add-or-replace, reset and remove are O(log n)
// instead of O(n).
type Heap struct {
	arr []node
	idx map[ID]int
}

// NewHeap returns an empty Heap.
func NewHeap() *Heap {
	return &Heap{idx: make(map[ID]int)}
}

// Len returns the number of timers currently tracked.
func (h *Heap) Len() int {
	return len(h.arr)
}

// Add installs a timer for id expiring after timeout, replacing any
// existing timer for the same id in place (add(id,t1); add(id,t2) leaves
// exactly one node for id, with an expiration based on t2).
func (h *Heap) Add(id ID, timeout time.Duration) {
	h.AddAt(id, time.Now().Add(timeout))
}

// AddAt is Add with an explicit expiration instant, used by tests that need
// deterministic ordering.
func (h *Heap) AddAt(id ID, expire time.Time) {
	if i, ok := h.idx[id]; ok {
		h.arr[i].expire = expire
		h.fix(i)
		return
	}

	h.arr = append(h.arr, node{id: id, expire: expire})
	i := len(h.arr) - 1
	h.idx[id] = i
	h.siftUp(i)
}

// Reset updates the expiration of an existing timer. It reports false if id
// is not present, per the testable property that reset requires presence.
func (h *Heap) Reset(id ID, timeout time.Duration) bool {
	i, ok := h.idx[id]
	if !ok {
		return false
	}
	h.arr[i].expire = time.Now().Add(timeout)
	h.fix(i)
	return true
}

// Remove drops the timer for id, if present, and reports whether it was.
func (h *Heap) Remove(id ID) bool {
	i, ok := h.idx[id]
	if !ok {
		return false
	}
	h.removeAt(i)
	return true
}

// Peek returns the delay until the earliest expiration, or -1 if the heap
// is empty, matching the multiplexer-wait contract in spec §4.5.
func (h *Heap) Peek() time.Duration {
	if len(h.arr) == 0 {
		return -1
	}
	d := time.Until(h.arr[0].expire)
	if d < 0 {
		return 0
	}
	return d
}

// Tick removes and returns every timer whose expiration is <= now, in
// arbitrary order (FIFO among equal expirations is not guaranteed, per
// spec §4.2). Each returned id is already removed from the heap before
// this call returns, so a callback may safely re-add the same id.
func (h *Heap) Tick() []ID {
	now := time.Now()
	var due []ID

	for len(h.arr) > 0 && !h.arr[0].expire.After(now) {
		due = append(due, h.arr[0].id)
		h.removeAt(0)
	}

	return due
}

// Clear empties the heap.
func (h *Heap) Clear() {
	h.arr = h.arr[:0]
	h.idx = make(map[ID]int)
}

// removeAt swaps index i with the tail, pops the tail, then sifts the
// relocated element up or down depending on its relation to its new parent.
func (h *Heap) removeAt(i int) {
	last := len(h.arr) - 1
	id := h.arr[i].id
	delete(h.idx, id)

	if i == last {
		h.arr = h.arr[:last]
		return
	}

	h.arr[i] = h.arr[last]
	h.idx[h.arr[i].id] = i
	h.arr = h.arr[:last]
	h.fix(i)
}

// fix restores heap order around index i after its key changed, sifting in
// whichever direction is needed.
func (h *Heap) fix(i int) {
	if !h.siftUp(i) {
		h.siftDown(i)
	}
}

func (h *Heap) siftUp(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !h.arr[i].expire.Before(h.arr[parent].expire) {
			break
		}
		h.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (h *Heap) siftDown(i int) {
	n := len(h.arr)
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < n && h.arr[l].expire.Before(h.arr[smallest].expire) {
			smallest = l
		}
		if r < n && h.arr[r].expire.Before(h.arr[smallest].expire) {
			smallest = r
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *Heap) swap(i, j int) {
	h.arr[i], h.arr[j] = h.arr[j], h.arr[i]
	h.idx[h.arr[i].id] = i
	h.idx[h.arr[j].id] = j
}
