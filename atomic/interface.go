/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package atomic

import (
	"sync"
	"sync/atomic"
)

// Value is a single lock-free cell holding one value of type T, with
// caller-configurable defaults for the slots a fresh Load/Store would
// otherwise return as a zero value.
type Value[T any] interface {
	// SetDefaultLoad fixes what Load returns before anything has been
	// Stored. Call it before the first Load.
	SetDefaultLoad(def T)
	// SetDefaultStore fixes what a Store of the zero value resolves to.
	// Call it before the first Store.
	SetDefaultStore(def T)

	// Load reads the current value, or the configured default load
	// value if nothing has been Stored yet.
	Load() (val T)
	// Store writes val. A zero val is rewritten to the configured
	// default store value first.
	Store(val T)
	// Swap stores new and returns whatever was stored before it. A zero
	// new is replaced by the default store value; a zero or unset old
	// is reported as the default load value.
	Swap(new T) (old T)
	// CompareAndSwap stores new only if the current value equals old,
	// reporting whether the swap happened. Zero old/new are resolved
	// against the default store value before comparing/storing.
	CompareAndSwap(old, new T) (swapped bool)
}

// Map is a sync.Map-backed store keyed by K holding untyped values.
type Map[K comparable] interface {
	// Load fetches the value under key; ok is false if nothing is
	// stored there.
	Load(key K) (value any, ok bool)
	// Store unconditionally overwrites whatever is under key.
	Store(key K, value any)

	// LoadOrStore returns the existing value under key if present,
	// otherwise stores value and returns it. loaded reports which
	// branch was taken.
	LoadOrStore(key K, value any) (actual any, loaded bool)
	// LoadAndDelete removes key and returns what it held, if anything.
	LoadAndDelete(key K) (value any, loaded bool)

	// Delete removes key if it is present.
	Delete(key K)
	// Swap replaces the value under key and returns the one it
	// displaced.
	Swap(key K, value any) (previous any, loaded bool)

	// CompareAndSwap replaces the value under key with new only if it
	// currently equals old.
	CompareAndSwap(key K, old, new any) bool
	// CompareAndDelete removes key only if its current value equals
	// old.
	CompareAndDelete(key K, old any) (deleted bool)

	// Range visits every key/value pair in unspecified order, stopping
	// early if f returns false.
	Range(f func(key K, value any) bool)
}

// MapTyped is Map with the value type pinned to V instead of any, so
// callers don't need a type assertion on every Load.
type MapTyped[K comparable, V any] interface {
	Load(key K) (value V, ok bool)
	Store(key K, value V)

	LoadOrStore(key K, value V) (actual V, loaded bool)
	LoadAndDelete(key K) (value V, loaded bool)

	Delete(key K)
	Swap(key K, value V) (previous V, loaded bool)

	CompareAndSwap(key K, old, new V) bool
	CompareAndDelete(key K, old V) (deleted bool)

	Range(f func(key K, value V) bool)
}

// NewValue returns a Value whose default load and store values are
// both the zero value of T.
func NewValue[T any]() Value[T] {
	var (
		tmp1 T
		tmp2 T
	)

	return NewValueDefault[T](tmp1, tmp2)
}

// NewValueDefault returns a Value with explicit default load/store
// values instead of the zero value NewValue assumes.
func NewValueDefault[T any](load, store T) Value[T] {
	o := &val[T]{
		av: new(atomic.Value),
		dl: new(atomic.Value),
		ds: new(atomic.Value),
	}

	o.SetDefaultLoad(load)
	o.SetDefaultStore(store)

	return o
}

// NewMapAny returns an empty Map over a sync.Map.
func NewMapAny[K comparable]() Map[K] {
	return &ma[K]{
		m: sync.Map{},
	}
}

// NewMapTyped returns an empty MapTyped, built on top of NewMapAny.
func NewMapTyped[K comparable, V any]() MapTyped[K, V] {
	return &mt[K, V]{
		m: NewMapAny[K](),
	}
}
