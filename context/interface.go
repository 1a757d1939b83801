/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package context

import (
	"context"

	libatm "github.com/sabouaram/tinyweb/atomic"
)

type FuncContextConfig[T comparable] func() Config[T]
type FuncWalk[T comparable] func(key T, val interface{}) bool

// MapManage is the bare key/value store a Config layers its
// context.Context behavior on top of.
type MapManage[T comparable] interface {
	// Clean empties the map; a no-op if it's already empty.
	Clean()
	Load(key T) (val interface{}, ok bool)
	// Store overwrites the entry at key; a nil cfg is ignored and leaves
	// any existing entry in place.
	Store(key T, cfg interface{})
	Delete(key T)
}

// Context exposes the plain context.Context this Config wraps, for
// callers that need to hand it to something that doesn't know about
// MapManage.
type Context interface {
	GetContext() context.Context
}

// Config combines context.Context, MapManage and Context: a
// cancelable context that doubles as a typed key/value store, used
// where a bare context.WithValue chain would otherwise be threaded
// through several layers by hand.
type Config[T comparable] interface {
	context.Context
	MapManage[T]
	Context

	// Clone returns an independent Config sharing ctx (or this one's
	// own context if ctx is nil) but a fresh underlying map.
	Clone(ctx context.Context) Config[T]
	// Merge copies every entry from cfg into this Config, failing if
	// cfg is nil or this Config's own context is already done.
	Merge(cfg Config[T]) bool
	// Walk visits every stored key/value pair.
	Walk(fct FuncWalk[T])
	// WalkLimit visits only the entries named in validKeys, or every
	// entry when validKeys is empty.
	WalkLimit(fct FuncWalk[T], validKeys ...T)

	LoadOrStore(key T, cfg interface{}) (val interface{}, loaded bool)
	LoadAndDelete(key T) (val interface{}, loaded bool)
}

// New wraps ctx (or context.Background if ctx is nil) in a Config
// backed by a fresh, empty map.
func New[T comparable](ctx context.Context) Config[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	return &ccx[T]{
		m: libatm.NewMapAny[T](),
		x: ctx,
	}
}

// NewConfig is New under the old name.
// Deprecated: see New
func NewConfig[T comparable](ctx context.Context) Config[T] {
	return New[T](ctx)
}
