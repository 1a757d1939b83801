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

package fields

import (
	"context"
	"encoding/json"

	libctx "github.com/sabouaram/tinyweb/context"
	"github.com/sirupsen/logrus"
)

// Fields is a thread-safe, context-carrying bag of structured logging
// key/value pairs that also marshals to/from JSON as a flat object.
//
// Single-entry operations (Add, Store, Delete, Get, LoadOrStore,
// LoadAndDelete) are safe for concurrent use on their own; composite
// operations (Map, Merge, Clean) need external synchronization, or a
// Clone per goroutine.
type Fields interface {
	context.Context
	json.Marshaler
	json.Unmarshaler

	// Clone copies the entries into an independent Fields; nil if the
	// receiver is nil.
	Clone() Fields

	// Clean empties the entries, leaving the backing context intact.
	Clean()

	Add(key string, val interface{}) Fields
	Delete(key string) Fields

	// Merge copies every entry of f into the receiver, source values
	// winning on key collision. A nil f is a no-op.
	Merge(f Fields) Fields

	// Walk visits every entry in unspecified order until fct returns
	// false.
	Walk(fct libctx.FuncWalk[string]) Fields
	// WalkLimit is Walk restricted to validKeys; missing keys are
	// skipped silently.
	WalkLimit(fct libctx.FuncWalk[string], validKeys ...string) Fields

	Get(key string) (val interface{}, ok bool)
	Store(key string, cfg interface{})
	LoadOrStore(key string, cfg interface{}) (val interface{}, loaded bool)
	LoadAndDelete(key string) (val interface{}, loaded bool)

	// Logrus returns the logrus.Fields view of the current entries.
	Logrus() logrus.Fields
	// Map replaces each value with fct(key, value) in place.
	Map(fct func(key string, val interface{}) interface{}) Fields
}

// New returns a new, empty Fields bound to ctx; a nil ctx is accepted
// and still yields a usable Fields.
func New(ctx context.Context) Fields {
	return &fldModel{
		c: libctx.New[string](ctx),
	}
}
