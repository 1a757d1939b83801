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

// Package logger is the root facade tying level, fields, entry and hook
// packages into one logrus.Logger-backed object. It owns no output
// destination itself: the caller builds hooks (hookfile, hookwriter,
// hookstderr, hookstdout) and passes them to RegisterHooks, so adding a
// new sink never touches this package.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	libctx "github.com/sabouaram/tinyweb/context"
	logent "github.com/sabouaram/tinyweb/logger/entry"
	logfld "github.com/sabouaram/tinyweb/logger/fields"
	loglvl "github.com/sabouaram/tinyweb/logger/level"
	logtps "github.com/sabouaram/tinyweb/logger/types"
)

const (
	keyLevel = iota
	keyLogrus
)

var self = path.Base(reflect.TypeOf(logger{}).PkgPath())

// Logger is the structured logger used throughout this project: level
// filtering, default fields merged into every entry, and a set of
// pluggable logrus hooks for output.
type Logger interface {
	// SetLevel changes the minimum level logged by this Logger and by the
	// underlying logrus.Logger.
	SetLevel(lvl loglvl.Level)
	// GetLevel returns the current minimum level.
	GetLevel() loglvl.Level

	// SetFields replaces the fields merged into every entry created by
	// this Logger.
	SetFields(field logfld.Fields)
	// GetFields returns a clone of the current default fields.
	GetFields() logfld.Fields

	// RegisterHooks attaches the given hooks to the underlying
	// logrus.Logger. Passing no hooks leaves the logger writing to
	// nowhere, which is intentional: a Logger with nothing registered is
	// silent rather than falling back to os.Stdout behind the caller's
	// back.
	RegisterHooks(hooks ...logtps.Hook)

	// Debug, Info, Warning, Error and Fatal each build and log an entry at
	// their respective level. message is passed through fmt.Sprintf with
	// args; data is attached as-is.
	Debug(message string, data interface{}, args ...interface{})
	Info(message string, data interface{}, args ...interface{})
	Warning(message string, data interface{}, args ...interface{})
	Error(message string, data interface{}, args ...interface{})
	// Fatal logs at FatalLevel then terminates the process (os.Exit(1)
	// inside entry.Log()). Deferred calls do not run.
	Fatal(message string, data interface{}, args ...interface{})

	// CheckError logs at lvlKO if any non-nil error is given, otherwise at
	// lvlOK (skip by passing loglvl.NilLevel). Returns whether an error was
	// found.
	CheckError(lvlKO, lvlOK loglvl.Level, message string, err ...error) bool

	// Entry returns a customizable entry at the given level; the caller
	// may add fields before calling Log().
	Entry(lvl loglvl.Level, message string, args ...interface{}) logent.Entry
	// Access returns a message-only entry formatted as a combined-log-format
	// HTTP access line.
	Access(remoteAddr, remoteUser string, localtime time.Time, latency time.Duration, method, request, proto string, status int, size int64) logent.Entry
}

type logger struct {
	m sync.RWMutex
	x libctx.Config[uint8]
	f logfld.Fields
}

// New returns a Logger with no hooks registered and level set to Info.
// Call RegisterHooks to give it somewhere to write.
func New(ctx context.Context) Logger {
	l := &logger{
		m: sync.RWMutex{},
		x: libctx.New[uint8](ctx),
		f: logfld.New(ctx),
	}

	l.SetLevel(loglvl.InfoLevel)

	return l
}

func (o *logger) getLogrus() *logrus.Logger {
	if i, ok := o.x.Load(keyLogrus); !ok {
		return nil
	} else if v, k := i.(*logrus.Logger); !k {
		return nil
	} else {
		return v
	}
}

func (o *logger) SetLevel(lvl loglvl.Level) {
	o.x.Store(keyLevel, lvl)

	o.m.Lock()
	defer o.m.Unlock()

	log := o.getLogrus()
	if log == nil {
		log = logrus.New()
		log.SetOutput(logDiscard{})
	}
	log.SetLevel(lvl.Logrus())
	o.x.Store(keyLogrus, log)
}

func (o *logger) GetLevel() loglvl.Level {
	if i, ok := o.x.Load(keyLevel); !ok {
		return loglvl.NilLevel
	} else if v, k := i.(loglvl.Level); !k {
		return loglvl.NilLevel
	} else {
		return v
	}
}

func (o *logger) SetFields(field logfld.Fields) {
	o.f.Clean()
	o.f.Merge(field)
}

func (o *logger) GetFields() logfld.Fields {
	return o.f.Clone()
}

// RegisterHooks attaches each hook to the underlying logrus.Logger.
// Hooks own their own lifetime (Run/Close); this method only wires them
// in, it does not start or stop anything.
func (o *logger) RegisterHooks(hooks ...logtps.Hook) {
	o.m.Lock()
	defer o.m.Unlock()

	log := o.getLogrus()
	if log == nil {
		log = logrus.New()
		log.SetLevel(o.GetLevel().Logrus())
	}
	log.SetOutput(logDiscard{})

	for _, h := range hooks {
		if h == nil {
			continue
		}
		h.RegisterHook(log)
	}

	o.x.Store(keyLogrus, log)
}

func (o *logger) getStack() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]

	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

func (o *logger) getCaller() runtime.Frame {
	pc := make([]uintptr, 10)
	n := runtime.Callers(1, pc)

	if n > 0 {
		frames := runtime.CallersFrames(pc[:n])
		more := true
		for more {
			var frame runtime.Frame
			frame, more = frames.Next()
			if strings.Contains(frame.Function, self) {
				continue
			}
			return frame
		}
	}

	return runtime.Frame{Function: "unknown", File: "unknown", Line: 0}
}

func (o *logger) newEntry(lvl loglvl.Level, message string, err []error, data interface{}) logent.Entry {
	var (
		ent = logent.New(lvl)
		frm = o.getCaller()
		stk = o.getStack()
		fld = o.GetFields()
	)

	var line uint64
	if frm.Line > 0 {
		line = uint64(frm.Line)
	}

	ent.ErrorSet(err)
	ent.DataSet(data)
	ent.SetEntryContext(time.Now(), stk, frm.Function, frm.File, line, message)

	if fld != nil {
		ent.FieldSet(fld)
	}

	ent.SetLogger(o.getLogrus)

	return ent
}

func (o *logger) Debug(message string, data interface{}, args ...interface{}) {
	o.newEntry(loglvl.DebugLevel, fmt.Sprintf(message, args...), nil, data).Log()
}

func (o *logger) Info(message string, data interface{}, args ...interface{}) {
	o.newEntry(loglvl.InfoLevel, fmt.Sprintf(message, args...), nil, data).Log()
}

func (o *logger) Warning(message string, data interface{}, args ...interface{}) {
	o.newEntry(loglvl.WarnLevel, fmt.Sprintf(message, args...), nil, data).Log()
}

func (o *logger) Error(message string, data interface{}, args ...interface{}) {
	o.newEntry(loglvl.ErrorLevel, fmt.Sprintf(message, args...), nil, data).Log()
}

func (o *logger) Fatal(message string, data interface{}, args ...interface{}) {
	o.newEntry(loglvl.FatalLevel, fmt.Sprintf(message, args...), nil, data).Log()
}

func (o *logger) CheckError(lvlKO, lvlOK loglvl.Level, message string, err ...error) bool {
	ent := o.newEntry(lvlKO, message, err, nil)
	return ent.Check(lvlOK)
}

func (o *logger) Entry(lvl loglvl.Level, message string, args ...interface{}) logent.Entry {
	return o.newEntry(lvl, fmt.Sprintf(message, args...), nil, nil)
}

func (o *logger) Access(remoteAddr, remoteUser string, localtime time.Time, latency time.Duration, method, request, proto string, status int, size int64) logent.Entry {
	msg := fmt.Sprintf("%s - %s [%s] [%s] \"%s %s %s\" %d %d",
		remoteAddr, remoteUser, localtime.Format(time.RFC1123Z), latency.String(), method, request, proto, status, size)
	return o.newEntry(loglvl.InfoLevel, msg, nil, nil).SetMessageOnly(true)
}

// logDiscard replaces io.Discard as logrus's default output: every
// write actually reaches logged output through registered hooks, not
// through the logger's own Writer, so its base output sink is always
// nowhere.
type logDiscard struct{}

func (logDiscard) Write(p []byte) (int, error) {
	return len(p), nil
}
