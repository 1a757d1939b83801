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

// Package hookfile is a logrus hook that formats each accepted entry and
// hands the bytes to an asynclog.Writer, which owns the actual file,
// rotation and background flushing. The hook itself never touches a file
// descriptor directly.
package hookfile

import (
	"sync/atomic"

	"github.com/sabouaram/tinyweb/asynclog"
	loglvl "github.com/sabouaram/tinyweb/logger/level"
	logtps "github.com/sabouaram/tinyweb/logger/types"
	"github.com/sirupsen/logrus"
)

// HookFile is a logrus hook that writes accepted entries to a rotating,
// asynchronously-flushed log file.
type HookFile interface {
	logtps.Hook
}

// Options configures a file hook.
type Options struct {
	LogLevel         []string
	DisableStack     bool
	DisableTimestamp bool
	EnableTrace      bool
	EnableAccessLog  bool
}

// New wraps an already-running asynclog.Writer as a logrus hook. The
// caller owns the Writer's lifetime (Start/Stop); the hook only ever
// calls Append on it.
func New(opt Options, w *asynclog.Writer, format logrus.Formatter) (HookFile, error) {
	if w == nil {
		return nil, errMissingWriter
	}

	var lvls []logrus.Level
	if len(opt.LogLevel) > 0 {
		for _, ls := range opt.LogLevel {
			lvls = append(lvls, loglvl.Parse(ls).Logrus())
		}
	} else {
		lvls = logrus.AllLevels
	}

	n := &hkf{
		o: ohkf{
			format:           format,
			levels:           lvls,
			disableStack:     opt.DisableStack,
			disableTimestamp: opt.DisableTimestamp,
			enableTrace:      opt.EnableTrace,
			enableAccessLog:  opt.EnableAccessLog,
		},
		w: w,
		r: new(atomic.Bool),
	}
	n.r.Store(true)

	return n, nil
}
