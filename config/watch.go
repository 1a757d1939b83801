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

package config

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file on disk every time it is rewritten and
// hands the new value to a callback. It deliberately does not propagate
// changes to anything that would require tearing down live sockets or
// database connections: only the DB pool bounds and the log level are
// meant to be read fresh by callers on each invocation of cb.
type Watcher struct {
	fsw  *fsnotify.Watcher
	log  *log.Logger
	done chan struct{}
}

// Watch starts watching path for writes/creates/renames (editors commonly
// replace a file rather than write in place) and invokes cb with the
// freshly loaded Config after each settle. Parse errors are logged and
// skipped rather than handed to cb, so a transient half-written save
// never reaches the callback as a broken config.
func Watch(path string, cb func(*Config), logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, log: logger, done: make(chan struct{})}
	go w.run(path, cb)
	return w, nil
}

func (w *Watcher) run(path string, cb func(*Config)) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				w.log.Printf("config: reload %s failed, keeping previous values: %v", path, err)
				continue
			}
			cb(cfg)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Printf("config: watch %s: %v", path, err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watch goroutine and releases the underlying inotify
// descriptor.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
