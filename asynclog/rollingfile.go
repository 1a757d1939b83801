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

package asynclog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// rollingFile is an append-only log file that opens a new file, named with
// the current timestamp and pid, whenever the current one exceeds rollSize
// or a new calendar day begins. It is only ever touched by the Writer's
// single background goroutine, so it needs no locking of its own.
type rollingFile struct {
	dir      string
	basename string
	rollSize int64

	f          *os.File
	written    int64
	periodDays int64
}

func newRollingFile(dir, basename string, rollSize int64) (*rollingFile, error) {
	if rollSize <= 0 {
		rollSize = 8 * 1024 * 1024
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	rf := &rollingFile{dir: dir, basename: basename, rollSize: rollSize}
	if err := rf.roll(); err != nil {
		return nil, err
	}
	return rf, nil
}

// fileName matches the original server's "<basename>.YYYYMMDD-HHMMSS.<pid>.log"
// naming scheme.
func fileName(basename string, now time.Time) string {
	return fmt.Sprintf("%s.%s.%d.log", basename, now.Format("20060102-150405"), os.Getpid())
}

func (rf *rollingFile) roll() error {
	if rf.f != nil {
		_ = rf.f.Close()
	}

	now := time.Now()
	path := filepath.Join(rf.dir, fileName(rf.basename, now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	rf.f = f
	rf.written = 0
	rf.periodDays = now.Unix() / 86400
	return nil
}

// Append writes p to the current file, rolling to a new file first if p
// would push the file past rollSize or the calendar day has changed.
func (rf *rollingFile) Append(p []byte) error {
	today := time.Now().Unix() / 86400
	if rf.written+int64(len(p)) > rf.rollSize || today != rf.periodDays {
		if err := rf.roll(); err != nil {
			return err
		}
	}

	n, err := rf.f.Write(p)
	rf.written += int64(n)
	return err
}

// Flush syncs the current file to stable storage.
func (rf *rollingFile) Flush() error {
	if rf.f == nil {
		return nil
	}
	return rf.f.Sync()
}

// Close flushes and closes the current file.
func (rf *rollingFile) Close() error {
	if rf.f == nil {
		return nil
	}
	_ = rf.f.Sync()
	return rf.f.Close()
}
