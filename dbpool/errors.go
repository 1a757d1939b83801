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

package dbpool

import liberr "github.com/sabouaram/tinyweb/errors"

const (
	ErrorPoolClosed liberr.CodeError = iota + liberr.MinAvailable
	ErrorPoolExhausted
	ErrorEnsureDatabase
	ErrorOpen
	ErrorUnderlyingDB
)

var isCodeError = false

// IsCodeError reports whether this package's error codes registered
// successfully (false only if another package already claimed the range).
func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = liberr.ExistInMapMessage(ErrorPoolClosed)
	liberr.RegisterIdFctMessage(ErrorPoolClosed, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorPoolClosed:
		return "dbpool: closed"
	case ErrorPoolExhausted:
		return "dbpool: exhausted"
	case ErrorEnsureDatabase:
		return "dbpool: ensure database"
	case ErrorOpen:
		return "dbpool: open"
	case ErrorUnderlyingDB:
		return "dbpool: underlying sql.DB"
	}

	return ""
}
