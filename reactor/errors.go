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

package reactor

import liberr "github.com/sabouaram/tinyweb/errors"

const (
	ErrorInvalidPort liberr.CodeError = iota + liberr.MinAvailable + 500
	ErrorSocket
	ErrorReuseAddr
	ErrorKeepAlive
	ErrorBindPort
	ErrorListenPort
	ErrorAddListenFD
	ErrorEpollWait
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = liberr.ExistInMapMessage(ErrorInvalidPort)
	liberr.RegisterIdFctMessage(ErrorInvalidPort, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorInvalidPort:
		return "reactor: invalid port"
	case ErrorSocket:
		return "reactor: socket"
	case ErrorReuseAddr:
		return "reactor: SO_REUSEADDR"
	case ErrorKeepAlive:
		return "reactor: SO_KEEPALIVE"
	case ErrorBindPort:
		return "reactor: bind port"
	case ErrorListenPort:
		return "reactor: listen port"
	case ErrorAddListenFD:
		return "reactor: add listen fd"
	case ErrorEpollWait:
		return "reactor: epoll wait"
	}

	return ""
}
