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

// Package httpconn ties one accepted socket to its read/write buffers and
// its HTTP request/response pair, and knows how to read, write and process
// exactly one request/response cycle on it. The reactor owns the epoll
// interest for the fd; Conn only ever touches the fd from inside a task the
// reactor has dispatched to the worker pool, never concurrently with
// itself.
package httpconn

import (
	"golang.org/x/sys/unix"

	"github.com/sabouaram/tinyweb/buffer"
	"github.com/sabouaram/tinyweb/httpmsg"
	"github.com/sabouaram/tinyweb/site"
)

// Auther verifies or registers a demo user. It is implemented by the
// authdemo package; httpconn only depends on this narrow interface so it
// never has to import the database layer directly.
type Auther interface {
	Verify(user, pass string) (bool, error)
	Register(user, pass string) (bool, error)
}

// Conn is one accepted connection's read/write state.
type Conn struct {
	FD   int
	Addr string

	readBuf  *buffer.Byte
	writeBuf *buffer.Byte
	req      *httpmsg.Request
	resp     *httpmsg.Response

	sitePath string
	html     site.Set
	auth     Auther

	keepAlive bool
	closed    bool
}

// New wraps fd as a Conn ready to read, given the static site root, its
// preloaded .html set, and the auth backend for the demo login/register
// routes.
func New(fd int, addr string, sitePath string, html site.Set, auth Auther) *Conn {
	return &Conn{
		FD:       fd,
		Addr:     addr,
		readBuf:  buffer.NewByte(4096),
		writeBuf: buffer.NewByte(4096),
		req:      httpmsg.NewRequest(),
		resp:     httpmsg.NewResponse(),
		sitePath: sitePath,
		html:     html,
		auth:     auth,
	}
}

// Read drains the socket into the read buffer once. It returns the byte
// count and the syscall error unmodified so the caller can distinguish
// EAGAIN (no more data right now) from a real failure.
func (c *Conn) Read() (int, error) {
	return c.readBuf.ReadFrom(c.FD)
}

// Process parses whatever is in the read buffer and builds the response
// into the write buffer: the requested file when parsing succeeded, a 400
// response when it failed. It reports false only when the read buffer is
// empty; it does not wait for a complete request.
func (c *Conn) Process() bool {
	c.req.Clear()
	if c.readBuf.Readable() == 0 {
		return false
	}

	ok := c.req.Parse(c.readBuf, c.html)
	c.keepAlive = ok && c.req.IsKeepAlive()

	if ok && c.req.Method == "POST" {
		c.runAuthDemo()
	}

	code := -1
	if !ok {
		code = 400
	}
	c.resp.Init(c.sitePath, c.req.Path, c.keepAlive, code)
	c.resp.Build(c.writeBuf)
	return true
}

// runAuthDemo resolves the /login.html and /register.html demo routes
// against the configured Auther, rewriting the request path to /index.html
// on success or /error.html otherwise, mirroring the original source's
// inline userVerify call but kept out of the parser itself.
func (c *Conn) runAuthDemo() {
	if c.auth == nil {
		return
	}

	user, pass := c.req.Post["username"], c.req.Post["password"]

	switch c.req.Path {
	case "/login.html":
		ok, err := c.auth.Verify(user, pass)
		if err == nil && ok {
			c.req.Path = "/index.html"
		} else {
			c.req.Path = "/error.html"
		}
	case "/register.html":
		ok, err := c.auth.Register(user, pass)
		if err == nil && ok {
			c.req.Path = "/index.html"
		} else {
			c.req.Path = "/error.html"
		}
	}
}

// ErrClosed is returned by Write once the connection has been Closed.
var ErrClosed = ErrorClosed.Error()

// Write sends as much of the pending response (headers then mmap'd file
// body, as a two-segment scatter/gather write) as the socket will accept
// in one call, draining sent bytes from the write buffer and the file view
// as it goes. It returns the bytes written and the syscall error, letting
// the caller retry on EAGAIN.
func (c *Conn) Write() (int, error) {
	if c.closed {
		return 0, ErrClosed
	}

	header := c.writeBuf.Peek()
	file := c.resp.File()

	segments := make([][]byte, 0, 2)
	if len(header) > 0 {
		segments = append(segments, header)
	}
	if len(file) > 0 {
		segments = append(segments, file)
	}
	if len(segments) == 0 {
		return 0, nil
	}

	n, err := unix.Writev(c.FD, segments)
	if n <= 0 {
		return n, err
	}

	remaining := n
	if len(header) > 0 {
		drop := remaining
		if drop > len(header) {
			drop = len(header)
		}
		c.writeBuf.Drain(drop)
		remaining -= drop
	}
	if remaining > 0 && len(file) > 0 {
		c.resp.ConsumeFile(remaining)
	}

	return n, err
}

// Pending reports whether any response bytes remain unsent.
func (c *Conn) Pending() bool {
	return c.writeBuf.Readable() > 0 || len(c.resp.File()) > 0
}

// KeepAlive reports whether, after the current response finishes sending,
// the connection should go back to watching for another request rather
// than closing.
func (c *Conn) KeepAlive() bool {
	return c.keepAlive
}

// Close releases the response's mmap and closes the socket. Safe to call
// more than once.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.resp.Close()
	return unix.Close(c.FD)
}
