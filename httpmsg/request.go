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

// Package httpmsg implements the HTTP/1.1 request parser and response
// builder used by one connection at a time; neither type is safe for
// concurrent use.
package httpmsg

import (
	"bytes"
	"strings"

	"github.com/sabouaram/tinyweb/buffer"
	"github.com/sabouaram/tinyweb/site"
	"github.com/sabouaram/tinyweb/urldecode"
)

type parseState int

const (
	stateLine parseState = iota
	stateHeaders
	stateContent
	stateFinish
)

var methods = map[string]struct{}{
	"GET": {}, "POST": {}, "HEAD": {}, "PUT": {},
	"DELETE": {}, "CONNECT": {}, "OPTIONS": {}, "TRACE": {},
}

// Request is a single HTTP/1.1 request parsed incrementally out of a
// connection's read buffer.
type Request struct {
	state   parseState
	Method  string
	Path    string
	Query   string
	Version string
	Headers map[string]string
	Post    map[string]string

	content strings.Builder
}

// NewRequest returns a Request ready to parse its first line.
func NewRequest() *Request {
	r := &Request{}
	r.Clear()
	return r
}

// Clear resets the request for reuse on the next pipelined message, per
// the "one Request per connection, reset between messages" usage pattern.
func (r *Request) Clear() {
	r.state = stateLine
	r.Method = ""
	r.Path = ""
	r.Query = ""
	r.Version = "HTTP/1.1"
	r.Headers = make(map[string]string)
	r.Post = make(map[string]string)
	r.content.Reset()
}

// Parse consumes complete CRLF-terminated lines out of buf's unread region
// until the state machine reaches Finish or no complete line remains. It
// reports false on a malformed request line or unsupported method/version.
func (r *Request) Parse(buf *buffer.Byte, html site.Set) bool {
	const crlf = "\r\n"

	if buf.Readable() == 0 {
		return false
	}

	for buf.Readable() > 0 && r.state != stateFinish {
		peek := buf.Peek()
		idx := bytes.Index(peek, []byte(crlf))

		var line []byte
		if idx < 0 {
			line = peek
		} else {
			line = peek[:idx]
		}

		switch r.state {
		case stateLine:
			if !r.parseLine(string(line), html) {
				return false
			}
			r.state = stateHeaders
		case stateHeaders:
			if !r.parseHeader(string(line)) {
				if r.Method == "POST" {
					r.state = stateContent
				} else {
					r.state = stateFinish
				}
			}
		case stateContent:
			r.content.Write(line)
			r.parsePost()
			r.state = stateFinish
		}

		if idx < 0 {
			buf.DrainAll()
			break
		}
		buf.Drain(idx + len(crlf))
	}

	return true
}

// Done reports whether a full request has been parsed.
func (r *Request) Done() bool {
	return r.state == stateFinish
}

func (r *Request) parseLine(line string, html site.Set) bool {
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return false
	}
	method := line[:sp]
	if _, ok := methods[method]; !ok {
		return false
	}
	r.Method = method

	rest := line[sp+1:]
	sp = strings.IndexByte(rest, ' ')
	if sp < 0 {
		return false
	}
	target := rest[:sp]
	version := rest[sp+1:]

	if q := strings.IndexByte(target, '?'); q >= 0 {
		r.Path = target[:q]
		r.Query = target[q+1:]
	} else {
		r.Path = target
	}

	if r.Path == "/" {
		r.Path = "/index.html"
	} else if html != nil && html.Has(r.Path) {
		r.Path += ".html"
	}

	switch version {
	case "HTTP/1.0", "HTTP/1.1":
		r.Version = version
	default:
		return false
	}

	return true
}

func (r *Request) parseHeader(line string) bool {
	if line == "" {
		return false
	}
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return false
	}
	key := line[:colon]
	value := strings.TrimLeft(line[colon+1:], " \t")
	r.Headers[key] = value
	return true
}

func (r *Request) header(name string) (string, bool) {
	if v, ok := r.Headers[name]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// parsePost fills Post from an application/x-www-form-urlencoded body. It
// does not decide routing: whether /login.html or /register.html succeeds
// depends on a database lookup, which is the caller's job (see
// httpconn.Conn.Process), not the parser's.
func (r *Request) parsePost() {
	ct, ok := r.header("Content-Type")
	if !ok || r.Method != "POST" || ct != "application/x-www-form-urlencoded" {
		return
	}

	form, err := urldecode.ParseForm(r.content.String())
	if err != nil {
		return
	}
	r.Post = form
}

// IsKeepAlive reports whether the connection should stay open after this
// response, per the Connection header and HTTP version.
func (r *Request) IsKeepAlive() bool {
	v, ok := r.header("Connection")
	if !ok {
		return false
	}
	return strings.EqualFold(v, "keep-alive") && r.Version == "HTTP/1.1"
}
