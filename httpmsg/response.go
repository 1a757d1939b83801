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

package httpmsg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sabouaram/tinyweb/buffer"
	"github.com/sabouaram/tinyweb/site"
)

var statusText = map[int]string{
	200: "OK",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
}

var errorPath = map[int]string{
	400: "/400.html",
	403: "/403.html",
	404: "/404.html",
}

// Response builds the status line, headers and body for one request and
// owns an mmap'd view of the response file, if any, until Close is called.
type Response struct {
	Code      int
	KeepAlive bool
	Path      string
	SrcDir    string

	mapped []byte
	sent   int
}

// NewResponse returns a zero-value Response ready for Init.
func NewResponse() *Response {
	return &Response{Code: -1}
}

// Init prepares the response for a new request, releasing any mmap held by
// a previous one.
func (resp *Response) Init(srcDir, path string, keepAlive bool, code int) {
	resp.Close()
	resp.SrcDir = srcDir
	resp.Path = path
	resp.KeepAlive = keepAlive
	resp.Code = code
}

// Close unmaps the response's file body, if mapped. It is safe to call
// more than once.
func (resp *Response) Close() {
	if resp.mapped != nil {
		_ = unix.Munmap(resp.mapped)
		resp.mapped = nil
	}
	resp.sent = 0
}

// ConsumeFile advances past n already-sent bytes of the file view, so a
// subsequent File() call only returns the unsent remainder.
func (resp *Response) ConsumeFile(n int) {
	resp.sent += n
	if resp.sent > len(resp.mapped) {
		resp.sent = len(resp.mapped)
	}
}

// File returns the unsent remainder of the mmap'd response body, or nil if
// the response has none
// (an error page built entirely in the header buffer).
func (resp *Response) File() []byte {
	return resp.mapped[resp.sent:]
}

// Build renders the status line, headers and (for a successful file
// response) Content-length header into buf, then mmaps the backing file so
// the caller can send it as a second scatter/gather segment. Failure paths
// (stat, permission, open, mmap) fall back to an inline HTML error body
// appended directly to buf instead. A response initialised with code 400
// keeps that status whatever its request path.
func (resp *Response) Build(buf *buffer.Byte) {
	fullPath := resp.SrcDir + resp.Path

	info, err := os.Stat(fullPath)
	switch {
	case resp.Code == 400:
	case err != nil || info.IsDir():
		resp.Code = 404
	case info.Mode().Perm()&0o004 == 0:
		resp.Code = 403
	case resp.Code == -1:
		resp.Code = 200
	}

	resp.rewriteErrorPath()
	resp.addStatusLine(buf)
	resp.addHeaders(buf)
	resp.addContent(buf)
}

func (resp *Response) rewriteErrorPath() {
	if p, ok := errorPath[resp.Code]; ok {
		resp.Path = p
	}
}

func (resp *Response) addStatusLine(buf *buffer.Byte) {
	text, ok := statusText[resp.Code]
	if !ok {
		resp.Code = 400
		text = statusText[400]
	}
	buf.Append([]byte(fmt.Sprintf("HTTP/1.1 %d %s\r\n", resp.Code, text)))
}

func (resp *Response) addHeaders(buf *buffer.Byte) {
	buf.Append([]byte("Connection: "))
	if resp.KeepAlive {
		buf.Append([]byte("keep-alive\r\n"))
		buf.Append([]byte("keep-alive: max=6, timeout=120\r\n"))
	} else {
		buf.Append([]byte("close\r\n"))
	}
	buf.Append([]byte("Content-type: " + site.ContentType(resp.Path) + "\r\n"))
}

func (resp *Response) addContent(buf *buffer.Byte) {
	fullPath := resp.SrcDir + resp.Path

	fd, err := unix.Open(fullPath, unix.O_RDONLY, 0)
	if err != nil {
		resp.errorContent(buf, "File NotFound!")
		return
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		_ = unix.Close(fd)
		resp.errorContent(buf, "File Stat Error!")
		return
	}
	if stat.Size == 0 {
		_ = unix.Close(fd)
		resp.errorContent(buf, "Empty File!")
		return
	}

	mapped, err := unix.Mmap(fd, 0, int(stat.Size), unix.PROT_READ, unix.MAP_PRIVATE)
	_ = unix.Close(fd)
	if err != nil {
		resp.errorContent(buf, "File NotFound!")
		return
	}
	resp.mapped = mapped

	buf.Append([]byte("Content-length: " + strconv.FormatInt(stat.Size, 10) + "\r\n\r\n"))
}

func (resp *Response) errorContent(buf *buffer.Byte, message string) {
	var body strings.Builder
	body.WriteString("<html><title>Error</title><body bgcolor=\"ffffff\">")
	text, ok := statusText[resp.Code]
	if !ok {
		text = "Bad Request"
	}
	body.WriteString(strconv.Itoa(resp.Code) + " : " + text + "\n")
	body.WriteString("<p>" + message + "</p>")
	body.WriteString("<hr><em>tinyweb</em></body></html>")

	buf.Append([]byte("Content-length: " + strconv.Itoa(body.Len()) + "\r\n\r\n"))
	buf.Append([]byte(body.String()))
}
