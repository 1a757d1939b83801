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

// Package reactor runs the single-threaded epoll event loop that
// multiplexes the listening socket and every accepted connection, handing
// blocking request work off to a worker pool and using a timer heap to
// evict idle connections without a per-connection goroutine or timer.
package reactor

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	libatm "github.com/sabouaram/tinyweb/atomic"
	"github.com/sabouaram/tinyweb/httpconn"
	"github.com/sabouaram/tinyweb/site"
	"github.com/sabouaram/tinyweb/timer"
	"github.com/sabouaram/tinyweb/workerpool"
)

// maxConnections is the hard cap on simultaneously accepted clients,
// beyond which a new connection is sent a short error message and closed
// immediately instead of being added to the fd table.
const maxConnections = 65536

const errorResponse = "Server error!"

// listenEvents/connEvents mirror the original server's edge-unset
// (level-triggered) masks: EPOLLRDHUP alone for the listening socket so a
// half-closed peer doesn't wedge accept, EPOLLONESHOT|EPOLLRDHUP for
// accepted connections so exactly one worker ever owns an fd's events at
// a time.
const (
	listenEvents uint32 = unix.EPOLLRDHUP
	connEvents   uint32 = unix.EPOLLONESHOT | unix.EPOLLRDHUP
)

// Config collects everything the reactor needs to bind a listener and
// serve the static site rooted at SitePath.
type Config struct {
	Port        int
	IdleTimeout time.Duration
	SitePath    string
	HTML        site.Set
	Auth        httpconn.Auther
	Workers     int
	QueueDepth  int
	Logger      *log.Logger
}

// Server is the reactor: one epoll instance, one listening socket, and a
// table of accepted connections, driven entirely from the goroutine that
// calls Run.
type Server struct {
	cfg Config
	ep  *epoller
	lfd int

	timer *timer.Heap
	pool  *workerpool.Pool
	log   *log.Logger

	// conns is a sync.Map-backed typed table rather than a mutex-guarded
	// map: reads happen from the single reactor goroutine and writes are
	// rare (accept/close), so a lock-free map avoids contending the hot
	// epoll loop against the rest of the process for a lock it almost
	// never needs to share.
	conns  libatm.MapTyped[int, *httpconn.Conn]
	count  libatm.Value[int64]
	closed atomic.Bool
}

// New raises the process file-descriptor limit, binds the listening
// socket and prepares (but does not start) the reactor.
func New(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, ErrorInvalidPort.Error(fmt.Errorf("port %d", cfg.Port))
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	if err := raiseNoFileLimit(); err != nil {
		cfg.Logger.Printf("reactor: raise RLIMIT_NOFILE failed: %v", err)
	}

	lfd, err := listen(cfg.Port)
	if err != nil {
		return nil, err
	}

	ep, err := newEpoller(1024)
	if err != nil {
		_ = unix.Close(lfd)
		return nil, err
	}

	if err := ep.add(lfd, listenEvents|unix.EPOLLIN|unix.EPOLLPRI); err != nil {
		_ = ep.Close()
		_ = unix.Close(lfd)
		return nil, ErrorAddListenFD.Error(err)
	}

	s := &Server{
		cfg:   cfg,
		ep:    ep,
		lfd:   lfd,
		timer: timer.NewHeap(),
		pool:  workerpool.New(cfg.Workers, cfg.QueueDepth),
		log:   cfg.Logger,
		conns: libatm.NewMapTyped[int, *httpconn.Conn](),
		count: libatm.NewValue[int64](),
	}
	return s, nil
}

// ConnCount reports the number of connections currently tracked by the
// reactor. Safe to call from any goroutine, including the metrics
// collector.
func (s *Server) ConnCount() int64 {
	return s.count.Load()
}

// Pool returns the worker pool backing this reactor, for the metrics
// collector to read Workers/Active/Pending from.
func (s *Server) Pool() *workerpool.Pool {
	return s.pool
}

// Run drives the epoll loop until ctx is canceled or Close is called;
// cancellation of ctx calls Close. Once Close has been called Run returns
// nil. If epoll_wait fails with an error other than EINTR, Run returns
// ErrorEpollWait without closing the listener or the open connections.
func (s *Server) Run(ctx context.Context) error {
	s.log.Printf("reactor: listening on port %d", s.cfg.Port)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-done:
		}
	}()
	defer close(done)

	for {
		if s.closed.Load() {
			return nil
		}

		timeout := -1
		if s.cfg.IdleTimeout > 0 {
			if d := s.timer.Peek(); d >= 0 {
				timeout = int(d / time.Millisecond)
			}
		}

		events, err := s.ep.wait(timeout)
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return ErrorEpollWait.Error(err)
		}

		for _, id := range s.timer.Tick() {
			s.closeConnByFD(int(id))
		}

		for _, ev := range events {
			fd := int(ev.Fd)

			if ev.Events&unix.EPOLLERR != 0 {
				s.closeConnByFD(fd)
				continue
			}

			if ev.Events&(unix.EPOLLIN|unix.EPOLLPRI|unix.EPOLLRDHUP) != 0 {
				if fd == s.lfd {
					s.dealListen()
				} else {
					s.dealRead(fd)
				}
			}

			if ev.Events&unix.EPOLLOUT != 0 {
				s.dealWrite(fd)
			}
		}
	}
}

// dealListen accepts as many pending connections as are ready without
// blocking, matching accept4's EAGAIN-terminated drain loop.
func (s *Server) dealListen() {
	for {
		fd, sa, err := unix.Accept4(s.lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err != unix.EAGAIN {
				s.log.Printf("reactor: accept4: %v", err)
			}
			return
		}

		if err := setSockOptKeepAlive(fd); err != nil {
			s.log.Printf("reactor: accepted fd %d SO_KEEPALIVE failed: %v", fd, err)
			_ = unix.Close(fd)
			continue
		}
		if err := setSockOptNoDelay(fd); err != nil {
			s.log.Printf("reactor: accepted fd %d TCP_NODELAY failed: %v", fd, err)
			_ = unix.Close(fd)
			continue
		}

		if s.count.Load() >= maxConnections {
			sendError(fd)
			continue
		}

		s.addClient(fd, peerAddrString(sa))
	}
}

func peerAddrString(sa unix.Sockaddr) string {
	if v, ok := sa.(*unix.SockaddrInet4); ok {
		return fmt.Sprintf("%d.%d.%d.%d:%d", v.Addr[0], v.Addr[1], v.Addr[2], v.Addr[3], v.Port)
	}
	return ""
}

func sendError(fd int) {
	_, _ = unix.Write(fd, []byte(errorResponse))
	_ = unix.Close(fd)
}

func (s *Server) addClient(fd int, addr string) {
	c := httpconn.New(fd, addr, s.cfg.SitePath, s.cfg.HTML, s.cfg.Auth)

	s.conns.Store(fd, c)
	s.count.Store(s.count.Load() + 1)

	if s.cfg.IdleTimeout > 0 {
		s.timer.Add(timer.ID(fd), s.cfg.IdleTimeout)
	}

	if err := s.ep.add(fd, unix.EPOLLIN|connEvents); err != nil {
		s.log.Printf("reactor: epoll add fd %d: %v", fd, err)
		s.closeConnByFD(fd)
	}
}

// extendTime pushes a connection's idle deadline back out to the full
// timeout, called whenever the reactor sees activity on its fd.
func (s *Server) extendTime(fd int) {
	if s.cfg.IdleTimeout > 0 {
		s.timer.Reset(timer.ID(fd), s.cfg.IdleTimeout)
	}
}

func (s *Server) dealRead(fd int) {
	s.extendTime(fd)
	c, ok := s.conns.Load(fd)
	if !ok {
		return
	}

	_, _ = s.pool.Submit(func() {
		s.onRead(fd, c)
	})
}

func (s *Server) dealWrite(fd int) {
	s.extendTime(fd)
	c, ok := s.conns.Load(fd)
	if !ok {
		return
	}

	_, _ = s.pool.Submit(func() {
		s.onWrite(fd, c)
	})
}

func (s *Server) onRead(fd int, c *httpconn.Conn) {
	n, err := c.Read()
	if n <= 0 && err != unix.EAGAIN {
		s.closeConnByFD(fd)
		return
	}
	s.onProcess(fd, c)
}

func (s *Server) onProcess(fd int, c *httpconn.Conn) {
	if c.Process() {
		if err := s.ep.mod(fd, connEvents|unix.EPOLLOUT); err != nil {
			s.closeConnByFD(fd)
		}
		return
	}
	if err := s.ep.mod(fd, connEvents|unix.EPOLLIN); err != nil {
		s.closeConnByFD(fd)
	}
}

func (s *Server) onWrite(fd int, c *httpconn.Conn) {
	_, err := c.Write()

	if !c.Pending() {
		if c.KeepAlive() {
			if e := s.ep.mod(fd, connEvents|unix.EPOLLIN); e == nil {
				return
			}
		}
	} else if err == unix.EAGAIN {
		if e := s.ep.mod(fd, connEvents|unix.EPOLLOUT); e == nil {
			return
		}
	}

	s.closeConnByFD(fd)
}

func (s *Server) closeConnByFD(fd int) {
	c, ok := s.conns.LoadAndDelete(fd)
	if !ok {
		return
	}
	s.count.Store(s.count.Load() - 1)

	_ = s.ep.del(fd)
	s.timer.Remove(timer.ID(fd))
	_ = c.Close()
}

// Close stops accepting events, closes every open connection and the
// listening socket, and waits for the worker pool to drain. Safe to call
// more than once.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	fds := make([]int, 0, s.count.Load())
	s.conns.Range(func(fd int, _ *httpconn.Conn) bool {
		fds = append(fds, fd)
		return true
	})

	for _, fd := range fds {
		s.closeConnByFD(fd)
	}

	_ = unix.Close(s.lfd)
	_ = s.ep.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.pool.Close(ctx)
}
