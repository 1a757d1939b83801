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

// Package dbpool bounds concurrent access to a MySQL database behind a
// small RAII-style checkout API, on top of gorm's own connection pooling,
// and runs a background health probe the way a long-lived server process
// expects its database layer to behave.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	liblog "github.com/sabouaram/tinyweb/logger"
	loggrm "github.com/sabouaram/tinyweb/logger/gorm"
	gormmys "gorm.io/driver/mysql"
	gormdb "gorm.io/gorm"
)

// ErrPoolClosed is returned by Acquire once the pool has been closed.
var ErrPoolClosed = ErrorPoolClosed.Error()

// ErrPoolExhausted is returned by Acquire when ctx expires before a slot
// under MaxConns frees up.
var ErrPoolExhausted = ErrorPoolExhausted.Error()

// Config describes how to reach a MySQL server and how many concurrent
// checkouts the pool should allow.
type Config struct {
	Host     string
	Port     uint16
	User     string
	Password string
	DBName   string

	// MinConns caps how many idle connections the underlying
	// database/sql pool retains; connections are not opened ahead of use.
	MinConns int
	// MaxConns bounds both database/sql's open connections and the
	// number of concurrently outstanding Handles.
	MaxConns int

	// PingInterval is how often the background monitor probes the
	// connection; it defaults to 60 seconds, matching the cadence of a
	// classic connection-pool health check.
	PingInterval time.Duration

	// LoggerFactory, when set, is handed to the gorm query logger adapter
	// so query logging follows whatever Logger the caller has wired up.
	// Left nil, gorm falls back to its own default logger.
	LoggerFactory func() liblog.Logger
	// IgnoreRecordNotFoundError suppresses gorm.ErrRecordNotFound from the
	// query logger's error output; only consulted when LoggerFactory is set.
	IgnoreRecordNotFoundError bool
	// SlowQueryThreshold marks a query as slow in the logger's output;
	// defaults to 200ms when LoggerFactory is set and this is zero.
	SlowQueryThreshold time.Duration
}

func (c Config) dsn(withDB bool) string {
	cfg := mysqldrv.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.ParseTime = true
	if withDB {
		cfg.DBName = c.DBName
	}
	return cfg.FormatDSN()
}

// Pool wraps a gorm.DB over MySQL with a bounded checkout semaphore and a
// background ping loop.
type Pool struct {
	cfg Config
	db  *gormdb.DB
	sem chan struct{}

	mu     sync.Mutex
	closed bool
	stopCh chan struct{}
	doneCh chan struct{}
}

// Open ensures the configured database exists, opens a pooled connection
// to it and starts the background health monitor.
func Open(cfg Config) (*Pool, error) {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	if cfg.MinConns <= 0 {
		cfg.MinConns = 1
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 60 * time.Second
	}

	if err := ensureDatabase(cfg); err != nil {
		return nil, ErrorEnsureDatabase.Error(err)
	}

	gcfg := &gormdb.Config{}
	if cfg.LoggerFactory != nil {
		threshold := cfg.SlowQueryThreshold
		if threshold <= 0 {
			threshold = 200 * time.Millisecond
		}
		gcfg.Logger = loggrm.New(cfg.LoggerFactory, cfg.IgnoreRecordNotFoundError, threshold)
	}

	db, err := gormdb.Open(gormmys.Open(cfg.dsn(true)), gcfg)
	if err != nil {
		return nil, ErrorOpen.Error(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, ErrorUnderlyingDB.Error(err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MinConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	p := &Pool{
		cfg:    cfg,
		db:     db,
		sem:    make(chan struct{}, cfg.MaxConns),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go p.monitor()

	return p, nil
}

// ensureDatabase connects without selecting a schema and issues a
// CREATE DATABASE IF NOT EXISTS, mirroring a first-use bootstrap check
// that tolerates a fresh MySQL instance with nothing provisioned yet.
func ensureDatabase(cfg Config) error {
	raw, err := sql.Open("mysql", cfg.dsn(false))
	if err != nil {
		return err
	}
	defer raw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := raw.PingContext(ctx); err != nil {
		return err
	}

	query := fmt.Sprintf(
		"CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci",
		cfg.DBName,
	)
	_, err = raw.ExecContext(ctx, query)
	return err
}

// Handle is a scoped checkout of the pool. Release must be called exactly
// once, typically via defer, to free the slot for the next waiter.
type Handle struct {
	pool *Pool
	db   *gormdb.DB
}

// DB returns the gorm handle for issuing queries within this checkout.
func (h *Handle) DB() *gormdb.DB {
	return h.db
}

// Release returns the checkout slot to the pool. Safe to call more than
// once.
func (h *Handle) Release() {
	if h.pool == nil {
		return
	}
	select {
	case <-h.pool.sem:
	default:
	}
	h.pool = nil
}

// Acquire blocks until a checkout slot is available or ctx is done. The
// returned Handle must be released by the caller.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case p.sem <- struct{}{}:
		return &Handle{pool: p, db: p.db}, nil
	case <-ctx.Done():
		return nil, ErrPoolExhausted
	}
}

// InUse reports the number of checkouts currently held, for the metrics
// collector to expose as a gauge alongside MaxConns.
func (p *Pool) InUse() int {
	return len(p.sem)
}

// Stats returns the underlying database/sql pool statistics (open
// connections, idle connections, wait count), as gorm exposes them.
func (p *Pool) Stats() sql.DBStats {
	sqlDB, err := p.db.DB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}

// CheckConn pings the underlying connection, surfacing whatever error the
// driver reports.
func (p *Pool) CheckConn(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// monitor runs for the lifetime of the pool, probing the connection on a
// fixed cadence the way a long-running server keeps tabs on its database
// without waiting for a request to discover it's gone.
func (p *Pool) monitor() {
	defer close(p.doneCh)

	t := time.NewTicker(p.cfg.PingInterval)
	defer t.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = p.CheckConn(ctx)
			cancel()
		}
	}
}

// Close stops the health monitor and closes the underlying connection.
// Safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh

	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
