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

// Package metrics collects a small set of prometheus gauges and counters
// describing the reactor, worker pool and database pool. It keeps its own
// registry rather than using prometheus.DefaultRegisterer so the server can
// be embedded without fighting another component for the global registry,
// and it never starts an HTTP listener of its own: exposition, if wanted,
// is the caller's concern.
package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

// Reactor is the subset of reactor.Server that metrics needs to read.
type Reactor interface {
	ConnCount() int64
}

// WorkerPool is the subset of workerpool.Pool that metrics needs to read.
type WorkerPool interface {
	Workers() int
	Active() int64
	Pending() int
}

// DBPool is the subset of dbpool.Pool that metrics needs to read.
type DBPool interface {
	InUse() int
	Stats() sql.DBStats
}

// Collector exposes the process's live state as prometheus metrics. It
// holds no state of its own beyond the registry: every value is read
// fresh from the underlying component each time the registry is scraped.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	bytesSent     prometheus.Counter
}

// New builds a Collector and registers gauge funcs backed by r, w and d.
// Any of the three may be nil, in which case its gauges are omitted
// rather than panicking on a nil interface later.
func New(r Reactor, w WorkerPool, d DBPool) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tinyweb",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed, by status class.",
		}, []string{"status"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tinyweb",
			Name:      "http_response_bytes_total",
			Help:      "Total number of response bytes written to clients.",
		}),
	}

	reg.MustRegister(c.requestsTotal, c.bytesSent)

	if r != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tinyweb",
			Name:      "reactor_connections",
			Help:      "Number of connections currently tracked by the reactor.",
		}, func() float64 { return float64(r.ConnCount()) }))
	}

	if w != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tinyweb",
			Name:      "worker_pool_size",
			Help:      "Configured number of worker pool goroutines.",
		}, func() float64 { return float64(w.Workers()) }))

		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tinyweb",
			Name:      "worker_pool_active",
			Help:      "Number of tasks currently executing on a worker.",
		}, func() float64 { return float64(w.Active()) }))

		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tinyweb",
			Name:      "worker_pool_pending",
			Help:      "Number of tasks queued but not yet picked up by a worker.",
		}, func() float64 { return float64(w.Pending()) }))
	}

	if d != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tinyweb",
			Name:      "db_pool_in_use",
			Help:      "Number of database pool checkouts currently held.",
		}, func() float64 { return float64(d.InUse()) }))

		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tinyweb",
			Name:      "db_pool_open_connections",
			Help:      "Number of established connections in the underlying database/sql pool.",
		}, func() float64 { return float64(d.Stats().OpenConnections) }))

		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tinyweb",
			Name:      "db_pool_wait_count",
			Help:      "Total number of connections waited for because none were free.",
		}, func() float64 { return float64(d.Stats().WaitCount) }))
	}

	return c
}

// Registry returns the prometheus registry backing this collector, for a
// caller that wants to mount its own /metrics handler via
// promhttp.HandlerFor.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRequest records one completed HTTP request of the given status
// class ("2xx", "4xx", "5xx", ...) and the number of response bytes
// written for it.
func (c *Collector) ObserveRequest(statusClass string, bytesSent int) {
	c.requestsTotal.WithLabelValues(statusClass).Inc()
	c.bytesSent.Add(float64(bytesSent))
}
