// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package counters tracks the three process-wide progress counters (C10):
// chunks ever enqueued, chunks accepted by the dispatcher, and chunks that
// have finished (succeeded or been dropped after a logged failure). They
// carry no correctness contract (§4.10) — only progress reporting and the
// wait-for-completion loop depend on them.
package counters

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Counters is an injectable set of the three atomics, so tests can swap in
// a fresh instance instead of relying on process-wide globals (§9 "Global
// state... treat them as injected dependencies for testability").
type Counters struct {
	total     int64
	pending   int64
	completed int64
}

// New returns a zeroed Counters.
func New() *Counters {
	return &Counters{}
}

// AddTotal increments TOTAL_CHUNKS by n and returns the new value.
func (c *Counters) AddTotal(n int64) int64 {
	v := atomic.AddInt64(&c.total, n)
	metrics.init()
	metrics.totalChunks.Add(float64(n))
	return v
}

// IncPending increments PENDING_EMBEDDINGS by one.
func (c *Counters) IncPending() int64 {
	v := atomic.AddInt64(&c.pending, 1)
	metrics.init()
	metrics.pendingEmbeddings.Inc()
	return v
}

// IncCompleted increments COMPLETED_EMBEDDINGS by one.
func (c *Counters) IncCompleted() int64 {
	v := atomic.AddInt64(&c.completed, 1)
	metrics.init()
	metrics.completedEmbeddings.Inc()
	return v
}

// Total, Pending, and Completed read the current counter values.
func (c *Counters) Total() int64     { return atomic.LoadInt64(&c.total) }
func (c *Counters) Pending() int64   { return atomic.LoadInt64(&c.pending) }
func (c *Counters) Completed() int64 { return atomic.LoadInt64(&c.completed) }

// Done reports whether the dispatcher has drained: every enqueued chunk
// has been accepted and every accepted job has finished (§4.7, §8
// property 6).
func (c *Counters) Done() bool {
	return c.Total() == c.Pending() && c.Pending() == c.Completed()
}

// Reset zeroes all three counters. Callers use this between CLI
// operations so one ingest/update run's chunk counts never bleed into the
// next run's report.
func (c *Counters) Reset() {
	atomic.StoreInt64(&c.total, 0)
	atomic.StoreInt64(&c.pending, 0)
	atomic.StoreInt64(&c.completed, 0)
}

// metricsCounters mirrors increments of the three atomics as Prometheus
// counters, exposed on an optional /metrics endpoint (SPEC_FULL §3/§4).
// They are cumulative for the whole process: Reset does not zero them.
type metricsCounters struct {
	once sync.Once

	totalChunks         prometheus.Counter
	pendingEmbeddings   prometheus.Counter
	completedEmbeddings prometheus.Counter
}

var metrics metricsCounters

func (m *metricsCounters) init() {
	m.once.Do(func() {
		m.totalChunks = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graphdex_total_chunks",
			Help: "Chunks ever enqueued for embedding.",
		})
		m.pendingEmbeddings = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graphdex_pending_embeddings",
			Help: "Embedding jobs accepted by the dispatcher.",
		})
		m.completedEmbeddings = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graphdex_completed_embeddings",
			Help: "Embedding jobs that finished, successfully or not.",
		})
		prometheus.MustRegister(m.totalChunks, m.pendingEmbeddings, m.completedEmbeddings)
	})
}
