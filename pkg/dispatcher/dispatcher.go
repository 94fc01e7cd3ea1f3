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

// Package dispatcher is the embedding dispatcher (C7): a single
// process-wide consumer of a bounded channel of EmbeddingJob, applying a
// bounded-parallelism transform that embeds a chunk and stores the
// resulting vector against its entity.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kraklabs/graphdex/pkg/counters"
	"github.com/kraklabs/graphdex/pkg/embedclient"
	"github.com/kraklabs/graphdex/pkg/storeclient"
)

// queueCapacity is the bounded channel's capacity (§4.7).
const queueCapacity = 1000

// maxInFlight is the bounded-parallelism limit on concurrently in-flight
// embed+store calls (§4.7).
const maxInFlight = 100

// EmbeddingJob is produced by the ingestion engine and consumed here.
// StorePort is carried so a job can be dispatched even though the store
// client itself is constructed once per run against a fixed port — kept
// on the job to match the data model in §3 ("EmbeddingJob —
// (chunk_text, entity_id, store_port)").
type EmbeddingJob struct {
	ChunkText string
	EntityID  string
	StorePort int
}

// Dispatcher owns the bounded job channel and the in-flight semaphore.
type Dispatcher struct {
	jobs     chan EmbeddingJob
	sem      chan struct{}
	embed    *embedclient.Client
	store    *storeclient.Client
	counters *counters.Counters
	logger   *slog.Logger

	wg sync.WaitGroup // tracks every accepted job, including detached blocking sends
}

// New constructs a Dispatcher. store is the client used to write
// resulting vectors back with embedSuperEntity.
func New(embed *embedclient.Client, store *storeclient.Client, c *counters.Counters, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		jobs:     make(chan EmbeddingJob, queueCapacity),
		sem:      make(chan struct{}, maxInFlight),
		embed:    embed,
		store:    store,
		counters: c,
		logger:   logger,
	}
}

// Run drains the job channel until it is closed and all in-flight jobs
// finish. Call it in its own goroutine; it returns once Close has been
// called and every accepted job has completed.
func (d *Dispatcher) Run(ctx context.Context) {
	for job := range d.jobs {
		d.sem <- struct{}{}
		go func(job EmbeddingJob) {
			defer func() { <-d.sem }()
			defer d.wg.Done()
			d.process(ctx, job)
		}(job)
	}
}

// Enqueue submits a job with a non-blocking try-send. If the channel is
// full, a short-lived detached task performs a blocking send instead —
// the producer itself never blocks, but the job is never dropped (§4.7,
// §9 "Backpressure").
func (d *Dispatcher) Enqueue(job EmbeddingJob) {
	if job.ChunkText == "" {
		// Empty chunks are never enqueued (§4.6.1 edge cases) and are not
		// counted in TOTAL_CHUNKS either.
		return
	}

	d.counters.AddTotal(1)
	d.wg.Add(1)

	select {
	case d.jobs <- job:
		return
	default:
	}

	go func() {
		d.jobs <- job
	}()
}

// Close signals that no more jobs will be enqueued and waits for every
// accepted job (including any detached blocking sends still in flight)
// to finish, then closes the job channel so Run's consumer loop returns.
// It does not wait for Run itself to return.
func (d *Dispatcher) Close() {
	d.wg.Wait()
	close(d.jobs)
}

// process performs one job: embed the chunk, then write the vector back
// to the store. Any error is logged and the job is still counted as
// completed (§4.7 step 3, §7 "dropped jobs... counted as completed").
func (d *Dispatcher) process(ctx context.Context, job EmbeddingJob) {
	d.counters.IncPending()
	defer d.counters.IncCompleted()

	vector, err := d.embed.Embed(ctx, job.ChunkText)
	if err != nil {
		d.logger.Warn("embed.dispatch.embed_error", "entity_id", job.EntityID, "err", err)
		return
	}

	if err := d.store.EmbedSuperEntity(ctx, job.EntityID, vector); err != nil {
		d.logger.Warn("embed.dispatch.store_error", "entity_id", job.EntityID, "err", err)
		return
	}
}
