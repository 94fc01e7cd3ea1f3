// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kraklabs/graphdex/pkg/counters"
	"github.com/kraklabs/graphdex/pkg/embedclient"
	"github.com/kraklabs/graphdex/pkg/storeclient"
)

func testDispatcher(t *testing.T, embedHandler, storeHandler http.HandlerFunc) (*Dispatcher, *counters.Counters) {
	t.Helper()

	embedServer := httptest.NewServer(embedHandler)
	t.Cleanup(embedServer.Close)
	storeServer := httptest.NewServer(storeHandler)
	t.Cleanup(storeServer.Close)

	ec := embedclient.New(embedclient.WithAPIKey("key"), embedclient.WithURL(embedServer.URL))
	sc := storeclient.New(0, storeclient.WithBaseURL(storeServer.URL))

	c := counters.New()
	d := New(ec, sc, c, nil)
	return d, c
}

func TestDispatcher_SuccessfulJobCompletes(t *testing.T) {
	var embedded, stored int32

	d, c := testDispatcher(t,
		func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&embedded, 1)
			_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2]}}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&stored, 1)
			_, _ = w.Write([]byte(`{}`))
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(EmbeddingJob{ChunkText: "some code", EntityID: "e1"})
	d.Close()

	assert.Equal(t, int32(1), atomic.LoadInt32(&embedded))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stored))
	assert.True(t, c.Done())
	assert.Equal(t, int64(1), c.Total())
}

func TestDispatcher_EmptyChunkNeverEnqueued(t *testing.T) {
	d, c := testDispatcher(t,
		func(w http.ResponseWriter, r *http.Request) { t.Fatal("should not call embed for empty chunk") },
		func(w http.ResponseWriter, r *http.Request) { t.Fatal("should not call store for empty chunk") },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(EmbeddingJob{ChunkText: "", EntityID: "e1"})
	d.Close()

	assert.Equal(t, int64(0), c.Total())
}

func TestDispatcher_EmbedFailureStillCountsAsCompleted(t *testing.T) {
	d, c := testDispatcher(t,
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		func(w http.ResponseWriter, r *http.Request) { t.Fatal("should not reach store after embed failure") },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(EmbeddingJob{ChunkText: "some code", EntityID: "e1"})
	d.Close()

	require.Equal(t, int64(1), c.Completed())
	assert.True(t, c.Done())
}

func TestDispatcher_ManyJobsAllComplete(t *testing.T) {
	d, c := testDispatcher(t,
		func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"embedding":{"values":[0.1]}}`)) },
		func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{}`)) },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	const n = 250 // exceeds maxInFlight, so jobs wait on the in-flight semaphore
	for i := 0; i < n; i++ {
		d.Enqueue(EmbeddingJob{ChunkText: "chunk", EntityID: "e"})
	}
	d.Close()

	assert.Equal(t, int64(n), c.Total())
	assert.Equal(t, int64(n), c.Completed())
	assert.True(t, c.Done())
}
