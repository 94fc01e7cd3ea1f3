// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kraklabs/graphdex/pkg/counters"
	"github.com/kraklabs/graphdex/pkg/dispatcher"
	"github.com/kraklabs/graphdex/pkg/embedclient"
	"github.com/kraklabs/graphdex/pkg/indextypes"
	"github.com/kraklabs/graphdex/pkg/storeclient"
	"github.com/kraklabs/graphdex/pkg/syntax"
)

// fakeStore is an in-memory recording double for the store's HTTP surface,
// handing out monotonic ids and recording every call it receives.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	calls   []string
	entities []map[string]any
	embeds  []map[string]any
}

func (f *fakeStore) id() string {
	n := atomic.AddInt64(&f.nextID, 1)
	return filepath.Join("id", itoa(n))
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (f *fakeStore) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.calls = append(f.calls, r.URL.Path)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/createRoot":
			_ = json.NewEncoder(w).Encode(map[string]any{"root": map[string]any{"id": f.id()}})
		case "/createSuperFolder":
			_ = json.NewEncoder(w).Encode(map[string]any{"folder": map[string]any{"id": f.id()}})
		case "/createSubFolder":
			_ = json.NewEncoder(w).Encode(map[string]any{"subfolder": map[string]any{"id": f.id()}})
		case "/createSuperFile", "/createFile":
			_ = json.NewEncoder(w).Encode(map[string]any{"file": map[string]any{"id": f.id()}})
		case "/createSuperEntity", "/createSubEntity":
			f.mu.Lock()
			f.entities = append(f.entities, body)
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{"entity": map[string]any{"id": f.id()}})
		case "/embedSuperEntity":
			f.mu.Lock()
			f.embeds = append(f.embeds, body)
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{})
		}
	}
}

func newTestEngine(t *testing.T, fs *fakeStore) *Engine {
	t.Helper()

	storeServer := httptest.NewServer(fs.handler())
	t.Cleanup(storeServer.Close)
	embedServer := httptest.NewServer(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1]}}`))
	})
	t.Cleanup(embedServer.Close)

	sc := storeclient.New(0, storeclient.WithBaseURL(storeServer.URL), storeclient.WithRateLimiter(rate.NewLimiter(rate.Inf, 1)))
	ec := embedclient.New(embedclient.WithAPIKey("key"), embedclient.WithURL(embedServer.URL), embedclient.WithRateLimiter(rate.NewLimiter(rate.Inf, 1)))
	c := counters.New()
	d := dispatcher.New(ec, sc, c, nil)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()
	t.Cleanup(func() {
		d.Close()
		<-done
	})

	indexTypes := indextypes.NewIndexTypesConfig(map[string][]string{
		"py": {"function_definition", "class_definition"},
	})
	fileTypes := indextypes.NewFileTypesConfig([]string{"py"}, []string{"txt"})

	return New(sc, d, syntax.NewRegistry(), indexTypes, fileTypes, nil)
}

func TestIngest_WalksFoldersAndFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "mod.py"), []byte("def f():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("hello world"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config"), []byte("ignored"), 0o644))

	fs := &fakeStore{}
	e := newTestEngine(t, fs)

	rootID, err := e.Ingest(context.Background(), dir)
	require.NoError(t, err)
	assert.NotEmpty(t, rootID)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Contains(t, fs.calls, "/createSuperFolder")
	assert.Contains(t, fs.calls, "/createFile")
	assert.Contains(t, fs.calls, "/createSuperFile")
	for _, call := range fs.calls {
		assert.NotContains(t, call, ".git")
	}
}

func TestIngest_PythonBlockPassthrough(t *testing.T) {
	dir := t.TempDir()
	src := "def f():\n    x = 1\n    y = 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mod.py"), []byte(src), 0o644))

	fs := &fakeStore{}
	e := newTestEngine(t, fs)

	_, err := e.Ingest(context.Background(), dir)
	require.NoError(t, err)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, ent := range fs.entities {
		assert.NotEqual(t, "block", ent["entity_type"])
	}
}

func TestIngest_UnsupportedExtensionChunksText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("just some plain notes"), 0o644))

	fs := &fakeStore{}
	e := newTestEngine(t, fs)

	_, err := e.Ingest(context.Background(), dir)
	require.NoError(t, err)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	require.Len(t, fs.entities, 1)
	assert.Equal(t, "chunk", fs.entities[0]["entity_type"])
}

func TestIngest_UnrecognisedExtensionSkipsEntities(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.bin"), []byte{0x00, 0x01}, 0o644))

	fs := &fakeStore{}
	e := newTestEngine(t, fs)

	_, err := e.Ingest(context.Background(), dir)
	require.NoError(t, err)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Empty(t, fs.entities)
	assert.Contains(t, fs.calls, "/createSuperFile")
}
