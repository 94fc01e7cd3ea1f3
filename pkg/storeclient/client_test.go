// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// testClient points a Client at an httptest.Server instead of localhost,
// with the rate limiter set wide open so tests don't wait on it.
func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New(0, WithBaseURL(server.URL), WithRateLimiter(rate.NewLimiter(rate.Inf, 1)))
	return c, server
}

func TestCreateRoot_Success(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/createRoot", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"root":{"id":"root-1"}}`))
	})

	id, err := c.CreateRoot(context.Background(), "myrepo")
	require.NoError(t, err)
	assert.Equal(t, "root-1", id)
}

func TestCreateRoot_MissingID(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"root":{}}`))
	})

	_, err := c.CreateRoot(context.Background(), "myrepo")
	require.Error(t, err)
	var mfe *MissingFieldError
	assert.ErrorAs(t, err, &mfe)
}

func TestPost_NonTwoXXIsStatusError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, err := c.CreateRoot(context.Background(), "myrepo")
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.StatusCode)
	assert.Equal(t, "boom", se.Body)
}

func TestPost_DecodeError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.CreateRoot(context.Background(), "myrepo")
	require.Error(t, err)
	var de *DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestEmbedSuperEntity_SendsVector(t *testing.T) {
	var received map[string]any
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{}`))
	})

	err := c.EmbedSuperEntity(context.Background(), "entity-1", []float64{0.1, 0.2})
	require.NoError(t, err)
	assert.Equal(t, "entity-1", received["entity_id"])
}

func TestDeleteFolder(t *testing.T) {
	called := false
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/deleteFolder", r.URL.Path)
		w.Write([]byte(`{"success":true}`))
	})

	err := c.DeleteFolder(context.Background(), "folder-1")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestGetRootFolders(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"folders":[{"id":"f1","name":"src"},{"id":"f2","name":"docs"}]}`))
	})

	folders, err := c.GetRootFolders(context.Background(), "root-1")
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "src", folders[0].Name)
}
