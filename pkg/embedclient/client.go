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

// Package embedclient is the HTTP client half of C1 that calls the Gemini
// embedding endpoint: a large-pool client rate-limited to 4000
// requests/minute, returning the fixed-length vector for one chunk of
// text (§6).
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const (
	embedURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"
	model    = "models/gemini-embedding-001"
	taskType = "SEMANTIC_SIMILARITY"

	// apiKeyEnv is the environment variable carrying the Gemini API key.
	// Its absence is not fatal to the run (§6): every embedding call fails
	// with a logged error and ingestion proceeds metadata-only.
	apiKeyEnv = "GEMINI_API_KEY"
)

// Client calls the Gemini embedding service.
type Client struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	url        string
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithURL overrides the Gemini endpoint, for pointing a Client at a test
// double.
func WithURL(url string) Option {
	return func(c *Client) { c.url = url }
}

// WithAPIKey overrides the GEMINI_API_KEY environment value.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithRateLimiter overrides the default 4000 req/min token bucket.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New constructs a Client reading its API key from GEMINI_API_KEY. A
// Client with an empty key is still usable — every Embed call then fails
// immediately with ErrMissingAPIKey rather than making a doomed request.
func New(opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        3000,
		MaxIdleConnsPerHost: 3000,
		IdleConnTimeout:     30 * time.Second,
	}

	c := &Client{
		apiKey: os.Getenv(apiKeyEnv),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		// 4000 requests/minute sustained, matching burst to one second's
		// worth of tokens (§4.1).
		limiter: rate.NewLimiter(rate.Limit(4000.0/60.0), 67),
		url:     embedURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ErrMissingAPIKey is returned by Embed when GEMINI_API_KEY is unset.
var ErrMissingAPIKey = fmt.Errorf("embedclient: %s is not set", apiKeyEnv)

type embedRequest struct {
	Model   string `json:"model"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	TaskType string `json:"task_type"`
}

type embedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed obtains a vector embedding for text, blocking for a rate-limiter
// token first. Errors distinguish a missing API key, connection failure,
// non-2xx response (body captured), and decode failure.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedclient: rate limiter: %w", err)
	}

	var reqBody embedRequest
	reqBody.Model = model
	reqBody.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: text}}
	reqBody.TaskType = taskType

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("embedclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embedclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedclient: status %d: %s", resp.StatusCode, string(body))
	}

	var out embedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("embedclient: decode response: %w", err)
	}

	return out.Embedding.Values, nil
}
