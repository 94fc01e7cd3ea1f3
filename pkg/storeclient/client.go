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

// Package storeclient is the HTTP client half of C1: a pooled client
// bound to http://localhost:{port}, rate-limited to 100 requests/second,
// exposing one typed method per store endpoint in §6.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the graph-plus-vector store over HTTP. It is safe for
// concurrent use; the rate limiter serialises outbound request starts,
// not the requests themselves.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithBaseURL overrides the default http://localhost:{port} base, for
// pointing a Client at a test double.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithRateLimiter overrides the default 100 req/s token bucket.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New returns a Client bound to http://localhost:{port}.
func New(port int, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        500,
		MaxIdleConnsPerHost: 500,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		baseURL: fmt.Sprintf("http://localhost:%d", port),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   90 * time.Second,
		},
		limiter: rate.NewLimiter(100, 100),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post sends body as a JSON POST to {baseURL}/{endpoint}, blocks for a
// rate-limiter token, and decodes the JSON response into out (if out is
// non-nil). It distinguishes connection failure, timeout, non-2xx
// response, and decode failure per §4.1/§7.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("store %s: rate limiter: %w", endpoint, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("store %s: encode request: %w", endpoint, err)
	}

	url := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("store %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store %s: request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	return nil
}
