// Package deepface is an HTTP client for the face matcher sidecar. The
// sidecar wraps the recognition model; this client only ships images and
// interprets results.
package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"bioentry/internal/face"
)

const defaultMaxInFlight = 4

// Client calls the matcher service. A weighted semaphore caps in-flight
// comparisons because the sidecar degrades badly when oversubscribed.
type Client struct {
	baseURL string
	http    *http.Client
	slots   *semaphore.Weighted
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithMaxInFlight caps concurrent matcher calls.
func WithMaxInFlight(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.slots = semaphore.NewWeighted(n)
		}
	}
}

// NewClient creates a matcher client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		slots:   semaphore.NewWeighted(defaultMaxInFlight),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type verifyResponse struct {
	Verified  bool    `json:"verified"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Error     string  `json:"error"`
}

// Verify posts probe and reference to the matcher and returns the outcome.
// A matcher report of an undetectable face maps to face.ErrNoFace.
func (c *Client) Verify(ctx context.Context, probe, reference []byte) (face.MatchResult, error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return face.MatchResult{}, fmt.Errorf("acquire matcher slot: %w", err)
	}
	defer c.slots.Release(1)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, data := range map[string][]byte{"probe": probe, "reference": reference} {
		part, err := w.CreateFormFile(name, name+".jpg")
		if err != nil {
			return face.MatchResult{}, fmt.Errorf("build matcher request: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return face.MatchResult{}, fmt.Errorf("build matcher request: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return face.MatchResult{}, fmt.Errorf("build matcher request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", &body)
	if err != nil {
		return face.MatchResult{}, fmt.Errorf("build matcher request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return face.MatchResult{}, fmt.Errorf("call matcher: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return face.MatchResult{}, fmt.Errorf("read matcher response: %w", err)
	}

	var out verifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return face.MatchResult{}, fmt.Errorf("decode matcher response (status %d): %w", resp.StatusCode, err)
	}

	if out.Error == "no_face" {
		return face.MatchResult{}, face.ErrNoFace
	}
	if resp.StatusCode != http.StatusOK {
		return face.MatchResult{}, fmt.Errorf("matcher returned status %d: %s", resp.StatusCode, out.Error)
	}

	return face.MatchResult{
		Match:     out.Verified,
		Distance:  out.Distance,
		Threshold: out.Threshold,
	}, nil
}

// Healthy reports whether the matcher answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
