// Package api is the REST client for the Wetty backend. Every request
// carries the acting user in the X-User-Id header (placeholder until real
// auth exists). Message payloads from the server go through pkg/normalize so
// REST and push deliveries share one canonical shape.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const userIDHeader = "X-User-Id"

// Error is a non-2xx REST response.
type Error struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Body)
}

// Client talks to the Wetty backend.
type Client struct {
	base *url.URL
	uid  int
	http *http.Client
	log  zerolog.Logger
}

// NewClient builds a client for the backend at baseURL acting as user uid.
func NewClient(baseURL string, uid int, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}
	return &Client{
		base: base,
		uid:  uid,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  logger.With().Str("component", "api").Logger(),
	}, nil
}

// do performs one JSON round-trip. body and out may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set(userIDHeader, strconv.Itoa(c.uid))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("request rejected")
		return &Error{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
