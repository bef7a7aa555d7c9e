// Package fetcher pulls JSON documents from upstream HTTP collaborators
// (hardware monitor, weather API) with bounded retries.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrBadStatus = errors.New("bad status")

// maxBody caps how much of a response is decoded.
const maxBody = 8 << 20

type Options struct {
	Attempts  int
	Timeout   time.Duration // per attempt
	BaseDelay time.Duration
}

// Client fetches JSON with retries and exponential backoff + jitter.
type Client struct {
	http      *http.Client
	attempts  int
	timeout   time.Duration
	baseDelay time.Duration
	name      string
}

func New(name string, opts Options) *Client {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 100 * time.Millisecond
	}
	return &Client{
		http:      &http.Client{},
		attempts:  opts.Attempts,
		timeout:   opts.Timeout,
		baseDelay: opts.BaseDelay,
		name:      name,
	}
}

// GetJSON decodes the body at url into out. Non-2xx statuses, transport
// errors and decode errors are all retried until attempts run out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		lastErr = c.getOnce(ctx, url, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Debug().Err(lastErr).Str("source", c.name).Int("attempt", attempt).Msg("fetch failed")

		if attempt == c.attempts {
			break
		}

		// exponential backoff with jitter
		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseDelay
		jitter := time.Duration(rand.Int63n(int64(c.baseDelay)))

		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: %d attempts: %w", c.name, c.attempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
