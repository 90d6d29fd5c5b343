// Package httpx is the JSON-over-HTTP client shared by the enrichment sources.
// Every request is time-bounded, paced and retried with a linear backoff.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRetryStep = time.Second
	defaultUserAgent = "BeerSync/1.0 (data sync)"
	maxBodyBytes     = 16 << 20
)

// ErrStatus matches every non-200 response.
var ErrStatus = errors.New("unexpected http status")

// StatusError carries the status of a rejected response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", ErrStatus, e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Options tunes a Client. Zero values fall back to defaults, except Retries
// and Delay where zero means "none".
type Options struct {
	Timeout   time.Duration
	Retries   int
	RetryStep time.Duration
	Delay     time.Duration
	UserAgent string
}

// Client issues paced GET requests and decodes JSON responses.
type Client struct {
	http      *http.Client
	retries   int
	retryStep time.Duration
	userAgent string
	pacer     *Pacer
	logger    *slog.Logger
}

// NewClient builds a client with its own pacer.
func NewClient(opts Options, log *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryStep <= 0 {
		opts.RetryStep = defaultRetryStep
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		retries:   opts.Retries,
		retryStep: opts.RetryStep,
		userAgent: opts.UserAgent,
		pacer:     NewPacer(opts.Delay),
		logger:    log,
	}
}

// GetJSON fetches rawURL and decodes the body into v. Transport errors, 5xx,
// 429 and undecodable bodies are retried; other 4xx responses are not.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	op := func() error {
		if err := c.pacer.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		err := c.getOnce(ctx, rawURL, v)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		var se *StatusError
		if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: c.retryStep}, uint64(c.retries)),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying request", "url", rawURL, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("get %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) getOnce(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// linearBackOff waits step, 2*step, 3*step, ... between attempts.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
