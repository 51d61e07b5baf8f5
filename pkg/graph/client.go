package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	cmdberrors "github.com/jakabjo/cmdb-inventory/pkg/errors"
	"github.com/jakabjo/cmdb-inventory/pkg/serializer"
)

// HeaderConsistencyLevel is sent on every request so that advanced
// directory queries ($filter, $count) are accepted.
const HeaderConsistencyLevel = "ConsistencyLevel"

const maxErrorBody = 4 << 10

// Page is one decoded listing response.
type Page struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"-"`
}

type rawPage struct {
	Value         []json.RawMessage `json:"value"`
	ODataNextLink string            `json:"@odata.nextLink"`
	NextLink      string            `json:"nextLink"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is wrapped with
// the bearer token source.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.base = hc
		}
	}
}

// WithRateLimit bounds outgoing requests per second. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = NewLimiter(rps)
	}
}

// WithLimiter makes the client draw from l, which may be shared with other
// clients so that they stay under one request budget. Nil disables it.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewLimiter returns a limiter allowing rps requests per second.
func NewLimiter(rps float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(rps), int(rps)+1)
}

// WithMaxAttempts sets the attempts per page request.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithSleep replaces the function used to wait between retries.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// Client fetches paged JSON listings (Microsoft Graph and Azure Resource
// Manager) with bearer authentication and retry on throttling.
// It is safe for concurrent use.
type Client struct {
	hc          *http.Client
	base        *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	minWait     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client. A nil token source sends no Authorization
// header.
func NewClient(ts oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		base:        serializer.NewHTTPClient(false),
		limiter:     rate.NewLimiter(rate.Limit(defaults.GraphRequestsPerSecond), defaults.GraphRequestsPerSecond),
		maxAttempts: defaults.GraphMaxAttempts,
		minWait:     defaults.GraphMinRetryAfter,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hc = c.base
	if ts != nil {
		c.hc = &http.Client{
			Timeout: c.base.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.ReuseTokenSource(nil, ts),
				Base:   c.base.Transport,
			},
		}
	}
	return c
}

// Get fetches one page. Status 429 and 5xx are retried up to the attempt
// limit, waiting max(Retry-After, 2s) multiplied by the attempt number.
// When retries are exhausted the last status is returned as an error with
// code RATE_LIMIT_EXCEEDED or SERVICE_UNAVAILABLE. Other non-2xx statuses
// fail immediately.
func (c *Client) Get(ctx context.Context, url string) (*Page, error) {
	var lastStatus int
	var lastBody string
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, cmdberrors.Wrap(cmdberrors.ErrCodeTimeout, "rate limiter wait canceled", err)
			}
		}

		status, header, body, err := c.do(ctx, url)
		requestsTotal.WithLabelValues(statusLabel(status, err)).Inc()
		if err != nil {
			return nil, err
		}

		if status >= 200 && status < 300 {
			var rp rawPage
			if err := json.Unmarshal(body, &rp); err != nil {
				return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInternal,
					fmt.Sprintf("invalid page from %s", redact(url)), err)
			}
			next := rp.ODataNextLink
			if next == "" {
				next = rp.NextLink
			}
			return &Page{Value: rp.Value, NextLink: next}, nil
		}

		if !retryable(status) {
			return nil, cmdberrors.NewWithContext(codeFor(status),
				fmt.Sprintf("GET %s returned %d", redact(url), status),
				map[string]any{"status": status, "body": truncate(body)})
		}

		lastStatus, lastBody = status, truncate(body)
		if attempt == c.maxAttempts-1 {
			break
		}
		wait := c.backoff(header.Get("Retry-After"), attempt)
		retriesTotal.Inc()
		slog.Debug("throttled, retrying",
			slog.Int("status", status),
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait))
		if err := c.sleep(ctx, wait); err != nil {
			return nil, cmdberrors.Wrap(cmdberrors.ErrCodeTimeout, "retry wait canceled", err)
		}
	}

	return nil, cmdberrors.NewWithContext(codeFor(lastStatus),
		fmt.Sprintf("GET %s failed after %d attempts with status %d", redact(url), c.maxAttempts, lastStatus),
		map[string]any{"status": lastStatus, "body": lastBody})
}

func (c *Client) do(ctx context.Context, url string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest, "invalid request url", err)
	}
	req.Header.Set(HeaderConsistencyLevel, "eventual")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, nil, cmdberrors.Wrap(cmdberrors.ErrCodeServiceUnavailable,
			fmt.Sprintf("GET %s failed", redact(url)), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, cmdberrors.Wrap(cmdberrors.ErrCodeServiceUnavailable, "failed to read response", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *Client) backoff(retryAfter string, attempt int) time.Duration {
	wait := c.minWait
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil {
		if d := time.Duration(secs) * time.Second; d > wait {
			wait = d
		}
	}
	return wait * time.Duration(attempt+1)
}

// Items streams every item of the listing at url, following next links
// until none is returned. A page failure is yielded once and ends the
// sequence. Re-invoking restarts from url.
func (c *Client) Items(ctx context.Context, url string) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		next := url
		for next != "" {
			page, err := c.Get(ctx, next)
			if err != nil {
				yield(nil, err)
				return
			}
			pagesTotal.Inc()
			for _, item := range page.Value {
				if !yield(item, nil) {
					return
				}
			}
			next = page.NextLink
		}
	}
}

// Decode streams the listing at url decoded into T.
func Decode[T any](ctx context.Context, c *Client, url string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for raw, err := range c.Items(ctx, url) {
			var v T
			if err != nil {
				yield(v, err)
				return
			}
			if err := json.Unmarshal(raw, &v); err != nil {
				yield(v, cmdberrors.Wrap(cmdberrors.ErrCodeInternal, "invalid item in listing", err))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Collect drains Decode into a slice.
func Collect[T any](ctx context.Context, c *Client, url string) ([]T, error) {
	var out []T
	for v, err := range Decode[T](ctx, c, url) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func codeFor(status int) cmdberrors.ErrorCode {
	switch {
	case status == http.StatusTooManyRequests:
		return cmdberrors.ErrCodeRateLimitExceeded
	case status >= 500:
		return cmdberrors.ErrCodeServiceUnavailable
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return cmdberrors.ErrCodeUnauthorized
	case status == http.StatusNotFound:
		return cmdberrors.ErrCodeNotFound
	default:
		return cmdberrors.ErrCodeInvalidRequest
	}
}

func statusLabel(status int, err error) string {
	if err != nil && status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}

// redact drops the query string, which may carry skip tokens.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
