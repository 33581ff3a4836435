package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BrowserUserAgent is sent by adapters whose upstream rejects obvious bots.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const defaultMaxBodyBytes = 32 << 20

var (
	// ErrExhausted is returned when every attempt failed with a retryable error.
	ErrExhausted = errors.New("fetch: retries exhausted")
	// ErrContentType is returned when the response media type is not accepted.
	ErrContentType = errors.New("fetch: unsupported content type")
)

// StatusError reports a non-2xx, non-304 response. Body holds the start of
// the response body so callers can inspect API error payloads.
type StatusError struct {
	Code int
	URL  string
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Request describes one GET. ETag and LastModified turn it into a
// conditional request.
type Request struct {
	URL          string
	ETag         string
	LastModified string
}

// Response is a fetched document. Status is 304 when the validators matched,
// in which case Body is empty.
type Response struct {
	Status       int
	URL          string
	Body         []byte
	ContentType  string
	ETag         string
	LastModified string
}

// NotModified reports a 304 answer to a conditional request.
func (r *Response) NotModified() bool {
	return r != nil && r.Status == http.StatusNotModified
}

// Client wraps http.Client with per-request timeouts and a bounded retry
// with fixed delay.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Accept is sent as the Accept header when set.
	Accept string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// Retryable decides whether an attempt error is worth repeating.
	// Nil means only timeouts are retried.
	Retryable func(error) bool
	// PerRequestTimeout bounds each attempt.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// AcceptTypes lists allowed media type prefixes. Empty allows any.
	AcceptTypes []string
	// MaxBodyBytes caps the body read. Zero means 32 MiB.
	MaxBodyBytes int64
	// MaxConcurrent limits in-flight requests per client. Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

// Get fetches url and returns the body and its content type.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := c.Do(ctx, Request{URL: rawURL})
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.ContentType, nil
}

// Do issues the request, retrying retryable failures up to MaxAttempts
// times with RetryDelay between attempts. When all attempts fail the error
// wraps ErrExhausted and the last attempt error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := c.Retryable
	if retryable == nil {
		retryable = IsTimeout
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, err := c.tryOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if !retryable(err) {
			return nil, err
		}
		if attempts == 1 {
			return nil, err
		}
		lastErr = err
		log.Debug().Str("url", req.URL).Int("attempt", i+1).Int("max", attempts).Err(err).Msg("fetch attempt failed")
		if i == attempts-1 {
			break
		}
		if c.RetryDelay > 0 {
			t := time.NewTimer(c.RetryDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func (c *Client) tryOnce(ctx context.Context, r Request) (*Response, error) {
	c.acquire()
	defer c.release()

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return nil, fmt.Errorf("unsupported URL scheme: %q", req.URL.String())
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Accept != "" {
		req.Header.Set("Accept", c.Accept)
	}
	if r.ETag != "" {
		req.Header.Set("If-None-Match", r.ETag)
	}
	if r.LastModified != "" {
		req.Header.Set("If-Modified-Since", r.LastModified)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &Response{
		Status:       resp.StatusCode,
		URL:          resp.Request.URL.String(),
		ContentType:  resp.Header.Get("Content-Type"),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, URL: r.URL, Body: snippet}
	}
	if !c.acceptsContentType(out.ContentType) {
		return nil, fmt.Errorf("%w: %q", ErrContentType, out.ContentType)
	}
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	out.Body = b
	return out, nil
}

// IsTimeout reports whether err is a per-request or transport timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func (c *Client) acceptsContentType(ct string) bool {
	if len(c.AcceptTypes) == 0 {
		return true
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	for _, prefix := range c.AcceptTypes {
		if strings.HasPrefix(ct, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
