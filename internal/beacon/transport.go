package beacon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result describes one transport attempt. It is what success and error
// callbacks receive alongside the events.
type Result struct {
	URL        string
	StatusCode int
	Err        error
	Duration   time.Duration
}

// OK reports whether the endpoint accepted the beacon.
func (r Result) OK() bool {
	return r.Err == nil
}

// Transport delivers a fully built report URL. Send must not retain url after returning.
type Transport interface {
	Send(ctx context.Context, url string) Result
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, url string) Result

func (f TransportFunc) Send(ctx context.Context, url string) Result {
	return f(ctx, url)
}

// HTTPTransport issues the beacon as a plain GET and ignores the body.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// HTTPConfig configures an HTTPTransport.
type HTTPConfig struct {
	// Timeout bounds a single request (default: 10 seconds).
	Timeout time.Duration
	// UserAgent is sent with every request when set.
	UserAgent string
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPTransport{
		client:    client,
		userAgent: cfg.UserAgent,
	}
}

// Send performs the GET. Any non-2xx status counts as a failed load.
func (t *HTTPTransport) Send(ctx context.Context, url string) Result {
	start := time.Now()
	res := Result{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Err = fmt.Errorf("creating request: %w", err)
		res.Duration = time.Since(start)
		return res
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("sending beacon: %w", err)
		res.Duration = time.Since(start)
		return res
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	res.StatusCode = resp.StatusCode
	res.Duration = time.Since(start)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = fmt.Errorf("beacon rejected: HTTP %d", resp.StatusCode)
	}

	return res
}
