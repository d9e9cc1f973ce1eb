// Package httpx is the HTTP client shared by the provider adapters.
//
// Every call goes through a per-provider circuit breaker (failsafe-go) and
// is classified into the providers failure taxonomy:
//   - transport error, timeout, open breaker or 5xx: UpstreamUnreachable
//   - any other non-2xx: UpstreamRejected, with the provider's message
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/dropDatabas3/socialpulse/internal/providers"
)

const maxBody = 4 << 20

// Options tunes a Client. Zero values use the defaults.
type Options struct {
	HTTPClient *http.Client

	// Breaker opens after FailureThreshold failures within the last
	// FailureWindow calls and stays open for Delay.
	FailureThreshold uint
	FailureWindow    uint
	Delay            time.Duration
}

// Client performs provider API calls for one provider.
type Client struct {
	provider providers.Provider
	http     *http.Client
	exec     failsafe.Executor[*http.Response]
}

// New creates a client for p.
func New(p providers.Provider, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.FailureWindow == 0 {
		opts.FailureWindow = 10
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.FailureThreshold > opts.FailureWindow {
		opts.FailureThreshold = opts.FailureWindow
	}
	if opts.Delay == 0 {
		opts.Delay = 15 * time.Second
	}

	cb := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThresholdRatio(opts.FailureThreshold, opts.FailureWindow).
		WithDelay(opts.Delay).
		WithSuccessThreshold(1).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode >= 500
		}).
		Build()

	return &Client{
		provider: p,
		http:     opts.HTTPClient,
		exec:     failsafe.With[*http.Response](cb),
	}
}

// Provider returns the provider this client talks to.
func (c *Client) Provider() providers.Provider { return c.provider }

// RequestOption decorates an outgoing request.
type RequestOption func(*http.Request)

func WithBearer(token string) RequestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func WithBasicAuth(user, pass string) RequestOption {
	return func(r *http.Request) { r.SetBasicAuth(user, pass) }
}

func WithHeader(k, v string) RequestOption {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

// Response is a fully buffered upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do sends req through the breaker and buffers the body. Only transport
// level failures are returned as errors; status codes are left to the caller.
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	req = req.WithContext(ctx)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.exec.WithContext(ctx).Get(func() (*http.Response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer r.Body.Close()
		b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(b))
		return r, nil
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, providers.Unreachable(c.provider, fmt.Errorf("circuit open: %w", err))
		}
		return nil, providers.Unreachable(c.provider, err)
	}
	if resp == nil {
		return nil, providers.Unreachable(c.provider, errors.New("empty response"))
	}
	b, _ := io.ReadAll(resp.Body)
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

// Classify turns a non-2xx response into an UpstreamError. It returns nil for 2xx.
func (c *Client) Classify(resp *Response) error {
	if resp.Status >= 200 && resp.Status < 300 {
		return nil
	}
	msg := ErrorMessage(resp.Body)
	if resp.Status >= 500 {
		if msg == "" {
			msg = http.StatusText(resp.Status)
		}
		return &providers.UpstreamError{
			Provider: c.provider,
			Kind:     providers.ErrUpstreamUnreachable,
			Status:   resp.Status,
			Message:  msg,
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("%s API error: %d", c.provider.DisplayName(), resp.Status)
	}
	return providers.Rejected(c.provider, resp.Status, msg)
}

func (c *Client) send(ctx context.Context, req *http.Request, dst any, opts []RequestOption) error {
	for _, o := range opts {
		o(req)
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := c.Classify(resp); err != nil {
		return err
	}
	if dst == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dst); err != nil {
		return providers.Rejected(c.provider, resp.Status, "unexpected response from "+c.provider.DisplayName())
	}
	return nil
}

// GetJSON performs a GET and decodes a 2xx JSON body into dst.
func (c *Client) GetJSON(ctx context.Context, rawURL string, dst any, opts ...RequestOption) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	return c.send(ctx, req, dst, opts)
}

// PostForm posts application/x-www-form-urlencoded data and decodes the reply.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, dst any, opts ...RequestOption) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(ctx, req, dst, opts)
}

// PostJSON posts body as JSON and decodes the reply.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, dst any, opts ...RequestOption) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(ctx, req, dst, opts)
}

// WithQuery appends q to base.
func WithQuery(base string, q url.Values) string {
	if len(q) == 0 {
		return base
	}
	if strings.Contains(base, "?") {
		return base + "&" + q.Encode()
	}
	return base + "?" + q.Encode()
}
