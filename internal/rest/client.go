// Package rest wraps the tims REST backend: every call goes to
// {domain}/{service}/{noun}, carries the session credential, runs the
// configured hooks around it and returns the response envelope.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("tims/rest")

// Request describes one call, as passed to the hooks.
type Request struct {
	ID      string
	Method  string
	URL     string
	Service string
	Noun    string
	Data    any
}

// Hooks fire around every call. Any of them may be nil.
type Hooks struct {
	Before  func(req Request)
	After   func(req Request)
	Error   func(err *TransportError)
	Success func(env *Envelope, req Request)
}

// Client is safe for concurrent use.
type Client struct {
	base  string
	hooks Hooks
	http  *http.Client

	mu      sync.RWMutex
	session string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every call. Zero leaves calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithInsecureHTTP talks plain http to a bare domain.
func WithInsecureHTTP() Option {
	return func(c *Client) {
		c.base = "http://" + strings.TrimPrefix(c.base, "https://")
	}
}

// New configures a client for domain. A domain without a scheme is reached
// over https.
func New(domain string, hooks Hooks, opts ...Option) *Client {
	base := strings.TrimRight(domain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	c := &Client{
		base:  base,
		hooks: hooks,
		http:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Base returns the scheme and domain every URL starts with.
func (c *Client) Base() string { return c.base }

// Session sets the credential sent with subsequent calls. An empty token
// clears it.
func (c *Client) Session(token string) {
	c.mu.Lock()
	c.session = token
	c.mu.Unlock()
	if token == "" {
		log.Debug("session cleared")
	}
}

// SessionToken returns the current credential.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Create issues a POST with data as the JSON body.
func (c *Client) Create(ctx context.Context, service, noun string, data any) (*Envelope, error) {
	return c.do(ctx, http.MethodPost, service, noun, data)
}

// Read issues a GET with data JSON encoded in the d query parameter.
func (c *Client) Read(ctx context.Context, service, noun string, data any) (*Envelope, error) {
	return c.do(ctx, http.MethodGet, service, noun, data)
}

// Update issues a PUT with data as the JSON body.
func (c *Client) Update(ctx context.Context, service, noun string, data any) (*Envelope, error) {
	return c.do(ctx, http.MethodPut, service, noun, data)
}

// Delete issues a DELETE with data JSON encoded in the d query parameter.
func (c *Client) Delete(ctx context.Context, service, noun string, data any) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, service, noun, data)
}

func (c *Client) do(ctx context.Context, method, service, noun string, data any) (*Envelope, error) {
	req := Request{
		ID:      uuid.NewString(),
		Method:  method,
		URL:     c.base + "/" + strings.Trim(service, "/") + "/" + strings.Trim(noun, "/"),
		Service: service,
		Noun:    noun,
		Data:    data,
	}

	if c.hooks.Before != nil {
		c.hooks.Before(req)
	}
	if c.hooks.After != nil {
		defer c.hooks.After(req)
	}

	start := time.Now()
	env, err := c.send(ctx, req)
	if err != nil {
		log.Warnw("request failed", "id", req.ID, "method", method, "url", req.URL, "err", err)
		if te, ok := err.(*TransportError); ok && c.hooks.Error != nil {
			c.hooks.Error(te)
		}
		return nil, err
	}
	log.Debugw("request done", "id", req.ID, "method", method, "url", req.URL, "took", time.Since(start))

	if c.hooks.Success != nil {
		c.hooks.Success(env, req)
	}
	if e := env.Err(); e != nil {
		return env, e
	}
	return env, nil
}

func (c *Client) send(ctx context.Context, req Request) (*Envelope, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", req.URL, err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, ctxErr)
		}
		return nil, &TransportError{Request: req, Status: 0, StatusText: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{
			Request:    req,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &TransportError{
			Request:    req,
			Status:     resp.StatusCode,
			StatusText: "invalid response body",
			Err:        err,
		}
	}
	return &env, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := req.URL
	var body io.Reader

	switch req.Method {
	case http.MethodGet, http.MethodDelete:
		if req.Data != nil {
			b, err := json.Marshal(req.Data)
			if err != nil {
				return nil, err
			}
			target += "?" + url.Values{"d": {string(b)}}.Encode()
		}
	default:
		payload := req.Data
		if payload == nil {
			payload = struct{}{}
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	httpReq.Header.Set("X-Request-Id", req.ID)
	if token := c.SessionToken(); token != "" {
		httpReq.Header.Set("Authorization", token)
	}
	return httpReq, nil
}
