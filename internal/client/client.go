// Package client talks to the bakery REST API. Every endpoint answers with a
// {data, message} envelope; failures are reshaped into *Error so callers can
// show them without branching on transport details.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotAuthenticated is returned before any request is sent when no bearer
// token is available.
var ErrNotAuthenticated = errors.New("not authenticated")

// TokenSource supplies the bearer token for outgoing requests. An empty token
// with a nil error means the user is not signed in.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client is a REST client bound to one API root and token source.
type Client struct {
	httpclient *http.Client
	api        string
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpclient = hc }
}

// WithTimeout sets a per-request timeout. Zero keeps transport defaults.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpclient
		hc.Timeout = d
		c.httpclient = &hc
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpclient: new(http.Client),
		api:        strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a copy of c that authenticates with tokens.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	cc := *c
	cc.tokens = tokens
	return &cc
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.api
}

// apipath builds a URL from path segments under the API root.
func (c *Client) apipath(path ...string) string {
	parts := []string{c.api}
	for _, p := range path {
		parts = append(parts, strings.Trim(p, "/"))
	}
	return strings.Join(parts, "/")
}

type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// request describes one API call. name and verb only feed error messages.
type request struct {
	verb   string
	name   string
	method string
	path   []string
	query  url.Values
	body   any
}

// do sends req and decodes the response envelope into out. A 404 is
// reported through the returned status so callers can tell "not found" apart
// from failures.
func (c *Client) do(ctx context.Context, req request, out any) (int, error) {
	token := ""
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return 0, &Error{Verb: req.verb, Entity: req.name, Reason: err.Error(), Err: err}
		}
		token = t
	}
	if token == "" {
		return 0, ErrNotAuthenticated
	}

	u := c.apipath(req.path...)
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return 0, &Error{Verb: req.verb, Entity: req.name, Reason: err.Error(), Err: err}
		}
		body = bytes.NewReader(buf)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return 0, &Error{Verb: req.verb, Entity: req.name, Reason: err.Error(), Err: err}
	}
	hreq.Header.Set("Authorization", "Bearer "+token)
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpclient.Do(hreq)
	if err != nil {
		return 0, &Error{Verb: req.verb, Entity: req.name, Reason: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &Error{Verb: req.verb, Entity: req.name, Status: resp.StatusCode, Reason: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &Error{
			Verb:   req.verb,
			Entity: req.name,
			Status: resp.StatusCode,
			Reason: reasonOf(raw, resp.Status),
		}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, &Error{
				Verb: req.verb, Entity: req.name, Status: resp.StatusCode,
				Reason: fmt.Sprintf("unexpected response: %s", err.Error()), Err: err,
			}
		}
	}
	return resp.StatusCode, nil
}

// reasonOf prefers the server's envelope message and falls back to the HTTP
// status text.
func reasonOf(body []byte, fallback string) string {
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return fallback
}

// List fetches every record of endpoint, filtered by query.
func List[T any](ctx context.Context, c *Client, name, endpoint string, query url.Values) ([]T, error) {
	var env envelope[[]T]
	_, err := c.do(ctx, request{
		verb: "fetch", name: name, method: http.MethodGet,
		path: []string{endpoint}, query: query,
	}, &env)
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		env.Data = []T{}
	}
	return env.Data, nil
}

// Get fetches one record. It returns (nil, nil) when the API reports no such
// record.
func Get[T any](ctx context.Context, c *Client, name, endpoint string, id int64) (*T, error) {
	var env envelope[*T]
	status, err := c.do(ctx, request{
		verb: "fetch", name: name, method: http.MethodGet,
		path: []string{endpoint, strconv.FormatInt(id, 10)},
	}, &env)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Create posts record and returns the stored representation.
func Create[T any](ctx context.Context, c *Client, name, endpoint string, record T) (*T, error) {
	var env envelope[*T]
	_, err := c.do(ctx, request{
		verb: "create", name: name, method: http.MethodPost,
		path: []string{endpoint}, body: record,
	}, &env)
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, &Error{Verb: "create", Entity: name, Status: http.StatusOK, Reason: "empty response"}
	}
	return env.Data, nil
}

// Patch updates a single field and returns the full record echoed back by
// the API.
func Patch[T any](ctx context.Context, c *Client, name, endpoint string, id int64, field string, value any) (*T, error) {
	var env envelope[*T]
	_, err := c.do(ctx, request{
		verb: "update", name: name, method: http.MethodPatch,
		path: []string{endpoint, strconv.FormatInt(id, 10)},
		body: map[string]any{field: value},
	}, &env)
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, &Error{Verb: "update", Entity: name, Status: http.StatusOK, Reason: "empty response"}
	}
	return env.Data, nil
}

// Delete removes one record.
func Delete(ctx context.Context, c *Client, name, endpoint string, id int64) error {
	_, err := c.do(ctx, request{
		verb: "delete", name: name, method: http.MethodDelete,
		path: []string{endpoint, strconv.FormatInt(id, 10)},
	}, nil)
	return err
}
