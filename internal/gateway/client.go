// Package gateway is the single channel between the board and the
// requirements web service. Call issues one HTTP request with a JSON body and
// returns the JSON response verbatim; typed helpers build on top of it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrEmptyURL indicates a call without an endpoint.
	ErrEmptyURL = errors.New("empty url")
	// ErrMethod indicates an HTTP method outside the supported set.
	ErrMethod = errors.New("unsupported method")
	// ErrStatus matches every *StatusError.
	ErrStatus = errors.New("unexpected status")
	// ErrDecode indicates a response body that is not the expected JSON.
	ErrDecode = errors.New("invalid json response")
	// ErrNilHTTPClient indicates WithHTTPClient(nil).
	ErrNilHTTPClient = errors.New("nil http client")
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

// Is lets errors.Is(err, ErrStatus) match any status error.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Client talks JSON to the requirements web service. The zero timeout leaves
// deadlines to the transport and the caller's context.
type Client struct {
	http    *http.Client
	baseURL *url.URL

	// Collected by options and applied once they have all run.
	timeout    *time.Duration
	optionErrs []error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses a copy of hc for requests. The copy gets a cookie jar
// when hc has none, so session login keeps working; hc is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			c.optionErrs = append(c.optionErrs, ErrNilHTTPClient)
			return
		}
		cp := *hc
		c.http = &cp
	}
}

// WithTimeout sets an overall per-request timeout. It applies regardless of
// where it appears relative to WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = &d
	}
}

// New creates a client for the service at baseURL (e.g. http://localhost:5000).
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base url: %w", ErrEmptyURL)
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		http:    &http.Client{},
		baseURL: u,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.optionErrs) > 0 {
		return nil, errors.Join(c.optionErrs...)
	}
	if c.timeout != nil {
		c.http.Timeout = *c.timeout
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}

	return c, nil
}

// HTTPClient returns the session-carrying HTTP client, for login.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// BaseURL returns the service root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Resolve turns a service path into an absolute URL. Absolute URLs pass
// through unchanged.
func (c *Client) Resolve(target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", target, err)
	}
	if ref.IsAbs() {
		return target, nil
	}
	return c.baseURL.String() + "/" + strings.TrimLeft(target, "/"), nil
}

// Call issues method against target and returns the response body once it is
// known to be JSON. The body is only sent for POST and PUT; for every other
// method it is dropped. Failures are not retried or classified further than
// transport, status and decode errors.
func (c *Client) Call(ctx context.Context, target, method string, body any) (json.RawMessage, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrEmptyURL
	}
	method = strings.ToUpper(method)
	if !allowedMethods[method] {
		return nil, fmt.Errorf("%w: %q", ErrMethod, method)
	}

	u, err := c.Resolve(target)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, URL: u, Code: resp.StatusCode}
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s %s", ErrDecode, method, u)
	}

	return json.RawMessage(data), nil
}
