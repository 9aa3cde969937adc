package mixpanel

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the query API root for US-resident projects
	DefaultBaseURL = "https://mixpanel.com/api/query"
	// EUBaseURL is the query API root for EU-resident projects
	EUBaseURL = "https://eu.mixpanel.com/api/query"
)

// Credentials holds the service account used for every request
type Credentials struct {
	Username  string // service account username
	Password  string // service account secret
	ProjectID string // default project, applied when a call omits project_id
	Region    string // "eu" selects the EU host, anything else the default host
}

// BaseURL returns the region-dependent query API root
func (c Credentials) BaseURL() string {
	if strings.EqualFold(strings.TrimSpace(c.Region), "eu") {
		return EUBaseURL
	}
	return DefaultBaseURL
}

// Client wraps an HTTP client with Mixpanel Basic auth
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL overrides the region-derived API root (proxies, tests)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithTimeout sets a client-wide timeout. Zero keeps the http.Client default.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates an authenticated Mixpanel query client
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:      creds,
		baseURL:    creds.BaseURL(),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials returns the credentials the client was built with
func (c *Client) Credentials() Credentials {
	return c.creds
}

// BaseURL returns the API root requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// authHeader returns the Basic auth header value
func (c *Client) authHeader() string {
	credentials := fmt.Sprintf("%s:%s", c.creds.Username, c.creds.Password)
	encoded := base64.StdEncoding.EncodeToString([]byte(credentials))
	return "Basic " + encoded
}

// Do sends one request and returns the response body of a 2xx reply.
// Non-2xx replies are returned as *HTTPError, network failures as *TransportError.
func (c *Client) Do(ctx context.Context, spec RequestSpec) ([]byte, error) {
	req, err := c.NewRequest(ctx, spec)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: spec.Method, Path: spec.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: spec.Method, Path: spec.Path, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
