package connection

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/chatmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/chatmesh-go/internal/server/chatserver"
)

// DefaultTimeout bounds a single admin request.
const DefaultTimeout = 10 * time.Second

// Status is the body of GET /status on a server's admin endpoint.
type Status struct {
	Build buildinfo.Info      `json:"build" yaml:"build"`
	Node  chatserver.Snapshot `json:"node" yaml:"node"`
}

// HTTPClient queries a server's admin endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTLSConfig sets the TLS configuration used for https URLs.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *HTTPClient) {
		c.client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: cfg,
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// NewHTTPClient creates a client for the admin endpoint at server. A missing
// scheme defaults to http.
func NewHTTPClient(server string, opts ...Option) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "chatmesh-client/"+buildinfo.Version)
	req.Header.Set("Accept", "application/json")
	return c.client.Do(req)
}

// Status fetches the node snapshot.
func (c *HTTPClient) Status(ctx context.Context) (*Status, error) {
	resp, err := c.Get(ctx, "/status")
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.baseURL, err)
	}
	var st Status
	if err := ParseResponse(resp, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Health reports whether the server answers /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("query %s: %w", c.baseURL, err)
	}
	return ParseResponse(resp, nil)
}

// ParseResponse decodes a JSON response body into target and closes it.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
