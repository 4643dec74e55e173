// Package bili talks to the Bilibili web API: the QR login endpoints on the
// passport host and the nav/feed endpoints on the API host.
package bili

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/yumeka/bili2tg/internal/ports"
)

const (
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:138.0) Gecko/20100101 Firefox/138.0"
	defaultRequestTimeout = 15 * time.Second
	maxResponseBytes      = 1 << 20
)

// API groups the platform hosts so tests can point the client at a local
// server.
type API struct {
	BaseURL     string
	PassportURL string
}

func DefaultAPI() API {
	return API{
		BaseURL:     "https://api.bilibili.com",
		PassportURL: "https://passport.bilibili.com",
	}
}

// session pairs the committed credential with the HTTP client derived from
// it. The two are only ever swapped together.
type session struct {
	credential string
	httpc      *http.Client
}

// Client issues all platform requests through the most recently committed
// credential.
type Client struct {
	api       API
	userAgent string
	timeout   time.Duration

	mu      sync.RWMutex
	session session
}

var (
	_ ports.AuthGateway  = (*Client)(nil)
	_ ports.ActivityFeed = (*Client)(nil)
)

func NewClient(api API) *Client {
	c := &Client{
		api:       api,
		userAgent: defaultUserAgent,
		timeout:   defaultRequestTimeout,
	}
	c.session = c.buildSession("")
	return c
}

// CommitCredential rebuilds the HTTP client for the new credential and swaps
// both in under the lock, so readers see either the old pair or the new one.
func (c *Client) CommitCredential(credential string) {
	next := c.buildSession(credential)

	c.mu.Lock()
	c.session = next
	c.mu.Unlock()
}

// Credential returns the currently committed credential.
func (c *Client) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.credential
}

func (c *Client) snapshot() session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) buildSession(credential string) session {
	return session{
		credential: credential,
		httpc: &http.Client{
			Timeout: c.timeout,
			Transport: &headerTransport{
				base:       http.DefaultTransport,
				userAgent:  c.userAgent,
				credential: credential,
			},
		},
	}
}

// headerTransport stamps every request with the fixed identification header
// and the session cookie.
type headerTransport struct {
	base       http.RoundTripper
	userAgent  string
	credential string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	if t.credential != "" {
		clone.Header.Set("Cookie", t.credential)
	}
	return t.base.RoundTrip(clone)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.snapshot().httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
