package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TransportError wraps a network or remote failure so callers never see a
// raw transport error from an adapter.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retriable reports whether retrying the request can plausibly help.
// Client errors other than rate limiting are final.
func (e *TransportError) Retriable() bool {
	if e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// Client issues the outbound API queries shared by all adapters. Base URLs
// are fields so tests can point adapters at local servers.
type Client struct {
	HTTP      *http.Client
	UserAgent string

	PurpurBase   string
	FillBase     string
	PaperBase    string
	GeyserBase   string
	ModrinthBase string
}

// NewClient builds a client with the fixed production API endpoints.
func NewClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		HTTP:         &http.Client{Timeout: timeout},
		UserAgent:    userAgent,
		PurpurBase:   "https://api.purpurmc.org",
		FillBase:     "https://fill.papermc.io",
		PaperBase:    "https://api.papermc.io",
		GeyserBase:   "https://download.geysermc.org",
		ModrinthBase: "https://api.modrinth.com",
	}
}

// getJSON performs a GET and decodes the 2xx body into out. Non-2xx and
// connection failures come back as *TransportError; a 404 additionally
// matches ErrNoReleases so resolution can report the component as
// unresolvable instead of broken transport.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return &TransportError{URL: url, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode, Err: ErrNoReleases}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}
	return resp.Body, nil
}
