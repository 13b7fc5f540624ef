// Package blackduck implements the REST collaborators of the pipeline
// against a Black Duck (Synopsys) server: report generation and download,
// plus the per-row entity-detail lookups used during enrichment.
package blackduck

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
)

const defaultTimeout = 120 * time.Second

// bearerSafety is subtracted from the advertised token lifetime so we
// re-authenticate before the server-side expiry.
const bearerSafety = 60 * time.Second

// Client is a Black Duck API client. It exchanges the long-lived API token
// for a bearer token on first use and refreshes it when it expires.
type Client struct {
	baseURL    string
	apiToken   string
	locale     string
	httpClient *http.Client

	mu            sync.Mutex
	bearer        string
	bearerExpires time.Time

	// Resolved once per run; the matched-files lookups are scoped to it.
	versionURL string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithInsecureTLS disables certificate verification, matching the vendor
// tooling's BLACKDUCK_TRUST_CERT switch for servers with self-signed certs.
func WithInsecureTLS(insecure bool) Option {
	return func(c *Client) {
		if !insecure {
			return
		}
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // operator opt-in
		}
	}
}

// WithLocale sets the locale sent with report-creation requests.
func WithLocale(locale string) Option {
	return func(c *Client) {
		if locale != "" {
			c.locale = locale
		}
	}
}

// NewClient creates a client for the given server URL and API token.
func NewClient(baseURL, apiToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiToken: apiToken,
		locale:   "en_US",
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type authResponse struct {
	BearerToken           string `json:"bearerToken"`
	ExpiresInMilliseconds int64  `json:"expiresInMilliseconds"`
}

// authenticate exchanges the API token for a bearer token.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bearer != "" && time.Now().Before(c.bearerExpires) {
		return c.bearer, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/tokens/authenticate", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("authentication request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("authentication failed with status %d", resp.StatusCode)
	}

	var auth authResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&auth); decodeErr != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", decodeErr)
	}
	if auth.BearerToken == "" {
		return "", fmt.Errorf("authentication returned an empty bearer token")
	}

	c.bearer = auth.BearerToken
	c.bearerExpires = time.Now().
		Add(time.Duration(auth.ExpiresInMilliseconds) * time.Millisecond).
		Add(-bearerSafety)
	logger.Debug("Authenticated against Black Duck")
	return c.bearer, nil
}

// doRequest performs an authenticated request. 404 responses map to
// domain.ErrNotFound so the retry gate can short-circuit them; any other
// non-2xx status becomes a transient error. The caller owns the body.
func (c *Client) doRequest(ctx context.Context, method, rawURL, accept string, body io.Reader) (*http.Response, error) {
	bearer, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", rawURL, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, rawURL)
	case resp.StatusCode >= 400:
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s returned status %d", method, rawURL, resp.StatusCode)
	}
	return resp, nil
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, rawURL, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("failed to decode response from %s: %w", rawURL, decodeErr)
	}
	return nil
}

// apiURL joins a path onto the server base with query parameters.
func (c *Client) apiURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
