// Package transport provides the authenticated HTTP client the catalog
// backend source is built on.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/shelfsync/shelfsync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// Client provides HTTP client functionality with authentication.
type Client struct {
	http  *http.Client
	auth  Authenticator
	token string
}

// New creates a new transport client with the specified authenticator and
// credential.
func New(auth Authenticator, token string) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	return &Client{
		http:  &http.Client{Timeout: DefaultHTTPTimeout},
		auth:  auth,
		token: token,
	}
}

// Do performs an HTTP request with authentication applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		c.auth.Apply(req, c.token)
	}

	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

// PostJSON performs a POST with a JSON-encoded body.
func (c *Client) PostJSON(ctx context.Context, url string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.WrapTransport("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WrapTransport("create request", err)
	}
	return c.Do(req)
}

// DecodeResponse decodes a JSON response body into the target structure and
// closes the body. Non-2xx statuses become TransportErrors carrying the
// status code so rate limiting and outages classify with errors.Is.
func DecodeResponse(operation string, resp *http.Response, target any) error {
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read path

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapTransport(operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewTransportError(operation, resp.StatusCode, string(body), nil)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.NewProtocolError(operation, "", "malformed response body: "+err.Error())
	}
	return nil
}
