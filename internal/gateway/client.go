package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const excerptLen = 500

// Authenticator decorates an outgoing request with credentials.
type Authenticator func(req *http.Request)

// APIKey authenticates with an X-API-Key header.
func APIKey(token string) Authenticator {
	return func(req *http.Request) {
		req.Header.Set("X-API-Key", token)
	}
}

// BasicAuth authenticates with an API key/secret pair.
func BasicAuth(key, secret string) Authenticator {
	return func(req *http.Request) {
		req.SetBasicAuth(key, secret)
	}
}

// Client issues JSON GET requests against a firewall API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       Authenticator
}

// NewClient creates a client for baseURL. Each request carries its own timeout.
func NewClient(baseURL string, insecureSkipVerify bool, auth Authenticator) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecureSkipVerify}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: transport},
		auth:       auth,
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.URL, e.StatusCode)
}

// Hint suggests the likely cause of the status code, or "".
func (e *StatusError) Hint() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return "check the API credentials"
	case e.StatusCode == http.StatusForbidden:
		return "the API user lacks the required permissions"
	case e.StatusCode == http.StatusNotFound:
		return "endpoint not found, check the base URL and API version"
	case e.StatusCode >= 500:
		return "the firewall API server is unavailable"
	}
	return ""
}

// DecodeError is a 2xx response whose body is not JSON.
type DecodeError struct {
	URL     string
	Excerpt string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: invalid JSON: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Endpoint returns the full URL of path with params.
func (c *Client) Endpoint(path string, params url.Values) string {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// GetJSON issues a GET bounded by timeout and decodes the JSON body.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, timeout time.Duration) (Value, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	endpoint := c.Endpoint(path, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Value{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		c.auth(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Value{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Value{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Value{}, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: excerpt(body)}
	}
	v, err := ParseValue(body)
	if err != nil {
		return Value{}, &DecodeError{URL: endpoint, Excerpt: excerpt(body), Err: err}
	}
	return v, nil
}

func excerpt(body []byte) string {
	if len(body) > excerptLen {
		body = body[:excerptLen]
	}
	return string(body)
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// logRequestError classifies a failed request for the operator.
func logRequestError(operation, endpoint string, err error) {
	var statusErr *StatusError
	var decodeErr *DecodeError
	switch {
	case errors.As(err, &statusErr):
		slog.Error("HTTP error", "operation", operation, "url", endpoint, "status", statusErr.StatusCode)
		if hint := statusErr.Hint(); hint != "" {
			slog.Error(hint, "operation", operation)
		}
		slog.Debug("Response body", "operation", operation, "body", statusErr.Body)
	case errors.As(err, &decodeErr):
		slog.Warn("Invalid JSON response", "operation", operation, "url", endpoint, "error", decodeErr.Err)
		slog.Debug("Response body", "operation", operation, "body", decodeErr.Excerpt)
	case IsTimeout(err):
		slog.Error("Request timed out", "operation", operation, "url", endpoint)
	case errors.Is(err, context.Canceled):
		slog.Warn("Request canceled", "operation", operation, "url", endpoint)
	default:
		slog.Error("Connection error", "operation", operation, "url", endpoint, "error", err)
	}
}
