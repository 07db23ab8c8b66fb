package xfb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/LakeLink/WE/internal/metrics"
)

const (
	// sessionCookieName carries the remote's session credential.
	sessionCookieName = "shiroJID"

	defaultRequestTimeout = 15 * time.Second
)

// Client issues authenticated JSON calls against the campus-pay remote and
// classifies every failure into the taxonomy in errors.go. It never
// retries; retry policy belongs to the callers, whose cadences differ.
type Client struct {
	httpClient *http.Client
	base       *url.URL
	logger     *slog.Logger
}

// NewClient builds a client for the given base URL (the webapp host). An
// empty or unparseable base URL is a configuration error.
func NewClient(baseURL string, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL empty", ErrConfiguration)
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q", ErrConfiguration, baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		base:       base,
		logger:     logger.With("component", "xfb_client"),
	}, nil
}

// do performs one HTTP exchange and returns the raw body. Envelope-level
// classification happens in the typed helpers below.
func (c *Client) do(ctx context.Context, method, path string, body any, sessionToken string) ([]byte, error) {
	u := c.base.JoinPath(path)

	var reader io.Reader
	if method == http.MethodPost {
		// The remote expects a JSON body on every POST, "null" included.
		payload := []byte("null")
		if body != nil {
			var err error
			payload, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("%w: marshal request body", ErrConfiguration)
			}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s", ErrConfiguration, u)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sessionToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logRequest(method, path, "transport_error", err)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logRequest(method, path, "transport_error", err)
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logRequest(method, path, fmt.Sprintf("http_%d", resp.StatusCode), nil)
		return nil, &HTTPStatusError{Code: resp.StatusCode}
	}

	return raw, nil
}

func (c *Client) logRequest(method, path, outcome string, err error) {
	metrics.ClientRequestsTotal.WithLabelValues(method, path, outcome).Inc()
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "outcome", outcome, "error", err)
		return
	}
	if outcome != "ok" {
		c.logger.Warn("request failed", "method", method, "path", path, "outcome", outcome)
		return
	}
	c.logger.Debug("request ok", "method", method, "path", path)
}

// Get issues a GET and decodes the standard envelope. Go methods cannot be
// generic, hence the package-level helpers.
func Get[T any](ctx context.Context, c *Client, path, sessionToken string) (*Envelope[T], error) {
	raw, err := c.do(ctx, http.MethodGet, path, nil, sessionToken)
	if err != nil {
		return nil, err
	}
	env, err := DecodeEnvelope[T](raw)
	if err != nil {
		c.logRequest(http.MethodGet, path, classify(err), err)
		return nil, err
	}
	c.logRequest(http.MethodGet, path, "ok", nil)
	return env, nil
}

// Post issues a POST and decodes the standard envelope. A nil body is sent
// as JSON null.
func Post[T any](ctx context.Context, c *Client, path string, body any, sessionToken string) (*Envelope[T], error) {
	raw, err := c.do(ctx, http.MethodPost, path, body, sessionToken)
	if err != nil {
		return nil, err
	}
	env, err := DecodeEnvelope[T](raw)
	if err != nil {
		c.logRequest(http.MethodPost, path, classify(err), err)
		return nil, err
	}
	c.logRequest(http.MethodPost, path, "ok", nil)
	return env, nil
}

// PostPaged issues a POST against a feed endpoint whose rows sit beside the
// status fields.
func PostPaged[T any](ctx context.Context, c *Client, path string, body any, sessionToken string) (*PagedEnvelope[T], error) {
	raw, err := c.do(ctx, http.MethodPost, path, body, sessionToken)
	if err != nil {
		return nil, err
	}
	env, err := DecodePagedEnvelope[T](raw)
	if err != nil {
		c.logRequest(http.MethodPost, path, classify(err), err)
		return nil, err
	}
	c.logRequest(http.MethodPost, path, "ok", nil)
	return env, nil
}

func classify(err error) string {
	switch err.(type) {
	case *APIError:
		return "api_error"
	case *DecodeError:
		return "decode_error"
	default:
		return "error"
	}
}
