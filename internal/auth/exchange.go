// Package auth implements the redirect-capture credential exchange: the
// authorization flow hands back a state token and later a code, and the
// pair is traded for a usable session cookie. Redirects are never followed
// automatically because the parameters travel in the redirect destination,
// not in any response body.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	pathRequestAuth  = "/routeauth/auth/wechat/login"
	pathAuthCallback = "/routeauth/auth/wechat/callback"

	sessionCookieName = "shiroJID"

	exchangeTimeout = 15 * time.Second
)

// ExchangeError indicates the redirect capture failed to yield the state,
// code, or session cookie it was supposed to carry.
type ExchangeError struct {
	Detail string
}

func (e *ExchangeError) Error() string { return fmt.Sprintf("credential exchange: %s", e.Detail) }

// Exchanger drives the exchange against the authorization host.
type Exchanger struct {
	httpClient *http.Client
	base       *url.URL
	logger     *slog.Logger
}

// NewExchanger builds an Exchanger for the given authorization base URL.
func NewExchanger(baseURL string, logger *slog.Logger) (*Exchanger, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &ExchangeError{Detail: fmt.Sprintf("bad authorization base URL %q", baseURL)}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exchanger{
		httpClient: &http.Client{
			Timeout: exchangeTimeout,
			// The Location header is the payload here.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		base:   base,
		logger: logger.With("component", "auth_exchange"),
	}, nil
}

// ObtainLoginState begins the flow and returns the state token from the
// authorization redirect.
func (e *Exchanger) ObtainLoginState(ctx context.Context) (string, error) {
	loc, err := e.capture(ctx, e.base.JoinPath(pathRequestAuth).String())
	if err != nil {
		return "", err
	}
	state, _, err := StateFromRedirect(loc)
	if err != nil {
		return "", err
	}
	e.logger.Debug("login state obtained")
	return state, nil
}

// ExchangeCode trades the captured (state, code) pair for a session token,
// read from the session cookie set alongside the final redirect.
func (e *Exchanger) ExchangeCode(ctx context.Context, state, code string) (string, error) {
	if state == "" || code == "" {
		return "", &ExchangeError{Detail: "state or code empty"}
	}

	u := e.base.JoinPath(pathAuthCallback)
	q := u.Query()
	q.Set("state", state)
	q.Set("code", code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &ExchangeError{Detail: fmt.Sprintf("build callback request: %v", err)}
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", &ExchangeError{Detail: fmt.Sprintf("callback request failed: %v", err)}
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			e.logger.Info("session token exchanged")
			return c.Value, nil
		}
	}
	return "", &ExchangeError{Detail: "callback set no session cookie"}
}

// capture performs one request and returns the redirect destination.
func (e *Exchanger) capture(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &ExchangeError{Detail: fmt.Sprintf("build request: %v", err)}
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", &ExchangeError{Detail: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return "", &ExchangeError{Detail: fmt.Sprintf("expected redirect, got status %d", resp.StatusCode)}
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &ExchangeError{Detail: "redirect carried no Location"}
	}
	return loc, nil
}

// StateFromRedirect extracts the state (and code, when present) query
// parameters from a captured redirect URL.
func StateFromRedirect(rawURL string) (state, code string, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return "", "", &ExchangeError{Detail: fmt.Sprintf("unparseable redirect URL: %v", parseErr)}
	}
	q := u.Query()
	state = q.Get("state")
	if state == "" {
		return "", "", &ExchangeError{Detail: "redirect missing state parameter"}
	}
	return state, q.Get("code"), nil
}
