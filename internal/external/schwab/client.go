package schwab

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/httputil"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// tokens refreshed this close to expiry are considered stale
const tokenExpiryBuffer = 30 * time.Second

// Client handles communication with the Schwab trader and market data APIs.
// Auth: a fixed access token when configured, otherwise the OAuth refresh
// token flow with an in-memory access token cache.
type Client struct {
	http    *httputil.Client
	logger  *logger.Logger
	cfg     config.SchwabConfig
	baseURL string

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
	accountHash string
}

// AuthError indicates the token refresh flow failed; retrying the request
// will not help until credentials are fixed.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("schwab auth: %s", e.Message)
}

// NewClient creates a new Schwab API client
func NewClient(cfg config.SchwabConfig, http *httputil.Client, log *logger.Logger) (*Client, error) {
	if cfg.AccessToken == "" && cfg.RefreshToken == "" {
		return nil, fmt.Errorf("schwab requires SCHWAB_ACCESS_TOKEN or SCHWAB_REFRESH_TOKEN")
	}
	if cfg.RefreshToken != "" && (cfg.ClientID == "" || cfg.ClientSecret == "") {
		return nil, fmt.Errorf("schwab refresh token flow requires SCHWAB_CLIENT_ID and SCHWAB_CLIENT_SECRET")
	}

	return &Client{
		http:    http,
		logger:  log,
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// bearerToken returns a usable access token, refreshing when needed
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	if c.cfg.AccessToken != "" {
		return c.cfg.AccessToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpiryBuffer)) {
		return c.cachedToken, nil
	}

	c.logger.Info("Refreshing Schwab access token")

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", c.cfg.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+basicAuth(c.cfg.ClientID, c.cfg.ClientSecret))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return "", &AuthError{Message: fmt.Sprintf("token refresh failed: %d %s", resp.StatusCode, string(body))}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", &AuthError{Message: "token refresh response missing access_token"}
	}

	c.cachedToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)

	return c.cachedToken, nil
}

func basicAuth(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}

// getJSON performs an authenticated GET and decodes the JSON body
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return &httputil.StatusError{StatusCode: resp.StatusCode, Body: string(body), URL: fullURL}
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
