// Package dropbox is a minimal client for the Dropbox HTTP API covering
// what EPUB enrichment needs: OAuth refresh-token auth, folder listing,
// and file download.
package dropbox

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shelfsync/shelfsync/internal/errors"
	"github.com/shelfsync/shelfsync/internal/ratelimit"
)

const (
	apiBaseURL     = "https://api.dropboxapi.com/2"
	contentBaseURL = "https://content.dropboxapi.com/2"
	tokenURL       = "https://api.dropboxapi.com/oauth2/token"

	defaultRPS     = 5.0
	defaultBurst   = 5
	defaultTimeout = 60 * time.Second

	// tokenSlack renews access tokens slightly before they expire so an
	// in-flight request never races the expiry.
	tokenSlack = 60 * time.Second

	limiterKey = "files"
)

// Client talks to the cloud file store.
type Client struct {
	http          *http.Client
	apiBase       string
	contentBase   string
	tokenEndpoint string
	appKey        string
	appSecret     string
	tokenFile     string
	limiter       *ratelimit.KeyedRateLimiter
	logger        *slog.Logger

	mu    sync.Mutex
	token *storedToken
}

// storedToken is the persisted OAuth state. The refresh token is
// long-lived; the access token is renewed from it as needed.
type storedToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// New creates a client backed by the token file at tokenFile. The file
// must already contain a refresh token obtained through the one-time
// authorization flow.
func New(appKey, appSecret, tokenFile string, logger *slog.Logger) *Client {
	return &Client{
		http:          &http.Client{Timeout: defaultTimeout},
		apiBase:       apiBaseURL,
		contentBase:   contentBaseURL,
		tokenEndpoint: tokenURL,
		appKey:        appKey,
		appSecret:     appSecret,
		tokenFile:     tokenFile,
		limiter:       ratelimit.New(defaultRPS, defaultBurst),
		logger:        logger,
	}
}

// WithEndpoints overrides the API hosts (for testing).
func (c *Client) WithEndpoints(api, content, token string) *Client {
	c.apiBase = api
	c.contentBase = content
	c.tokenEndpoint = token
	return c
}

// accessToken returns a valid access token, refreshing and persisting
// it when the stored one has expired.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil {
		data, err := os.ReadFile(c.tokenFile)
		if err != nil {
			return "", errors.Wrapf(err, errors.CodeSetup, "read token file %s", c.tokenFile)
		}
		var tok storedToken
		if err := json.Unmarshal(data, &tok); err != nil {
			return "", errors.Wrap(err, errors.CodeSetup, "parse token file")
		}
		if tok.RefreshToken == "" {
			return "", errors.Setup("token file has no refresh token; re-run authorization")
		}
		c.token = &tok
	}

	if c.token.AccessToken != "" && time.Now().Add(tokenSlack).Unix() < c.token.ExpiresAt {
		return c.token.AccessToken, nil
	}

	if err := c.refreshLocked(ctx); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

func (c *Client) refreshLocked(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.token.RefreshToken},
		"client_id":     {c.appKey},
		"client_secret": {c.appSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CodeRemote, "refresh access token")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CodeRemote, "read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Setupf("token refresh rejected (status %d): %s", resp.StatusCode, string(body))
	}

	var refreshed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &refreshed); err != nil {
		return errors.Wrap(err, errors.CodeRemote, "decode token response")
	}

	c.token.AccessToken = refreshed.AccessToken
	c.token.ExpiresAt = time.Now().Unix() + refreshed.ExpiresIn

	// Persist so the next run skips the refresh round trip.
	if data, err := json.Marshal(c.token); err == nil {
		if err := os.WriteFile(c.tokenFile, data, 0o600); err != nil {
			c.logger.Warn("could not persist refreshed token", "error", err)
		}
	}

	c.logger.Debug("access token refreshed")
	return nil
}

func checkStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return errors.RateLimited("file store rate limit exceeded")
	case status >= 500:
		return errors.Remotef("file store server error (status %d)", status)
	case status == http.StatusUnauthorized:
		return errors.Unauthorized("file store token rejected")
	case status == http.StatusConflict:
		// The API reports path lookup failures as 409 with a path error body.
		return errors.NotFoundf("file store path error: %s", string(body))
	default:
		return errors.Validationf("file store rejected request (status %d): %s", status, string(body))
	}
}
