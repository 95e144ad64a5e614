// Package notion is a rate-limited client for the Notion API, covering
// the small surface the sync needs: querying databases, creating and
// patching pages, and manipulating page block trees.
package notion

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shelfsync/shelfsync/internal/errors"
	"github.com/shelfsync/shelfsync/internal/ratelimit"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"

	// The public API allows roughly 3 requests per second.
	defaultRPS   = 3.0
	defaultBurst = 3

	defaultTimeout = 30 * time.Second

	// MaxBlocksPerAppend is the hard ceiling the API puts on a single
	// block append call.
	MaxBlocksPerAppend = 100

	// MaxTextLength is the per-rich-text character ceiling.
	MaxTextLength = 2000

	// pageSize is the maximum query/list page size.
	pageSize = 100

	limiterKey = "workspace"
)

// Client is a rate-limited workspace API client.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a new workspace client.
func New(token string, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: defaultBaseURL,
		token:   token,
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
	}
}

// WithBaseURL overrides the API endpoint (for testing).
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// do executes one API request with rate limiting and decodes the
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "rate limit wait")
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("workspace request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			return errors.Wrap(err, errors.CodeTimeout, "request timed out")
		}
		return errors.Wrap(err, errors.CodeRemote, "execute request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CodeRemote, "read response")
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrap(err, errors.CodeRemote, "decode response")
		}
	}
	return nil
}

// checkStatus maps API status codes onto domain errors so the retry
// loop can tell transient failures from permanent ones.
func checkStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return errors.RateLimited("workspace rate limit exceeded")
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return errors.Timeout(fmt.Sprintf("workspace timeout (status %d)", status))
	case status >= 500:
		return errors.Remotef("workspace server error (status %d)", status)
	case status == http.StatusNotFound:
		return errors.NotFoundf("workspace object not found: %s", string(body))
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return errors.Unauthorized("workspace token rejected")
	case status == http.StatusConflict:
		return errors.Conflict("workspace write conflict")
	default:
		return errors.Validationf("workspace rejected request (status %d): %s", status, string(body))
	}
}
