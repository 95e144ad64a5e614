package dropbox

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"io"
	"net/http"

	"github.com/shelfsync/shelfsync/internal/errors"
)

// Entry is one file in a listed folder.
type Entry struct {
	Name      string `json:"name"`
	PathLower string `json:"path_lower"`
	Size      int64  `json:"size"`
}

type listFolderResponse struct {
	Entries []struct {
		Tag string `json:".tag"`
		Entry
	} `json:"entries"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

// ListFolder returns every file directly inside path, following the
// continuation cursor until the folder is exhausted.
func (c *Client) ListFolder(ctx context.Context, path string) ([]Entry, error) {
	var (
		entries []Entry
		cursor  string
	)
	for {
		endpoint := c.apiBase + "/files/list_folder"
		body := map[string]any{"path": path}
		if cursor != "" {
			endpoint += "/continue"
			body = map[string]any{"cursor": cursor}
		}

		respBody, err := c.doAPI(ctx, endpoint, body)
		if err != nil {
			return nil, err
		}

		var resp listFolderResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, errors.Wrap(err, errors.CodeRemote, "decode folder listing")
		}
		for _, e := range resp.Entries {
			if e.Tag == "file" {
				entries = append(entries, e.Entry)
			}
		}
		if !resp.HasMore {
			return entries, nil
		}
		cursor = resp.Cursor
	}
}

// Download fetches a file's contents by its lowercase path.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "rate limit wait")
	}

	arg, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode download arg")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBase+"/files/download", nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create download request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRemote, "download file")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRemote, "read download")
	}
	if err := checkStatus(resp.StatusCode, data); err != nil {
		return nil, err
	}
	return data, nil
}

// doAPI executes one RPC-style call against the API host.
func (c *Client) doAPI(ctx context.Context, endpoint string, body any) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "rate limit wait")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRemote, "execute request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRemote, "read response")
	}
	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}
