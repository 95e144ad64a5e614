package notion

import (
	"context"
	"net/http"
)

// queryRequest is the body of a database query call.
type queryRequest struct {
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// queryResponse is one page of database query results.
type queryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// QueryAll returns every non-archived page in a database, following
// pagination cursors until the collection is exhausted.
func (c *Client) QueryAll(ctx context.Context, databaseID string) ([]Page, error) {
	var (
		pages  []Page
		cursor string
	)
	for {
		req := queryRequest{StartCursor: cursor, PageSize: pageSize}
		var resp queryResponse
		if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Results {
			if !p.Archived {
				pages = append(pages, p)
			}
		}
		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

type createPageRequest struct {
	Parent     map[string]string `json:"parent"`
	Properties Properties        `json:"properties"`
}

type createPageResponse struct {
	ID string `json:"id"`
}

// CreatePage creates a page in a database and returns its ID.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props Properties) (string, error) {
	req := createPageRequest{
		Parent:     map[string]string{"database_id": databaseID},
		Properties: props,
	}
	var resp createPageResponse
	if err := c.do(ctx, http.MethodPost, "/pages", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

type updatePageRequest struct {
	Properties Properties `json:"properties,omitempty"`
	Archived   *bool      `json:"archived,omitempty"`
}

// UpdatePage patches the given properties on a page, leaving every other
// property untouched.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props Properties) error {
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, updatePageRequest{Properties: props}, nil)
}

// ArchivePage archives a page. Archived pages drop out of queries but
// stay recoverable from the trash.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	archived := true
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, updatePageRequest{Archived: &archived}, nil)
}
