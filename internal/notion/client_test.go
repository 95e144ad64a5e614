package notion

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("test-token", slog.New(slog.DiscardHandler)).WithBaseURL(srv.URL)
}

func TestClient_Headers(t *testing.T) {
	var gotAuth, gotVersion string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		io.WriteString(w, `{"id":"page-1"}`)
	})

	_, err := c.CreatePage(context.Background(), "db-1", Properties{PropTitle: Title("Dune")})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, apiVersion, gotVersion)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCode  errors.Code
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, errors.CodeRateLimited, true},
		{"server error", http.StatusInternalServerError, errors.CodeRemote, true},
		{"bad gateway", http.StatusBadGateway, errors.CodeRemote, true},
		{"gateway timeout", http.StatusGatewayTimeout, errors.CodeTimeout, true},
		{"not found", http.StatusNotFound, errors.CodeNotFound, false},
		{"unauthorized", http.StatusUnauthorized, errors.CodeUnauthorized, false},
		{"bad request", http.StatusBadRequest, errors.CodeValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			err := c.UpdatePage(context.Background(), "page-1", Properties{})
			require.Error(t, err)

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.wantCode, domainErr.Code)
			assert.Equal(t, tt.retryable, errors.IsRetryable(err))
		})
	}
}

func TestQueryAll_Pagination(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req queryRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))

		if req.StartCursor == "" {
			io.WriteString(w, `{"results":[{"id":"p1"},{"id":"p2","archived":true}],"has_more":true,"next_cursor":"cur-2"}`)
			return
		}
		assert.Equal(t, "cur-2", req.StartCursor)
		io.WriteString(w, `{"results":[{"id":"p3"}],"has_more":false}`)
	})

	pages, err := c.QueryAll(context.Background(), "db-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p1", "p3"}, ids, "archived pages are dropped")
}

func TestAppendBlocks_RejectsOversizedBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	blocks := make([]Block, MaxBlocksPerAppend+1)
	for i := range blocks {
		blocks[i] = ParagraphBlock("x")
	}
	err := c.AppendBlocks(context.Background(), "page-1", blocks)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestAppendBlocks_EmptyIsNoop(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	assert.NoError(t, c.AppendBlocks(context.Background(), "page-1", nil))
}

func TestListBlocks_Pagination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start_cursor") == "" {
			io.WriteString(w, `{"results":[{"id":"b1","type":"paragraph"}],"has_more":true,"next_cursor":"c2"}`)
			return
		}
		io.WriteString(w, `{"results":[{"id":"b2","type":"divider"}],"has_more":false}`)
	})

	blocks, err := c.ListBlocks(context.Background(), "page-1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "b1", blocks[0].ID)
	assert.True(t, blocks[1].IsDivider())
}

func TestTruncate(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, Truncate(short))

	long := make([]rune, MaxTextLength+50)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, []rune(Truncate(string(long))), MaxTextLength)
}

func TestPageReaders(t *testing.T) {
	raw := `{
		"id": "p1",
		"properties": {
			"Title": {"type":"title","title":[{"plain_text":"Dune"}]},
			"Author": {"type":"rich_text","rich_text":[{"plain_text":"Frank Herbert"}]},
			"Review": {"type":"status","status":{"name":"Final"}},
			"Completed": {"type":"date","date":{"start":"2025-06-01"}}
		}
	}`
	var p Page
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "Dune", p.TitleText("Title"))
	assert.Equal(t, "Frank Herbert", p.Text("Author"))
	assert.Equal(t, "Final", p.SelectName("Review"))
	assert.Equal(t, "2025-06-01", p.DateStart("Completed"))
	assert.Equal(t, "", p.DateStart("Missing"))
}
