package directory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/notion"
)

type fakeAPI struct {
	pages map[string][]notion.Page
	err   error
}

func (f *fakeAPI) QueryAll(_ context.Context, databaseID string) ([]notion.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[databaseID], nil
}

func bookPage(id, title, author string, extra map[string]notion.PropertyValue) notion.Page {
	props := map[string]notion.PropertyValue{
		notion.PropTitle:  {Title: []notion.RichText{{PlainText: title}}},
		notion.PropAuthor: {RichText: []notion.RichText{{PlainText: author}}},
	}
	for k, v := range extra {
		props[k] = v
	}
	return notion.Page{ID: id, Properties: props}
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestLoadBooks_FirstListedWins(t *testing.T) {
	api := &fakeAPI{pages: map[string][]notion.Page{
		"books": {
			bookPage("page-a", "Dune", "Frank Herbert", nil),
			bookPage("page-b", "DUNE", "frank herbert", nil),
			bookPage("page-c", "Solaris", "Stanisław Lem", nil),
		},
	}}

	books, err := LoadBooks(context.Background(), api, "books", discard())
	require.NoError(t, err)

	assert.Equal(t, 2, books.Len())
	entry, ok := books.Lookup(domain.KeyFor("Dune", "Frank Herbert"))
	require.True(t, ok)
	assert.Equal(t, "page-a", entry.ID, "the first listed record survives")

	require.Len(t, books.Duplicates, 1)
	assert.Equal(t, "page-b", books.Duplicates[0].ID)
}

func TestLoadBooks_ReadsStoredState(t *testing.T) {
	api := &fakeAPI{pages: map[string][]notion.Page{
		"books": {
			bookPage("page-a", "Dune", "Frank Herbert", map[string]notion.PropertyValue{
				notion.PropFingerprint: {RichText: []notion.RichText{{PlainText: "abc123"}}},
				notion.PropContentHash: {RichText: []notion.RichText{{PlainText: "def456"}}},
				notion.PropCompleted:   {Date: &notion.DateValue{Start: "2025-06-01"}},
				notion.PropReview:      {Status: &notion.SelectOption{Name: "Final"}},
			}),
		},
	}}

	books, err := LoadBooks(context.Background(), api, "books", discard())
	require.NoError(t, err)

	entry, ok := books.Lookup(domain.KeyFor("Dune", "Frank Herbert"))
	require.True(t, ok)
	assert.Equal(t, "abc123", entry.Fingerprint)
	assert.Equal(t, "def456", entry.ContentHash)
	assert.Equal(t, "2025-06-01", entry.CompletionDate)
	assert.Equal(t, domain.MarkerFinal, entry.Marker)
}

func TestLoadBooks_SkipsUntitled(t *testing.T) {
	api := &fakeAPI{pages: map[string][]notion.Page{
		"books": {
			{ID: "page-x", Properties: map[string]notion.PropertyValue{}},
			bookPage("page-a", "Dune", "Frank Herbert", nil),
		},
	}}

	books, err := LoadBooks(context.Background(), api, "books", discard())
	require.NoError(t, err)
	assert.Equal(t, 1, books.Len())
}

func TestResolveTitle_CaseInsensitive(t *testing.T) {
	api := &fakeAPI{pages: map[string][]notion.Page{
		"books": {bookPage("page-a", "Dune", "Frank Herbert", nil)},
	}}
	books, err := LoadBooks(context.Background(), api, "books", discard())
	require.NoError(t, err)

	id, ok := books.ResolveTitle("DUNE")
	require.True(t, ok)
	assert.Equal(t, "page-a", id)

	_, ok = books.ResolveTitle("Missing Book")
	assert.False(t, ok)
}

func TestBooks_Add(t *testing.T) {
	books := &Books{
		byKey:   map[domain.NaturalKey]Entry{},
		byTitle: map[string]string{},
	}
	key := domain.KeyFor("Dune", "Frank Herbert")
	books.Add(key, Entry{ID: "new-page"})

	entry, ok := books.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, "new-page", entry.ID)

	id, ok := books.ResolveTitle("dune")
	require.True(t, ok)
	assert.Equal(t, "new-page", id)
}

func TestLoadAnnotations(t *testing.T) {
	api := &fakeAPI{pages: map[string][]notion.Page{
		"annotations": {
			{ID: "a1", Properties: map[string]notion.PropertyValue{
				notion.PropAnnotationID: {RichText: []notion.RichText{{PlainText: "hash-1"}}},
			}},
			{ID: "a2", Properties: map[string]notion.PropertyValue{}},
		},
	}}

	anns, err := LoadAnnotations(context.Background(), api, "annotations", discard())
	require.NoError(t, err)
	assert.Equal(t, 1, anns.Len())
	assert.True(t, anns.Has("hash-1"))
	assert.False(t, anns.Has("hash-2"))
}
