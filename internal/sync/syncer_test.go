package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/errors"
	"github.com/shelfsync/shelfsync/internal/notion"
)

func testOptions() Options {
	return Options{
		BooksCollectionID:       "books-db",
		AnnotationsCollectionID: "annotations-db",
		Workers:                 2,
		PageWorkers:             1,
	}
}

func TestSyncer_FullRunAgainstEmptyWorkspace(t *testing.T) {
	api := &fakeRemote{perDB: map[string][]notion.Page{
		"books-db":       nil,
		"annotations-db": nil,
	}}
	s := New(api, testLogger(), testOptions())

	books := []domain.BookRecord{duneBook()}
	anns := []domain.AnnotationRecord{
		duneAnnotation("Fear is the mind-killer.", 0.05),
		duneAnnotation("He who controls the spice controls the universe.", 0.4),
	}

	summary, err := s.Run(context.Background(), books, anns)
	require.NoError(t, err)

	// One book record, two annotation records.
	require.Len(t, api.created, 3)
	assert.EqualValues(t, 1, summary.Books.Created)
	assert.EqualValues(t, 2, summary.Annotations.Created)

	// The created book's page carried the annotation body and its
	// content hash.
	assert.NotEmpty(t, api.appended["created-1"])
	require.Len(t, api.updated["created-1"], 1)
	assert.Contains(t, api.updated["created-1"][0], notion.PropContentHash)
	assert.EqualValues(t, 1, summary.Pages.Updated)
	assert.False(t, summary.AllFailed())
}

func TestSyncer_ArchivesDuplicatesBeforeWrites(t *testing.T) {
	api := &fakeRemote{perDB: map[string][]notion.Page{
		"books-db": {
			remoteBook("page-1", "Dune", "Frank Herbert", "stale", "", "", ""),
			remoteBook("page-2", "Dune", "Frank Herbert", "stale", "", "", ""),
		},
		"annotations-db": nil,
	}}
	s := New(api, testLogger(), testOptions())

	summary, err := s.Run(context.Background(), []domain.BookRecord{duneBook()}, nil)
	require.NoError(t, err)

	// The second listing is the duplicate; the first survives and takes
	// the update.
	assert.Equal(t, []string{"page-2"}, api.archived)
	require.Contains(t, api.updated, "page-1")
	assert.EqualValues(t, 1, summary.Books.Archived)
	assert.EqualValues(t, 1, summary.Books.Updated)
}

func TestSyncer_NothingToDoOnSecondRun(t *testing.T) {
	book := duneBook()
	anns := []domain.AnnotationRecord{duneAnnotation("Fear is the mind-killer.", 0.05)}
	book.AnnotationCount = 1

	// Seed the workspace the way a completed run would leave it.
	first := &fakeRemote{perDB: map[string][]notion.Page{
		"books-db":       nil,
		"annotations-db": nil,
	}}
	_, err := New(first, testLogger(), testOptions()).Run(context.Background(), []domain.BookRecord{book}, anns)
	require.NoError(t, err)
	storedFP := propText(first.created[0], notion.PropFingerprint)
	storedHash := propText(first.updated["created-1"][0], notion.PropContentHash)
	storedID := propText(first.created[1], notion.PropAnnotationID)

	api := &fakeRemote{perDB: map[string][]notion.Page{
		"books-db": {
			remoteBook("page-1", "Dune", "Frank Herbert", storedFP, storedHash, "", ""),
		},
		"annotations-db": {
			remoteAnnotation("ann-1", storedID),
		},
	}}
	summary, err := New(api, testLogger(), testOptions()).Run(context.Background(), []domain.BookRecord{book}, anns)
	require.NoError(t, err)

	assert.Empty(t, api.created)
	assert.Empty(t, api.updated)
	assert.EqualValues(t, 1, summary.Books.Skipped)
	assert.EqualValues(t, 1, summary.Annotations.Skipped)
	assert.EqualValues(t, 1, summary.Pages.Skipped)
}

func TestSyncer_LoadFailureAborts(t *testing.T) {
	api := &fakeRemote{}
	api.fail("query", errors.Unauthorized("token rejected"))
	s := New(api, testLogger(), testOptions())

	_, err := s.Run(context.Background(), []domain.BookRecord{duneBook()}, nil)

	require.Error(t, err)
	assert.Empty(t, api.created)
}

func TestRunSummary_AllFailed(t *testing.T) {
	var r RunSummary
	assert.False(t, r.AllFailed(), "an idle run is not a failed run")

	r.Books.Failed = 3
	assert.True(t, r.AllFailed())

	r.Annotations.Created = 1
	assert.False(t, r.AllFailed())
}

// propText extracts the plain string out of a written rich_text or title
// property payload.
func propText(props notion.Properties, name string) string {
	payload, _ := props[name].(map[string]any)
	for _, key := range []string{"rich_text", "title"} {
		spans, _ := payload[key].([]any)
		if len(spans) == 0 {
			continue
		}
		span, _ := spans[0].(map[string]any)
		text, _ := span["text"].(map[string]any)
		content, _ := text["content"].(string)
		return content
	}
	return ""
}
