package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsync/shelfsync/internal/directory"
	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/errors"
	"github.com/shelfsync/shelfsync/internal/notion"
)

// fakeRemote is an in-memory RemoteAPI that records every mutation and
// can be scripted to fail per operation.
type fakeRemote struct {
	mu stdsync.Mutex

	// pages answers QueryAll for any collection; perDB overrides it for
	// specific collection IDs.
	pages  []notion.Page
	perDB  map[string][]notion.Page
	blocks map[string][]notion.Block

	// stubErrs queues errors per operation name; each call pops one
	// until the queue runs dry, then the call succeeds.
	stubErrs map[string][]error
	attempts map[string]int

	created  []notion.Properties
	updated  map[string][]notion.Properties
	archived []string
	appended map[string][][]notion.Block
	deleted  []string
}

func (f *fakeRemote) fail(op string, errs ...error) {
	if f.stubErrs == nil {
		f.stubErrs = make(map[string][]error)
	}
	f.stubErrs[op] = append(f.stubErrs[op], errs...)
}

func (f *fakeRemote) step(op string) error {
	if f.attempts == nil {
		f.attempts = make(map[string]int)
	}
	f.attempts[op]++
	queue := f.stubErrs[op]
	if len(queue) == 0 {
		return nil
	}
	f.stubErrs[op] = queue[1:]
	return queue[0]
}

func (f *fakeRemote) QueryAll(_ context.Context, databaseID string) ([]notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("query"); err != nil {
		return nil, err
	}
	if pages, ok := f.perDB[databaseID]; ok {
		return pages, nil
	}
	return f.pages, nil
}

func (f *fakeRemote) CreatePage(_ context.Context, _ string, props notion.Properties) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("create"); err != nil {
		return "", err
	}
	f.created = append(f.created, props)
	return fmt.Sprintf("created-%d", len(f.created)), nil
}

func (f *fakeRemote) UpdatePage(_ context.Context, pageID string, props notion.Properties) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("update"); err != nil {
		return err
	}
	if f.updated == nil {
		f.updated = make(map[string][]notion.Properties)
	}
	f.updated[pageID] = append(f.updated[pageID], props)
	return nil
}

func (f *fakeRemote) ArchivePage(_ context.Context, pageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("archive"); err != nil {
		return err
	}
	f.archived = append(f.archived, pageID)
	return nil
}

func (f *fakeRemote) ListBlocks(_ context.Context, parentID string) ([]notion.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("list"); err != nil {
		return nil, err
	}
	return f.blocks[parentID], nil
}

func (f *fakeRemote) AppendBlocks(_ context.Context, parentID string, blocks []notion.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("append"); err != nil {
		return err
	}
	if f.appended == nil {
		f.appended = make(map[string][][]notion.Block)
	}
	f.appended[parentID] = append(f.appended[parentID], blocks)
	return nil
}

func (f *fakeRemote) DeleteBlock(_ context.Context, blockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.step("delete"); err != nil {
		return err
	}
	f.deleted = append(f.deleted, blockID)
	return nil
}

func newTestWriter(api RemoteAPI, dryRun bool) (*Writer, *RunStats) {
	stats := &RunStats{}
	return NewWriter(api, testLogger(), 2, 1, dryRun, stats), stats
}

func createDecision(title, author string) BookDecision {
	book := domain.BookRecord{Title: title, Author: author}
	return BookDecision{
		Action: ActionCreate,
		Book:   book,
		Key:    book.Key(),
		Props:  notion.Properties{notion.PropTitle: notion.Title(title)},
	}
}

func TestApplyBooks_ReturnsCreatedPageIDs(t *testing.T) {
	api := &fakeRemote{}
	w, stats := newTestWriter(api, false)

	created := w.ApplyBooks(context.Background(),
		"books-db", []BookDecision{createDecision("Dune", "Frank Herbert"), createDecision("Hyperion", "Dan Simmons")})

	assert.Len(t, created, 2)
	assert.Contains(t, created, domain.KeyFor("Dune", "Frank Herbert"))
	assert.Contains(t, created, domain.KeyFor("Hyperion", "Dan Simmons"))
	assert.EqualValues(t, 2, stats.Books.Created.Load())
}

func TestApplyBooks_RetriesTransientFailure(t *testing.T) {
	api := &fakeRemote{}
	api.fail("update", errors.Remotef("server hiccup"))
	w, stats := newTestWriter(api, false)

	w.ApplyBooks(context.Background(), "books-db", []BookDecision{{
		Action: ActionUpdate,
		Book:   domain.BookRecord{Title: "Dune"},
		PageID: "page-1",
		Props:  notion.Properties{},
	}})

	assert.Equal(t, 2, api.attempts["update"])
	assert.EqualValues(t, 1, stats.Books.Updated.Load())
	assert.EqualValues(t, 0, stats.Books.Failed.Load())
}

func TestApplyBooks_PermanentFailureIsNotRetried(t *testing.T) {
	api := &fakeRemote{}
	api.fail("update", errors.Validationf("bad property payload"))
	w, stats := newTestWriter(api, false)

	w.ApplyBooks(context.Background(), "books-db", []BookDecision{{
		Action: ActionUpdate,
		Book:   domain.BookRecord{Title: "Dune"},
		PageID: "page-1",
		Props:  notion.Properties{},
	}})

	assert.Equal(t, 1, api.attempts["update"])
	assert.EqualValues(t, 1, stats.Books.Failed.Load())
}

func TestApplyBooks_PartialFailureContinues(t *testing.T) {
	api := &fakeRemote{}
	api.fail("create", errors.Validationf("bad property payload"))
	w, stats := newTestWriter(api, false)
	w.workers = 1 // deterministic ordering: first create fails, second lands

	created := w.ApplyBooks(context.Background(),
		"books-db", []BookDecision{createDecision("Dune", "Frank Herbert"), createDecision("Hyperion", "Dan Simmons")})

	assert.Len(t, created, 1)
	assert.EqualValues(t, 1, stats.Books.Created.Load())
	assert.EqualValues(t, 1, stats.Books.Failed.Load())
}

func TestApplyBooks_DryRunMakesNoCalls(t *testing.T) {
	api := &fakeRemote{}
	w, stats := newTestWriter(api, true)

	created := w.ApplyBooks(context.Background(),
		"books-db", []BookDecision{createDecision("Dune", "Frank Herbert")})

	assert.Empty(t, created)
	assert.Empty(t, api.created)
	assert.EqualValues(t, 1, stats.Books.Created.Load())
}

func TestArchiveDuplicates(t *testing.T) {
	api := &fakeRemote{}
	w, stats := newTestWriter(api, false)

	w.ArchiveDuplicates(context.Background(), []directory.Duplicate{
		{ID: "dup-1", Key: domain.KeyFor("Dune", "Frank Herbert")},
	})

	assert.Equal(t, []string{"dup-1"}, api.archived)
	assert.EqualValues(t, 1, stats.Books.Archived.Load())
}

func TestApplyAnnotations(t *testing.T) {
	api := &fakeRemote{}
	w, stats := newTestWriter(api, false)
	a := duneAnnotation("Fear is the mind-killer.", 0.05)

	w.ApplyAnnotations(context.Background(), "annotations-db", []AnnotationDecision{
		{Annotation: a, Identity: "id-hash", BookPageID: "page-1"},
	})

	require.Len(t, api.created, 1)
	assert.Equal(t, notion.Text("id-hash"), api.created[0][notion.PropAnnotationID])
	assert.EqualValues(t, 1, stats.Annotations.Created.Load())
}

func TestApplyPages_ClearsThenAppendsThenStoresHash(t *testing.T) {
	api := &fakeRemote{
		blocks: map[string][]notion.Block{
			"page-1": {
				{ID: "b1", Type: "paragraph"},
				{ID: "b2", Type: "paragraph"},
			},
		},
	}
	w, stats := newTestWriter(api, false)

	w.ApplyPages(context.Background(), []*PageRebuild{{
		PageID:      "page-1",
		BookTitle:   "Dune",
		Chunks:      [][]notion.Block{{notion.ParagraphBlock("(10%) text")}},
		ContentHash: "content-hash",
	}})

	assert.Equal(t, []string{"b1", "b2"}, api.deleted)
	require.Len(t, api.appended["page-1"], 1)
	require.Len(t, api.updated["page-1"], 1)
	assert.Equal(t, notion.Text("content-hash"), api.updated["page-1"][0][notion.PropContentHash])
	assert.EqualValues(t, 1, stats.Pages.Updated.Load())
}

func TestApplyPages_InProgressPreservesBlocksAboveDivider(t *testing.T) {
	api := &fakeRemote{
		blocks: map[string][]notion.Block{
			"page-1": {
				{ID: "summary", Type: "paragraph"},
				{ID: "div", Type: "divider"},
				{ID: "old", Type: "paragraph"},
			},
		},
	}
	w, _ := newTestWriter(api, false)

	w.ApplyPages(context.Background(), []*PageRebuild{{
		PageID:      "page-1",
		BookTitle:   "Dune",
		Chunks:      [][]notion.Block{{notion.ParagraphBlock("(10%) text")}},
		ContentHash: "content-hash",
		Marker:      domain.MarkerInProgress,
	}})

	// The reader's summary survives; the divider and old content go.
	assert.Equal(t, []string{"div", "old"}, api.deleted)
	// A fresh divider is appended before the rebuilt content.
	appends := api.appended["page-1"]
	require.Len(t, appends, 2)
	require.Len(t, appends[0], 1)
	assert.True(t, appends[0][0].IsDivider())
}

func TestApplyPages_InProgressWithoutDividerPreservesEverything(t *testing.T) {
	api := &fakeRemote{
		blocks: map[string][]notion.Block{
			"page-1": {
				{ID: "summary", Type: "paragraph"},
			},
		},
	}
	w, _ := newTestWriter(api, false)

	w.ApplyPages(context.Background(), []*PageRebuild{{
		PageID:      "page-1",
		BookTitle:   "Dune",
		Chunks:      [][]notion.Block{{notion.ParagraphBlock("(10%) text")}},
		ContentHash: "content-hash",
		Marker:      domain.MarkerInProgress,
	}})

	assert.Empty(t, api.deleted)
	appends := api.appended["page-1"]
	require.Len(t, appends, 2)
	assert.True(t, appends[0][0].IsDivider())
}

func TestApplyPages_DryRunMakesNoCalls(t *testing.T) {
	api := &fakeRemote{}
	w, stats := newTestWriter(api, true)

	w.ApplyPages(context.Background(), []*PageRebuild{{
		PageID: "page-1",
		Chunks: [][]notion.Block{{notion.ParagraphBlock("text")}},
	}})

	assert.Empty(t, api.appended)
	assert.Empty(t, api.deleted)
	assert.EqualValues(t, 1, stats.Pages.Updated.Load())
}
