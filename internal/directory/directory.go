// Package directory builds in-memory snapshots of the remote workspace
// collections. The sync plans every decision against these snapshots
// instead of issuing per-record lookups.
package directory

import (
	"context"
	"log/slog"

	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/errors"
	"github.com/shelfsync/shelfsync/internal/normalize"
	"github.com/shelfsync/shelfsync/internal/notion"
)

// API is the slice of the workspace client the directory needs.
type API interface {
	QueryAll(ctx context.Context, databaseID string) ([]notion.Page, error)
}

// Entry is one remote book record.
type Entry struct {
	ID string
	// Fingerprint is the stored metadata hash from the last sync, ""
	// for records created by hand.
	Fingerprint string
	// ContentHash is the stored annotation-set hash from the last page
	// rebuild.
	ContentHash string
	// CompletionDate is the stored completion date string, "" if unset.
	CompletionDate string
	Marker         domain.Marker
}

// Duplicate is a remote record shadowed by an earlier one with the same
// natural key.
type Duplicate struct {
	ID  string
	Key domain.NaturalKey
}

// Books is a snapshot of the remote book collection keyed for matching.
type Books struct {
	byKey   map[domain.NaturalKey]Entry
	byTitle map[string]string

	// Duplicates lists shadowed records in the order the remote
	// returned them, so archival is deterministic across runs.
	Duplicates []Duplicate
}

// LoadBooks queries the whole book collection and indexes it by natural
// key. When several records share a key, the first one returned wins and
// the rest are reported as duplicates.
func LoadBooks(ctx context.Context, api API, collectionID string, logger *slog.Logger) (*Books, error) {
	pages, err := api.QueryAll(ctx, collectionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "load remote book collection")
	}

	books := &Books{
		byKey:   make(map[domain.NaturalKey]Entry, len(pages)),
		byTitle: make(map[string]string, len(pages)),
	}

	for _, p := range pages {
		title := p.TitleText(notion.PropTitle)
		author := p.Text(notion.PropAuthor)
		if title == "" {
			logger.Warn("remote book record without a title", "page_id", p.ID)
			continue
		}

		key := domain.KeyFor(title, author)
		if _, exists := books.byKey[key]; exists {
			books.Duplicates = append(books.Duplicates, Duplicate{ID: p.ID, Key: key})
			continue
		}

		books.byKey[key] = Entry{
			ID:             p.ID,
			Fingerprint:    p.Text(notion.PropFingerprint),
			ContentHash:    p.Text(notion.PropContentHash),
			CompletionDate: p.DateStart(notion.PropCompleted),
			Marker:         domain.ParseMarker(p.SelectName(notion.PropReview)),
		}
		if _, exists := books.byTitle[key.Title]; !exists {
			books.byTitle[key.Title] = p.ID
		}
	}

	logger.Info("remote book collection loaded",
		"records", len(books.byKey),
		"duplicates", len(books.Duplicates),
	)
	return books, nil
}

// Lookup returns the entry for a natural key.
func (b *Books) Lookup(key domain.NaturalKey) (Entry, bool) {
	e, ok := b.byKey[key]
	return e, ok
}

// ResolveTitle returns the page ID of the book with the given title,
// matching case-insensitively.
func (b *Books) ResolveTitle(title string) (string, bool) {
	id, ok := b.byTitle[normalize.Fold(title)]
	return id, ok
}

// Add records a book created during this run so that later phases can
// resolve it without re-querying the collection.
func (b *Books) Add(key domain.NaturalKey, entry Entry) {
	b.byKey[key] = entry
	if _, exists := b.byTitle[key.Title]; !exists {
		b.byTitle[key.Title] = entry.ID
	}
}

// Len returns the number of distinct books in the snapshot.
func (b *Books) Len() int {
	return len(b.byKey)
}

// Annotations is a snapshot of the identity hashes already stored in the
// remote annotation collection.
type Annotations struct {
	ids map[string]struct{}
}

// LoadAnnotations queries the annotation collection and collects the
// identity hash of every record.
func LoadAnnotations(ctx context.Context, api API, collectionID string, logger *slog.Logger) (*Annotations, error) {
	pages, err := api.QueryAll(ctx, collectionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSetup, "load remote annotation collection")
	}

	anns := &Annotations{ids: make(map[string]struct{}, len(pages))}
	for _, p := range pages {
		if hash := p.Text(notion.PropAnnotationID); hash != "" {
			anns.ids[hash] = struct{}{}
		}
	}

	logger.Info("remote annotation collection loaded", "records", len(anns.ids))
	return anns, nil
}

// Has reports whether an identity hash is already stored remotely.
func (a *Annotations) Has(hash string) bool {
	_, ok := a.ids[hash]
	return ok
}

// Len returns the number of stored identity hashes.
func (a *Annotations) Len() int {
	return len(a.ids)
}
