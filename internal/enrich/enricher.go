package enrich

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/dropbox"
	"github.com/shelfsync/shelfsync/internal/epub"
	"github.com/shelfsync/shelfsync/internal/normalize"
)

// FileStore is the slice of the cloud client the enricher needs.
type FileStore interface {
	ListFolder(ctx context.Context, path string) ([]dropbox.Entry, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

// Enricher fills book records with metadata parsed from their EPUB
// files. Enrichment is best effort: a failed listing or download logs a
// warning and leaves the affected books as the device reported them.
type Enricher struct {
	cache  *Cache
	files  FileStore
	folder string
	logger *slog.Logger
}

// New creates an enricher reading EPUBs from folder.
func New(cache *Cache, files FileStore, folder string, logger *slog.Logger) *Enricher {
	return &Enricher{
		cache:  cache,
		files:  files,
		folder: folder,
		logger: logger,
	}
}

// Enrich applies EPUB metadata to books in place. Only books missing
// from the cache trigger cloud traffic; the folder is listed once and
// only the files matching those books are downloaded.
func (e *Enricher) Enrich(ctx context.Context, books []domain.BookRecord) {
	missing := make(map[string]bool)
	for i := range books {
		_, ok, err := e.cache.Get(books[i].Title)
		if err != nil {
			e.logger.Warn("cache read failed", "title", books[i].Title, "error", err)
			continue
		}
		if !ok {
			missing[normalize.Fold(books[i].Title)] = true
		}
	}

	if len(missing) > 0 {
		e.fetchMissing(ctx, missing)
	}

	enriched := 0
	for i := range books {
		md, ok, err := e.cache.Get(books[i].Title)
		if err != nil || !ok {
			continue
		}
		apply(&books[i], md)
		enriched++
	}
	e.logger.Info("books enriched", "enriched", enriched, "total", len(books))
}

// fetchMissing downloads and caches metadata for the named titles.
func (e *Enricher) fetchMissing(ctx context.Context, missing map[string]bool) {
	entries, err := e.files.ListFolder(ctx, e.folder)
	if err != nil {
		e.logger.Warn("could not list cloud library; skipping enrichment", "folder", e.folder, "error", err)
		return
	}

	for _, entry := range entries {
		title, ok := epubTitle(entry.Name)
		if !ok || !missing[normalize.Fold(title)] {
			continue
		}

		data, err := e.files.Download(ctx, entry.PathLower)
		if err != nil {
			e.logger.Warn("download failed", "file", entry.Name, "error", err)
			continue
		}

		md, err := epub.Parse(data)
		if err != nil {
			e.logger.Warn("unparseable epub", "file", entry.Name, "error", err)
			continue
		}

		if err := e.cache.Put(title, md); err != nil {
			e.logger.Warn("cache write failed", "title", title, "error", err)
			continue
		}
		e.logger.Debug("metadata cached", "title", title, "file", entry.Name)
	}
}

// epubTitle derives the book title from an EPUB filename.
func epubTitle(name string) (string, bool) {
	if !strings.HasSuffix(strings.ToLower(name), ".epub") {
		return "", false
	}
	return strings.TrimSpace(name[:len(name)-len(".epub")]), true
}

// apply merges parsed metadata into a device record. Device-reported
// fields win where both sides have a value; the EPUB only fills gaps and
// supplies the fields the device never tracks.
func apply(book *domain.BookRecord, md *domain.EpubMetadata) {
	book.Genres = normalize.SplitGenres(md.Subjects)
	if book.Pages == 0 {
		book.Pages = md.Pages
	}
	if t := parsePublicationDate(md.PublicationDate); t != nil {
		book.PublicationDate = t
	}
	if md.Language != "" {
		book.Language = normalize.LanguageName(md.Language)
	}
}

var publicationLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	time.RFC3339,
}

func parsePublicationDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range publicationLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
