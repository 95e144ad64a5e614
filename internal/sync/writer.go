package sync

import (
	"context"
	"log/slog"
	stdsync "sync"

	"github.com/shelfsync/shelfsync/internal/directory"
	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/notion"
)

// Writer applies planned decisions to the remote workspace through a
// bounded worker pool, retrying transient failures per record.
type Writer struct {
	api         RemoteAPI
	logger      *slog.Logger
	workers     int
	pageWorkers int
	dryRun      bool
	stats       *RunStats
}

// NewWriter builds a writer. In dry-run mode every mutation is logged
// and counted but nothing is sent to the workspace.
func NewWriter(api RemoteAPI, logger *slog.Logger, workers, pageWorkers int, dryRun bool, stats *RunStats) *Writer {
	if workers < 1 {
		workers = 1
	}
	if pageWorkers < 1 {
		pageWorkers = 1
	}
	return &Writer{
		api:         api,
		logger:      logger,
		workers:     workers,
		pageWorkers: pageWorkers,
		dryRun:      dryRun,
		stats:       stats,
	}
}

// ArchiveDuplicates archives shadowed duplicate records. It runs before
// any create or update so the collection holds one record per book by
// the time new writes land.
func (w *Writer) ArchiveDuplicates(ctx context.Context, dups []directory.Duplicate) {
	runPool(ctx, w.workers, dups, func(ctx context.Context, d directory.Duplicate) {
		log := w.logger.With("page_id", d.ID, "title", d.Key.Title)
		if w.dryRun {
			log.Info("would archive duplicate record")
			w.stats.Books.Archived.Add(1)
			return
		}
		err := Retry(ctx, log, "archive duplicate", func() error {
			return w.api.ArchivePage(ctx, d.ID)
		})
		if err != nil {
			log.Error("archive duplicate record", "error", err)
			w.stats.Books.Failed.Add(1)
			return
		}
		log.Info("archived duplicate record")
		w.stats.Books.Archived.Add(1)
	})
}

// ApplyBooks executes the planned book decisions and returns the page
// IDs of records created in this run, so later phases can resolve
// annotations against them.
func (w *Writer) ApplyBooks(ctx context.Context, collectionID string, decisions []BookDecision) map[domain.NaturalKey]string {
	var (
		mu      stdsync.Mutex
		created = make(map[domain.NaturalKey]string)
	)

	runPool(ctx, w.workers, decisions, func(ctx context.Context, d BookDecision) {
		log := w.logger.With("title", d.Book.Title, "action", d.Action.String())

		switch d.Action {
		case ActionSkip:
			log.Debug("book unchanged", "reason", d.Reason)
			w.stats.Books.Skipped.Add(1)

		case ActionCreate:
			if w.dryRun {
				log.Info("would create book record", "reason", d.Reason)
				w.stats.Books.Created.Add(1)
				return
			}
			var pageID string
			err := Retry(ctx, log, "create book record", func() error {
				id, err := w.api.CreatePage(ctx, collectionID, d.Props)
				if err != nil {
					return err
				}
				pageID = id
				return nil
			})
			if err != nil {
				log.Error("create book record", "error", err)
				w.stats.Books.Failed.Add(1)
				return
			}
			mu.Lock()
			created[d.Key] = pageID
			mu.Unlock()
			log.Info("created book record", "page_id", pageID)
			w.stats.Books.Created.Add(1)

		case ActionUpdate:
			if w.dryRun {
				log.Info("would update book record", "reason", d.Reason)
				w.stats.Books.Updated.Add(1)
				return
			}
			err := Retry(ctx, log, "update book record", func() error {
				return w.api.UpdatePage(ctx, d.PageID, d.Props)
			})
			if err != nil {
				log.Error("update book record", "error", err)
				w.stats.Books.Failed.Add(1)
				return
			}
			log.Info("updated book record", "reason", d.Reason)
			w.stats.Books.Updated.Add(1)
		}
	})

	return created
}

// ApplyAnnotations creates the planned annotation records.
func (w *Writer) ApplyAnnotations(ctx context.Context, collectionID string, decisions []AnnotationDecision) {
	runPool(ctx, w.workers, decisions, func(ctx context.Context, d AnnotationDecision) {
		log := w.logger.With("book", d.Annotation.BookTitle, "chapter", d.Annotation.Chapter)
		if w.dryRun {
			log.Info("would create annotation record")
			w.stats.Annotations.Created.Add(1)
			return
		}
		props := annotationProperties(&d.Annotation, d.Identity, d.BookPageID)
		err := Retry(ctx, log, "create annotation record", func() error {
			_, err := w.api.CreatePage(ctx, collectionID, props)
			return err
		})
		if err != nil {
			log.Error("create annotation record", "error", err)
			w.stats.Annotations.Failed.Add(1)
			return
		}
		w.stats.Annotations.Created.Add(1)
	})
}

// ApplyPages rebuilds annotation page bodies. Each page is rebuilt
// serially (clear, then append chunks in order) but pages run in
// parallel, on a smaller pool since every rebuild is many API calls.
func (w *Writer) ApplyPages(ctx context.Context, rebuilds []*PageRebuild) {
	runPool(ctx, w.pageWorkers, rebuilds, func(ctx context.Context, r *PageRebuild) {
		log := w.logger.With("title", r.BookTitle, "page_id", r.PageID)
		if w.dryRun {
			log.Info("would rebuild annotation page", "chunks", len(r.Chunks))
			w.stats.Pages.Updated.Add(1)
			return
		}
		if err := w.rebuildPage(ctx, log, r); err != nil {
			log.Error("rebuild annotation page", "error", err)
			w.stats.Pages.Failed.Add(1)
			return
		}
		log.Info("rebuilt annotation page", "chunks", len(r.Chunks))
		w.stats.Pages.Updated.Add(1)
	})
}

func (w *Writer) rebuildPage(ctx context.Context, log *slog.Logger, r *PageRebuild) error {
	if err := w.clearPage(ctx, log, r); err != nil {
		return err
	}
	for _, chunk := range r.Chunks {
		err := Retry(ctx, log, "append page blocks", func() error {
			return w.api.AppendBlocks(ctx, r.PageID, chunk)
		})
		if err != nil {
			return err
		}
	}
	return Retry(ctx, log, "store content hash", func() error {
		return w.api.UpdatePage(ctx, r.PageID, notion.Properties{
			notion.PropContentHash: notion.Text(r.ContentHash),
		})
	})
}

// clearPage removes the synced portion of the page body. For a record
// marked in progress, blocks above the first divider are the owner's own
// notes and survive the rebuild; the divider and everything below it are
// replaced. A fresh divider is appended so the next rebuild finds the
// boundary again.
func (w *Writer) clearPage(ctx context.Context, log *slog.Logger, r *PageRebuild) error {
	var blocks []notion.Block
	err := Retry(ctx, log, "list page blocks", func() error {
		var err error
		blocks, err = w.api.ListBlocks(ctx, r.PageID)
		return err
	})
	if err != nil {
		return err
	}

	remove := blocks
	if r.Marker == domain.MarkerInProgress {
		remove = nil
		for i, b := range blocks {
			if b.IsDivider() {
				remove = blocks[i:]
				break
			}
		}
	}

	for _, b := range remove {
		err := Retry(ctx, log, "delete page block", func() error {
			return w.api.DeleteBlock(ctx, b.ID)
		})
		if err != nil {
			return err
		}
	}

	if r.Marker == domain.MarkerInProgress {
		return Retry(ctx, log, "append page divider", func() error {
			return w.api.AppendBlocks(ctx, r.PageID, []notion.Block{notion.DividerBlock()})
		})
	}
	return nil
}
