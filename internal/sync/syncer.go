package sync

import (
	"context"
	"log/slog"

	"github.com/shelfsync/shelfsync/internal/directory"
	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/id"
)

// Options configures a sync run.
type Options struct {
	BooksCollectionID       string
	AnnotationsCollectionID string
	Workers                 int
	PageWorkers             int
	// ForceUpdate rewrites records and pages even when the stored hashes
	// match. Records marked final stay locked regardless.
	ForceUpdate bool
	DryRun      bool
}

// Syncer drives one full reconciliation: archive duplicates, upsert book
// records, append new annotations, then rebuild annotation pages.
type Syncer struct {
	api    RemoteAPI
	logger *slog.Logger
	opts   Options
}

// New builds a syncer.
func New(api RemoteAPI, logger *slog.Logger, opts Options) *Syncer {
	return &Syncer{api: api, logger: logger, opts: opts}
}

// Run reconciles the device snapshot against the workspace and returns
// the outcome counts. Individual record failures are counted, not
// fatal; an error return means a phase could not start at all.
func (s *Syncer) Run(ctx context.Context, books []domain.BookRecord, anns []domain.AnnotationRecord) (RunSummary, error) {
	logger := s.logger.With("run_id", id.MustGenerate(id.PrefixRun))
	stats := &RunStats{}
	writer := NewWriter(s.api, logger, s.opts.Workers, s.opts.PageWorkers, s.opts.DryRun, stats)

	dir, err := directory.LoadBooks(ctx, s.api, s.opts.BooksCollectionID, logger)
	if err != nil {
		return stats.Snapshot(), err
	}

	// Duplicates must be gone before any upsert, otherwise a create
	// could land next to a record about to be archived.
	writer.ArchiveDuplicates(ctx, dir.Duplicates)

	decisions := PlanBooks(books, dir, s.opts.ForceUpdate)
	created := writer.ApplyBooks(ctx, s.opts.BooksCollectionID, decisions)
	for key, pageID := range created {
		dir.Add(key, directory.Entry{ID: pageID})
	}

	present, err := directory.LoadAnnotations(ctx, s.api, s.opts.AnnotationsCollectionID, logger)
	if err != nil {
		return stats.Snapshot(), err
	}

	annCreates, unresolved, annSkipped := PlanAnnotations(anns, present, dir, logger)
	stats.Annotations.Skipped.Add(int64(annSkipped))
	stats.Annotations.Failed.Add(int64(unresolved))
	logger.Info("annotation plan",
		"new", len(annCreates),
		"skipped", annSkipped,
		"unresolved", unresolved,
	)
	writer.ApplyAnnotations(ctx, s.opts.AnnotationsCollectionID, annCreates)

	writer.ApplyPages(ctx, s.planPages(dir, anns, stats))

	summary := stats.Snapshot()
	summary.Log(logger)
	return summary, nil
}

// planPages groups annotations per book and plans a body rebuild for
// every book whose annotation set changed.
func (s *Syncer) planPages(dir *directory.Books, anns []domain.AnnotationRecord, stats *RunStats) []*PageRebuild {
	groups := make(map[domain.NaturalKey][]domain.AnnotationRecord)
	var order []domain.NaturalKey
	for _, a := range anns {
		key := domain.KeyFor(a.BookTitle, a.BookAuthor)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], a)
	}

	var rebuilds []*PageRebuild
	for _, key := range order {
		group := groups[key]
		entry, ok := dir.Lookup(key)
		if !ok {
			// Already reported as unresolved during annotation planning.
			continue
		}
		rebuild, reason := PlanPage(entry, group[0].BookTitle, group, s.opts.ForceUpdate)
		if rebuild == nil {
			s.logger.Debug("annotation page unchanged",
				"title", group[0].BookTitle,
				"reason", reason,
			)
			stats.Pages.Skipped.Add(1)
			continue
		}
		rebuilds = append(rebuilds, rebuild)
	}
	return rebuilds
}
