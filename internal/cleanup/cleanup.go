// Package cleanup holds the destructive maintenance operations exposed
// by the dedupe and wipe tools. They share the sync's remote snapshot
// loading but run outside a normal reconciliation.
package cleanup

import (
	"context"
	"log/slog"
	stdsync "sync"

	"github.com/shelfsync/shelfsync/internal/directory"
	"github.com/shelfsync/shelfsync/internal/notion"
	"github.com/shelfsync/shelfsync/internal/sync"
)

// API is the slice of the workspace client cleanup needs.
type API interface {
	QueryAll(ctx context.Context, databaseID string) ([]notion.Page, error)
	ArchivePage(ctx context.Context, pageID string) error
}

// Stats reports what a cleanup operation did.
type Stats struct {
	Examined int
	Archived int
	Failed   int
}

// RemoveDuplicateBooks archives every book record shadowed by an earlier
// record with the same natural key. The first record the remote returns
// for a key is kept.
func RemoveDuplicateBooks(ctx context.Context, api API, collectionID string, workers int, dryRun bool, logger *slog.Logger) (Stats, error) {
	dir, err := directory.LoadBooks(ctx, api, collectionID, logger)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Examined: dir.Len() + len(dir.Duplicates)}
	ids := make([]string, 0, len(dir.Duplicates))
	for _, d := range dir.Duplicates {
		logger.Info("duplicate record", "page_id", d.ID, "title", d.Key.Title)
		ids = append(ids, d.ID)
	}
	archiveAll(ctx, api, ids, workers, dryRun, logger, &stats)
	return stats, nil
}

// Wipe archives every record in a collection. There is no undo beyond
// the workspace's own trash; callers gate this behind confirmation.
func Wipe(ctx context.Context, api API, collectionID string, workers int, dryRun bool, logger *slog.Logger) (Stats, error) {
	pages, err := api.QueryAll(ctx, collectionID)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Examined: len(pages)}
	ids := make([]string, 0, len(pages))
	for _, p := range pages {
		ids = append(ids, p.ID)
	}
	archiveAll(ctx, api, ids, workers, dryRun, logger, &stats)
	return stats, nil
}

func archiveAll(ctx context.Context, api API, ids []string, workers int, dryRun bool, logger *slog.Logger, stats *Stats) {
	if len(ids) == 0 {
		return
	}
	if dryRun {
		for _, id := range ids {
			logger.Info("would archive record", "page_id", id)
		}
		stats.Archived = len(ids)
		return
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	var (
		mu    stdsync.Mutex
		wg    stdsync.WaitGroup
		queue = make(chan string, len(ids))
	)
	for _, id := range ids {
		queue <- id
	}
	close(queue)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range queue {
				if ctx.Err() != nil {
					return
				}
				err := sync.Retry(ctx, logger, "archive record", func() error {
					return api.ArchivePage(ctx, id)
				})
				mu.Lock()
				if err != nil {
					logger.Error("archive record", "page_id", id, "error", err)
					stats.Failed++
				} else {
					stats.Archived++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
