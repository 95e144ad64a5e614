// Package main provides the entry point for the dedupe tool, which
// archives duplicate book records left behind by hand edits or
// interrupted runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/shelfsync/shelfsync/internal/cleanup"
	"github.com/shelfsync/shelfsync/internal/config"
	"github.com/shelfsync/shelfsync/internal/di"
	"github.com/shelfsync/shelfsync/internal/id"
	"github.com/shelfsync/shelfsync/internal/logger"
	"github.com/shelfsync/shelfsync/internal/notion"
)

func main() {
	injector := di.NewContainer()

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := do.MustInvoke[*logger.Logger](injector).WithField("job_id", id.MustGenerate(id.PrefixJob))
	client := do.MustInvoke[*notion.Client](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := cleanup.RemoveDuplicateBooks(ctx, client,
		cfg.Workspace.BooksCollectionID, cfg.Sync.Workers, cfg.Sync.DryRun, log.Logger)
	if err != nil {
		log.Error("Dedupe failed", "error", err)
		os.Exit(1)
	}

	log.Info("Dedupe complete",
		"examined", stats.Examined,
		"archived", stats.Archived,
		"failed", stats.Failed,
	)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
