// Package main provides the entry point for the wipe tool, which
// archives every record in the workspace collections. Intended for
// resetting a test workspace; it refuses to run without confirmation.
package main

import (
	"context"
	"flag"
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
	// Registered before the container loads configuration, which parses
	// the shared flag set.
	yes := flag.Bool("yes", false, "confirm the wipe; required unless -dry-run is set")
	collection := flag.String("collection", "all", "which collection to wipe: books, annotations, or all")

	injector := di.NewContainer()

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := do.MustInvoke[*logger.Logger](injector).WithField("job_id", id.MustGenerate(id.PrefixJob))
	client := do.MustInvoke[*notion.Client](injector)

	var collections []string
	switch *collection {
	case "books":
		collections = []string{cfg.Workspace.BooksCollectionID}
	case "annotations":
		collections = []string{cfg.Workspace.AnnotationsCollectionID}
	case "all":
		// Annotations go first so no annotation is left pointing at an
		// archived book.
		collections = []string{
			cfg.Workspace.AnnotationsCollectionID,
			cfg.Workspace.BooksCollectionID,
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown collection %q\n", *collection)
		os.Exit(1)
	}

	if !*yes && !cfg.Sync.DryRun {
		fmt.Fprintln(os.Stderr, "Refusing to wipe without -yes (or use -dry-run to preview)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed := 0
	for _, id := range collections {
		stats, err := cleanup.Wipe(ctx, client, id, cfg.Sync.Workers, cfg.Sync.DryRun, log.Logger)
		if err != nil {
			log.Error("Wipe failed", "collection", id, "error", err)
			os.Exit(1)
		}
		log.Info("Collection wiped",
			"collection", id,
			"examined", stats.Examined,
			"archived", stats.Archived,
			"failed", stats.Failed,
		)
		failed += stats.Failed
	}
	if failed > 0 {
		os.Exit(1)
	}
}
