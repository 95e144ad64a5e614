// Package main provides the entry point for the shelf sync tool. One
// run reads the e-reader's library, optionally enriches it with EPUB
// metadata from the cloud file store, and reconciles everything into
// the hosted workspace.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/shelfsync/shelfsync/internal/config"
	"github.com/shelfsync/shelfsync/internal/device"
	"github.com/shelfsync/shelfsync/internal/di"
	"github.com/shelfsync/shelfsync/internal/di/providers"
	"github.com/shelfsync/shelfsync/internal/enrich"
	"github.com/shelfsync/shelfsync/internal/logger"
	"github.com/shelfsync/shelfsync/internal/sync"
)

func main() {
	injector := di.NewContainer()

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, injector, cfg, log); err != nil {
		log.Error("Sync failed", "error", err)
		shutdown(injector, log)
		os.Exit(1)
	}

	shutdown(injector, log)
}

func run(ctx context.Context, injector do.Injector, cfg *config.Config, log *logger.Logger) error {
	log.Info("Starting sync",
		"environment", cfg.App.Environment,
		"dry_run", cfg.Sync.DryRun,
		"force", cfg.Sync.ForceUpdate,
	)

	store, err := do.Invoke[*providers.DeviceStoreHandle](injector)
	if err != nil {
		return err
	}

	books, err := store.Books(ctx)
	if err != nil {
		return err
	}
	anns, err := store.Annotations(ctx)
	if err != nil {
		return err
	}
	device.AttachAnnotationStats(books, anns)
	log.Info("Device library read", "books", len(books), "annotations", len(anns))

	if cfg.EnrichmentEnabled() {
		enricher, err := do.Invoke[*enrich.Enricher](injector)
		if err != nil {
			return err
		}
		enricher.Enrich(ctx, books)
	} else {
		log.Info("Enrichment disabled, syncing device metadata only")
	}

	syncer, err := do.Invoke[*sync.Syncer](injector)
	if err != nil {
		return err
	}
	summary, err := syncer.Run(ctx, books, anns)
	if err != nil {
		return err
	}
	if summary.AllFailed() {
		return fmt.Errorf("every attempted write failed; check the workspace token and collection IDs")
	}
	return nil
}

func shutdown(injector *do.RootScope, log *logger.Logger) {
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}
}
