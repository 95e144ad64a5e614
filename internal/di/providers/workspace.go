package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfsync/shelfsync/internal/config"
	"github.com/shelfsync/shelfsync/internal/logger"
	"github.com/shelfsync/shelfsync/internal/notion"
	"github.com/shelfsync/shelfsync/internal/sync"
)

// ProvideWorkspaceClient provides the rate-limited workspace API client.
func ProvideWorkspaceClient(i do.Injector) (*notion.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return notion.New(cfg.Workspace.Token, log.Logger), nil
}

// ProvideSyncer provides the reconciliation driver.
func ProvideSyncer(i do.Injector) (*sync.Syncer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*notion.Client](i)

	return sync.New(client, log.Logger, sync.Options{
		BooksCollectionID:       cfg.Workspace.BooksCollectionID,
		AnnotationsCollectionID: cfg.Workspace.AnnotationsCollectionID,
		Workers:                 cfg.Sync.Workers,
		PageWorkers:             cfg.Sync.PageWorkers,
		ForceUpdate:             cfg.Sync.ForceUpdate,
		DryRun:                  cfg.Sync.DryRun,
	}), nil
}
