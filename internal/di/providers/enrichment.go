package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfsync/shelfsync/internal/config"
	"github.com/shelfsync/shelfsync/internal/dropbox"
	"github.com/shelfsync/shelfsync/internal/enrich"
	"github.com/shelfsync/shelfsync/internal/logger"
)

// CacheHandle wraps the metadata cache with shutdown capability.
type CacheHandle struct {
	*enrich.Cache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideMetadataCache provides the local EPUB metadata cache.
func ProvideMetadataCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cache, err := enrich.OpenCache(cfg.Cache.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Metadata cache opened", "path", cfg.Cache.Path)

	return &CacheHandle{Cache: cache}, nil
}

// ProvideDropboxClient provides the cloud file store client.
func ProvideDropboxClient(i do.Injector) (*dropbox.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return dropbox.New(
		cfg.Dropbox.AppKey,
		cfg.Dropbox.AppSecret,
		cfg.Dropbox.TokenFile,
		log.Logger,
	), nil
}

// ProvideEnricher provides the EPUB metadata enricher. Callers gate on
// config.EnrichmentEnabled before invoking it.
func ProvideEnricher(i do.Injector) (*enrich.Enricher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cache := do.MustInvoke[*CacheHandle](i)
	files := do.MustInvoke[*dropbox.Client](i)

	return enrich.New(cache.Cache, files, cfg.Dropbox.FolderPath, log.Logger), nil
}
