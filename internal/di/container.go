// Package di provides dependency injection configuration for the sync
// tools.
package di

import (
	"github.com/samber/do/v2"

	"github.com/shelfsync/shelfsync/internal/di/providers"
)

// NewContainer creates and configures the DI container with all
// providers. Providers are lazy: a tool that never asks for the
// enricher never opens the cache or talks to the cloud store.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Device layer
	do.Provide(injector, providers.ProvideDeviceStore)

	// Enrichment layer
	do.Provide(injector, providers.ProvideMetadataCache)
	do.Provide(injector, providers.ProvideDropboxClient)
	do.Provide(injector, providers.ProvideEnricher)

	// Workspace layer
	do.Provide(injector, providers.ProvideWorkspaceClient)
	do.Provide(injector, providers.ProvideSyncer)

	return injector
}
