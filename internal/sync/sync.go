// Package sync reconciles the device's books and annotations against
// the remote workspace: metadata upserts keyed by natural key, append-only
// annotation records, and ordered rebuilds of per-book annotation pages.
package sync

import (
	"context"

	"github.com/shelfsync/shelfsync/internal/notion"
)

// RemoteAPI is the slice of the workspace client the sync writes through.
type RemoteAPI interface {
	QueryAll(ctx context.Context, databaseID string) ([]notion.Page, error)
	CreatePage(ctx context.Context, databaseID string, props notion.Properties) (string, error)
	UpdatePage(ctx context.Context, pageID string, props notion.Properties) error
	ArchivePage(ctx context.Context, pageID string) error
	ListBlocks(ctx context.Context, parentID string) ([]notion.Block, error)
	AppendBlocks(ctx context.Context, parentID string, blocks []notion.Block) error
	DeleteBlock(ctx context.Context, blockID string) error
}

// Action is the outcome planned for one record.
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
	ActionUpdate
	ActionArchive
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionArchive:
		return "archive"
	default:
		return "skip"
	}
}
