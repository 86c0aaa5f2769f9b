// Package shares persists the share store: slugs mapped to download grants
// with their expiry, quota, counter and password hash.
package shares

import (
	"context"

	"github.com/dmitrijs2005/sharegate/internal/server/models"
)

// DownloadTarget is what the access gate hands back to the HTTP layer on
// admission: enough to stream the file, nothing more.
type DownloadTarget struct {
	AbsPath  string
	FileName string
}

type Repository interface {
	// Create inserts a new share with its server-assigned slug. A slug
	// collision fails with common.ErrorAlreadyExists (one allocation
	// attempt lost); a missing file fails with common.ErrorNotFound via
	// the FK constraint, which also covers a concurrent file delete.
	Create(ctx context.Context, s *models.Share) error

	// GetBySlug returns the full record, common.ErrorNotFound when absent.
	GetBySlug(ctx context.Context, slug string) (*models.Share, error)

	// List returns all shares, most recently created first.
	List(ctx context.Context) ([]*models.Share, error)

	// GetPublicBySlug returns the unauthenticated projection (never the
	// hash), common.ErrorNotFound when absent.
	GetPublicBySlug(ctx context.Context, slug string) (*models.PublicShare, error)

	// Delete removes the share. Reports false when no such slug existed.
	Delete(ctx context.Context, slug string) (bool, error)

	// SlugExists is the allocator's collision pre-check.
	SlugExists(ctx context.Context, slug string) (bool, error)

	// ConsumeDownload atomically increments dl_count iff the quota still
	// has room (or is unlimited). Reports false when nothing was consumed,
	// either because the quota is spent or the share is gone; the caller
	// re-reads to tell the two apart.
	ConsumeDownload(ctx context.Context, slug string) (bool, error)

	// ResolveTarget returns the owning file's canonical path and display
	// name, common.ErrorNotFound when the share or file is gone.
	ResolveTarget(ctx context.Context, slug string) (*DownloadTarget, error)
}
