// Package files persists the file registry: canonical absolute paths mapped
// to stable identity records.
package files

import (
	"context"

	"github.com/dmitrijs2005/sharegate/internal/server/models"
)

type Repository interface {
	// Create inserts a new entry. A second entry for the same canonical
	// path fails with common.ErrorAlreadyExists; the caller is expected to
	// fetch the winner's row instead of surfacing the conflict.
	Create(ctx context.Context, f *models.FileEntry) error

	// GetByPath looks an entry up by canonical absolute path.
	// Returns common.ErrorNotFound when absent.
	GetByPath(ctx context.Context, absPath string) (*models.FileEntry, error)

	// GetByID looks an entry up by id. Returns common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.FileEntry, error)

	// List returns all entries, most recently registered first.
	List(ctx context.Context) ([]*models.FileEntry, error)

	// Delete removes the entry; shares referencing it go with it via the
	// FK cascade. Reports false when no such id existed.
	Delete(ctx context.Context, id string) (bool, error)
}
