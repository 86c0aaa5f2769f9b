// Package services contains server-side business logic. This file implements
// FileService, the registry of on-disk files shares can point at.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/sharegate/internal/common"
	"github.com/dmitrijs2005/sharegate/internal/server/models"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FileService registers files by canonical path and owns their lifecycle.
// It is the sole writer of the file relation.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewFileService constructs a FileService over the shared pool.
func NewFileService(db *sql.DB, m repomanager.RepositoryManager) *FileService {
	return &FileService{db: db, repomanager: m}
}

// RegisterOrGet resolves path to its canonical absolute form and returns the
// registry entry for it, creating one on first registration. Re-registering
// the same canonical path returns the existing row unchanged; no new id is
// minted. Two concurrent registrations of one path race on the unique
// abs_path constraint, and the loser fetches the winner's row.
func (s *FileService) RegisterOrGet(ctx context.Context, path string) (*models.FileEntry, error) {
	canonical, info, err := canonicalize(path)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Files(s.db)

	existing, err := repo.GetByPath(ctx, canonical)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching file: %w", err)
	}

	entry := &models.FileEntry{
		ID:        uuid.NewString(),
		AbsPath:   canonical,
		Name:      filepath.Base(canonical),
		SizeBytes: info.Size(),
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, entry); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			// lost the dedup race: someone just registered the path
			return repo.GetByPath(ctx, canonical)
		}
		return nil, fmt.Errorf("error creating file: %w", err)
	}
	return entry, nil
}

// GetByPath is a pure lookup by canonical path with no side effects. The
// registry stays queryable even when the backing file has vanished from
// disk: if symlink resolution fails, the lookup falls back to the plain
// absolute form of path.
func (s *FileService) GetByPath(ctx context.Context, path string) (*models.FileEntry, error) {
	if path == "" {
		return nil, common.ErrorInvalidInput
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, common.ErrorInvalidInput
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		canonical = abs
	}
	return s.repomanager.Files(s.db).GetByPath(ctx, canonical)
}

// List returns all registered files, most recent first.
func (s *FileService) List(ctx context.Context) ([]*models.FileEntry, error) {
	return s.repomanager.Files(s.db).List(ctx)
}

// Delete removes the entry and, through the FK cascade, every share that
// references it. Reports false when no such id existed.
func (s *FileService) Delete(ctx context.Context, id string) (bool, error) {
	return s.repomanager.Files(s.db).Delete(ctx, id)
}

// canonicalize resolves relative segments and symlinks, then stats the
// result. Only regular files are registrable.
func canonicalize(path string) (string, os.FileInfo, error) {
	if path == "" {
		return "", nil, common.ErrorInvalidInput
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, common.ErrorInvalidInput
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", nil, mapFSError(err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return "", nil, mapFSError(err)
	}
	if !info.Mode().IsRegular() || info.Size() < 0 {
		return "", nil, common.ErrorInvalidInput
	}
	return canonical, info, nil
}

func mapFSError(err error) error {
	switch {
	case os.IsNotExist(err):
		return common.ErrorNotFound
	case os.IsPermission(err):
		return common.ErrorPermissionDenied
	default:
		return fmt.Errorf("stat error: %w", err)
	}
}
