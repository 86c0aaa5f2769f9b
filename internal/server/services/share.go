package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharegate/internal/common"
	"github.com/dmitrijs2005/sharegate/internal/cryptox"
	"github.com/dmitrijs2005/sharegate/internal/server/models"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sharegate/internal/slugx"
	"github.com/sethvargo/go-retry"
)

// ShareService mints and manages shares. It is the sole writer of the share
// relation apart from the access gate's counter increment.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewShareService constructs a ShareService over the shared pool.
func NewShareService(db *sql.DB, m repomanager.RepositoryManager) *ShareService {
	return &ShareService{db: db, repomanager: m}
}

// CreateParams carries the optional constraints of a new share. Nil means
// "no expiry", "unlimited downloads", "no password" respectively.
type CreateParams struct {
	FileID       string
	ExpiresAt    *time.Time
	MaxDownloads *int64
	Password     *string
}

// Create mints a new share against an existing file. The slug is assigned
// by the allocator; the password, if any, is stored only as an Argon2id
// credential. A duplicate-key insert (the allocator pre-check lost a race)
// counts as one more allocation attempt; the bound across attempts keeps
// creation from looping on a broken RNG.
func (s *ShareService) Create(ctx context.Context, p CreateParams) (*models.Share, error) {
	if p.FileID == "" {
		return nil, common.ErrorInvalidInput
	}
	if p.MaxDownloads != nil && *p.MaxDownloads < 1 {
		return nil, common.ErrorInvalidInput
	}
	if p.Password != nil && *p.Password == "" {
		return nil, common.ErrorInvalidInput
	}
	now := time.Now().UTC()
	if p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
		return nil, common.ErrorInvalidInput
	}

	if _, err := s.repomanager.Files(s.db).GetByID(ctx, p.FileID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching file: %w", err)
	}

	var passwordHash *string
	if p.Password != nil {
		h, err := cryptox.HashPassword(*p.Password)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		passwordHash = &h
	}

	repo := s.repomanager.Shares(s.db)

	var share *models.Share
	backoff := retry.WithMaxRetries(slugx.MaxAttempts-1, retry.NewConstant(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		slug, err := slugx.Allocate(ctx, repo.SlugExists)
		if err != nil {
			return err
		}

		candidate := &models.Share{
			Slug:         slug,
			FileID:       p.FileID,
			ExpiresAt:    p.ExpiresAt,
			MaxDownloads: p.MaxDownloads,
			DlCount:      0,
			PasswordHash: passwordHash,
			CreatedAt:    time.Now().UTC(),
		}
		if err := repo.Create(ctx, candidate); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				// the store's uniqueness constraint is the final
				// arbiter; regenerate and try again
				return retry.RetryableError(common.ErrorSlugExhausted)
			}
			return err
		}
		share = candidate
		return nil
	})
	if err != nil {
		// the file may have been deleted while the share was in flight;
		// the FK constraint surfaces that as NotFound
		return nil, err
	}
	return share, nil
}

// Get returns the full share record, common.ErrorNotFound when absent.
func (s *ShareService) Get(ctx context.Context, slug string) (*models.Share, error) {
	return s.repomanager.Shares(s.db).GetBySlug(ctx, slug)
}

// List returns all shares, most recently created first.
func (s *ShareService) List(ctx context.Context) ([]*models.Share, error) {
	return s.repomanager.Shares(s.db).List(ctx)
}

// GetPublicView returns the subset of share+file fields safe to expose to
// an unauthenticated caller; the password hash never leaves the store.
func (s *ShareService) GetPublicView(ctx context.Context, slug string) (*models.PublicShare, error) {
	return s.repomanager.Shares(s.db).GetPublicBySlug(ctx, slug)
}

// Delete removes the share. Reports false when no such slug existed.
func (s *ShareService) Delete(ctx context.Context, slug string) (bool, error) {
	return s.repomanager.Shares(s.db).Delete(ctx, slug)
}
