package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sharegate/internal/common"
	"github.com/dmitrijs2005/sharegate/internal/dbx"
	"github.com/dmitrijs2005/sharegate/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Share) error {
	query := `INSERT INTO share (slug, file_id, expires_at, max_downloads, dl_count, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		s.Slug, s.FileID, nullTime(s.ExpiresAt), nullInt(s.MaxDownloads), s.DlCount, nullString(s.PasswordHash), s.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		if dbx.IsForeignKeyViolation(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*models.Share, error) {
	query := `SELECT slug, file_id, expires_at, max_downloads, dl_count, password_hash, created_at
		FROM share WHERE slug = $1`
	return scanShare(r.db.QueryRowContext(ctx, query, slug))
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Share, error) {
	query := `SELECT slug, file_id, expires_at, max_downloads, dl_count, password_hash, created_at
		FROM share ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select shares: %w", err)
	}
	defer rows.Close()

	var result []*models.Share
	for rows.Next() {
		item, err := scanShareRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetPublicBySlug(ctx context.Context, slug string) (*models.PublicShare, error) {
	query := `SELECT s.slug, f.name, f.size_bytes, s.created_at, s.dl_count, s.max_downloads, s.expires_at,
			s.password_hash IS NOT NULL
		FROM share s JOIN file f ON s.file_id = f.id
		WHERE s.slug = $1`

	p := &models.PublicShare{}
	var maxDownloads sql.NullInt64
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, slug).Scan(
		&p.Slug, &p.FileName, &p.FileSize, &p.CreatedAt, &p.DlCount, &maxDownloads, &expiresAt, &p.PasswordRequired)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if maxDownloads.Valid {
		p.MaxDownloads = &maxDownloads.Int64
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		p.ExpiresAt = &t
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, slug string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM share WHERE slug = $1`, slug)
	if err != nil {
		return false, fmt.Errorf("failed to delete share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM share WHERE slug = $1)`
	if err := r.db.QueryRowContext(ctx, query, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// ConsumeDownload is the quota-race guard: check and increment happen in one
// conditional UPDATE, so two concurrent redemptions of a quota-1 share can
// never both be admitted.
func (r *PostgresRepository) ConsumeDownload(ctx context.Context, slug string) (bool, error) {
	query := `UPDATE share SET dl_count = dl_count + 1
		WHERE slug = $1 AND (max_downloads IS NULL OR dl_count < max_downloads)`
	res, err := r.db.ExecContext(ctx, query, slug)
	if err != nil {
		return false, fmt.Errorf("failed to consume download: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) ResolveTarget(ctx context.Context, slug string) (*DownloadTarget, error) {
	query := `SELECT f.abs_path, f.name
		FROM share s JOIN file f ON s.file_id = f.id
		WHERE s.slug = $1`

	t := &DownloadTarget{}
	if err := r.db.QueryRowContext(ctx, query, slug).Scan(&t.AbsPath, &t.FileName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
