package shares

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharegate/internal/common"
	"github.com/dmitrijs2005/sharegate/internal/server/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShareRow(row rowScanner) (*models.Share, error) {
	s := &models.Share{}
	var expiresAt sql.NullTime
	var maxDownloads sql.NullInt64
	var passwordHash sql.NullString

	if err := row.Scan(&s.Slug, &s.FileID, &expiresAt, &maxDownloads, &s.DlCount, &passwordHash, &s.CreatedAt); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		s.ExpiresAt = &t
	}
	if maxDownloads.Valid {
		s.MaxDownloads = &maxDownloads.Int64
	}
	if passwordHash.Valid {
		s.PasswordHash = &passwordHash.String
	}
	return s, nil
}

func scanShare(row *sql.Row) (*models.Share, error) {
	s, err := scanShareRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
