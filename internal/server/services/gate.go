package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharegate/internal/common"
	"github.com/dmitrijs2005/sharegate/internal/cryptox"
	"github.com/dmitrijs2005/sharegate/internal/dbx"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/repomanager"
)

// Decision is the terminal outcome of a redemption attempt.
type Decision int

const (
	DecisionAdmitted Decision = iota
	DecisionNotFound
	DecisionExpired
	DecisionQuotaExceeded
	DecisionUnauthorized
)

func (d Decision) String() string {
	switch d {
	case DecisionAdmitted:
		return "admitted"
	case DecisionNotFound:
		return "not_found"
	case DecisionExpired:
		return "expired"
	case DecisionQuotaExceeded:
		return "quota_exceeded"
	case DecisionUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Outcome is the access gate's answer. AbsPath and FileName are populated
// only when Decision is DecisionAdmitted; the caller streams the file, the
// gate performs no I/O on its content.
type Outcome struct {
	Decision Decision
	AbsPath  string
	FileName string
}

// AccessGate decides, per redemption attempt, whether a download may
// proceed, and on admission consumes one unit of the share's quota.
type AccessGate struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

// NewAccessGate constructs an AccessGate over the shared pool.
func NewAccessGate(db *sql.DB, m repomanager.RepositoryManager) *AccessGate {
	return &AccessGate{db: db, repomanager: m, now: time.Now}
}

// Redeem runs the gating state machine: lookup, expiry check, quota check,
// password check, admit. Every denial leaves the counter untouched. The
// admit step runs in one transaction: the conditional counter update and the
// target resolution either land together or roll back together, so the quota
// invariant holds even when two requests race on the last remaining download
// and a cascade delete cannot strand a consumed slot. An unknown slug and a
// wrong password are distinguishable only by the explicit outcome.
func (g *AccessGate) Redeem(ctx context.Context, slug, password string) (*Outcome, error) {
	share, err := g.repomanager.Shares(g.db).GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &Outcome{Decision: DecisionNotFound}, nil
		}
		return nil, fmt.Errorf("error searching share: %w", err)
	}

	if share.ExpiresAt != nil && !g.now().Before(*share.ExpiresAt) {
		return &Outcome{Decision: DecisionExpired}, nil
	}

	if share.MaxDownloads != nil && share.DlCount >= *share.MaxDownloads {
		return &Outcome{Decision: DecisionQuotaExceeded}, nil
	}

	if share.PasswordRequired() && !cryptox.VerifyPassword(password, *share.PasswordHash) {
		return &Outcome{Decision: DecisionUnauthorized}, nil
	}

	outcome := &Outcome{Decision: DecisionQuotaExceeded}
	err = dbx.WithTx(ctx, g.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := g.repomanager.Shares(tx)

		consumed, err := repo.ConsumeDownload(ctx, slug)
		if err != nil {
			return fmt.Errorf("error consuming download: %w", err)
		}
		if !consumed {
			// a concurrent redemption took the last slot, or the share
			// was deleted after the read above
			_, err := repo.GetBySlug(ctx, slug)
			return err
		}

		target, err := repo.ResolveTarget(ctx, slug)
		if err != nil {
			return err
		}
		outcome = &Outcome{
			Decision: DecisionAdmitted,
			AbsPath:  target.AbsPath,
			FileName: target.FileName,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// the share or its file vanished under the redemption; the
			// rollback keeps the counter untouched
			return &Outcome{Decision: DecisionNotFound}, nil
		}
		return nil, fmt.Errorf("error admitting download: %w", err)
	}
	return outcome, nil
}
