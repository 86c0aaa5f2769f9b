package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/sharegate/internal/common"
	"github.com/dmitrijs2005/sharegate/internal/cryptox"
	"github.com/dmitrijs2005/sharegate/internal/dbx"
	"github.com/dmitrijs2005/sharegate/internal/server/models"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/files"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/shares"
	"github.com/dmitrijs2005/sharegate/internal/slugx"
	"github.com/stretchr/testify/require"
)

func TestShareCreate_Validation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	entry, err := env.files.RegisterOrGet(ctx, writeTempFile(t, "payload.bin", "data"))
	require.NoError(t, err)

	zero := int64(0)
	empty := ""
	past := time.Now().UTC().Add(-time.Minute)

	tests := []struct {
		name   string
		params CreateParams
	}{
		{"empty file id", CreateParams{}},
		{"zero max downloads", CreateParams{FileID: entry.ID, MaxDownloads: &zero}},
		{"empty password", CreateParams{FileID: entry.ID, Password: &empty}},
		{"expiry in the past", CreateParams{FileID: entry.ID, ExpiresAt: &past}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.shares.Create(ctx, tt.params)
			require.ErrorIs(t, err, common.ErrorInvalidInput)
		})
	}
}

func TestShareCreate_MissingFile(t *testing.T) {
	env := setupEnv(t)

	_, err := env.shares.Create(context.Background(), CreateParams{FileID: "no-such-id"})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestShareCreate_PasswordStoredAsCredential(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	entry, err := env.files.RegisterOrGet(ctx, writeTempFile(t, "payload.bin", "data"))
	require.NoError(t, err)

	password := "hunter2"
	share, err := env.shares.Create(ctx, CreateParams{FileID: entry.ID, Password: &password})
	require.NoError(t, err)

	require.NotNil(t, share.PasswordHash)
	require.NotEqual(t, password, *share.PasswordHash)
	require.True(t, cryptox.VerifyPassword(password, *share.PasswordHash))

	// the hash must not leak through the share's JSON form
	b, err := json.Marshal(share)
	require.NoError(t, err)
	require.NotContains(t, string(b), *share.PasswordHash)
	require.NotContains(t, string(b), "password")
}

func TestShareCreate_DistinctSlugs(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	entry, err := env.files.RegisterOrGet(ctx, writeTempFile(t, "payload.bin", "data"))
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		share, err := env.shares.Create(ctx, CreateParams{FileID: entry.ID})
		require.NoError(t, err)
		require.Len(t, share.Slug, slugx.Length)
		_, dup := seen[share.Slug]
		require.False(t, dup, "slug %q minted twice", share.Slug)
		seen[share.Slug] = struct{}{}
	}
}

// --- allocator failure paths, driven through stub repositories ---

type stubFilesRepo struct {
	files.Repository
	entry *models.FileEntry
}

func (r *stubFilesRepo) GetByID(ctx context.Context, id string) (*models.FileEntry, error) {
	if r.entry != nil && r.entry.ID == id {
		return r.entry, nil
	}
	return nil, common.ErrorNotFound
}

type stubSharesRepo struct {
	shares.Repository
	slugExists      func(ctx context.Context, slug string) (bool, error)
	create          func(ctx context.Context, s *models.Share) error
	getBySlug       func(ctx context.Context, slug string) (*models.Share, error)
	consumeDownload func(ctx context.Context, slug string) (bool, error)
	resolveTarget   func(ctx context.Context, slug string) (*shares.DownloadTarget, error)
	slugChecks      int
	creates         int
}

func (r *stubSharesRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.slugChecks++
	return r.slugExists(ctx, slug)
}

func (r *stubSharesRepo) Create(ctx context.Context, s *models.Share) error {
	r.creates++
	return r.create(ctx, s)
}

func (r *stubSharesRepo) GetBySlug(ctx context.Context, slug string) (*models.Share, error) {
	return r.getBySlug(ctx, slug)
}

func (r *stubSharesRepo) ConsumeDownload(ctx context.Context, slug string) (bool, error) {
	return r.consumeDownload(ctx, slug)
}

func (r *stubSharesRepo) ResolveTarget(ctx context.Context, slug string) (*shares.DownloadTarget, error) {
	return r.resolveTarget(ctx, slug)
}

type stubManager struct {
	filesRepo   files.Repository
	sharesRepo  shares.Repository
	sharesCalls []dbx.DBTX
}

func (m *stubManager) Open(string) (*sql.DB, error)                 { return nil, nil }
func (m *stubManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *stubManager) Files(dbx.DBTX) files.Repository              { return m.filesRepo }

func (m *stubManager) Shares(db dbx.DBTX) shares.Repository {
	m.sharesCalls = append(m.sharesCalls, db)
	return m.sharesRepo
}

func stubService(repo *stubSharesRepo) *ShareService {
	entry := &models.FileEntry{ID: "f1"}
	return NewShareService(nil, &stubManager{
		filesRepo:  &stubFilesRepo{entry: entry},
		sharesRepo: repo,
	})
}

func TestShareCreate_AllocatorExhausted(t *testing.T) {
	repo := &stubSharesRepo{
		slugExists: func(context.Context, string) (bool, error) { return true, nil },
	}

	_, err := stubService(repo).Create(context.Background(), CreateParams{FileID: "f1"})
	require.ErrorIs(t, err, common.ErrorSlugExhausted)
	require.Equal(t, slugx.MaxAttempts, repo.slugChecks, "allocation must stop after the attempt bound")
	require.Equal(t, 0, repo.creates)
}

func TestShareCreate_InsertCollisionsBounded(t *testing.T) {
	repo := &stubSharesRepo{
		slugExists: func(context.Context, string) (bool, error) { return false, nil },
		create:     func(context.Context, *models.Share) error { return common.ErrorAlreadyExists },
	}

	_, err := stubService(repo).Create(context.Background(), CreateParams{FileID: "f1"})
	require.ErrorIs(t, err, common.ErrorSlugExhausted)
	require.Equal(t, slugx.MaxAttempts, repo.creates, "a losing insert counts as one more attempt")
}

func TestShareCreate_RecoversFromOneCollision(t *testing.T) {
	repo := &stubSharesRepo{
		slugExists: func(context.Context, string) (bool, error) { return false, nil },
	}
	repo.create = func(context.Context, *models.Share) error {
		if repo.creates == 1 {
			return common.ErrorAlreadyExists
		}
		return nil
	}

	share, err := stubService(repo).Create(context.Background(), CreateParams{FileID: "f1"})
	require.NoError(t, err)
	require.Len(t, share.Slug, slugx.Length)
	require.Equal(t, 2, repo.creates)
}

func TestSharePublicView(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	entry, err := env.files.RegisterOrGet(ctx, writeTempFile(t, "report.pdf", "data"))
	require.NoError(t, err)

	password := "hunter2"
	maxDownloads := int64(5)
	share, err := env.shares.Create(ctx, CreateParams{
		FileID: entry.ID, MaxDownloads: &maxDownloads, Password: &password,
	})
	require.NoError(t, err)

	view, err := env.shares.GetPublicView(ctx, share.Slug)
	require.NoError(t, err)
	require.Equal(t, "report.pdf", view.FileName)
	require.Equal(t, int64(4), view.FileSize)
	require.True(t, view.PasswordRequired)
	require.NotNil(t, view.MaxDownloads)
	require.Equal(t, maxDownloads, *view.MaxDownloads)

	_, err = env.shares.GetPublicView(ctx, "noSuchSl")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
