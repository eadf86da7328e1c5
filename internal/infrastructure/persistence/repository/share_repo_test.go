package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/domain/entity"
	"github.com/garyjia/notion-invoice/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/notion-invoice/pkg/database"
)

func setupShareRepo(t *testing.T) (*ShareRepository, *sqlite.DB) {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "shares.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(""))

	repo := NewShareRepository(db.DB, logger).(*ShareRepository)
	return repo, sqlite.NewDB(db.DB, logger)
}

func newShare(id, invoiceID, createdBy string, createdAt time.Time, expiresAt *time.Time) *entity.InvoiceShare {
	return &entity.InvoiceShare{
		ID:        id,
		InvoiceID: invoiceID,
		Token:     "token-" + id,
		CreatedBy: createdBy,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
}

func TestShareRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupShareRepo(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	expires := created.Add(48 * time.Hour)
	require.NoError(t, repo.Create(ctx, newShare("s1", "INV-2026-0001", "user-1", created, &expires)))
	require.NoError(t, repo.Create(ctx, newShare("s2", "INV-2026-0002", "user-1", created, nil)))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "INV-2026-0001", got.InvoiceID)
	assert.Equal(t, "token-s1", got.Token)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(expires))

	byToken, err := repo.GetByToken(ctx, "token-s2")
	require.NoError(t, err)
	require.NotNil(t, byToken)
	assert.Equal(t, "s2", byToken.ID)
	assert.Nil(t, byToken.ExpiresAt)

	missing, err := repo.GetByToken(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = repo.GetByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestShareRepository_TokenIsUnique(t *testing.T) {
	repo, _ := setupShareRepo(t)
	ctx := context.Background()

	first := newShare("s1", "INV-1", "user-1", time.Now(), nil)
	require.NoError(t, repo.Create(ctx, first))

	dup := newShare("s2", "INV-1", "user-1", time.Now(), nil)
	dup.Token = first.Token
	assert.Error(t, repo.Create(ctx, dup))
}

func TestShareRepository_ListByCreator(t *testing.T) {
	repo, _ := setupShareRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newShare("old", "INV-1", "user-1", base, nil)))
	require.NoError(t, repo.Create(ctx, newShare("new", "INV-2", "user-1", base.Add(time.Hour), nil)))
	require.NoError(t, repo.Create(ctx, newShare("other", "INV-3", "user-2", base, nil)))

	shares, err := repo.ListByCreator(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, "new", shares[0].ID)
	assert.Equal(t, "old", shares[1].ID)

	none, err := repo.ListByCreator(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestShareRepository_Delete(t *testing.T) {
	repo, _ := setupShareRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newShare("s1", "INV-1", "user-1", time.Now(), nil)))
	require.NoError(t, repo.Create(ctx, newShare("s2", "INV-1", "user-2", time.Now(), nil)))
	require.NoError(t, repo.Create(ctx, newShare("s3", "INV-2", "user-1", time.Now(), nil)))

	require.NoError(t, repo.Delete(ctx, "s3"))
	err := repo.Delete(ctx, "s3")
	assert.True(t, errors.Is(err, ErrShareNotFound))

	n, err := repo.DeleteByInvoiceID(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestShareRepository_DeleteExpired(t *testing.T) {
	repo, _ := setupShareRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	exact := now
	future := now.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, newShare("past", "INV-1", "u", now.Add(-48*time.Hour), &past)))
	require.NoError(t, repo.Create(ctx, newShare("exact", "INV-1", "u", now.Add(-48*time.Hour), &exact)))
	require.NoError(t, repo.Create(ctx, newShare("future", "INV-1", "u", now.Add(-48*time.Hour), &future)))
	require.NoError(t, repo.Create(ctx, newShare("forever", "INV-1", "u", now.Add(-48*time.Hour), nil)))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := repo.ListByCreator(ctx, "u")
	require.NoError(t, err)
	ids := []string{}
	for _, s := range left {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"future", "forever"}, ids)
}

func TestShareRepository_Transaction(t *testing.T) {
	repo, tx := setupShareRepo(t)
	ctx := context.Background()

	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, newShare("s1", "INV-1", "user-1", time.Now(), nil)); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got, "rolled back insert is not visible")

	err = tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return repo.Create(txCtx, newShare("s2", "INV-1", "user-1", time.Now(), nil))
	})
	require.NoError(t, err)

	got, err = repo.GetByID(ctx, "s2")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
