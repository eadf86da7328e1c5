package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

func newTestShareService(t *testing.T, gateway *mockInvoiceGateway) (ShareService, *mockShareRepo, *shareServiceImpl) {
	t.Helper()
	repo := newMockShareRepo()
	invoices := NewInvoiceService(gateway, nil, nil, repo, &mockLogger{})
	svc := NewShareService(repo, invoices, &mockTxManager{}, &mockLogger{})
	return svc, repo, svc.(*shareServiceImpl)
}

func TestShareService_Create(t *testing.T) {
	svc, repo, _ := newTestShareService(t, &mockInvoiceGateway{})

	expires := time.Now().Add(24 * time.Hour)
	share, err := svc.Create(context.Background(), "INV-1", "user-1", &expires)
	require.NoError(t, err)

	assert.Len(t, share.Token, 32)
	assert.NotContains(t, share.Token, "-")
	assert.Equal(t, "INV-1", share.InvoiceID)
	assert.Equal(t, "user-1", share.CreatedBy)
	assert.Contains(t, repo.shares, share.ID)

	other, err := svc.Create(context.Background(), "INV-1", "user-1", nil)
	require.NoError(t, err)
	assert.NotEqual(t, share.Token, other.Token)
}

func TestShareService_CreateErrors(t *testing.T) {
	missing := &mockInvoiceGateway{
		getByIDFunc: func(ctx context.Context, id string) (*entity.Invoice, error) { return nil, nil },
	}
	svc, _, _ := newTestShareService(t, missing)
	_, err := svc.Create(context.Background(), "INV-404", "user-1", nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	svc, _, _ = newTestShareService(t, &mockInvoiceGateway{})
	past := time.Now().Add(-time.Minute)
	_, err = svc.Create(context.Background(), "INV-1", "user-1", &past)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Create(context.Background(), "", "user-1", nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	svc, repo, _ := newTestShareService(t, &mockInvoiceGateway{})
	repo.createErr = errors.New("database is locked")
	_, err = svc.Create(context.Background(), "INV-1", "user-1", nil)
	assert.True(t, apperr.Is(err, apperr.KindUnknown))
	assert.NotContains(t, err.Error(), "locked")
}

func TestShareService_Validate(t *testing.T) {
	svc, _, impl := newTestShareService(t, &mockInvoiceGateway{})
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	impl.now = func() time.Time { return now }

	expires := now.Add(time.Hour)
	share, err := svc.Create(context.Background(), "INV-1", "user-1", &expires)
	require.NoError(t, err)

	got, err := svc.Validate(context.Background(), share.Token)
	require.NoError(t, err)
	assert.Equal(t, share.ID, got.ID)

	_, err = svc.Validate(context.Background(), "unknown")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Validate(context.Background(), " ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	impl.now = func() time.Time { return expires }
	_, err = svc.Validate(context.Background(), share.Token)
	assert.ErrorIs(t, err, ErrShareExpired)
}

func TestShareService_SharedInvoices(t *testing.T) {
	svc, _, _ := newTestShareService(t, &mockInvoiceGateway{})

	share, err := svc.Create(context.Background(), "INV-1", "user-1", nil)
	require.NoError(t, err)

	list, err := svc.SharedInvoices(context.Background(), share.Token)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "INV-1", list[0].ID)

	inv, err := svc.SharedInvoice(context.Background(), share.Token, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, "INV-1", inv.ID)

	_, err = svc.SharedInvoice(context.Background(), share.Token, "INV-2")
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "a token only opens its own invoice")
}

func TestShareService_SharedInvoiceDeletedUpstream(t *testing.T) {
	gateway := &mockInvoiceGateway{}
	svc, _, _ := newTestShareService(t, gateway)

	share, err := svc.Create(context.Background(), "INV-1", "user-1", nil)
	require.NoError(t, err)

	gateway.getByIDFunc = func(ctx context.Context, id string) (*entity.Invoice, error) { return nil, nil }

	list, err := svc.SharedInvoices(context.Background(), share.Token)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.SharedInvoice(context.Background(), share.Token, "INV-1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestShareService_Revoke(t *testing.T) {
	svc, repo, impl := newTestShareService(t, &mockInvoiceGateway{})
	tx := impl.txManager.(*mockTxManager)

	share, err := svc.Create(context.Background(), "INV-1", "owner", nil)
	require.NoError(t, err)

	err = svc.Revoke(context.Background(), share.ID, "someone-else")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Contains(t, repo.shares, share.ID)

	require.NoError(t, svc.Revoke(context.Background(), share.ID, "owner"))
	assert.NotContains(t, repo.shares, share.ID)
	assert.Equal(t, 2, tx.calls)

	err = svc.Revoke(context.Background(), share.ID, "owner")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestShareService_ListMineAndPurge(t *testing.T) {
	svc, repo, impl := newTestShareService(t, &mockInvoiceGateway{})
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	impl.now = func() time.Time { return now }

	soon := now.Add(time.Minute)
	_, err := svc.Create(context.Background(), "INV-1", "user-1", &soon)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "INV-2", "user-1", nil)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "INV-3", "user-2", nil)
	require.NoError(t, err)

	mine, err := svc.ListMine(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	impl.now = func() time.Time { return now.Add(time.Hour) }
	n, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, repo.shares, 2)
}
