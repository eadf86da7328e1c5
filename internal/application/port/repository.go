package port

import (
	"context"
	"time"

	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// ShareRepository defines persistence operations for InvoiceShare
type ShareRepository interface {
	Create(ctx context.Context, share *entity.InvoiceShare) error
	GetByID(ctx context.Context, id string) (*entity.InvoiceShare, error)
	GetByToken(ctx context.Context, token string) (*entity.InvoiceShare, error)
	ListByCreator(ctx context.Context, createdBy string) ([]*entity.InvoiceShare, error)
	Delete(ctx context.Context, id string) error
	DeleteByInvoiceID(ctx context.Context, invoiceID string) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
