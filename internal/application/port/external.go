package port

import (
	"context"

	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// InvoiceGateway defines remote-store operations for invoices
type InvoiceGateway interface {
	// List returns invoices newest first, without items.
	List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error)
	// GetByID returns the invoice with its items, or nil when it does not exist.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	Create(ctx context.Context, draft entity.InvoiceDraft, createdBy string) (*entity.Invoice, error)
	Update(ctx context.Context, id string, patch entity.InvoicePatch) (*entity.Invoice, error)
	Delete(ctx context.Context, id string) error
}

// UserGateway defines remote-store lookups for users
type UserGateway interface {
	// FindByEmail returns the user and stored secret, or nil when unknown.
	FindByEmail(ctx context.Context, email string) (*entity.UserCredentials, error)
	// GetByID returns the user, or nil when unknown.
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// ErrorClassifier maps a raw remote failure onto the error taxonomy
type ErrorClassifier interface {
	Classify(err error) apperr.Kind
}
