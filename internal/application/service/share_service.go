package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// ErrShareExpired is returned for a share link whose expiry has passed.
var ErrShareExpired = errors.New("공유 링크가 만료되었습니다.")

const (
	msgShareNotFound       = "공유 링크를 찾을 수 없습니다."
	msgShareNotOwner       = "본인이 생성한 공유 링크만 삭제할 수 있습니다."
	msgShareExpiryInPast   = "만료 시간은 현재 이후여야 합니다."
	msgShareTokenRequired  = "공유 토큰이 필요합니다."
	msgSharedInvoiceDenied = "공유되지 않은 견적서입니다."
)

// ShareService manages read-only share links for invoices
type ShareService interface {
	Create(ctx context.Context, invoiceID, createdBy string, expiresAt *time.Time) (*entity.InvoiceShare, error)
	Validate(ctx context.Context, token string) (*entity.InvoiceShare, error)
	SharedInvoices(ctx context.Context, token string) ([]*entity.Invoice, error)
	SharedInvoice(ctx context.Context, token, invoiceID string) (*entity.Invoice, error)
	Revoke(ctx context.Context, shareID, userID string) error
	ListMine(ctx context.Context, userID string) ([]*entity.InvoiceShare, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type shareServiceImpl struct {
	shareRepo port.ShareRepository
	invoices  InvoiceService
	txManager port.TransactionManager
	logger    Logger
	now       func() time.Time
}

// NewShareService creates a new ShareService
func NewShareService(
	shareRepo port.ShareRepository,
	invoices InvoiceService,
	txManager port.TransactionManager,
	logger Logger,
) ShareService {
	return &shareServiceImpl{
		shareRepo: shareRepo,
		invoices:  invoices,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

// Create issues a new share link for an existing invoice
func (s *shareServiceImpl) Create(ctx context.Context, invoiceID, createdBy string, expiresAt *time.Time) (*entity.InvoiceShare, error) {
	const op = "share.create"

	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, apperr.Validation(op, "invoiceId", msgInvoiceIDRequired)
	}
	now := s.now()
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, apperr.Validation(op, "expiresAt", msgShareExpiryInPast)
	}

	invoice, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperr.NotFound(op, msgInvoiceNotFound)
	}

	share := &entity.InvoiceShare{
		ID:        uuid.NewString(),
		InvoiceID: invoice.ID,
		Token:     newShareToken(),
		CreatedBy: createdBy,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.shareRepo.Create(ctx, share); err != nil {
		s.logger.Error("Failed to create share", "error", err, "invoice_id", invoice.ID)
		return nil, apperr.New(apperr.KindUnknown, op, err)
	}

	s.logger.Info("Share created", "share_id", share.ID, "invoice_id", share.InvoiceID, "created_by", createdBy)
	return share, nil
}

// Validate returns the share behind a token if it exists and has not expired
func (s *shareServiceImpl) Validate(ctx context.Context, token string) (*entity.InvoiceShare, error) {
	const op = "share.validate"

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Validation(op, "token", msgShareTokenRequired)
	}

	share, err := s.shareRepo.GetByToken(ctx, token)
	if err != nil {
		s.logger.Error("Failed to look up share", "error", err)
		return nil, apperr.New(apperr.KindUnknown, op, err)
	}
	if share == nil {
		return nil, apperr.NotFound(op, msgShareNotFound)
	}
	if share.IsExpired(s.now()) {
		return nil, ErrShareExpired
	}
	return share, nil
}

// SharedInvoices lists the invoices reachable through a token
func (s *shareServiceImpl) SharedInvoices(ctx context.Context, token string) ([]*entity.Invoice, error) {
	share, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoices.Get(ctx, share.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return []*entity.Invoice{}, nil
	}
	return []*entity.Invoice{invoice}, nil
}

// SharedInvoice returns one invoice reachable through a token
func (s *shareServiceImpl) SharedInvoice(ctx context.Context, token, invoiceID string) (*entity.Invoice, error) {
	const op = "share.invoice"

	share, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if share.InvoiceID != strings.TrimSpace(invoiceID) {
		return nil, apperr.Forbidden(op, msgSharedInvoiceDenied)
	}

	invoice, err := s.invoices.Get(ctx, share.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperr.NotFound(op, msgInvoiceNotFound)
	}
	return invoice, nil
}

// Revoke deletes a share link owned by userID
func (s *shareServiceImpl) Revoke(ctx context.Context, shareID, userID string) error {
	const op = "share.revoke"

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		share, err := s.shareRepo.GetByID(txCtx, shareID)
		if err != nil {
			return apperr.New(apperr.KindUnknown, op, err)
		}
		if share == nil {
			return apperr.NotFound(op, msgShareNotFound)
		}
		if share.CreatedBy != userID {
			return apperr.Forbidden(op, msgShareNotOwner)
		}
		if err := s.shareRepo.Delete(txCtx, shareID); err != nil {
			return apperr.New(apperr.KindUnknown, op, fmt.Errorf("delete share: %w", err))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to revoke share", "error", err, "share_id", shareID, "user_id", userID)
		return err
	}

	s.logger.Info("Share revoked", "share_id", shareID, "user_id", userID)
	return nil
}

// ListMine returns the shares created by userID, newest first
func (s *shareServiceImpl) ListMine(ctx context.Context, userID string) ([]*entity.InvoiceShare, error) {
	shares, err := s.shareRepo.ListByCreator(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list shares", "error", err, "user_id", userID)
		return nil, apperr.New(apperr.KindUnknown, "share.list", err)
	}
	return shares, nil
}

// PurgeExpired deletes every share whose expiry has passed
func (s *shareServiceImpl) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.shareRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired shares: %w", err)
	}
	if n > 0 {
		s.logger.Info("Expired shares purged", "count", n)
	}
	return n, nil
}

// newShareToken returns a random v4 UUID without dashes.
func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
