package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
	"github.com/garyjia/notion-invoice/internal/infrastructure/persistence/sqlite"
)

// ErrShareNotFound is returned when deleting a share that does not exist
var ErrShareNotFound = errors.New("share not found")

const shareColumns = `id, invoice_id, token, created_by, expires_at, created_at`

// ShareRepository implements port.ShareRepository
type ShareRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *sql.DB, logger *zap.Logger) port.ShareRepository {
	return &ShareRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new share
func (r *ShareRepository) Create(ctx context.Context, share *entity.InvoiceShare) error {
	query := `
		INSERT INTO invoice_shares (` + shareColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var expiresAt sql.NullTime
	if share.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: share.ExpiresAt.UTC(), Valid: true}
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		share.ID,
		share.InvoiceID,
		share.Token,
		share.CreatedBy,
		expiresAt,
		share.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create share",
			zap.String("invoice_id", share.InvoiceID),
			zap.Error(err))
		return fmt.Errorf("failed to create share: %w", err)
	}

	return nil
}

// GetByID retrieves a share by ID
func (r *ShareRepository) GetByID(ctx context.Context, id string) (*entity.InvoiceShare, error) {
	query := `SELECT ` + shareColumns + ` FROM invoice_shares WHERE id = ?`

	share, err := scanShare(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get share by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	return share, nil
}

// GetByToken retrieves a share by its token
func (r *ShareRepository) GetByToken(ctx context.Context, token string) (*entity.InvoiceShare, error) {
	query := `SELECT ` + shareColumns + ` FROM invoice_shares WHERE token = ?`

	share, err := scanShare(r.getExecutor(ctx).QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get share by token", zap.Error(err))
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	return share, nil
}

// ListByCreator returns the shares created by a user, newest first
func (r *ShareRepository) ListByCreator(ctx context.Context, createdBy string) ([]*entity.InvoiceShare, error) {
	query := `
		SELECT ` + shareColumns + `
		FROM invoice_shares
		WHERE created_by = ?
		ORDER BY created_at DESC, id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, createdBy)
	if err != nil {
		r.logger.Error("Failed to list shares",
			zap.String("created_by", createdBy),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	shares := []*entity.InvoiceShare{}
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, share)
	}

	return shares, rows.Err()
}

// Delete removes a share by ID
func (r *ShareRepository) Delete(ctx context.Context, id string) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM invoice_shares WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete share", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete share: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("share %s: %w", id, ErrShareNotFound)
	}
	return nil
}

// DeleteByInvoiceID removes every share of an invoice
func (r *ShareRepository) DeleteByInvoiceID(ctx context.Context, invoiceID string) (int64, error) {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM invoice_shares WHERE invoice_id = ?`, invoiceID)
	if err != nil {
		r.logger.Error("Failed to delete shares of invoice",
			zap.String("invoice_id", invoiceID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to delete shares: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes shares whose expiry is at or before the given time
func (r *ShareRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM invoice_shares WHERE expires_at IS NOT NULL AND expires_at <= ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, before.UTC())
	if err != nil {
		r.logger.Error("Failed to delete expired shares", zap.Error(err))
		return 0, fmt.Errorf("failed to delete expired shares: %w", err)
	}
	return result.RowsAffected()
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShare(row rowScanner) (*entity.InvoiceShare, error) {
	var share entity.InvoiceShare
	var expiresAt sql.NullTime

	err := row.Scan(
		&share.ID,
		&share.InvoiceID,
		&share.Token,
		&share.CreatedBy,
		&expiresAt,
		&share.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		share.ExpiresAt = &t
	}
	return &share, nil
}

// getExecutor returns appropriate executor based on context
func (r *ShareRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.ShareRepository = (*ShareRepository)(nil)
