package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// Mock gateways
type mockInvoiceGateway struct {
	listFunc    func(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error)
	getByIDFunc func(ctx context.Context, id string) (*entity.Invoice, error)
	createFunc  func(ctx context.Context, draft entity.InvoiceDraft, createdBy string) (*entity.Invoice, error)
	updateFunc  func(ctx context.Context, id string, patch entity.InvoicePatch) (*entity.Invoice, error)
	deleteFunc  func(ctx context.Context, id string) error

	getCalls int
}

func (m *mockInvoiceGateway) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.Invoice{}, nil
}

func (m *mockInvoiceGateway) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	m.getCalls++
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Invoice{ID: id, Status: entity.StatusDraft, Items: []entity.InvoiceItem{}}, nil
}

func (m *mockInvoiceGateway) Create(ctx context.Context, draft entity.InvoiceDraft, createdBy string) (*entity.Invoice, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, draft, createdBy)
	}
	return &entity.Invoice{ID: "INV-2026-0001", Title: draft.Title, Status: entity.StatusDraft, TotalAmount: entity.TotalOf(draft.Items)}, nil
}

func (m *mockInvoiceGateway) Update(ctx context.Context, id string, patch entity.InvoicePatch) (*entity.Invoice, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, patch)
	}
	return &entity.Invoice{ID: id}, nil
}

func (m *mockInvoiceGateway) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockUserGateway struct {
	findByEmailFunc func(ctx context.Context, email string) (*entity.UserCredentials, error)
	getByIDFunc     func(ctx context.Context, id string) (*entity.User, error)
}

func (m *mockUserGateway) FindByEmail(ctx context.Context, email string) (*entity.UserCredentials, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserGateway) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

// mockShareRepo keeps shares in memory
type mockShareRepo struct {
	mu     sync.Mutex
	shares map[string]*entity.InvoiceShare

	createErr error
}

func newMockShareRepo() *mockShareRepo {
	return &mockShareRepo{shares: make(map[string]*entity.InvoiceShare)}
}

func (m *mockShareRepo) Create(ctx context.Context, share *entity.InvoiceShare) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares[share.ID] = share
	return nil
}

func (m *mockShareRepo) GetByID(ctx context.Context, id string) (*entity.InvoiceShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shares[id], nil
}

func (m *mockShareRepo) GetByToken(ctx context.Context, token string) (*entity.InvoiceShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shares {
		if s.Token == token {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockShareRepo) ListByCreator(ctx context.Context, createdBy string) ([]*entity.InvoiceShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*entity.InvoiceShare{}
	for _, s := range m.shares {
		if s.CreatedBy == createdBy {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockShareRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shares[id]; !ok {
		return fmt.Errorf("share %s not found", id)
	}
	delete(m.shares, id)
	return nil
}

func (m *mockShareRepo) DeleteByInvoiceID(ctx context.Context, invoiceID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.shares {
		if s.InvoiceID == invoiceID {
			delete(m.shares, id)
			n++
		}
	}
	return n, nil
}

func (m *mockShareRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.shares {
		if s.IsExpired(before) {
			delete(m.shares, id)
			n++
		}
	}
	return n, nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// mockCache is a map-backed InvoiceCache
type mockCache struct {
	items       map[string]*entity.Invoice
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{items: make(map[string]*entity.Invoice)}
}

func (m *mockCache) Get(ctx context.Context, id string) (*entity.Invoice, bool) {
	inv, ok := m.items[id]
	return inv, ok
}

func (m *mockCache) Set(ctx context.Context, invoice *entity.Invoice) {
	m.items[invoice.ID] = invoice
}

func (m *mockCache) Invalidate(ctx context.Context, id string) {
	delete(m.items, id)
	m.invalidated = append(m.invalidated, id)
}

type mockExporter struct {
	exportFunc func(invoice *entity.Invoice, w io.Writer) error
}

func (m *mockExporter) Export(invoice *entity.Invoice, w io.Writer) error {
	if m.exportFunc != nil {
		return m.exportFunc(invoice, w)
	}
	_, err := io.WriteString(w, invoice.ID)
	return err
}

func (m *mockExporter) ContentType() string   { return "text/plain" }
func (m *mockExporter) FileExtension() string { return ".txt" }

// mockLogger records warnings so tests can assert on them
type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.warnings = append(m.warnings, msg)
}
