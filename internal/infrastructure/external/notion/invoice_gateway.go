package notion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
	"github.com/garyjia/notion-invoice/internal/infrastructure/retry"
)

const invoiceNotFoundMessage = "견적서를 찾을 수 없습니다."

// PartialWriteError reports an invoice whose page was written but whose item
// pages were only partly written. The remote store is left as is.
type PartialWriteError struct {
	InvoiceID string
	PageID    string
	Written   int
	Total     int
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("invoice %s written with %d of %d items: %v", e.InvoiceID, e.Written, e.Total, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// InvoiceGateway implements port.InvoiceGateway on two Notion databases:
// one page per invoice and one page per item, linked by relation.
type InvoiceGateway struct {
	client     *Client
	invoicesDB string
	itemsDB    string
	policy     retry.Policy
	classifier port.ErrorClassifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewInvoiceGateway creates a new invoice gateway
func NewInvoiceGateway(
	client *Client,
	invoicesDB string,
	itemsDB string,
	policy retry.Policy,
	classifier port.ErrorClassifier,
	logger *zap.Logger,
) *InvoiceGateway {
	if classifier == nil {
		classifier = NewClassifier()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceGateway{
		client:     client,
		invoicesDB: invoicesDB,
		itemsDB:    itemsDB,
		policy:     policy,
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns invoices sorted by creation time, newest first.
func (g *InvoiceGateway) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	const op = "invoice.list"

	req := QueryRequest{
		Filter: listFilter(filter),
		Sorts:  []Sort{{Property: PropCreatedAt, Direction: Descending}},
	}
	pages, err := g.query(ctx, op, g.invoicesDB, req)
	if err != nil {
		return nil, Normalize(op, err, g.classifier)
	}

	invoices := make([]*entity.Invoice, 0, len(pages))
	for i := range pages {
		inv, err := PageToInvoice(&pages[i])
		if err != nil {
			g.logger.Warn("Skipping unmappable invoice page", zap.String("page_id", pages[i].ID), zap.Error(err))
			continue
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// listFilter returns nil, a single filter, or an AND of several.
func listFilter(f entity.InvoiceFilter) *Filter {
	var filters []Filter
	if f.Status != "" {
		filters = append(filters, Filter{Property: PropStatus, Select: &Condition{Equals: string(f.Status)}})
	}
	if f.ClientName != "" {
		filters = append(filters, Filter{Property: PropClientName, Text: &Condition{Contains: f.ClientName}})
	}
	switch len(filters) {
	case 0:
		return nil
	case 1:
		return &filters[0]
	default:
		return &Filter{And: filters}
	}
}

// GetByID returns the invoice with its items ordered by display order, or
// nil when no invoice carries the id.
func (g *InvoiceGateway) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	const op = "invoice.get"

	page, err := g.findInvoicePage(ctx, op, id)
	if err != nil {
		return nil, Normalize(op, err, g.classifier)
	}
	if page == nil {
		return nil, nil
	}

	inv, err := PageToInvoice(page)
	if err != nil {
		return nil, Normalize(op, err, g.classifier)
	}

	itemPages, err := g.itemPages(ctx, op, page.ID)
	if err != nil {
		return nil, Normalize(op, err, g.classifier)
	}
	for i := range itemPages {
		item, err := PageToInvoiceItem(&itemPages[i])
		if err != nil {
			g.logger.Warn("Skipping unmappable item page",
				zap.String("invoice_id", id),
				zap.String("page_id", itemPages[i].ID),
				zap.Error(err))
			continue
		}
		inv.Items = append(inv.Items, *item)
	}
	return inv, nil
}

// Create writes the invoice page and then each item page in input order.
func (g *InvoiceGateway) Create(ctx context.Context, draft entity.InvoiceDraft, createdBy string) (*entity.Invoice, error) {
	const op = "invoice.create"

	now := g.now()
	inv := &entity.Invoice{
		ID:          g.nextID(now),
		Title:       draft.Title,
		Description: draft.Description,
		ClientName:  draft.ClientName,
		ClientEmail: draft.ClientEmail,
		Status:      entity.StatusDraft,
		TotalAmount: entity.TotalOf(draft.Items),
		Currency:    entity.DefaultCurrency,
		Items:       []entity.InvoiceItem{},
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	page, err := g.createPage(ctx, op, g.invoicesDB, InvoiceCreateProperties(inv))
	if err != nil {
		return nil, Normalize(op, err, g.classifier)
	}
	inv.PageID = page.ID

	items, err := g.writeItems(ctx, op, inv.ID, page.ID, draft.Items)
	inv.Items = items
	if err != nil {
		g.logger.Error("Invoice items partially written",
			zap.String("invoice_id", inv.ID),
			zap.Int("written", len(items)),
			zap.Int("total", len(draft.Items)),
			zap.Error(err))
		return nil, Normalize(op, &PartialWriteError{
			InvoiceID: inv.ID,
			PageID:    page.ID,
			Written:   len(items),
			Total:     len(draft.Items),
			Err:       err,
		}, g.classifier)
	}

	g.logger.Info("Invoice created",
		zap.String("invoice_id", inv.ID),
		zap.String("page_id", inv.PageID),
		zap.Int("items", len(inv.Items)))
	return inv, nil
}

// Update writes the present fields of patch, replaces the item list when one
// is supplied, and returns the re-read invoice.
func (g *InvoiceGateway) Update(ctx context.Context, id string, patch entity.InvoicePatch) (*entity.Invoice, error) {
	const op = "invoice.update"

	page, err := g.findInvoicePage(ctx, op, id)
	if err != nil {
		return nil, Normalize(op, err, g.classifier)
	}
	if page == nil {
		return nil, apperr.NotFound(op, invoiceNotFoundMessage)
	}

	props := InvoicePatchProperties(patch, g.now())
	if _, err := retry.Do(ctx, g.policy, g.logger, op, func(ctx context.Context) (*Page, error) {
		return g.client.UpdatePage(ctx, page.ID, props)
	}); err != nil {
		return nil, Normalize(op, err, g.classifier)
	}

	if patch.Items != nil {
		if err := g.replaceItems(ctx, op, id, page.ID, *patch.Items); err != nil {
			return nil, Normalize(op, err, g.classifier)
		}
	}

	inv, err := g.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperr.NotFound(op, invoiceNotFoundMessage)
	}
	return inv, nil
}

// Delete archives the invoice page and then its item pages.
func (g *InvoiceGateway) Delete(ctx context.Context, id string) error {
	const op = "invoice.delete"

	page, err := g.findInvoicePage(ctx, op, id)
	if err != nil {
		return Normalize(op, err, g.classifier)
	}
	if page == nil {
		return apperr.NotFound(op, invoiceNotFoundMessage)
	}

	if err := g.archive(ctx, op, page.ID); err != nil {
		return Normalize(op, err, g.classifier)
	}

	itemPages, err := g.itemPages(ctx, op, page.ID)
	if err != nil {
		g.logger.Warn("Invoice archived but items could not be listed", zap.String("invoice_id", id), zap.Error(err))
		return nil
	}
	for _, p := range itemPages {
		if err := g.archive(ctx, op, p.ID); err != nil {
			g.logger.Warn("Failed to archive item page",
				zap.String("invoice_id", id),
				zap.String("page_id", p.ID),
				zap.Error(err))
		}
	}

	g.logger.Info("Invoice archived", zap.String("invoice_id", id), zap.Int("items", len(itemPages)))
	return nil
}

func (g *InvoiceGateway) replaceItems(ctx context.Context, op, invoiceID, pageID string, inputs []entity.ItemInput) error {
	existing, err := g.itemPages(ctx, op, pageID)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if err := g.archive(ctx, op, p.ID); err != nil {
			return fmt.Errorf("archive item %s: %w", p.ID, err)
		}
	}

	written, err := g.writeItems(ctx, op, invoiceID, pageID, inputs)
	if err != nil {
		return &PartialWriteError{
			InvoiceID: invoiceID,
			PageID:    pageID,
			Written:   len(written),
			Total:     len(inputs),
			Err:       err,
		}
	}
	return nil
}

// writeItems creates one page per input, sequentially. It returns the items
// written so far together with the first error.
func (g *InvoiceGateway) writeItems(ctx context.Context, op, invoiceID, pageID string, inputs []entity.ItemInput) ([]entity.InvoiceItem, error) {
	items := make([]entity.InvoiceItem, 0, len(inputs))
	for i, in := range inputs {
		n := i + 1
		itemPage, err := g.createPage(ctx, op, g.itemsDB, ItemProperties(invoiceID, pageID, n, in))
		if err != nil {
			return items, fmt.Errorf("item %d: %w", n, err)
		}

		unit := in.Unit
		if unit == "" {
			unit = entity.DefaultUnit
		}
		items = append(items, entity.InvoiceItem{
			ID:           itemPage.ID,
			InvoiceID:    pageID,
			Title:        in.Title,
			Description:  in.Description,
			Category:     in.Category,
			Quantity:     in.Quantity,
			Unit:         unit,
			UnitPrice:    in.UnitPrice,
			Subtotal:     entity.Subtotal(in.Quantity, in.UnitPrice),
			DisplayOrder: n,
		})
	}
	return items, nil
}

func (g *InvoiceGateway) findInvoicePage(ctx context.Context, op, id string) (*Page, error) {
	req := QueryRequest{
		Filter: &Filter{Property: PropInvoiceID, Text: &Condition{Equals: id}},
	}
	pages, err := g.query(ctx, op, g.invoicesDB, req)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return &pages[0], nil
}

func (g *InvoiceGateway) itemPages(ctx context.Context, op, invoicePageID string) ([]Page, error) {
	req := QueryRequest{
		Filter: &Filter{Property: PropInvoices, Relation: &Condition{Contains: invoicePageID}},
		Sorts:  []Sort{{Property: PropDisplayOrder, Direction: Ascending}},
	}
	return g.query(ctx, op, g.itemsDB, req)
}

func (g *InvoiceGateway) query(ctx context.Context, op, databaseID string, req QueryRequest) ([]Page, error) {
	return retry.Do(ctx, g.policy, g.logger, op, func(ctx context.Context) ([]Page, error) {
		return g.client.QueryDatabase(ctx, databaseID, req)
	})
}

func (g *InvoiceGateway) archive(ctx context.Context, op, pageID string) error {
	_, err := retry.Do(ctx, g.policy, g.logger, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.client.ArchivePage(ctx, pageID)
	})
	return err
}

// createPage retries only failures where the request cannot have been
// applied, so a retried create never duplicates a page.
func (g *InvoiceGateway) createPage(ctx context.Context, op, databaseID string, props Properties) (*Page, error) {
	p := g.policy
	p.ShouldRetry = notApplied
	return retry.Do(ctx, p, g.logger, op, func(ctx context.Context) (*Page, error) {
		return g.client.CreatePage(ctx, databaseID, props)
	})
}

func notApplied(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// nextID builds INV-<year>-<last four digits of the unix millisecond clock>.
func (g *InvoiceGateway) nextID(now time.Time) string {
	return fmt.Sprintf("%s-%d-%04d", entity.InvoiceIDPrefix, now.Year(), now.UnixMilli()%10000)
}

var _ port.InvoiceGateway = (*InvoiceGateway)(nil)
