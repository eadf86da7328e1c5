package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
	"github.com/garyjia/notion-invoice/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Validation messages shown to the user as-is
const (
	msgTitleRequired        = "견적서 제목은 필수입니다."
	msgClientNameRequired   = "클라이언트 이름은 필수입니다."
	msgItemsRequired        = "최소 1개 이상의 항목이 필요합니다."
	msgItemTitleRequired    = "항목 제목은 필수입니다."
	msgItemDescRequired     = "항목 설명은 필수입니다."
	msgQuantityPositive     = "수량은 0보다 커야 합니다."
	msgUnitPriceNonNegative = "단가는 0 이상이어야 합니다."
	msgInvalidEmail         = "올바른 이메일 형식이 아닙니다."
	msgInvalidStatus        = "올바르지 않은 상태값입니다."
	msgInvoiceIDRequired    = "견적서 ID가 필요합니다."
	msgInvoiceNotFound      = "견적서를 찾을 수 없습니다."
)

// ExportFile is a rendered invoice document ready for download.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// InvoiceService manages invoices stored in the remote database
type InvoiceService interface {
	List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error)
	// Get returns nil without error when the invoice does not exist.
	Get(ctx context.Context, id string) (*entity.Invoice, error)
	Create(ctx context.Context, draft entity.InvoiceDraft, createdBy string) (*entity.Invoice, error)
	Update(ctx context.Context, id string, patch entity.InvoicePatch) (*entity.Invoice, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id string) (*ExportFile, error)
}

type invoiceServiceImpl struct {
	gateway   port.InvoiceGateway
	cache     port.InvoiceCache
	exporter  port.InvoiceExporter
	shareRepo port.ShareRepository
	logger    Logger
}

// NewInvoiceService creates a new InvoiceService.
// cache, exporter and shareRepo may be nil.
func NewInvoiceService(
	gateway port.InvoiceGateway,
	cache port.InvoiceCache,
	exporter port.InvoiceExporter,
	shareRepo port.ShareRepository,
	logger Logger,
) InvoiceService {
	if cache == nil {
		cache = noopCache{}
	}
	return &invoiceServiceImpl{
		gateway:   gateway,
		cache:     cache,
		exporter:  exporter,
		shareRepo: shareRepo,
		logger:    logger,
	}
}

// List returns invoices newest first without their items
func (s *invoiceServiceImpl) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperr.Validation("invoice.list", "status", msgInvalidStatus)
	}
	filter.ClientName = utils.SanitizeString(filter.ClientName)

	invoices, err := s.gateway.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list invoices", "error", err, "status", filter.Status)
		return nil, err
	}
	return invoices, nil
}

// Get retrieves an invoice with its items
func (s *invoiceServiceImpl) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation("invoice.get", "id", msgInvoiceIDRequired)
	}

	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}

	invoice, err := s.gateway.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get invoice", "error", err, "id", id)
		return nil, err
	}
	if invoice == nil {
		return nil, nil
	}

	s.cache.Set(ctx, invoice)
	return invoice, nil
}

// Create validates the draft and writes the invoice with its items
func (s *invoiceServiceImpl) Create(ctx context.Context, draft entity.InvoiceDraft, createdBy string) (*entity.Invoice, error) {
	draft = sanitizeDraft(draft)
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	invoice, err := s.gateway.Create(ctx, draft, createdBy)
	if err != nil {
		s.logger.Error("Failed to create invoice", "error", err, "title", draft.Title, "items", len(draft.Items))
		return nil, err
	}

	s.logger.Info("Invoice created", "id", invoice.ID, "total", invoice.TotalAmount, "items", len(invoice.Items))
	return invoice, nil
}

// Update applies a partial update. A supplied item list replaces the stored
// one and the total is recomputed from it.
func (s *invoiceServiceImpl) Update(ctx context.Context, id string, patch entity.InvoicePatch) (*entity.Invoice, error) {
	const op = "invoice.update"

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation(op, "id", msgInvoiceIDRequired)
	}
	patch = sanitizePatch(patch)
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	if patch.TotalAmount != nil && patch.Items == nil {
		s.logger.Warn("Ignoring total amount without items", "id", id, "total", *patch.TotalAmount)
	}
	patch.TotalAmount = nil
	if patch.Items != nil {
		total := entity.TotalOf(*patch.Items)
		patch.TotalAmount = &total
	}

	if patch.Status != nil && *patch.Status == entity.StatusDraft {
		s.warnOnReturnToDraft(ctx, id)
	}

	// A read racing the write can repopulate the cache, so drop the entry on
	// both sides of it. Anything slipping past the second drop expires with
	// the cache TTL.
	s.cache.Invalidate(ctx, id)
	invoice, err := s.gateway.Update(ctx, id, patch)
	s.cache.Invalidate(ctx, id)
	if err != nil {
		s.logger.Error("Failed to update invoice", "error", err, "id", id)
		return nil, err
	}

	s.logger.Info("Invoice updated", "id", id)
	return invoice, nil
}

// Delete archives the invoice and drops its share links
func (s *invoiceServiceImpl) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.Validation("invoice.delete", "id", msgInvoiceIDRequired)
	}

	s.cache.Invalidate(ctx, id)
	err := s.gateway.Delete(ctx, id)
	s.cache.Invalidate(ctx, id)
	if err != nil {
		s.logger.Error("Failed to delete invoice", "error", err, "id", id)
		return err
	}

	if s.shareRepo != nil {
		n, err := s.shareRepo.DeleteByInvoiceID(ctx, id)
		if err != nil {
			s.logger.Warn("Failed to remove share links of deleted invoice", "error", err, "id", id)
		} else if n > 0 {
			s.logger.Info("Removed share links of deleted invoice", "id", id, "count", n)
		}
	}

	s.logger.Info("Invoice deleted", "id", id)
	return nil
}

// Export renders the invoice with the configured exporter
func (s *invoiceServiceImpl) Export(ctx context.Context, id string) (*ExportFile, error) {
	const op = "invoice.export"

	if s.exporter == nil {
		return nil, apperr.New(apperr.KindUnknown, op, fmt.Errorf("no exporter configured"))
	}

	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperr.NotFound(op, msgInvoiceNotFound)
	}

	var buf bytes.Buffer
	if err := s.exporter.Export(invoice, &buf); err != nil {
		s.logger.Error("Failed to export invoice", "error", err, "id", invoice.ID)
		return nil, apperr.New(apperr.KindUnknown, op, err)
	}

	return &ExportFile{
		FileName:    invoice.ID + s.exporter.FileExtension(),
		ContentType: s.exporter.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// warnOnReturnToDraft logs transitions that move a sent invoice back to draft.
// Such transitions are accepted.
func (s *invoiceServiceImpl) warnOnReturnToDraft(ctx context.Context, id string) {
	current, err := s.Get(ctx, id)
	if err != nil || current == nil {
		return
	}
	if current.Status != entity.StatusDraft {
		s.logger.Warn("Invoice moved back to draft", "id", id, "from", current.Status)
	}
}

func sanitizeDraft(d entity.InvoiceDraft) entity.InvoiceDraft {
	d.Title = utils.SanitizeString(d.Title)
	d.Description = utils.SanitizeString(d.Description)
	d.ClientName = utils.SanitizeString(d.ClientName)
	d.ClientEmail = strings.TrimSpace(d.ClientEmail)
	d.Items = sanitizeItems(d.Items)
	return d
}

func sanitizePatch(p entity.InvoicePatch) entity.InvoicePatch {
	trim := func(v *string, fn func(string) string) *string {
		if v == nil {
			return nil
		}
		out := fn(*v)
		return &out
	}
	p.Title = trim(p.Title, utils.SanitizeString)
	p.Description = trim(p.Description, utils.SanitizeString)
	p.ClientName = trim(p.ClientName, utils.SanitizeString)
	p.ClientEmail = trim(p.ClientEmail, strings.TrimSpace)
	if p.Items != nil {
		items := sanitizeItems(*p.Items)
		p.Items = &items
	}
	return p
}

func sanitizeItems(items []entity.ItemInput) []entity.ItemInput {
	out := make([]entity.ItemInput, len(items))
	for i, it := range items {
		it.Title = utils.SanitizeString(it.Title)
		it.Description = utils.SanitizeString(it.Description)
		it.Category = utils.SanitizeString(it.Category)
		it.Unit = utils.SanitizeString(it.Unit)
		out[i] = it
	}
	return out
}

func validateDraft(d entity.InvoiceDraft) error {
	const op = "invoice.create"

	if d.Title == "" {
		return apperr.Validation(op, "title", msgTitleRequired)
	}
	if d.ClientName == "" {
		return apperr.Validation(op, "clientName", msgClientNameRequired)
	}
	if d.ClientEmail != "" {
		if err := utils.ValidateEmail(d.ClientEmail); err != nil {
			return apperr.Validation(op, "clientEmail", msgInvalidEmail)
		}
	}
	if len(d.Items) == 0 {
		return apperr.Validation(op, "items", msgItemsRequired)
	}
	return validateItems(op, d.Items)
}

func validatePatch(p entity.InvoicePatch) error {
	const op = "invoice.update"

	if p.Title != nil && *p.Title == "" {
		return apperr.Validation(op, "title", msgTitleRequired)
	}
	if p.ClientName != nil && *p.ClientName == "" {
		return apperr.Validation(op, "clientName", msgClientNameRequired)
	}
	if p.ClientEmail != nil && *p.ClientEmail != "" {
		if err := utils.ValidateEmail(*p.ClientEmail); err != nil {
			return apperr.Validation(op, "clientEmail", msgInvalidEmail)
		}
	}
	if p.Status != nil && !p.Status.IsValid() {
		return apperr.Validation(op, "status", msgInvalidStatus)
	}
	if p.Items != nil {
		if len(*p.Items) == 0 {
			return apperr.Validation(op, "items", msgItemsRequired)
		}
		return validateItems(op, *p.Items)
	}
	return nil
}

func validateItems(op string, items []entity.ItemInput) error {
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case it.Title == "":
			return apperr.Validation(op, field+".title", msgItemTitleRequired)
		case it.Description == "":
			return apperr.Validation(op, field+".description", msgItemDescRequired)
		case it.Quantity <= 0:
			return apperr.Validation(op, field+".quantity", msgQuantityPositive)
		case it.UnitPrice < 0:
			return apperr.Validation(op, field+".unitPrice", msgUnitPriceNonNegative)
		}
	}
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*entity.Invoice, bool) { return nil, false }
func (noopCache) Set(context.Context, *entity.Invoice)                {}
func (noopCache) Invalidate(context.Context, string)                  {}
