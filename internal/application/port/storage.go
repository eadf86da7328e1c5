package port

import (
	"context"
	"io"

	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// InvoiceCache is a best-effort read cache for fully loaded invoices.
// Implementations swallow their own failures; a miss is always safe.
type InvoiceCache interface {
	Get(ctx context.Context, id string) (*entity.Invoice, bool)
	Set(ctx context.Context, invoice *entity.Invoice)
	Invalidate(ctx context.Context, id string)
}

// InvoiceExporter renders an invoice into a downloadable document
type InvoiceExporter interface {
	Export(invoice *entity.Invoice, w io.Writer) error
	ContentType() string
	FileExtension() string
}
