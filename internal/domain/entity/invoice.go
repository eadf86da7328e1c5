package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of a quote.
type InvoiceStatus string

// IsValid reports whether s is one of the known statuses.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Invoice is a quote addressed to a client, backed by one page in the
// invoices database. ID is the human-facing identifier (e.g. INV-2026-0412);
// PageID is the opaque id of the backing page.
type Invoice struct {
	ID          string        `json:"id"`
	PageID      string        `json:"pageId"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	ClientName  string        `json:"clientName"`
	ClientEmail string        `json:"clientEmail,omitempty"`
	Status      InvoiceStatus `json:"status"`
	TotalAmount float64       `json:"totalAmount"`
	Currency    string        `json:"currency"`
	Items       []InvoiceItem `json:"items"`
	CreatedBy   string        `json:"createdBy,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// InvoiceItem is one priced line of an invoice.
// InvoiceID holds the page id of the parent invoice.
type InvoiceItem struct {
	ID           string  `json:"id"`
	InvoiceID    string  `json:"invoiceId"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category,omitempty"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	UnitPrice    float64 `json:"unitPrice"`
	Subtotal     float64 `json:"subtotal"`
	DisplayOrder int     `json:"displayOrder"`
}

// ItemInput is a caller-supplied item. Subtotal is never taken from input.
type ItemInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
}

// InvoiceDraft is the input for creating an invoice.
type InvoiceDraft struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	ClientName  string      `json:"clientName"`
	ClientEmail string      `json:"clientEmail,omitempty"`
	Items       []ItemInput `json:"items"`
}

// InvoicePatch is a partial update. Nil fields are left untouched.
// An empty Description or ClientEmail clears the stored value.
// A non-nil Items replaces the whole item list.
type InvoicePatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	ClientName  *string        `json:"clientName,omitempty"`
	ClientEmail *string        `json:"clientEmail,omitempty"`
	Status      *InvoiceStatus `json:"status,omitempty"`
	TotalAmount *float64       `json:"totalAmount,omitempty"`
	Items       *[]ItemInput   `json:"items,omitempty"`
}

// IsEmpty reports whether the patch carries no field at all.
func (p InvoicePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.ClientName == nil &&
		p.ClientEmail == nil && p.Status == nil && p.TotalAmount == nil && p.Items == nil
}

// InvoiceFilter narrows an invoice listing.
type InvoiceFilter struct {
	Status     InvoiceStatus
	ClientName string
}

// Subtotal returns quantity × unit price. The product is exact in decimal;
// no rounding is applied.
func Subtotal(quantity, unitPrice float64) float64 {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).InexactFloat64()
}

// TotalOf sums the subtotals of the given inputs.
func TotalOf(items []ItemInput) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Quantity).Mul(decimal.NewFromFloat(it.UnitPrice)))
	}
	return total.InexactFloat64()
}

// ItemsTotal sums the subtotals of already-materialised items.
func ItemsTotal(items []InvoiceItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Subtotal))
	}
	return total.InexactFloat64()
}
