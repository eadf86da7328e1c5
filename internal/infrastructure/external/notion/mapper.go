package notion

import (
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// Invoice database properties
const (
	PropInvoiceID   = "ID"
	PropTitle       = "Title"
	PropDescription = "Description"
	PropClientName  = "Client Name"
	PropClientEmail = "Client Email"
	PropStatus      = "Status"
	PropTotalAmount = "Total Amount"
	PropCurrency    = "Currency"
	PropCreatedBy   = "Created By"
	PropCreatedAt   = "Created At"
	PropUpdatedAt   = "Updated At"
)

// Item database properties
const (
	PropItemID       = "Item ID"
	PropCategory     = "Category"
	PropQuantity     = "Quantity"
	PropUnit         = "Unit"
	PropUnitPrice    = "Unit Price"
	PropSubtotal     = "Subtotal"
	PropDisplayOrder = "Display Order"
	PropInvoices     = "Invoices"
)

// User database properties
const (
	PropName     = "Name"
	PropEmail    = "Email"
	PropPassword = "Password"
	PropRole     = "Role"
)

// ErrMissingProperties is wrapped by MappingError.
var ErrMissingProperties = errors.New("page has no properties")

// MappingError reports a page that cannot be mapped to an entity.
type MappingError struct {
	Entity string
	PageID string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map page %q to %s: %v", e.PageID, e.Entity, ErrMissingProperties)
}

func (e *MappingError) Unwrap() error {
	return ErrMissingProperties
}

func requireProperties(page *Page, entityName string) error {
	if page == nil {
		return &MappingError{Entity: entityName}
	}
	if page.Properties == nil {
		return &MappingError{Entity: entityName, PageID: page.ID}
	}
	return nil
}

// pageTime resolves a timestamp from a date property, then the page's own
// metadata, then now.
func pageTime(p *PropertyValue, meta string, now time.Time) time.Time {
	if t := ExtractDate(p); t != nil {
		return *t
	}
	if meta != "" {
		if t := parseTime(meta); t != nil {
			return *t
		}
	}
	return now
}

// PageToInvoice maps an invoice page. Items are left empty.
func PageToInvoice(page *Page) (*entity.Invoice, error) {
	if err := requireProperties(page, "invoice"); err != nil {
		return nil, err
	}
	now := time.Now()

	inv := &entity.Invoice{
		ID:          ExtractText(Property(page, PropInvoiceID)),
		PageID:      page.ID,
		Title:       ExtractText(Property(page, PropTitle)),
		Description: ExtractText(Property(page, PropDescription)),
		ClientName:  ExtractText(Property(page, PropClientName)),
		ClientEmail: ExtractEmail(Property(page, PropClientEmail)),
		Status:      entity.StatusDraft,
		TotalAmount: ExtractNumber(Property(page, PropTotalAmount)),
		Currency:    entity.DefaultCurrency,
		Items:       []entity.InvoiceItem{},
		CreatedBy:   ExtractText(Property(page, PropCreatedBy)),
		CreatedAt:   pageTime(Property(page, PropCreatedAt), page.CreatedTime, now),
		UpdatedAt:   pageTime(Property(page, PropUpdatedAt), page.LastEditedTime, now),
	}
	if inv.ID == "" {
		inv.ID = page.ID
	}
	if s := ExtractSelect(Property(page, PropStatus)); s != nil && entity.InvoiceStatus(*s).IsValid() {
		inv.Status = entity.InvoiceStatus(*s)
	}
	if c := ExtractSelect(Property(page, PropCurrency)); c != nil && *c != "" {
		inv.Currency = *c
	}
	return inv, nil
}

// PageToInvoiceItem maps an item page. InvoiceID is the first related page.
func PageToInvoiceItem(page *Page) (*entity.InvoiceItem, error) {
	if err := requireProperties(page, "invoice item"); err != nil {
		return nil, err
	}

	item := &entity.InvoiceItem{
		ID:           page.ID,
		Title:        ExtractText(Property(page, PropTitle)),
		Description:  ExtractText(Property(page, PropDescription)),
		Quantity:     ExtractNumber(Property(page, PropQuantity)),
		Unit:         ExtractTextOrSelect(Property(page, PropUnit)),
		UnitPrice:    ExtractNumber(Property(page, PropUnitPrice)),
		Subtotal:     ExtractNumber(Property(page, PropSubtotal)),
		DisplayOrder: int(ExtractNumber(Property(page, PropDisplayOrder))),
	}
	if rel := ExtractRelation(Property(page, PropInvoices)); len(rel) > 0 {
		item.InvoiceID = rel[0]
	}
	if c := ExtractSelect(Property(page, PropCategory)); c != nil {
		item.Category = *c
	}
	if item.Unit == "" {
		item.Unit = entity.DefaultUnit
	}
	return item, nil
}

// PageToUser maps a user page.
func PageToUser(page *Page) (*entity.User, error) {
	if err := requireProperties(page, "user"); err != nil {
		return nil, err
	}
	now := time.Now()

	user := &entity.User{
		ID:        page.ID,
		Email:     ExtractEmail(Property(page, PropEmail)),
		Name:      ExtractText(Property(page, PropName)),
		Role:      entity.RoleClient,
		CreatedAt: pageTime(nil, page.CreatedTime, now),
		UpdatedAt: pageTime(nil, page.LastEditedTime, now),
	}
	if r := ExtractSelect(Property(page, PropRole)); r != nil && entity.Role(*r).IsValid() {
		user.Role = entity.Role(*r)
	}
	return user, nil
}

// UserSecret returns the stored password secret of a user page.
func UserSecret(page *Page) string {
	return ExtractText(Property(page, PropPassword))
}

// InvoiceCreateProperties builds the page payload for a new invoice.
// Optional fields that are empty are omitted.
func InvoiceCreateProperties(inv *entity.Invoice) Properties {
	props := Properties{
		PropInvoiceID:   TitleProp(inv.ID),
		PropTitle:       RichTextProp(inv.Title),
		PropClientName:  RichTextProp(inv.ClientName),
		PropStatus:      SelectProp(string(inv.Status)),
		PropTotalAmount: NumberProp(inv.TotalAmount),
		PropCurrency:    SelectProp(inv.Currency),
		PropCreatedAt:   DayProp(inv.CreatedAt),
		PropUpdatedAt:   DateProp(inv.UpdatedAt),
	}
	if inv.Description != "" {
		props[PropDescription] = RichTextProp(inv.Description)
	}
	if inv.ClientEmail != "" {
		props[PropClientEmail] = EmailProp(inv.ClientEmail)
	}
	if inv.CreatedBy != "" {
		props[PropCreatedBy] = RichTextProp(inv.CreatedBy)
	}
	return props
}

// InvoicePatchProperties builds the payload for a partial update. Only
// present fields are written; Updated At is always set to now.
func InvoicePatchProperties(patch entity.InvoicePatch, now time.Time) Properties {
	props := Properties{
		PropUpdatedAt: DateProp(now),
	}
	if patch.Title != nil && *patch.Title != "" {
		props[PropTitle] = RichTextProp(*patch.Title)
	}
	if patch.ClientName != nil && *patch.ClientName != "" {
		props[PropClientName] = RichTextProp(*patch.ClientName)
	}
	if patch.Description != nil {
		props[PropDescription] = RichTextProp(*patch.Description)
	}
	if patch.ClientEmail != nil {
		props[PropClientEmail] = EmailProp(*patch.ClientEmail)
	}
	if patch.Status != nil {
		props[PropStatus] = SelectProp(string(*patch.Status))
	}
	if patch.TotalAmount != nil {
		props[PropTotalAmount] = NumberProp(*patch.TotalAmount)
	}
	return props
}

// ItemProperties builds the page payload for the n-th (1-based) item of an
// invoice. invoiceID is the logical id, invoicePageID the parent page.
func ItemProperties(invoiceID, invoicePageID string, n int, in entity.ItemInput) Properties {
	unit := in.Unit
	if unit == "" {
		unit = entity.DefaultUnit
	}
	props := Properties{
		PropItemID:       TitleProp(fmt.Sprintf("%s-%d", invoiceID, n)),
		PropTitle:        RichTextProp(in.Title),
		PropDescription:  RichTextProp(in.Description),
		PropQuantity:     NumberProp(in.Quantity),
		PropUnit:         RichTextProp(unit),
		PropUnitPrice:    NumberProp(in.UnitPrice),
		PropSubtotal:     NumberProp(entity.Subtotal(in.Quantity, in.UnitPrice)),
		PropDisplayOrder: NumberProp(float64(n)),
		PropInvoices:     RelationProp(invoicePageID),
	}
	if in.Category != "" {
		props[PropCategory] = SelectProp(in.Category)
	}
	return props
}
