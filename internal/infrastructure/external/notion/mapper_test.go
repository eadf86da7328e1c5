package notion

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

func invoicePage() *Page {
	return &Page{
		ID:          "page-1",
		CreatedTime: "2026-01-01T00:00:00Z",
		Properties: map[string]PropertyValue{
			PropInvoiceID:   titleValue("INV-2026-0412"),
			PropTitle:       richValue("홈페이지 리뉴얼"),
			PropDescription: richValue("반응형 포함"),
			PropClientName:  richValue("ACME"),
			PropClientEmail: {Type: TypeEmail, Email: strPtr("billing@acme.test")},
			PropStatus:      {Type: TypeSelect, Select: &SelectOption{Name: "sent"}},
			PropTotalAmount: {Type: TypeNumber, Number: numPtr(3300000)},
			PropCreatedBy:   richValue("user-1"),
			PropCreatedAt:   {Type: TypeDate, Date: &DateValue{Start: "2026-02-01T10:00:00Z"}},
			PropUpdatedAt:   {Type: TypeDate, Date: &DateValue{Start: "2026-02-02"}},
		},
	}
}

func TestPageToInvoice(t *testing.T) {
	inv, err := PageToInvoice(invoicePage())
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-0412", inv.ID)
	assert.Equal(t, "page-1", inv.PageID)
	assert.Equal(t, "홈페이지 리뉴얼", inv.Title)
	assert.Equal(t, "반응형 포함", inv.Description)
	assert.Equal(t, "ACME", inv.ClientName)
	assert.Equal(t, "billing@acme.test", inv.ClientEmail)
	assert.Equal(t, entity.StatusSent, inv.Status)
	assert.Equal(t, 3300000.0, inv.TotalAmount)
	assert.Equal(t, entity.DefaultCurrency, inv.Currency)
	assert.Equal(t, "user-1", inv.CreatedBy)
	assert.True(t, inv.CreatedAt.Equal(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, inv.UpdatedAt.Equal(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)))
	assert.NotNil(t, inv.Items)
	assert.Empty(t, inv.Items)
}

func TestPageToInvoice_Defaults(t *testing.T) {
	page := &Page{ID: "page-2", LastEditedTime: "2026-04-05T06:07:08Z", Properties: map[string]PropertyValue{}}

	before := time.Now()
	inv, err := PageToInvoice(page)
	require.NoError(t, err)

	assert.Equal(t, "page-2", inv.ID, "falls back to the page id")
	assert.Equal(t, entity.StatusDraft, inv.Status)
	assert.Equal(t, "", inv.Title)
	assert.Equal(t, 0.0, inv.TotalAmount)
	assert.False(t, inv.CreatedAt.Before(before), "missing creation time falls back to now")
	assert.True(t, inv.UpdatedAt.Equal(time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)))
}

func TestPageToInvoice_UnknownStatusIsDraft(t *testing.T) {
	page := invoicePage()
	page.Properties[PropStatus] = PropertyValue{Type: TypeSelect, Select: &SelectOption{Name: "archived"}}

	inv, err := PageToInvoice(page)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, inv.Status)
}

func TestMappers_MissingProperties(t *testing.T) {
	page := &Page{ID: "no-props"}

	_, err := PageToInvoice(page)
	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "no-props", me.PageID)
	assert.True(t, errors.Is(err, ErrMissingProperties))

	_, err = PageToInvoiceItem(page)
	assert.ErrorIs(t, err, ErrMissingProperties)

	_, err = PageToUser(page)
	assert.ErrorIs(t, err, ErrMissingProperties)

	_, err = PageToInvoice(nil)
	assert.ErrorIs(t, err, ErrMissingProperties)
}

func TestPageToInvoiceItem(t *testing.T) {
	page := &Page{
		ID: "item-1",
		Properties: map[string]PropertyValue{
			PropItemID:       titleValue("INV-2026-0412-1"),
			PropTitle:        richValue("디자인"),
			PropDescription:  richValue("메인 페이지 시안"),
			PropQuantity:     {Type: TypeNumber, Number: numPtr(2)},
			PropUnit:         {Type: TypeSelect, Select: &SelectOption{Name: "페이지"}},
			PropUnitPrice:    {Type: TypeNumber, Number: numPtr(500000)},
			PropSubtotal:     {Type: TypeNumber, Number: numPtr(1000000)},
			PropDisplayOrder: {Type: TypeNumber, Number: numPtr(1)},
			PropCategory:     {Type: TypeSelect, Select: &SelectOption{Name: "design"}},
			PropInvoices:     {Type: TypeRelation, Relation: []Reference{{ID: "page-1"}, {ID: "page-9"}}},
		},
	}

	item, err := PageToInvoiceItem(page)
	require.NoError(t, err)

	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, "page-1", item.InvoiceID, "first relation wins")
	assert.Equal(t, "디자인", item.Title)
	assert.Equal(t, "메인 페이지 시안", item.Description)
	assert.Equal(t, 2.0, item.Quantity)
	assert.Equal(t, "페이지", item.Unit)
	assert.Equal(t, 500000.0, item.UnitPrice)
	assert.Equal(t, 1000000.0, item.Subtotal)
	assert.Equal(t, 1, item.DisplayOrder)
	assert.Equal(t, "design", item.Category)
}

func TestPageToInvoiceItem_Defaults(t *testing.T) {
	item, err := PageToInvoiceItem(&Page{ID: "item-2", Properties: map[string]PropertyValue{}})
	require.NoError(t, err)
	assert.Equal(t, "", item.InvoiceID)
	assert.Equal(t, entity.DefaultUnit, item.Unit)
	assert.Equal(t, 0, item.DisplayOrder)
}

func TestPageToUser(t *testing.T) {
	page := &Page{
		ID:             "user-1",
		CreatedTime:    "2025-12-01T00:00:00Z",
		LastEditedTime: "2026-01-01T00:00:00Z",
		Properties: map[string]PropertyValue{
			PropName:     titleValue("관리자"),
			PropEmail:    {Type: TypeEmail, Email: strPtr("admin@example.com")},
			PropPassword: richValue("hunter2"),
			PropRole:     {Type: TypeSelect, Select: &SelectOption{Name: "admin"}},
		},
	}

	user, err := PageToUser(page)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "관리자", user.Name)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.Equal(t, entity.RoleAdmin, user.Role)
	assert.True(t, user.CreatedAt.Equal(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "hunter2", UserSecret(page))

	delete(page.Properties, PropRole)
	user, err = PageToUser(page)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleClient, user.Role, "role defaults to client")
}

func TestInvoiceCreateProperties_OmitsEmptyOptionals(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	props := InvoiceCreateProperties(&entity.Invoice{
		ID: "INV-2026-0001", Title: "t", ClientName: "c", Status: entity.StatusDraft,
		TotalAmount: 10, Currency: entity.DefaultCurrency, CreatedAt: now, UpdatedAt: now,
	})

	assert.NotContains(t, props, PropDescription)
	assert.NotContains(t, props, PropClientEmail)
	assert.NotContains(t, props, PropCreatedBy)
	assert.Contains(t, props, PropInvoiceID)
	assert.Equal(t, SelectProp("draft"), props[PropStatus])
}

func TestInvoiceCreateProperties_CreatedAtIsDateOnly(t *testing.T) {
	created := time.Date(2026, 6, 1, 18, 45, 12, 0, time.UTC)
	props := InvoiceCreateProperties(&entity.Invoice{
		ID: "INV-2026-0001", Title: "t", ClientName: "c", Status: entity.StatusDraft,
		Currency: entity.DefaultCurrency, CreatedAt: created, UpdatedAt: created,
	})

	assert.Equal(t, map[string]any{"date": map[string]any{"start": "2026-06-01"}}, props[PropCreatedAt])
	assert.Equal(t, DateProp(created), props[PropUpdatedAt])
}

func TestInvoicePatchProperties(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	empty := ""
	title := "새 제목"
	status := entity.StatusAccepted

	props := InvoicePatchProperties(entity.InvoicePatch{
		Title:       &title,
		ClientName:  &empty,
		Description: &empty,
		ClientEmail: &empty,
		Status:      &status,
	}, now)

	b, err := json.Marshal(props)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Updated At": {"date": {"start": "2026-06-01T12:00:00Z"}},
		"Title": {"rich_text": [{"text": {"content": "새 제목"}}]},
		"Description": {"rich_text": []},
		"Client Email": {"email": null},
		"Status": {"select": {"name": "accepted"}}
	}`, string(b))
}

func TestInvoicePatchProperties_EmptyPatchOnlyTouchesUpdatedAt(t *testing.T) {
	props := InvoicePatchProperties(entity.InvoicePatch{}, time.Now())
	assert.Len(t, props, 1)
	assert.Contains(t, props, PropUpdatedAt)
}

func TestItemProperties(t *testing.T) {
	props := ItemProperties("INV-2026-0001", "page-1", 2, entity.ItemInput{
		Title: "개발", Description: "API", Quantity: 3, UnitPrice: 1000.5,
	})

	b, err := json.Marshal(props)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Item ID": {"title": [{"text": {"content": "INV-2026-0001-2"}}]},
		"Title": {"rich_text": [{"text": {"content": "개발"}}]},
		"Description": {"rich_text": [{"text": {"content": "API"}}]},
		"Quantity": {"number": 3},
		"Unit": {"rich_text": [{"text": {"content": "식"}}]},
		"Unit Price": {"number": 1000.5},
		"Subtotal": {"number": 3001.5},
		"Display Order": {"number": 2},
		"Invoices": {"relation": [{"id": "page-1"}]}
	}`, string(b))
}
