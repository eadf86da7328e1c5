package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

func TestXLSXExporter_Export(t *testing.T) {
	inv := &entity.Invoice{
		ID:          "INV-2026-0412",
		Title:       "Website redesign",
		ClientName:  "ACME",
		ClientEmail: "billing@acme.test",
		Status:      entity.StatusSent,
		TotalAmount: 1500000,
		CreatedAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Items: []entity.InvoiceItem{
			{Title: "Design", Description: "Main page", Quantity: 2, Unit: "식", UnitPrice: 500000, Subtotal: 1000000, DisplayOrder: 1},
			{Title: "Build", Description: "Frontend", Category: "dev", Quantity: 1, Unit: "식", UnitPrice: 500000, Subtotal: 500000, DisplayOrder: 2},
		},
	}

	e := NewXLSXExporter(zap.NewNop())
	var buf bytes.Buffer
	require.NoError(t, e.Export(inv, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	get := func(cell string) string {
		v, err := f.GetCellValue(sheetName, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Website redesign", get("A1"))
	assert.Equal(t, "INV-2026-0412", get("B2"))
	assert.Equal(t, "ACME", get("B3"))
	assert.Equal(t, "발송됨", get("B5"))
	assert.Equal(t, "2026-02-01", get("B6"))
	assert.Equal(t, "항목", get("B8"))
	assert.Equal(t, "Design", get("B9"))
	assert.Equal(t, "1000000", get("H9"))
	assert.Equal(t, "dev", get("D10"))
	assert.Equal(t, "합계 (₩)", get("G11"))
	assert.Equal(t, "1500000", get("H11"))
}

func TestXLSXExporter_NoItems(t *testing.T) {
	e := NewXLSXExporter(zap.NewNop())
	var buf bytes.Buffer
	require.NoError(t, e.Export(&entity.Invoice{ID: "INV-1", Currency: "$"}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(sheetName, "G9")
	require.NoError(t, err)
	assert.Equal(t, "합계 ($)", v)
}

func TestXLSXExporter_Format(t *testing.T) {
	e := NewXLSXExporter(zap.NewNop())
	assert.Equal(t, ".xlsx", e.FileExtension())
	assert.Contains(t, e.ContentType(), "spreadsheetml")
}
