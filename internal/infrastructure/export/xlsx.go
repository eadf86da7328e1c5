package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
)

// Sheet layout
const (
	sheetName     = "견적서"
	headerRow     = 8
	firstItemRow  = 9
	contentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	fileExtension = ".xlsx"
)

var itemColumns = []string{"No", "항목", "설명", "분류", "수량", "단위", "단가", "소계"}

var statusLabels = map[entity.InvoiceStatus]string{
	entity.StatusDraft:    "작성중",
	entity.StatusSent:     "발송됨",
	entity.StatusAccepted: "승인됨",
	entity.StatusRejected: "거절됨",
}

// XLSXExporter renders an invoice as a spreadsheet quote
type XLSXExporter struct {
	logger *zap.Logger
}

// NewXLSXExporter creates a new spreadsheet exporter
func NewXLSXExporter(logger *zap.Logger) *XLSXExporter {
	return &XLSXExporter{logger: logger}
}

// ContentType returns the MIME type of the rendered document
func (e *XLSXExporter) ContentType() string { return contentType }

// FileExtension returns the file suffix of the rendered document
func (e *XLSXExporter) FileExtension() string { return fileExtension }

// Export writes the workbook for invoice into w
func (e *XLSXExporter) Export(invoice *entity.Invoice, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := e.fillHeader(f, invoice); err != nil {
		return err
	}
	lastRow, err := e.fillItems(f, invoice.Items)
	if err != nil {
		return err
	}
	if err := e.fillTotal(f, invoice, lastRow+1); err != nil {
		return err
	}

	_ = f.SetColWidth(sheetName, "B", "C", 28)
	_ = f.SetColWidth(sheetName, "G", "H", 16)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Invoice exported",
		zap.String("invoice_id", invoice.ID),
		zap.Int("item_count", len(invoice.Items)))
	return nil
}

// fillHeader fills rows 1-6 with invoice metadata
func (e *XLSXExporter) fillHeader(f *excelize.File, inv *entity.Invoice) error {
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}

	status := statusLabels[inv.Status]
	if status == "" {
		status = string(inv.Status)
	}

	cells := []struct {
		cell  string
		value interface{}
	}{
		{"A1", inv.Title},
		{"A2", "견적번호"}, {"B2", inv.ID},
		{"A3", "고객명"}, {"B3", inv.ClientName},
		{"A4", "이메일"}, {"B4", inv.ClientEmail},
		{"A5", "상태"}, {"B5", status},
		{"A6", "작성일"}, {"B6", inv.CreatedAt.Format("2006-01-02")},
	}
	if inv.Description != "" {
		cells = append(cells, struct {
			cell  string
			value interface{}
		}{"A7", inv.Description})
	}

	for _, c := range cells {
		if err := f.SetCellValue(sheetName, c.cell, c.value); err != nil {
			return fmt.Errorf("failed to set %s: %w", c.cell, err)
		}
	}
	return f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
}

// fillItems writes the item table and returns the last used row
func (e *XLSXExporter) fillItems(f *excelize.File, items []entity.InvoiceItem) (int, error) {
	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, name := range itemColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return 0, fmt.Errorf("failed to set header %s: %w", name, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(itemColumns), headerRow)
	if err := f.SetCellStyle(sheetName, "A8", last, headStyle); err != nil {
		return 0, fmt.Errorf("failed to style header: %w", err)
	}

	row := headerRow
	for i, item := range items {
		row = firstItemRow + i
		values := []interface{}{
			i + 1,
			item.Title,
			item.Description,
			item.Category,
			item.Quantity,
			item.Unit,
			item.UnitPrice,
			item.Subtotal,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return 0, fmt.Errorf("failed to set item row %d: %w", row, err)
		}
	}
	return row, nil
}

// fillTotal writes the total row below the items
func (e *XLSXExporter) fillTotal(f *excelize.File, inv *entity.Invoice, row int) error {
	currency := inv.Currency
	if currency == "" {
		currency = entity.DefaultCurrency
	}

	label, _ := excelize.CoordinatesToCellName(len(itemColumns)-1, row)
	amount, _ := excelize.CoordinatesToCellName(len(itemColumns), row)
	if err := f.SetCellValue(sheetName, label, "합계 ("+currency+")"); err != nil {
		return fmt.Errorf("failed to set total label: %w", err)
	}
	if err := f.SetCellValue(sheetName, amount, inv.TotalAmount); err != nil {
		return fmt.Errorf("failed to set total: %w", err)
	}
	return nil
}

var _ port.InvoiceExporter = (*XLSXExporter)(nil)
