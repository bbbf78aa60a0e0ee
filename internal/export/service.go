// Package export renders previewed invoices as spreadsheets.
package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

// SheetName is the single worksheet of an invoice export
const SheetName = "Factura"

// ContentType is the MIME type of the produced workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var itemHeaders = []string{"#", "Código", "Descripción", "Cantidad", "Unidad", "Precio unitario", "ITBMS %", "ITBMS", "Total"}

// Service produces XLSX workbooks
type Service struct {
	logger *zap.Logger
}

// NewService creates an export service
func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// InvoiceXLSX writes header, line items and totals of inv to a workbook
func (s *Service) InvoiceXLSX(inv *entity.Invoice) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("invoice is required")
	}
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	w := &sheetWriter{f: f}

	receiver := ""
	if inv.Receiver != nil {
		receiver = inv.Receiver.Name
	}
	header := [][2]interface{}{
		{"CUFE", inv.CUFE},
		{"Factura N°", inv.InvoiceNumber},
		{"Fecha de emisión", inv.IssueDate},
		{"Emisor", inv.Issuer.Name},
		{"RUC", inv.Issuer.TaxID},
		{"Receptor", receiver},
	}
	for _, kv := range header {
		w.row(kv[0], kv[1])
	}
	w.skip()

	itemHeaderRow := w.next
	w.row(toRow(itemHeaders)...)
	for _, item := range inv.Items {
		w.row(
			item.LineNumber,
			item.ProductCode,
			item.Description,
			money(item.Quantity),
			item.Unit,
			money(item.UnitPrice),
			money(item.TaxRate),
			money(item.TaxAmount),
			money(item.TotalPrice),
		)
	}
	w.skip()

	totals := [][2]interface{}{
		{"Subtotal", money(inv.Totals.Subtotal)},
		{"Descuento", money(inv.Totals.Discount)},
		{"ITBMS", money(inv.Totals.TotalTax)},
		{"Total", money(inv.Totals.GrandTotal)},
	}
	for _, kv := range totals {
		w.row(nil, nil, nil, nil, nil, nil, nil, kv[0], kv[1])
	}

	if err := s.style(f, itemHeaderRow); err != nil {
		return nil, err
	}
	if w.err != nil {
		return nil, fmt.Errorf("xlsx write: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("Invoice exported",
		zap.String("cufe", inv.CUFE),
		zap.Int("items", len(inv.Items)),
		zap.Duration("elapsed", time.Since(start)))
	return buf.Bytes(), nil
}

func (s *Service) style(f *excelize.File, headerRow int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(itemHeaders), headerRow)
	if err := f.SetCellStyle(SheetName, first, last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "A6", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 18)
	_ = f.SetColWidth(SheetName, "B", "B", 14)
	_ = f.SetColWidth(SheetName, "C", "C", 40)
	_ = f.SetColWidth(SheetName, "D", "I", 14)
	return nil
}

// sheetWriter appends rows and keeps the first error
type sheetWriter struct {
	f    *excelize.File
	next int
	err  error
}

func (w *sheetWriter) row(values ...interface{}) {
	if w.next == 0 {
		w.next = 1
	}
	if w.err == nil {
		cell, _ := excelize.CoordinatesToCellName(1, w.next)
		w.err = w.f.SetSheetRow(SheetName, cell, &values)
	}
	w.next++
}

func (w *sheetWriter) skip() {
	if w.next == 0 {
		w.next = 1
	}
	w.next++
}

func toRow(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// money renders amounts as numbers so spreadsheets can sum them
func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
