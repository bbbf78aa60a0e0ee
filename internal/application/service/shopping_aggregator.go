package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

// ShoppingAggregator turns an invoice and a selection of its lines into a shopping session
type ShoppingAggregator interface {
	Aggregate(ctx context.Context, invoice *entity.Invoice, store *entity.StoreMatch, items []entity.LineItem) (string, error)
}

type shoppingAggregatorImpl struct {
	writer port.ShoppingSessionWriter
	newID  func() string
	logger Logger
}

// NewShoppingAggregator creates a new ShoppingAggregator
func NewShoppingAggregator(writer port.ShoppingSessionWriter, logger Logger) ShoppingAggregator {
	return &shoppingAggregatorImpl{
		writer: writer,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// Aggregate creates one session and adds items one at a time in line-number order.
// It returns the session ID.
func (a *shoppingAggregatorImpl) Aggregate(ctx context.Context, invoice *entity.Invoice, store *entity.StoreMatch, items []entity.LineItem) (string, error) {
	if invoice == nil {
		return "", fmt.Errorf("invoice is required")
	}
	if len(items) == 0 {
		return "", fmt.Errorf("no items selected for import")
	}

	session := &entity.ShoppingSession{
		ID:          a.newID(),
		StoreName:   invoice.Issuer.Name,
		SessionDate: SessionDate(invoice.IssueDate),
		Mode:        entity.SessionModeCompleted,
		Note:        SessionNote(invoice),
		SourceCUFE:  invoice.CUFE,
	}
	if store != nil {
		session.StoreID = store.StoreID
		session.StoreName = store.StoreName
	}

	if err := a.writer.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create shopping session: %w", err)
	}

	ordered := make([]entity.LineItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LineNumber < ordered[j].LineNumber
	})

	for i, line := range ordered {
		item := &entity.ShoppingItem{
			SessionID:        session.ID,
			Position:         i,
			Description:      line.Description,
			UnitPrice:        line.UnitPrice,
			Quantity:         line.Quantity,
			Unit:             line.Unit,
			TaxRate:          line.TaxRate,
			TaxRateCode:      line.TaxRateCode,
			PricesIncludeTax: true,
		}
		if err := a.writer.AddItem(ctx, item); err != nil {
			a.logger.Error("Failed to add shopping item",
				"session_id", session.ID, "line_number", line.LineNumber, "error", err)
			return "", fmt.Errorf("failed to add item %d: %w", line.LineNumber, err)
		}
	}

	a.logger.Info("Shopping session created",
		"session_id", session.ID, "cufe", invoice.CUFE, "items", len(ordered))
	return session.ID, nil
}

// SessionDate reduces a registry timestamp such as 2024-01-15T10:30:00-05:00 to its date
func SessionDate(issueDate string) string {
	if len(issueDate) >= 10 {
		return issueDate[:10]
	}
	return issueDate
}

// SessionNote references the source invoice
func SessionNote(invoice *entity.Invoice) string {
	if invoice.InvoiceNumber == "" {
		return "Importado de factura electrónica"
	}
	return fmt.Sprintf("Importado de factura electrónica N° %s", invoice.InvoiceNumber)
}
