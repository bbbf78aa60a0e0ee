package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

func sampleInvoice() *entity.Invoice {
	item := func(n int, desc, price string) entity.LineItem {
		return entity.LineItem{
			LineNumber:  n,
			Description: desc,
			Quantity:    decimal.NewFromInt(1),
			Unit:        "und",
			UnitPrice:   decimal.RequireFromString(price),
			TotalPrice:  decimal.RequireFromString(price),
			TaxCode:     "01",
			TaxRate:     decimal.NewFromInt(7),
			TaxRateCode: entity.TaxRateGeneral,
		}
	}
	return &entity.Invoice{
		CUFE:          testCUFE,
		InvoiceNumber: "0000000123",
		IssueDate:     "2024-01-15T10:30:00-05:00",
		Issuer:        entity.Issuer{TaxID: "155612345-2-2019", Name: "SUPERMERCADO EL AHORRO, S.A."},
		Items: []entity.LineItem{
			item(1, "LECHE", "2.50"),
			item(2, "PAN", "1.50"),
			item(3, "CAFE", "4.50"),
		},
		Metadata: entity.Metadata{RawXML: "<rFE/>"},
	}
}

func TestShoppingAggregator_Aggregate(t *testing.T) {
	writer := &mockSessionWriter{}
	agg := NewShoppingAggregator(writer, &mockLogger{})
	inv := sampleInvoice()

	// out of order on purpose
	selected := []entity.LineItem{inv.Items[2], inv.Items[0]}
	sessionID, err := agg.Aggregate(context.Background(), inv, nil, selected)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)

	require.Len(t, writer.sessions, 1)
	session := writer.sessions[0]
	assert.Equal(t, sessionID, session.ID)
	assert.Empty(t, session.StoreID)
	assert.Equal(t, "SUPERMERCADO EL AHORRO, S.A.", session.StoreName)
	assert.Equal(t, "2024-01-15", session.SessionDate)
	assert.Equal(t, entity.SessionModeCompleted, session.Mode)
	assert.Contains(t, session.Note, "0000000123")
	assert.Equal(t, testCUFE, session.SourceCUFE)

	require.Len(t, writer.items, 2)
	assert.Equal(t, "LECHE", writer.items[0].Description)
	assert.Equal(t, "CAFE", writer.items[1].Description)
	for i, item := range writer.items {
		assert.Equal(t, sessionID, item.SessionID)
		assert.Equal(t, i, item.Position)
		assert.True(t, item.PricesIncludeTax)
		assert.Equal(t, entity.TaxRateGeneral, item.TaxRateCode)
	}
}

func TestShoppingAggregator_UsesMatchedStore(t *testing.T) {
	writer := &mockSessionWriter{}
	agg := NewShoppingAggregator(writer, &mockLogger{})
	inv := sampleInvoice()

	_, err := agg.Aggregate(context.Background(), inv, &entity.StoreMatch{StoreID: "st-1", StoreName: "El Ahorro"}, inv.Items)
	require.NoError(t, err)

	assert.Equal(t, "st-1", writer.sessions[0].StoreID)
	assert.Equal(t, "El Ahorro", writer.sessions[0].StoreName)
	assert.Len(t, writer.items, 3)
}

func TestShoppingAggregator_Failures(t *testing.T) {
	inv := sampleInvoice()

	t.Run("no items", func(t *testing.T) {
		_, err := NewShoppingAggregator(&mockSessionWriter{}, &mockLogger{}).Aggregate(context.Background(), inv, nil, nil)
		assert.Error(t, err)
	})

	t.Run("session create fails", func(t *testing.T) {
		writer := &mockSessionWriter{createSessionFunc: func(ctx context.Context, s *entity.ShoppingSession) error {
			return errors.New("locked")
		}}
		_, err := NewShoppingAggregator(writer, &mockLogger{}).Aggregate(context.Background(), inv, nil, inv.Items)
		assert.Error(t, err)
		assert.Empty(t, writer.items)
	})

	t.Run("stops at first failed item", func(t *testing.T) {
		writer := &mockSessionWriter{addItemFunc: func(ctx context.Context, item *entity.ShoppingItem) error {
			if item.Description == "PAN" {
				return errors.New("constraint")
			}
			return nil
		}}
		_, err := NewShoppingAggregator(writer, &mockLogger{}).Aggregate(context.Background(), inv, nil, inv.Items)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "item 2")
		assert.Len(t, writer.items, 1)
	})
}

func TestSessionDate(t *testing.T) {
	assert.Equal(t, "2024-01-15", SessionDate("2024-01-15T10:30:00-05:00"))
	assert.Equal(t, "2024-01", SessionDate("2024-01"))
	assert.Equal(t, "", SessionDate(""))
}
