package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShoppingSession is the aggregate an imported invoice becomes
type ShoppingSession struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"storeId,omitempty"`
	StoreName   string    `json:"storeName,omitempty"`
	SessionDate string    `json:"sessionDate"`
	Mode        string    `json:"mode"`
	Note        string    `json:"note"`
	SourceCUFE  string    `json:"sourceCufe"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ShoppingItem is one line added to a session
type ShoppingItem struct {
	ID               int64           `json:"id"`
	SessionID        string          `json:"sessionId"`
	Position         int             `json:"position"`
	Description      string          `json:"description"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	Quantity         decimal.Decimal `json:"quantity"`
	Unit             string          `json:"unit"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	TaxRateCode      TaxRateCode     `json:"taxRateCode"`
	PricesIncludeTax bool            `json:"pricesIncludeTax"`
}
