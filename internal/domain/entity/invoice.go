package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice represents an electronic invoice document retrieved from the registry
type Invoice struct {
	CUFE          string         `json:"cufe"`
	InvoiceNumber string         `json:"invoiceNumber"`
	PointOfSale   string         `json:"pointOfSale,omitempty"`
	IssueDate     string         `json:"issueDate"`
	Authorization *Authorization `json:"authorization,omitempty"`
	Issuer        Issuer         `json:"issuer"`
	Receiver      *Receiver      `json:"receiver,omitempty"`
	Items         []LineItem     `json:"items"`
	Totals        Totals         `json:"totals"`
	Payment       *Payment       `json:"payment,omitempty"`
	Metadata      Metadata       `json:"metadata"`
}

// Authorization is the registry's usage authorization stamp
type Authorization struct {
	Protocol string `json:"protocol"`
	Date     string `json:"date"`
}

// Issuer is the merchant that emitted the invoice
type Issuer struct {
	TaxID      string `json:"taxId"`
	Name       string `json:"name"`
	CheckDigit string `json:"checkDigit,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Address    string `json:"address,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Receiver is the buyer, present only when the registry populated it
type Receiver struct {
	TaxID string `json:"taxId,omitempty"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
}

// IsEmpty reports whether no receiver field carries a value
func (r Receiver) IsEmpty() bool {
	return r.TaxID == "" && r.Name == "" && r.Type == ""
}

// LineItem is one purchased product or service entry.
// LineNumber is the 1-based document position and is the selection key for partial imports.
type LineItem struct {
	LineNumber  int             `json:"lineNumber"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	TaxCode     string          `json:"taxCode"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	TaxRateCode TaxRateCode     `json:"taxRateCode"`
	ProductCode string          `json:"productCode,omitempty"`
}

// Totals holds the document totals as reported by the registry.
// GrandTotal is trusted as authoritative and never recomputed.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	TotalTax     decimal.Decimal `json:"totalTax"`
	GrandTotal   decimal.Decimal `json:"grandTotal"`
	TaxableTotal decimal.Decimal `json:"taxableTotal"`
	SelectiveTax decimal.Decimal `json:"selectiveTax"`
	Discount     decimal.Decimal `json:"discount"`
	Brackets     []TaxBracket    `json:"brackets,omitempty"`
}

// TaxBracket aggregates line items sharing the same tax category
type TaxBracket struct {
	TaxRateCode TaxRateCode     `json:"taxRateCode"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Base        decimal.Decimal `json:"base"`
	Tax         decimal.Decimal `json:"tax"`
	ItemCount   int             `json:"itemCount"`
}

// Payment holds optional payment metadata
type Payment struct {
	Method     string          `json:"method,omitempty"`
	MethodCode string          `json:"methodCode,omitempty"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
}

// Metadata records where and when the document was obtained
type Metadata struct {
	RawXML    string    `json:"rawXml"`
	FetchedAt time.Time `json:"fetchedAt"`
	SourceURL string    `json:"sourceUrl"`
}

// ItemByLineNumber returns the line item with the given number
func (inv *Invoice) ItemByLineNumber(n int) (LineItem, bool) {
	for _, item := range inv.Items {
		if item.LineNumber == n {
			return item, true
		}
	}
	return LineItem{}, false
}

// DocumentType classifies the invoice by its identifier prefix
func (inv *Invoice) DocumentType() DocumentType {
	return DocumentTypeOf(inv.CUFE)
}
