package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

// TaxRate is one entry of the registry ITBMS code table
type TaxRate struct {
	Code     string
	Percent  decimal.Decimal
	Category entity.TaxRateCode
}

// DefaultTaxCode is used for codes missing from the table.
// Every item must carry a rate, so unknown codes fall back to the general rate.
const DefaultTaxCode = "01"

var taxRates = map[string]TaxRate{
	"00": {Code: "00", Percent: decimal.NewFromInt(0), Category: entity.TaxRateExempt},
	"01": {Code: "01", Percent: decimal.NewFromInt(7), Category: entity.TaxRateGeneral},
	"02": {Code: "02", Percent: decimal.NewFromInt(10), Category: entity.TaxRateSelective},
	"03": {Code: "03", Percent: decimal.NewFromInt(15), Category: entity.TaxRateServices},
}

// LookupTaxRate translates a registry tax code to its rate and category
func LookupTaxRate(code string) TaxRate {
	if rate, ok := taxRates[code]; ok {
		return rate
	}
	return taxRates[DefaultTaxCode]
}
