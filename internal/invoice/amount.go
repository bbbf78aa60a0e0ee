package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a registry numeric field.
//
// Everything outside [0-9.,-] is dropped and the first comma becomes the
// decimal point. There is no thousands-grouping logic, so "1,234.50" does not
// parse. Unparsable input yields zero.
func ParseAmount(raw string) decimal.Decimal {
	d, ok := parseAmount(raw)
	if !ok {
		return decimal.Zero
	}
	return d
}

// ParseQuantity parses a quantity, defaulting to 1 when the value is missing or unparsable
func ParseQuantity(raw string) decimal.Decimal {
	d, ok := parseAmount(raw)
	if !ok {
		return decimal.NewFromInt(1)
	}
	return d
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := strings.Replace(b.String(), ",", ".", 1)
	if cleaned == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
