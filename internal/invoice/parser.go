package invoice

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
)

// ErrMissingIssuer is returned when the document lacks the issuer tax ID or name
var ErrMissingIssuer = errors.New("issuer tax id and name are required")

// Parse maps a decoded registry XML document to an Invoice.
// It is deterministic: parsing the same input twice yields equal values.
func Parse(rawXML, cufe, sourceURL string, fetchedAt time.Time) (*entity.Invoice, error) {
	doc, err := ParseDocument(rawXML)
	if err != nil {
		return nil, err
	}

	general := doc.Group(GroupGeneral)
	issuerGroup := doc.Group(GroupIssuer)
	totalsGroup := doc.Group(GroupTotals)

	issuer := entity.Issuer{
		TaxID:      issuerGroup.Text("gRucEmi", "dRuc"),
		CheckDigit: issuerGroup.Text("gRucEmi", "dDV"),
		Name:       issuerGroup.Text("dNombEm"),
		Branch:     issuerGroup.Text("dSucEm"),
		Address:    issuerGroup.Text("dDirecEm"),
		Phone:      issuerGroup.Text("dTfnEm"),
	}
	if issuer.TaxID == "" || issuer.Name == "" {
		return nil, ErrMissingIssuer
	}

	inv := &entity.Invoice{
		CUFE:          cufe,
		InvoiceNumber: general.Text("dNroDF"),
		PointOfSale:   general.Text("dPtoFacDF"),
		IssueDate:     general.Text("dFechaEm"),
		Issuer:        issuer,
		Receiver:      parseReceiver(doc.Group(GroupReceiver)),
		Items:         parseItems(doc.Groups(GroupItem)),
		Payment:       parsePayment(doc.Group(GroupPayment), totalsGroup),
		Authorization: parseAuthorization(doc.Group(GroupAuthorization)),
		Metadata: entity.Metadata{
			RawXML:    rawXML,
			FetchedAt: fetchedAt,
			SourceURL: sourceURL,
		},
	}

	inv.Totals = entity.Totals{
		Subtotal:     ParseAmount(totalsGroup.Text("dTotNeto")),
		TotalTax:     ParseAmount(totalsGroup.Text("dTotITBMS")),
		GrandTotal:   ParseAmount(totalsGroup.Text("dVTot")),
		TaxableTotal: ParseAmount(totalsGroup.Text("dTotGravado")),
		SelectiveTax: ParseAmount(totalsGroup.Text("dTotISC")),
		Discount:     ParseAmount(totalsGroup.Text("dTotDesc")),
		Brackets:     taxBrackets(inv.Items),
	}

	return inv, nil
}

func parseReceiver(g Group) *entity.Receiver {
	r := entity.Receiver{
		TaxID: g.Text("gRucRec", "dRuc"),
		Name:  g.Text("dNombRec"),
		Type:  g.Text("iTipoRec"),
	}
	if r.IsEmpty() {
		return nil
	}
	return &r
}

func parseItems(groups []Group) []entity.LineItem {
	items := make([]entity.LineItem, 0, len(groups))
	for i, g := range groups {
		taxCode := g.Text("gITBMSItem", "dTasaITBMS")
		rate := LookupTaxRate(taxCode)

		items = append(items, entity.LineItem{
			LineNumber:  i + 1,
			Description: g.Text("dDescProd"),
			ProductCode: g.Text("dCodProd"),
			Unit:        g.Text("cUnidad"),
			Quantity:    ParseQuantity(g.Text("dCantCodInt")),
			UnitPrice:   ParseAmount(g.Text("gPrecios", "dPrUnit")),
			TotalPrice:  ParseAmount(g.Text("gPrecios", "dValTotItem")),
			TaxCode:     taxCode,
			TaxRate:     rate.Percent,
			TaxRateCode: rate.Category,
			TaxAmount:   ParseAmount(g.Text("gITBMSItem", "dValITBMS")),
		})
	}
	return items
}

func parsePayment(payment, totals Group) *entity.Payment {
	code := payment.Text("iFormaPago")
	paid := totals.Text("dTotRec")
	if code == "" && paid == "" {
		return nil
	}
	return &entity.Payment{
		Method:     entity.PaymentMethodName(code),
		MethodCode: code,
		AmountPaid: ParseAmount(paid),
	}
}

func parseAuthorization(g Group) *entity.Authorization {
	protocol := g.Text("dProtAut")
	date := g.Text("dFecProc")
	if protocol == "" && date == "" {
		return nil
	}
	return &entity.Authorization{Protocol: protocol, Date: date}
}

// taxBrackets groups items by tax category. Base is the tax-exclusive amount.
func taxBrackets(items []entity.LineItem) []entity.TaxBracket {
	if len(items) == 0 {
		return nil
	}

	grouped := lo.GroupBy(items, func(item entity.LineItem) entity.TaxRateCode {
		return item.TaxRateCode
	})

	brackets := make([]entity.TaxBracket, 0, len(grouped))
	for code, group := range grouped {
		total := lo.Reduce(group, func(acc decimal.Decimal, item entity.LineItem, _ int) decimal.Decimal {
			return acc.Add(item.TotalPrice)
		}, decimal.Zero)
		tax := lo.Reduce(group, func(acc decimal.Decimal, item entity.LineItem, _ int) decimal.Decimal {
			return acc.Add(item.TaxAmount)
		}, decimal.Zero)

		brackets = append(brackets, entity.TaxBracket{
			TaxRateCode: code,
			TaxRate:     group[0].TaxRate,
			Base:        total.Sub(tax),
			Tax:         tax,
			ItemCount:   len(group),
		})
	}

	sort.Slice(brackets, func(i, j int) bool {
		return brackets[i].TaxRate.LessThan(brackets[j].TaxRate)
	})
	return brackets
}

// ParseError wraps a parser failure in the PARSE_ERROR classification
func ParseError(err error) error {
	return entity.NewImportError(entity.ErrorCodeParseError, fmt.Sprintf("invoice XML could not be parsed: %v", err), err)
}
