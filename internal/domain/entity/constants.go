package entity

import "strings"

// TaxRateCode is the semantic tax category derived from the registry tax code
type TaxRateCode string

const (
	TaxRateExempt    TaxRateCode = "exempt"
	TaxRateGeneral   TaxRateCode = "general"
	TaxRateSelective TaxRateCode = "selective"
	TaxRateServices  TaxRateCode = "services"
)

// DocumentType identifies the kind of fiscal document behind a CUFE
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "invoice"
	DocumentTypeCreditNote DocumentType = "credit_note"
	DocumentTypeDebitNote  DocumentType = "debit_note"
	DocumentTypeUnknown    DocumentType = "unknown"
)

// CUFE type prefixes
const (
	PrefixInvoice    = "FE01"
	PrefixCreditNote = "FE04"
	PrefixDebitNote  = "FE05"
)

// MinCUFELength is the shortest identifier the registry issues
const MinCUFELength = 40

// CUFEPrefixes lists the recognized prefixes in lookup order
var CUFEPrefixes = []string{PrefixInvoice, PrefixCreditNote, PrefixDebitNote}

// DocumentTypeOf maps a normalized CUFE to its document type
func DocumentTypeOf(cufe string) DocumentType {
	switch {
	case strings.HasPrefix(cufe, PrefixInvoice):
		return DocumentTypeInvoice
	case strings.HasPrefix(cufe, PrefixCreditNote):
		return DocumentTypeCreditNote
	case strings.HasPrefix(cufe, PrefixDebitNote):
		return DocumentTypeDebitNote
	default:
		return DocumentTypeUnknown
	}
}

// Payment method codes used by the registry (iFormaPago)
var paymentMethods = map[string]string{
	"01": "credito",
	"02": "efectivo",
	"03": "tarjeta_credito",
	"04": "tarjeta_debito",
	"05": "tarjeta_fidelizacion",
	"06": "vale",
	"07": "tarjeta_regalo",
	"08": "transferencia",
	"09": "cheque",
	"99": "otro",
}

// PaymentMethodName returns a readable name for a registry payment code
func PaymentMethodName(code string) string {
	if name, ok := paymentMethods[code]; ok {
		return name
	}
	return ""
}

// Shopping session modes
const (
	SessionModeCompleted = "completed"
)
