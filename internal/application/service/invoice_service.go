package service

import (
	"context"

	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/domain/entity"
	"github.com/garyjia/cafe-importer/internal/invoice"
)

// FetchOutcome is the invocation-surface result of fetching one invoice.
// Error is the localized message for ErrorCode; Detail keeps the underlying cause.
type FetchOutcome struct {
	Success   bool             `json:"success"`
	Invoice   *entity.Invoice  `json:"invoice,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorCode entity.ErrorCode `json:"errorCode,omitempty"`
	Detail    string           `json:"detail,omitempty"`
}

// InvoiceService retrieves and decodes invoices from the registry
type InvoiceService interface {
	// Retrieve performs the registry request
	Retrieve(ctx context.Context, req port.FetchRequest) (*port.FetchResult, error)
	// Decode extracts and parses the invoice embedded in a registry page
	Decode(page *port.FetchResult) (*entity.Invoice, error)
	// Fetch runs Retrieve then Decode and never returns an error; failures are in the outcome
	Fetch(ctx context.Context, req port.FetchRequest) *FetchOutcome
}

type invoiceServiceImpl struct {
	fetcher   port.RegistryFetcher
	extractor *invoice.Extractor
	logger    Logger
}

// NewInvoiceService creates a new InvoiceService. A nil extractor uses the default strategies.
func NewInvoiceService(fetcher port.RegistryFetcher, extractor *invoice.Extractor, logger Logger) InvoiceService {
	if extractor == nil {
		extractor = invoice.NewExtractor()
	}
	return &invoiceServiceImpl{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
	}
}

func (s *invoiceServiceImpl) Retrieve(ctx context.Context, req port.FetchRequest) (*port.FetchResult, error) {
	return s.fetcher.Fetch(ctx, req)
}

func (s *invoiceServiceImpl) Decode(page *port.FetchResult) (*entity.Invoice, error) {
	extracted, err := s.extractor.Extract(page.HTML)
	if err != nil {
		s.logger.Error("Invoice XML not found in registry page", "cufe", page.CUFE, "size", len(page.HTML))
		return nil, err
	}

	inv, err := invoice.Parse(extracted.XML, page.CUFE, page.SourceURL, page.FetchedAt)
	if err != nil {
		s.logger.Error("Failed to parse invoice XML", "cufe", page.CUFE, "strategy", extracted.Strategy, "error", err)
		return nil, invoice.ParseError(err)
	}

	s.logger.Info("Invoice decoded",
		"cufe", inv.CUFE, "strategy", extracted.Strategy, "items", len(inv.Items))
	return inv, nil
}

func (s *invoiceServiceImpl) Fetch(ctx context.Context, req port.FetchRequest) *FetchOutcome {
	page, err := s.Retrieve(ctx, req)
	if err != nil {
		return failedOutcome(err)
	}

	inv, err := s.Decode(page)
	if err != nil {
		return failedOutcome(err)
	}

	return &FetchOutcome{Success: true, Invoice: inv}
}

func failedOutcome(err error) *FetchOutcome {
	code := entity.CodeOf(err)
	return &FetchOutcome{
		Success:   false,
		Error:     entity.UserMessage(code),
		ErrorCode: code,
		Detail:    err.Error(),
	}
}
