package port

import (
	"context"
	"time"
)

// FetchRequest identifies the invoice to retrieve. Exactly one of the fields is used;
// a QR URL wins over an identifier.
type FetchRequest struct {
	Identifier string
	QRURL      string
}

// FetchResult is the raw registry page for one CUFE
type FetchResult struct {
	CUFE       string
	SourceURL  string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
}

// RegistryFetcher retrieves invoice pages from the tax authority registry.
// Implementations perform exactly one request per call and never retry.
type RegistryFetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}
