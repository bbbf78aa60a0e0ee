// Package workflow runs invoice import flows: one state machine per flow key,
// driven by the fetch, decode and import services.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/cafe-importer/internal/domain/entity"
	domainwf "github.com/garyjia/cafe-importer/internal/domain/workflow"
)

var (
	// ErrFlowBusy is returned while a flow is fetching, parsing or importing
	ErrFlowBusy = errors.New("import flow is busy")
	// ErrFlowNotFound is returned for keys with no live flow
	ErrFlowNotFound = errors.New("import flow not found")
	// ErrEmptySelection is returned when none of the selected line numbers exist
	ErrEmptySelection = errors.New("no invoice lines selected")
)

// SubmitInput starts a flow from a CUFE or a QR link. QRURL wins when both are set.
type SubmitInput struct {
	Identifier string `json:"identifier"`
	QRURL      string `json:"qrUrl"`
	// Force skips the duplicate check and replaces the prior import record on confirm
	Force bool `json:"force"`
}

// ImportFlowState is a snapshot of one flow. Error is the localized message
// for ErrorCode and Detail the underlying cause. PermittedTriggers lists what
// the flow accepts next, e.g. CONFIRM in preview.
type ImportFlowState struct {
	Key                string                `json:"key"`
	Status             domainwf.State        `json:"status"`
	CUFE               string                `json:"cufe,omitempty"`
	Invoice            *entity.Invoice       `json:"invoice,omitempty"`
	Error              string                `json:"error,omitempty"`
	ErrorCode          entity.ErrorCode      `json:"errorCode,omitempty"`
	Detail             string                `json:"detail,omitempty"`
	MatchedStore       *entity.StoreMatch    `json:"matchedStore,omitempty"`
	DuplicateInfo      *entity.DuplicateInfo `json:"duplicateInfo,omitempty"`
	ResultingSessionID string                `json:"resultingSessionId,omitempty"`
	PermittedTriggers  []domainwf.Trigger    `json:"permittedTriggers"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

// ImportEngine orchestrates invoice import flows keyed by an opaque flow key
type ImportEngine interface {
	// Submit validates the input, checks for a prior import and fetches and
	// decodes the invoice, leaving the flow in preview, pending (duplicate) or error
	Submit(ctx context.Context, key string, input SubmitInput) (*ImportFlowState, error)

	// ConfirmImport imports the selected lines of a previewed invoice.
	// An empty selection imports every line.
	ConfirmImport(ctx context.Context, key string, selectedLineNumbers []int) (*ImportFlowState, error)

	// Reset returns the flow to pending from any state and discards in-flight results
	Reset(key string) *ImportFlowState

	// State returns a snapshot of the flow
	State(key string) (*ImportFlowState, error)

	// Close stops pending auto-resets
	Close()
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
