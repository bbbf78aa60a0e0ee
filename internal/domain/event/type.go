package event

// Type identifies the type of domain event
type Type string

const (
	TypeFlowStatusChanged Type = "flow.status_changed"
	TypeDuplicateDetected Type = "import.duplicate_detected"
	TypeInvoicePreviewed  Type = "invoice.previewed"
	TypeImportCompleted   Type = "import.completed"
	TypeImportFailed      Type = "import.failed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeFlowStatusChanged,
		TypeDuplicateDetected,
		TypeInvoicePreviewed,
		TypeImportCompleted,
		TypeImportFailed:
		return true
	default:
		return false
	}
}
