package event

import (
	"testing"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"status changed", TypeFlowStatusChanged, true},
		{"duplicate detected", TypeDuplicateDetected, true},
		{"invoice previewed", TypeInvoicePreviewed, true},
		{"import completed", TypeImportCompleted, true},
		{"import failed", TypeImportFailed, true},
		{"unknown", Type("instance.created"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType_String(t *testing.T) {
	if got := TypeImportCompleted.String(); got != "import.completed" {
		t.Errorf("Type.String() = %v, want import.completed", got)
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{"from": "pending", "to": "fetching"}
	evt := NewEvent(TypeFlowStatusChanged, "user-1", "FE01ABC", payload)

	if evt.ID == "" {
		t.Error("expected generated ID")
	}
	if evt.CorrelationID == "" {
		t.Error("expected generated correlation ID")
	}
	if evt.Type != TypeFlowStatusChanged {
		t.Errorf("Type = %v, want %v", evt.Type, TypeFlowStatusChanged)
	}
	if evt.FlowKey != "user-1" || evt.CUFE != "FE01ABC" {
		t.Errorf("FlowKey/CUFE = %q/%q", evt.FlowKey, evt.CUFE)
	}
	if evt.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if evt.GetPayloadString("to") != "fetching" {
		t.Errorf("payload to = %q", evt.GetPayloadString("to"))
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeImportFailed, "k", "", nil, "attempt-7")
	if evt.CorrelationID != "attempt-7" {
		t.Errorf("CorrelationID = %q, want attempt-7", evt.CorrelationID)
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeImportCompleted, "k", "FE01", map[string]interface{}{"items": 3})
	updated := original.WithPayload("session_id", "s-1")

	if _, ok := original.Payload["session_id"]; ok {
		t.Error("original payload must not change")
	}
	if updated.GetPayloadString("session_id") != "s-1" {
		t.Error("updated payload missing session_id")
	}
	if updated.GetPayloadInt("items") != 3 {
		t.Errorf("items = %d, want 3", updated.GetPayloadInt("items"))
	}
	if updated.ID != original.ID {
		t.Error("WithPayload must keep the event ID")
	}
}

func TestEvent_PayloadAccessorsDefault(t *testing.T) {
	evt := NewEvent(TypeDuplicateDetected, "k", "FE01", map[string]interface{}{
		"forced": true,
		"count":  2.0,
		"name":   42,
	})

	if !evt.GetPayloadBool("forced") {
		t.Error("forced should be true")
	}
	if evt.GetPayloadInt("count") != 2 {
		t.Errorf("count = %d", evt.GetPayloadInt("count"))
	}
	if evt.GetPayloadString("name") != "" {
		t.Error("non-string value should read as empty string")
	}
	if evt.GetPayloadBool("missing") || evt.GetPayloadInt("missing") != 0 {
		t.Error("missing keys should read as zero values")
	}
}

func TestEvent_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewEvent(TypeFlowStatusChanged, "k", "", nil).ID
		if seen[id] {
			t.Fatalf("duplicate event ID %s", id)
		}
		seen[id] = true
	}
}
