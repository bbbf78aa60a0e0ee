package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event raised by an import flow
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	FlowKey       string                 `json:"flowKey"`
	CUFE          string                 `json:"cufe,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlationId"`
}

// NewEvent creates a new domain event with a generated ID and timestamp
func NewEvent(eventType Type, flowKey, cufe string, payload map[string]interface{}) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		FlowKey:       flowKey,
		CUFE:          cufe,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
	}
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain,
// typically one submit attempt of a flow
func NewEventWithCorrelation(eventType Type, flowKey, cufe string, payload map[string]interface{}, correlationID string) *Event {
	evt := NewEvent(eventType, flowKey, cufe, payload)
	evt.CorrelationID = correlationID
	return evt
}

// WithPayload returns a copy of the event with an added payload entry
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
