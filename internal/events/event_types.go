package events

import (
	"time"

	"github.com/returnsdesk/oem-returns/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReturnUpdated    EventType = "oem_return_updated"
	EventReturnReassigned EventType = "oem_return_reassigned"
)

// Actor identifies the agent behind an event.
type Actor struct {
	AgentID   string `json:"agent_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReturnID  string      `json:"return_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// FieldChange is one before/after pair.
type FieldChange struct {
	Field    domain.Field `json:"field"`
	OldValue *string      `json:"old_value"`
	NewValue *string      `json:"new_value"`
}

// ReturnUpdatedPayload payload.
type ReturnUpdatedPayload struct {
	OrderNumber *string       `json:"order_number,omitempty"`
	Changes     []FieldChange `json:"changes"`
}

// ReturnReassignedPayload payload.
type ReturnReassignedPayload struct {
	PreviousAgent *string `json:"previous_agent,omitempty"`
	NewAgent      *string `json:"new_agent,omitempty"`
}
