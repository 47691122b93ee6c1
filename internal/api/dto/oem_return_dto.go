package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/returnsdesk/oem-returns/internal/domain"
)

// ReturnResponse is the wire shape of an OEM return.
type ReturnResponse struct {
	ID                string    `json:"id"`
	TicketLink        *string   `json:"ticket_link"`
	OrderNumber       *string   `json:"order_number"`
	SKU               *string   `json:"sku"`
	CustomerName      *string   `json:"customer_name"`
	Priority          *string   `json:"priority"`
	OMRequest         *string   `json:"om_request"`
	Status            string    `json:"status"`
	OMUpdate          *string   `json:"om_update"`
	LastFollowUp      *string   `json:"last_follow_up"`
	RequestDate       *string   `json:"request_date"`
	DesignatedOMAgent *string   `json:"designated_om_agent"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ListMeta describes the page returned by a list call.
type ListMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// ReturnListResponse wraps a page of returns.
type ReturnListResponse struct {
	Data []ReturnResponse `json:"data"`
	Meta ListMeta         `json:"meta"`
}

// ReturnEnvelope wraps a single return.
type ReturnEnvelope struct {
	Data ReturnResponse `json:"data"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID        string       `json:"id"`
	Field     domain.Field `json:"field"`
	OldValue  *string      `json:"old_value"`
	NewValue  *string      `json:"new_value"`
	ChangedBy *string      `json:"changed_by"`
	CreatedAt time.Time    `json:"created_at"`
}

// HistoryListResponse wraps audit entries.
type HistoryListResponse struct {
	Data []HistoryResponse `json:"data"`
}

// ErrorBody mirrors the error envelope written by the error middleware.
type ErrorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// ReturnFromDomain converts a record for the wire.
func ReturnFromDomain(r *domain.OEMReturn) ReturnResponse {
	return ReturnResponse{
		ID:                r.ID,
		TicketLink:        r.TicketLink,
		OrderNumber:       r.OrderNumber,
		SKU:               r.SKU,
		CustomerName:      r.CustomerName,
		Priority:          r.Priority,
		OMRequest:         r.OMRequest,
		Status:            r.Status,
		OMUpdate:          r.OMUpdate,
		LastFollowUp:      r.LastFollowUp,
		RequestDate:       r.RequestDate,
		DesignatedOMAgent: r.DesignatedOMAgent,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// Domain converts the wire shape back into a record.
func (r ReturnResponse) Domain() domain.OEMReturn {
	return domain.OEMReturn{
		ID:                r.ID,
		TicketLink:        r.TicketLink,
		OrderNumber:       r.OrderNumber,
		SKU:               r.SKU,
		CustomerName:      r.CustomerName,
		Priority:          r.Priority,
		OMRequest:         r.OMRequest,
		Status:            r.Status,
		OMUpdate:          r.OMUpdate,
		LastFollowUp:      r.LastFollowUp,
		RequestDate:       r.RequestDate,
		DesignatedOMAgent: r.DesignatedOMAgent,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// HistoryFromDomain converts audit entries for the wire.
func HistoryFromDomain(entries []domain.OEMReturnHistory) []HistoryResponse {
	resp := make([]HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, HistoryResponse{
			ID:        entry.ID,
			Field:     entry.Field,
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			ChangedBy: entry.ChangedBy,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}

// ParsePatch decodes a PATCH body. An explicit JSON null is kept as a nil
// value; omitted keys are absent from the result. Non-string values and
// unknown keys are rejected.
func ParsePatch(body []byte) (domain.Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.New("body must be a JSON object")
	}
	patch := make(domain.Patch, len(raw))
	for key, value := range raw {
		field := domain.Field(key)
		if !field.Valid() {
			return nil, fmt.Errorf("field %q is not editable", key)
		}
		if string(value) == "null" {
			patch[field] = nil
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, fmt.Errorf("field %q must be a string or null", key)
		}
		patch[field] = &s
	}
	return patch, nil
}
