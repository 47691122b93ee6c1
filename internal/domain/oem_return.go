package domain

import (
	"sort"
	"time"
)

// Unset is rendered wherever a free-text field is null or empty.
const Unset = "—"

// Field names an editable column of an OEM return.
type Field string

const (
	FieldStatus            Field = "status"
	FieldOMUpdate          Field = "om_update"
	FieldDesignatedOMAgent Field = "designated_om_agent"
)

// EditableFields lists the fields an agent may change, in display order.
var EditableFields = []Field{FieldStatus, FieldOMUpdate, FieldDesignatedOMAgent}

// Valid reports whether f is one of the editable fields.
func (f Field) Valid() bool {
	for _, candidate := range EditableFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// OEMReturn is a tracked return request against an order.
type OEMReturn struct {
	ID                string
	TicketLink        *string
	OrderNumber       *string
	SKU               *string
	CustomerName      *string
	Priority          *string
	OMRequest         *string
	Status            string
	OMUpdate          *string
	LastFollowUp      *string
	RequestDate       *string
	DesignatedOMAgent *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Value returns the current value of an editable field. Status is never nil.
func (r *OEMReturn) Value(f Field) *string {
	switch f {
	case FieldStatus:
		status := r.Status
		return &status
	case FieldOMUpdate:
		return r.OMUpdate
	case FieldDesignatedOMAgent:
		return r.DesignatedOMAgent
	default:
		return nil
	}
}

// Patch maps changed fields to their new value. A nil value clears the field.
type Patch map[Field]*string

// IsEmpty reports whether the patch carries no changes.
func (p Patch) IsEmpty() bool {
	return len(p) == 0
}

// Fields returns the patched fields in a stable order.
func (p Patch) Fields() []Field {
	fields := make([]Field, 0, len(p))
	for f := range p {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Display renders a nullable value for tables, collapsing null and empty to Unset.
func Display(val *string) string {
	if val == nil || *val == "" {
		return Unset
	}
	return *val
}

// StringOrEmpty dereferences val, treating nil as "".
func StringOrEmpty(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
