package domain

import "time"

// OEMReturnHistory is an immutable audit entry for a single field change.
type OEMReturnHistory struct {
	ID        string
	ReturnID  string
	Field     Field
	OldValue  *string
	NewValue  *string
	ChangedBy *string
	CreatedAt time.Time
}
