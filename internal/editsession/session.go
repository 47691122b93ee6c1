// Package editsession tracks a local draft of an OEM return's editable fields
// and sends only the fields that changed.
package editsession

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/returnsdesk/oem-returns/internal/domain"
)

var (
	ErrNotOpen      = errors.New("edit session not open")
	ErrUnknownField = errors.New("unknown editable field")
	ErrSaveInFlight = errors.New("save in flight")
)

// Updater applies a partial update to the stored return identified by returnID.
type Updater interface {
	Update(ctx context.Context, returnID string, patch domain.Patch) error
}

// UpdaterFunc adapts a function to Updater.
type UpdaterFunc func(ctx context.Context, returnID string, patch domain.Patch) error

// Update calls f.
func (f UpdaterFunc) Update(ctx context.Context, returnID string, patch domain.Patch) error {
	return f(ctx, returnID, patch)
}

// Draft is the local working copy of the editable fields.
type Draft struct {
	Status            string
	OMUpdate          string
	DesignatedOMAgent string
}

// SaveOutcome describes what Save did.
type SaveOutcome int

const (
	// SaveNoChanges means the draft matched the record and nothing was sent.
	SaveNoChanges SaveOutcome = iota
	// SaveInFlight means another save was outstanding and nothing was sent.
	SaveInFlight
	// SaveApplied means the patch was accepted and the session closed.
	SaveApplied
	// SaveFailed means the update call returned an error; the draft is kept.
	SaveFailed
)

func (o SaveOutcome) String() string {
	switch o {
	case SaveNoChanges:
		return "no_changes"
	case SaveInFlight:
		return "in_flight"
	case SaveApplied:
		return "applied"
	case SaveFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the open/edit/save lifecycle for one return at a time.
type Session struct {
	mu      sync.Mutex
	updater Updater
	record  domain.OEMReturn
	draft   Draft
	open    bool
	saving  bool
}

// New builds a closed session that saves through updater.
func New(updater Updater) *Session {
	return &Session{updater: updater}
}

// Open seeds the draft from record, replacing any prior draft.
func (s *Session) Open(record domain.OEMReturn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return ErrSaveInFlight
	}
	s.seedLocked(record)
	return nil
}

// Sync presents the latest known record. A different identity (or a closed
// session) reseeds the draft; the same identity only refreshes the baseline the
// draft is compared against. It reports whether the draft was reseeded.
func (s *Session) Sync(record domain.OEMReturn) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open && s.record.ID == record.ID {
		s.record = record
		return false, nil
	}
	if s.saving {
		return false, ErrSaveInFlight
	}
	s.seedLocked(record)
	return true, nil
}

// SetField updates one draft field. Any string, including "", is accepted.
func (s *Session) SetField(field domain.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNotOpen
	}
	switch field {
	case domain.FieldStatus:
		s.draft.Status = value
	case domain.FieldOMUpdate:
		s.draft.OMUpdate = value
	case domain.FieldDesignatedOMAgent:
		s.draft.DesignatedOMAgent = value
	default:
		return ErrUnknownField
	}
	return nil
}

// ComputePatch returns the fields whose draft value differs from the record.
// A closed session yields an empty patch.
func (s *Session) ComputePatch() domain.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patchLocked()
}

// Save sends the patch when there is one. On failure the draft stays intact and
// the update error is returned as is.
func (s *Session) Save(ctx context.Context) (SaveOutcome, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return SaveNoChanges, ErrNotOpen
	}
	if s.saving {
		s.mu.Unlock()
		return SaveInFlight, nil
	}
	patch := s.patchLocked()
	if patch.IsEmpty() {
		s.mu.Unlock()
		return SaveNoChanges, nil
	}
	s.saving = true
	returnID := s.record.ID
	s.mu.Unlock()

	err := s.updater.Update(ctx, returnID, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		return SaveFailed, err
	}
	s.closeLocked()
	return SaveApplied, nil
}

// Close discards the draft regardless of unsaved changes.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// IsOpen reports whether a draft is being edited.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Saving reports whether an update call is outstanding.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Record returns the baseline the draft is compared against.
func (s *Session) Record() (domain.OEMReturn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record, s.open
}

func (s *Session) seedLocked(record domain.OEMReturn) {
	s.record = record
	s.draft = Draft{
		Status:            record.Status,
		OMUpdate:          domain.StringOrEmpty(record.OMUpdate),
		DesignatedOMAgent: domain.StringOrEmpty(record.DesignatedOMAgent),
	}
	s.open = true
}

func (s *Session) closeLocked() {
	s.record = domain.OEMReturn{}
	s.draft = Draft{}
	s.open = false
}

func (s *Session) patchLocked() domain.Patch {
	patch := domain.Patch{}
	if !s.open {
		return patch
	}
	if s.draft.Status != s.record.Status {
		status := s.draft.Status
		patch[domain.FieldStatus] = &status
	}
	if s.draft.OMUpdate != domain.StringOrEmpty(s.record.OMUpdate) {
		update := s.draft.OMUpdate
		patch[domain.FieldOMUpdate] = &update
	}
	// Both sides trimmed: an untouched draft never yields a patch.
	agent := strings.TrimSpace(s.draft.DesignatedOMAgent)
	if agent != strings.TrimSpace(domain.StringOrEmpty(s.record.DesignatedOMAgent)) {
		if agent == "" {
			patch[domain.FieldDesignatedOMAgent] = nil
		} else {
			patch[domain.FieldDesignatedOMAgent] = &agent
		}
	}
	return patch
}
