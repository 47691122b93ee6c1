package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/returnsdesk/oem-returns/internal/cache"
	"github.com/returnsdesk/oem-returns/internal/domain"
	"github.com/returnsdesk/oem-returns/internal/editsession"
	"github.com/returnsdesk/oem-returns/internal/events"
	"github.com/returnsdesk/oem-returns/internal/observability"
	"github.com/returnsdesk/oem-returns/internal/repository"
	apperrors "github.com/returnsdesk/oem-returns/pkg/util/errorutil"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 200
	// MaxPage keeps (page-1)*MaxPageSize inside a Postgres integer offset.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// ClampPage bounds a 1-based page and its size, falling back to
// defaultSize for a non-positive size.
func ClampPage(page, pageSize, defaultSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// ReturnService coordinates OEM return workflows.
type ReturnService struct {
	returns    repository.ReturnRepository
	history    repository.HistoryRepository
	cache      cache.RecordCache
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ReturnDependencies bundles collaborators for the return service.
type ReturnDependencies struct {
	ReturnRepo  repository.ReturnRepository
	HistoryRepo repository.HistoryRepository
	Cache       cache.RecordCache
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// ReturnListFilter describes table view filters.
type ReturnListFilter struct {
	Statuses   []string
	Agent      *string
	Unassigned bool
	Priority   *string
	SearchTerm *string
	Page       int
	PageSize   int
}

// ReturnPage is one page of the table view.
type ReturnPage struct {
	Items    []domain.OEMReturn
	Page     int
	PageSize int
	Total    int
}

// NewReturnService constructs the service.
func NewReturnService(deps ReturnDependencies) *ReturnService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recordCache := deps.Cache
	if recordCache == nil {
		recordCache = cache.NewRedisRecordCache(nil, 0)
	}
	return &ReturnService{
		returns:    deps.ReturnRepo,
		history:    deps.HistoryRepo,
		cache:      recordCache,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// List returns one page of returns matching filter.
func (s *ReturnService) List(ctx context.Context, filter ReturnListFilter) (*ReturnPage, error) {
	page, pageSize := ClampPage(filter.Page, filter.PageSize, DefaultPageSize)

	items, total, err := s.returns.List(ctx, repository.ReturnFilter{
		Statuses:   filter.Statuses,
		Agent:      filter.Agent,
		Unassigned: filter.Unassigned,
		Priority:   filter.Priority,
		SearchTerm: filter.SearchTerm,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	})
	if err != nil {
		return nil, s.storageError("list returns", err)
	}
	if items == nil {
		items = []domain.OEMReturn{}
	}
	return &ReturnPage{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// Get fetches a return, preferring the cache.
func (s *ReturnService) Get(ctx context.Context, id string) (*domain.OEMReturn, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}
	if cached, ok, err := s.cache.Get(ctx, id); err != nil {
		s.logger.Warn("record cache read failed", zap.String("return_id", id), zap.Error(err))
	} else if ok {
		return cached, nil
	}
	record, err := s.returns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, s.storageError("get return", err)
	}
	s.cacheRecord(ctx, record)
	return record, nil
}

// Update applies a partial update on behalf of actor. Fields already holding
// the requested value are skipped; a patch with nothing left to change returns
// the stored record untouched.
func (s *ReturnService) Update(ctx context.Context, actor *domain.Agent, id string, patch domain.Patch) (*domain.OEMReturn, error) {
	normalized, err := validatePatch(patch)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	current, err := s.returns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, s.storageError("load return", err)
	}

	effective := domain.Patch{}
	changes := make([]events.FieldChange, 0, len(normalized))
	for _, field := range normalized.Fields() {
		oldValue := current.Value(field)
		newValue := normalized[field]
		if sameValue(oldValue, newValue) {
			continue
		}
		effective[field] = newValue
		changes = append(changes, events.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}
	if effective.IsEmpty() {
		return current, nil
	}

	updated, err := s.returns.ApplyPatch(ctx, id, effective)
	if err != nil {
		// The stored row is unknown now; drop any cached copy.
		s.evictRecord(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, s.storageError("apply patch", err)
	}
	s.cacheRecord(ctx, updated)

	if err := s.recordChanges(ctx, actor, id, changes); err != nil {
		return nil, s.storageError("record history", err)
	}
	for _, change := range changes {
		s.metrics.RecordPatchedField(string(change.Field))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReturnUpdated,
		ReturnID: id,
		Actor:    agentActor(actor),
		Payload: events.ReturnUpdatedPayload{
			OrderNumber: updated.OrderNumber,
			Changes:     changes,
		},
	})
	if newAgent, ok := effective[domain.FieldDesignatedOMAgent]; ok {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventReturnReassigned,
			ReturnID: id,
			Actor:    agentActor(actor),
			Payload: events.ReturnReassignedPayload{
				PreviousAgent: current.DesignatedOMAgent,
				NewAgent:      newAgent,
			},
		})
	}
	return updated, nil
}

// History lists audit entries for a return, oldest first.
func (s *ReturnService) History(ctx context.Context, id string, limit, offset int) ([]domain.OEMReturnHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.OEMReturnHistory{}, nil
	}
	entries, err := s.history.ListByReturn(ctx, id, limit, offset)
	if err != nil {
		return nil, s.storageError("list history", err)
	}
	if entries == nil {
		entries = []domain.OEMReturnHistory{}
	}
	return entries, nil
}

// Updater binds actor so the service can back an edit session directly.
func (s *ReturnService) Updater(actor *domain.Agent) editsession.Updater {
	return editsession.UpdaterFunc(func(ctx context.Context, returnID string, patch domain.Patch) error {
		_, err := s.Update(ctx, actor, returnID, patch)
		return err
	})
}

func validatePatch(patch domain.Patch) (domain.Patch, error) {
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationError("patch must change at least one field", nil)
	}
	normalized := make(domain.Patch, len(patch))
	for field, value := range patch {
		if !field.Valid() {
			return nil, apperrors.NewValidationError("field is not editable", map[string]any{"field": string(field)})
		}
		if field == domain.FieldStatus && value == nil {
			return nil, apperrors.NewValidationError("status cannot be null", map[string]any{"field": string(field)})
		}
		if field == domain.FieldDesignatedOMAgent && value != nil {
			trimmed := strings.TrimSpace(*value)
			if trimmed == "" {
				value = nil
			} else {
				value = &trimmed
			}
		}
		normalized[field] = value
	}
	return normalized, nil
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *ReturnService) recordChanges(ctx context.Context, actor *domain.Agent, returnID string, changes []events.FieldChange) error {
	if s.history == nil {
		return nil
	}
	var changedBy *string
	if actor != nil {
		name := actor.Name
		if name == "" {
			name = actor.ID
		}
		changedBy = &name
	}
	for _, change := range changes {
		entry := &domain.OEMReturnHistory{
			ReturnID:  returnID,
			Field:     change.Field,
			OldValue:  change.OldValue,
			NewValue:  change.NewValue,
			ChangedBy: changedBy,
		}
		if err := s.history.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReturnService) cacheRecord(ctx context.Context, record *domain.OEMReturn) {
	if err := s.cache.Set(ctx, record); err != nil {
		s.logger.Warn("record cache write failed", zap.String("return_id", record.ID), zap.Error(err))
	}
}

func (s *ReturnService) evictRecord(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("record cache evict failed", zap.String("return_id", id), zap.Error(err))
	}
}

func (s *ReturnService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func (s *ReturnService) storageError(op string, err error) error {
	if errors.Is(err, repository.ErrNoDatabase) {
		return apperrors.NewUnavailable("storage unavailable", err)
	}
	return apperrors.NewInternalError(fmt.Errorf("%s: %w", op, err))
}

func notFound(id string) error {
	return apperrors.NewNotFound("oem return", map[string]any{"id": id})
}

func agentActor(actor *domain.Agent) events.Actor {
	if actor == nil {
		return events.Actor{}
	}
	return events.Actor{AgentID: actor.ID, AgentName: actor.Name}
}
