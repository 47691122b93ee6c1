package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/returnsdesk/oem-returns/internal/cache"
	"github.com/returnsdesk/oem-returns/internal/domain"
	"github.com/returnsdesk/oem-returns/internal/editsession"
	"github.com/returnsdesk/oem-returns/internal/events"
	"github.com/returnsdesk/oem-returns/internal/observability"
	"github.com/returnsdesk/oem-returns/internal/repository"
	apperrors "github.com/returnsdesk/oem-returns/pkg/util/errorutil"
)

const returnID = "6f1c2a4e-8a53-4d7b-9b1e-0c7f4e1d2a90"

type fakeReturnRepo struct {
	records    map[string]domain.OEMReturn
	lastFilter repository.ReturnFilter
	patches    []domain.Patch
	getCalls   int
	applyErr   error
	afterRead  func()
}

func newFakeReturnRepo(records ...domain.OEMReturn) *fakeReturnRepo {
	repo := &fakeReturnRepo{records: map[string]domain.OEMReturn{}}
	for _, r := range records {
		repo.records[r.ID] = r
	}
	return repo
}

func (f *fakeReturnRepo) GetByID(_ context.Context, id string) (*domain.OEMReturn, error) {
	f.getCalls++
	rec, ok := f.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if hook := f.afterRead; hook != nil {
		f.afterRead = nil
		hook()
	}
	return &rec, nil
}

func (f *fakeReturnRepo) List(_ context.Context, filter repository.ReturnFilter) ([]domain.OEMReturn, int, error) {
	f.lastFilter = filter
	out := make([]domain.OEMReturn, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (f *fakeReturnRepo) ApplyPatch(_ context.Context, id string, patch domain.Patch) (*domain.OEMReturn, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	f.patches = append(f.patches, patch)
	for field, value := range patch {
		switch field {
		case domain.FieldStatus:
			rec.Status = *value
		case domain.FieldOMUpdate:
			rec.OMUpdate = value
		case domain.FieldDesignatedOMAgent:
			rec.DesignatedOMAgent = value
		}
	}
	rec.UpdatedAt = rec.UpdatedAt.Add(time.Second)
	f.records[id] = rec
	return &rec, nil
}

type fakeHistoryRepo struct {
	entries []domain.OEMReturnHistory
}

func (f *fakeHistoryRepo) Create(_ context.Context, entry *domain.OEMReturnHistory) error {
	entry.ID = "h"
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByReturn(_ context.Context, id string, _, _ int) ([]domain.OEMReturnHistory, error) {
	var out []domain.OEMReturnHistory
	for _, e := range f.entries {
		if e.ReturnID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeCache struct {
	items  map[string]domain.OEMReturn
	getErr error
}

func newFakeCache() *fakeCache { return &fakeCache{items: map[string]domain.OEMReturn{}} }

func (c *fakeCache) Get(_ context.Context, id string) (*domain.OEMReturn, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	rec, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (c *fakeCache) Set(_ context.Context, rec *domain.OEMReturn) error {
	if cached, ok := c.items[rec.ID]; ok && cache.Supersedes(&cached, rec) {
		return nil
	}
	c.items[rec.ID] = *rec
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id string) error {
	delete(c.items, id)
	return nil
}

type fixture struct {
	svc      *ReturnService
	repo     *fakeReturnRepo
	history  *fakeHistoryRepo
	cache    *fakeCache
	metrics  *observability.Metrics
	received []events.Event
}

func strPtr(s string) *string { return &s }

func newFixture(t *testing.T, records ...domain.OEMReturn) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newFakeReturnRepo(records...),
		history: &fakeHistoryRepo{},
		cache:   newFakeCache(),
		metrics: observability.NewMetrics(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	record := func(_ context.Context, e events.Event) error {
		f.received = append(f.received, e)
		return nil
	}
	dispatcher.Subscribe(events.EventReturnUpdated, record)
	dispatcher.Subscribe(events.EventReturnReassigned, record)
	f.svc = NewReturnService(ReturnDependencies{
		ReturnRepo:  f.repo,
		HistoryRepo: f.history,
		Cache:       f.cache,
		Dispatcher:  dispatcher,
		Metrics:     f.metrics,
		Logger:      zap.NewNop(),
	})
	return f
}

func sampleReturn() domain.OEMReturn {
	return domain.OEMReturn{
		ID:                returnID,
		OrderNumber:       strPtr("SO-1001"),
		Status:            "Open",
		DesignatedOMAgent: strPtr("Bob"),
	}
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	return de.Code
}

func TestListClampsPaging(t *testing.T) {
	f := newFixture(t, sampleReturn())

	page, err := f.svc.List(context.Background(), ReturnListFilter{Page: 3, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 2*MaxPageSize, f.repo.lastFilter.Offset)
	assert.Equal(t, 1, page.Total)

	page, err = f.svc.List(context.Background(), ReturnListFilter{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Equal(t, 1, page.Page)
	assert.Zero(t, f.repo.lastFilter.Offset)
}

func TestGetUsesCache(t *testing.T) {
	f := newFixture(t, sampleReturn())
	ctx := context.Background()

	first, err := f.svc.Get(ctx, returnID)
	require.NoError(t, err)
	second, err := f.svc.Get(ctx, returnID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.repo.getCalls)
}

func TestGetDoesNotCacheRowOlderThanConcurrentUpdate(t *testing.T) {
	f := newFixture(t, sampleReturn())
	ctx := context.Background()

	f.repo.afterRead = func() {
		_, err := f.svc.Update(ctx, &domain.Agent{ID: "a-1"}, returnID, domain.Patch{domain.FieldStatus: strPtr("Closed")})
		require.NoError(t, err)
	}
	stale, err := f.svc.Get(ctx, returnID)
	require.NoError(t, err)
	assert.Equal(t, "Open", stale.Status)

	fresh, err := f.svc.Get(ctx, returnID)
	require.NoError(t, err)
	assert.Equal(t, "Closed", fresh.Status)
	assert.Equal(t, "Closed", f.cache.items[returnID].Status)
}

func TestGetFallsBackWhenCacheFails(t *testing.T) {
	f := newFixture(t, sampleReturn())
	f.cache.getErr = errors.New("redis down")

	rec, err := f.svc.Get(context.Background(), returnID)
	require.NoError(t, err)
	assert.Equal(t, "Open", rec.Status)
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), "not-a-uuid")
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))

	_, err = f.svc.Get(context.Background(), returnID)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestUpdateAppliesOnlyChangedFields(t *testing.T) {
	f := newFixture(t, sampleReturn())
	actor := &domain.Agent{ID: "a-1", Name: "Alice"}

	updated, err := f.svc.Update(context.Background(), actor, returnID, domain.Patch{
		domain.FieldStatus:   strPtr("Closed"),
		domain.FieldOMUpdate: strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Closed", updated.Status)

	require.Len(t, f.repo.patches, 1)
	assert.Len(t, f.repo.patches[0], 2)
	require.Len(t, f.history.entries, 2)
	assert.Equal(t, "Alice", *f.history.entries[0].ChangedBy)

	require.Len(t, f.received, 1)
	assert.Equal(t, events.EventReturnUpdated, f.received[0].Type)
	assert.NotEmpty(t, f.received[0].ID)

	cached, ok := f.cache.items[returnID]
	require.True(t, ok)
	assert.Equal(t, "Closed", cached.Status)
	assert.Equal(t, int64(1), f.metrics.Snapshot().PatchedFields["status"])
}

func TestUpdateClearsAgentAndPublishesReassignment(t *testing.T) {
	f := newFixture(t, sampleReturn())

	updated, err := f.svc.Update(context.Background(), nil, returnID, domain.Patch{
		domain.FieldDesignatedOMAgent: strPtr("   "),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.DesignatedOMAgent)
	require.Len(t, f.received, 2)
	assert.Equal(t, events.EventReturnReassigned, f.received[1].Type)
	payload := f.received[1].Payload.(events.ReturnReassignedPayload)
	assert.Equal(t, "Bob", *payload.PreviousAgent)
	assert.Nil(t, payload.NewAgent)
}

func TestUpdateRedundantPatchIsNoop(t *testing.T) {
	f := newFixture(t, sampleReturn())

	rec, err := f.svc.Update(context.Background(), nil, returnID, domain.Patch{
		domain.FieldStatus:            strPtr("Open"),
		domain.FieldDesignatedOMAgent: strPtr(" Bob "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Open", rec.Status)
	assert.Empty(t, f.repo.patches)
	assert.Empty(t, f.history.entries)
	assert.Empty(t, f.received)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t, sampleReturn())
	ctx := context.Background()

	tests := []struct {
		name  string
		id    string
		patch domain.Patch
		code  string
	}{
		{name: "empty patch", id: returnID, patch: domain.Patch{}, code: "VALIDATION_FAILED"},
		{name: "read-only field", id: returnID, patch: domain.Patch{domain.Field("sku"): strPtr("X")}, code: "VALIDATION_FAILED"},
		{name: "null status", id: returnID, patch: domain.Patch{domain.FieldStatus: nil}, code: "VALIDATION_FAILED"},
		{name: "unknown id", id: "8d0f7a9e-3c1b-4c55-9a11-2b6f0c3e4d5f", patch: domain.Patch{domain.FieldStatus: strPtr("Closed")}, code: "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(ctx, nil, tt.id, tt.patch)
			assert.Equal(t, tt.code, domainCode(t, err))
		})
	}
}

func TestUpdateStorageUnavailable(t *testing.T) {
	f := newFixture(t, sampleReturn())
	f.repo.applyErr = repository.ErrNoDatabase

	_, err := f.svc.Update(context.Background(), nil, returnID, domain.Patch{domain.FieldStatus: strPtr("Closed")})
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", domainCode(t, err))
}

func TestHistory(t *testing.T) {
	f := newFixture(t, sampleReturn())
	ctx := context.Background()
	_, err := f.svc.Update(ctx, &domain.Agent{ID: "a-2"}, returnID, domain.Patch{domain.FieldOMUpdate: strPtr("shipped label")})
	require.NoError(t, err)

	entries, err := f.svc.History(ctx, returnID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.FieldOMUpdate, entries[0].Field)
	assert.Nil(t, entries[0].OldValue)
	assert.Equal(t, "a-2", *entries[0].ChangedBy)
}

func TestSessionSavesThroughService(t *testing.T) {
	f := newFixture(t, sampleReturn())
	ctx := context.Background()

	session := editsession.New(f.svc.Updater(&domain.Agent{ID: "a-1", Name: "Alice"}))
	rec, err := f.svc.Get(ctx, returnID)
	require.NoError(t, err)
	require.NoError(t, session.Open(*rec))
	require.NoError(t, session.SetField(domain.FieldStatus, "Closed"))

	outcome, err := session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, editsession.SaveApplied, outcome)
	assert.False(t, session.IsOpen())
	assert.Equal(t, "Closed", f.repo.records[returnID].Status)
	require.Len(t, f.repo.patches, 1)
	assert.Len(t, f.repo.patches[0], 1)
}

func TestUpdateFailureEvictsCachedRecord(t *testing.T) {
	f := newFixture(t, sampleReturn())
	ctx := context.Background()

	_, err := f.svc.Get(ctx, returnID)
	require.NoError(t, err)
	require.Contains(t, f.cache.items, returnID)

	f.repo.applyErr = errors.New("connection reset")
	_, err = f.svc.Update(ctx, &domain.Agent{ID: "a-1"}, returnID, domain.Patch{domain.FieldStatus: strPtr("Closed")})
	require.Error(t, err)
	assert.Equal(t, "INTERNAL_ERROR", domainCode(t, err))
	assert.NotContains(t, f.cache.items, returnID)
	assert.Empty(t, f.received)
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		name               string
		page, size         int
		wantPage, wantSize int
	}{
		{name: "defaults", page: 0, size: 0, wantPage: 1, wantSize: DefaultPageSize},
		{name: "in range", page: 4, size: 50, wantPage: 4, wantSize: 50},
		{name: "oversized", page: MaxPage + 10, size: MaxPageSize * 5, wantPage: MaxPage, wantSize: MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, size := ClampPage(tt.page, tt.size, DefaultPageSize)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestListHugePageStaysInRange(t *testing.T) {
	f := newFixture(t, sampleReturn())

	page, err := f.svc.List(context.Background(), ReturnListFilter{Page: math.MaxInt, PageSize: MaxPageSize})
	require.NoError(t, err)
	assert.Equal(t, MaxPage, page.Page)
	assert.Equal(t, (MaxPage-1)*MaxPageSize, f.repo.lastFilter.Offset)
}

func TestHistoryWithoutRepositoryStillChecksReturn(t *testing.T) {
	svc := NewReturnService(ReturnDependencies{ReturnRepo: newFakeReturnRepo(sampleReturn())})
	ctx := context.Background()

	_, err := svc.History(ctx, "not-a-uuid", 0, 0)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	_, err = svc.History(ctx, "8d0f7a9e-3c1b-4c55-9a11-2b6f0c3e4d5f", 0, 0)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))

	entries, err := svc.History(ctx, returnID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
