package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/returnsdesk/oem-returns/internal/domain"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "oem_return:42", Key("42"))
}

func TestNilClientNeverHits(t *testing.T) {
	c := NewRedisRecordCache(nil, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &domain.OEMReturn{ID: "1"}))
	got, ok, err := c.Get(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, c.Invalidate(ctx, "1"))
}

func TestSupersedes(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := &domain.OEMReturn{ID: "1", UpdatedAt: base}
	newer := &domain.OEMReturn{ID: "1", UpdatedAt: base.Add(time.Second)}

	assert.True(t, Supersedes(newer, older))
	assert.False(t, Supersedes(older, newer))
	assert.False(t, Supersedes(older, &domain.OEMReturn{ID: "1", UpdatedAt: base}))
}
