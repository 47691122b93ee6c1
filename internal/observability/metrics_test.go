package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/returns", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/returns", "GET", 200, 30*time.Millisecond)
	m.RecordError("/returns/:id", "PATCH", "NOT_FOUND")
	m.RecordPatchedField("status")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/returns|GET|200"])
	assert.Equal(t, int64(20), snap.AvgLatencyMilli["/returns|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/returns/:id|PATCH|NOT_FOUND"])
	assert.Equal(t, int64(1), snap.PatchedFields["status"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordPatchedField("status")
	assert.Empty(t, m.Snapshot().Requests)
}
