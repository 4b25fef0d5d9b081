package metrics

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentweave/a2a/protocol"
)

func TestRecorder_TaskCreatedIncrementsCounters(t *testing.T) {
	r := NewRecorder()
	before := testutil.ToFloat64(tasksCreatedTotal.WithLabelValues("metrics-test-skill"))

	r.TaskCreated("metrics-test-skill")

	after := testutil.ToFloat64(tasksCreatedTotal.WithLabelValues("metrics-test-skill"))
	assert.Equal(t, before+1, after)
}

func TestRecorder_TaskSettledRecordsDurationAndStatus(t *testing.T) {
	r := NewRecorder()
	before := testutil.ToFloat64(tasksSettledTotal.WithLabelValues("metrics-test-skill", string(protocol.TaskCompleted)))

	r.TaskSettled("metrics-test-skill", protocol.TaskCompleted, 250*time.Millisecond)

	after := testutil.ToFloat64(tasksSettledTotal.WithLabelValues("metrics-test-skill", string(protocol.TaskCompleted)))
	assert.Equal(t, before+1, after)
}

func TestExporter_HandlerServesMetrics(t *testing.T) {
	exp := NewExporter(":0")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)

	exp.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "a2a_tasks_created_total")
	assert.Contains(t, rec.Body.String(), "a2a_tasks_active")
}

func TestExporter_ShutdownWithoutStartIsNoop(t *testing.T) {
	exp := NewExporter(":0")
	assert.NoError(t, exp.Shutdown(context.Background()))
}
