package prometheus

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersWithoutPanic(t *testing.T) {
	// Two instances must coexist: the registry is private, never global.
	a := NewMetrics()
	b := NewMetrics()
	assert.NotNil(t, a)
	assert.NotNil(t, b)
}

func TestObserveComputationAndExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveComputation(time.Now().Add(-time.Millisecond), nil, false)
	m.ObserveComputation(time.Now(), fmt.Errorf("boom"), true)
	m.AlertsFiredTotal.Inc()
	m.SchedulerDegraded.Set(1)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `prazo_computations_total{best_effort="false",outcome="ok"} 1`)
	assert.Contains(t, body, `prazo_computations_total{best_effort="true",outcome="error"} 1`)
	assert.Contains(t, body, "prazo_alerts_fired_total 1")
	assert.Contains(t, body, "prazo_scheduler_degraded 1")
}
