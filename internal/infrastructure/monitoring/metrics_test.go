package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRun(t *testing.T) {
	m := NewMetricsFor(prometheus.NewRegistry())

	m.RecordRun("ok", 10*time.Millisecond)
	m.RecordRun("ok", 20*time.Millisecond)
	m.RecordRun("script_failure", 5*time.Millisecond)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("runs ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("script_failure")); got != 1 {
		t.Errorf("runs script_failure = %v, want 1", got)
	}
}

func TestIsolateGauges(t *testing.T) {
	m := NewMetricsFor(prometheus.NewRegistry())

	m.IsolatesActive.Set(3)
	m.IsolatesCreated.Inc()
	m.IsolatesDestroyed.Inc()

	if got := testutil.ToFloat64(m.IsolatesActive); got != 3 {
		t.Errorf("active = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.IsolatesCreated); got != 1 {
		t.Errorf("created = %v, want 1", got)
	}
}

func TestUpdateUptime(t *testing.T) {
	m := NewMetricsFor(prometheus.NewRegistry())
	m.UpdateUptime()
	if got := testutil.ToFloat64(m.Uptime); got < 0 {
		t.Errorf("uptime = %v, want non-negative", got)
	}
}
