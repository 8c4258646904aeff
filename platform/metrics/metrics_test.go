package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLeadMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)

	m.LeadCreated("展会")
	m.LeadCreated("")
	m.FollowUpLogged()
	m.Reassigned("sweep", 3)
	m.Reassigned("sweep", 0)
	m.RowsImported(7, 2)
	m.ObserveJob("stale_sweep", 120*time.Millisecond, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.created.WithLabelValues("展会")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.created.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.followUps))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.reassigned.WithLabelValues("sweep")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.importedRows.WithLabelValues("inserted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.importedRows.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobFailure.WithLabelValues("stale_sweep")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.jobDuration))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *LeadMetrics
	m.LeadCreated("x")
	m.FollowUpLogged()
	m.Reassigned("manual", 1)
	m.RowsImported(1, 1)
	m.ObserveJob("x", time.Second, nil)

	unregistered := NewLeadMetrics(nil)
	unregistered.LeadCreated("x")
}
