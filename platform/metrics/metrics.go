// Package metrics exposes Prometheus collectors for the lead lifecycle
// and for scheduled jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LeadMetrics counts lead lifecycle activity. A nil *LeadMetrics is a no-op.
type LeadMetrics struct {
	created      *prometheus.CounterVec
	followUps    prometheus.Counter
	reassigned   *prometheus.CounterVec
	importedRows *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobFailure   *prometheus.CounterVec
}

// NewLeadMetrics registers the lead collectors on reg.
func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	if reg == nil {
		return &LeadMetrics{}
	}
	m := &LeadMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "Leads created, by channel.",
		}, []string{"channel"}),
		followUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lead_follow_ups_total",
			Help: "Follow-up records appended.",
		}),
		reassigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_reassignments_total",
			Help: "Ownership changes, by trigger.",
		}, []string{"trigger"}),
		importedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_import_rows_total",
			Help: "Imported spreadsheet rows, by result.",
		}, []string{"result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lead_job_duration_seconds",
			Help:    "Duration of lead maintenance jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		jobFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_job_failure_total",
			Help: "Failed lead maintenance jobs.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.created, m.followUps, m.reassigned, m.importedRows, m.jobDuration, m.jobFailure)
	return m
}

// LeadCreated counts one new lead.
func (m *LeadMetrics) LeadCreated(channel string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(channel)).Inc()
}

// FollowUpLogged counts one follow-up.
func (m *LeadMetrics) FollowUpLogged() {
	if m == nil || m.followUps == nil {
		return
	}
	m.followUps.Inc()
}

// Reassigned counts n ownership changes made by trigger ("sweep", "manual").
func (m *LeadMetrics) Reassigned(trigger string, n int) {
	if m == nil || m.reassigned == nil || n <= 0 {
		return
	}
	m.reassigned.WithLabelValues(normalizeLabel(trigger)).Add(float64(n))
}

// RowsImported counts inserted and skipped rows of one import.
func (m *LeadMetrics) RowsImported(inserted, skipped int) {
	if m == nil || m.importedRows == nil {
		return
	}
	m.importedRows.WithLabelValues("inserted").Add(float64(inserted))
	m.importedRows.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveJob records the duration and outcome of a maintenance job.
func (m *LeadMetrics) ObserveJob(job string, elapsed time.Duration, err error) {
	if m == nil || m.jobDuration == nil {
		return
	}
	job = normalizeLabel(job)
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.jobFailure.WithLabelValues(job).Inc()
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
