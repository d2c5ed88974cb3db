package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the intake pipeline.
type IntakeMetrics struct {
	linkValidations *prometheus.CounterVec
	uploadURLs      prometheus.Counter
	filesRegistered prometheus.Counter
	finalizations   *prometheus.CounterVec
	filesReconciled prometheus.Counter
	webhookEvents   *prometheus.CounterVec
	finalizeLatency prometheus.Histogram
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		linkValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "preconsulta",
			Subsystem: "links",
			Name:      "validations_total",
			Help:      "Total form-link validations by outcome",
		}, []string{"reason"}),
		uploadURLs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "preconsulta",
			Subsystem: "uploads",
			Name:      "signed_urls_issued_total",
			Help:      "Total signed upload URLs issued",
		}),
		filesRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "preconsulta",
			Subsystem: "uploads",
			Name:      "files_registered_total",
			Help:      "Total pending file metadata rows registered",
		}),
		finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "preconsulta",
			Subsystem: "submissions",
			Name:      "finalizations_total",
			Help:      "Total submission finalizations by status",
		}, []string{"status"}),
		filesReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "preconsulta",
			Subsystem: "submissions",
			Name:      "files_reconciled_total",
			Help:      "Total pending files linked to finalized responses",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "preconsulta",
			Subsystem: "provisioning",
			Name:      "webhook_events_total",
			Help:      "Total Hotmart webhook events by type and status",
		}, []string{"event_type", "status"}),
		finalizeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "preconsulta",
			Subsystem: "submissions",
			Name:      "finalize_latency_seconds",
			Help:      "Latency of the finalize pipeline",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.linkValidations, m.uploadURLs, m.filesRegistered, m.finalizations, m.filesReconciled, m.webhookEvents, m.finalizeLatency)
	return m
}

func (m *IntakeMetrics) ObserveLinkValidation(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "valid"
	}
	m.linkValidations.WithLabelValues(reason).Inc()
}

func (m *IntakeMetrics) ObserveUploadURLIssued() {
	if m == nil {
		return
	}
	m.uploadURLs.Inc()
}

func (m *IntakeMetrics) ObserveFileRegistered() {
	if m == nil {
		return
	}
	m.filesRegistered.Inc()
}

func (m *IntakeMetrics) ObserveFinalization(status string) {
	if m == nil {
		return
	}
	m.finalizations.WithLabelValues(status).Inc()
}

func (m *IntakeMetrics) ObserveFilesReconciled(count int64) {
	if m == nil {
		return
	}
	m.filesReconciled.Add(float64(count))
}

func (m *IntakeMetrics) ObserveWebhookEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, status).Inc()
}

func (m *IntakeMetrics) ObserveFinalizeLatency(seconds float64) {
	if m == nil {
		return
	}
	m.finalizeLatency.Observe(seconds)
}
