package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	CasesTotal       *prometheus.CounterVec
	CaseDuration     *prometheus.HistogramVec
	Confidence       *prometheus.HistogramVec
	RemoteOpsTotal   *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	IssuesPerCase    *prometheus.HistogramVec
	AutoActionsTotal prometheus.Counter
	BreakerOpens     *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_cases_total",
			Help: "Processed cases by verdict and terminal status.",
		}, []string{"verdict", "status"}),
		CaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_case_duration_seconds",
			Help:    "Duration of case processing attempts in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"status"}),
		Confidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_classification_confidence",
			Help:    "Confidence score per classification.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 .. 1.0
		}, []string{"verdict"}),
		RemoteOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_remote_operations_total",
			Help: "Remote collaborator calls by collaborator, operation and outcome.",
		}, []string{"collaborator", "op", "outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_notifications_total",
			Help: "Notification dispatch attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		IssuesPerCase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_issues_per_case",
			Help:    "Issues found per case by severity.",
			Buckets: prometheus.LinearBuckets(0, 1, 12), // 0 .. 11
		}, []string{"severity"}),
		AutoActionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_auto_actions_total",
			Help: "Auto-generation actions attempted.",
		}),
		BreakerOpens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_breaker_opens_total",
			Help: "Circuit breaker open transitions by collaborator.",
		}, []string{"collaborator"}),
	}

	reg.MustRegister(
		m.CasesTotal,
		m.CaseDuration,
		m.Confidence,
		m.RemoteOpsTotal,
		m.Notifications,
		m.IssuesPerCase,
		m.AutoActionsTotal,
		m.BreakerOpens,
	)

	return m
}

// ObserveRemoteOp is shaped to plug into remote.NewCaller's onResult hook.
func (m *Metrics) ObserveRemoteOp(collaborator, op string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.RemoteOpsTotal.WithLabelValues(collaborator, op, outcome).Inc()
}

// ObserveBreakerOpen is shaped to plug into remote.Caller's OnOpen hook.
func (m *Metrics) ObserveBreakerOpen(collaborator string) {
	m.BreakerOpens.WithLabelValues(collaborator).Inc()
}

func (m *Metrics) observeOutcome(o *ProcessingOutcome, result *ClassificationResult, duration float64) {
	status := "completed"
	if !o.Success {
		status = "failed"
	} else if o.Degraded {
		status = "degraded"
	}
	verdict := string(o.Verdict)
	if verdict == "" {
		verdict = "none"
	}
	m.CasesTotal.WithLabelValues(verdict, status).Inc()
	m.CaseDuration.WithLabelValues(status).Observe(duration)
	if result != nil {
		m.Confidence.WithLabelValues(string(result.Verdict)).Observe(result.Confidence)
		m.IssuesPerCase.WithLabelValues("blocking").Observe(float64(len(result.BlockingIssues)))
		m.IssuesPerCase.WithLabelValues("non_blocking").Observe(float64(len(result.NonBlockingIssues)))
	}
}
