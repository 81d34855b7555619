package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

// WorkerMetrics covers queue-driven case processing and the verification
// outcomes themselves. It doubles as the pipeline's ProcessObserver.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec

	fraudScore       *prometheus.HistogramVec
	caseRiskTotal    *prometheus.CounterVec
	faceMatchTotal   *prometheus.CounterVec
	missingFields    *prometheus.HistogramVec
	plannerPicks     *prometheus.CounterVec
	plannerFallbacks *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "worker",
			Name:      "case_process_total",
			Help:      "Total processed verification cases by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kyc",
			Subsystem: "worker",
			Name:      "case_process_duration_seconds",
			Help:      "Case processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kyc",
			Subsystem: "worker",
			Name:      "case_process_in_flight",
			Help:      "Number of in-flight case processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kyc",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between case submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	fraudScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kyc",
			Subsystem: "fraud",
			Name:      "score",
			Help:      "Distribution of fraud scores across processed cases.",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"service"},
	)
	caseRiskTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "fraud",
			Name:      "case_risk_total",
			Help:      "Total processed cases by risk level.",
		},
		[]string{"service", "risk"},
	)
	faceMatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "face",
			Name:      "match_total",
			Help:      "Total face comparisons by outcome.",
		},
		[]string{"service", "outcome"},
	)
	missingFields := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kyc",
			Subsystem: "fields",
			Name:      "missing_per_case",
			Help:      "Distribution of missing document fields per case.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
		},
		[]string{"service"},
	)
	plannerPicks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "planner",
			Name:      "picks_total",
			Help:      "Total pipeline steps chosen by the planner.",
		},
		[]string{"service"},
	)
	plannerFallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "planner",
			Name:      "fallbacks_total",
			Help:      "Total pipeline steps taken from the fixed order instead of the planner.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		processTotal, processDuration, processInFlight, queueLag,
		fraudScore, caseRiskTotal, faceMatchTotal, missingFields,
		plannerPicks, plannerFallbacks,
	)

	return &WorkerMetrics{
		service:          service,
		registry:         registry,
		processTotal:     processTotal,
		processDuration:  processDuration,
		processInFlight:  processInFlight,
		queueLag:         queueLag,
		fraudScore:       fraudScore,
		caseRiskTotal:    caseRiskTotal,
		faceMatchTotal:   faceMatchTotal,
		missingFields:    missingFields,
		plannerPicks:     plannerPicks,
		plannerFallbacks: plannerFallbacks,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartCase() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishCase(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

// ObserveCaseProcessed records the verification outcome of one case.
func (m *WorkerMetrics) ObserveCaseProcessed(kycCase *domain.VerificationCase, plannedPicks, fallbacks int) {
	m.fraudScore.WithLabelValues(m.service).Observe(float64(kycCase.Fraud.Score))
	if kycCase.Fraud.Risk != "" {
		m.caseRiskTotal.WithLabelValues(m.service, string(kycCase.Fraud.Risk)).Inc()
	}
	m.missingFields.WithLabelValues(m.service).Observe(float64(len(kycCase.Fields.Missing())))

	if kycCase.Face.Checked {
		outcome := "mismatch"
		if kycCase.Face.Matched {
			outcome = "match"
		}
		m.faceMatchTotal.WithLabelValues(m.service, outcome).Inc()
	}

	if plannedPicks > 0 {
		m.plannerPicks.WithLabelValues(m.service).Add(float64(plannedPicks))
	}
	if fallbacks > 0 {
		m.plannerFallbacks.WithLabelValues(m.service).Add(float64(fallbacks))
	}
}
