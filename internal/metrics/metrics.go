package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ricirt/video-download-worker/internal/bus"
	"github.com/ricirt/video-download-worker/internal/domain"
	"github.com/ricirt/video-download-worker/internal/service"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	JobsTotal                *prometheus.CounterVec
	JobFailures              *prometheus.CounterVec
	JobDuration              prometheus.Histogram
	DownloadedBytes          prometheus.Counter
	PublishFailures          prometheus.Counter
	BrokerConnected          prometheus.Gauge
	BrokerConnectionAttempts *prometheus.CounterVec
	QueueDepth               prometheus.GaugeFunc
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct. queueDepth is sampled at scrape time.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer, queueDepth func() int) *Metrics {
	m := &Metrics{
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_jobs_total",
			Help: "Total number of finished download jobs by outcome.",
		}, []string{"outcome"}),

		JobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_job_failures_total",
			Help: "Failed download jobs by the stage that failed.",
		}, []string{"reason"}),

		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "video_job_duration_seconds",
			Help:    "Time from dequeue to stored file for successful jobs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}),

		DownloadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "video_downloaded_bytes_total",
			Help: "Bytes written to the output directory.",
		}),

		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_publish_failures_total",
			Help: "Notifications the broker did not acknowledge.",
		}),

		BrokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "broker_connected",
			Help: "1 while the broker connection is up, 0 otherwise.",
		}),

		BrokerConnectionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broker_connection_attempts_total",
			Help: "Broker connect attempts by result.",
		}, []string{"result"}),

		QueueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "job_queue_depth",
			Help: "Inbound messages waiting for a worker.",
		}, func() float64 { return float64(queueDepth()) }),
	}

	reg.MustRegister(
		m.JobsTotal,
		m.JobFailures,
		m.JobDuration,
		m.DownloadedBytes,
		m.PublishFailures,
		m.BrokerConnected,
		m.BrokerConnectionAttempts,
		m.QueueDepth,
	)

	return m
}

// JobHooks returns the metric callbacks expected by service.MetricHooks.
// Centralises the prometheus observation calls so the service stays import-free.
func (m *Metrics) JobHooks() service.MetricHooks {
	return service.MetricHooks{
		OnSucceeded: func(latency time.Duration, bytes int64) {
			m.JobsTotal.WithLabelValues(string(domain.OutcomeSuccess)).Inc()
			m.JobDuration.Observe(latency.Seconds())
			m.DownloadedBytes.Add(float64(bytes))
		},
		OnFailed: func(reason domain.FailureReason) {
			m.JobsTotal.WithLabelValues(string(domain.OutcomeFailure)).Inc()
			m.JobFailures.WithLabelValues(string(reason)).Inc()
		},
		OnPublishFailed: func() {
			m.PublishFailures.Inc()
		},
	}
}

// BusHooks returns the broker connection callbacks expected by bus.Hooks.
func (m *Metrics) BusHooks() bus.Hooks {
	return bus.Hooks{
		OnConnectionChange: func(connected bool) {
			if connected {
				m.BrokerConnected.Set(1)
				return
			}
			m.BrokerConnected.Set(0)
		},
		OnConnectAttempt: func(err error) {
			result := "success"
			if err != nil {
				result = "failure"
			}
			m.BrokerConnectionAttempts.WithLabelValues(result).Inc()
		},
	}
}
