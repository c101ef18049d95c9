package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ricirt/video-download-worker/internal/api/handler"
	apimw "github.com/ricirt/video-download-worker/internal/api/middleware"
	"github.com/ricirt/video-download-worker/internal/repository"
)

// Deps are the components the ops surface reads from.
type Deps struct {
	Jobs     repository.JobRepository
	Queue    handler.QueueStats
	Broker   handler.ConnectionChecker
	Workers  int
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. The surface is read-only: jobs arrive over the broker only.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(apimw.RequestID)
	r.Use(apimw.RequestLogger(d.Logger, "/health", "/ready", "/metrics"))

	hh := handler.NewHealthHandler(d.Broker)
	jh := handler.NewJobsHandler(d.Jobs, d.Logger)
	mh := handler.NewMetricsHandler(d.Queue, d.Broker, d.Workers)

	r.Get("/health", hh.Health)
	r.Get("/ready", hh.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/jobs", jh.List)
		r.Get("/jobs/{id}", jh.GetByID)
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
