package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ricirt/video-download-worker/internal/api"
	"github.com/ricirt/video-download-worker/internal/bus"
	"github.com/ricirt/video-download-worker/internal/config"
	"github.com/ricirt/video-download-worker/internal/fetcher"
	"github.com/ricirt/video-download-worker/internal/fetcher/youtube"
	"github.com/ricirt/video-download-worker/internal/fetcher/ytdlp"
	"github.com/ricirt/video-download-worker/internal/logging"
	"github.com/ricirt/video-download-worker/internal/metrics"
	"github.com/ricirt/video-download-worker/internal/notifier"
	"github.com/ricirt/video-download-worker/internal/queue"
	"github.com/ricirt/video-download-worker/internal/ratelimiter"
	"github.com/ricirt/video-download-worker/internal/repository"
	"github.com/ricirt/video-download-worker/internal/service"
	"github.com/ricirt/video-download-worker/internal/storage"
	"github.com/ricirt/video-download-worker/internal/subscriber"
	"github.com/ricirt/video-download-worker/internal/worker"
)

const (
	disconnectQuiesce   = 250 // ms
	httpShutdownTimeout = 5 * time.Second
	mediaHeaderTimeout  = 30 * time.Second
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// ---- configuration ----
	cfg, cfgErr := config.Load()
	level := "info"
	if cfgErr == nil {
		level = cfg.LogLevel
	}

	logger, err := logging.New(level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfgErr != nil {
		logger.Fatal("failed to load config", zap.Error(cfgErr))
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	q := queue.New(cfg.QueueSize)
	m := metrics.New(reg, q.Depth)
	jobs := repository.NewMemoryJobRepository(cfg.JobHistorySize)
	store := storage.NewLocalStorage(cfg.OutputDir)

	client := bus.New(bus.Config{
		BrokerURL:       cfg.BrokerURL(),
		ClientID:        cfg.MQTTClientID,
		Username:        cfg.MQTTUsername,
		Password:        cfg.MQTTPassword,
		QoS:             cfg.MQTTQoS,
		ConnectTimeout:  cfg.MQTTConnectTimeout,
		ConnectAttempts: cfg.MQTTConnectAttempts,
		InitialBackoff:  cfg.MQTTConnectInitialBackoff,
		MaxBackoff:      cfg.MQTTConnectMaxBackoff,
	}, logger.Named("bus"), m.BusHooks())

	svc := service.NewDownloadService(
		newFetcher(cfg),
		store,
		notifier.NewBusNotifier(client, cfg.PublishTimeout),
		jobs,
		ratelimiter.New(cfg.DownloadRateLimit),
		service.Options{
			IncludeJobID: cfg.NotifyIncludeJobID,
			JobTimeout:   cfg.JobTimeout,
		},
		logger.Named("job"),
		m.JobHooks(),
	)

	// ---- worker pool ----
	// Jobs get their own context so shutdown can let them finish before
	// cancelling anything.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	pool := worker.NewPool(cfg.Workers, q, svc, logger.Named("worker"))
	pool.Start(jobCtx)

	// ---- HTTP server ----
	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.Deps{
			Jobs:     jobs,
			Queue:    q,
			Broker:   client,
			Workers:  pool.Size(),
			Gatherer: reg,
			Logger:   logger.Named("http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("ops server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", zap.Error(err))
		}
	}()

	// ---- subscriber loop ----
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("video download worker starting",
		zap.String("broker", cfg.BrokerURL()),
		zap.String("client_id", cfg.MQTTClientID),
		zap.String("output_dir", store.Dir()),
		zap.String("fetcher", cfg.Fetcher),
		zap.Int("workers", pool.Size()),
	)

	loop := subscriber.New(client, q, svc, logger.Named("subscriber"))
	runErr := loop.Run(runCtx)
	if runErr != nil && runCtx.Err() != nil {
		// Interrupted while still connecting.
		runErr = nil
	}
	if runErr == nil {
		logger.Info("shutdown signal received")
	}
	stop()

	// ---- graceful shutdown ----
	gracefulShutdown(shutdownSteps{
		closeQueue:  q.Close,
		queued:      q.Depth,
		pool:        pool,
		cancelJobs:  cancelJobs,
		waitRejects: loop.Wait,
		disconnect:  func() { client.Disconnect(disconnectQuiesce) },
		stopHTTP:    srv.Shutdown,
	}, cfg.ShutdownTimeout, logger)

	if runErr != nil {
		logger.Fatal("subscriber loop failed", zap.Error(runErr))
	}
	logger.Info("worker stopped cleanly")
}

// newFetcher picks the media fetcher named by FETCHER.
func newFetcher(cfg *config.Config) fetcher.Fetcher {
	if cfg.Fetcher == config.FetcherYtDlp {
		return ytdlp.New(cfg.YtDlpPath, fetcher.NewHTTPStreamer(mediaHeaderTimeout))
	}
	return youtube.New(&http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: mediaHeaderTimeout,
		},
	})
}
