package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ricirt/video-download-worker/internal/domain"
	"github.com/ricirt/video-download-worker/internal/fetcher"
	"github.com/ricirt/video-download-worker/internal/notifier"
	"github.com/ricirt/video-download-worker/internal/repository"
)

// DefaultExtension is appended to the job id to name the stored file.
const DefaultExtension = "mp4"

// Storage persists a media stream under a file name.
type Storage interface {
	Save(ctx context.Context, filename string, r io.Reader) (path string, n int64, err error)
}

// Throttle gates how fast downloads may start.
type Throttle interface {
	Wait(ctx context.Context) error
}

// MetricHooks carries the metric callback functions injected by main.
type MetricHooks struct {
	OnSucceeded     func(latency time.Duration, bytes int64)
	OnFailed        func(reason domain.FailureReason)
	OnPublishFailed func()
}

// Options tunes job handling.
type Options struct {
	// Extension of stored files, without the dot. Defaults to mp4.
	Extension string
	// IncludeJobID appends the job id to success notifications.
	IncludeJobID bool
	// JobTimeout bounds a single job. Zero means no deadline.
	JobTimeout time.Duration
}

// DownloadService turns one inbound message into one stored file and exactly
// one outbound notification. Failures are reported on the outbound topic and
// in the logs; they are never returned to the caller.
type DownloadService struct {
	fetcher  fetcher.Fetcher
	storage  Storage
	notifier notifier.Notifier
	jobs     repository.JobRepository
	throttle Throttle
	opts     Options
	logger   *zap.Logger
	hooks    MetricHooks

	newID func() string
	now   func() time.Time
}

func NewDownloadService(
	f fetcher.Fetcher,
	storage Storage,
	n notifier.Notifier,
	jobs repository.JobRepository,
	throttle Throttle,
	opts Options,
	logger *zap.Logger,
	hooks MetricHooks,
) *DownloadService {
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if hooks.OnSucceeded == nil {
		hooks.OnSucceeded = func(time.Duration, int64) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(domain.FailureReason) {}
	}
	if hooks.OnPublishFailed == nil {
		hooks.OnPublishFailed = func() {}
	}
	return &DownloadService{
		fetcher:  f,
		storage:  storage,
		notifier: n,
		jobs:     jobs,
		throttle: throttle,
		opts:     opts,
		logger:   logger,
		hooks:    hooks,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes one inbound payload to completion and returns the
// finished job. It always publishes exactly one notification.
func (s *DownloadService) Handle(ctx context.Context, payload []byte) *domain.Job {
	start := s.now()
	job := domain.NewJob(s.newID(), start)
	log := s.logger.With(zap.String("job_id", job.ID))

	if s.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.JobTimeout)
		defer cancel()
	}

	err := s.run(ctx, job, payload, log)
	if err != nil {
		job.Fail(err, s.now())
		s.record(ctx, job, log)
		log.Error("video download failed",
			zap.String("url", job.SourceURL),
			zap.String("reason", string(job.FailureReason)),
			zap.Error(err),
		)
		s.hooks.OnFailed(job.FailureReason)
		s.publish(ctx, domain.FailureNotification(), log)
		return job
	}

	elapsed := s.now().Sub(start)
	s.record(ctx, job, log)
	log.Info("video download finished",
		zap.String("url", job.SourceURL),
		zap.String("title", job.Title),
		zap.String("path", job.FilePath),
		zap.Int64("bytes", job.Bytes),
		zap.Duration("latency", elapsed),
	)
	s.hooks.OnSucceeded(elapsed, job.Bytes)
	s.publish(ctx, domain.SuccessNotification(job.Title, job.ID, s.opts.IncludeJobID), log)
	return job
}

func (s *DownloadService) run(ctx context.Context, job *domain.Job, payload []byte, log *zap.Logger) error {
	if !utf8.Valid(payload) {
		return fmt.Errorf("decode payload (%d bytes): %w", len(payload), domain.ErrDecode)
	}
	job.SourceURL = strings.TrimSpace(string(payload))
	s.record(ctx, job, log)
	log.Info("video download started", zap.String("url", job.SourceURL))

	if s.throttle != nil {
		if err := s.throttle.Wait(ctx); err != nil {
			return fmt.Errorf("%w: waiting for download slot: %v", domain.ErrFetch, err)
		}
	}

	media, err := s.fetcher.Fetch(ctx, job.SourceURL)
	if err != nil {
		return err
	}
	defer media.Body.Close()
	job.Title = media.Title
	log.Debug("media resolved", zap.String("title", media.Title), zap.Int64("expected_bytes", media.Size))

	path, n, err := s.storage.Save(ctx, job.ID+"."+s.opts.Extension, media.Body)
	if err != nil {
		return err
	}
	job.Succeed(path, n, s.now())
	return nil
}

// Reject reports a message that never reached a worker, for example because
// the queue was full or already closed.
func (s *DownloadService) Reject(ctx context.Context, payload []byte, cause error) {
	log := s.logger.With(zap.Int("payload_bytes", len(payload)))
	log.Error("video download rejected", zap.Error(cause))
	s.hooks.OnFailed(domain.ReasonFor(cause))
	s.publish(ctx, domain.FailureNotification(), log)
}

// publish sends n on a context detached from job cancellation, so a job that
// timed out or was cancelled by shutdown still reports its failure.
//
// A failed publish is the most severe condition a job can hit, but it is
// logged at error rather than fatal: zap's Fatal exits the process, and the
// worker must keep consuming. notification_publish_failures_total counts it.
func (s *DownloadService) publish(ctx context.Context, n domain.Notification, log *zap.Logger) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		s.hooks.OnPublishFailed()
		log.Error("failed to publish notification",
			zap.String("topic", n.Topic),
			zap.String("payload", n.Payload),
			zap.Error(err),
		)
		return
	}
	log.Debug("notification published", zap.String("topic", n.Topic))
}

func (s *DownloadService) record(ctx context.Context, job *domain.Job, log *zap.Logger) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		log.Warn("failed to record job", zap.Error(err))
	}
}
