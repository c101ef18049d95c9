package repository

import (
	"context"

	"github.com/ricirt/video-download-worker/internal/domain"
)

// JobRepository keeps recently processed jobs for operator inspection.
// Implementations are in-memory only; nothing survives a restart.
// Tests use the memory implementation directly.
type JobRepository interface {
	Save(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	// List returns up to limit jobs, newest first.
	List(ctx context.Context, limit int) ([]*domain.Job, error)
}
