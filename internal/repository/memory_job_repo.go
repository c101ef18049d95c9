package repository

import (
	"container/list"
	"context"
	"sync"

	"github.com/ricirt/video-download-worker/internal/domain"
)

// MemoryJobRepository is a bounded, insertion-ordered job history.
// Once capacity is reached the oldest job is evicted.
type MemoryJobRepository struct {
	mu       sync.RWMutex
	capacity int
	order    *list.List // front = newest
	index    map[string]*list.Element
}

func NewMemoryJobRepository(capacity int) *MemoryJobRepository {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryJobRepository{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Save inserts or replaces a job. Replacing does not change its position.
func (m *MemoryJobRepository) Save(_ context.Context, job *domain.Job) error {
	clone := job.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.index[job.ID]; ok {
		el.Value = clone
		return nil
	}

	m.index[job.ID] = m.order.PushFront(clone)
	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.index, oldest.Value.(*domain.Job).ID)
	}
	return nil
}

func (m *MemoryJobRepository) GetByID(_ context.Context, id string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.index[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return el.Value.(*domain.Job).Clone(), nil
}

func (m *MemoryJobRepository) List(_ context.Context, limit int) ([]*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > m.order.Len() {
		limit = m.order.Len()
	}
	result := make([]*domain.Job, 0, limit)
	for el := m.order.Front(); el != nil && len(result) < limit; el = el.Next() {
		result = append(result, el.Value.(*domain.Job).Clone())
	}
	return result, nil
}

var _ JobRepository = (*MemoryJobRepository)(nil)
