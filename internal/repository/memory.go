package repository

import (
	"context"
	"sync"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/models"
)

// MemoryRepository keeps runs in process memory. It is used when no database is configured.
type MemoryRepository struct {
	mu   sync.RWMutex
	runs map[string]models.Run
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[string]models.Run)}
}

func (m *MemoryRepository) SaveRun(_ context.Context, run models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[run.ID] = run

	return nil
}

func (m *MemoryRepository) GetRun(_ context.Context, id string) (*models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}

	return &run, nil
}

func (m *MemoryRepository) DeleteRunsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, run := range m.runs {
		if run.CreatedAt.Before(cutoff) {
			delete(m.runs, id)
			deleted++
		}
	}

	return deleted, nil
}
