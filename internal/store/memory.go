package store

import (
	"context"
	"sync"

	"github.com/AngelCh415/roi-insights/internal/models"
)

type MemoryStore struct {
	mu   sync.RWMutex
	rows []models.RoiRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ReplaceAll builds the new dataset aside and swaps it in under the write lock.
func (s *MemoryStore) ReplaceAll(ctx context.Context, recs []models.RoiRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := make([]models.RoiRecord, len(recs))
	copy(next, recs)
	sortRecords(next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = next
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, q models.RoiQuery) ([]models.RoiRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.RoiRecord{}
	for _, r := range s.rows {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
