package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aescanero/dapo/pkg/domain"
)

// InMemoryRunStore implements RunStore using an in-memory map.
type InMemoryRunStore struct {
	mu      sync.RWMutex
	records map[string]*domain.RunRecord
}

// NewInMemoryRunStore creates a new in-memory run store
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		records: make(map[string]*domain.RunRecord),
	}
}

// SaveRecord persists a run record, replacing any previous version.
func (s *InMemoryRunStore) SaveRecord(ctx context.Context, rec *domain.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Shallow copy to avoid mutation through the caller's pointer
	cp := *rec
	s.records[rec.PipelineID] = &cp
	return nil
}

// GetRecord retrieves the record for a pipeline id.
func (s *InMemoryRunStore) GetRecord(ctx context.Context, pipelineID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[pipelineID]
	if !ok {
		return nil, fmt.Errorf("run record not found: %s", pipelineID)
	}

	cp := *rec
	return &cp, nil
}

// ListRecords returns all recorded pipeline ids.
func (s *InMemoryRunStore) ListRecords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteRecord removes the record for a pipeline id.
func (s *InMemoryRunStore) DeleteRecord(ctx context.Context, pipelineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, pipelineID)
	return nil
}
