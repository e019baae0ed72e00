package submission

import (
	"context"
	"sync"
	"time"
)

// InMemoryMetaStore keeps submission metadata in process memory. Used in
// local development and tests.
type InMemoryMetaStore struct {
	mu      sync.Mutex
	records map[int64]*Meta
}

// NewInMemoryMetaStore creates an empty store.
func NewInMemoryMetaStore() *InMemoryMetaStore {
	return &InMemoryMetaStore{records: make(map[int64]*Meta)}
}

var _ MetaStore = (*InMemoryMetaStore)(nil)

func (s *InMemoryMetaStore) Get(ctx context.Context, entryID int64) (*Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[entryID]
	if !ok {
		return nil, ErrMetaNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryMetaStore) ClaimPending(ctx context.Context, meta *Meta) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[meta.EntryID]; exists {
		return false, nil
	}
	cp := *meta
	cp.Status = StatusPending
	cp.StatusUpdatedAt = time.Now().UTC()
	s.records[meta.EntryID] = &cp
	return true, nil
}

func (s *InMemoryMetaStore) ClaimRunning(ctx context.Context, entryID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[entryID]
	if !ok || rec.Status != StatusPending {
		return false, nil
	}
	rec.Status = StatusRunning
	rec.StatusUpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *InMemoryMetaStore) MarkReady(ctx context.Context, entryID int64, content map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[entryID]
	if !ok {
		return ErrMetaNotFound
	}
	rec.Status = StatusReady
	rec.StatusError = ""
	rec.Content = content
	rec.StatusUpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryMetaStore) MarkFailed(ctx context.Context, entryID int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[entryID]
	if !ok {
		return ErrMetaNotFound
	}
	rec.Status = StatusFailed
	rec.StatusError = errMsg
	rec.StatusUpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryMetaStore) ResetPending(ctx context.Context, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[entryID]
	if !ok {
		return ErrMetaNotFound
	}
	rec.Status = StatusPending
	rec.StatusError = ""
	rec.Content = nil
	rec.StatusUpdatedAt = time.Now().UTC()
	return nil
}
