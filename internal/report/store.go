package report

import (
	"context"
	"sort"
	"sync"
)

// Store defines report and section storage.
type Store interface {
	// GetByFormID returns the published report bound to a source form.
	// Exactly one report may be bound to a form; first match wins when
	// that invariant is violated out of band.
	GetByFormID(ctx context.Context, formID int64) (*Report, error)
	GetByID(ctx context.Context, id int64) (*Report, error)
	// ListPublishedSections returns published sections in their
	// configured order. Scoring tie-breaks depend on that order.
	ListPublishedSections(ctx context.Context, reportID int64) ([]Section, error)
	GetSection(ctx context.Context, id int64) (*Section, error)
	SaveReport(ctx context.Context, r *Report) error
	SaveSection(ctx context.Context, s *Section) error
}

// InMemoryStore is a Store backed by process memory, used in tests and
// the simulate command.
type InMemoryStore struct {
	mu       sync.RWMutex
	reports  map[int64]*Report
	sections map[int64]*Section
	nextID   int64
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		reports:  make(map[int64]*Report),
		sections: make(map[int64]*Section),
		nextID:   1,
	}
}

var _ Store = (*InMemoryStore)(nil)

func (s *InMemoryStore) GetByFormID(_ context.Context, formID int64) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *Report
	for _, r := range s.reports {
		if !r.Published || r.SourceFormID != formID {
			continue
		}
		if match == nil || r.ID < match.ID {
			match = r
		}
	}
	if match == nil {
		return nil, ErrNotFound
	}
	cloned := *match
	return &cloned, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id int64) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *r
	return &cloned, nil
}

func (s *InMemoryStore) ListPublishedSections(_ context.Context, reportID int64) ([]Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Section
	for _, sec := range s.sections {
		if sec.ReportID == reportID && sec.Published {
			out = append(out, *sec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) GetSection(_ context.Context, id int64) (*Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.sections[id]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *sec
	return &cloned, nil
}

func (s *InMemoryStore) SaveReport(_ context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == 0 {
		r.ID = s.nextID
		s.nextID++
	} else if r.ID >= s.nextID {
		s.nextID = r.ID + 1
	}
	r.Blocks = NormalizeBlocks(r.Blocks)
	cloned := *r
	s.reports[r.ID] = &cloned
	return nil
}

func (s *InMemoryStore) SaveSection(_ context.Context, sec *Section) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sec.ID == 0 {
		sec.ID = s.nextID
		s.nextID++
	} else if sec.ID >= s.nextID {
		s.nextID = sec.ID + 1
	}
	sec.FieldWeights = NormalizeWeights(sec.FieldWeights)
	cloned := *sec
	s.sections[sec.ID] = &cloned
	return nil
}
