package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
)

// MemoryIndex is an immutable brute-force cosine index.
type MemoryIndex struct {
	records []Record
	norms   []float64
	dim     int
}

func NewMemoryIndex(records []Record) (*MemoryIndex, error) {
	idx := &MemoryIndex{
		records: records,
		norms:   make([]float64, len(records)),
	}
	for i, r := range records {
		if i == 0 {
			idx.dim = len(r.Vector)
		} else if len(r.Vector) != idx.dim {
			return nil, fmt.Errorf("%w: record %s has %d dims, want %d", ErrDimensionMismatch, r.ID, len(r.Vector), idx.dim)
		}
		idx.norms[i] = norm(r.Vector)
	}
	return idx, nil
}

func (m *MemoryIndex) Len() int { return len(m.records) }

// Search ranks every record; ties keep corpus order.
func (m *MemoryIndex) Search(vector []float32, k int) ([]Match, error) {
	if len(m.records) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d", ErrDimensionMismatch, len(vector), m.dim)
	}

	qNorm := norm(vector)
	matches := make([]Match, len(m.records))
	for i, r := range m.records {
		matches[i] = Match{Record: r, Score: cosine(vector, qNorm, r.Vector, m.norms[i])}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// MemoryStore serves searches from an atomically swapped MemoryIndex and
// optionally persists each index to a sqlite snapshot.
type MemoryStore struct {
	current  atomic.Pointer[MemoryIndex]
	snapshot *SQLiteSnapshot
}

// NewMemoryStore creates a store; snapshot may be nil for a purely in-process index.
func NewMemoryStore(snapshot *SQLiteSnapshot) *MemoryStore {
	return &MemoryStore{snapshot: snapshot}
}

func (s *MemoryStore) Backend() string { return "memory" }

func (s *MemoryStore) Load(ctx context.Context) (bool, error) {
	if s.snapshot == nil || !s.snapshot.Exists() {
		return false, nil
	}

	records, err := s.snapshot.Load(ctx)
	if err != nil {
		return false, err
	}
	idx, err := NewMemoryIndex(records)
	if err != nil {
		return false, err
	}

	s.current.Store(idx)
	return true, nil
}

// Replace persists records first and then swaps the live index.
func (s *MemoryStore) Replace(ctx context.Context, records []Record) error {
	idx, err := NewMemoryIndex(records)
	if err != nil {
		return err
	}

	if s.snapshot != nil {
		if err := s.snapshot.Save(ctx, records); err != nil {
			return err
		}
	}

	s.current.Store(idx)
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	idx := s.current.Load()
	if idx == nil {
		return nil, ErrIndexNotLoaded
	}
	return idx.Search(vector, k)
}

func (s *MemoryStore) Size() int {
	if idx := s.current.Load(); idx != nil {
		return idx.Len()
	}
	return 0
}
