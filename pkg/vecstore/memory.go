package vecstore

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"
)

// Memory is an in-memory Index that scores every stored vector against the
// query. Results are exact. Ties are ordered by ID so searches are
// deterministic.
type Memory struct {
	mu      sync.RWMutex
	dim     int
	vectors map[string]entry
}

type entry struct {
	vec  []float32
	norm float64
}

// NewMemory creates an empty index. A dim of 0 fixes the dimension from the
// first inserted vector.
func NewMemory(dim int) *Memory {
	return &Memory{dim: dim, vectors: make(map[string]entry)}
}

func (m *Memory) Insert(id string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(id, vector)
}

func (m *Memory) BatchInsert(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("vecstore: BatchInsert length mismatch: %d ids, %d vectors", len(ids), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if err := m.insertLocked(id, vectors[i]); err != nil {
			return fmt.Errorf("vecstore: insert %q: %w", id, err)
		}
	}
	return nil
}

func (m *Memory) insertLocked(id string, vector []float32) error {
	if m.dim == 0 {
		if len(vector) == 0 {
			return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
		}
		m.dim = len(vector)
	}
	if len(vector) != m.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), m.dim)
	}
	n := norm(vector)
	if n == 0 {
		return ErrZeroVector
	}
	m.vectors[id] = entry{vec: slices.Clone(vector), norm: n}
	return nil
}

func (m *Memory) Search(query []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.vectors) == 0 || topK <= 0 {
		return nil, nil
	}
	if len(query) != m.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), m.dim)
	}
	qn := norm(query)
	if qn == 0 {
		return nil, ErrZeroVector
	}

	results := make([]Match, 0, len(m.vectors))
	for id, e := range m.vectors {
		results = append(results, Match{ID: id, Score: dot(query, e.vec) / (qn * e.norm)})
	}
	slices.SortFunc(results, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *Memory) Delete(id string) error {
	m.mu.Lock()
	delete(m.vectors, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

func (m *Memory) Dimension() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dim
}

func (m *Memory) Close() error {
	return nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

var _ Index = (*Memory)(nil)
