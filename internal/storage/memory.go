package storage

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
)

// MemoryStore keeps collections in process memory and scores by cosine distance.
// Readers never observe a half-built collection: Replace swaps a fully built
// collection in under the write lock.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	dimension   int
	encoder     Encoder
}

type memCollection struct {
	points []Point
	ids    map[string]struct{}
}

func newMemCollection() *memCollection {
	return &memCollection{ids: make(map[string]struct{})}
}

// NewMemoryStore creates an empty store. encoder may be nil, which disables QueryText.
func NewMemoryStore(dimension int, encoder Encoder) *MemoryStore {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		dimension:   dimension,
		encoder:     encoder,
	}
}

func (s *MemoryStore) EnsureCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = newMemCollection()
	}
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = newMemCollection()
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, name string, points []Point) error {
	if err := validatePoints(points, s.dimension); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionMissing, name)
	}
	for _, p := range points {
		if _, dup := c.ids[p.ID]; dup {
			return fmt.Errorf("%w: %s already in %s", ErrDuplicateID, p.ID, name)
		}
	}
	for _, p := range points {
		c.ids[p.ID] = struct{}{}
		c.points = append(c.points, clonePoint(p))
	}
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, name string, points []Point) error {
	if err := validatePoints(points, s.dimension); err != nil {
		return err
	}

	shadow := newMemCollection()
	for _, p := range points {
		shadow.ids[p.ID] = struct{}{}
		shadow.points = append(shadow.points, clonePoint(p))
	}

	s.mu.Lock()
	s.collections[name] = shadow
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.points), nil
	}
	return 0, nil
}

func (s *MemoryStore) Query(ctx context.Context, name string, vector []float32, k int) ([]Hit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	s.mu.RLock()
	c, ok := s.collections[name]
	var points []Point
	if ok {
		points = c.points
	}
	s.mu.RUnlock()

	if len(points) == 0 || k <= 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, len(points))
	for i, p := range points {
		hits[i] = Hit{
			ID:       p.ID,
			Document: p.Document,
			Metadata: p.Metadata,
			Distance: cosineDistance(vector, p.Embedding),
		}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *MemoryStore) QueryText(ctx context.Context, name string, text string, k int) ([]Hit, error) {
	if s.encoder == nil {
		return nil, ErrNoEncoder
	}
	return s.Query(ctx, name, s.encoder.Encode(ctx, text), k)
}

func (s *MemoryStore) Health(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// cosineDistance is 1 - cos(a, b); a zero vector is at distance 1 from everything.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func clonePoint(p Point) Point {
	meta := make(map[string]any, len(p.Metadata))
	for k, v := range p.Metadata {
		meta[k] = v
	}
	return Point{
		ID:        p.ID,
		Embedding: slices.Clone(p.Embedding),
		Document:  p.Document,
		Metadata:  meta,
	}
}
