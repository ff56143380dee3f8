package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory VectorStore using exact cosine similarity.
// It exists for tests and local experimentation; it holds everything in RAM
// and scans linearly on every query.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Point
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Point),
	}
}

// Upsert inserts or updates points in the collection, creating it on first use.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Point)
		s.collections[collection] = coll
	}
	for _, p := range points {
		coll[p.ID] = p
	}
	return nil
}

// Search scans the collection and returns the limit most similar points.
func (s *MemoryStore) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[collection]
	results := make([]ScoredPoint, 0, len(coll))
	for _, p := range coll {
		score, err := cosineSimilarity(vector, p.Vector)
		if err != nil {
			return nil, err
		}
		results = append(results, ScoredPoint{ID: p.ID, Score: score, Payload: p.Payload})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes points by their IDs.
func (s *MemoryStore) Delete(ctx context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[collection]
	for _, id := range ids {
		delete(coll, id)
	}
	return nil
}

// CollectionExists reports whether the collection has been written to.
func (s *MemoryStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

// Count returns the number of points in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// cosineSimilarity computes the cosine of the angle between two vectors.
func cosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}
