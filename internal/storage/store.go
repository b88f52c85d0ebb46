// Package storage defines the vector store contract used by the index builders and
// the search facade, with a Qdrant implementation and an in-process one.
package storage

import (
	"context"
	"fmt"
)

// Encoder turns query text into a vector for QueryText.
type Encoder interface {
	Encode(ctx context.Context, text string) []float32
}

// VectorStore is a set of named, independently rebuildable collections.
type VectorStore interface {
	// EnsureCollection creates the collection when it does not exist yet.
	EnsureCollection(ctx context.Context, name string) error
	// Reset drops the collection and recreates it empty.
	Reset(ctx context.Context, name string) error
	// Add appends points to the collection.
	Add(ctx context.Context, name string, points []Point) error
	// Replace builds points into a shadow collection and swaps it in atomically.
	Replace(ctx context.Context, name string, points []Point) error
	// Count returns the number of points in the collection (0 when missing).
	Count(ctx context.Context, name string) (int, error)
	// Query returns the k nearest points to vector, ascending by distance.
	Query(ctx context.Context, name string, vector []float32, k int) ([]Hit, error)
	// QueryText encodes text and queries with the resulting vector.
	QueryText(ctx context.Context, name string, text string, k int) ([]Hit, error)
	// Health reports whether the backend answers.
	Health(ctx context.Context) error
	Close() error
}

// NewPoints zips parallel id/embedding/document/metadata slices into points.
func NewPoints(ids []string, embeddings [][]float32, documents []string, metadatas []map[string]any) ([]Point, error) {
	n := len(ids)
	if len(embeddings) != n || len(documents) != n || len(metadatas) != n {
		return nil, fmt.Errorf("%w: ids=%d embeddings=%d documents=%d metadatas=%d",
			ErrLengthMismatch, n, len(embeddings), len(documents), len(metadatas))
	}

	points := make([]Point, n)
	for i := range ids {
		points[i] = Point{
			ID:        ids[i],
			Embedding: embeddings[i],
			Document:  documents[i],
			Metadata:  metadatas[i],
		}
	}
	return points, nil
}

// validatePoints checks ids are unique and every vector has the expected dimension.
func validatePoints(points []Point, dimension int) error {
	seen := make(map[string]struct{}, len(points))
	for i, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point %d has empty id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = struct{}{}

		if len(p.Embedding) != dimension {
			return fmt.Errorf("%w: point %s has %d dimensions, expected %d",
				ErrDimensionMismatch, p.ID, len(p.Embedding), dimension)
		}
	}
	return nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
