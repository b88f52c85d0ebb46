package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mike-a-ellis/navindex/internal/embedding"
	"github.com/mike-a-ellis/navindex/internal/storage"
)

// Metadata type tags.
const (
	TypeCode = "code"
	TypeWSP  = "wsp"
)

// BuildResult contains statistics about a collection rebuild.
type BuildResult struct {
	Collection string
	Entries    int
	Skipped    []SkippedFile
	Duration   time.Duration
}

// SkippedFile is a document left out of a rebuild.
type SkippedFile struct {
	Path   string
	Reason string
}

// CodeBuilder rebuilds the "code" collection from navigation entries.
type CodeBuilder struct {
	provider embedding.Provider
	store    storage.VectorStore
	logger   *slog.Logger
}

// NewCodeBuilder creates a CodeBuilder.
func NewCodeBuilder(provider embedding.Provider, store storage.VectorStore, logger *slog.Logger) *CodeBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CodeBuilder{
		provider: provider,
		store:    store,
		logger:   logger,
	}
}

// Build replaces the collection with one point per entry, in order. An empty
// input is a no-op.
func (b *CodeBuilder) Build(ctx context.Context, entries []NavigationEntry) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{Collection: storage.CodeCollection}

	if len(entries) == 0 {
		b.logger.Warn("No navigation entries, leaving collection untouched", "collection", storage.CodeCollection)
		return result, nil
	}

	ids := make([]string, len(entries))
	needs := make([]string, len(entries))
	metadatas := make([]map[string]any, len(entries))
	for i, e := range entries {
		ids[i] = fmt.Sprintf("code_%d", i)
		needs[i] = e.Need
		metadatas[i] = codeMetadata(e)
	}

	points, err := storage.NewPoints(ids, b.provider.EncodeBatch(ctx, needs), needs, metadatas)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", storage.CodeCollection, err)
	}

	if err := b.store.Replace(ctx, storage.CodeCollection, points); err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", storage.CodeCollection, err)
	}
	if err := verifyCount(ctx, b.store, storage.CodeCollection, len(points)); err != nil {
		return nil, err
	}

	result.Entries = len(points)
	result.Duration = time.Since(start)
	b.logger.Info("Indexed code entries",
		"collection", storage.CodeCollection,
		"entries", result.Entries,
		"duration", result.Duration,
	)
	return result, nil
}

func codeMetadata(e NavigationEntry) map[string]any {
	meta := map[string]any{
		"need":     e.Need,
		"type":     TypeCode,
		"source":   e.Location,
		"location": e.Location,
	}
	if isPQN(e.Need) || isPQN(e.Location) {
		meta["cube"] = "pqn"
	}
	return meta
}

func isPQN(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "pqn") || strings.Contains(s, "phantom quantum")
}

func verifyCount(ctx context.Context, store storage.VectorStore, collection string, want int) error {
	got, err := store.Count(ctx, collection)
	if err != nil {
		return fmt.Errorf("count %s: %w", collection, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s has %d points, expected %d", ErrCountMismatch, collection, got, want)
	}
	return nil
}
