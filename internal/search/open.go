package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mike-a-ellis/navindex/internal/config"
	"github.com/mike-a-ellis/navindex/internal/embedding"
	"github.com/mike-a-ellis/navindex/internal/index"
	"github.com/mike-a-ellis/navindex/internal/markdown"
	"github.com/mike-a-ellis/navindex/internal/preview"
	"github.com/mike-a-ellis/navindex/internal/ranking"
	"github.com/mike-a-ellis/navindex/internal/storage"
	"github.com/mike-a-ellis/navindex/internal/tsindex"
)

// Open wires a Facade from cfg. The returned store must be closed by the caller.
// An unreachable Qdrant fails here; a missing embedding model does not.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Facade, storage.VectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider := embedding.NewLazy(
		embedding.OpenAIFactory("", embedding.Options{
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
		}),
		cfg.Embedding.Dimension,
		cfg.Embedding.CacheSize,
		logger,
	)

	var store storage.VectorStore
	switch cfg.Store {
	case config.StoreMemory:
		store = storage.NewMemoryStore(cfg.Embedding.Dimension, provider)
	default:
		qs, err := storage.NewQdrantStore(storage.QdrantOptions{
			Host:      cfg.Qdrant.Host,
			Port:      cfg.Qdrant.Port,
			Dimension: cfg.Embedding.Dimension,
			Encoder:   provider,
			Logger:    logger,
		})
		if err != nil {
			return nil, nil, err
		}
		store = qs
	}

	for _, name := range []string{storage.CodeCollection, storage.DocsCollection} {
		if err := store.EnsureCollection(ctx, name); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("ensure collection %s: %w", name, err)
		}
	}

	root := cfg.ProjectRoot
	outliner := markdown.NewOutliner(0)

	roots := make([]string, len(cfg.DocRoots))
	for i, r := range cfg.DocRoots {
		roots[i] = cfg.Resolve(r)
	}

	facade := New(Deps{
		Provider: provider,
		Store:    store,
		Ranker:   ranking.New(ranking.DefaultWeights().WithOverrides(cfg.Ranking)),
		Previews: preview.NewExtractor(root, tsindex.New(nil, 0), outliner, logger),
		Code:     index.NewCodeBuilder(provider, store, logger),
		Docs: index.NewDocBuilder(provider, store, outliner, index.DocOptions{
			ProjectRoot: root,
			CachePath:   cfg.SummaryCachePath(),
		}, logger),
	}, Options{
		NavigationFile:   cfg.Resolve(cfg.NavigationFile),
		DocRoots:         roots,
		SummaryCachePath: cfg.SummaryCachePath(),
	}, logger)

	return facade, store, nil
}
