// Package embedding turns text into fixed-length vectors for the index.
package embedding

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Provider encodes text into vectors of a fixed dimension. It never fails: when the
// underlying model is unavailable it returns zero vectors, and ranking falls back
// to keyword and priority signals.
type Provider interface {
	Encode(ctx context.Context, text string) []float32
	EncodeBatch(ctx context.Context, texts []string) [][]float32
	Dimension() int
}

// Model is a loaded embedding model.
type Model interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Factory loads a Model. It is called at most once per Lazy provider.
type Factory func() (Model, error)

// OpenAIFactory returns a Factory building the OpenAI Embedder.
func OpenAIFactory(apiKey string, opts Options) Factory {
	return func() (Model, error) {
		client, err := NewClient(apiKey)
		if err != nil {
			return nil, err
		}
		return NewEmbedder(client, opts), nil
	}
}

// DefaultCacheSize is the number of query vectors kept by a Lazy provider.
const DefaultCacheSize = 1024

// Lazy is a Provider that loads its model on first use and keeps it for the
// lifetime of the process. Safe for concurrent use.
type Lazy struct {
	factory   Factory
	dimension int
	logger    *slog.Logger
	cache     *lru.Cache[[32]byte, []float32]

	once    sync.Once
	model   Model
	loadErr error
}

// NewLazy creates a Lazy provider. cacheSize <= 0 selects DefaultCacheSize.
func NewLazy(factory Factory, dimension, cacheSize int, logger *slog.Logger) *Lazy {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[[32]byte, []float32](cacheSize)
	if err != nil {
		// only possible with a non-positive size
		panic(err)
	}
	return &Lazy{
		factory:   factory,
		dimension: dimension,
		logger:    logger,
		cache:     cache,
	}
}

// Dimension returns the vector length produced by Encode.
func (l *Lazy) Dimension() int { return l.dimension }

// Available loads the model if needed and reports whether it is usable.
func (l *Lazy) Available() bool {
	return l.load() != nil
}

func (l *Lazy) load() Model {
	l.once.Do(func() {
		if l.factory == nil {
			l.loadErr = ErrNoAPIKey
		} else {
			l.model, l.loadErr = l.factory()
		}
		if l.loadErr != nil {
			l.model = nil
			l.logger.Warn("Embedding model unavailable, using zero vectors", "error", l.loadErr)
		}
	})
	return l.model
}

// Encode returns the vector for text, served from the cache when possible.
func (l *Lazy) Encode(ctx context.Context, text string) []float32 {
	key := sha256.Sum256([]byte(text))
	if v, ok := l.cache.Get(key); ok {
		return clone(v)
	}

	v := l.EncodeBatch(ctx, []string{text})[0]
	if !isZero(v) {
		l.cache.Add(key, clone(v))
	}
	return v
}

// EncodeBatch returns one vector per text. Any model failure, or a result of the
// wrong shape, yields zero vectors for the whole batch.
func (l *Lazy) EncodeBatch(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return [][]float32{}
	}

	model := l.load()
	if model == nil {
		return l.zeros(len(texts))
	}

	vectors, err := model.GenerateEmbeddings(ctx, texts)
	if err != nil {
		l.logger.Warn("Embedding failed, using zero vectors", "texts", len(texts), "error", err)
		return l.zeros(len(texts))
	}
	if len(vectors) != len(texts) {
		l.logger.Warn("Embedding count mismatch, using zero vectors", "want", len(texts), "got", len(vectors))
		return l.zeros(len(texts))
	}
	for _, v := range vectors {
		if len(v) != l.dimension {
			l.logger.Warn("Embedding dimension mismatch, using zero vectors", "want", l.dimension, "got", len(v))
			return l.zeros(len(texts))
		}
	}
	return vectors
}

func (l *Lazy) zeros(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, l.dimension)
	}
	return out
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
