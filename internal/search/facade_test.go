package search

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/navindex/internal/config"
	"github.com/mike-a-ellis/navindex/internal/index"
	"github.com/mike-a-ellis/navindex/internal/markdown"
	"github.com/mike-a-ellis/navindex/internal/preview"
	"github.com/mike-a-ellis/navindex/internal/ranking"
	"github.com/mike-a-ellis/navindex/internal/storage"
	"github.com/mike-a-ellis/navindex/internal/tsindex"
)

const testDimension = 32

type bagOfWords struct{}

func (bagOfWords) Encode(ctx context.Context, text string) []float32 {
	v := make([]float32, testDimension)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[h.Sum32()%testDimension]++
	}
	return v
}

func (b bagOfWords) EncodeBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = b.Encode(ctx, t)
	}
	return out
}

func (bagOfWords) Dimension() int { return testDimension }

// recordingStore remembers which collections were queried.
type recordingStore struct {
	storage.VectorStore
	mu      sync.Mutex
	queried []string
}

func (s *recordingStore) Query(ctx context.Context, name string, vector []float32, k int) ([]storage.Hit, error) {
	s.mu.Lock()
	s.queried = append(s.queried, name)
	s.mu.Unlock()
	return s.VectorStore.Query(ctx, name, vector, k)
}

type failingStore struct {
	storage.VectorStore
	err      error
	panicMsg string
}

func (s failingStore) Query(ctx context.Context, name string, vector []float32, k int) ([]storage.Hit, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return nil, s.err
}

type fixture struct {
	root   string
	store  storage.VectorStore
	facade *Facade
}

func newFixture(t *testing.T, files map[string]string, wrap func(storage.VectorStore) storage.VectorStore) *fixture {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	var store storage.VectorStore = storage.NewMemoryStore(testDimension, nil)
	if wrap != nil {
		store = wrap(store)
	}
	provider := bagOfWords{}
	outliner := markdown.NewOutliner(0)
	cachePath := filepath.Join(root, ".navindex", "wsp_summary.json")

	facade := New(Deps{
		Provider: provider,
		Store:    store,
		Ranker:   ranking.New(ranking.DefaultWeights()),
		Previews: preview.NewExtractor(root, tsindex.New(nil, 0), outliner, nil),
		Code:     index.NewCodeBuilder(provider, store, nil),
		Docs: index.NewDocBuilder(provider, store, outliner, index.DocOptions{
			ProjectRoot: root,
			CachePath:   cachePath,
		}, nil),
	}, Options{
		NavigationFile:   filepath.Join(root, "navigation.yaml"),
		DocRoots:         []string{root},
		SummaryCachePath: cachePath,
	}, nil)

	return &fixture{root: root, store: store, facade: facade}
}

func TestSearch_CodeScenario(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string]string{
		"navigation.yaml": "list live sessions: modules/a/b.py:list_sessions\nsend a chat message: modules/chat/send.py:send\n",
		"modules/a/b.py":  "import os\n\ndef list_sessions():\n    return []\n",
	}, nil)

	_, err := fx.facade.IndexCodeEntries(ctx)
	require.NoError(t, err)

	resp := fx.facade.Search(ctx, "list sessions", 1, "")
	require.Empty(t, resp.Metadata.Error)
	require.Len(t, resp.Code, 1)

	hit := resp.Code[0]
	assert.Equal(t, "list live sessions", hit.Need)
	assert.Equal(t, "modules/a/b.py:list_sessions", hit.Location)
	assert.Equal(t, 3, hit.Line)
	assert.Contains(t, hit.Preview, "def list_sessions():")
	assert.Empty(t, resp.Docs)

	assert.Equal(t, "list sessions", resp.Metadata.Query)
	assert.Equal(t, FilterAll, resp.Metadata.Filter)
	assert.Equal(t, 1, resp.Metadata.CodeCount)
	assert.Zero(t, resp.Metadata.DocCount)
	assert.False(t, resp.Metadata.Timestamp.IsZero())
}

func TestSearch_DocTypeFilterScenario(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string]string{
		"WSP_37_X.md":                "# WSP 37 Roadmap Scoring\n\nHow roadmap items are scored.\n",
		"modules/widget/README.md":   "# Widget Roadmap Scoring\n\nThe widget module.\n",
		"modules/widget/tests/.keep": "",
	}, nil)

	result, err := fx.facade.IndexWSPEntries(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Entries)

	resp := fx.facade.Search(ctx, "Roadmap Scoring", 3, "wsp_protocol")
	require.Empty(t, resp.Metadata.Error)
	require.Len(t, resp.Docs, 1)
	assert.Equal(t, "WSP_37", resp.Docs[0].WSPID)
	assert.Equal(t, index.DocTypeProtocol, resp.Docs[0].DocType)
	assert.Empty(t, resp.Code)

	// the alias selects the same type
	resp = fx.facade.Search(ctx, "Roadmap Scoring", 3, "protocol")
	require.Len(t, resp.Docs, 1)
	assert.Equal(t, index.DocTypeProtocol, resp.Metadata.Filter)

	resp = fx.facade.Search(ctx, "Roadmap Scoring", 3, "wsp")
	require.Len(t, resp.Docs, 2)
	assert.Equal(t, "WSP_37", resp.Docs[0].WSPID, "protocol priority ranks first")
}

func TestSearch_CodeFilterSkipsDocs(t *testing.T) {
	ctx := context.Background()
	var rec *recordingStore
	fx := newFixture(t, nil, func(s storage.VectorStore) storage.VectorStore {
		rec = &recordingStore{VectorStore: s}
		return rec
	})

	fx.facade.Search(ctx, "anything", 5, "code")
	assert.Equal(t, []string{storage.CodeCollection}, rec.queried)

	rec.queried = nil
	fx.facade.Search(ctx, "anything", 5, "module_readme")
	assert.Equal(t, []string{storage.DocsCollection}, rec.queried)

	rec.queried = nil
	fx.facade.Search(ctx, "anything", 5, "all")
	assert.ElementsMatch(t, []string{storage.CodeCollection, storage.DocsCollection}, rec.queried)
}

func TestSearch_EmptyCollections(t *testing.T) {
	fx := newFixture(t, nil, nil)
	resp := fx.facade.Search(context.Background(), "nothing indexed", 0, "")
	assert.Empty(t, resp.Metadata.Error)
	assert.NotNil(t, resp.Code)
	assert.NotNil(t, resp.Docs)
	assert.Empty(t, resp.Code)
	assert.Empty(t, resp.Docs)
	assert.Equal(t, DefaultLimit, resp.Metadata.Limit)
}

func TestSearch_SoftFail(t *testing.T) {
	tests := []struct {
		name  string
		store failingStore
		want  string
	}{
		{"store error", failingStore{err: errors.New("connection refused")}, "connection refused"},
		{"panic", failingStore{panicMsg: "boom"}, "panic: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, nil, func(s storage.VectorStore) storage.VectorStore {
				tt.store.VectorStore = s
				return tt.store
			})

			resp := fx.facade.Search(context.Background(), "q", 3, "all")
			require.NotNil(t, resp)
			assert.Contains(t, resp.Metadata.Error, tt.want)
			assert.Empty(t, resp.Code)
			assert.Empty(t, resp.Docs)
			assert.Zero(t, resp.Metadata.CodeCount)
		})
	}
}

func TestSearch_UnknownFilter(t *testing.T) {
	fx := newFixture(t, nil, nil)
	resp := fx.facade.Search(context.Background(), "q", 3, "spreadsheets")
	assert.Contains(t, resp.Metadata.Error, "unknown filter")
}

func TestSearch_Timestamp(t *testing.T) {
	fx := newFixture(t, nil, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fx.facade.now = func() time.Time { return fixed }
	assert.Equal(t, fixed, fx.facade.Search(context.Background(), "q", 1, "").Metadata.Timestamp)
}

func TestIndexCodeEntries_MissingNavigation(t *testing.T) {
	fx := newFixture(t, nil, nil)
	_, err := fx.facade.IndexCodeEntries(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string]string{
		"navigation.yaml": "a: a.go\nb: b.go\n",
		"docs/WSP_1.md":   "# WSP 1\n\nIntro.\n",
		"docs/WSP_2.md":   "# WSP 2\n\nNext.\n",
	}, nil)

	status, err := fx.facade.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"code": 0, "wsp": 0}, status.Collections)
	assert.Zero(t, status.SummaryCacheEntries)

	_, err = fx.facade.IndexCodeEntries(ctx)
	require.NoError(t, err)
	_, err = fx.facade.IndexWSPEntries(ctx, filepath.Join(fx.root, "docs"))
	require.NoError(t, err)

	status, err = fx.facade.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"code": 2, "wsp": 2}, status.Collections)
	assert.Equal(t, 2, status.SummaryCacheEntries)
	assert.Empty(t, status.Error)
}

func TestOpen_MemoryStore(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "navigation.yaml"), []byte("find the config loader: config.go\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "WSP_3_Module.md"), []byte("# WSP 3 Module Organization\n\nWhere modules live.\n"), 0o644))

	cfg := config.Default()
	cfg.ProjectRoot = root
	cfg.Store = config.StoreMemory

	ctx := context.Background()
	facade, store, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	// without a model every vector is zero; ranking falls back to keywords and priority
	_, err = facade.IndexCodeEntries(ctx)
	require.NoError(t, err)
	_, err = facade.IndexWSPEntries(ctx)
	require.NoError(t, err)

	resp := facade.Search(ctx, "module organization", 3, "")
	require.Empty(t, resp.Metadata.Error)
	require.Len(t, resp.Code, 1)
	require.Len(t, resp.Docs, 1)
	assert.Equal(t, "WSP_3", resp.Docs[0].WSPID)
	assert.Equal(t, "0.0%", resp.Docs[0].Confidence)
	assert.Equal(t, "[File not found]", resp.Code[0].Preview)

	status, err := facade.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.SummaryCacheEntries)
	assert.FileExists(t, filepath.Join(root, ".navindex", "wsp_summary.json"))
}
