package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/navindex/internal/markdown"
	"github.com/mike-a-ellis/navindex/internal/storage"
)

func newDocBuilder(t *testing.T, root string, store storage.VectorStore) (*DocBuilder, string) {
	t.Helper()
	cachePath := filepath.Join(root, ".navindex", "wsp_summary.json")
	b := NewDocBuilder(&bagOfWords{}, store, markdown.NewOutliner(0), DocOptions{
		ProjectRoot: root,
		CachePath:   cachePath,
	}, nil)
	return b, cachePath
}

func TestTitleAndSummary(t *testing.T) {
	title, summary, ok := TitleAndSummary("\n\n# WSP 37 Roadmap Scoring\n\nLine one.\nLine two.\n\n\nThree\nfour\nfive\nsix is dropped\n")
	require.True(t, ok)
	assert.Equal(t, "WSP 37 Roadmap Scoring", title)
	assert.Equal(t, "Line one. Line two. Three four five", summary)

	title, summary, ok = TitleAndSummary("## Deep title")
	require.True(t, ok)
	assert.Equal(t, "## Deep title", title)
	assert.Empty(t, summary)

	_, _, ok = TitleAndSummary(" \n\t\n")
	assert.False(t, ok)

	_, summary, _ = TitleAndSummary("t\n" + strings.Repeat("é", 500))
	assert.Equal(t, MaxSummaryChars, utf8.RuneCountInString(summary))
}

func TestDocBuilder_Scan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"WSP_framework/src/WSP_37_X.md": "# WSP 37 Roadmap Scoring\n\nScores roadmap items.\n\n## Scoring\n\n## Cubes\n",
		"modules/comms/README.md":       "# Comms Module\n\nHandles chat.\n",
		"modules/comms/tests/README.md": "# Comms Tests\n\nHow to run.\n",
		"modules/comms/CHANGELOG.md":    "# Changes\n",
		"node_modules/pkg/README.md":    "# Vendored\n",
		"web/node_modules/pkg/guide.md": "# Vendored\n",
		"package-lock.md":               "# lock\n",
		"docs/notes.txt":                "not markdown",
		"docs/blank.md":                 "\n   \n",
		"docs/latin1.md":                "# Caf\xe9\n\nMen\xfa del d\xeda\n",
		"docs/Guide.MD":                 "# Guide\n",
	})

	b, _ := newDocBuilder(t, root, storage.NewMemoryStore(testDimension, nil))
	entries, skipped, err := b.Scan(context.Background(), []string{"."})
	require.NoError(t, err)

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	assert.Equal(t, []string{
		"WSP_framework/src/WSP_37_X.md",
		"docs/Guide.MD",
		"docs/latin1.md",
		"modules/comms/README.md",
		"modules/comms/tests/README.md",
	}, paths)

	require.Len(t, skipped, 1)
	assert.Equal(t, "docs/blank.md", skipped[0].Path)

	wsp := entries[0]
	assert.Equal(t, "WSP_37", wsp.WSPID)
	assert.Equal(t, "WSP 37 Roadmap Scoring", wsp.Title)
	assert.Equal(t, DocTypeProtocol, wsp.DocType)
	assert.Equal(t, 10, wsp.Priority)
	assert.Equal(t, "Scores roadmap items. ## Scoring ## Cubes", wsp.Summary)
	assert.Equal(t, "WSP 37 Roadmap Scoring; Scoring; Cubes", markdown.Titles(wsp.Headings, HeadingSeparator))

	latin := entries[2]
	assert.True(t, utf8.ValidString(latin.Title))
	assert.Contains(t, latin.Title, "Caf")
	assert.Contains(t, latin.Summary, "�")

	assert.Equal(t, DocTypeModuleReadme, entries[3].DocType)
	assert.Equal(t, DocTypeTestDocumentation, entries[4].DocType)
}

func TestDocBuilder_MissingRoot(t *testing.T) {
	root := t.TempDir()
	b, _ := newDocBuilder(t, root, storage.NewMemoryStore(testDimension, nil))
	_, err := b.Build(context.Background(), []string{"does-not-exist"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDocBuilder_Build(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"WSP_37_X.md":         "# WSP 37 Roadmap Scoring\n\nHow roadmap items are scored.\n",
		"modules/a/README.md": "# Module A\n\nDoes A.\n",
		"modules/a/tests/x":   "",
	})
	store := storage.NewMemoryStore(testDimension, nil)
	b, cachePath := newDocBuilder(t, root, store)

	result, err := b.Build(ctx, []string{root})
	require.NoError(t, err)
	assert.Equal(t, storage.DocsCollection, result.Collection)
	assert.Equal(t, 2, result.Entries)

	count, err := store.Count(ctx, storage.DocsCollection)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hits, err := store.Query(ctx, storage.DocsCollection, make([]float32, testDimension), 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "wsp_0", hits[0].ID)
	assert.Equal(t, "WSP 37 Roadmap Scoring\nHow roadmap items are scored.", hits[0].Document)
	assert.Equal(t, map[string]any{
		"wsp_id":   "WSP_37",
		"title":    "WSP 37 Roadmap Scoring",
		"path":     "WSP_37_X.md",
		"summary":  "How roadmap items are scored.",
		"doc_type": DocTypeProtocol,
		"priority": 10,
		"type":     "wsp",
		"headings": "WSP 37 Roadmap Scoring",
	}, hits[0].Metadata)

	cache, err := LoadSummaryCache(cachePath)
	require.NoError(t, err)
	assert.Equal(t, SummaryRecord{
		Title:   "WSP 37 Roadmap Scoring",
		Path:    "WSP_37_X.md",
		Summary: "How roadmap items are scored.",
	}, cache["WSP_37"])
	assert.Contains(t, cache, "Module")
}

// A rebuild that finds no documents must not wipe the previous collection or cache.
func TestDocBuilder_ZeroDocumentsKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"docs/WSP_1_Intro.md": "# WSP 1 Intro\n\nFirst.\n",
		"empty/.keep":         "",
	})
	store := storage.NewMemoryStore(testDimension, nil)
	b, cachePath := newDocBuilder(t, root, store)

	_, err := b.Build(ctx, []string{"docs"})
	require.NoError(t, err)
	before, err := os.ReadFile(cachePath)
	require.NoError(t, err)

	result, err := b.Build(ctx, []string{"empty"})
	require.NoError(t, err)
	assert.Zero(t, result.Entries)

	count, err := store.Count(ctx, storage.DocsCollection)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	after, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDocBuilder_NoCacheOnFailedSwap(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"WSP_2.md": "# WSP 2\n"})
	// wrong dimension makes Replace fail
	store := storage.NewMemoryStore(testDimension+1, nil)
	b, cachePath := newDocBuilder(t, root, store)

	_, err := b.Build(context.Background(), []string{"."})
	require.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, statErr := os.Stat(cachePath)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
