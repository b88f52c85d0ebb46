package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryCache_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wsp_summary.json")
	cache := SummaryCache{
		"WSP_37": {Title: "WSP 37 Roadmap Scoring", Path: "WSP_37_X.md", Summary: "Scores."},
	}
	require.NoError(t, cache.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"WSP_37": {"title": "WSP 37 Roadmap Scoring", "path": "WSP_37_X.md", "summary": "Scores."}}`, string(data))

	loaded, err := LoadSummaryCache(path)
	require.NoError(t, err)
	assert.Equal(t, cache, loaded)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary file is renamed away")
}

func TestLoadSummaryCache_Missing(t *testing.T) {
	cache, err := LoadSummaryCache(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Empty(t, cache)
}

func TestLoadSummaryCache_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := LoadSummaryCache(path)
	assert.Error(t, err)
}

func TestNewSummaryCache_HigherPriorityWins(t *testing.T) {
	cache := NewSummaryCache([]DocumentEntry{
		{WSPID: "WSP_3", Title: "mention", Path: "a/notes.md", Priority: 2},
		{WSPID: "WSP_3", Title: "protocol", Path: "b/WSP_3.md", Priority: 10},
		{WSPID: "WSP_3", Title: "later", Path: "c/WSP_3_copy.md", Priority: 10},
	})
	require.Len(t, cache, 1)
	assert.Equal(t, "protocol", cache["WSP_3"].Title)
}
