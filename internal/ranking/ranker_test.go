package ranking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/navindex/internal/storage"
)

func docHit(id, docType string, priority int, distance float64, title string) storage.Hit {
	return storage.Hit{
		ID:       id,
		Distance: distance,
		Metadata: map[string]any{
			"title":    title,
			"path":     "docs/" + id + ".md",
			"doc_type": docType,
			"priority": priority,
			"summary":  "",
		},
	}
}

func TestSimilarityRange(t *testing.T) {
	for _, d := range []float64{0, 0.25, 0.5, 1, 1.5, 2, 100} {
		s := storage.Similarity(d)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
	assert.Equal(t, 1.0, storage.Similarity(0))
	assert.Equal(t, 0.0, storage.Similarity(1.7))
}

func TestRank_SimilarityIsMonotonic(t *testing.T) {
	r := New(DefaultWeights())

	// same keyword score and priority, decreasing distance
	var prev float64 = -1
	for _, d := range []float64{1.0, 0.8, 0.5, 0.2, 0.0} {
		rec := r.Rank("x", []storage.Hit{docHit("a", "readme", 5, d, "x")}, 1, "")
		require.Len(t, rec, 1)
		score := 0.5*5 + 0.3*rec[0].Similarity + 0.2*rec[0].KeywordScore
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}

	// and the ordering follows
	hits := []storage.Hit{
		docHit("far", "readme", 5, 0.9, "x"),
		docHit("near", "readme", 5, 0.1, "x"),
	}
	got := r.Rank("x", hits, 2, "")
	assert.Equal(t, "near", got[0].ID)
}

func TestRank_Limit(t *testing.T) {
	r := New(DefaultWeights())
	hits := make([]storage.Hit, 7)
	for i := range hits {
		hits[i] = docHit(fmt.Sprintf("d%d", i), "other", 2, 0.5, "t")
	}

	tests := []struct {
		limit int
		want  int
	}{
		{1, 1},
		{3, 3},
		{7, 7},
		{20, 7},
		{0, 7},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			assert.Len(t, r.Rank("q", hits, tt.limit, ""), tt.want)
		})
	}
}

func TestRank_Filter(t *testing.T) {
	r := New(DefaultWeights())
	hits := []storage.Hit{
		docHit("p", "wsp_protocol", 10, 0.4, "WSP 37 Roadmap Scoring"),
		docHit("m", "module_readme", 8, 0.1, "Module"),
		docHit("r", "roadmap", 7, 0.2, "Roadmap"),
		{ID: "code", Metadata: map[string]any{"need": "roadmap", "type": "code"}},
	}

	for _, filter := range []string{"wsp_protocol", "module_readme", "roadmap", "interface"} {
		t.Run(filter, func(t *testing.T) {
			for _, rec := range r.Rank("roadmap scoring", hits, 10, filter) {
				assert.Equal(t, filter, rec.DocType)
			}
		})
	}

	assert.Len(t, r.Rank("roadmap", hits, 10, FilterAll), 4)
	assert.Len(t, r.Rank("roadmap", hits, 10, ""), 4)
	assert.Empty(t, r.Rank("roadmap", hits, 10, "interface"))
}

func TestRank_PriorityDominates(t *testing.T) {
	r := New(DefaultWeights())
	hits := []storage.Hit{
		docHit("other", "other", 2, 0.0, "unrelated"),
		docHit("protocol", "wsp_protocol", 10, 0.9, "unrelated"),
	}
	got := r.Rank("q", hits, 2, "")
	assert.Equal(t, []string{"protocol", "other"}, []string{got[0].ID, got[1].ID})
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	r := New(DefaultWeights())
	hits := []storage.Hit{
		docHit("first", "readme", 5, 0.3, "t"),
		docHit("second", "readme", 5, 0.3, "t"),
		docHit("third", "readme", 5, 0.3, "t"),
	}
	got := r.Rank("q", hits, 3, "")
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
	assert.Equal(t, "third", got[2].ID)
}

func TestRank_RecordFields(t *testing.T) {
	r := New(DefaultWeights())
	got := r.Rank("list sessions", []storage.Hit{{
		ID:       "code_0",
		Document: "list live sessions",
		Distance: 0.125,
		Metadata: map[string]any{"need": "list live sessions", "source": "modules/a/b.py:list_sessions", "type": "code"},
	}}, 1, "")

	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, "code_0", rec.ID)
	assert.Equal(t, "list live sessions", rec.Document)
	assert.InDelta(t, 0.875, rec.Similarity, 1e-9)
	assert.Equal(t, "87.5%", rec.Confidence)
	assert.Equal(t, 1, rec.Priority)
	assert.Empty(t, rec.DocType)
	// "list": title + path = 3.0, "sessions": title + path = 3.0
	assert.InDelta(t, 6.0, rec.KeywordScore, 1e-9)
}

func TestKeywordScore(t *testing.T) {
	r := New(DefaultWeights())
	meta := map[string]any{
		"title":   "Roadmap Scoring",
		"path":    "WSP_37_Roadmap.md",
		"summary": "How roadmap items are scored",
	}

	tests := []struct {
		query string
		want  float64
	}{
		{"roadmap", 3.5},         // 2 + 1 + 0.5 = 3.5, at the cap
		{"scoring", 2.0},         // title only
		{"scored", 0.5},          // summary only
		{"wsp_37", 1.0},          // path only
		{"roadmap roadmap", 3.5}, // duplicates count once
		{"ROADMAP Scoring", 5.5}, // case-insensitive
		{"nothing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.InDelta(t, tt.want, r.KeywordScore(Tokens(tt.query), meta), 1e-9)
		})
	}

	capped := New(Weights{Title: 2, Path: 1, Summary: 0.5, TokenCap: 2.5})
	assert.InDelta(t, 2.5, capped.KeywordScore([]string{"roadmap"}, meta), 1e-9)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 1, Priority(nil))
	assert.Equal(t, 1, Priority(map[string]any{"priority": 0}))
	assert.Equal(t, 7, Priority(map[string]any{"priority": 7}))
	assert.Equal(t, 7, Priority(map[string]any{"priority": int64(7)}))
	assert.Equal(t, 9, Priority(map[string]any{"priority": 9.0}))
	assert.Equal(t, 1, Priority(map[string]any{"priority": "high"}))
}

func TestWeights_WithOverrides(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }

	w := DefaultWeights().WithOverrides(Overrides{Priority: ptr(0.1), TokenCap: ptr(5)})
	assert.Equal(t, 0.1, w.Priority)
	assert.Equal(t, 5.0, w.TokenCap)
	assert.Equal(t, 0.3, w.Similarity)
	assert.Equal(t, 2.0, w.Title)

	assert.Equal(t, DefaultWeights(), DefaultWeights().WithOverrides(Overrides{}))
}

func TestWeights_ExplicitZeroDisablesKeyword(t *testing.T) {
	zero := 0.0
	r := New(DefaultWeights().WithOverrides(Overrides{Keyword: &zero}))
	require.Zero(t, r.Weights().Keyword)

	// b matches the query by title only; with the keyword term disabled the
	// closer hit a wins.
	hits := []storage.Hit{
		docHit("a", "readme", 5, 0.1, "unrelated"),
		docHit("b", "readme", 5, 0.2, "sessions"),
	}
	records := r.Rank("sessions", hits, 0, "")
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Zero(t, records[0].KeywordScore)
	assert.Equal(t, 2.0, records[1].KeywordScore)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"list", "live", "sessions"}, Tokens("  List live LIVE sessions "))
	assert.Empty(t, Tokens("   "))
}
