// Package ranking orders nearest-neighbour hits by a blend of curated priority,
// embedding similarity and keyword overlap.
package ranking

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mike-a-ellis/navindex/internal/storage"
)

// FilterAll disables doc_type filtering.
const FilterAll = "all"

// Weights are the ranking policy. Score = Priority*priority + Similarity*similarity
// + Keyword*keywordScore; a query token earns Title, Path and Summary when it
// occurs in those fields, at most TokenCap in total.
type Weights struct {
	Priority   float64
	Similarity float64
	Keyword    float64

	Title    float64
	Path     float64
	Summary  float64
	TokenCap float64
}

// DefaultWeights returns the standard ranking policy.
func DefaultWeights() Weights {
	return Weights{
		Priority:   0.5,
		Similarity: 0.3,
		Keyword:    0.2,
		Title:      2.0,
		Path:       1.0,
		Summary:    0.5,
		TokenCap:   3.5,
	}
}

// Overrides replaces individual weights, typically from the "ranking" section of
// the config file. Nil fields keep the current weight; an explicit 0 disables it.
type Overrides struct {
	Priority   *float64 `yaml:"priority_weight"`
	Similarity *float64 `yaml:"similarity_weight"`
	Keyword    *float64 `yaml:"keyword_weight"`
	Title      *float64 `yaml:"title_match"`
	Path       *float64 `yaml:"path_match"`
	Summary    *float64 `yaml:"summary_match"`
	TokenCap   *float64 `yaml:"token_cap"`
}

// WithOverrides returns w with every non-nil field of o applied.
func (w Weights) WithOverrides(o Overrides) Weights {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&w.Priority, o.Priority)
	set(&w.Similarity, o.Similarity)
	set(&w.Keyword, o.Keyword)
	set(&w.Title, o.Title)
	set(&w.Path, o.Path)
	set(&w.Summary, o.Summary)
	set(&w.TokenCap, o.TokenCap)
	return w
}

// Record is a ranked hit.
type Record struct {
	ID           string
	Document     string
	Metadata     map[string]any
	Similarity   float64
	Confidence   string // Similarity as a percentage, "87.5%"
	KeywordScore float64
	DocType      string
	Priority     int
}

// Ranker applies Weights to hits. It holds no state besides the weights.
type Ranker struct {
	weights Weights
}

// New creates a Ranker.
func New(weights Weights) *Ranker {
	return &Ranker{weights: weights}
}

// Weights returns the policy in use.
func (r *Ranker) Weights() Weights { return r.weights }

type scored struct {
	record Record
	score  float64
}

// Rank filters hits by doc_type (unless filter is "" or "all"), sorts them by
// (score, similarity, priority) descending and returns at most limit records.
// limit <= 0 returns every record. Ties keep the input order.
func (r *Ranker) Rank(query string, hits []storage.Hit, limit int, filter string) []Record {
	tokens := Tokens(query)
	filtering := filter != "" && filter != FilterAll

	candidates := make([]scored, 0, len(hits))
	for _, h := range hits {
		docType := stringField(h.Metadata, "doc_type")
		if filtering && docType != filter {
			continue
		}

		similarity := storage.Similarity(h.Distance)
		keyword := r.KeywordScore(tokens, h.Metadata)
		priority := Priority(h.Metadata)

		candidates = append(candidates, scored{
			record: Record{
				ID:           h.ID,
				Document:     h.Document,
				Metadata:     h.Metadata,
				Similarity:   similarity,
				Confidence:   fmt.Sprintf("%.1f%%", similarity*100),
				KeywordScore: keyword,
				DocType:      docType,
				Priority:     priority,
			},
			score: r.weights.Priority*float64(priority) +
				r.weights.Similarity*similarity +
				r.weights.Keyword*keyword,
		})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		if c := compareDesc(a.score, b.score); c != 0 {
			return c
		}
		if c := compareDesc(a.record.Similarity, b.record.Similarity); c != 0 {
			return c
		}
		return compareDesc(float64(a.record.Priority), float64(b.record.Priority))
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	records := make([]Record, len(candidates))
	for i, c := range candidates {
		records[i] = c.record
	}
	return records
}

// KeywordScore sums the capped per-token field matches. The title field falls
// back to "need" and the path field to "source".
func (r *Ranker) KeywordScore(tokens []string, meta map[string]any) float64 {
	title := strings.ToLower(firstField(meta, "title", "need"))
	path := strings.ToLower(firstField(meta, "path", "source"))
	summary := strings.ToLower(stringField(meta, "summary"))

	var total float64
	for _, tok := range tokens {
		var s float64
		if strings.Contains(title, tok) {
			s += r.weights.Title
		}
		if strings.Contains(path, tok) {
			s += r.weights.Path
		}
		if strings.Contains(summary, tok) {
			s += r.weights.Summary
		}
		total += min(s, r.weights.TokenCap)
	}
	return total
}

// Tokens returns the unique lowercase whitespace-separated tokens of query, in order.
func Tokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]bool, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Priority reads the "priority" metadata field; missing or zero means 1.
func Priority(meta map[string]any) int {
	var p int
	switch v := meta["priority"].(type) {
	case int:
		p = v
	case int64:
		p = int(v)
	case float64:
		p = int(v)
	case float32:
		p = int(v)
	}
	if p == 0 {
		return 1
	}
	return p
}

func compareDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

func stringField(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}

func firstField(meta map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringField(meta, k); s != "" {
			return s
		}
	}
	return ""
}
