// Package mcp exposes the navigation index as MCP tools.
package mcp

import (
	"time"

	"github.com/mike-a-ellis/navindex/internal/search"
)

// SearchIndexInput defines the input parameters for the search_index tool.
type SearchIndexInput struct {
	// Query is the natural-language description of what to find.
	Query string `json:"query" jsonschema:"What you are looking for, in plain words"`
	// Limit is the maximum number of results per collection.
	Limit int `json:"limit,omitempty" jsonschema:"Maximum results per collection (default 5)"`
	// Filter selects the collections: all, code, wsp, or a document type.
	Filter string `json:"filter,omitempty" jsonschema:"One of all, code, wsp, or a document type such as wsp_protocol or module_readme"`
}

// SearchIndexOutput contains the ranked hits of both collections.
type SearchIndexOutput struct {
	Code     []search.CodeResult `json:"code"`
	Docs     []search.DocResult  `json:"docs"`
	Metadata search.Metadata     `json:"metadata"`
	// Message provides informational context (e.g., "No matching entries found").
	Message string `json:"message,omitempty"`
}

// IndexCodeInput takes no parameters; the navigation file comes from the config.
type IndexCodeInput struct{}

// IndexDocsInput defines the input parameters for the index_docs tool.
type IndexDocsInput struct {
	// Paths are the directories to scan; empty uses the configured roots.
	Paths []string `json:"paths,omitempty" jsonschema:"Directories to scan for markdown; defaults to the configured roots"`
}

// IndexOutput reports a rebuild.
type IndexOutput struct {
	Collection string        `json:"collection"`
	Entries    int           `json:"entries"`
	Skipped    []SkippedFile `json:"skipped"`
	Duration   string        `json:"duration"`
	Message    string        `json:"message,omitempty"`
}

// SkippedFile is a document left out of a rebuild.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput contains the size of the index.
type StatusOutput struct {
	// Collections maps collection name to point count.
	Collections map[string]int `json:"collections"`
	// SummaryCacheEntries is the number of persisted protocol summaries.
	SummaryCacheEntries int    `json:"summary_cache_entries"`
	CheckedAt           string `json:"checked_at"`
	Warning             string `json:"warning,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
