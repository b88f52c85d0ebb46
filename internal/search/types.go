package search

import "time"

// Filter values besides the document types.
const (
	FilterAll  = "all"
	FilterCode = "code"
	FilterWSP  = "wsp"
)

// DefaultLimit applies when a caller passes limit <= 0.
const DefaultLimit = 5

// Response is the result of one Search. It is never nil.
type Response struct {
	Code     []CodeResult `json:"code"`
	Docs     []DocResult  `json:"docs"`
	Metadata Metadata     `json:"metadata"`
}

// CodeResult is a ranked navigation entry with its source preview.
type CodeResult struct {
	ID         string  `json:"id"`
	Need       string  `json:"need"`
	Location   string  `json:"location"`
	Cube       string  `json:"cube,omitempty"`
	Similarity float64 `json:"similarity"`
	Confidence string  `json:"confidence"`
	Priority   int     `json:"priority"`
	Preview    string  `json:"preview"`
	Line       int     `json:"line,omitempty"`
}

// DocResult is a ranked documentation entry.
type DocResult struct {
	ID         string  `json:"id"`
	WSPID      string  `json:"wsp_id"`
	Title      string  `json:"title"`
	Path       string  `json:"path"`
	Summary    string  `json:"summary"`
	DocType    string  `json:"doc_type"`
	Priority   int     `json:"priority"`
	Similarity float64 `json:"similarity"`
	Confidence string  `json:"confidence"`
	Headings   string  `json:"headings,omitempty"`
}

// Metadata describes the query that produced a Response.
type Metadata struct {
	Query     string    `json:"query"`
	Filter    string    `json:"filter"`
	Limit     int       `json:"limit"`
	CodeCount int       `json:"code_count"`
	DocCount  int       `json:"doc_count"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Status reports the size of each collection and of the summary cache.
type Status struct {
	Collections         map[string]int `json:"collections"`
	SummaryCacheEntries int            `json:"summary_cache_entries"`
	SummaryCachePath    string         `json:"summary_cache_path,omitempty"`
	Error               string         `json:"error,omitempty"`
}
