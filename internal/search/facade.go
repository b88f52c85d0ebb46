// Package search answers natural-language queries against the "code" and "wsp"
// collections and triggers their rebuilds.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mike-a-ellis/navindex/internal/embedding"
	"github.com/mike-a-ellis/navindex/internal/index"
	"github.com/mike-a-ellis/navindex/internal/preview"
	"github.com/mike-a-ellis/navindex/internal/ranking"
	"github.com/mike-a-ellis/navindex/internal/storage"
)

// Deps are the collaborators of a Facade. Previews may be nil, which leaves code
// results without previews.
type Deps struct {
	Provider embedding.Provider
	Store    storage.VectorStore
	Ranker   *ranking.Ranker
	Previews *preview.Extractor
	Code     *index.CodeBuilder
	Docs     *index.DocBuilder
}

// Options locate the rebuild sources.
type Options struct {
	NavigationFile   string
	DocRoots         []string
	SummaryCachePath string
}

// Facade composes embedding, store queries, ranking and previews. Search is safe
// for concurrent use.
type Facade struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Facade.
func New(deps Deps, opts Options, logger *slog.Logger) *Facade {
	if deps.Ranker == nil {
		deps.Ranker = ranking.New(ranking.DefaultWeights())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{
		deps:   deps,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Search ranks the nearest entries of the collections selected by filter:
// "code", "wsp", a document type, or "all" (also the default). Search never
// fails: errors are reported in Metadata.Error with empty results.
func (f *Facade) Search(ctx context.Context, query string, limit int, filter string) (resp *Response) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	filter = normalizeFilter(filter)

	resp = &Response{
		Code: []CodeResult{},
		Docs: []DocResult{},
		Metadata: Metadata{
			Query:     query,
			Filter:    filter,
			Limit:     limit,
			Timestamp: f.now().UTC(),
		},
	}

	defer func() {
		if r := recover(); r != nil {
			f.fail(resp, fmt.Errorf("panic: %v", r))
		}
	}()

	code, docs, err := f.search(ctx, query, limit, filter)
	if err != nil {
		f.fail(resp, err)
		return resp
	}

	resp.Code = code
	resp.Docs = docs
	resp.Metadata.CodeCount = len(code)
	resp.Metadata.DocCount = len(docs)
	return resp
}

func (f *Facade) fail(resp *Response, err error) {
	f.logger.Warn("Search failed", "query", resp.Metadata.Query, "filter", resp.Metadata.Filter, "error", err)
	resp.Code = []CodeResult{}
	resp.Docs = []DocResult{}
	resp.Metadata.CodeCount = 0
	resp.Metadata.DocCount = 0
	resp.Metadata.Error = err.Error()
}

func (f *Facade) search(ctx context.Context, query string, limit int, filter string) ([]CodeResult, []DocResult, error) {
	wantCode := filter == FilterAll || filter == FilterCode
	wantDocs := filter == FilterAll || filter == FilterWSP || index.IsDocType(filter)
	if !wantCode && !wantDocs {
		return nil, nil, fmt.Errorf("unknown filter %q", filter)
	}

	docFilter := ""
	if index.IsDocType(filter) {
		docFilter = filter
	}

	vector := f.deps.Provider.Encode(ctx, query)

	var (
		code []CodeResult
		docs []DocResult
	)
	g, gctx := errgroup.WithContext(ctx)
	if wantCode {
		g.Go(recovered(func() error {
			hits, err := f.deps.Store.Query(gctx, storage.CodeCollection, vector, limit)
			if err != nil {
				return fmt.Errorf("query %s: %w", storage.CodeCollection, err)
			}
			code = f.codeResults(f.deps.Ranker.Rank(query, hits, limit, ""))
			return nil
		}))
	}
	if wantDocs {
		g.Go(recovered(func() error {
			hits, err := f.deps.Store.Query(gctx, storage.DocsCollection, vector, limit)
			if err != nil {
				return fmt.Errorf("query %s: %w", storage.DocsCollection, err)
			}
			docs = docResults(f.deps.Ranker.Rank(query, hits, limit, docFilter))
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if code == nil {
		code = []CodeResult{}
	}
	if docs == nil {
		docs = []DocResult{}
	}
	return code, docs, nil
}

// recovered turns a panic in fn into an error, since a panic in an errgroup
// goroutine cannot be recovered by the caller.
func recovered(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}
}

func (f *Facade) codeResults(records []ranking.Record) []CodeResult {
	results := make([]CodeResult, len(records))
	for i, r := range records {
		location := field(r.Metadata, "location")
		if location == "" {
			location = field(r.Metadata, "source")
		}

		res := CodeResult{
			ID:         r.ID,
			Need:       field(r.Metadata, "need"),
			Location:   location,
			Cube:       field(r.Metadata, "cube"),
			Similarity: r.Similarity,
			Confidence: r.Confidence,
			Priority:   r.Priority,
		}
		if f.deps.Previews != nil {
			p := f.deps.Previews.Extract(location, "")
			res.Preview = p.Text
			res.Line = p.Line
		}
		results[i] = res
	}
	return results
}

func docResults(records []ranking.Record) []DocResult {
	results := make([]DocResult, len(records))
	for i, r := range records {
		results[i] = DocResult{
			ID:         r.ID,
			WSPID:      field(r.Metadata, "wsp_id"),
			Title:      field(r.Metadata, "title"),
			Path:       field(r.Metadata, "path"),
			Summary:    field(r.Metadata, "summary"),
			DocType:    r.DocType,
			Priority:   r.Priority,
			Similarity: r.Similarity,
			Confidence: r.Confidence,
			Headings:   field(r.Metadata, "headings"),
		}
	}
	return results
}

// IndexCodeEntries rebuilds the "code" collection from the navigation file.
func (f *Facade) IndexCodeEntries(ctx context.Context) (*index.BuildResult, error) {
	if f.deps.Code == nil {
		return nil, errors.New("code indexing is not configured")
	}
	entries, err := index.LoadNavigation(f.opts.NavigationFile)
	if err != nil {
		return nil, err
	}
	return f.deps.Code.Build(ctx, entries)
}

// IndexWSPEntries rebuilds the "wsp" collection from paths, or from the
// configured roots when none are given.
func (f *Facade) IndexWSPEntries(ctx context.Context, paths ...string) (*index.BuildResult, error) {
	if f.deps.Docs == nil {
		return nil, errors.New("document indexing is not configured")
	}
	if len(paths) == 0 {
		paths = f.opts.DocRoots
	}
	return f.deps.Docs.Build(ctx, paths)
}

// Status counts both collections and the persisted summaries.
func (f *Facade) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		Collections:      make(map[string]int, 2),
		SummaryCachePath: f.opts.SummaryCachePath,
	}
	for _, name := range []string{storage.CodeCollection, storage.DocsCollection} {
		n, err := f.deps.Store.Count(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		status.Collections[name] = n
	}

	if f.opts.SummaryCachePath != "" {
		cache, err := index.LoadSummaryCache(f.opts.SummaryCachePath)
		if err != nil {
			// a corrupt cache does not hide the collection counts
			status.Error = err.Error()
		} else {
			status.SummaryCacheEntries = len(cache)
		}
	}
	return status, nil
}

func normalizeFilter(filter string) string {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return FilterAll
	}
	return index.CanonicalDocType(filter)
}

func field(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}
