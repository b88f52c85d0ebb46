package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"

	"github.com/mike-a-ellis/navindex/internal/embedding"
	"github.com/mike-a-ellis/navindex/internal/markdown"
	"github.com/mike-a-ellis/navindex/internal/storage"
)

const (
	// MaxSummaryChars bounds DocumentEntry.Summary.
	MaxSummaryChars = 400
	// summaryLines is how many non-blank lines after the title form the summary.
	summaryLines = 5
	// DefaultConcurrency is how many documents are read and parsed at once.
	DefaultConcurrency = 8
	// HeadingSeparator joins outline titles in the "headings" metadata field.
	HeadingSeparator = "; "
)

// DocumentEntry is one markdown document of the "wsp" collection.
type DocumentEntry struct {
	WSPID    string
	Title    string
	Path     string // Relative to the project root, slash separated
	Summary  string
	DocType  string
	Priority int
	Headings []markdown.Heading
}

// DocOptions configures a DocBuilder.
type DocOptions struct {
	ProjectRoot string // Base for relative roots and stored paths
	CachePath   string // Summary cache file; empty disables persistence
	Concurrency int
}

// DocBuilder rebuilds the "wsp" collection from markdown files.
type DocBuilder struct {
	provider embedding.Provider
	store    storage.VectorStore
	outliner *markdown.Outliner
	opts     DocOptions
	logger   *slog.Logger
}

// NewDocBuilder creates a DocBuilder. A nil outliner leaves Headings empty.
func NewDocBuilder(provider embedding.Provider, store storage.VectorStore, outliner *markdown.Outliner, opts DocOptions, logger *slog.Logger) *DocBuilder {
	if opts.ProjectRoot == "" {
		opts.ProjectRoot = "."
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocBuilder{
		provider: provider,
		store:    store,
		outliner: outliner,
		opts:     opts,
		logger:   logger,
	}
}

// Build scans roots, replaces the collection and persists the summary cache.
// When no document qualifies the collection and the cache are left untouched.
func (b *DocBuilder) Build(ctx context.Context, roots []string) (*BuildResult, error) {
	start := time.Now()

	entries, skipped, err := b.Scan(ctx, roots)
	if err != nil {
		return nil, err
	}
	result := &BuildResult{Collection: storage.DocsCollection, Skipped: skipped}

	if len(entries) == 0 {
		b.logger.Warn("No documents found, leaving collection and summary cache untouched",
			"collection", storage.DocsCollection,
			"roots", roots,
			"skipped", len(skipped),
		)
		result.Duration = time.Since(start)
		return result, nil
	}

	ids := make([]string, len(entries))
	texts := make([]string, len(entries))
	metadatas := make([]map[string]any, len(entries))
	for i, e := range entries {
		ids[i] = fmt.Sprintf("wsp_%d", i)
		texts[i] = e.Title + "\n" + e.Summary
		metadatas[i] = docMetadata(e)
	}

	points, err := storage.NewPoints(ids, b.provider.EncodeBatch(ctx, texts), texts, metadatas)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", storage.DocsCollection, err)
	}

	if err := b.store.Replace(ctx, storage.DocsCollection, points); err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", storage.DocsCollection, err)
	}
	if err := verifyCount(ctx, b.store, storage.DocsCollection, len(points)); err != nil {
		return nil, err
	}

	// The cache follows the committed swap.
	if b.opts.CachePath != "" {
		if err := NewSummaryCache(entries).Save(b.opts.CachePath); err != nil {
			return nil, fmt.Errorf("persist summary cache: %w", err)
		}
	}

	result.Entries = len(points)
	result.Duration = time.Since(start)
	b.logger.Info("Indexed documents",
		"collection", storage.DocsCollection,
		"entries", result.Entries,
		"skipped", len(result.Skipped),
		"duration", result.Duration,
	)
	return result, nil
}

func docMetadata(e DocumentEntry) map[string]any {
	return map[string]any{
		"wsp_id":   e.WSPID,
		"title":    e.Title,
		"path":     e.Path,
		"summary":  e.Summary,
		"doc_type": e.DocType,
		"priority": e.Priority,
		"type":     TypeWSP,
		"headings": markdown.Titles(e.Headings, HeadingSeparator),
	}
}

// Scan finds and parses the markdown files under roots. Unreadable or blank files
// are reported as skipped; a missing root is an error.
func (b *DocBuilder) Scan(ctx context.Context, roots []string) ([]DocumentEntry, []SkippedFile, error) {
	files, skipped, err := b.collect(roots)
	if err != nil {
		return nil, nil, err
	}
	b.logger.Info("Found documents", "count", len(files))

	type parsed struct {
		entry  DocumentEntry
		reason string
	}
	results := make([]parsed, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := b.parse(f)
			if err != nil {
				results[i].reason = err.Error()
				return nil
			}
			results[i].entry = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	entries := make([]DocumentEntry, 0, len(files))
	for i, r := range results {
		if r.reason != "" {
			b.logger.Warn("Skipping document", "path", files[i].rel, "reason", r.reason)
			skipped = append(skipped, SkippedFile{Path: files[i].rel, Reason: r.reason})
			continue
		}
		entries = append(entries, r.entry)
	}
	return entries, skipped, nil
}

type docFile struct {
	abs  string
	base string // Project root, or "" when the file lies outside it
	rel  string // Relative to base, slash separated
}

// collect walks roots and returns eligible markdown files sorted by relative path.
func (b *DocBuilder) collect(roots []string) ([]docFile, []SkippedFile, error) {
	base, err := filepath.Abs(b.opts.ProjectRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve project root: %w", err)
	}

	var (
		files   []docFile
		skipped []SkippedFile
		seen    = make(map[string]bool)
	)
	for _, root := range roots {
		if !filepath.IsAbs(root) {
			root = filepath.Join(base, root)
		}
		if _, err := os.Stat(root); err != nil {
			return nil, nil, fmt.Errorf("document root %s: %w", root, err)
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				_, rel := relPath(base, path)
				skipped = append(skipped, SkippedFile{Path: rel, Reason: err.Error()})
				return nil
			}
			if d.IsDir() {
				if d.Name() == "node_modules" {
					return filepath.SkipDir
				}
				return nil
			}
			if !eligible(path) || seen[path] {
				return nil
			}
			seen[path] = true
			fileBase, rel := relPath(base, path)
			files = append(files, docFile{abs: path, base: fileBase, rel: rel})
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, skipped, nil
}

func eligible(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".md") {
		return false
	}
	if strings.Contains(filepath.ToSlash(path), "node_modules") {
		return false
	}
	name := strings.ToLower(filepath.Base(path))
	return !strings.Contains(name, "changelog") && !strings.Contains(name, "package-lock")
}

// relPath splits path into base and a slash-separated remainder. Files outside
// base keep their full path and an empty base.
func relPath(base, path string) (string, string) {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", filepath.ToSlash(path)
	}
	return base, filepath.ToSlash(rel)
}

// parse reads one document. Invalid UTF-8 is replaced rather than rejected.
func (b *DocBuilder) parse(f docFile) (DocumentEntry, error) {
	raw, err := os.ReadFile(f.abs)
	if err != nil {
		return DocumentEntry{}, fmt.Errorf("read: %w", err)
	}
	data, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return DocumentEntry{}, fmt.Errorf("decode: %w", err)
	}

	title, summary, ok := TitleAndSummary(string(data))
	if !ok {
		return DocumentEntry{}, fmt.Errorf("no content")
	}

	docType := Classify(f.base, filepath.FromSlash(f.rel))

	entry := DocumentEntry{
		WSPID:    WSPID(filepath.Base(f.abs), title),
		Title:    title,
		Path:     f.rel,
		Summary:  summary,
		DocType:  docType,
		Priority: Priority(docType, f.rel),
	}

	if b.outliner != nil {
		headings, err := b.outliner.Outline(data)
		if err != nil {
			b.logger.Debug("Outline failed", "path", f.rel, "error", err)
		} else {
			entry.Headings = headings
		}
	}
	return entry, nil
}

// TitleAndSummary returns the first non-blank line without a leading "# " and the
// next non-blank lines joined by spaces, truncated to MaxSummaryChars. ok is false
// when text has no non-blank line.
func TitleAndSummary(text string) (title, summary string, ok bool) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
			if len(lines) > summaryLines {
				break
			}
		}
	}
	if len(lines) == 0 {
		return "", "", false
	}

	title = strings.TrimSpace(strings.TrimPrefix(lines[0], "# "))
	summary = truncateRunes(strings.Join(lines[1:], " "), MaxSummaryChars)
	return title, summary, true
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
