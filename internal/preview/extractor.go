// Package preview resolves a hit's location ("path" or "path:symbol") into a short
// source excerpt.
package preview

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mike-a-ellis/navindex/internal/markdown"
	"github.com/mike-a-ellis/navindex/internal/tsindex"
)

// Sentinel previews. Extract returns these instead of errors.
const (
	FileNotFound = "[File not found]"
	NoPreview    = "[No preview available]"
	errorPrefix  = "[Preview error: "
)

// Preview is an excerpt and the 1-based line it is centred on (0 when unknown).
type Preview struct {
	Text string
	Line int
}

// Extractor builds previews relative to a project root. The TypeScript index and
// the markdown outliner are optional; nil disables them.
type Extractor struct {
	root     string
	entities *tsindex.Index
	outliner *markdown.Outliner
	logger   *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(root string, entities *tsindex.Index, outliner *markdown.Outliner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		root:     root,
		entities: entities,
		outliner: outliner,
		logger:   logger,
	}
}

// Extract returns the preview for location. fallback is the caller's structural
// preview, used when no line matches. Extract never panics or fails.
func (e *Extractor) Extract(location, fallback string) (p Preview) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Preview extraction panicked", "location", location, "panic", r)
			p = Preview{Text: errorPreview(fmt.Sprint(r))}
		}
	}()

	p, err := e.extract(location, fallback)
	if err != nil {
		e.logger.Debug("Preview extraction failed", "location", location, "error", err)
		return Preview{Text: errorPreview(err.Error())}
	}
	return p
}

// errorPreview wraps msg in the error sentinel, shortening msg so the whole
// sentinel stays within the preview bound.
func errorPreview(msg string) string {
	budget := tsindex.MaxPreviewChars - utf8.RuneCountInString(errorPrefix) - 1
	if runes := []rune(msg); len(runes) > budget {
		msg = string(runes[:budget]) + "..."
	}
	return errorPrefix + msg + "]"
}

func (e *Extractor) extract(location, fallback string) (Preview, error) {
	file, symbol := ParseLocation(location)
	if file == "" {
		return Preview{Text: NoPreview}, nil
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.root, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Preview{Text: FileNotFound}, nil
		}
		return Preview{}, err
	}
	if info.IsDir() {
		return Preview{Text: e.structural(path, fallback)}, nil
	}

	if symbol != "" && e.entities != nil && tsindex.Supports(path) {
		entity, ok, err := e.entities.Lookup(path, symbol)
		if err != nil {
			return Preview{}, err
		}
		if ok {
			return Preview{Text: entity.Preview, Line: entity.Line}, nil
		}
	}

	if symbol != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Preview{}, err
		}
		lines := tsindex.SplitLines(data)
		if idx := matchLine(lines, symbol); idx >= 0 {
			return Preview{Text: tsindex.Window(lines, idx), Line: idx + 1}, nil
		}
	}

	return Preview{Text: e.structural(path, fallback)}, nil
}

// structural returns the caller's fallback, else an outline of the file.
func (e *Extractor) structural(path, fallback string) string {
	if s := strings.TrimSpace(fallback); s != "" {
		return tsindex.Truncate(s)
	}

	switch {
	case e.outliner != nil && strings.EqualFold(filepath.Ext(path), ".md"):
		data, err := os.ReadFile(path)
		if err != nil {
			return NoPreview
		}
		headings, err := e.outliner.Outline(data)
		if err != nil || len(headings) == 0 {
			return NoPreview
		}
		return tsindex.Truncate(markdown.Format(headings))

	case e.entities != nil && tsindex.Supports(path):
		entities, err := e.entities.Entities(path)
		if err != nil || len(entities) == 0 {
			return NoPreview
		}
		return tsindex.Truncate(tsindex.Summary(entities))
	}

	return NoPreview
}

// matchLine returns the first line containing symbol or its first token,
// case-insensitively, or -1.
func matchLine(lines []string, symbol string) int {
	needle := strings.ToLower(strings.TrimSpace(symbol))
	token := firstToken(needle)
	if needle == "" {
		return -1
	}

	for i, line := range lines {
		l := strings.ToLower(line)
		if strings.Contains(l, needle) || (token != "" && strings.Contains(l, token)) {
			return i
		}
	}
	return -1
}

// firstToken is the leading identifier-ish part of a symbol: "Store.load()" -> "store".
func firstToken(symbol string) string {
	fields := strings.FieldsFunc(symbol, func(r rune) bool {
		return r == '.' || r == '(' || r == ')' || r == ' ' || r == '\t' || r == ':' || r == ','
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ParseLocation splits "path:symbol" on the last colon when the part before it
// looks like a path. A bare drive letter ("C:\x") is never split off.
func ParseLocation(location string) (file, symbol string) {
	location = strings.TrimSpace(location)
	i := strings.LastIndex(location, ":")
	if i <= 0 || i == len(location)-1 {
		return strings.TrimSuffix(location, ":"), ""
	}

	prefix, rest := location[:i], location[i+1:]
	if !isPathLike(prefix) || strings.ContainsAny(rest, `/\`) {
		return location, ""
	}
	return prefix, strings.TrimSpace(rest)
}

func isPathLike(s string) bool {
	if len(s) == 1 {
		// drive letter
		return false
	}
	return strings.ContainsAny(s, `/\.`)
}
