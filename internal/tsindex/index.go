// Package tsindex maps TypeScript/TSX/JSX symbols to their declaration line and a
// short preview, caching the result per file until its modification time or size
// changes.
package tsindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheFiles bounds how many parsed files are kept.
const DefaultCacheFiles = 256

// Extensions handled by the index.
var Extensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".jsx": true,
}

// Supports reports whether path has an extension the index understands.
func Supports(path string) bool {
	return Extensions[strings.ToLower(filepath.Ext(path))]
}

type fileEntry struct {
	modTime  time.Time
	size     int64
	entities map[string]Entity
}

// Index caches recognized entities per file. Safe for concurrent use; two callers
// racing on a stale entry may both re-parse, and the last write wins.
type Index struct {
	recognizer Recognizer
	cache      *lru.Cache[string, fileEntry]
}

// New creates an Index. A nil recognizer selects Heuristic.
func New(recognizer Recognizer, cacheFiles int) *Index {
	if recognizer == nil {
		recognizer = Heuristic{}
	}
	if cacheFiles <= 0 {
		cacheFiles = DefaultCacheFiles
	}
	cache, err := lru.New[string, fileEntry](cacheFiles)
	if err != nil {
		panic(err)
	}
	return &Index{recognizer: recognizer, cache: cache}
}

// Entities returns all entities of the file, re-parsing when its mtime or size changed.
func (x *Index) Entities(path string) (map[string]Entity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if entry, ok := x.cache.Get(path); ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.entities, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	entities := x.recognizer.Recognize(SplitLines(data))
	x.cache.Add(path, fileEntry{modTime: info.ModTime(), size: info.Size(), entities: entities})
	return entities, nil
}

// Lookup finds symbol in the file. It tries the normalized symbol, then its last
// dotted segment ("Panel.render" -> "render").
func (x *Index) Lookup(path, symbol string) (Entity, bool, error) {
	entities, err := x.Entities(path)
	if err != nil {
		return Entity{}, false, err
	}

	key := Normalize(symbol)
	if e, ok := entities[key]; ok {
		return e, true, nil
	}
	if i := strings.LastIndex(key, "."); i >= 0 && i < len(key)-1 {
		if e, ok := entities[key[i+1:]]; ok {
			return e, true, nil
		}
	}
	return Entity{}, false, nil
}

// Summary lists entities as "kind name (line N)", sorted by line.
func Summary(entities map[string]Entity) string {
	list := make([]Entity, 0, len(entities))
	for _, e := range entities {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Line != list[j].Line {
			return list[i].Line < list[j].Line
		}
		return list[i].Name < list[j].Name
	})

	lines := make([]string, len(list))
	for i, e := range list {
		lines[i] = fmt.Sprintf("%s %s (line %d)", e.Kind, e.Name, e.Line)
	}
	return strings.Join(lines, "\n")
}

// SplitLines splits file content into lines, dropping "\r" line endings.
func SplitLines(data []byte) []string {
	lines := strings.Split(string(data), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
