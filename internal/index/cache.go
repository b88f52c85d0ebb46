package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SummaryRecord is the persisted digest of one protocol document.
type SummaryRecord struct {
	Title   string `json:"title"`
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

// SummaryCache maps wsp_id to its summary. It is rewritten only after a
// successful documentation rebuild.
type SummaryCache map[string]SummaryRecord

// NewSummaryCache builds the cache for entries. When several documents share a
// wsp_id the higher priority wins, then the earlier path.
func NewSummaryCache(entries []DocumentEntry) SummaryCache {
	cache := make(SummaryCache, len(entries))
	best := make(map[string]int, len(entries))
	for _, e := range entries {
		if p, ok := best[e.WSPID]; ok && p >= e.Priority {
			continue
		}
		best[e.WSPID] = e.Priority
		cache[e.WSPID] = SummaryRecord{Title: e.Title, Path: e.Path, Summary: e.Summary}
	}
	return cache
}

// LoadSummaryCache reads the cache at path. A missing file yields an empty cache.
func LoadSummaryCache(path string) (SummaryCache, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return SummaryCache{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read summary cache %s: %w", path, err)
	}

	cache := SummaryCache{}
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parse summary cache %s: %w", path, err)
	}
	return cache, nil
}

// Save writes the cache to path through a temporary file and a rename, so a
// reader never sees a partial file.
func (c SummaryCache) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
