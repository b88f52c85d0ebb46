// Package config loads navindex settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mike-a-ellis/navindex/internal/ranking"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "navindex.yaml"

// Store kinds.
const (
	StoreQdrant = "qdrant"
	StoreMemory = "memory"
)

// Config holds every tunable of the index.
type Config struct {
	ProjectRoot    string   `yaml:"project_root"`
	IndexDir       string   `yaml:"index_dir"`
	NavigationFile string   `yaml:"navigation_file"`
	DocRoots       []string `yaml:"doc_roots"`
	Store          string   `yaml:"store"`

	Qdrant    QdrantConfig      `yaml:"qdrant"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
	Ranking   ranking.Overrides `yaml:"ranking"`
}

// QdrantConfig locates the Qdrant gRPC endpoint.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// EmbeddingConfig selects the embedding model.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"`
}

// Default returns the configuration used when no file or env override is present.
func Default() *Config {
	return &Config{
		ProjectRoot:    ".",
		IndexDir:       ".navindex",
		NavigationFile: "navigation.yaml",
		DocRoots:       []string{"."},
		Store:          StoreQdrant,
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 384,
			BatchSize: 500,
			CacheSize: 1024,
		},
	}
}

// Load reads path (or DefaultFile when empty) on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ProjectRoot = getEnv("NAVINDEX_PROJECT_ROOT", c.ProjectRoot)
	c.IndexDir = getEnv("NAVINDEX_INDEX_DIR", c.IndexDir)
	c.NavigationFile = getEnv("NAVINDEX_NAV_FILE", c.NavigationFile)
	c.Store = getEnv("NAVINDEX_STORE", c.Store)
	c.Qdrant.Host = getEnv("QDRANT_HOST", c.Qdrant.Host)
	c.Qdrant.Port = getEnvInt("QDRANT_PORT", c.Qdrant.Port)
}

// Validate rejects settings the index cannot run with.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreQdrant, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreQdrant, StoreMemory)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Qdrant.Port <= 0 {
		return fmt.Errorf("qdrant port must be positive, got %d", c.Qdrant.Port)
	}
	return nil
}

// Resolve makes p absolute against the project root.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectRoot, p)
}

// SummaryCachePath is where the documentation summary cache is persisted.
func (c *Config) SummaryCachePath() string {
	return filepath.Join(c.Resolve(c.IndexDir), "wsp_summary.json")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
