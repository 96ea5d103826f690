// Package config loads codegraph settings from a TOML file with
// environment overrides. Every field has a usable default so the server
// runs with no config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment variables recognized by Load. They override the file.
const (
	EnvConfigPath = "CODEGRAPH_CONFIG"
	EnvDBPath     = "CODEGRAPH_DB_PATH"
	EnvProvider   = "CODEGRAPH_EMBEDDING_PROVIDER"
	EnvLogLevel   = "CODEGRAPH_LOG_LEVEL"
	EnvWorkers    = "CODEGRAPH_WORKERS"
)

// DefaultFileName is probed in the working directory when no explicit
// path is given.
const DefaultFileName = "codegraph.toml"

type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Chunker   ChunkerConfig   `toml:"chunker"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Indexer   IndexerConfig   `toml:"indexer"`
	Log       LogConfig       `toml:"log"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ChunkerConfig struct {
	MinLines         int `toml:"min_lines"`
	MaxLines         int `toml:"max_lines"`
	FuncSplitCeiling int `toml:"func_split_ceiling"`
}

type EmbeddingConfig struct {
	Provider  string `toml:"provider"`
	APIKey    string `toml:"api_key"`
	CacheSize int    `toml:"cache_size"`
}

type RetrievalConfig struct {
	Hops          int     `toml:"hops"`
	SeedK         int     `toml:"seed_k"`
	HopDecay      float64 `toml:"hop_decay"`
	BreadthCap    int     `toml:"breadth_cap"`
	Budget        int     `toml:"budget"`
	MinSimilarity float64 `toml:"min_similarity"`
}

type IndexerConfig struct {
	Workers       int  `toml:"workers"`
	IncludeTests  bool `toml:"include_tests"`
	IncludeVendor bool `toml:"include_vendor"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Load reads configuration from path, or from codegraph.toml in the
// working directory when path is empty. A missing file is not an error;
// a present but malformed file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	explicit := path != ""
	if path == "" {
		path = DefaultFileName
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "~/.codegraph/codegraph.db",
		},
		Chunker: ChunkerConfig{
			MinLines:         150,
			MaxLines:         300,
			FuncSplitCeiling: 600,
		},
		Embedding: EmbeddingConfig{
			Provider:  "",
			CacheSize: 10000,
		},
		Retrieval: RetrievalConfig{
			Hops:       2,
			SeedK:      10,
			HopDecay:   0.7,
			BreadthCap: 20,
			Budget:     50,
		},
		Indexer: IndexerConfig{
			Workers:      0, // 0 means NumCPU
			IncludeTests: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Indexer.Workers = n
		}
	}
}

// DatabasePath returns the database path with a leading "~" expanded to
// the user's home directory.
func (c *Config) DatabasePath() (string, error) {
	return ExpandHome(c.Database.Path)
}

// ExpandHome resolves a leading "~" in path against the current user's
// home directory.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/")), nil
	}
	return path, nil
}
