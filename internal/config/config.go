// Package config loads the pipeline's YAML configuration file into a
// small tree of per-concern structs, one per pipeline component, the
// way the teacher project composes its UserConfig from per-subsystem
// structs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"wetygraph/internal/disambig"
	"wetygraph/internal/logging"
)

// PipelineConfig aggregates every knob the three-pass driver needs.
type PipelineConfig struct {
	Dump      DumpConfig      `yaml:"dump"`
	Language  LanguageConfig  `yaml:"language"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Disambig  DisambigConfig  `yaml:"disambig"`
	Output    GraphOutputConfig `yaml:"output"`
	Logging   logging.Config  `yaml:"logging"`
}

// DumpConfig locates the Wiktionary dump the external line iterator
// (out of scope, §1) reads from.
type DumpConfig struct {
	Path string `yaml:"path"`
}

// LanguageConfig locates the bundled language-metadata JSON (§4.2,
// §6). The table's content is out of scope; only its location is
// pipeline configuration.
type LanguageConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig configures the embedding manager (§4.6). The encoder
// itself is an external collaborator (§1 Non-goals: no model is vendored
// or trained here) reached over HTTP at Endpoint. Dimensions is passed
// to the encoder as its advisory vector width; Model is recorded here
// only and is not sent to the endpoint.
type EmbeddingConfig struct {
	// Model is one of a closed enumeration of sentence-transformer IDs.
	Model string `yaml:"model"`
	// Endpoint is the embedding server's batch-encode URL.
	Endpoint string `yaml:"endpoint"`
	// Dimensions is the vector width Model produces.
	Dimensions int `yaml:"dimensions"`
	// BatchSize is the number of texts accumulated before one encode call.
	BatchSize int `yaml:"batch_size"`
	// CachePath is the sqlite database backing the persistent TextHash cache.
	CachePath string `yaml:"cache_path"`
}

// DisambigConfig configures the disambiguator (§4.7).
type DisambigConfig struct {
	// SimilarityThreshold is the minimum cosine similarity a candidate
	// must reach to be accepted instead of triggering imputation.
	// See SPEC_FULL.md §4 for why 0.0 (accept-any-best-match) is the
	// chosen default.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// AncestorDiscount is the per-hop discount applied when weighting
	// an ancestor chain, near-to-far (§4.6).
	AncestorDiscount float64 `yaml:"ancestor_discount"`
}

// GraphOutputConfig locates the serialized graph blob (§6).
type GraphOutputConfig struct {
	Path string `yaml:"path"`
}

// Default returns the pipeline's default configuration.
func Default() *PipelineConfig {
	return &PipelineConfig{
		Dump:     DumpConfig{Path: "wiktextract-data.jsonl"},
		Language: LanguageConfig{Path: "languages.json"},
		Embedding: EmbeddingConfig{
			Model:      "all-MiniLM-L6-v2",
			Endpoint:   "http://localhost:8088/embed",
			Dimensions: 384,
			BatchSize:  800,
			CachePath:  "embeddings.db",
		},
		Disambig: DisambigConfig{
			SimilarityThreshold: disambig.DefaultSimilarityThreshold,
			AncestorDiscount:    0.95,
		},
		Output: GraphOutputConfig{Path: "ety-graph.bin"},
		Logging: logging.Config{
			DebugMode: false,
			Level:     "info",
			Dir:       "./wety-logs",
		},
	}
}

// Load reads a YAML pipeline config from path, falling back to
// Default() when the file does not exist (matching the teacher's
// Load: a missing config file is not an error, just a request for
// defaults).
func Load(path string) (*PipelineConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func (c *PipelineConfig) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create dir %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks for obviously-broken configuration before a run starts.
func (c *PipelineConfig) Validate() error {
	if c.Dump.Path == "" {
		return fmt.Errorf("config: dump.path is required")
	}
	if c.Language.Path == "" {
		return fmt.Errorf("config: language.path is required")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("config: embedding.batch_size must be positive")
	}
	if c.Embedding.Endpoint == "" {
		return fmt.Errorf("config: embedding.endpoint is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("config: embedding.dimensions must be positive")
	}
	if c.Disambig.AncestorDiscount <= 0 || c.Disambig.AncestorDiscount > 1 {
		return fmt.Errorf("config: disambig.ancestor_discount must be in (0, 1]")
	}
	return nil
}
