// Package config loads the core's environment/configuration surface:
// node/edge block capacities, whether relation matrices keep a
// maintained transpose, the delta flush ratio, the bulk-delete
// threshold, label/relation capacities, the optional attribute-sealing
// passphrase, and the on-disk data directory. Loading is env-first with
// sensible defaults and a Validate pass before use, with an optional
// YAML file underneath the environment for the layered source.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/matrixgraph/internal/attrs"
	"github.com/orneryd/matrixgraph/internal/datablock"
	"github.com/orneryd/matrixgraph/internal/pending"
	"github.com/orneryd/matrixgraph/internal/runtime"
	"github.com/orneryd/matrixgraph/internal/store"
)

// Config holds every environment/configuration knob, all optional with
// core-chosen defaults.
type Config struct {
	NodeBlockCap               int     `yaml:"node_block_cap"`
	EdgeBlockCap               int     `yaml:"edge_block_cap"`
	MaintainTransposedRelation bool    `yaml:"maintain_transposed_relations"`
	DeltaFlushRatio            float64 `yaml:"delta_flush_ratio"`
	BulkDeleteThreshold        int     `yaml:"bulk_delete_threshold"`
	LabelCap                   int     `yaml:"label_cap"`
	RelationCap                int     `yaml:"relation_cap"`
	DataDir                    string  `yaml:"data_dir"`

	// SealPassphrase, when set, enables attribute sealing: any attribute
	// named with the "sealed:" prefix is stored AES-256-GCM encrypted.
	// Empty means sealing is disabled and Sealer returns nil.
	SealPassphrase string `yaml:"seal_passphrase"`
	SealSalt       string `yaml:"seal_salt"`
}

// DefaultConfig returns Config's defaults.
func DefaultConfig() *Config {
	return &Config{
		NodeBlockCap:               datablock.DefaultBlockCap,
		EdgeBlockCap:               datablock.DefaultBlockCap,
		MaintainTransposedRelation: true,
		DeltaFlushRatio:            pending.DefaultFlushRatio,
		BulkDeleteThreshold:        4,
		LabelCap:                   16,
		RelationCap:                16,
		DataDir:                    "./data",
	}
}

// Sealer builds the attrs.Sealer described by SealPassphrase/SealSalt, or
// nil if no passphrase is configured.
func (c *Config) Sealer() *attrs.Sealer {
	if c.SealPassphrase == "" {
		return nil
	}
	return attrs.NewSealer([]byte(c.SealPassphrase), []byte(c.SealSalt))
}

// LoadFromEnv loads configuration from MATRIXGRAPH_* environment variables,
// falling back to DefaultConfig's values when a variable is unset.
//
// Environment Variables:
//
//	MATRIXGRAPH_NODE_BLOCK_CAP
//	MATRIXGRAPH_EDGE_BLOCK_CAP
//	MATRIXGRAPH_MAINTAIN_TRANSPOSED_RELATIONS
//	MATRIXGRAPH_DELTA_FLUSH_RATIO
//	MATRIXGRAPH_BULK_DELETE_THRESHOLD
//	MATRIXGRAPH_LABEL_CAP
//	MATRIXGRAPH_RELATION_CAP
//	MATRIXGRAPH_DATA_DIR
//	MATRIXGRAPH_SEAL_PASSPHRASE
//	MATRIXGRAPH_SEAL_SALT
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.NodeBlockCap = getEnvInt("MATRIXGRAPH_NODE_BLOCK_CAP", cfg.NodeBlockCap)
	cfg.EdgeBlockCap = getEnvInt("MATRIXGRAPH_EDGE_BLOCK_CAP", cfg.EdgeBlockCap)
	cfg.MaintainTransposedRelation = getEnvBool("MATRIXGRAPH_MAINTAIN_TRANSPOSED_RELATIONS", cfg.MaintainTransposedRelation)
	cfg.DeltaFlushRatio = getEnvFloat("MATRIXGRAPH_DELTA_FLUSH_RATIO", cfg.DeltaFlushRatio)
	cfg.BulkDeleteThreshold = getEnvInt("MATRIXGRAPH_BULK_DELETE_THRESHOLD", cfg.BulkDeleteThreshold)
	cfg.LabelCap = getEnvInt("MATRIXGRAPH_LABEL_CAP", cfg.LabelCap)
	cfg.RelationCap = getEnvInt("MATRIXGRAPH_RELATION_CAP", cfg.RelationCap)
	cfg.DataDir = getEnv("MATRIXGRAPH_DATA_DIR", cfg.DataDir)
	cfg.SealPassphrase = getEnv("MATRIXGRAPH_SEAL_PASSPHRASE", cfg.SealPassphrase)
	cfg.SealSalt = getEnv("MATRIXGRAPH_SEAL_SALT", cfg.SealSalt)
	return cfg
}

// LoadFile loads configuration from a YAML file, starting from
// DefaultConfig so a partial file only overrides what it sets.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnvAndFile layers an optional YAML file under the environment:
// file values seed the config, then every MATRIXGRAPH_* variable that is
// set overrides it. An empty filePath, or one that does not exist, is
// skipped; any other read or parse error is returned.
func LoadFromEnvAndFile(filePath string) (*Config, error) {
	cfg := DefaultConfig()
	if filePath != "" {
		if loaded, err := LoadFile(filePath); err == nil {
			cfg = loaded
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if v := os.Getenv("MATRIXGRAPH_NODE_BLOCK_CAP"); v != "" {
		cfg.NodeBlockCap = getEnvInt("MATRIXGRAPH_NODE_BLOCK_CAP", cfg.NodeBlockCap)
	}
	if v := os.Getenv("MATRIXGRAPH_EDGE_BLOCK_CAP"); v != "" {
		cfg.EdgeBlockCap = getEnvInt("MATRIXGRAPH_EDGE_BLOCK_CAP", cfg.EdgeBlockCap)
	}
	if v := os.Getenv("MATRIXGRAPH_MAINTAIN_TRANSPOSED_RELATIONS"); v != "" {
		cfg.MaintainTransposedRelation = getEnvBool("MATRIXGRAPH_MAINTAIN_TRANSPOSED_RELATIONS", cfg.MaintainTransposedRelation)
	}
	if v := os.Getenv("MATRIXGRAPH_DELTA_FLUSH_RATIO"); v != "" {
		cfg.DeltaFlushRatio = getEnvFloat("MATRIXGRAPH_DELTA_FLUSH_RATIO", cfg.DeltaFlushRatio)
	}
	if v := os.Getenv("MATRIXGRAPH_BULK_DELETE_THRESHOLD"); v != "" {
		cfg.BulkDeleteThreshold = getEnvInt("MATRIXGRAPH_BULK_DELETE_THRESHOLD", cfg.BulkDeleteThreshold)
	}
	if v := os.Getenv("MATRIXGRAPH_LABEL_CAP"); v != "" {
		cfg.LabelCap = getEnvInt("MATRIXGRAPH_LABEL_CAP", cfg.LabelCap)
	}
	if v := os.Getenv("MATRIXGRAPH_RELATION_CAP"); v != "" {
		cfg.RelationCap = getEnvInt("MATRIXGRAPH_RELATION_CAP", cfg.RelationCap)
	}
	cfg.DataDir = getEnv("MATRIXGRAPH_DATA_DIR", cfg.DataDir)
	cfg.SealPassphrase = getEnv("MATRIXGRAPH_SEAL_PASSPHRASE", cfg.SealPassphrase)
	cfg.SealSalt = getEnv("MATRIXGRAPH_SEAL_SALT", cfg.SealSalt)
	return cfg, nil
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if c.NodeBlockCap <= 0 {
		return fmt.Errorf("config: invalid node_block_cap: %d", c.NodeBlockCap)
	}
	if c.EdgeBlockCap <= 0 {
		return fmt.Errorf("config: invalid edge_block_cap: %d", c.EdgeBlockCap)
	}
	if c.DeltaFlushRatio < 0 || c.DeltaFlushRatio > 1 {
		return fmt.Errorf("config: delta_flush_ratio must be in [0,1]: %v", c.DeltaFlushRatio)
	}
	if c.BulkDeleteThreshold < 0 {
		return fmt.Errorf("config: invalid bulk_delete_threshold: %d", c.BulkDeleteThreshold)
	}
	if c.LabelCap <= 0 || c.RelationCap <= 0 {
		return fmt.Errorf("config: label_cap and relation_cap must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	return nil
}

// RuntimeConfig narrows Config to the runtime.Config subset.
func (c *Config) RuntimeConfig() runtime.Config {
	return runtime.Config{
		LabelCap:        c.LabelCap,
		RelationCap:     c.RelationCap,
		ScratchPoolSize: 2,
	}
}

// StoreConfig narrows Config to the store.Config subset.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		NodeBlockCap:        c.NodeBlockCap,
		EdgeBlockCap:        c.EdgeBlockCap,
		MaintainTransposed:  c.MaintainTransposedRelation,
		BulkDeleteThreshold: c.BulkDeleteThreshold,
		FlushRatio:          c.DeltaFlushRatio,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
