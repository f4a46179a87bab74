package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("MATRIXGRAPH_NODE_BLOCK_CAP", "1024")
	t.Setenv("MATRIXGRAPH_DELTA_FLUSH_RATIO", "0.5")
	t.Setenv("MATRIXGRAPH_MAINTAIN_TRANSPOSED_RELATIONS", "false")

	cfg := LoadFromEnv()
	assert.Equal(t, 1024, cfg.NodeBlockCap)
	assert.Equal(t, 0.5, cfg.DeltaFlushRatio)
	assert.False(t, cfg.MaintainTransposedRelation)
	assert.Equal(t, datablockDefaultEdgeCap(), cfg.EdgeBlockCap)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matrixgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("label_cap: 64\nrelation_cap: 64\n"), 0o600))

	t.Setenv("MATRIXGRAPH_LABEL_CAP", "128")

	cfg, err := LoadFromEnvAndFile(path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.LabelCap)   // env wins over file
	assert.Equal(t, 64, cfg.RelationCap) // file wins over default
}

func TestLoadFromEnvAndFileSkipsMissingFile(t *testing.T) {
	cfg, err := LoadFromEnvAndFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LabelCap, cfg.LabelCap)
}

func TestValidateRejectsOutOfRangeFlushRatio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeltaFlushRatio = 1.5
	assert.Error(t, cfg.Validate())
}

func datablockDefaultEdgeCap() int {
	return DefaultConfig().EdgeBlockCap
}
