package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/patrikhermansson/pairmatch/core"
	"github.com/patrikhermansson/pairmatch/matching"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairmatch.yaml")
	yaml := `backend: tree_l2
ratio: 0.6
workers: 3
scalar: uint8
tree:
  leaf_capacity: 25
  seed: 77
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tree_l2", cfg.Backend)
	assert.Equal(t, 0.6, cfg.Ratio)
	assert.Equal(t, "dense", cfg.Kind, "unset fields keep defaults")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("ratio", matching.DefaultRatio, "")
	flags.String("backend", "", "")
	require.NoError(t, flags.Parse([]string{"--ratio", "0.7"}))
	require.NoError(t, applyFlags(&cfg, flags))
	assert.Equal(t, 0.7, cfg.Ratio)
	assert.Equal(t, "tree_l2", cfg.Backend, "unchanged flags do not override the file")

	mcfg, err := cfg.matcherConfig()
	require.NoError(t, err)
	assert.Equal(t, matching.TreeL2, mcfg.Backend)
	assert.Equal(t, 3, mcfg.Workers)
	assert.Equal(t, 25, mcfg.Tree.LeafCapacity)
	assert.Equal(t, int64(77), mcfg.Tree.Seed)

	files, err := cfg.provider()
	require.NoError(t, err)
	assert.Equal(t, core.ScalarUint8, files.Scalar)
	assert.Equal(t, core.KindDense, files.Kind)
}

func TestConfigErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Backend = "flann"
	_, err := cfg.matcherConfig()
	assert.Error(t, err)

	cfg = defaultConfig()
	cfg.Scalar = "int16"
	_, err = cfg.provider()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ratio: [1"), 0o644))
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestExhaustivePairs(t *testing.T) {
	assert.Empty(t, exhaustivePairs(1))
	assert.Equal(t, core.NewPairSet(
		core.Pair{First: 0, Second: 1},
		core.Pair{First: 0, Second: 2},
		core.Pair{First: 1, Second: 2},
	), exhaustivePairs(3))
}
