package cmd

import (
	"fmt"
	"os"

	"github.com/patrikhermansson/pairmatch/core"
	"github.com/patrikhermansson/pairmatch/matching"
	"github.com/patrikhermansson/pairmatch/provider"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// TreeConfig mirrors rpt.Config.
type TreeConfig struct {
	LeafCapacity         int     `yaml:"leaf_capacity"`
	CandidateProjections int     `yaml:"candidate_projections"`
	ProbeMargin          float64 `yaml:"probe_margin"`
	Seed                 int64   `yaml:"seed"`
}

// Config is the on-disk configuration of the match command.
type Config struct {
	Backend  string     `yaml:"backend"`
	Ratio    float64    `yaml:"ratio"`
	Workers  int        `yaml:"workers"`
	Progress bool       `yaml:"progress"`
	Scalar   string     `yaml:"scalar"`
	Kind     string     `yaml:"kind"`
	Pattern  string     `yaml:"pattern"`
	Tree     TreeConfig `yaml:"tree"`
}

func defaultConfig() Config {
	return Config{
		Backend: matching.BruteForceL2.String(),
		Ratio:   matching.DefaultRatio,
		Scalar:  core.ScalarFloat32.String(),
		Kind:    core.KindDense.String(),
		Pattern: "*.{jpg,jpeg,png,JPG,JPEG,PNG}",
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags the user set explicitly.
func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	get := func(name string, fn func() error) {
		if err == nil && flags.Changed(name) {
			err = fn()
		}
	}
	get("backend", func() (e error) { cfg.Backend, e = flags.GetString("backend"); return })
	get("ratio", func() (e error) { cfg.Ratio, e = flags.GetFloat64("ratio"); return })
	get("workers", func() (e error) { cfg.Workers, e = flags.GetInt("workers"); return })
	get("progress", func() (e error) { cfg.Progress, e = flags.GetBool("progress"); return })
	get("scalar", func() (e error) { cfg.Scalar, e = flags.GetString("scalar"); return })
	get("kind", func() (e error) { cfg.Kind, e = flags.GetString("kind"); return })
	get("pattern", func() (e error) { cfg.Pattern, e = flags.GetString("pattern"); return })
	get("seed", func() (e error) { cfg.Tree.Seed, e = flags.GetInt64("seed"); return })
	return err
}

// matcherConfig converts cfg into a matching.Config.
func (c Config) matcherConfig() (matching.Config, error) {
	out := matching.DefaultConfig()
	backend, err := matching.ParseBackendKind(c.Backend)
	if err != nil {
		return out, err
	}
	out.Backend = backend
	out.Ratio = c.Ratio
	out.Progress = c.Progress
	if c.Workers > 0 {
		out.Workers = c.Workers
	}
	if c.Tree.LeafCapacity > 0 {
		out.Tree.LeafCapacity = c.Tree.LeafCapacity
	}
	if c.Tree.CandidateProjections > 0 {
		out.Tree.CandidateProjections = c.Tree.CandidateProjections
	}
	if c.Tree.ProbeMargin > 0 {
		out.Tree.ProbeMargin = c.Tree.ProbeMargin
	}
	if c.Tree.Seed != 0 {
		out.Tree.Seed = c.Tree.Seed
	}
	return out, nil
}

// provider builds the descriptor file provider of cfg.
func (c Config) provider() (provider.Files, error) {
	scalar, err := core.ParseScalarType(c.Scalar)
	if err != nil {
		return provider.Files{}, err
	}
	kind, err := core.ParseDescriptorKind(c.Kind)
	if err != nil {
		return provider.Files{}, err
	}
	return provider.Files{Scalar: scalar, Kind: kind, Workers: c.Workers}, nil
}
