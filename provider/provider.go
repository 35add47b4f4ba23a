// Package provider loads the descriptor sets of a list of images.
package provider

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/gobwas/glob"
	"github.com/patrikhermansson/pairmatch/core"
)

// Provider loads one descriptor set per image. The image index of names[i] is i.
type Provider interface {
	Load(ctx context.Context, names []string, dir string) (map[core.ImageIndex]core.DescriptorSet, error)
}

// Memory serves descriptor sets already held in memory, keyed by image name.
type Memory map[string]core.DescriptorSet

// Load returns the sets of names. dir is ignored.
func (m Memory) Load(ctx context.Context, names []string, _ string) (map[core.ImageIndex]core.DescriptorSet, error) {
	out := make(map[core.ImageIndex]core.DescriptorSet, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("%w: image %q not in memory", core.ErrLoad, name)
		}
		out[core.ImageIndex(i)] = set
	}
	return out, nil
}

// Glob lists the regular files of dir whose names match pattern, sorted.
func Glob(dir, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && g.Match(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
