package matching

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/patrikhermansson/pairmatch/core"
	"github.com/patrikhermansson/pairmatch/rpt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultRatio is the default nearest-neighbor distance ratio.
const DefaultRatio = 0.8

// Config controls a matching run.
type Config struct {
	Backend BackendKind
	// Ratio is the distance ratio of the ratio test, applied to plain
	// (not squared) distances.
	Ratio float64
	// Workers bounds the foreign images queried concurrently per anchor.
	Workers int
	// Tree configures the ProjectionTreeL2 backend.
	Tree rpt.Config
	// Observer, if set, is notified as pairs complete.
	Observer Observer
	// Progress draws a progress bar on stderr.
	Progress bool
}

// DefaultConfig returns a brute-force L2 configuration using PAIRMATCH_WORKERS
// workers (all CPUs when unset).
func DefaultConfig() Config {
	return Config{
		Backend: BruteForceL2,
		Ratio:   DefaultRatio,
		Workers: core.GetWorkers(),
		Tree:    rpt.DefaultConfig(),
	}
}

// Matcher computes putative correspondences between images.
type Matcher struct {
	cfg Config
}

// New creates a Matcher. Non-positive Workers fall back to PAIRMATCH_WORKERS.
func New(cfg Config) *Matcher {
	if cfg.Workers <= 0 {
		cfg.Workers = core.GetWorkers()
	}
	return &Matcher{cfg: cfg}
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config { return m.cfg }

// Match computes the correspondences of every pair in pairs. The returned
// table is never nil. It holds only pairs with at least one correspondence,
// keyed exactly as supplied. On any error the table is empty.
func (m *Matcher) Match(ctx context.Context, sets map[core.ImageIndex]core.DescriptorSet, pairs core.PairSet) (core.PairwiseMatches, error) {
	logger := log.With().Str("run", uuid.NewString()).Logger()
	start := time.Now()

	if len(sets) < 2 {
		logger.Debug().Msgf("Nothing to match: %d descriptor sets", len(sets))
		return make(core.PairwiseMatches), nil
	}
	for p := range pairs {
		if p.First == p.Second {
			return make(core.PairwiseMatches), fmt.Errorf("%w: %s", core.ErrInvalidPair, p)
		}
		for _, img := range []core.ImageIndex{p.First, p.Second} {
			if set, ok := sets[img]; !ok || set == nil {
				return make(core.PairwiseMatches), fmt.Errorf("%w: image %d of pair %s", core.ErrMissingDescriptors, img, p)
			}
		}
	}

	rep, err := representative(sets)
	if err != nil {
		return make(core.PairwiseMatches), err
	}
	sel, err := Select(rep.ScalarType(), rep.Kind(), m.cfg.Backend, m.cfg.Ratio)
	if err != nil {
		logger.Error().Err(err).Msg("No backend for descriptor type")
		return make(core.PairwiseMatches), err
	}

	logger.Info().Msgf("Matching %d pairs over %d images with %s (%s, %s, ratio %.3f, %d workers, simd %t)",
		len(pairs), len(sets), sel.Backend, sel.Metric, sel.Scalar, m.cfg.Ratio, m.cfg.Workers, core.SIMDSupport())

	var table core.PairwiseMatches
	switch sel.Scalar {
	case core.ScalarUint8:
		table, err = runTyped[uint8](ctx, logger, m.cfg, sel, sets, pairs)
	case core.ScalarFloat32:
		table, err = runTyped[float32](ctx, logger, m.cfg, sel, sets, pairs)
	case core.ScalarFloat64:
		table, err = runTyped[float64](ctx, logger, m.cfg, sel, sets, pairs)
	default:
		err = fmt.Errorf("%w: unsupported scalar type %s", core.ErrIncompatibleConfiguration, sel.Scalar)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Matching failed")
		return make(core.PairwiseMatches), err
	}

	logger.Info().Msgf("Matched %d of %d pairs, %d correspondences in %s",
		len(table), len(pairs), table.Count(), time.Since(start))
	return table, nil
}

// representative returns the set with the lowest image index after checking
// that every set shares its scalar type and kind, and that every non-empty set
// shares its dimension.
func representative(sets map[core.ImageIndex]core.DescriptorSet) (core.DescriptorSet, error) {
	ids := make([]core.ImageIndex, 0, len(sets))
	for id, set := range sets {
		if set == nil {
			return nil, fmt.Errorf("%w: image %d", core.ErrMissingDescriptors, id)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	rep := sets[ids[0]]
	dimension, dimensionOf := 0, ids[0]
	for _, id := range ids {
		s := sets[id]
		if s.ScalarType() != rep.ScalarType() || s.Kind() != rep.Kind() {
			return nil, fmt.Errorf("%w: image %d holds %s %s descriptors, image %d holds %s %s",
				core.ErrIncompatibleConfiguration, id, s.Kind(), s.ScalarType(), ids[0], rep.Kind(), rep.ScalarType())
		}
		if s.Len() == 0 {
			continue
		}
		if dimension == 0 {
			dimension, dimensionOf = s.Dimension(), id
		} else if s.Dimension() != dimension {
			return nil, fmt.Errorf("%w: image %d has dimension %d, image %d has %d",
				core.ErrDimensionMismatch, id, s.Dimension(), dimensionOf, dimension)
		}
	}
	return rep, nil
}

func runTyped[T core.Scalar](ctx context.Context, logger zerolog.Logger, cfg Config, sel Selection, sets map[core.ImageIndex]core.DescriptorSet, pairs core.PairSet) (core.PairwiseMatches, error) {
	typed := make(map[core.ImageIndex]*core.Descriptors[T], len(sets))
	for p := range pairs {
		for _, img := range []core.ImageIndex{p.First, p.Second} {
			if _, ok := typed[img]; ok {
				continue
			}
			view, err := core.View[T](sets[img])
			if err != nil {
				return nil, fmt.Errorf("%w: image %d: %w", core.ErrIncompatibleConfiguration, img, err)
			}
			typed[img] = view
		}
	}

	observers := multiObserver{}
	if cfg.Observer != nil {
		observers = append(observers, cfg.Observer)
	}
	var progress *ProgressObserver
	if cfg.Progress {
		progress = NewProgressObserver(len(pairs), os.Stderr)
		observers = append(observers, progress)
	}

	e := &executor[T]{
		cfg:      cfg,
		sel:      sel,
		sets:     typed,
		observer: observers,
		logger:   logger,
	}
	table, err := e.run(ctx, Schedule(pairs))
	if progress != nil && err == nil {
		_ = progress.Finish()
	}
	return table, err
}

// MatchPair matches two descriptor sets directly, querying the index of a with
// the descriptors of b. Correspondences are (index in a, index in b).
func MatchPair(ctx context.Context, a, b core.DescriptorSet, backend BackendKind, ratio float64) ([]core.Match, error) {
	cfg := DefaultConfig()
	cfg.Backend = backend
	cfg.Ratio = ratio
	cfg.Workers = 1
	pair := core.Pair{First: 0, Second: 1}
	table, err := New(cfg).Match(ctx, map[core.ImageIndex]core.DescriptorSet{0: a, 1: b}, core.NewPairSet(pair))
	if err != nil {
		return nil, err
	}
	return table[pair], nil
}
