package matching

import (
	"context"
	"fmt"

	"github.com/patrikhermansson/pairmatch/core"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type pairResult struct {
	pair    core.Pair
	matches []core.Match
}

// executor runs one matching job for scalar type T.
type executor[T core.Scalar] struct {
	cfg      Config
	sel      Selection
	sets     map[core.ImageIndex]*core.Descriptors[T]
	observer Observer
	logger   zerolog.Logger
}

// run processes the anchor groups one after another and the foreign images of
// each anchor in parallel. A single collector goroutine owns the table.
func (e *executor[T]) run(ctx context.Context, groups []AnchorGroup) (core.PairwiseMatches, error) {
	table := make(core.PairwiseMatches)
	results := make(chan pairResult, e.cfg.Workers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range results {
			table[r.pair] = r.matches
		}
	}()

	var err error
	for _, group := range groups {
		if err = e.runAnchor(ctx, group, results); err != nil {
			break
		}
	}
	close(results)
	<-done

	if err != nil {
		return make(core.PairwiseMatches), err
	}
	return table, nil
}

func (e *executor[T]) runAnchor(ctx context.Context, group AnchorGroup, results chan<- pairResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	anchor := e.sets[group.Anchor]
	if anchor.Len() < 2 {
		e.logger.Debug().Msgf("Skipping anchor %d: %d descriptors", group.Anchor, anchor.Len())
		for _, foreign := range group.Foreign {
			e.observer.PairSkipped(core.Pair{First: group.Anchor, Second: foreign})
		}
		return nil
	}

	index, err := newIndex[T](e.sel, e.cfg.Tree)
	if err != nil {
		return err
	}
	if err := index.Build(anchor.Data(), anchor.Len(), anchor.Dimension()); err != nil {
		return fmt.Errorf("building index of image %d: %w", group.Anchor, err)
	}
	e.observer.IndexBuilt(group.Anchor, anchor.Len())
	e.logger.Debug().Msgf("Built %s index for image %d with %d descriptors, %d pairs to query",
		e.sel.Backend, group.Anchor, anchor.Len(), len(group.Foreign))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, foreign := range group.Foreign {
		pair := core.Pair{First: group.Anchor, Second: foreign}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matches, err := matchAgainst(index, anchor, e.sets[foreign], e.sel.Ratio)
			if err != nil {
				return fmt.Errorf("matching pair %s: %w", pair, err)
			}
			e.observer.PairQueried(pair, len(matches))
			if len(matches) == 0 {
				return nil
			}
			select {
			case results <- pairResult{pair: pair, matches: matches}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

// matchAgainst queries index, built over anchor, with every descriptor of
// foreign and returns the ratio-filtered, deduplicated correspondences.
func matchAgainst[T core.Scalar](index core.Index[T], anchor, foreign *core.Descriptors[T], ratio float64) ([]core.Match, error) {
	raw := make([]core.RawMatch, 0, foreign.Len())
	for j := 0; j < foreign.Len(); j++ {
		nn, err := index.SearchKNN(foreign.Row(j), 2)
		if err != nil {
			return nil, err
		}
		if len(nn) < 2 {
			continue
		}
		raw = append(raw, core.RawMatch{I: nn[0].ID, J: j, D0: nn[0].Distance, D1: nn[1].Distance})
	}
	return Deduplicate(RatioFilter(raw, ratio), anchor.Positions(), foreign.Positions()), nil
}
