package matching_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/patrikhermansson/pairmatch/core"
	"github.com/patrikhermansson/pairmatch/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dense32(t *testing.T, dimension int, rows ...[]float32) core.DescriptorSet {
	t.Helper()
	var data []float32
	positions := make([]core.Point, len(rows))
	for i, r := range rows {
		data = append(data, r...)
		positions[i] = core.Point{X: float32(i), Y: float32(i)}
	}
	set, err := core.NewDescriptors(core.KindDense, dimension, data, positions)
	require.NoError(t, err)
	return set
}

func binary(t *testing.T, rows ...[]uint8) core.DescriptorSet {
	t.Helper()
	var data []uint8
	positions := make([]core.Point, len(rows))
	for i, r := range rows {
		data = append(data, r...)
		positions[i] = core.Point{X: float32(i)}
	}
	set, err := core.NewDescriptors(core.KindBinary, len(rows[0]), data, positions)
	require.NoError(t, err)
	return set
}

// randomSets creates n images of count random descriptors. Feature i of image
// img sits at (i, img) so no two features share a position.
func randomSets(t testing.TB, seed int64, n, count, dimension int) map[core.ImageIndex]core.DescriptorSet {
	t.Helper()
	rnd := rand.New(rand.NewSource(seed))
	sets := make(map[core.ImageIndex]core.DescriptorSet, n)
	for img := 0; img < n; img++ {
		data := make([]float32, count*dimension)
		for i := range data {
			data[i] = rnd.Float32()
		}
		positions := make([]core.Point, count)
		for i := range positions {
			positions[i] = core.Point{X: float32(i), Y: float32(img)}
		}
		set, err := core.NewDescriptors(core.KindDense, dimension, data, positions)
		require.NoError(t, err)
		sets[core.ImageIndex(img)] = set
	}
	return sets
}

func allPairs(n int) core.PairSet {
	pairs := core.PairSet{}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs.Add(core.NewPair(core.ImageIndex(i), core.ImageIndex(j)))
		}
	}
	return pairs
}

func newMatcher(backend matching.BackendKind, workers int, observer matching.Observer) *matching.Matcher {
	cfg := matching.DefaultConfig()
	cfg.Backend = backend
	cfg.Workers = workers
	cfg.Observer = observer
	cfg.Tree.Seed = 7
	return matching.New(cfg)
}

func TestMatchEndToEnd(t *testing.T) {
	sets := map[core.ImageIndex]core.DescriptorSet{
		0: dense32(t, 1, []float32{1}, []float32{2}),
		1: dense32(t, 1, []float32{0}),
	}
	pair := core.Pair{First: 0, Second: 1}

	for _, backend := range []matching.BackendKind{matching.BruteForceL2, matching.TreeL2, matching.ProjectionTreeL2} {
		t.Run(backend.String(), func(t *testing.T) {
			table, err := newMatcher(backend, 2, nil).Match(context.Background(), sets, core.NewPairSet(pair))
			require.NoError(t, err)
			assert.Equal(t, core.PairwiseMatches{pair: {{I: 0, J: 0}}}, table)
		})
	}
}

func TestMatchRatioIsSquaredForL2(t *testing.T) {
	// d0 = 1 and d1 = 4 squared; plain distances 1 and 2.
	sets := map[core.ImageIndex]core.DescriptorSet{
		0: dense32(t, 1, []float32{1}, []float32{2}),
		1: dense32(t, 1, []float32{0}),
	}
	pairs := core.NewPairSet(core.Pair{First: 0, Second: 1})

	cfg := matching.DefaultConfig()
	cfg.Ratio = 0.5 // 1 < 0.25*4 fails at the boundary
	table, err := matching.New(cfg).Match(context.Background(), sets, pairs)
	require.NoError(t, err)
	assert.Empty(t, table)

	cfg.Ratio = 0.51
	table, err = matching.New(cfg).Match(context.Background(), sets, pairs)
	require.NoError(t, err)
	assert.Len(t, table, 1)
}

func TestMatchHamming(t *testing.T) {
	sets := map[core.ImageIndex]core.DescriptorSet{
		3: binary(t, []uint8{0x00}, []uint8{0xFF}),
		9: binary(t, []uint8{0x01}, []uint8{0x0F}),
	}
	pair := core.Pair{First: 3, Second: 9}
	table, err := newMatcher(matching.BruteForceHamming, 1, nil).Match(context.Background(), sets, core.NewPairSet(pair))
	require.NoError(t, err)
	// 0x01: distances 1 and 7 pass; 0x0F: distances 4 and 4 fail.
	assert.Equal(t, core.PairwiseMatches{pair: {{I: 0, J: 0}}}, table)
}

func TestMatchIncompatibleBackend(t *testing.T) {
	sets := map[core.ImageIndex]core.DescriptorSet{
		0: binary(t, []uint8{0x00}, []uint8{0xFF}),
		1: binary(t, []uint8{0x01}),
	}
	table, err := newMatcher(matching.BruteForceL2, 1, nil).Match(context.Background(), sets, allPairs(2))
	assert.ErrorIs(t, err, core.ErrIncompatibleConfiguration)
	require.NotNil(t, table)
	assert.Empty(t, table)

	dense := map[core.ImageIndex]core.DescriptorSet{
		0: dense32(t, 1, []float32{1}, []float32{2}),
		1: dense32(t, 1, []float32{0}),
	}
	table, err = newMatcher(matching.BruteForceHamming, 1, nil).Match(context.Background(), dense, allPairs(2))
	assert.ErrorIs(t, err, core.ErrIncompatibleConfiguration)
	assert.Empty(t, table)
}

func TestMatchMixedDescriptorTypes(t *testing.T) {
	sets := map[core.ImageIndex]core.DescriptorSet{
		0: dense32(t, 1, []float32{1}, []float32{2}),
		1: binary(t, []uint8{0x01}),
	}
	table, err := newMatcher(matching.BruteForceL2, 1, nil).Match(context.Background(), sets, allPairs(2))
	assert.ErrorIs(t, err, core.ErrIncompatibleConfiguration)
	assert.Empty(t, table)

	sets[1] = dense32(t, 2, []float32{0, 0})
	table, err = newMatcher(matching.BruteForceL2, 1, nil).Match(context.Background(), sets, allPairs(2))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.Empty(t, table)
}

func TestMatchFewerThanTwoSets(t *testing.T) {
	m := newMatcher(matching.BruteForceL2, 1, nil)
	table, err := m.Match(context.Background(), nil, core.NewPairSet(core.Pair{First: 0, Second: 1}))
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Empty(t, table)

	one := map[core.ImageIndex]core.DescriptorSet{0: dense32(t, 1, []float32{1}, []float32{2})}
	table, err = m.Match(context.Background(), one, core.NewPairSet(core.Pair{First: 0, Second: 1}))
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestMatchInvalidPairs(t *testing.T) {
	sets := map[core.ImageIndex]core.DescriptorSet{
		0: dense32(t, 1, []float32{1}, []float32{2}),
		1: dense32(t, 1, []float32{0}),
	}
	m := newMatcher(matching.BruteForceL2, 1, nil)

	table, err := m.Match(context.Background(), sets, core.NewPairSet(core.Pair{First: 1, Second: 1}))
	assert.ErrorIs(t, err, core.ErrInvalidPair)
	assert.Empty(t, table)

	table, err = m.Match(context.Background(), sets, core.NewPairSet(core.Pair{First: 0, Second: 1}, core.Pair{First: 0, Second: 4}))
	assert.ErrorIs(t, err, core.ErrMissingDescriptors)
	assert.Empty(t, table)
}

func TestMatchSmallAnchorSkipped(t *testing.T) {
	sets := map[core.ImageIndex]core.DescriptorSet{
		0: dense32(t, 1, []float32{1}),
		1: dense32(t, 1, []float32{0}, []float32{5}),
		2: dense32(t, 1, []float32{1.1}),
	}
	counters := matching.NewCounters()
	pairs := core.NewPairSet(core.Pair{First: 0, Second: 1}, core.Pair{First: 1, Second: 2})
	table, err := newMatcher(matching.BruteForceL2, 2, counters).Match(context.Background(), sets, pairs)
	require.NoError(t, err)

	assert.NotContains(t, table, core.Pair{First: 0, Second: 1})
	assert.Equal(t, []core.Match{{I: 0, J: 0}}, table[core.Pair{First: 1, Second: 2}])
	assert.Equal(t, 1, counters.Skipped())
	assert.Equal(t, 0, counters.Builds(0))
}

func TestMatchBuildsEachAnchorOnce(t *testing.T) {
	sets := randomSets(t, 11, 5, 40, 8)
	pairs := core.NewPairSet(
		core.Pair{First: 0, Second: 1},
		core.Pair{First: 0, Second: 2},
		core.Pair{First: 0, Second: 3},
		core.Pair{First: 0, Second: 4},
		core.Pair{First: 2, Second: 3},
		core.Pair{First: 4, Second: 1},
	)
	counters := matching.NewCounters()
	table, err := newMatcher(matching.TreeL2, 3, counters).Match(context.Background(), sets, pairs)
	require.NoError(t, err)

	assert.Equal(t, 1, counters.Builds(0))
	assert.Equal(t, 4, counters.Queries(0))
	assert.Equal(t, 1, counters.Builds(2))
	assert.Equal(t, 1, counters.Queries(2))
	assert.Equal(t, 1, counters.Builds(4))
	assert.Equal(t, 0, counters.Builds(1))
	assert.Equal(t, table.Count(), counters.Correspondences())
}

func TestMatchKeepsPairOrientation(t *testing.T) {
	sets := map[core.ImageIndex]core.DescriptorSet{
		0: dense32(t, 1, []float32{0}),
		1: dense32(t, 1, []float32{9}, []float32{1}),
	}
	pair := core.Pair{First: 1, Second: 0}
	table, err := newMatcher(matching.BruteForceL2, 1, nil).Match(context.Background(), sets, core.NewPairSet(pair))
	require.NoError(t, err)
	// The anchor is image 1, so I indexes image 1 and J image 0.
	assert.Equal(t, core.PairwiseMatches{pair: {{I: 1, J: 0}}}, table)
}

func TestMatchGroupedEqualsNaive(t *testing.T) {
	sets := randomSets(t, 42, 6, 60, 4)
	pairs := allPairs(6)
	ctx := context.Background()

	table, err := newMatcher(matching.BruteForceL2, 4, nil).Match(ctx, sets, pairs)
	require.NoError(t, err)
	require.NotEmpty(t, table)

	naive := core.PairwiseMatches{}
	for _, p := range pairs.Sorted() {
		matches, err := matching.MatchPair(ctx, sets[p.First], sets[p.Second], matching.BruteForceL2, matching.DefaultRatio)
		require.NoError(t, err)
		if len(matches) > 0 {
			naive[p] = matches
		}
	}
	assert.Equal(t, naive, table)
}

func TestMatchIndependentOfWorkers(t *testing.T) {
	sets := randomSets(t, 5, 5, 50, 8)
	pairs := allPairs(5)
	ctx := context.Background()

	want, err := newMatcher(matching.BruteForceL2, 1, nil).Match(ctx, sets, pairs)
	require.NoError(t, err)
	for _, workers := range []int{2, 8} {
		got, err := newMatcher(matching.BruteForceL2, workers, nil).Match(ctx, sets, pairs)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestExactBackendsAgree(t *testing.T) {
	sets := randomSets(t, 99, 4, 80, 6)
	pairs := allPairs(4)
	ctx := context.Background()

	brute, err := newMatcher(matching.BruteForceL2, 4, nil).Match(ctx, sets, pairs)
	require.NoError(t, err)
	tree, err := newMatcher(matching.TreeL2, 4, nil).Match(ctx, sets, pairs)
	require.NoError(t, err)
	assert.Equal(t, brute, tree)
}

func TestMatchCanceled(t *testing.T) {
	sets := randomSets(t, 1, 3, 20, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table, err := newMatcher(matching.BruteForceL2, 2, nil).Match(ctx, sets, allPairs(3))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, table)
	assert.Empty(t, table)
}

func TestMatchPair(t *testing.T) {
	a := dense32(t, 2, []float32{0, 0}, []float32{10, 10}, []float32{20, 0})
	b := dense32(t, 2, []float32{19, 1}, []float32{0.5, 0}, []float32{10, 10})
	matches, err := matching.MatchPair(context.Background(), a, b, matching.TreeL2, 0.8)
	require.NoError(t, err)
	assert.Equal(t, []core.Match{{I: 2, J: 0}, {I: 0, J: 1}, {I: 1, J: 2}}, matches)
}
