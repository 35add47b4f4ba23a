package bruteforce_test

import (
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/patrikhermansson/pairmatch/bruteforce"
	"github.com/patrikhermansson/pairmatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_BuildErrors(t *testing.T) {
	idx, err := bruteforce.New[float32](core.MetricSquaredL2)
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Build(nil, 0, 4), core.ErrEmptyIndex)
	assert.ErrorIs(t, idx.Build([]float32{1, 2, 3}, 2, 2), core.ErrDimensionMismatch)

	require.NoError(t, idx.Build([]float32{1, 2, 3, 4}, 2, 2))
	assert.ErrorIs(t, idx.Build([]float32{1, 2}, 1, 2), core.ErrIndexBuilt)

	_, err = idx.SearchKNN([]float32{1, 2, 3}, 2)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestIndex_SearchBeforeBuild(t *testing.T) {
	idx, err := bruteforce.New[uint8](core.MetricHamming)
	require.NoError(t, err)
	_, err = idx.SearchKNN([]uint8{1}, 2)
	assert.ErrorIs(t, err, core.ErrEmptyIndex)
}

func TestIndex_HammingOverFloatRejected(t *testing.T) {
	_, err := bruteforce.New[float64](core.MetricHamming)
	assert.ErrorIs(t, err, core.ErrIncompatibleConfiguration)
}

func TestIndex_Search(t *testing.T) {
	idx, err := bruteforce.New[float32](core.MetricSquaredL2)
	require.NoError(t, err)
	data := []float32{
		0, 0,
		3, 0,
		1, 0,
		10, 10,
	}
	require.NoError(t, idx.Build(data, 4, 2))

	got, err := idx.SearchKNN([]float32{0.5, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []core.Neighbor{{ID: 0, Distance: 0.25}, {ID: 2, Distance: 0.25}}, got)

	got, err = idx.SearchKNN([]float32{3, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []core.Neighbor{{ID: 1, Distance: 0}, {ID: 2, Distance: 4}, {ID: 0, Distance: 9}}, got)

	stats := idx.Stats()
	assert.Equal(t, core.IndexStats{Count: 4, Dimension: 2, Distance: "squared_l2"}, stats)
}

func TestIndex_FewerThanK(t *testing.T) {
	idx, err := bruteforce.New[float64](core.MetricSquaredL2)
	require.NoError(t, err)
	require.NoError(t, idx.Build([]float64{1, 1}, 1, 2))

	got, err := idx.SearchKNN([]float64{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []core.Neighbor{{ID: 0, Distance: 2}}, got)
}

func TestIndex_TiesKeepLowestIndex(t *testing.T) {
	idx, err := bruteforce.New[uint8](core.MetricHamming)
	require.NoError(t, err)
	data := []uint8{0x01, 0x02, 0x04, 0x00}
	require.NoError(t, idx.Build(data, 4, 1))

	got, err := idx.SearchKNN([]uint8{0x00}, 2)
	require.NoError(t, err)
	assert.Equal(t, []core.Neighbor{{ID: 3, Distance: 0}, {ID: 0, Distance: 1}}, got)
}

func TestIndex_MatchesSortedScan(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	const n, dim, k = 200, 8, 5
	data := make([]uint8, n*dim)
	for i := range data {
		data[i] = uint8(rnd.Intn(4))
	}
	idx, err := bruteforce.New[uint8](core.MetricSquaredL2)
	require.NoError(t, err)
	require.NoError(t, idx.Build(data, n, dim))

	query := make([]uint8, dim)
	for i := range query {
		query[i] = uint8(rnd.Intn(4))
	}
	all := make([]core.Neighbor, n)
	for i := 0; i < n; i++ {
		all[i] = core.Neighbor{ID: i, Distance: core.SquaredL2(query, data[i*dim:(i+1)*dim])}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })

	got, err := idx.SearchKNN(query, k)
	require.NoError(t, err)
	assert.Equal(t, all[:k], got)
}

func TestIndex_ConcurrentSearch(t *testing.T) {
	idx, err := bruteforce.New[float32](core.MetricSquaredL2)
	require.NoError(t, err)
	data := make([]float32, 100*4)
	for i := range data {
		data[i] = float32(i)
	}
	require.NoError(t, idx.Build(data, 100, 4))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q := data[id*4 : id*4+4]
			res, err := idx.SearchKNN(q, 2)
			if err != nil {
				t.Errorf("SearchKNN failed: %v", err)
				return
			}
			if res[0].ID != id {
				t.Errorf("expected exact match %d, got %d", id, res[0].ID)
			}
		}(i)
	}
	wg.Wait()
}
