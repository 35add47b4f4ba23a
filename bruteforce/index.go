// Package bruteforce implements an exact linear-scan nearest-neighbor index.
package bruteforce

import (
	"fmt"
	"sync"

	"github.com/patrikhermansson/pairmatch/core"
)

// Index compares every query against every ingested descriptor.
type Index[T core.Scalar] struct {
	mu           sync.RWMutex
	data         []T
	count        int
	dimension    int
	built        bool
	Distance     core.DistanceFunc[T]
	DistanceName string
}

// New creates a linear-scan index using the given metric.
func New[T core.Scalar](metric core.MetricKind) (*Index[T], error) {
	distance, err := core.DistanceFor[T](metric)
	if err != nil {
		return nil, err
	}
	return &Index[T]{
		Distance:     distance,
		DistanceName: metric.String(),
	}, nil
}

// Build stores a reference to data. The caller must not modify it afterward.
func (b *Index[T]) Build(data []T, count, dimension int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.built {
		return core.ErrIndexBuilt
	}
	if count == 0 {
		return core.ErrEmptyIndex
	}
	if dimension <= 0 || len(data) != count*dimension {
		return fmt.Errorf("%w: %d scalars for %d descriptors of dimension %d",
			core.ErrDimensionMismatch, len(data), count, dimension)
	}
	b.data = data
	b.count = count
	b.dimension = dimension
	b.built = true
	return nil
}

// SearchKNN returns the k nearest descriptors to query.
func (b *Index[T]) SearchKNN(query []T, k int) ([]core.Neighbor, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.built {
		return nil, core.ErrEmptyIndex
	}
	if len(query) != b.dimension {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
			core.ErrDimensionMismatch, len(query), b.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > b.count {
		k = b.count
	}

	// best stays sorted; scanning in ingestion order keeps the lowest index on ties.
	best := make([]core.Neighbor, 0, k+1)
	for i := 0; i < b.count; i++ {
		row := b.data[i*b.dimension : (i+1)*b.dimension]
		d := b.Distance(query, row)
		if len(best) == k && d >= best[k-1].Distance {
			continue
		}
		pos := len(best)
		for pos > 0 && d < best[pos-1].Distance {
			pos--
		}
		best = append(best, core.Neighbor{})
		copy(best[pos+1:], best[pos:])
		best[pos] = core.Neighbor{ID: i, Distance: d}
		if len(best) > k {
			best = best[:k]
		}
	}
	return best, nil
}

// Stats returns some basic statistics about the index.
func (b *Index[T]) Stats() core.IndexStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return core.IndexStats{
		Count:     b.count,
		Dimension: b.dimension,
		Distance:  b.DistanceName,
	}
}

// Check that Index implements the core.Index interface.
var _ core.Index[float32] = (*Index[float32])(nil)
