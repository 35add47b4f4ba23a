// Package kdtree implements an exact squared-L2 nearest-neighbor index on top of
// gonum's k-d tree.
package kdtree

import (
	"fmt"
	"sort"
	"sync"

	"github.com/patrikhermansson/pairmatch/core"
	kd "gonum.org/v1/gonum/spatial/kdtree"
)

// point is a descriptor converted to float64 that remembers its ingestion index.
type point struct {
	id  int
	vec []float64
}

// Compare returns the signed distance of p from the plane through c perpendicular to d.
func (p point) Compare(c kd.Comparable, d kd.Dim) float64 {
	q := c.(point)
	return p.vec[d] - q.vec[d]
}

// Dims returns the number of dimensions of the point.
func (p point) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance between p and c.
func (p point) Distance(c kd.Comparable) float64 {
	return core.SquaredL2(p.vec, c.(point).vec)
}

// points implements kd.Interface with a median pivot that breaks ties by index.
type points []point

func (p points) Index(i int) kd.Comparable { return p[i] }
func (p points) Len() int                  { return len(p) }
func (p points) Slice(start, end int) kd.Interface {
	return p[start:end]
}
func (p points) Pivot(d kd.Dim) int {
	sort.Slice(p, func(i, j int) bool {
		if p[i].vec[d] == p[j].vec[d] {
			return p[i].id < p[j].id
		}
		return p[i].vec[d] < p[j].vec[d]
	})
	return len(p) / 2
}

// Index is an exact k-d tree index over squared L2 distances.
type Index[T core.Scalar] struct {
	mu        sync.RWMutex
	tree      *kd.Tree
	count     int
	dimension int
}

// New creates an empty k-d tree index.
func New[T core.Scalar]() *Index[T] {
	return &Index[T]{}
}

// Build converts the descriptors to float64 points and constructs the tree.
func (x *Index[T]) Build(data []T, count, dimension int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.tree != nil {
		return core.ErrIndexBuilt
	}
	if count == 0 {
		return core.ErrEmptyIndex
	}
	if dimension <= 0 || len(data) != count*dimension {
		return fmt.Errorf("%w: %d scalars for %d descriptors of dimension %d",
			core.ErrDimensionMismatch, len(data), count, dimension)
	}
	flat := core.ToFloat64(nil, data)
	pts := make(points, count)
	for i := range pts {
		pts[i] = point{id: i, vec: flat[i*dimension : (i+1)*dimension : (i+1)*dimension]}
	}
	x.tree = kd.New(pts, false)
	x.count = count
	x.dimension = dimension
	return nil
}

// SearchKNN returns the k nearest descriptors to query.
func (x *Index[T]) SearchKNN(query []T, k int) ([]core.Neighbor, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.tree == nil {
		return nil, core.ErrEmptyIndex
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
			core.ErrDimensionMismatch, len(query), x.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	keep := newTieKeeper(k)
	x.tree.NearestSet(keep, point{id: -1, vec: core.ToFloat64(nil, query)})
	return keep.neighbors(), nil
}

// Stats returns some basic statistics about the index.
func (x *Index[T]) Stats() core.IndexStats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return core.IndexStats{
		Count:     x.count,
		Dimension: x.dimension,
		Distance:  core.MetricSquaredL2.String(),
	}
}

// Check that Index implements the core.Index interface.
var _ core.Index[float32] = (*Index[float32])(nil)
