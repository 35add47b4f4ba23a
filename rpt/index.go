package rpt

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/patrikhermansson/pairmatch/core"
	"github.com/viterin/vek/vek32"
)

// Default parameters of the projection tree.
const (
	DefaultLeafCapacity         = 10
	DefaultCandidateProjections = 3
	DefaultParallelThreshold    = 100
	DefaultProbeMargin          = 0.15
)

// Config holds the construction and search parameters of the tree.
type Config struct {
	LeafCapacity         int     // maximum number of points in a leaf
	CandidateProjections int     // number of random projections to try when splitting
	ParallelThreshold    int     // subtree size above which children are built concurrently
	ProbeMargin          float64 // margin for multi-probe search
	Seed                 int64   // seed of the projection generator
}

// DefaultConfig returns the default parameters with a seed from core.GetSeed.
func DefaultConfig() Config {
	return Config{
		LeafCapacity:         DefaultLeafCapacity,
		CandidateProjections: DefaultCandidateProjections,
		ParallelThreshold:    DefaultParallelThreshold,
		ProbeMargin:          DefaultProbeMargin,
		Seed:                 core.GetSeed(),
	}
}

// New creates an RPT (Random Projection Tree) index over squared L2 distances.
// Non-positive parameters are replaced by their defaults.
func New[T core.Scalar](cfg Config) *Index[T] {
	if cfg.LeafCapacity <= 0 {
		cfg.LeafCapacity = DefaultLeafCapacity
	}
	if cfg.CandidateProjections <= 0 {
		cfg.CandidateProjections = DefaultCandidateProjections
	}
	if cfg.ParallelThreshold <= 0 {
		cfg.ParallelThreshold = DefaultParallelThreshold
	}
	if cfg.ProbeMargin <= 0 {
		cfg.ProbeMargin = DefaultProbeMargin
	}
	return &Index[T]{
		cfg:          cfg,
		Distance:     core.SquaredL2[T],
		DistanceName: core.MetricSquaredL2.String(),
	}
}

// treeNode represents a node in the random projection tree.
// It holds the projection, threshold, and pointers to left/right children.
// If isLeaf is true, the node holds a list of point ids.
type treeNode struct {
	isLeaf     bool      // true if this node is a leaf
	points     []int     // ids of points in the leaf
	projection []float32 // projection vector used for splitting at this node
	threshold  float64   // split threshold (median value)
	left       *treeNode // left child node
	right      *treeNode // right child node
}

// Index is a random projection tree built once over one image's descriptors.
type Index[T core.Scalar] struct {
	mu           sync.RWMutex
	cfg          Config
	dimension    int
	data         []T         // descriptors, row-major
	points       [][]float32 // float32 copies used for projections
	tree         *treeNode   // root of the random projection tree
	Distance     core.DistanceFunc[T]
	DistanceName string
}

// buildTreeRecursive builds the tree recursively using random projections.
// It splits the given set of point ids based on a randomly chosen projection.
func buildTreeRecursive(ids []int, points [][]float32, dimension int, rnd *rand.Rand,
	leafCapacity int, candidateProjections int, parallelThreshold int) *treeNode {

	// If the number of points is small enough, create a leaf node.
	if len(ids) <= leafCapacity {
		return &treeNode{
			isLeaf: true,
			points: ids,
		}
	}

	type candidate struct {
		proj      []float32 // random projection vector
		threshold float64   // median threshold along projection
		leftIDs   []int     // point ids going to left child
		rightIDs  []int     // point ids going to right child
		imbalance int       // difference in count between left and right sets
	}
	var bestCandidate *candidate

	// Try multiple random projections to find a good split.
	for c := 0; c < candidateProjections; c++ {
		proj := make([]float32, dimension)
		var norm float64
		for i := 0; i < dimension; i++ {
			v := rnd.Float32()*2 - 1
			proj[i] = v
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm < 1e-8 {
			norm = 1
		}
		for i := 0; i < dimension; i++ {
			proj[i] /= float32(norm)
		}

		type pair struct {
			id  int
			dot float64
		}
		pairs := make([]pair, len(ids))
		for i, id := range ids {
			pairs[i] = pair{id, float64(vek32.Dot(points[id], proj))}
		}
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i].dot == pairs[j].dot {
				return pairs[i].id < pairs[j].id
			}
			return pairs[i].dot < pairs[j].dot
		})
		mid := len(pairs) / 2

		// Choose a random point x and compute the maximum distance to any other point.
		x := points[ids[rnd.Intn(len(ids))]]
		var maxDist float64
		for _, id := range ids {
			if dist := core.SquaredL2(x, points[id]); dist > maxDist {
				maxDist = dist
			}
		}
		maxDist = math.Sqrt(maxDist)

		// Median threshold with jitter
		jitter := (rnd.Float64()*2 - 1) * 6 * maxDist / math.Sqrt(float64(dimension))
		threshold := pairs[mid].dot + jitter

		var leftIDs, rightIDs []int
		for _, p := range pairs {
			if p.dot < threshold {
				leftIDs = append(leftIDs, p.id)
			} else {
				rightIDs = append(rightIDs, p.id)
			}
		}
		// Fallback: if one side is empty, split at the median.
		if len(leftIDs) == 0 || len(rightIDs) == 0 {
			threshold = pairs[mid].dot
			leftIDs = make([]int, 0, mid)
			rightIDs = make([]int, 0, len(pairs)-mid)
			for i, p := range pairs {
				if i < mid {
					leftIDs = append(leftIDs, p.id)
				} else {
					rightIDs = append(rightIDs, p.id)
				}
			}
		}
		imbalance := len(leftIDs) - len(rightIDs)
		if imbalance < 0 {
			imbalance = -imbalance
		}
		cand := candidate{
			proj:      proj,
			threshold: threshold,
			leftIDs:   leftIDs,
			rightIDs:  rightIDs,
			imbalance: imbalance,
		}
		if bestCandidate == nil || cand.imbalance < bestCandidate.imbalance {
			bestCandidate = &cand
		}
	}

	var leftChild, rightChild *treeNode
	if len(ids) > parallelThreshold {
		var wg sync.WaitGroup
		wg.Add(2)
		leftRnd := rand.New(rand.NewSource(rnd.Int63()))
		rightRnd := rand.New(rand.NewSource(rnd.Int63()))
		go func() {
			defer wg.Done()
			leftChild = buildTreeRecursive(bestCandidate.leftIDs, points, dimension,
				leftRnd, leafCapacity, candidateProjections, parallelThreshold)
		}()
		go func() {
			defer wg.Done()
			rightChild = buildTreeRecursive(bestCandidate.rightIDs, points, dimension,
				rightRnd, leafCapacity, candidateProjections, parallelThreshold)
		}()
		wg.Wait()
	} else {
		leftChild = buildTreeRecursive(bestCandidate.leftIDs, points, dimension, rnd,
			leafCapacity, candidateProjections, parallelThreshold)
		rightChild = buildTreeRecursive(bestCandidate.rightIDs, points, dimension, rnd,
			leafCapacity, candidateProjections, parallelThreshold)
	}

	return &treeNode{
		isLeaf:     false,
		projection: bestCandidate.proj,
		threshold:  bestCandidate.threshold,
		left:       leftChild,
		right:      rightChild,
	}
}

// Build copies the descriptors to float32 and constructs the tree.
func (r *Index[T]) Build(data []T, count, dimension int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree != nil {
		return core.ErrIndexBuilt
	}
	if count == 0 {
		return core.ErrEmptyIndex
	}
	if dimension <= 0 || len(data) != count*dimension {
		return fmt.Errorf("%w: %d scalars for %d descriptors of dimension %d",
			core.ErrDimensionMismatch, len(data), count, dimension)
	}
	r.dimension = dimension
	r.data = data
	r.points = core.ToFloat32Batch(data, count, dimension)

	ids := make([]int, count)
	for i := range ids {
		ids[i] = i
	}
	rnd := rand.New(rand.NewSource(r.cfg.Seed))
	rnd.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	r.tree = buildTreeRecursive(ids, r.points, dimension, rnd, r.cfg.LeafCapacity,
		r.cfg.CandidateProjections, r.cfg.ParallelThreshold)
	return nil
}

// searchTreeMultiProbeWithMargin searches the tree for candidate point ids using multi-probing.
// It follows both branches if the projection value is close to the threshold (within margin).
func searchTreeMultiProbeWithMargin(node *treeNode, query []float32, margin float64) []int {
	if node == nil {
		return nil
	}
	if node.isLeaf {
		return node.points
	}
	dot := float64(vek32.Dot(query, node.projection))
	if math.Abs(dot-node.threshold) < margin {
		leftIDs := searchTreeMultiProbeWithMargin(node.left, query, margin)
		rightIDs := searchTreeMultiProbeWithMargin(node.right, query, margin)
		out := make([]int, 0, len(leftIDs)+len(rightIDs))
		return append(append(out, leftIDs...), rightIDs...)
	} else if dot < node.threshold {
		return searchTreeMultiProbeWithMargin(node.left, query, margin)
	}
	return searchTreeMultiProbeWithMargin(node.right, query, margin)
}

// unionInts returns the sorted union of two integer slices.
func unionInts(a, b []int) []int {
	m := make(map[int]struct{}, len(a)+len(b))
	for _, x := range a {
		m[x] = struct{}{}
	}
	for _, x := range b {
		m[x] = struct{}{}
	}
	result := make([]int, 0, len(m))
	for x := range m {
		result = append(result, x)
	}
	sort.Ints(result)
	return result
}

// computeDistances calculates the distance from the query to each point id in the list.
// Long candidate lists are split across available CPUs.
func (r *Index[T]) computeDistances(query []T, ids []int) []core.Neighbor {
	neighbors := make([]core.Neighbor, len(ids))
	row := func(id int) []T { return r.data[id*r.dimension : (id+1)*r.dimension] }
	if len(ids) <= r.cfg.ParallelThreshold {
		for j, id := range ids {
			neighbors[j] = core.Neighbor{ID: id, Distance: r.Distance(query, row(id))}
		}
		return neighbors
	}

	numWorkers := runtime.NumCPU()
	chunkSize := (len(ids) + numWorkers - 1) / numWorkers
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for j := start; j < end; j++ {
				id := ids[j]
				neighbors[j] = core.Neighbor{ID: id, Distance: r.Distance(query, row(id))}
			}
		}(start, end)
	}
	wg.Wait()
	return neighbors
}

// SearchKNN returns the k nearest neighbors to the query vector among the
// candidates the multi-probe search visits. Results are approximate.
func (r *Index[T]) SearchKNN(query []T, k int) ([]core.Neighbor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.tree == nil {
		return nil, core.ErrEmptyIndex
	}
	if len(query) != r.dimension {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
			core.ErrDimensionMismatch, len(query), r.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	q32 := core.ToFloat32(nil, query)

	candidateIDs := searchTreeMultiProbeWithMargin(r.tree, q32, r.cfg.ProbeMargin)
	// If not enough candidates, try with a larger margin.
	if len(candidateIDs) < k*2 {
		candidateIDsAlt := searchTreeMultiProbeWithMargin(r.tree, q32, r.cfg.ProbeMargin*2)
		candidateIDs = unionInts(candidateIDs, candidateIDsAlt)
	}

	neighbors := r.computeDistances(query, candidateIDs)
	// If still not enough, add the points the probes missed.
	if len(neighbors) < k {
		candidateSet := make(map[int]struct{}, len(candidateIDs))
		for _, id := range candidateIDs {
			candidateSet[id] = struct{}{}
		}
		var missingIDs []int
		for id := range r.points {
			if _, exists := candidateSet[id]; !exists {
				missingIDs = append(missingIDs, id)
			}
		}
		neighbors = append(neighbors, r.computeDistances(query, missingIDs)...)
	}
	core.SortNeighbors(neighbors)
	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k], nil
}

// Stats returns some basic statistics about the index.
func (r *Index[T]) Stats() core.IndexStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return core.IndexStats{
		Count:     len(r.points),
		Dimension: r.dimension,
		Distance:  r.DistanceName,
	}
}

// Check that Index implements the core.Index interface.
var _ core.Index[float32] = (*Index[float32])(nil)
