package core

import "slices"

// Index is the capability every nearest-neighbor backend offers to the matcher.
// An Index is single-use: it is built once from one image's descriptors and is
// read-only afterward, so SearchKNN may be called from many goroutines.
type Index[T Scalar] interface {

	// Build ingests count descriptors of the given dimension laid out row-major in data.
	Build(data []T, count, dimension int) error

	// SearchKNN returns up to k neighbors of query sorted by ascending distance.
	// Equal distances are ordered by ascending ingestion index.
	SearchKNN(query []T, k int) ([]Neighbor, error)

	// Stats returns metadata about the index, such as count and dimensionality.
	Stats() IndexStats
}

// DistanceFunc computes the dissimilarity between two descriptors of equal length.
type DistanceFunc[T Scalar] func(a, b []T) float64

// Neighbor holds a neighbor's ingestion index and its computed distance.
type Neighbor struct {
	ID       int
	Distance float64
}

// IndexStats contains metadata about the index.
type IndexStats struct {
	Count     int    // total number of indexed descriptors
	Dimension int    // dimensionality of descriptors
	Distance  string // name of the metric
}

// SortNeighbors orders neighbors by ascending distance, lowest ID first on ties.
func SortNeighbors(neighbors []Neighbor) {
	slices.SortFunc(neighbors, func(a, b Neighbor) int {
		switch {
		case LessNeighbor(a, b):
			return -1
		case LessNeighbor(b, a):
			return 1
		default:
			return 0
		}
	})
}

// LessNeighbor reports whether a ranks before b.
func LessNeighbor(a, b Neighbor) bool {
	if a.Distance == b.Distance {
		return a.ID < b.ID
	}
	return a.Distance < b.Distance
}
