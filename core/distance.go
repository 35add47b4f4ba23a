package core

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// MetricKind identifies a dissimilarity measure between descriptors.
type MetricKind int

const (
	// MetricSquaredL2 is the squared Euclidean distance.
	MetricSquaredL2 MetricKind = iota
	// MetricHamming is the number of differing bits between bit-packed descriptors.
	MetricHamming
)

var metricNames = map[MetricKind]string{
	MetricSquaredL2: "squared_l2",
	MetricHamming:   "hamming",
}

func (m MetricKind) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

// Squared reports whether the metric is the square of a distance, in which case
// a ratio threshold must be squared before it is compared against it.
func (m MetricKind) Squared() bool {
	return m == MetricSquaredL2
}

// SquaredL2 computes the squared Euclidean distance between two vectors.
// Accumulation is done in float64 for every scalar type.
func SquaredL2[T Scalar](a, b []T) float64 {
	if len(a) != len(b) {
		panic("vectors must have the same length")
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Hamming counts the differing bits of two bit-packed descriptors.
func Hamming(a, b []uint8) float64 {
	if len(a) != len(b) {
		panic("vectors must have the same length")
	}
	var n int
	i := 0
	for ; i+8 <= len(a); i += 8 {
		n += bits.OnesCount64(binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:]))
	}
	for ; i < len(a); i++ {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return float64(n)
}

// DistanceFor returns the metric implementation for scalar type T.
// Hamming is only defined over uint8.
func DistanceFor[T Scalar](m MetricKind) (DistanceFunc[T], error) {
	switch m {
	case MetricSquaredL2:
		return SquaredL2[T], nil
	case MetricHamming:
		if fn, ok := any(DistanceFunc[uint8](Hamming)).(DistanceFunc[T]); ok {
			return fn, nil
		}
		return nil, fmt.Errorf("%w: hamming over %s descriptors", ErrIncompatibleConfiguration, ScalarTypeOf[T]())
	default:
		return nil, fmt.Errorf("%w: unknown metric %v", ErrIncompatibleConfiguration, m)
	}
}
