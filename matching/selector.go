package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/patrikhermansson/pairmatch/bruteforce"
	"github.com/patrikhermansson/pairmatch/core"
	"github.com/patrikhermansson/pairmatch/kdtree"
	"github.com/patrikhermansson/pairmatch/rpt"
)

// BackendKind names a nearest-neighbor index implementation.
type BackendKind int

const (
	// BruteForceL2 scans every anchor descriptor with squared L2.
	BruteForceL2 BackendKind = iota
	// TreeL2 searches a k-d tree with squared L2.
	TreeL2
	// BruteForceHamming scans every anchor descriptor with Hamming distance.
	BruteForceHamming
	// ProjectionTreeL2 searches a random projection tree with squared L2. Approximate.
	ProjectionTreeL2
)

var backendNames = map[BackendKind]string{
	BruteForceL2:      "bruteforce_l2",
	TreeL2:            "tree_l2",
	BruteForceHamming: "bruteforce_hamming",
	ProjectionTreeL2:  "rptree_l2",
}

func (b BackendKind) String() string {
	if name, ok := backendNames[b]; ok {
		return name
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

// ParseBackendKind maps a backend name such as "tree_l2" to its BackendKind.
func ParseBackendKind(s string) (BackendKind, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for kind, name := range backendNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown backend %q", s)
}

func (b BackendKind) hamming() bool { return b == BruteForceHamming }

// Selection is the outcome of matching a descriptor tag against a backend.
type Selection struct {
	Backend BackendKind
	Metric  core.MetricKind
	Scalar  core.ScalarType
	// Ratio is the effective ratio-test threshold: the requested ratio, squared
	// when Metric is a squared distance.
	Ratio float64
}

// Select pairs a descriptor tag with a backend and metric, or reports
// core.ErrIncompatibleConfiguration. The caller's ratio is never modified; the
// threshold to compare distances against is returned in the Selection.
func Select(scalar core.ScalarType, kind core.DescriptorKind, backend BackendKind, ratio float64) (Selection, error) {
	if !(ratio > 0) || math.IsInf(ratio, 1) {
		return Selection{}, fmt.Errorf("%w: %v", core.ErrInvalidRatio, ratio)
	}
	if _, ok := backendNames[backend]; !ok {
		return Selection{}, fmt.Errorf("%w: unknown backend %v", core.ErrIncompatibleConfiguration, backend)
	}
	switch scalar {
	case core.ScalarUint8, core.ScalarFloat32, core.ScalarFloat64:
	default:
		return Selection{}, fmt.Errorf("%w: unsupported scalar type %s", core.ErrIncompatibleConfiguration, scalar)
	}

	sel := Selection{Backend: backend, Scalar: scalar}
	switch kind {
	case core.KindBinary:
		if !backend.hamming() {
			return Selection{}, fmt.Errorf("%w: binary descriptors require %s, got %s",
				core.ErrIncompatibleConfiguration, BruteForceHamming, backend)
		}
		if scalar != core.ScalarUint8 {
			return Selection{}, fmt.Errorf("%w: binary descriptors must be uint8, got %s",
				core.ErrIncompatibleConfiguration, scalar)
		}
		sel.Metric = core.MetricHamming
	case core.KindDense:
		if backend.hamming() {
			return Selection{}, fmt.Errorf("%w: dense descriptors cannot use %s",
				core.ErrIncompatibleConfiguration, backend)
		}
		sel.Metric = core.MetricSquaredL2
	default:
		return Selection{}, fmt.Errorf("%w: unknown descriptor kind %v", core.ErrIncompatibleConfiguration, kind)
	}

	sel.Ratio = ratio
	if sel.Metric.Squared() {
		sel.Ratio = ratio * ratio
	}
	return sel, nil
}

// newIndex instantiates the backend of sel for scalar type T.
func newIndex[T core.Scalar](sel Selection, tree rpt.Config) (core.Index[T], error) {
	switch sel.Backend {
	case BruteForceL2, BruteForceHamming:
		index, err := bruteforce.New[T](sel.Metric)
		if err != nil {
			return nil, err
		}
		return index, nil
	case TreeL2:
		return kdtree.New[T](), nil
	case ProjectionTreeL2:
		return rpt.New[T](tree), nil
	}
	return nil, fmt.Errorf("%w: unknown backend %v", core.ErrIncompatibleConfiguration, sel.Backend)
}
