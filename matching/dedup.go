package matching

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/patrikhermansson/pairmatch/core"
)

// DeduplicateIndexPairs drops repeated (I, J) correspondences, keeping the first.
func DeduplicateIndexPairs(matches []core.Match) []core.Match {
	seen := roaring64.New()
	out := make([]core.Match, 0, len(matches))
	for _, m := range matches {
		if seen.CheckedAdd(uint64(uint32(m.I))<<32 | uint64(uint32(m.J))) {
			out = append(out, m)
		}
	}
	return out
}

// DeduplicatePositions drops correspondences whose anchor and foreign features
// both sit at the same image positions as an earlier correspondence.
func DeduplicatePositions(matches []core.Match, anchor, foreign []core.Point) []core.Match {
	seen := make(map[[2]core.Point]struct{}, len(matches))
	out := make([]core.Match, 0, len(matches))
	for _, m := range matches {
		key := [2]core.Point{anchor[m.I], foreign[m.J]}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Deduplicate runs both passes. It is idempotent.
func Deduplicate(matches []core.Match, anchor, foreign []core.Point) []core.Match {
	return DeduplicatePositions(DeduplicateIndexPairs(matches), anchor, foreign)
}
