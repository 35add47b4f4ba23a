package core

// RawMatch is a nearest-neighbor candidate before filtering: the anchor-local
// index I of the nearest neighbor, the foreign-local index J of the query, and
// the two best distances found for J.
type RawMatch struct {
	I, J   int
	D0, D1 float64
}

// Match is a correspondence between feature I of the anchor image and feature J
// of the foreign image.
type Match struct {
	I, J int
}

// PairwiseMatches maps each pair that produced correspondences to them.
type PairwiseMatches map[Pair][]Match

// Count returns the total number of correspondences in the table.
func (pm PairwiseMatches) Count() int {
	n := 0
	for _, m := range pm {
		n += len(m)
	}
	return n
}

// PairsOf returns the set of pairs present in the table.
func PairsOf(pm PairwiseMatches) PairSet {
	s := make(PairSet, len(pm))
	for p := range pm {
		s[p] = struct{}{}
	}
	return s
}
