package core

import (
	"cmp"
	"fmt"
	"slices"
)

// ImageIndex identifies an image within one matching run.
type ImageIndex uint32

// Pair designates two images to compare. First is the anchor whose index is
// queried with the descriptors of Second.
type Pair struct {
	First  ImageIndex
	Second ImageIndex
}

// NewPair returns the pair with the smaller index first.
func NewPair(a, b ImageIndex) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{First: a, Second: b}
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d,%d)", p.First, p.Second)
}

// Compare orders pairs by First, then Second.
func (p Pair) Compare(o Pair) int {
	if c := cmp.Compare(p.First, o.First); c != 0 {
		return c
	}
	return cmp.Compare(p.Second, o.Second)
}

// PairSet is a set of pairs.
type PairSet map[Pair]struct{}

// NewPairSet builds a set from the given pairs; duplicates collapse.
func NewPairSet(pairs ...Pair) PairSet {
	s := make(PairSet, len(pairs))
	for _, p := range pairs {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts p into the set.
func (s PairSet) Add(p Pair) { s[p] = struct{}{} }

// Has reports whether p is in the set.
func (s PairSet) Has(p Pair) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the pairs in ascending (First, Second) order.
func (s PairSet) Sorted() []Pair {
	out := make([]Pair, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.SortFunc(out, Pair.Compare)
	return out
}

// FilterPairs keeps the pairs whose two images are both in valid.
func FilterPairs(pairs PairSet, valid map[ImageIndex]struct{}) PairSet {
	out := make(PairSet, len(pairs))
	for p := range pairs {
		_, okFirst := valid[p.First]
		_, okSecond := valid[p.Second]
		if okFirst && okSecond {
			out[p] = struct{}{}
		}
	}
	return out
}
