package kdtree

import (
	"math"
	"slices"

	"github.com/patrikhermansson/pairmatch/core"
	kd "gonum.org/v1/gonum/spatial/kdtree"
)

// unbounded is reported as the maximum until k points are kept. It carries a
// non-nil Comparable so the tree does not treat it as a sentinel to drop.
var unbounded = kd.ComparableDist{Comparable: point{id: -1}, Dist: math.Inf(1)}

// tieKeeper keeps the k nearest points plus every point tied with the k-th,
// so that the final cut can prefer the lowest ingestion index.
type tieKeeper struct {
	k     int
	items []kd.ComparableDist
}

func newTieKeeper(k int) *tieKeeper {
	return &tieKeeper{k: k, items: make([]kd.ComparableDist, 0, k+1)}
}

func (t *tieKeeper) Keep(c kd.ComparableDist) {
	if len(t.items) >= t.k && c.Dist > t.items[t.k-1].Dist {
		return
	}
	t.items = append(t.items, c)
	slices.SortFunc(t.items, func(a, b kd.ComparableDist) int {
		switch {
		case a.Dist < b.Dist:
			return -1
		case a.Dist > b.Dist:
			return 1
		}
		return a.Comparable.(point).id - b.Comparable.(point).id
	})
	if len(t.items) > t.k {
		kth := t.items[t.k-1].Dist
		n := t.k
		for n < len(t.items) && t.items[n].Dist == kth {
			n++
		}
		t.items = t.items[:n]
	}
}

// Max reports the k-th distance nudged up by one ulp, so a pruning test against
// it never skips a subtree that could hold a point tied with the k-th.
func (t *tieKeeper) Max() kd.ComparableDist {
	if len(t.items) < t.k {
		return unbounded
	}
	kth := t.items[t.k-1]
	kth.Dist = math.Nextafter(kth.Dist, math.Inf(1))
	return kth
}

// neighbors returns the first k kept points in (distance, index) order.
func (t *tieKeeper) neighbors() []core.Neighbor {
	out := make([]core.Neighbor, 0, t.k)
	for _, c := range t.items {
		p, ok := c.Comparable.(point)
		if !ok || p.id < 0 {
			continue
		}
		out = append(out, core.Neighbor{ID: p.id, Distance: c.Dist})
	}
	core.SortNeighbors(out)
	if len(out) > t.k {
		out = out[:t.k]
	}
	return out
}

// heap.Interface, required by kd.Keeper. The tree only uses it to reorder the
// kept items once the search is over.
func (t *tieKeeper) Len() int           { return len(t.items) }
func (t *tieKeeper) Less(i, j int) bool { return t.items[i].Dist > t.items[j].Dist }
func (t *tieKeeper) Swap(i, j int)      { t.items[i], t.items[j] = t.items[j], t.items[i] }
func (t *tieKeeper) Push(x any)         { t.items = append(t.items, x.(kd.ComparableDist)) }
func (t *tieKeeper) Pop() any {
	last := t.items[len(t.items)-1]
	t.items = t.items[:len(t.items)-1]
	return last
}

var _ kd.Keeper = (*tieKeeper)(nil)
