package matching

import "github.com/patrikhermansson/pairmatch/core"

// PassesRatio is the nearest-neighbor distance ratio test: the best distance d0
// must be strictly below ratio times the second best d1. A match exactly on the
// boundary is rejected.
func PassesRatio(d0, d1, ratio float64) bool {
	return d0 < ratio*d1
}

// RatioFilter keeps the candidates passing the ratio test, in input order.
// ratio must already be squared for squared metrics (see Selection.Ratio).
func RatioFilter(raw []core.RawMatch, ratio float64) []core.Match {
	out := make([]core.Match, 0, len(raw))
	for _, r := range raw {
		if PassesRatio(r.D0, r.D1, ratio) {
			out = append(out, core.Match{I: r.I, J: r.J})
		}
	}
	return out
}
