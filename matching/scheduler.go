package matching

import (
	"slices"

	"github.com/patrikhermansson/pairmatch/core"
)

// AnchorGroup lists the foreign images to query against one anchor's index.
type AnchorGroup struct {
	Anchor  core.ImageIndex
	Foreign []core.ImageIndex
}

// Schedule groups pairs by their First image so each anchor index is built once.
// Anchors and their foreign images come out in ascending order.
func Schedule(pairs core.PairSet) []AnchorGroup {
	byAnchor := make(map[core.ImageIndex][]core.ImageIndex)
	for p := range pairs {
		byAnchor[p.First] = append(byAnchor[p.First], p.Second)
	}
	groups := make([]AnchorGroup, 0, len(byAnchor))
	for anchor, foreign := range byAnchor {
		slices.Sort(foreign)
		groups = append(groups, AnchorGroup{Anchor: anchor, Foreign: foreign})
	}
	slices.SortFunc(groups, func(a, b AnchorGroup) int {
		switch {
		case a.Anchor < b.Anchor:
			return -1
		case a.Anchor > b.Anchor:
			return 1
		}
		return 0
	})
	return groups
}
