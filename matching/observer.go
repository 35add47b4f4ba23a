package matching

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/patrikhermansson/pairmatch/core"
	"github.com/schollz/progressbar/v3"
)

// Observer receives progress notifications of a run. Methods are called from
// worker goroutines and must be safe for concurrent use. Observers never see
// or touch the correspondence table.
type Observer interface {
	// IndexBuilt is called once an anchor's index is ready.
	IndexBuilt(anchor core.ImageIndex, descriptors int)
	// PairQueried is called after the anchor index was queried for a pair.
	PairQueried(pair core.Pair, correspondences int)
	// PairSkipped is called for pairs whose anchor has too few descriptors to match.
	PairSkipped(pair core.Pair)
}

type multiObserver []Observer

func (m multiObserver) IndexBuilt(anchor core.ImageIndex, descriptors int) {
	for _, o := range m {
		o.IndexBuilt(anchor, descriptors)
	}
}

func (m multiObserver) PairQueried(pair core.Pair, correspondences int) {
	for _, o := range m {
		o.PairQueried(pair, correspondences)
	}
}

func (m multiObserver) PairSkipped(pair core.Pair) {
	for _, o := range m {
		o.PairSkipped(pair)
	}
}

// Counters tallies index builds and queries per anchor.
type Counters struct {
	mu      sync.Mutex
	builds  map[core.ImageIndex]int
	queries map[core.ImageIndex]int
	skipped int
	matches int
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{
		builds:  make(map[core.ImageIndex]int),
		queries: make(map[core.ImageIndex]int),
	}
}

func (c *Counters) IndexBuilt(anchor core.ImageIndex, _ int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builds[anchor]++
}

func (c *Counters) PairQueried(pair core.Pair, correspondences int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[pair.First]++
	c.matches += correspondences
}

func (c *Counters) PairSkipped(core.Pair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped++
}

// Builds returns how many times the index of anchor was built.
func (c *Counters) Builds(anchor core.ImageIndex) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds[anchor]
}

// Queries returns how many pairs were queried against the index of anchor.
func (c *Counters) Queries(anchor core.ImageIndex) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries[anchor]
}

// Skipped returns the number of skipped pairs.
func (c *Counters) Skipped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skipped
}

// Correspondences returns the total number of correspondences reported.
func (c *Counters) Correspondences() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matches
}

// ProgressObserver advances a progress bar once per finished pair.
type ProgressObserver struct {
	bar *progressbar.ProgressBar
}

// NewProgressObserver creates a progress bar over total pairs written to w.
func NewProgressObserver(total int, w io.Writer) *ProgressObserver {
	return &ProgressObserver{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("matching pairs"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprint(w, "\n") }),
		),
	}
}

func (p *ProgressObserver) IndexBuilt(core.ImageIndex, int) {}

func (p *ProgressObserver) PairQueried(core.Pair, int) { _ = p.bar.Add(1) }

func (p *ProgressObserver) PairSkipped(core.Pair) { _ = p.bar.Add(1) }

// Finish completes the bar.
func (p *ProgressObserver) Finish() error { return p.bar.Finish() }
