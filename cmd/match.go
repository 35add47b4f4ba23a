package cmd

import (
	"fmt"

	"github.com/patrikhermansson/pairmatch/core"
	"github.com/patrikhermansson/pairmatch/matching"
	"github.com/patrikhermansson/pairmatch/matchio"
	"github.com/patrikhermansson/pairmatch/provider"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	matchDir    string
	matchPairs  string
	matchOut    string
	matchConfig string

	pairsDir string
	pairsOut string
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match the descriptors of every image pair",
	Long: `Loads <image>.feat and <image>.desc for every image of --dir matching --pattern,
matches the pairs of --pairs (all pairs when omitted) and writes the matches file.
Files ending in .zst or .lz4 are compressed.`,
	RunE: runMatch,
}

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Write the exhaustive pair list of the images in a directory",
	RunE:  runPairs,
}

func init() {
	f := matchCmd.Flags()
	f.StringVarP(&matchDir, "dir", "d", ".", "directory holding images and descriptor files")
	f.StringVarP(&matchPairs, "pairs", "p", "", "pair list file (default: all pairs)")
	f.StringVarP(&matchOut, "out", "o", "matches.txt", "output matches file")
	f.StringVarP(&matchConfig, "config", "c", "", "YAML configuration file")
	f.String("backend", matching.BruteForceL2.String(), "bruteforce_l2, tree_l2, bruteforce_hamming or rptree_l2")
	f.Float64("ratio", matching.DefaultRatio, "nearest-neighbor distance ratio")
	f.Int("workers", 0, "concurrent pairs per anchor (default: PAIRMATCH_WORKERS or all CPUs)")
	f.Bool("progress", false, "show a progress bar")
	f.String("scalar", core.ScalarFloat32.String(), "descriptor scalar type: uint8, float32 or float64")
	f.String("kind", core.KindDense.String(), "descriptor kind: dense or binary")
	f.String("pattern", defaultConfig().Pattern, "image file name pattern")
	f.Int64("seed", 0, "projection tree seed (default: PAIRMATCH_SEED or time)")

	pf := pairsCmd.Flags()
	pf.StringVarP(&pairsDir, "dir", "d", ".", "image directory")
	pf.StringVarP(&pairsOut, "out", "o", "pairs.txt", "output pair list file")
	pf.String("pattern", defaultConfig().Pattern, "image file name pattern")

	rootCmd.AddCommand(matchCmd, pairsCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(matchConfig)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, cmd.Flags()); err != nil {
		return err
	}
	mcfg, err := cfg.matcherConfig()
	if err != nil {
		return err
	}
	files, err := cfg.provider()
	if err != nil {
		return err
	}

	names, err := provider.Glob(matchDir, cfg.Pattern)
	if err != nil {
		return err
	}
	log.Info().Msgf("Found %d images in %s", len(names), matchDir)

	ctx := cmd.Context()
	sets, err := files.Load(ctx, names, matchDir)
	if err != nil {
		return err
	}

	pairs := exhaustivePairs(len(names))
	if matchPairs != "" {
		listed, err := matchio.LoadPairs(matchPairs)
		if err != nil {
			return err
		}
		valid := make(map[core.ImageIndex]struct{}, len(sets))
		for id := range sets {
			valid[id] = struct{}{}
		}
		pairs = core.FilterPairs(listed, valid)
		if dropped := len(listed) - len(pairs); dropped > 0 {
			log.Warn().Msgf("Ignoring %d pairs naming unknown images", dropped)
		}
	}

	table, err := matching.New(mcfg).Match(ctx, sets, pairs)
	if err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	return matchio.SaveMatches(matchOut, table)
}

func runPairs(cmd *cobra.Command, _ []string) error {
	pattern, err := cmd.Flags().GetString("pattern")
	if err != nil {
		return err
	}
	names, err := provider.Glob(pairsDir, pattern)
	if err != nil {
		return err
	}
	pairs := exhaustivePairs(len(names))
	log.Info().Msgf("Writing %d pairs of %d images to %s", len(pairs), len(names), pairsOut)
	return matchio.SavePairs(pairsOut, pairs)
}

// exhaustivePairs lists every pair (i, j) with i < j < n.
func exhaustivePairs(n int) core.PairSet {
	pairs := make(core.PairSet, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs.Add(core.Pair{First: core.ImageIndex(i), Second: core.ImageIndex(j)})
		}
	}
	return pairs
}
