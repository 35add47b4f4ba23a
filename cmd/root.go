// Package cmd implements the pairmatch command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pairmatch",
	Short: "Pairwise descriptor matching for 3D reconstruction",
	Long: `pairmatch computes putative feature correspondences between pairs of images
using nearest-neighbor search and the distance ratio test.`,
	SilenceUsage: true,
}

// Execute runs the CLI with ctx as the base context of every command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
