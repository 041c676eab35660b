// Command cloud2fem turns a point cloud of a building into a voxel finite
// element mesh.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/version"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "cloud2fem",
	Short: "Reconstruct a voxel FE mesh from a building point cloud",
	Long: `cloud2fem slices a point cloud at a set of elevations, traces the wall
centrelines of every slice, builds closed outlines from them and extrudes
the outlines into an 8-node hexahedral mesh.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-level diagnostics to stderr")
}

// configureLogging sends ops messages to stderr and, with --verbose, the
// diagnostic stream as well.
func configureLogging(cmd *cobra.Command) {
	w := recon.LogWriters{Ops: cmd.ErrOrStderr()}
	if verbose {
		w.Diag = cmd.ErrOrStderr()
	}
	recon.SetLogWriters(w)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
