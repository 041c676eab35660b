package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cloud2fem/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cloud2fem %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
