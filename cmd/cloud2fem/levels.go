package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cloud2fem/internal/recon/l1levels"
)

var levelsOpts struct {
	rule   string
	lower  float64
	upper  float64
	param  float64
	custom []float64
}

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Print the elevations a level rule produces",
	Example: `  cloud2fem levels --rule count --lower 0 --upper 10 --param 5
  cloud2fem levels --rule step --lower 0.2 --upper 3 --param 0.5
  cloud2fem levels --rule custom --custom 0.5,1.2,2.8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rule, err := l1levels.ParseRule(levelsOpts.rule)
		if err != nil {
			return err
		}
		ls, err := l1levels.Generate(rule, levelsOpts.lower, levelsOpts.upper, levelsOpts.param, levelsOpts.custom)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, z := range ls.Z {
			fmt.Fprintf(out, "%d\t%.6g\n", i, z)
		}
		return nil
	},
}

func init() {
	f := levelsCmd.Flags()
	f.StringVar(&levelsOpts.rule, "rule", "count", "level rule: count, step or custom")
	f.Float64Var(&levelsOpts.lower, "lower", 0, "lower elevation bound")
	f.Float64Var(&levelsOpts.upper, "upper", 1, "upper elevation bound")
	f.Float64Var(&levelsOpts.param, "param", 10, "level count (count rule) or step (step rule)")
	f.Float64SliceVar(&levelsOpts.custom, "custom", nil, "explicit elevations for the custom rule")
	rootCmd.AddCommand(levelsCmd)
}
