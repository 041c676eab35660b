package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cloud2fem/internal/db"
)

var runsOpts struct {
	dbPath string
	limit  int
	show   string
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs recorded with run --db",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := db.NewDB(runsOpts.dbPath)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if runsOpts.show != "" {
			run, err := store.GetRun(runsOpts.show)
			if err != nil {
				return err
			}
			levels, err := store.ListRunLevels(run.RunID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "run %s\nsource %s\ncreated %s\nconfig %s\n\n",
				run.RunID, run.SourcePath, run.CreatedAt.Format(time.RFC3339), run.ConfigJSON)
			printStats(out, levels)
			return nil
		}

		runs, err := store.ListRuns(runsOpts.limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tCREATED\tSOURCE\tPOINTS\tLEVELS\tNODES\tELEMENTS\tINVALID")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%v\n",
				r.RunID, r.CreatedAt.Format(time.RFC3339), r.SourcePath,
				r.PointCount, r.LevelCount, r.NodeCount, r.ElementCount, r.InvalidLevels)
		}
		return tw.Flush()
	},
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsOpts.dbPath, "db", "cloud2fem.db", "SQLite run store")
	f.IntVar(&runsOpts.limit, "limit", 20, "maximum number of runs to list (0 for all)")
	f.StringVar(&runsOpts.show, "show", "", "print the per-level statistics of one run")
	rootCmd.AddCommand(runsCmd)
}
