package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cloud2fem/internal/config"
	"github.com/banshee-data/cloud2fem/internal/db"
	"github.com/banshee-data/cloud2fem/internal/fsutil"
	"github.com/banshee-data/cloud2fem/internal/pointcloud"
	"github.com/banshee-data/cloud2fem/internal/recon/export"
	"github.com/banshee-data/cloud2fem/internal/recon/pipeline"
	"github.com/banshee-data/cloud2fem/internal/security"
	"github.com/banshee-data/cloud2fem/internal/units"
)

type runFlags struct {
	configPath string
	inpPath    string
	dxfPath    string
	ascPath    string
	dbPath     string
	noINP      bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run [cloud]",
	Short: "Run the full reconstruction on a point cloud",
	Long: `Load a point cloud (.xyz, .txt, .asc, .csv, ASCII .pcd or .ply), run every
stage and write the mesh as an Abaqus .inp file. By default the mesh is
written next to the cloud with the .inp extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.configPath, "config", "", "pipeline configuration JSON")
	f.StringVar(&runOpts.inpPath, "inp", "", "mesh output path (default: <cloud>.inp)")
	f.BoolVar(&runOpts.noINP, "no-inp", false, "skip writing the mesh")
	f.StringVar(&runOpts.dxfPath, "dxf", "", "write level outlines to this DXF file")
	f.StringVar(&runOpts.ascPath, "slices-asc", "", "write the sliced points to this .asc file")
	f.StringVar(&runOpts.dbPath, "db", "", "record the run in this SQLite database")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg := config.EmptyPipelineConfig()
	if runOpts.configPath != "" {
		var err error
		if cfg, err = config.LoadPipelineConfig(runOpts.configPath); err != nil {
			return err
		}
	}

	cloud, err := pointcloud.Load(source)
	if err != nil {
		return err
	}
	if u := cfg.GetInputUnits(); u != units.M {
		factor, err := units.MetresPer(u)
		if err != nil {
			return err
		}
		cloud = pointcloud.Scale(cloud, factor)
	}
	opts, err := cfg.ToPipeline(cloud)
	if err != nil {
		return err
	}
	session, err := pipeline.NewSession(cloud, opts)
	if err != nil {
		return err
	}
	res, err := session.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printStats(out, res.Stats)
	fmt.Fprintf(out, "\n%d nodes, %d elements", len(res.Mesh.Nodes), len(res.Mesh.Elements))
	if len(res.InvalidLevels) > 0 {
		fmt.Fprintf(out, "; invalid polygons in levels %v", res.InvalidLevels)
	}
	fmt.Fprintln(out)

	fsys := fsutil.OSFileSystem{}
	if !runOpts.noINP {
		inp := runOpts.inpPath
		if inp == "" {
			inp = security.DefaultOutput(source, ".inp")
		}
		if err := export.SaveINP(fsys, inp, res.Mesh); err != nil {
			return err
		}
		fmt.Fprintf(out, "mesh written to %s\n", inp)
	}
	if runOpts.dxfPath != "" {
		if err := export.SaveDXF(runOpts.dxfPath, res.Shapes); err != nil {
			return err
		}
		fmt.Fprintf(out, "outlines written to %s\n", runOpts.dxfPath)
	}
	if runOpts.ascPath != "" {
		sliced, err := session.SlicedCloud()
		if err != nil {
			return err
		}
		if err := pointcloud.SaveASC(fsys, runOpts.ascPath, sliced); err != nil {
			return err
		}
		fmt.Fprintf(out, "sliced points written to %s\n", runOpts.ascPath)
	}
	if runOpts.dbPath != "" {
		if err := recordRun(out, runOpts.dbPath, source, cfg, cloud.Count(), res); err != nil {
			return err
		}
	}
	return nil
}

func recordRun(out io.Writer, path, source string, cfg *config.PipelineConfig, points int, res *pipeline.Result) error {
	store, err := db.NewDB(path)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	run, err := db.NewRun(source, cfg, points, res)
	if err != nil {
		return err
	}
	if err := store.RecordRun(run, res.Stats); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	fmt.Fprintf(out, "run %s recorded in %s\n", run.RunID, path)
	return nil
}

func printStats(w io.Writer, stats []pipeline.LevelStats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "level\tz\tpoints\tradius\tstatus\tcentroids\tpolylines\tpolygons\tinvalid\tcells\t")
	for _, s := range stats {
		fmt.Fprintf(tw, "%d\t%.3f\t%d\t%.4f\t%s\t%d\t%d/%d\t%d\t%d\t%d\t\n",
			s.Level, s.Z, s.SlicePoints, s.Radius, s.Status, s.Centroids,
			s.Polylines, s.RawPolylines, s.Polygons, s.InvalidPolygons, s.Cells)
	}
	tw.Flush()
}
