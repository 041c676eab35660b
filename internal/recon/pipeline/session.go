package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l1levels"
	"github.com/banshee-data/cloud2fem/internal/recon/l2slices"
	"github.com/banshee-data/cloud2fem/internal/recon/l3centroids"
	"github.com/banshee-data/cloud2fem/internal/recon/l4polylines"
	"github.com/banshee-data/cloud2fem/internal/recon/l5polygons"
	"github.com/banshee-data/cloud2fem/internal/recon/l6mesh"
	"github.com/banshee-data/cloud2fem/internal/timeutil"
)

// ErrMissingArtifact is returned when a stage runs before the stage it
// depends on.
var ErrMissingArtifact = errors.New("missing artifact")

// Session holds one cloud, its options and the latest artifact of every
// stage. A Session is not safe for concurrent use.
type Session struct {
	cloud *recon.PointCloud
	opts  Options
	clock timeutil.Clock

	levels    *recon.LevelSet
	slices    *l2slices.SliceSet
	chains    []l3centroids.Chain
	polylines []l4polylines.LevelPolylines
	polygons  *l5polygons.Result
	grid      *l6mesh.Grid
	cells     [][]l6mesh.ElementCell // aligned with polygons.Present()
	mesh      *l6mesh.Mesh
}

// NewSession validates opts and returns an empty session over cloud.
func NewSession(cloud *recon.PointCloud, opts Options) (*Session, error) {
	if cloud == nil {
		cloud = recon.NewPointCloud(nil)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Session{cloud: cloud, opts: opts, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used to time Run.
func (s *Session) SetClock(c timeutil.Clock) { s.clock = c }

// Cloud returns the session's point cloud.
func (s *Session) Cloud() *recon.PointCloud { return s.cloud }

// Options returns the session's options.
func (s *Session) Options() Options { return s.opts }

func missing(stage, needs string) error {
	return fmt.Errorf("%s: %w: run %s first", stage, ErrMissingArtifact, needs)
}

// Levels generates the level set.
func (s *Session) Levels() (recon.LevelSet, error) {
	ls, err := l1levels.Generate(s.opts.Rule, s.opts.ZLower, s.opts.ZUpper, s.opts.LevelParam, s.opts.CustomLevels)
	if err != nil {
		return recon.LevelSet{}, err
	}
	s.SetLevels(ls)
	recon.Opsf("%d levels (%s rule)", ls.Len(), ls.Rule)
	return ls, nil
}

// SetLevels replaces the level set and discards everything derived from it.
func (s *Session) SetLevels(ls recon.LevelSet) {
	s.levels = &ls
	s.slices = nil
	s.setChains(nil)
}

// Slices cuts the cloud at the current levels.
func (s *Session) Slices() (*l2slices.SliceSet, error) {
	if s.levels == nil {
		return nil, missing("slices", "levels")
	}
	set, err := l2slices.Cut(*s.levels, s.cloud, s.opts.SliceThickness)
	if err != nil {
		return nil, err
	}
	s.slices = set
	s.setChains(nil)
	return set, nil
}

// Centroids traces every slice.
func (s *Session) Centroids(ctx context.Context) ([]l3centroids.Chain, error) {
	if s.slices == nil {
		return nil, missing("centroids", "slices")
	}
	chains, err := l3centroids.TraceAll(ctx, s.slices, s.opts.Tracing)
	if err != nil {
		return nil, err
	}
	s.setChains(chains)
	return chains, nil
}

// SlicedCloud returns the points claimed by at least one slice, in cloud
// order.
func (s *Session) SlicedCloud() (*recon.PointCloud, error) {
	if s.slices == nil {
		return nil, missing("sliced cloud", "slices")
	}
	rem := s.slices.Remainder
	pts := make([]r3.Vec, 0, s.cloud.Count()-len(rem))
	j := 0
	for i, p := range s.cloud.Points {
		if j < len(rem) && rem[j] == i {
			j++
			continue
		}
		pts = append(pts, p)
	}
	return recon.NewPointCloud(pts), nil
}

// SetChains replaces the traced chains, for example after points were
// removed by hand, and discards everything derived from them.
func (s *Session) SetChains(chains []l3centroids.Chain) { s.setChains(chains) }

func (s *Session) setChains(chains []l3centroids.Chain) {
	s.chains = chains
	s.SetPolylines(nil)
}

// Polylines splits, filters and simplifies the current chains.
func (s *Session) Polylines(ctx context.Context) ([]l4polylines.LevelPolylines, error) {
	if s.chains == nil {
		return nil, missing("polylines", "centroids")
	}
	lines, err := l4polylines.Assemble(ctx, s.chains, s.opts.Polylines)
	if err != nil {
		return nil, err
	}
	s.SetPolylines(lines)
	return lines, nil
}

// SetPolylines replaces the polylines and discards everything derived
// from them.
func (s *Session) SetPolylines(lines []l4polylines.LevelPolylines) {
	s.polylines = lines
	s.SetPolygons(nil)
}

// Polygons builds the per-level outlines from the current polylines.
func (s *Session) Polygons(ctx context.Context) (*l5polygons.Result, error) {
	if s.polylines == nil {
		return nil, missing("polygons", "polylines")
	}
	res, err := l5polygons.Build(ctx, s.polylines, s.opts.Polygons)
	if err != nil {
		return nil, err
	}
	s.SetPolygons(res)
	return res, nil
}

// SetPolygons replaces the per-level outlines and discards the mesh built
// from them.
func (s *Session) SetPolygons(res *l5polygons.Result) {
	s.polygons = res
	s.resetMesh()
}

func (s *Session) resetMesh() {
	s.grid = nil
	s.cells = nil
	s.mesh = nil
}

// Mesh rasterizes the present outlines on a grid spanning the cloud and
// extrudes them into hexahedra.
func (s *Session) Mesh(ctx context.Context) (*l6mesh.Mesh, error) {
	if s.polygons == nil {
		return nil, missing("mesh", "polygons")
	}
	g, err := l6mesh.NewGrid(s.cloud.Bounds(), s.opts.CellX, s.opts.CellY)
	if err != nil {
		return nil, err
	}
	present := s.polygons.Present()
	cells, err := l6mesh.Rasterize(ctx, g, present)
	if err != nil {
		return nil, err
	}
	z := make([]float64, len(present))
	for i, p := range present {
		z[i] = p.Z
	}
	m, err := l6mesh.Build(ctx, g, z, cells, s.opts.SingleLevelHeight)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	s.grid, s.cells, s.mesh = g, cells, m
	recon.Opsf("mesh: %d nodes, %d elements, %d levels", len(m.Nodes), len(m.Elements), len(present))
	return m, nil
}

// Result summarises a full run.
type Result struct {
	Levels        recon.LevelSet
	Stats         []LevelStats
	Shapes        []l5polygons.LevelShape
	Mesh          *l6mesh.Mesh
	InvalidLevels []int
	Elapsed       time.Duration
}

// Run executes every stage in order.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	start := s.clock.Now()
	ls, err := s.Levels()
	if err != nil {
		return nil, fmt.Errorf("levels: %w", err)
	}
	if _, err := s.Slices(); err != nil {
		return nil, fmt.Errorf("slices: %w", err)
	}
	if _, err := s.Centroids(ctx); err != nil {
		return nil, err
	}
	if _, err := s.Polylines(ctx); err != nil {
		return nil, err
	}
	polys, err := s.Polygons(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.Mesh(ctx)
	if err != nil {
		return nil, fmt.Errorf("mesh: %w", err)
	}
	res := &Result{
		Levels:        ls,
		Stats:         s.Stats(),
		Shapes:        polys.Levels,
		Mesh:          m,
		InvalidLevels: polys.InvalidLevels,
		Elapsed:       s.clock.Since(start),
	}
	recon.Opsf("run finished in %s: %d elements, invalid levels %v", res.Elapsed.Round(time.Millisecond), len(m.Elements), res.InvalidLevels)
	return res, nil
}
