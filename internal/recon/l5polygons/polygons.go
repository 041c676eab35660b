package l5polygons

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l4polylines"
)

// Params configures polygon construction.
type Params struct {
	MinWallThickness float64
	RepairTolerance  float64 // first Douglas-Peucker tolerance tried on an invalid ring
	Compose          ComposeOp
}

// DefaultParams returns the polygon defaults for the given wall thickness.
func DefaultParams(minWall float64) Params {
	return Params{MinWallThickness: minWall, RepairTolerance: 0.035, Compose: SymmetricDifference}
}

// Validate rejects parameters the builder cannot run with.
func (p Params) Validate() error {
	switch {
	case !(p.MinWallThickness > 0) || math.IsInf(p.MinWallThickness, 0):
		return &recon.InvalidRangeError{Field: "min_wall_thickness", Reason: fmt.Sprintf("must be positive, got %g", p.MinWallThickness)}
	case !(p.RepairTolerance >= 0) || math.IsInf(p.RepairTolerance, 0):
		return &recon.InvalidRangeError{Field: "polygon_repair_tolerance", Reason: fmt.Sprintf("must not be negative, got %g", p.RepairTolerance)}
	case p.Compose != SymmetricDifference && p.Compose != Union:
		return &recon.InvalidRangeError{Field: "compose_op", Reason: p.Compose.String()}
	}
	return nil
}

// LevelShape is the composed outline of one level. Present is false when
// the level had no polylines or none of its rings survived repair; the
// level is then removed from meshing.
type LevelShape struct {
	Level    int
	Z        float64
	Present  bool
	Polygons []orb.Ring       // valid rings, before composition
	Shape    orb.MultiPolygon // composed outline
	Invalid  int              // rings abandoned after repair
}

// boundaryEps is the distance within which a point counts as lying on an
// outline edge.
const boundaryEps = 1e-9

// Contains reports whether pt lies strictly inside the level's outline.
// Points on an edge of any ring are outside.
func (s LevelShape) Contains(pt orb.Point) bool {
	return s.Present && planar.MultiPolygonContains(s.Shape, pt) && !onBoundary(s.Shape, pt)
}

func onBoundary(mp orb.MultiPolygon, pt orb.Point) bool {
	for _, poly := range mp {
		for _, r := range poly {
			for i := 0; i+1 < len(r); i++ {
				if planar.DistanceFromSegmentSquared(r[i], r[i+1], pt) <= boundaryEps*boundaryEps {
					return true
				}
			}
		}
	}
	return false
}

// Area returns the area of the composed outline.
func (s LevelShape) Area() float64 {
	if !s.Present {
		return 0
	}
	return math.Abs(planar.Area(s.Shape))
}

// Result holds one LevelShape per input level plus the warning list of
// levels where a ring had to be abandoned.
type Result struct {
	Levels []LevelShape
	// InvalidLevels lists the level index once per abandoned ring, ascending.
	InvalidLevels []int
}

// Present returns the shapes that reached meshing, in level order.
func (r *Result) Present() []LevelShape {
	var out []LevelShape
	for _, s := range r.Levels {
		if s.Present {
			out = append(out, s)
		}
	}
	return out
}

// BuildLevel turns one level's simplified polylines into its shape.
func BuildLevel(lp l4polylines.LevelPolylines, p Params) LevelShape {
	s := LevelShape{Level: lp.Level, Z: lp.Z}
	if !lp.Present {
		return s
	}
	for _, ls := range lp.Simplified {
		r, ok := Repair(CloseRing(ls), p)
		if !ok {
			s.Invalid++
			recon.Opsf("invalid polygon in level %d (z=%.3f), %d vertices, abandoned", lp.Level, lp.Z, len(ls))
			continue
		}
		s.Polygons = append(s.Polygons, r)
	}
	if len(s.Polygons) == 0 {
		recon.Diagf("level %d (z=%.3f): no polygons generated", lp.Level, lp.Z)
		return s
	}
	s.Shape = Compose(s.Polygons, p.Compose)
	s.Present = len(s.Shape) > 0
	recon.Diagf("level %d (z=%.3f): %d independent polygons, %d composed", lp.Level, lp.Z, len(s.Polygons), len(s.Shape))
	return s
}

// Build composes every level concurrently. The result is aligned with lines.
func Build(ctx context.Context, lines []l4polylines.LevelPolylines, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	res := &Result{Levels: make([]LevelShape, len(lines))}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Levels[k] = BuildLevel(lines[k], p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building polygons: %w", err)
	}

	for _, s := range res.Levels {
		for i := 0; i < s.Invalid; i++ {
			res.InvalidLevels = append(res.InvalidLevels, s.Level)
		}
	}
	slices.Sort(res.InvalidLevels)
	if len(res.InvalidLevels) > 0 {
		recon.Opsf("invalid polygons found in levels %v", res.InvalidLevels)
	}
	return res, nil
}
