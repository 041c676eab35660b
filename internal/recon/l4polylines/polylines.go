package l4polylines

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l3centroids"
)

// maxTopologyRetries bounds how often Simplify halves its tolerance while
// looking for a result that does not introduce a crossing.
const maxTopologyRetries = 8

// Params configures polyline assembly.
type Params struct {
	MinWallThickness  float64
	Percentile        float64 // percentile of polyline lengths used as the length threshold
	MinPolylinePoints int
	SimplifyTolerance float64
	LengthSlack       float64 // threshold divisor; polylines shorter than threshold/LengthSlack are dropped
}

// DefaultParams returns the assembly defaults for the given wall thickness.
func DefaultParams(minWall float64) Params {
	return Params{
		MinWallThickness:  minWall,
		Percentile:        1,
		MinPolylinePoints: 2,
		SimplifyTolerance: 0.025,
		LengthSlack:       1.3,
	}
}

// Validate rejects parameters the assembler cannot run with.
func (p Params) Validate() error {
	switch {
	case !(p.MinWallThickness > 0) || math.IsInf(p.MinWallThickness, 0):
		return &recon.InvalidRangeError{Field: "min_wall_thickness", Reason: fmt.Sprintf("must be positive, got %g", p.MinWallThickness)}
	case !(p.Percentile >= 0 && p.Percentile <= 100):
		return &recon.InvalidRangeError{Field: "length_percentile", Reason: fmt.Sprintf("must be in [0,100], got %g", p.Percentile)}
	case p.MinPolylinePoints < 2:
		return &recon.InvalidRangeError{Field: "min_polyline_points", Reason: fmt.Sprintf("must be at least 2, got %d", p.MinPolylinePoints)}
	case !(p.SimplifyTolerance >= 0):
		return &recon.InvalidRangeError{Field: "curve_simplify_tolerance", Reason: fmt.Sprintf("must not be negative, got %g", p.SimplifyTolerance)}
	case !(p.LengthSlack > 0):
		return &recon.InvalidRangeError{Field: "length_slack", Reason: fmt.Sprintf("must be positive, got %g", p.LengthSlack)}
	}
	return nil
}

// LevelPolylines holds the polylines of one level. Present is false when
// the level's chain was empty; such levels carry no polylines.
type LevelPolylines struct {
	Level      int
	Z          float64
	Present    bool
	Raw        []orb.LineString
	Simplified []orb.LineString
}

// Split cuts a chain wherever two consecutive points are at least gap apart.
// The point after the cut starts the next polyline.
func Split(chain orb.LineString, gap float64) []orb.LineString {
	if len(chain) == 0 {
		return nil
	}
	var out []orb.LineString
	start := 0
	for i := 1; i < len(chain); i++ {
		if planar.Distance(chain[i-1], chain[i]) >= gap {
			out = append(out, slices.Clone(chain[start:i]))
			start = i
		}
	}
	return append(out, slices.Clone(chain[start:]))
}

// LengthThreshold returns round(percentile p of counts). The percentile
// sits at rank (n-1)*p/100 of the sorted counts and is interpolated
// linearly between the two neighbouring values. An empty input yields 0.
func LengthThreshold(counts []int, p float64) int {
	if len(counts) == 0 {
		return 0
	}
	xs := make([]float64, len(counts))
	for i, c := range counts {
		xs[i] = float64(c)
	}
	slices.Sort(xs)
	h := float64(len(xs)-1) * min(max(p, 0), 100) / 100
	lo, hi := int(math.Floor(h)), int(math.Ceil(h))
	return int(math.Round(xs[lo] + (h-float64(lo))*(xs[hi]-xs[lo])))
}

// Simplify reduces ls with Douglas-Peucker at tol. Endpoints are kept
// exactly and the input is never modified. If the result crosses itself
// while the input did not, the tolerance is halved and the simplification
// retried; when that keeps failing the input is returned unchanged.
func Simplify(ls orb.LineString, tol float64) orb.LineString {
	if len(ls) <= 2 || tol <= 0 {
		return slices.Clone(ls)
	}
	inputSimple := !SelfIntersects(ls, false)
	for try := 0; try <= maxTopologyRetries; try++ {
		out := simplify.DouglasPeucker(tol).LineString(ls.Clone())
		if !inputSimple || !SelfIntersects(out, false) {
			return out
		}
		recon.Tracef("simplify at %.5f introduced a crossing, retrying at half", tol)
		tol /= 2
	}
	return slices.Clone(ls)
}

// Assemble splits every traced chain, drops polylines shorter than the
// percentile-derived threshold and simplifies the survivors. The result is
// aligned with chains.
func Assemble(ctx context.Context, chains []l3centroids.Chain, p Params) ([]LevelPolylines, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := make([]LevelPolylines, len(chains))
	var counts []int
	for k, c := range chains {
		out[k] = LevelPolylines{Level: c.Level, Z: c.Z}
		if c.Empty() {
			continue
		}
		out[k].Present = true
		out[k].Raw = Split(c.Centroids, p.MinWallThickness)
		for _, ls := range out[k].Raw {
			counts = append(counts, len(ls))
		}
	}

	threshold := LengthThreshold(counts, p.Percentile)
	recon.Diagf("polyline length threshold: %d (p%g over %d polylines)", threshold, p.Percentile, len(counts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := range out {
		if !out[k].Present {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lp := &out[k]
			lp.Simplified = []orb.LineString{}
			for _, ls := range lp.Raw {
				if len(ls) < p.MinPolylinePoints || float64(len(ls)) < float64(threshold)/p.LengthSlack {
					continue
				}
				lp.Simplified = append(lp.Simplified, Simplify(ls, p.SimplifyTolerance))
			}
			recon.Diagf("level %d (z=%.3f): %d raw, %d clean polylines", lp.Level, lp.Z, len(lp.Raw), len(lp.Simplified))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assembling polylines: %w", err)
	}
	return out, nil
}
