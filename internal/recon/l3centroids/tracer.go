package l3centroids

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l2slices"
)

// ChainStatus describes how a level's tracing ended.
type ChainStatus int

const (
	// Traced means at least one centroid was produced.
	Traced ChainStatus = iota
	// EmptySlice means the band had fewer than MinSlicePoints points.
	EmptySlice
	// InsufficientCentroids means no seed ever gathered enough neighbours.
	InsufficientCentroids
)

func (s ChainStatus) String() string {
	switch s {
	case Traced:
		return "traced"
	case EmptySlice:
		return "empty_slice"
	case InsufficientCentroids:
		return "insufficient_centroids"
	default:
		return fmt.Sprintf("ChainStatus(%d)", int(s))
	}
}

// Chain is the ordered centroid sequence traced at one level.
type Chain struct {
	Level     int
	Z         float64
	Radius    float64 // calibrated working radius
	Status    ChainStatus
	Centroids orb.LineString

	// Groups[i] lists the slice-local point indices averaged into Centroids[i].
	Groups [][]int
}

// Empty reports whether the chain carries no centroids.
func (c Chain) Empty() bool { return c.Status != Traced || len(c.Centroids) == 0 }

// Params configures tracing.
type Params struct {
	MinSlicePoints   int     // bands smaller than this yield EmptySlice
	MinNeighborPts   int     // neighbours needed to emit a centroid
	BaseRadius       float64 // starting calibration radius
	SampleFraction   float64 // fraction of the band sampled during calibration
	GrowthFactor     float64 // radius multiplier per calibration step
	MinWallThickness float64
	Seed             int64 // calibration sampling seed
}

// DefaultParams returns the tracing defaults for the given wall thickness.
func DefaultParams(minWall float64) Params {
	return Params{
		MinSlicePoints:   10,
		MinNeighborPts:   2,
		BaseRadius:       0.01,
		SampleFraction:   0.1,
		GrowthFactor:     1.35,
		MinWallThickness: minWall,
		Seed:             1,
	}
}

// Validate rejects parameters the tracer cannot run with.
func (p Params) Validate() error {
	switch {
	case !(p.MinWallThickness > 0) || math.IsInf(p.MinWallThickness, 0):
		return &recon.InvalidRangeError{Field: "min_wall_thickness", Reason: fmt.Sprintf("must be positive, got %g", p.MinWallThickness)}
	case !(p.BaseRadius > 0):
		return &recon.InvalidRangeError{Field: "base_radius", Reason: fmt.Sprintf("must be positive, got %g", p.BaseRadius)}
	case !(p.GrowthFactor > 1):
		return &recon.InvalidRangeError{Field: "growth_factor", Reason: fmt.Sprintf("must exceed 1, got %g", p.GrowthFactor)}
	case !(p.SampleFraction > 0) || p.SampleFraction > 1:
		return &recon.InvalidRangeError{Field: "sample_fraction", Reason: fmt.Sprintf("must be in (0,1], got %g", p.SampleFraction)}
	case p.MinNeighborPts < 1:
		return &recon.InvalidRangeError{Field: "min_neighbor_points", Reason: fmt.Sprintf("must be at least 1, got %d", p.MinNeighborPts)}
	case p.MinSlicePoints < 1:
		return &recon.InvalidRangeError{Field: "min_slice_points", Reason: fmt.Sprintf("must be at least 1, got %d", p.MinSlicePoints)}
	}
	return nil
}

// Calibrate returns the working radius for a band: starting at BaseRadius,
// it grows by GrowthFactor while the summed neighbour count of a random
// sample stays below 3.5*MinNeighborPts per sampled point, and stops once
// the radius reaches MinWallThickness/GrowthFactor.
func Calibrate(xy []orb.Point, p Params, rng *rand.Rand) float64 {
	radius := p.BaseRadius
	n := len(xy)
	if n == 0 {
		return radius
	}
	m := int(math.Round(float64(n) * p.SampleFraction))
	m = max(1, min(m, n))
	sample := rng.Perm(n)[:m]

	ceiling := p.MinWallThickness / p.GrowthFactor
	idx := NewSpatialIndex(ceiling)
	idx.Build(xy)
	target := 3.5 * float64(p.MinNeighborPts) * float64(m)

	for radius < ceiling {
		sum := 0
		for _, i := range sample {
			sum += idx.CountWithin(xy[i], radius)
		}
		if float64(sum) >= target {
			break
		}
		radius *= p.GrowthFactor
	}
	return radius
}

// Trace walks one band's points into a centroid chain.
func Trace(s l2slices.Slice, p Params) Chain {
	c := Chain{Level: s.Level, Z: s.Z}
	if s.Len() < p.MinSlicePoints {
		c.Status = EmptySlice
		recon.Diagf("level %d (z=%.3f): %d points, slice is empty", s.Level, s.Z, s.Len())
		return c
	}

	rng := rand.New(rand.NewSource(p.Seed + int64(s.Level)))
	c.Radius = Calibrate(s.XY, p, rng)
	recon.Diagf("level %d (z=%.3f): radius adopted %.5f", s.Level, s.Z, c.Radius)

	idx := NewSpatialIndex(c.Radius)
	idx.Build(s.XY)

	// Seed: the first remaining point whose neighbourhood is large enough.
	var last orb.Point
	for {
		seed := idx.First()
		if seed < 0 {
			c.Status = InsufficientCentroids
			recon.Diagf("level %d (z=%.3f): %d points, no seed with %d neighbours",
				s.Level, s.Z, s.Len(), p.MinNeighborPts)
			return c
		}
		idx.Remove(seed)
		group := idx.RegionQuery(s.XY[seed], c.Radius)
		if len(group) < p.MinNeighborPts {
			continue
		}
		last = c.emit(s.XY, group, idx)
		break
	}

	// Grow from the point nearest the last centroid.
	for idx.Len() > 0 {
		next := idx.Nearest(last)
		idx.Remove(next)
		group := idx.RegionQuery(s.XY[next], c.Radius)
		if len(group) < p.MinNeighborPts {
			continue
		}
		last = c.emit(s.XY, group, idx)
	}

	c.Status = Traced
	recon.Diagf("level %d (z=%.3f): %d points, %d centroids", s.Level, s.Z, s.Len(), len(c.Centroids))
	return c
}

// emit appends the mean of group as a centroid and removes the group.
func (c *Chain) emit(xy []orb.Point, group []int, idx *SpatialIndex) orb.Point {
	var sx, sy float64
	for _, i := range group {
		sx += xy[i][0]
		sy += xy[i][1]
		idx.Remove(i)
	}
	n := float64(len(group))
	m := orb.Point{sx / n, sy / n}
	c.Centroids = append(c.Centroids, m)
	c.Groups = append(c.Groups, group)
	return m
}

// TraceAll traces every slice concurrently. The result is aligned with
// set.Slices.
func TraceAll(ctx context.Context, set *l2slices.SliceSet, p Params) ([]Chain, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	chains := make([]Chain, len(set.Slices))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := range set.Slices {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chains[k] = Trace(set.Slices[k], p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tracing centroids: %w", err)
	}
	return chains, nil
}
