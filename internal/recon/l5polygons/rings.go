package l5polygons

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
	"github.com/peterstace/simplefeatures/geom"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l4polylines"
)

// CloseRing interprets a polyline as the boundary of a polygon, adding the
// closing point when the polyline does not already end where it started.
func CloseRing(ls orb.LineString) orb.Ring {
	r := make(orb.Ring, len(ls), len(ls)+1)
	copy(r, ls)
	if len(r) > 0 && r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r
}

// Valid reports whether r is a simple polygon boundary. It must be closed
// with at least three distinct vertices and non-zero area, and the polygon
// it bounds must pass OGC validation (finite coordinates, no edge touching
// another).
func Valid(r orb.Ring) bool {
	if len(r) < 4 || !r.Closed() {
		return false
	}
	distinct := make(map[orb.Point]struct{}, len(r))
	for _, p := range r[:len(r)-1] {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 || len(distinct) != len(r)-1 {
		return false
	}
	if math.Abs(planar.Area(r)) == 0 {
		return false
	}
	shell := l4polylines.ToLineString(r, true)
	return geom.NewPolygon([]geom.LineString{shell}).Validate() == nil
}

// Repair tries to make r valid by simplifying it with growing tolerances.
// The tolerance starts at p.RepairTolerance and grows by MinWallThickness/50;
// the ring is abandoned once the tolerance reaches MinWallThickness/2.5.
func Repair(r orb.Ring, p Params) (orb.Ring, bool) {
	ceiling := p.MinWallThickness / 2.5
	step := p.MinWallThickness / 50
	tol := p.RepairTolerance
	cur := r
	for !Valid(cur) {
		if tol >= ceiling {
			return nil, false
		}
		tol += step
		cur = simplify.DouglasPeucker(tol).Ring(r.Clone())
		recon.Tracef("repair: tolerance %.4f, %d -> %d vertices", tol, len(r), len(cur))
	}
	return cur, true
}

// orient makes r counter-clockwise for shells and clockwise for holes.
func orient(r orb.Ring, shell bool) orb.Ring {
	want := orb.CCW
	if !shell {
		want = orb.CW
	}
	if r.Orientation() != want {
		r.Reverse()
	}
	return r
}
