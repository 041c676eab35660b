package l4polylines

import (
	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

// SelfIntersects reports whether the path through pts touches itself
// anywhere other than the shared vertex of consecutive edges, including
// collinear edges that fold back. When closed is true the edge from the
// last point back to the first is included, and an explicit closing point
// equal to pts[0] is ignored.
func SelfIntersects(pts []orb.Point, closed bool) bool {
	return !ToLineString(pts, closed).IsSimple()
}

// ToLineString converts pts to a simplefeatures line string. With closed
// set the result ends where it starts.
func ToLineString(pts []orb.Point, closed bool) geom.LineString {
	if closed && len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	flat := make([]float64, 0, 2*len(pts)+2)
	for _, p := range pts {
		flat = append(flat, p[0], p[1])
	}
	if closed && len(pts) > 0 {
		flat = append(flat, pts[0][0], pts[0][1])
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}
