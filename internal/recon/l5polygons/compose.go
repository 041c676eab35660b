package l5polygons

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/cloud2fem/internal/recon"
)

// ComposeOp selects how the valid rings of a level are combined.
type ComposeOp int

const (
	// SymmetricDifference folds rings with XOR. Equal to union for
	// disjoint rings; a ring nested in another becomes a hole.
	SymmetricDifference ComposeOp = iota
	// Union folds rings with a true union; overlaps are kept.
	Union
)

func (op ComposeOp) String() string {
	switch op {
	case SymmetricDifference:
		return "symmetric_difference"
	case Union:
		return "union"
	default:
		return fmt.Sprintf("ComposeOp(%d)", int(op))
	}
}

// ParseComposeOp maps a configuration name to a ComposeOp.
func ParseComposeOp(name string) (ComposeOp, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "xor", "symmetric_difference", "symdiff":
		return SymmetricDifference, nil
	case "union":
		return Union, nil
	default:
		return 0, &recon.InvalidRangeError{Field: "compose_op", Reason: fmt.Sprintf("unknown operation %q", name)}
	}
}

// toGeom converts a closed orb ring to a ctessum polygon with one path.
func toGeom(r orb.Ring) geom.Polygon {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	path := make(geom.Path, n)
	for i := 0; i < n; i++ {
		path[i] = geom.Point{X: r[i][0], Y: r[i][1]}
	}
	return geom.Polygon{path}
}

// Compose folds rings pairwise with op and nests the resulting contours
// into an orb.MultiPolygon. Zero rings yield nil.
func Compose(rings []orb.Ring, op ComposeOp) orb.MultiPolygon {
	if len(rings) == 0 {
		return nil
	}
	acc := toGeom(rings[0])
	for _, r := range rings[1:] {
		switch op {
		case Union:
			acc = asPolygon(acc.Union(toGeom(r)))
		default:
			acc = xor(acc, toGeom(r))
		}
	}

	contours := make([]orb.Ring, 0, len(acc))
	for _, path := range acc {
		if len(path) < 3 {
			continue
		}
		r := make(orb.Ring, 0, len(path)+1)
		for _, p := range path {
			r = append(r, orb.Point{p.X, p.Y})
		}
		if r[0] != r[len(r)-1] {
			r = append(r, r[0])
		}
		if planar.Area(r) == 0 {
			continue
		}
		contours = append(contours, r)
	}
	return nest(contours)
}

// xor returns the union of a and b minus their intersection. The clipper's
// own XOR yields nothing when an operand is empty or the bounding boxes
// do not overlap.
func xor(a, b geom.Polygon) geom.Polygon {
	union := asPolygon(a.Union(b))
	common := asPolygon(a.Intersection(b))
	if len(common) == 0 {
		return union
	}
	return asPolygon(union.Difference(common))
}

// asPolygon flattens a clipper result into one multi-path Polygon.
func asPolygon(g geom.Polygonal) geom.Polygon {
	if p, ok := g.(geom.Polygon); ok {
		return p
	}
	var out geom.Polygon
	for _, p := range g.Polygons() {
		out = append(out, p...)
	}
	return out
}

// nest arranges contours by containment parity: a contour inside an even
// number of others is a shell, otherwise a hole of its innermost shell.
func nest(contours []orb.Ring) orb.MultiPolygon {
	if len(contours) == 0 {
		return nil
	}
	type contour struct {
		ring  orb.Ring
		area  float64
		depth int
	}
	cs := make([]contour, len(contours))
	for i, r := range contours {
		cs[i] = contour{ring: r, area: math.Abs(planar.Area(r))}
	}
	for i := range cs {
		probe := midpoint(cs[i].ring)
		for j := range cs {
			if i != j && cs[j].area > cs[i].area && planar.RingContains(cs[j].ring, probe) {
				cs[i].depth++
			}
		}
	}
	// Largest first so each hole finds its smallest enclosing shell last.
	sort.SliceStable(cs, func(a, b int) bool { return cs[a].area > cs[b].area })

	var mp orb.MultiPolygon
	shellOf := make([]int, len(cs))
	for i := range cs {
		shellOf[i] = -1
		if cs[i].depth%2 == 0 {
			shellOf[i] = len(mp)
			mp = append(mp, orb.Polygon{orient(cs[i].ring, true)})
			continue
		}
		probe := midpoint(cs[i].ring)
		owner := -1
		for j := 0; j < i; j++ {
			if shellOf[j] >= 0 && cs[j].depth == cs[i].depth-1 && planar.RingContains(cs[j].ring, probe) {
				owner = shellOf[j]
			}
		}
		if owner < 0 {
			mp = append(mp, orb.Polygon{orient(cs[i].ring, true)})
			continue
		}
		mp[owner] = append(mp[owner], orient(cs[i].ring, false))
	}
	return mp
}

// midpoint returns the middle of a ring's first edge.
func midpoint(r orb.Ring) orb.Point {
	return orb.Point{(r[0][0] + r[1][0]) / 2, (r[0][1] + r[1][1]) / 2}
}
