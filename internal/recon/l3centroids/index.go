package l3centroids

import (
	"math"
	"slices"

	"github.com/paulmach/orb"
)

// SpatialIndex answers radius and nearest-point queries over a fixed set of
// 2D points using a regular grid. Points can be removed; removed points are
// never returned again.
type SpatialIndex struct {
	CellSize float64
	Grid     map[int64][]int // Cell ID → active point indices

	points []orb.Point
	active []bool
	live   int

	// cell coordinate extent of the indexed points, used to bound ring search
	minCX, minCY, maxCX, maxCY int64
}

// NewSpatialIndex creates a spatial index with the specified cell size.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		CellSize: cellSize,
		Grid:     make(map[int64][]int),
	}
}

// Build populates the index with every point marked active.
func (si *SpatialIndex) Build(points []orb.Point) {
	si.points = points
	si.active = make([]bool, len(points))
	si.live = len(points)
	si.Grid = make(map[int64][]int, len(points)/4+1)
	si.minCX, si.minCY = math.MaxInt64, math.MaxInt64
	si.maxCX, si.maxCY = math.MinInt64, math.MinInt64

	for i, p := range points {
		si.active[i] = true
		cx, cy := si.cellCoords(p)
		si.minCX, si.maxCX = min(si.minCX, cx), max(si.maxCX, cx)
		si.minCY, si.maxCY = min(si.minCY, cy), max(si.maxCY, cy)
		id := cellID(cx, cy)
		si.Grid[id] = append(si.Grid[id], i)
	}
}

// Len returns the number of active points.
func (si *SpatialIndex) Len() int { return si.live }

// Active reports whether point i has not been removed.
func (si *SpatialIndex) Active(i int) bool { return si.active[i] }

// First returns the lowest active index, or -1 when the index is empty.
func (si *SpatialIndex) First() int {
	if si.live == 0 {
		return -1
	}
	for i, ok := range si.active {
		if ok {
			return i
		}
	}
	return -1
}

// Remove deactivates point i. Removing an inactive point is a no-op.
func (si *SpatialIndex) Remove(i int) {
	if !si.active[i] {
		return
	}
	si.active[i] = false
	si.live--
	id := cellID(si.cellCoords(si.points[i]))
	cell := si.Grid[id]
	for k, j := range cell {
		if j == i {
			cell = append(cell[:k], cell[k+1:]...)
			break
		}
	}
	if len(cell) == 0 {
		delete(si.Grid, id)
	} else {
		si.Grid[id] = cell
	}
}

func (si *SpatialIndex) cellCoords(p orb.Point) (int64, int64) {
	return int64(math.Floor(p[0] / si.CellSize)), int64(math.Floor(p[1] / si.CellSize))
}

// cellID computes a unique cell identifier using Szudzik's pairing function.
// Handles negative coordinates correctly.
func cellID(cellX, cellY int64) int64 {
	// Map signed integers to non-negative using zigzag encoding
	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// RegionQuery returns the active points within eps of p, in ascending index
// order. eps may exceed the cell size; the search widens accordingly.
func (si *SpatialIndex) RegionQuery(p orb.Point, eps float64) []int {
	var neighbors []int
	eps2 := eps * eps
	span := int64(math.Ceil(eps / si.CellSize))
	cx, cy := si.cellCoords(p)

	for x := cx - span; x <= cx+span; x++ {
		for y := cy - span; y <= cy+span; y++ {
			for _, j := range si.Grid[cellID(x, y)] {
				q := si.points[j]
				dx, dy := q[0]-p[0], q[1]-p[1]
				if dx*dx+dy*dy <= eps2 {
					neighbors = append(neighbors, j)
				}
			}
		}
	}
	slices.Sort(neighbors)
	return neighbors
}

// CountWithin returns len(RegionQuery(p, eps)) without allocating.
func (si *SpatialIndex) CountWithin(p orb.Point, eps float64) int {
	n := 0
	eps2 := eps * eps
	span := int64(math.Ceil(eps / si.CellSize))
	cx, cy := si.cellCoords(p)
	for x := cx - span; x <= cx+span; x++ {
		for y := cy - span; y <= cy+span; y++ {
			for _, j := range si.Grid[cellID(x, y)] {
				q := si.points[j]
				dx, dy := q[0]-p[0], q[1]-p[1]
				if dx*dx+dy*dy <= eps2 {
					n++
				}
			}
		}
	}
	return n
}

// Nearest returns the active point closest to p, or -1 when the index is
// empty. Equal distances resolve to the lower index.
func (si *SpatialIndex) Nearest(p orb.Point) int {
	if si.live == 0 {
		return -1
	}
	cx, cy := si.cellCoords(p)
	// Rings beyond this radius cannot contain indexed cells.
	maxRing := max(abs64(cx-si.minCX), abs64(cx-si.maxCX), abs64(cy-si.minCY), abs64(cy-si.maxCY))

	best, bestD2 := -1, math.Inf(1)
	for r := int64(0); r <= maxRing; r++ {
		// Any point in ring r lies at least (r-1) cells away.
		if best >= 0 {
			lim := float64(r-1) * si.CellSize
			if lim > 0 && lim*lim > bestD2 {
				break
			}
		}
		si.visitRing(cx, cy, r, func(j int) {
			q := si.points[j]
			dx, dy := q[0]-p[0], q[1]-p[1]
			d2 := dx*dx + dy*dy
			if d2 < bestD2 || (d2 == bestD2 && j < best) {
				best, bestD2 = j, d2
			}
		})
	}
	return best
}

// visitRing calls fn for every active point in the cells at Chebyshev
// distance exactly r from (cx, cy).
func (si *SpatialIndex) visitRing(cx, cy, r int64, fn func(int)) {
	visit := func(x, y int64) {
		for _, j := range si.Grid[cellID(x, y)] {
			fn(j)
		}
	}
	if r == 0 {
		visit(cx, cy)
		return
	}
	for x := cx - r; x <= cx+r; x++ {
		visit(x, cy-r)
		visit(x, cy+r)
	}
	for y := cy - r + 1; y <= cy+r-1; y++ {
		visit(cx-r, y)
		visit(cx+r, y)
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
