package l2slices

import (
	"fmt"
	"math"
	"runtime"
	"slices"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/cloud2fem/internal/recon"
)

// Slice is the band of points around one level.
type Slice struct {
	Level   int
	Z       float64
	Indices []int       // indices into the point cloud, in cloud order
	XY      []orb.Point // planar projection of Indices
}

// Len returns the number of points in the band.
func (s Slice) Len() int { return len(s.Indices) }

// SliceSet holds one Slice per level, aligned with the LevelSet index.
type SliceSet struct {
	Slices    []Slice
	Thickness float64
	// Remainder lists every point index that falls in no band.
	Remainder []int
}

// Cut extracts, for each level z, the points with z-t/2 <= p.Z <= z+t/2.
// Levels whose band is empty keep an empty Slice.
func Cut(levels recon.LevelSet, cloud *recon.PointCloud, thickness float64) (*SliceSet, error) {
	if math.IsNaN(thickness) || math.IsInf(thickness, 0) || thickness <= 0 {
		return nil, &recon.InvalidRangeError{Field: "slice_thickness", Reason: fmt.Sprintf("must be positive, got %g", thickness)}
	}
	if err := levels.Validate(); err != nil {
		return nil, err
	}

	n := cloud.Count()
	byZ := make([]int, n)
	for i := range byZ {
		byZ[i] = i
	}
	sort.SliceStable(byZ, func(a, b int) bool {
		return cloud.Points[byZ[a]].Z < cloud.Points[byZ[b]].Z
	})

	set := &SliceSet{Slices: make([]Slice, levels.Len()), Thickness: thickness}
	half := thickness / 2

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k, z := range levels.Z {
		g.Go(func() error {
			lo, hi := z-half, z+half
			start := sort.Search(n, func(i int) bool { return cloud.Points[byZ[i]].Z >= lo })
			var idx []int
			for i := start; i < n && cloud.Points[byZ[i]].Z <= hi; i++ {
				idx = append(idx, byZ[i])
			}
			slices.Sort(idx)
			xy := make([]orb.Point, len(idx))
			for i, pi := range idx {
				p := cloud.Points[pi]
				xy[i] = orb.Point{p.X, p.Y}
			}
			set.Slices[k] = Slice{Level: k, Z: z, Indices: idx, XY: xy}
			return nil
		})
	}
	_ = g.Wait()

	set.Remainder = remainder(set.Slices, n)
	recon.Diagf("sliced %d points into %d levels (t=%g), %d points unassigned",
		n, levels.Len(), thickness, len(set.Remainder))
	return set, nil
}

// remainder returns the indices in [0,n) not claimed by any slice, ascending.
// Overlapping bands may claim a point more than once; it is still excluded once.
func remainder(ss []Slice, n int) []int {
	claimed := mapset.NewThreadUnsafeSet[int]()
	for _, s := range ss {
		for _, i := range s.Indices {
			claimed.Add(i)
		}
	}
	out := make([]int, 0, n-min(n, claimed.Cardinality()))
	for i := 0; i < n; i++ {
		if !claimed.Contains(i) {
			out = append(out, i)
		}
	}
	return out
}

// Counts returns the number of points in each slice.
func (s *SliceSet) Counts() []int {
	out := make([]int, len(s.Slices))
	for i, sl := range s.Slices {
		out[i] = sl.Len()
	}
	return out
}
