package l3centroids

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func scatter(n int, seed int64, lo, hi float64) []orb.Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]orb.Point, n)
	for i := range pts {
		pts[i] = orb.Point{lo + rng.Float64()*(hi-lo), lo + rng.Float64()*(hi-lo)}
	}
	return pts
}

func bruteRegion(pts []orb.Point, active []bool, p orb.Point, eps float64) []int {
	var out []int
	for i, q := range pts {
		if active[i] && planar.Distance(p, q) <= eps {
			out = append(out, i)
		}
	}
	return out
}

func TestCellIDUnique(t *testing.T) {
	seen := make(map[int64][2]int64)
	for x := int64(-20); x <= 20; x++ {
		for y := int64(-20); y <= 20; y++ {
			id := cellID(x, y)
			if prev, ok := seen[id]; ok {
				t.Fatalf("cells %v and (%d,%d) share id %d", prev, x, y, id)
			}
			seen[id] = [2]int64{x, y}
		}
	}
}

func TestRegionQueryMatchesBruteForce(t *testing.T) {
	pts := scatter(800, 3, -2, 2)
	active := make([]bool, len(pts))
	for i := range active {
		active[i] = true
	}
	si := NewSpatialIndex(0.1)
	si.Build(pts)

	// Remove every third point.
	for i := 0; i < len(pts); i += 3 {
		si.Remove(i)
		active[i] = false
	}
	if want := len(pts) - (len(pts)+2)/3; si.Len() != want {
		t.Fatalf("Len() = %d, want %d", si.Len(), want)
	}

	for _, eps := range []float64{0.05, 0.1, 0.27} {
		for q := 0; q < 50; q++ {
			p := pts[q*7]
			got := si.RegionQuery(p, eps)
			want := bruteRegion(pts, active, p, eps)
			if !slices.Equal(got, want) {
				t.Fatalf("eps %g query %d: got %v want %v", eps, q, got, want)
			}
			if n := si.CountWithin(p, eps); n != len(want) {
				t.Errorf("CountWithin = %d, want %d", n, len(want))
			}
		}
	}
}

func TestNearestMatchesBruteForce(t *testing.T) {
	pts := scatter(500, 5, -3, 1)
	si := NewSpatialIndex(0.05)
	si.Build(pts)
	rng := rand.New(rand.NewSource(9))

	for step := 0; si.Len() > 0; step++ {
		q := orb.Point{rng.Float64()*8 - 5, rng.Float64()*8 - 5}
		got := si.Nearest(q)

		want, best := -1, 0.0
		for i, p := range pts {
			if !si.Active(i) {
				continue
			}
			if d := planar.DistanceSquared(q, p); want < 0 || d < best {
				want, best = i, d
			}
		}
		if got != want {
			t.Fatalf("step %d: Nearest = %d, want %d", step, got, want)
		}
		si.Remove(got)
	}
	if si.Nearest(orb.Point{0, 0}) != -1 {
		t.Error("empty index should return -1")
	}
	if si.First() != -1 {
		t.Error("empty index First should return -1")
	}
}

func TestNearestTieTakesLowerIndex(t *testing.T) {
	pts := []orb.Point{{1, 0}, {-1, 0}, {0, 1}}
	si := NewSpatialIndex(0.3)
	si.Build(pts)
	if got := si.Nearest(orb.Point{0, 0}); got != 0 {
		t.Errorf("Nearest = %d, want 0", got)
	}
	si.Remove(0)
	if got := si.Nearest(orb.Point{0, 0}); got != 1 {
		t.Errorf("Nearest after removal = %d, want 1", got)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	si := NewSpatialIndex(1)
	si.Build([]orb.Point{{0, 0}, {0.5, 0.5}})
	si.Remove(0)
	si.Remove(0)
	if si.Len() != 1 {
		t.Errorf("Len() = %d, want 1", si.Len())
	}
	if si.First() != 1 {
		t.Errorf("First() = %d, want 1", si.First())
	}
}
