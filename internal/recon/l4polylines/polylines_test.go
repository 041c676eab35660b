package l4polylines

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l3centroids"
)

func TestSplitAtGaps(t *testing.T) {
	chain := orb.LineString{{0, 0}, {0.1, 0}, {0.2, 0}, {1, 0}, {1.1, 0}, {3, 0}}
	got := Split(chain, 0.5)
	want := []orb.LineString{
		{{0, 0}, {0.1, 0}, {0.2, 0}},
		{{1, 0}, {1.1, 0}},
		{{3, 0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitGapEqualToThresholdCuts(t *testing.T) {
	got := Split(orb.LineString{{0, 0}, {0.5, 0}}, 0.5)
	assert.Len(t, got, 2)
}

func TestSplitProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const gap = 0.2
	for trial := 0; trial < 50; trial++ {
		chain := make(orb.LineString, 1+rng.Intn(200))
		for i := 1; i < len(chain); i++ {
			step := rng.Float64() * 0.3
			chain[i] = orb.Point{chain[i-1][0] + step, chain[i-1][1] + (rng.Float64()-0.5)*0.05}
		}
		parts := Split(chain, gap)

		total := 0
		for _, ls := range parts {
			total += len(ls)
			for i := 1; i < len(ls); i++ {
				if d := planar.Distance(ls[i-1], ls[i]); d >= gap {
					t.Fatalf("trial %d: internal distance %g >= %g", trial, d, gap)
				}
			}
		}
		require.Equal(t, len(chain), total, "split must keep every centroid")
		for i := 1; i < len(parts); i++ {
			prev := parts[i-1]
			if d := planar.Distance(prev[len(prev)-1], parts[i][0]); d < gap {
				t.Fatalf("trial %d: cut at distance %g < %g", trial, d, gap)
			}
		}
	}
}

func TestSplitEmpty(t *testing.T) {
	assert.Nil(t, Split(nil, 1))
}

func TestLengthThreshold(t *testing.T) {
	tests := []struct {
		counts []int
		p      float64
		want   int
	}{
		{nil, 1, 0},
		{[]int{7}, 1, 7},
		{[]int{40, 2, 35, 50}, 1, 3},
		{[]int{10, 20, 30, 40}, 100, 40},
		{[]int{10, 20, 30, 40}, 50, 25},
		{[]int{50, 10, 40, 20, 30}, 50, 30},
		{[]int{100, 2}, 1, 3},
		{[]int{10, 20, 30, 40}, 0, 10},
	}
	for _, tt := range tests {
		if got := LengthThreshold(tt.counts, tt.p); got != tt.want {
			t.Errorf("LengthThreshold(%v, %g) = %d, want %d", tt.counts, tt.p, got, tt.want)
		}
	}
}

func noisyPolyline(n int, seed int64) orb.LineString {
	rng := rand.New(rand.NewSource(seed))
	ls := make(orb.LineString, n)
	for i := range ls {
		x := float64(i) * 0.05
		ls[i] = orb.Point{x, math.Sin(x) + (rng.Float64()-0.5)*0.02}
	}
	return ls
}

func TestSimplifyKeepsEndpointsAndInput(t *testing.T) {
	ls := noisyPolyline(200, 1)
	orig := ls.Clone()
	out := Simplify(ls, 0.025)

	assert.Equal(t, orig, ls, "input must not be modified")
	require.GreaterOrEqual(t, len(out), 2)
	assert.Less(t, len(out), len(ls))
	assert.Equal(t, ls[0], out[0])
	assert.Equal(t, ls[len(ls)-1], out[len(out)-1])
	for _, p := range out {
		assert.Less(t, planar.DistanceFrom(ls, p), 1e-12, "simplified vertex %v not from input", p)
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		ls := noisyPolyline(150, seed)
		once := Simplify(ls, 0.025)
		twice := Simplify(once, 0.025)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("seed %d: not idempotent (-once +twice):\n%s", seed, diff)
		}
	}
}

func TestSimplifyPreservesTopology(t *testing.T) {
	// Plain Douglas-Peucker at 0.5 drops the bump at (5,0.4) and the
	// returning leg then crosses the outgoing one.
	ls := orb.LineString{{0, 0}, {5, 0.4}, {10, 0}, {10, -1}, {5, 0.2}, {0, -1}}
	require.False(t, SelfIntersects(ls, false))

	out := Simplify(ls, 0.5)
	assert.False(t, SelfIntersects(out, false), "simplified %v crosses itself", out)
	assert.Equal(t, ls, out)
}

func TestSimplifyShort(t *testing.T) {
	ls := orb.LineString{{0, 0}, {1, 1}}
	out := Simplify(ls, 1)
	assert.Equal(t, ls, out)
	out[0] = orb.Point{9, 9}
	assert.Equal(t, orb.Point{0, 0}, ls[0], "short input must be copied")
}

func line(n int, y float64) orb.LineString {
	ls := make(orb.LineString, n)
	for i := range ls {
		ls[i] = orb.Point{float64(i) * 0.05, y}
	}
	return ls
}

func TestAssemble(t *testing.T) {
	long := append(line(30, 0), line(30, 1)...) // gap of ~1.45 splits in two
	chains := []l3centroids.Chain{
		{Level: 0, Z: 0, Status: l3centroids.Traced, Centroids: long},
		{Level: 1, Z: 1, Status: l3centroids.EmptySlice},
		{Level: 2, Z: 2, Status: l3centroids.Traced, Centroids: append(line(40, 0), orb.Point{10, 10})},
	}
	p := DefaultParams(0.2)
	p.Percentile = 50
	out, err := Assemble(context.Background(), chains, p)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.True(t, out[0].Present)
	assert.Len(t, out[0].Raw, 2)
	assert.Len(t, out[0].Simplified, 2)
	for _, ls := range out[0].Simplified {
		assert.Len(t, ls, 2, "a straight polyline simplifies to its endpoints")
	}

	assert.False(t, out[1].Present)
	assert.Nil(t, out[1].Raw)
	assert.Nil(t, out[1].Simplified)

	// The trailing singleton is too short to survive.
	assert.Len(t, out[2].Raw, 2)
	assert.Len(t, out[2].Simplified, 1)
}

func TestAssembleDropsShortByThreshold(t *testing.T) {
	chains := []l3centroids.Chain{{
		Status: l3centroids.Traced,
		Centroids: append(append(line(50, 0), line(3, 5)...), line(50, 10)...),
	}}
	p := DefaultParams(0.2)
	p.Percentile = 50 // threshold is the median count 50, anything below 50/1.3 is dropped
	out, err := Assemble(context.Background(), chains, p)
	require.NoError(t, err)
	assert.Len(t, out[0].Raw, 3)
	assert.Len(t, out[0].Simplified, 2)
}

func TestAssembleRejectsBadParams(t *testing.T) {
	_, err := Assemble(context.Background(), nil, DefaultParams(0))
	assert.ErrorIs(t, err, recon.ErrInvalidConfig)
}
