package l6mesh

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l5polygons"
)

func unitGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := NewGrid(recon.Bounds{Max: r3.Vec{X: 1, Y: 1, Z: 1}}, 0.25, 0.25)
	require.NoError(t, err)
	return g
}

func squareShape(level int, z, x0, y0, side float64) l5polygons.LevelShape {
	r := orb.Ring{{x0, y0}, {x0 + side, y0}, {x0 + side, y0 + side}, {x0, y0 + side}, {x0, y0}}
	return l5polygons.LevelShape{Level: level, Z: z, Present: true, Polygons: []orb.Ring{r}, Shape: orb.MultiPolygon{{r}}}
}

func TestNewGrid(t *testing.T) {
	g := unitGrid(t)
	want := []float64{-0.25, 0, 0.25, 0.5, 0.75, 1, 1.25}
	if diff := cmp.Diff(want, g.NodeX); diff != "" {
		t.Errorf("NodeX mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, g.NodeX, g.NodeY)
	require.Len(t, g.ElemX, len(g.NodeX)-1)
	assert.Equal(t, -0.125, g.ElemX[0])
	assert.Equal(t, 1.125, g.ElemX[len(g.ElemX)-1])
	assert.Equal(t, orb.Point{0.125, 0.375}, g.Center(ElementCell{I: 1, J: 2}))
}

func TestNewGridAnisotropic(t *testing.T) {
	g, err := NewGrid(recon.Bounds{Min: r3.Vec{X: -1, Y: 2}, Max: r3.Vec{X: 1, Y: 3}}, 0.5, 0.1)
	require.NoError(t, err)
	assert.Equal(t, -1.5, g.NodeX[0])
	assert.Less(t, g.NodeX[len(g.NodeX)-1], 1+2*0.5)
	assert.Len(t, g.NodeX, 7)
	assert.InDelta(t, 1.9, g.NodeY[0], 1e-12)
	assert.Less(t, g.NodeY[len(g.NodeY)-1], 3+2*0.1)
}

func TestNewGridInvalid(t *testing.T) {
	for _, c := range [][2]float64{{0, 1}, {1, -1}, {-0.5, -0.5}} {
		_, err := NewGrid(recon.Bounds{}, c[0], c[1])
		var gridErr *recon.InvalidGridError
		require.ErrorAs(t, err, &gridErr)
		assert.ErrorIs(t, err, recon.ErrInvalidConfig)
	}
}

func TestRasterizeSquare(t *testing.T) {
	g := unitGrid(t)
	cells := g.RasterizeLevel(squareShape(0, 0, 0, 0, 1))
	require.Len(t, cells, 16)
	assert.Equal(t, ElementCell{I: 1, J: 1}, cells[0])
	assert.Equal(t, ElementCell{I: 1, J: 2}, cells[1], "cells are ordered x-major")
	assert.Equal(t, ElementCell{I: 4, J: 4}, cells[15])

	assert.Nil(t, g.RasterizeLevel(l5polygons.LevelShape{}))
}

func TestRasterizeAligned(t *testing.T) {
	g := unitGrid(t)
	shapes := []l5polygons.LevelShape{squareShape(0, 0, 0, 0, 1), squareShape(1, 1, 0, 0, 0.5)}
	cells, err := Rasterize(context.Background(), g, shapes)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Len(t, cells[0], 16)
	assert.Len(t, cells[1], 4)
}

func TestRasterizeCentresOnEdges(t *testing.T) {
	// Every edge of the shell passes through a row or column of element
	// centres; only the centre strictly inside is kept.
	g := unitGrid(t)
	cells := g.RasterizeLevel(squareShape(0, 0, 0.125, 0.125, 0.5))
	assert.Equal(t, []ElementCell{{I: 2, J: 2}}, cells)
}

func block(i0, j0, n int) []ElementCell {
	var out []ElementCell
	for i := i0; i < i0+n; i++ {
		for j := j0; j < j0+n; j++ {
			out = append(out, ElementCell{I: i, J: j})
		}
	}
	return out
}

func TestBuildSharesNodes(t *testing.T) {
	g := unitGrid(t)
	levels := []float64{0, 1}
	cells := [][]ElementCell{block(1, 1, 2), block(1, 1, 2)}

	m, err := Build(context.Background(), g, levels, cells, 0)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Len(t, m.Elements, 8)
	// 3x3 node columns on three z layers: 0, 1 and 2 (top reuses the gap below).
	assert.Len(t, m.Nodes, 27)
	zs := map[float64]int{}
	for _, n := range m.Nodes {
		zs[n.Z]++
	}
	assert.Equal(t, map[float64]int{0: 9, 1: 9, 2: 9}, zs)
}

func TestBuildCornerOrder(t *testing.T) {
	g := unitGrid(t)
	m, err := Build(context.Background(), g, []float64{0, 0.5}, [][]ElementCell{{{I: 2, J: 3}}, nil}, 0)
	require.NoError(t, err)
	require.Len(t, m.Elements, 1)

	x0, x1 := g.NodeX[2], g.NodeX[3]
	y0, y1 := g.NodeY[3], g.NodeY[4]
	want := [8][3]float64{
		{x0, y0, 0}, {x1, y0, 0}, {x1, y1, 0}, {x0, y1, 0},
		{x0, y0, 0.5}, {x1, y0, 0.5}, {x1, y1, 0.5}, {x0, y1, 0.5},
	}
	for k, id := range m.Elements[0].Nodes {
		n := m.Nodes[id-1]
		assert.Equal(t, want[k], [3]float64{n.X, n.Y, n.Z}, "corner %d", k)
	}
}

func TestBuildSingleLevel(t *testing.T) {
	g := unitGrid(t)
	m, err := Build(context.Background(), g, []float64{2}, [][]ElementCell{block(0, 0, 1)}, 0.3)
	require.NoError(t, err)
	require.Len(t, m.Nodes, 8)
	assert.Equal(t, 2.3, m.Nodes[7].Z)

	_, err = Build(context.Background(), g, []float64{2}, [][]ElementCell{block(0, 0, 1)}, 0)
	assert.ErrorIs(t, err, recon.ErrInvalidConfig)
}

func TestBuildEmpty(t *testing.T) {
	g := unitGrid(t)
	m, err := Build(context.Background(), g, nil, nil, 0)
	require.NoError(t, err)
	assert.True(t, m.Empty())
	assert.NoError(t, m.Validate())

	m, err = Build(context.Background(), g, []float64{0, 1}, [][]ElementCell{nil, nil}, 0)
	require.NoError(t, err)
	assert.True(t, m.Empty())
	assert.Empty(t, m.Nodes)
}

func TestBuildMismatchedInput(t *testing.T) {
	g := unitGrid(t)
	_, err := Build(context.Background(), g, []float64{0, 1}, [][]ElementCell{nil}, 0)
	assert.Error(t, err)

	_, err = Build(context.Background(), g, []float64{1, 0}, [][]ElementCell{nil, nil}, 0)
	assert.ErrorIs(t, err, recon.ErrInvalidConfig)

	_, err = Build(context.Background(), g, []float64{0, 1}, [][]ElementCell{{{I: 99, J: 0}}, nil}, 0)
	var mce *recon.MeshConstructionError
	assert.ErrorAs(t, err, &mce)
}

func randomCells(rng *rand.Rand, g *Grid) []ElementCell {
	var out []ElementCell
	for i := range g.ElemX {
		for j := range g.ElemY {
			if rng.Float64() < 0.5 {
				out = append(out, ElementCell{I: i, J: j})
			}
		}
	}
	return out
}

// TestLookbackWindowMatchesGlobal checks that restricting node matching to
// the two previous levels finds every match an unbounded search finds.
func TestLookbackWindowMatchesGlobal(t *testing.T) {
	g := unitGrid(t)
	rng := rand.New(rand.NewSource(3))
	levels := []float64{0, 0.3, 0.5, 1.1, 1.2, 2, 2.25}

	for trial := 0; trial < 10; trial++ {
		cells := make([][]ElementCell, len(levels))
		for k := range cells {
			cells[k] = randomCells(rng, g)
		}
		// Level 3 repeats level 1's footprint, which level 2 leaves empty,
		// so level 1's nodes drop out of the window before level 3 runs.
		cells[1] = block(0, 0, 2)
		cells[2] = block(3, 3, 2)
		cells[3] = block(0, 0, 2)

		windowed, err := build(context.Background(), g, levels, cells, 0, lookback)
		require.NoError(t, err)
		global, err := build(context.Background(), g, levels, cells, 0, len(levels))
		require.NoError(t, err)

		require.NoError(t, windowed.Validate())
		if diff := cmp.Diff(global.Nodes, windowed.Nodes); diff != "" {
			t.Fatalf("trial %d: node tables differ (-global +windowed):\n%s", trial, diff)
		}
		if diff := cmp.Diff(global.Elements, windowed.Elements); diff != "" {
			t.Fatalf("trial %d: connectivity differs (-global +windowed):\n%s", trial, diff)
		}
	}
}

func TestMeshConservation(t *testing.T) {
	g := unitGrid(t)
	rng := rand.New(rand.NewSource(11))
	levels := []float64{0, 0.4, 0.8, 1.6}
	cells := make([][]ElementCell, len(levels))
	total := 0
	for k := range cells {
		cells[k] = randomCells(rng, g)
		total += len(cells[k])
	}
	m, err := Build(context.Background(), g, levels, cells, 0)
	require.NoError(t, err)
	assert.Len(t, m.Elements, total)
	assert.NoError(t, m.Validate())
}

func TestValidateDetectsViolations(t *testing.T) {
	g := unitGrid(t)
	fresh := func() *Mesh {
		m, err := Build(context.Background(), g, []float64{0, 1}, [][]ElementCell{block(1, 1, 2), nil}, 0)
		require.NoError(t, err)
		return m
	}

	m := fresh()
	m.Nodes[3].X, m.Nodes[3].Y, m.Nodes[3].Z = m.Nodes[0].X, m.Nodes[0].Y, m.Nodes[0].Z
	assertMeshErr(t, m.Validate())

	m = fresh()
	m.Elements[0].Nodes[1] = m.Elements[0].Nodes[0]
	assertMeshErr(t, m.Validate())

	m = fresh()
	m.Elements[2].Nodes[5] = len(m.Nodes) + 4
	assertMeshErr(t, m.Validate())

	m = fresh()
	m.Nodes[1].ID = 7
	assertMeshErr(t, m.Validate())

	m = fresh()
	m.Cells[0] = m.Cells[0][:1]
	assertMeshErr(t, m.Validate())
}

func assertMeshErr(t *testing.T, err error) {
	t.Helper()
	var mce *recon.MeshConstructionError
	if !errors.As(err, &mce) {
		t.Errorf("Validate() = %v, want *MeshConstructionError", err)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, unitGrid(t), []float64{0}, [][]ElementCell{nil}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
