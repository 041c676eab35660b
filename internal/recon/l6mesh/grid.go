package l6mesh

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l5polygons"
)

// Grid holds the node coordinates along each horizontal axis and the
// element centres between them.
type Grid struct {
	CellX, CellY float64
	NodeX, NodeY []float64
	ElemX, ElemY []float64
}

// ElementCell identifies the grid cell spanning NodeX[I]..NodeX[I+1] and
// NodeY[J]..NodeY[J+1].
type ElementCell struct {
	I, J int
}

// NewGrid spans [min-cell, max+2*cell) on both axes of b.
func NewGrid(b recon.Bounds, cellX, cellY float64) (*Grid, error) {
	if !(cellX > 0) || !(cellY > 0) || math.IsInf(cellX, 0) || math.IsInf(cellY, 0) {
		return nil, &recon.InvalidGridError{CellX: cellX, CellY: cellY}
	}
	g := &Grid{
		CellX: cellX,
		CellY: cellY,
		NodeX: axis(b.Min.X, b.Max.X, cellX),
		NodeY: axis(b.Min.Y, b.Max.Y, cellY),
	}
	g.ElemX = midpoints(g.NodeX)
	g.ElemY = midpoints(g.NodeY)
	return g, nil
}

func axis(lo, hi, cell float64) []float64 {
	start, stop := lo-cell, hi+2*cell
	n := int(math.Ceil((stop - start) / cell))
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v := start + float64(i)*cell
		if v >= stop {
			break
		}
		out = append(out, v)
	}
	return out
}

func midpoints(v []float64) []float64 {
	if len(v) < 2 {
		return nil
	}
	out := make([]float64, len(v)-1)
	for i := range out {
		out[i] = (v[i] + v[i+1]) / 2
	}
	return out
}

// Center returns the element centre of c.
func (g *Grid) Center(c ElementCell) orb.Point {
	return orb.Point{g.ElemX[c.I], g.ElemY[c.J]}
}

// RasterizeLevel lists the cells whose centre lies inside s, ordered by
// x index then y index.
func (g *Grid) RasterizeLevel(s l5polygons.LevelShape) []ElementCell {
	if !s.Present {
		return nil
	}
	bound := s.Shape.Bound()
	var cells []ElementCell
	for i, x := range g.ElemX {
		if x < bound.Min[0] || x > bound.Max[0] {
			continue
		}
		for j, y := range g.ElemY {
			if y < bound.Min[1] || y > bound.Max[1] {
				continue
			}
			if s.Contains(orb.Point{x, y}) {
				cells = append(cells, ElementCell{I: i, J: j})
			}
		}
	}
	return cells
}

// Rasterize runs RasterizeLevel for every shape concurrently. The result
// is aligned with shapes.
func Rasterize(ctx context.Context, g *Grid, shapes []l5polygons.LevelShape) ([][]ElementCell, error) {
	out := make([][]ElementCell, len(shapes))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for k := range shapes {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[k] = g.RasterizeLevel(shapes[k])
			recon.Diagf("level %d (z=%.3f): %d cells", shapes[k].Level, shapes[k].Z, len(out[k]))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("rasterizing levels: %w", err)
	}
	return out, nil
}
