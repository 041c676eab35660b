package l6mesh

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/cloud2fem/internal/recon"
)

// lookback is the number of completed levels whose nodes are searched when
// matching a new corner. A level only shares nodes with the level directly
// below it, since every non-top level's top face sits exactly on the next
// elevation.
const lookback = 2

// Node is a mesh vertex. IDs start at 1 and are dense.
type Node struct {
	ID      int
	X, Y, Z float64
}

// Element is an 8-node hexahedron. Nodes lists the bottom face
// counter-clockwise from the (I,J) corner, then the top face in the same
// order.
type Element struct {
	ID    int
	Nodes [8]int
}

// Mesh is the extruded voxel model.
type Mesh struct {
	Nodes    []Node
	Elements []Element
	// Cells and Levels are aligned: Cells[k] were extruded from Levels[k].
	Cells  [][]ElementCell
	Levels []float64
}

// Empty reports whether the mesh has no elements.
func (m *Mesh) Empty() bool { return m == nil || len(m.Elements) == 0 }

type nodeKey [3]float64

// Build extrudes the rasterized cells level by level. Levels must be
// strictly increasing and aligned with cells. Each level's elements reach
// the next level; the top level reuses the gap below it, and a lone level
// uses singleLevelHeight.
func Build(ctx context.Context, g *Grid, levels []float64, cells [][]ElementCell, singleLevelHeight float64) (*Mesh, error) {
	return build(ctx, g, levels, cells, singleLevelHeight, lookback)
}

func build(ctx context.Context, g *Grid, levels []float64, cells [][]ElementCell, singleLevelHeight float64, window int) (*Mesh, error) {
	if len(levels) != len(cells) {
		return nil, fmt.Errorf("mesh build: %d levels but %d cell lists", len(levels), len(cells))
	}
	if err := (recon.LevelSet{Z: levels}).Validate(); err != nil {
		return nil, err
	}
	if len(levels) == 1 && (!(singleLevelHeight > 0) || math.IsInf(singleLevelHeight, 0)) {
		return nil, &recon.InvalidRangeError{Field: "single_level_height", Reason: fmt.Sprintf("must be positive, got %g", singleLevelHeight)}
	}

	m := &Mesh{Cells: cells, Levels: levels}
	// recent[0] holds the current level's nodes, recent[1:] the completed ones.
	recent := make([]map[nodeKey]int, window+1)
	for i := range recent {
		recent[i] = make(map[nodeKey]int)
	}

	lookup := func(k nodeKey) int {
		for _, seen := range recent {
			if id, ok := seen[k]; ok {
				return id
			}
		}
		id := len(m.Nodes) + 1
		m.Nodes = append(m.Nodes, Node{ID: id, X: k[0], Y: k[1], Z: k[2]})
		recent[0][k] = id
		return id
	}

	for k, z := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var top float64
		switch {
		case k+1 < len(levels):
			top = levels[k+1]
		case k > 0:
			top = z + (z - levels[k-1])
		default:
			top = z + singleLevelHeight
		}

		for _, c := range cells[k] {
			if c.I < 0 || c.J < 0 || c.I+1 >= len(g.NodeX) || c.J+1 >= len(g.NodeY) {
				return nil, &recon.MeshConstructionError{ElementID: len(m.Elements) + 1, Reason: fmt.Sprintf("cell (%d,%d) outside grid", c.I, c.J)}
			}
			x0, x1 := g.NodeX[c.I], g.NodeX[c.I+1]
			y0, y1 := g.NodeY[c.J], g.NodeY[c.J+1]
			corners := [8]nodeKey{
				{x0, y0, z}, {x1, y0, z}, {x1, y1, z}, {x0, y1, z},
				{x0, y0, top}, {x1, y0, top}, {x1, y1, top}, {x0, y1, top},
			}
			e := Element{ID: len(m.Elements) + 1}
			for n, key := range corners {
				e.Nodes[n] = lookup(key)
			}
			m.Elements = append(m.Elements, e)
		}

		// Rotate: the oldest window slot is recycled for the next level.
		oldest := recent[len(recent)-1]
		copy(recent[1:], recent[:len(recent)-1])
		clear(oldest)
		recent[0] = oldest
	}

	recon.Diagf("mesh: %d nodes, %d elements over %d levels", len(m.Nodes), len(m.Elements), len(levels))
	return m, nil
}

// Validate checks the mesh invariants: dense 1-based ids, unique node
// coordinates and eight distinct existing nodes per element.
func (m *Mesh) Validate() error {
	seen := make(map[nodeKey]int, len(m.Nodes))
	for i, n := range m.Nodes {
		if n.ID != i+1 {
			return &recon.MeshConstructionError{NodeID: n.ID, Reason: fmt.Sprintf("node at position %d has non-dense id", i)}
		}
		k := nodeKey{n.X, n.Y, n.Z}
		if other, ok := seen[k]; ok {
			return &recon.MeshConstructionError{NodeID: n.ID, Reason: fmt.Sprintf("duplicates coordinates of node %d", other)}
		}
		seen[k] = n.ID
	}
	for i, e := range m.Elements {
		if e.ID != i+1 {
			return &recon.MeshConstructionError{ElementID: e.ID, Reason: fmt.Sprintf("element at position %d has non-dense id", i)}
		}
		for a, id := range e.Nodes {
			if id < 1 || id > len(m.Nodes) {
				return &recon.MeshConstructionError{ElementID: e.ID, NodeID: id, Reason: "unknown node"}
			}
			for _, other := range e.Nodes[:a] {
				if other == id {
					return &recon.MeshConstructionError{ElementID: e.ID, NodeID: id, Reason: "node repeated in element"}
				}
			}
		}
	}
	total := 0
	for _, c := range m.Cells {
		total += len(c)
	}
	if total != len(m.Elements) {
		return &recon.MeshConstructionError{Reason: fmt.Sprintf("%d elements for %d cells", len(m.Elements), total)}
	}
	return nil
}
