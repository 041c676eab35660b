// Package l6mesh owns Layer 6: rasterizing each level's outline onto a
// regular grid and extruding the cells into 8-node hexahedra that share
// nodes across cells and levels.
//
// Key types: Grid, ElementCell, Mesh.
//
// Dependency rule: L6 may depend on recon and L1-L5. It is the top of the
// layer stack; exports read its output.
package l6mesh
