// Package l4polylines owns Layer 4: cutting centroid chains into wall
// polylines, dropping short fragments and simplifying what remains.
//
// Key types: LevelPolylines, Params.
//
// Dependency rule: L4 may depend on recon and L1-L3, never on L5+.
package l4polylines
