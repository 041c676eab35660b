// Package l3centroids owns Layer 3: turning each level's band of points
// into an ordered chain of centroids that follows the wall centerline.
//
// Responsibilities: per-level radius calibration, grid spatial indexing,
// greedy nearest-neighbour chaining.
// Key types: Chain, Params, SpatialIndex.
//
// Dependency rule: L3 may depend on recon and L2, never on L4+.
package l3centroids
