// Package recon holds the types shared by every layer of the geometric
// reconstruction pipeline: the point cloud, the level set, the error
// taxonomy and the three logging streams.
//
// The pipeline is split into layered packages:
//
//	l1levels    elevation levels to slice at
//	l2slices    per-level point bands
//	l3centroids centroid-chain tracing
//	l4polylines split, filter and simplify chains
//	l5polygons  rings, repair and per-level composition
//	l6mesh      voxel rasterization, extrusion and node deduplication
//
// Dependency rule: a layer may import recon and lower layers, never a
// higher one. Per-level artifacts are stored in slices aligned with the
// LevelSet index; elevations are never used as map keys.
package recon
