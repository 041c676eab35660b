// Package l2slices owns Layer 2: extracting the horizontal band of points
// around each level and tracking the points no band claimed.
//
// Dependency rule: L2 may import recon and L1 types only.
package l2slices
