// Package l1levels owns Layer 1 of the reconstruction pipeline: choosing
// the elevations at which the point cloud is cross-sectioned.
//
// Key function: Generate.
//
// Dependency rule: L1 depends only on the recon root package.
package l1levels
