// Package l5polygons owns Layer 5: closing each simplified polyline into a
// ring, repairing rings that cross themselves and composing the valid rings
// of a level into one MultiPolygon.
//
// Key types: LevelShape, Result, ComposeOp.
//
// Dependency rule: L5 may depend on recon and L1-L4, never on L6.
package l5polygons
