// Package export writes pipeline results to the file formats consumed
// downstream: Abaqus-style .inp meshes for FE solvers and DXF outlines
// for CAD.
//
// Dependency rule: export reads recon, L5 and L6 artifacts and never
// feeds anything back into the pipeline.
package export
