// Package pipeline drives the layered reconstruction stages over one point
// cloud.
//
// A Session keeps the latest artifact of every stage. Each stage method
// reads the artifact of the stage below it, so a caller may replace an
// artifact with an edited copy (SetLevels, SetChains, SetPolylines, ...)
// and re-run only the stages above. Replacing an artifact discards every
// artifact derived from it.
//
// Dependency rule: pipeline may import recon and every layer; no layer
// imports pipeline.
package pipeline
