package pipeline

import (
	"fmt"
	"math"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l3centroids"
	"github.com/banshee-data/cloud2fem/internal/recon/l4polylines"
	"github.com/banshee-data/cloud2fem/internal/recon/l5polygons"
)

// Options holds the resolved configuration of every stage.
type Options struct {
	Rule         recon.LevelRule
	ZLower       float64
	ZUpper       float64
	LevelParam   float64 // level count for RuleCount, step for RuleStep
	CustomLevels []float64

	SliceThickness float64

	Tracing   l3centroids.Params
	Polylines l4polylines.Params
	Polygons  l5polygons.Params

	CellX, CellY float64
	// SingleLevelHeight is the element height used when only one level
	// reaches the mesher.
	SingleLevelHeight float64
}

// DefaultOptions returns options for a wall thickness of minWall spanning
// [zLower, zUpper] with ten evenly spaced levels.
func DefaultOptions(zLower, zUpper, minWall float64) Options {
	return Options{
		Rule:              recon.RuleCount,
		ZLower:            zLower,
		ZUpper:            zUpper,
		LevelParam:        10,
		SliceThickness:    0.02,
		Tracing:           l3centroids.DefaultParams(minWall),
		Polylines:         l4polylines.DefaultParams(minWall),
		Polygons:          l5polygons.DefaultParams(minWall),
		CellX:             0.1,
		CellY:             0.1,
		SingleLevelHeight: 0.1,
	}
}

// Validate checks the options that no stage validates on its own.
// Stage parameters are validated again by the stage that uses them.
func (o Options) Validate() error {
	if !(o.SliceThickness > 0) || math.IsInf(o.SliceThickness, 0) {
		return &recon.InvalidRangeError{Field: "slice_thickness", Reason: fmt.Sprintf("must be positive, got %g", o.SliceThickness)}
	}
	if !(o.CellX > 0) || !(o.CellY > 0) || math.IsInf(o.CellX, 0) || math.IsInf(o.CellY, 0) {
		return &recon.InvalidGridError{CellX: o.CellX, CellY: o.CellY}
	}
	if err := o.Tracing.Validate(); err != nil {
		return err
	}
	if err := o.Polylines.Validate(); err != nil {
		return err
	}
	return o.Polygons.Validate()
}
