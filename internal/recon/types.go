package recon

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// PointCloud is an ordered, read-only collection of 3D points.
type PointCloud struct {
	Points []r3.Vec
}

// NewPointCloud wraps points. The slice is not copied.
func NewPointCloud(points []r3.Vec) *PointCloud {
	return &PointCloud{Points: points}
}

// Count returns the number of points.
func (pc *PointCloud) Count() int {
	if pc == nil {
		return 0
	}
	return len(pc.Points)
}

// Bounds returns the axis-aligned bounding box of the cloud.
// An empty cloud yields an empty Bounds.
func (pc *PointCloud) Bounds() Bounds {
	if pc.Count() == 0 {
		return Bounds{}
	}
	b := Bounds{
		Min: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, p := range pc.Points {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	return b
}

// Bounds is an axis-aligned 3D box.
type Bounds struct {
	Min, Max r3.Vec
}

// LevelRule selects how a LevelSet is generated.
type LevelRule int

const (
	// RuleCount spaces a fixed number of levels between the bounds, inclusive.
	RuleCount LevelRule = iota + 1
	// RuleStep steps from the lower bound, exclusive of the upper bound.
	RuleStep
	// RuleCustom uses an explicit list of elevations.
	RuleCustom
)

// String returns the configuration name of the rule.
func (r LevelRule) String() string {
	switch r {
	case RuleCount:
		return "count"
	case RuleStep:
		return "step"
	case RuleCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// LevelSet is a strictly increasing sequence of elevations.
// Index i of every per-level artifact refers to Z[i].
type LevelSet struct {
	Z    []float64
	Rule LevelRule
}

// Len returns the number of levels.
func (ls LevelSet) Len() int { return len(ls.Z) }

// Validate checks strict monotonicity and finiteness.
func (ls LevelSet) Validate() error {
	for i, z := range ls.Z {
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return &InvalidRangeError{Field: "levels", Reason: "non-finite elevation"}
		}
		if i > 0 && z <= ls.Z[i-1] {
			return &InvalidRangeError{Field: "levels", Reason: "elevations must be strictly increasing"}
		}
	}
	return nil
}
