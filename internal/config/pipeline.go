package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l1levels"
	"github.com/banshee-data/cloud2fem/internal/recon/l3centroids"
	"github.com/banshee-data/cloud2fem/internal/recon/l4polylines"
	"github.com/banshee-data/cloud2fem/internal/recon/l5polygons"
	"github.com/banshee-data/cloud2fem/internal/recon/pipeline"
	"github.com/banshee-data/cloud2fem/internal/units"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// maxFileSize bounds the configuration file.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// PipelineConfig is the JSON form of the reconstruction settings.
// Omitted fields fall back to the Get* defaults; omitted z bounds are taken
// from the point cloud.
type PipelineConfig struct {
	// Input
	InputUnits *string `json:"input_units,omitempty"` // m | cm | mm | ft | in

	// Levels
	ZLower       *float64  `json:"z_lower,omitempty"`
	ZUpper       *float64  `json:"z_upper,omitempty"`
	LevelRule    *string   `json:"level_rule,omitempty"` // count | step | custom
	LevelParam   *float64  `json:"level_param,omitempty"`
	CustomLevels []float64 `json:"custom_levels,omitempty"`

	// Slicing and tracing
	SliceThickness    *float64 `json:"slice_thickness,omitempty"`
	MinWallThickness  *float64 `json:"min_wall_thickness,omitempty"`
	MinSlicePoints    *int     `json:"min_slice_points,omitempty"`
	MinNeighborPoints *int     `json:"min_neighbor_points,omitempty"`
	BaseRadius        *float64 `json:"base_radius,omitempty"`
	SampleFraction    *float64 `json:"sample_fraction,omitempty"`
	GrowthFactor      *float64 `json:"growth_factor,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`

	// Polylines and polygons
	CurveSimplifyTolerance *float64 `json:"curve_simplify_tolerance,omitempty"`
	LengthPercentile       *float64 `json:"length_percentile,omitempty"`
	PolygonRepairTolerance *float64 `json:"polygon_repair_tolerance,omitempty"`
	ComposeOp              *string  `json:"compose_op,omitempty"` // symmetric_difference | union

	// Mesh
	GridCellX         *float64 `json:"grid_cell_x,omitempty"`
	GridCellY         *float64 `json:"grid_cell_y,omitempty"`
	SingleLevelHeight *float64 `json:"single_level_height,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyPipelineConfig returns a PipelineConfig with all fields set to nil.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a config with every field set to its default.
// The z bounds stay nil so they follow the cloud.
func DefaultPipelineConfig() *PipelineConfig {
	c := EmptyPipelineConfig()
	return &PipelineConfig{
		InputUnits:             ptrString(c.GetInputUnits()),
		LevelRule:              ptrString(c.GetLevelRule()),
		LevelParam:             ptrFloat64(c.GetLevelParam()),
		SliceThickness:         ptrFloat64(c.GetSliceThickness()),
		MinWallThickness:       ptrFloat64(c.GetMinWallThickness()),
		MinSlicePoints:         ptrInt(c.GetMinSlicePoints()),
		MinNeighborPoints:      ptrInt(c.GetMinNeighborPoints()),
		BaseRadius:             ptrFloat64(c.GetBaseRadius()),
		SampleFraction:         ptrFloat64(c.GetSampleFraction()),
		GrowthFactor:           ptrFloat64(c.GetGrowthFactor()),
		Seed:                   ptrInt64(c.GetSeed()),
		CurveSimplifyTolerance: ptrFloat64(c.GetCurveSimplifyTolerance()),
		LengthPercentile:       ptrFloat64(c.GetLengthPercentile()),
		PolygonRepairTolerance: ptrFloat64(c.GetPolygonRepairTolerance()),
		ComposeOp:              ptrString(c.GetComposeOp()),
		GridCellX:              ptrFloat64(c.GetGridCellX()),
		GridCellY:              ptrFloat64(c.GetGridCellY()),
		SingleLevelHeight:      ptrFloat64(c.GetSingleLevelHeight()),
	}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and its parents up to the repository
// root. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/recon/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func positive(name string, v *float64) error {
	if v != nil && (!(*v > 0) || math.IsInf(*v, 0)) {
		return fmt.Errorf("%s must be positive, got %g", name, *v)
	}
	return nil
}

// Validate checks the values that are set. Cross-field checks that need
// the point cloud happen in ToPipeline.
func (c *PipelineConfig) Validate() error {
	if c.InputUnits != nil && !units.IsValid(*c.InputUnits) {
		return fmt.Errorf("input_units must be one of %s, got %q", units.GetValidUnitsString(), *c.InputUnits)
	}
	if c.LevelRule != nil {
		if _, err := l1levels.ParseRule(*c.LevelRule); err != nil {
			return err
		}
	}
	if c.ComposeOp != nil {
		if _, err := l5polygons.ParseComposeOp(*c.ComposeOp); err != nil {
			return err
		}
	}
	if c.ZLower != nil && c.ZUpper != nil && *c.ZLower >= *c.ZUpper && c.GetLevelRule() != "custom" {
		return fmt.Errorf("z_lower must be below z_upper, got %g >= %g", *c.ZLower, *c.ZUpper)
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"slice_thickness", c.SliceThickness},
		{"min_wall_thickness", c.MinWallThickness},
		{"base_radius", c.BaseRadius},
		{"grid_cell_x", c.GridCellX},
		{"grid_cell_y", c.GridCellY},
		{"single_level_height", c.SingleLevelHeight},
		{"level_param", c.LevelParam},
	} {
		if err := positive(f.name, f.v); err != nil {
			return err
		}
	}
	if c.SampleFraction != nil && (*c.SampleFraction <= 0 || *c.SampleFraction > 1) {
		return fmt.Errorf("sample_fraction must be in (0,1], got %g", *c.SampleFraction)
	}
	if c.GrowthFactor != nil && !(*c.GrowthFactor > 1) {
		return fmt.Errorf("growth_factor must exceed 1, got %g", *c.GrowthFactor)
	}
	if c.LengthPercentile != nil && (*c.LengthPercentile < 0 || *c.LengthPercentile > 100) {
		return fmt.Errorf("length_percentile must be between 0 and 100, got %g", *c.LengthPercentile)
	}
	if c.CurveSimplifyTolerance != nil && *c.CurveSimplifyTolerance < 0 {
		return fmt.Errorf("curve_simplify_tolerance must be non-negative, got %g", *c.CurveSimplifyTolerance)
	}
	if c.PolygonRepairTolerance != nil && *c.PolygonRepairTolerance < 0 {
		return fmt.Errorf("polygon_repair_tolerance must be non-negative, got %g", *c.PolygonRepairTolerance)
	}
	if c.MinSlicePoints != nil && *c.MinSlicePoints < 1 {
		return fmt.Errorf("min_slice_points must be at least 1, got %d", *c.MinSlicePoints)
	}
	if c.MinNeighborPoints != nil && *c.MinNeighborPoints < 1 {
		return fmt.Errorf("min_neighbor_points must be at least 1, got %d", *c.MinNeighborPoints)
	}
	return nil
}

// ToPipeline resolves the config against cloud into stage options.
// Missing z bounds are taken from the cloud's vertical extent.
func (c *PipelineConfig) ToPipeline(cloud *recon.PointCloud) (pipeline.Options, error) {
	rule, err := l1levels.ParseRule(c.GetLevelRule())
	if err != nil {
		return pipeline.Options{}, err
	}
	compose, err := l5polygons.ParseComposeOp(c.GetComposeOp())
	if err != nil {
		return pipeline.Options{}, err
	}

	b := cloud.Bounds()
	lower, upper := b.Min.Z, b.Max.Z
	if c.ZLower != nil {
		lower = *c.ZLower
	}
	if c.ZUpper != nil {
		upper = *c.ZUpper
	}
	if rule != recon.RuleCustom && cloud.Count() == 0 && (c.ZLower == nil || c.ZUpper == nil) {
		return pipeline.Options{}, &recon.InvalidRangeError{Field: "z_lower/z_upper", Reason: "empty cloud and no explicit bounds"}
	}

	minWall := c.GetMinWallThickness()
	opts := pipeline.DefaultOptions(lower, upper, minWall)
	opts.Rule = rule
	opts.LevelParam = c.GetLevelParam()
	opts.CustomLevels = append([]float64(nil), c.CustomLevels...)
	opts.SliceThickness = c.GetSliceThickness()

	opts.Tracing = l3centroids.Params{
		MinSlicePoints:   c.GetMinSlicePoints(),
		MinNeighborPts:   c.GetMinNeighborPoints(),
		BaseRadius:       c.GetBaseRadius(),
		SampleFraction:   c.GetSampleFraction(),
		GrowthFactor:     c.GetGrowthFactor(),
		MinWallThickness: minWall,
		Seed:             c.GetSeed(),
	}
	opts.Polylines = l4polylines.DefaultParams(minWall)
	opts.Polylines.SimplifyTolerance = c.GetCurveSimplifyTolerance()
	opts.Polylines.Percentile = c.GetLengthPercentile()
	opts.Polygons = l5polygons.Params{
		MinWallThickness: minWall,
		RepairTolerance:  c.GetPolygonRepairTolerance(),
		Compose:          compose,
	}
	opts.CellX = c.GetGridCellX()
	opts.CellY = c.GetGridCellY()
	opts.SingleLevelHeight = c.GetSingleLevelHeight()

	if err := opts.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

// GetInputUnits returns the input_units value or the default.
func (c *PipelineConfig) GetInputUnits() string {
	if c.InputUnits == nil || *c.InputUnits == "" {
		return units.M
	}
	return *c.InputUnits
}

// GetLevelRule returns the level_rule value or the default.
func (c *PipelineConfig) GetLevelRule() string {
	if c.LevelRule == nil || *c.LevelRule == "" {
		return "count"
	}
	return *c.LevelRule
}

// GetLevelParam returns the level_param value or the default.
func (c *PipelineConfig) GetLevelParam() float64 {
	if c.LevelParam == nil {
		return 10
	}
	return *c.LevelParam
}

// GetSliceThickness returns the slice_thickness value or the default.
func (c *PipelineConfig) GetSliceThickness() float64 {
	if c.SliceThickness == nil {
		return 0.02
	}
	return *c.SliceThickness
}

// GetMinWallThickness returns the min_wall_thickness value or the default.
func (c *PipelineConfig) GetMinWallThickness() float64 {
	if c.MinWallThickness == nil {
		return 0.15
	}
	return *c.MinWallThickness
}

// GetMinSlicePoints returns the min_slice_points value or the default.
func (c *PipelineConfig) GetMinSlicePoints() int {
	if c.MinSlicePoints == nil {
		return 10
	}
	return *c.MinSlicePoints
}

// GetMinNeighborPoints returns the min_neighbor_points value or the default.
func (c *PipelineConfig) GetMinNeighborPoints() int {
	if c.MinNeighborPoints == nil {
		return 2
	}
	return *c.MinNeighborPoints
}

// GetBaseRadius returns the base_radius value or the default.
func (c *PipelineConfig) GetBaseRadius() float64 {
	if c.BaseRadius == nil {
		return 0.01
	}
	return *c.BaseRadius
}

// GetSampleFraction returns the sample_fraction value or the default.
func (c *PipelineConfig) GetSampleFraction() float64 {
	if c.SampleFraction == nil {
		return 0.1
	}
	return *c.SampleFraction
}

// GetGrowthFactor returns the growth_factor value or the default.
func (c *PipelineConfig) GetGrowthFactor() float64 {
	if c.GrowthFactor == nil {
		return 1.35
	}
	return *c.GrowthFactor
}

// GetSeed returns the seed value or the default.
func (c *PipelineConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetCurveSimplifyTolerance returns the curve_simplify_tolerance value or the default.
func (c *PipelineConfig) GetCurveSimplifyTolerance() float64 {
	if c.CurveSimplifyTolerance == nil {
		return 0.025
	}
	return *c.CurveSimplifyTolerance
}

// GetLengthPercentile returns the length_percentile value or the default.
func (c *PipelineConfig) GetLengthPercentile() float64 {
	if c.LengthPercentile == nil {
		return 1
	}
	return *c.LengthPercentile
}

// GetPolygonRepairTolerance returns the polygon_repair_tolerance value or the default.
func (c *PipelineConfig) GetPolygonRepairTolerance() float64 {
	if c.PolygonRepairTolerance == nil {
		return 0.035
	}
	return *c.PolygonRepairTolerance
}

// GetComposeOp returns the compose_op value or the default.
func (c *PipelineConfig) GetComposeOp() string {
	if c.ComposeOp == nil || *c.ComposeOp == "" {
		return "symmetric_difference"
	}
	return *c.ComposeOp
}

// GetGridCellX returns the grid_cell_x value or the default.
func (c *PipelineConfig) GetGridCellX() float64 {
	if c.GridCellX == nil {
		return 0.1
	}
	return *c.GridCellX
}

// GetGridCellY returns the grid_cell_y value or the default.
func (c *PipelineConfig) GetGridCellY() float64 {
	if c.GridCellY == nil {
		return 0.1
	}
	return *c.GridCellY
}

// GetSingleLevelHeight returns the single_level_height value or the default.
func (c *PipelineConfig) GetSingleLevelHeight() float64 {
	if c.SingleLevelHeight == nil {
		return 0.1
	}
	return *c.SingleLevelHeight
}
