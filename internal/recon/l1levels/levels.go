package l1levels

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/cloud2fem/internal/recon"
)

// ParseRule maps a configuration name to a LevelRule.
func ParseRule(name string) (recon.LevelRule, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "count", "fixed-count", "number":
		return recon.RuleCount, nil
	case "step", "fixed-step":
		return recon.RuleStep, nil
	case "custom":
		return recon.RuleCustom, nil
	default:
		return 0, &recon.InvalidRangeError{Field: "level_rule", Reason: fmt.Sprintf("unknown rule %q", name)}
	}
}

// Generate produces the level set for the given rule.
//
// RuleCount spaces int(param) levels between lower and upper inclusive.
// RuleStep emits lower + i*param for every value strictly below upper.
// RuleCustom returns a copy of custom after checking it is strictly increasing.
func Generate(rule recon.LevelRule, lower, upper, param float64, custom []float64) (recon.LevelSet, error) {
	switch rule {
	case recon.RuleCount:
		if err := checkBounds(lower, upper); err != nil {
			return recon.LevelSet{}, err
		}
		if math.IsNaN(param) || param < 1 || param != math.Trunc(param) {
			return recon.LevelSet{}, &recon.InvalidRangeError{Field: "level_param", Reason: fmt.Sprintf("count must be a positive integer, got %g", param)}
		}
		return recon.LevelSet{Z: linspace(lower, upper, int(param)), Rule: rule}, nil

	case recon.RuleStep:
		if err := checkBounds(lower, upper); err != nil {
			return recon.LevelSet{}, err
		}
		if math.IsNaN(param) || math.IsInf(param, 0) || param <= 0 {
			return recon.LevelSet{}, &recon.InvalidRangeError{Field: "level_param", Reason: fmt.Sprintf("step must be positive, got %g", param)}
		}
		return recon.LevelSet{Z: arange(lower, upper, param), Rule: rule}, nil

	case recon.RuleCustom:
		if len(custom) == 0 {
			return recon.LevelSet{}, &recon.InvalidRangeError{Field: "custom_levels", Reason: "no elevations given"}
		}
		ls := recon.LevelSet{Z: append([]float64(nil), custom...), Rule: rule}
		if err := ls.Validate(); err != nil {
			return recon.LevelSet{}, err
		}
		return ls, nil

	default:
		return recon.LevelSet{}, &recon.InvalidRangeError{Field: "level_rule", Reason: fmt.Sprintf("unsupported rule %d", int(rule))}
	}
}

func checkBounds(lower, upper float64) error {
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
		return &recon.InvalidRangeError{Field: "z bounds", Reason: "bounds must be finite"}
	}
	if lower >= upper {
		return &recon.InvalidRangeError{Field: "z bounds", Reason: fmt.Sprintf("lower %g must be below upper %g", lower, upper)}
	}
	return nil
}

// linspace matches the usual inclusive definition; the last value is upper exactly.
func linspace(lower, upper float64, n int) []float64 {
	if n == 1 {
		return []float64{lower}
	}
	out := make([]float64, n)
	step := (upper - lower) / float64(n-1)
	for i := range out {
		out[i] = lower + float64(i)*step
	}
	out[n-1] = upper
	return out
}

// arange computes every value from the index rather than accumulating,
// so long sequences do not drift.
func arange(lower, upper, step float64) []float64 {
	n := int(math.Ceil((upper - lower) / step))
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		z := lower + float64(i)*step
		if z >= upper {
			break
		}
		out = append(out, z)
	}
	return out
}
