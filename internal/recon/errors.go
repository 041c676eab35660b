package recon

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every configuration error so callers can
// distinguish malformed input from internal failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// InvalidRangeError reports a malformed numeric range or level rule parameter.
type InvalidRangeError struct {
	Field  string
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range for %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidConfig) match.
func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidConfig }

// InvalidGridError reports a non-positive mesh cell size.
type InvalidGridError struct {
	CellX, CellY float64
}

func (e *InvalidGridError) Error() string {
	return fmt.Sprintf("invalid grid: cell sizes must be positive, got x=%g y=%g", e.CellX, e.CellY)
}

// Is lets errors.Is(err, ErrInvalidConfig) match.
func (e *InvalidGridError) Is(target error) bool { return target == ErrInvalidConfig }

// MeshConstructionError is an internal invariant violation found while
// building or validating a mesh. It indicates a bug, not bad input.
type MeshConstructionError struct {
	ElementID int
	NodeID    int
	Reason    string
}

func (e *MeshConstructionError) Error() string {
	switch {
	case e.ElementID > 0 && e.NodeID > 0:
		return fmt.Sprintf("mesh construction: element %d node %d: %s", e.ElementID, e.NodeID, e.Reason)
	case e.ElementID > 0:
		return fmt.Sprintf("mesh construction: element %d: %s", e.ElementID, e.Reason)
	case e.NodeID > 0:
		return fmt.Sprintf("mesh construction: node %d: %s", e.NodeID, e.Reason)
	default:
		return "mesh construction: " + e.Reason
	}
}
