package pipeline

// LevelStats counts what each stage produced at one level. Counts of
// stages that have not run are zero.
type LevelStats struct {
	Level           int
	Z               float64
	SlicePoints     int
	Radius          float64
	Status          string
	Centroids       int
	RawPolylines    int
	Polylines       int
	Polygons        int
	InvalidPolygons int
	Cells           int
}

// Stats reports per-level counts from the session's current artifacts.
func (s *Session) Stats() []LevelStats {
	if s.levels == nil {
		return nil
	}
	out := make([]LevelStats, s.levels.Len())
	for k, z := range s.levels.Z {
		out[k] = LevelStats{Level: k, Z: z}
	}
	if s.slices != nil {
		for k, sl := range s.slices.Slices {
			out[k].SlicePoints = sl.Len()
		}
	}
	for k, c := range s.chains {
		if k >= len(out) {
			break
		}
		out[k].Radius = c.Radius
		out[k].Status = c.Status.String()
		out[k].Centroids = len(c.Centroids)
	}
	for k, lp := range s.polylines {
		if k >= len(out) {
			break
		}
		out[k].RawPolylines = len(lp.Raw)
		out[k].Polylines = len(lp.Simplified)
	}
	if s.polygons != nil {
		for k, shape := range s.polygons.Levels {
			if k >= len(out) {
				break
			}
			out[k].Polygons = len(shape.Polygons)
			out[k].InvalidPolygons = shape.Invalid
		}
		if s.cells != nil {
			for i, shape := range s.polygons.Present() {
				if shape.Level < len(out) {
					out[shape.Level].Cells = len(s.cells[i])
				}
			}
		}
	}
	return out
}
