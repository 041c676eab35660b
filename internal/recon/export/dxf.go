package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l5polygons"
	"github.com/banshee-data/cloud2fem/internal/security"
)

// outlineColor is the accent used for every level outline.
const outlineColor = color.Cyan

// LayerName returns the DXF layer holding a level's outline.
func LayerName(level int) string {
	return fmt.Sprintf("LEVEL_%03d", level)
}

// SaveDXF draws every ring of every present level's outline as a closed
// 3D polyline at the level elevation, one layer per level.
func SaveDXF(path string, shapes []l5polygons.LevelShape) error {
	if err := security.CheckExtension(path, ".dxf"); err != nil {
		return err
	}
	if err := security.ValidateOutputPath(path); err != nil {
		return fmt.Errorf("dxf export: %w", err)
	}

	d := dxf.NewDrawing()
	d.Header().LtScale = 1.0
	loops := 0
	for _, s := range shapes {
		if !s.Present {
			continue
		}
		name := LayerName(s.Level)
		if _, err := d.AddLayer(name, outlineColor, dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("dxf export: layer %s: %w", name, err)
		}
		if err := d.ChangeLayer(name); err != nil {
			return fmt.Errorf("dxf export: layer %s: %w", name, err)
		}
		for _, poly := range s.Shape {
			for _, ring := range poly {
				if err := drawLoop(d, ring, s.Z); err != nil {
					return fmt.Errorf("dxf export: level %d: %w", s.Level, err)
				}
				loops++
			}
		}
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("dxf export: %w", err)
	}
	recon.Opsf("wrote %d outline polylines to %s", loops, path)
	return nil
}

// drawLoop adds r as one closed POLYLINE on the current layer. The
// repeated closing vertex is dropped; the closed flag restores the edge.
func drawLoop(d *drawing.Drawing, r orb.Ring, z float64) error {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	if n < 3 {
		return fmt.Errorf("ring with %d vertices", n)
	}
	verts := make([][]float64, n)
	for i := 0; i < n; i++ {
		verts[i] = []float64{r[i][0], r[i][1], z}
	}
	_, err := d.Polyline(true, verts...)
	return err
}
