package pointcloud

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloud2fem/internal/recon"
)

// Scale returns a copy of cloud with every coordinate multiplied by factor.
func Scale(cloud *recon.PointCloud, factor float64) *recon.PointCloud {
	pts := make([]r3.Vec, len(cloud.Points))
	for i, p := range cloud.Points {
		pts[i] = r3.Scale(factor, p)
	}
	recon.Diagf("scaled %d points by %g", len(pts), factor)
	return recon.NewPointCloud(pts)
}
