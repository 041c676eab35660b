package pointcloud

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/cloud2fem/internal/fsutil"
	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/security"
)

// WriteASC writes the cloud as a CloudCompare-compatible .asc file.
func WriteASC(w io.Writer, cloud *recon.PointCloud) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Exported points\n")
	fmt.Fprintf(bw, "# Format: X Y Z\n")
	for _, p := range cloud.Points {
		fmt.Fprintf(bw, "%.6f %.6f %.6f\n", p.X, p.Y, p.Z)
	}
	return bw.Flush()
}

// SaveASC validates path and writes the cloud through fsys.
func SaveASC(fsys fsutil.FileSystem, path string, cloud *recon.PointCloud) error {
	if cloud.Count() == 0 {
		return errors.New("no points to export")
	}
	if err := security.CheckExtension(path, ".asc", ".xyz"); err != nil {
		return err
	}
	if err := security.ValidateOutputPath(path); err != nil {
		return fmt.Errorf("invalid export path: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if err := WriteASC(f, cloud); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	recon.Opsf("exported %d points to %s", cloud.Count(), path)
	return nil
}
