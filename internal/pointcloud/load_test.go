package pointcloud

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloud2fem/internal/fsutil"
	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/testutil"
)

var twoPoints = []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: -0.5, Y: 0.25, Z: 10}}

func load(t *testing.T, name, content string) (*recon.PointCloud, error) {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	fsys.Put(name, []byte(content))
	return LoadFS(fsys, name)
}

func TestLoadXYZ(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"spaces", "scan.xyz", "1 2 3\n-0.5 0.25 10\n"},
		{"extra columns", "scan.txt", "1 2 3 255 0 0\n-0.5 0.25 10 0 255 0\n"},
		{"comments and blanks", "scan.asc", "# CloudCompare\n// exported\n\n1 2 3\n\n-0.5 0.25 10\n"},
		{"csv with header", "scan.csv", "x,y,z\n1,2,3\n-0.5,0.25,10\n"},
		{"semicolons and CRLF", "scan.csv", "1;2;3\r\n-0.5;0.25;10\r\n"},
		{"tabs", "SCAN.XYZ", "1\t2\t3\n-0.5\t0.25\t10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, err := load(t, tt.file, tt.content)
			require.NoError(t, err)
			if diff := cmp.Diff(twoPoints, pc.Points); diff != "" {
				t.Errorf("points mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadXYZErrors(t *testing.T) {
	_, err := load(t, "scan.xyz", "1 2\n")
	assert.ErrorContains(t, err, "at least 3 columns")

	// Only the first data row may be a header.
	_, err = load(t, "scan.xyz", "1 2 3\nx y z\n")
	assert.ErrorContains(t, err, "line 2")
}

func TestLoadEmptyFile(t *testing.T) {
	pc, err := load(t, "empty.xyz", "# nothing\n")
	require.NoError(t, err)
	assert.Zero(t, pc.Count())
}

func TestLoadPCD(t *testing.T) {
	const pcd = `# .PCD v0.7 - Point Cloud Data file format
VERSION 0.7
FIELDS intensity x y z
SIZE 4 4 4 4
TYPE F F F F
COUNT 1 1 1 1
WIDTH 2
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 2
DATA ascii
7 1 2 3
9 -0.5 0.25 10
`
	pc, err := load(t, "scan.pcd", pcd)
	require.NoError(t, err)
	if diff := cmp.Diff(twoPoints, pc.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPCDErrors(t *testing.T) {
	_, err := load(t, "scan.pcd", "FIELDS x y z\nPOINTS 1\nDATA binary\n")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = load(t, "scan.pcd", "FIELDS x y z\nPOINTS 1\n")
	assert.ErrorContains(t, err, "missing DATA")

	_, err = load(t, "scan.pcd", "FIELDS x y rgb\nDATA ascii\n1 2 3\n")
	assert.ErrorContains(t, err, "lack x, y or z")

	_, err = load(t, "scan.pcd", "FIELDS x y z\nPOINTS many\nDATA ascii\n")
	assert.ErrorContains(t, err, "bad POINTS")
}

func TestLoadPLY(t *testing.T) {
	const ply = `ply
format ascii 1.0
comment made by hand
element camera 1
property float px
element vertex 2
property float x
property float y
property float z
property uchar red
element face 1
property list uchar int vertex_indices
end_header
0.5
1 2 3 255
-0.5 0.25 10 0
3 0 1 1
`
	pc, err := load(t, "scan.ply", ply)
	require.NoError(t, err)
	if diff := cmp.Diff(twoPoints, pc.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPLYErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no magic", "format ascii 1.0\n", "missing magic"},
		{"binary", "ply\nformat binary_little_endian 1.0\n", "unsupported"},
		{"no vertex", "ply\nformat ascii 1.0\nend_header\n", "no vertex element"},
		{"short body", "ply\nformat ascii 1.0\nelement vertex 3\nproperty float x\nproperty float y\nproperty float z\nend_header\n1 2 3\n", "expected 3 vertices, read 1"},
		{"no end", "ply\nformat ascii 1.0\nelement vertex 1\n", "missing end_header"},
		{"bad keyword", "ply\nformat ascii 1.0\nvertices 3\n", "unexpected ply header keyword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, "scan.ply", tt.content)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := load(t, "scan.las", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.xyz"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFromDisk(t *testing.T) {
	path := testutil.WriteFile(t, "scan.xyz", "1 2 3\n-0.5 0.25 10\n")
	pc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, pc.Count())
}

func TestWriteASC(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteASC(&buf, recon.NewPointCloud(twoPoints)))
	want := "# Exported points\n# Format: X Y Z\n1.000000 2.000000 3.000000\n-0.500000 0.250000 10.000000\n"
	assert.Equal(t, want, buf.String())
}

func TestSaveASCRoundTrip(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	path := filepath.Join(os.TempDir(), "cloud2fem-test", "sliced.asc")
	require.NoError(t, SaveASC(fsys, path, recon.NewPointCloud(twoPoints)))

	pc, err := LoadFS(fsys, path)
	require.NoError(t, err)
	if diff := cmp.Diff(twoPoints, pc.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveASCRejects(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	dir := os.TempDir()

	err := SaveASC(fsys, filepath.Join(dir, "empty.asc"), recon.NewPointCloud(nil))
	assert.ErrorContains(t, err, "no points")

	err = SaveASC(fsys, filepath.Join(dir, "points.ply"), recon.NewPointCloud(twoPoints))
	assert.ErrorContains(t, err, "extension")

	err = SaveASC(fsys, "/../../etc/points.asc", recon.NewPointCloud(twoPoints))
	if err == nil || !strings.Contains(err.Error(), "invalid export path") {
		t.Errorf("error = %v, want invalid export path", err)
	}
}

func TestScaleMillimetres(t *testing.T) {
	pc, err := load(t, "scan.xyz", "1000 2000 3000\n-500 250 10000\n")
	require.NoError(t, err)
	scaled := Scale(pc, 0.001)
	if diff := cmp.Diff(twoPoints, scaled.Points, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1000.0, pc.Points[0].X, "input is not modified")
}
