// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloud2fem/internal/recon"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertErrorIs fails the test unless errors.Is(err, target).
func AssertErrorIs(t testing.TB, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

// AssertFloatNear checks |got-want| <= tol.
func AssertFloatNear(t testing.TB, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %.9g, want %.9g (±%g)", name, got, want, tol)
	}
}

// SquarePerimeter samples the outline of an axis-aligned square of the
// given side centred on the origin, starting at the lower-left corner and
// running counter-clockwise. Corners are sampled once.
func SquarePerimeter(side, spacing, z float64) []r3.Vec {
	h := side / 2
	n := int(math.Round(side / spacing))
	pts := make([]r3.Vec, 0, 4*n)
	for i := 0; i < n; i++ {
		pts = append(pts, r3.Vec{X: -h + float64(i)*spacing, Y: -h, Z: z})
	}
	for i := 0; i < n; i++ {
		pts = append(pts, r3.Vec{X: h, Y: -h + float64(i)*spacing, Z: z})
	}
	for i := 0; i < n; i++ {
		pts = append(pts, r3.Vec{X: h - float64(i)*spacing, Y: h, Z: z})
	}
	for i := 0; i < n; i++ {
		pts = append(pts, r3.Vec{X: -h, Y: h - float64(i)*spacing, Z: z})
	}
	return pts
}

// HollowSquareCloud builds the scan of a square room: the outer and inner
// faces of a wall, each sampled at every elevation in zs. Points are
// ordered by elevation, outer face first.
func HollowSquareCloud(outer, inner, spacing float64, zs ...float64) *recon.PointCloud {
	var pts []r3.Vec
	for _, z := range zs {
		pts = append(pts, SquarePerimeter(outer, spacing, z)...)
		pts = append(pts, SquarePerimeter(inner, spacing, z)...)
	}
	return recon.NewPointCloud(pts)
}

// WriteFile writes content to name inside a fresh temp directory and
// returns the full path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
