package testutil

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"testing"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	fakeT := &testing.T{}
	AssertNoError(fakeT, nil)
	if fakeT.Failed() {
		t.Error("expected no failure for nil error")
	}
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	fakeT := &testing.T{}
	AssertError(fakeT, errors.New("test error"))
	if fakeT.Failed() {
		t.Error("expected no failure when error is present")
	}
}

func TestAssertErrorIs(t *testing.T) {
	t.Parallel()

	fakeT := &testing.T{}
	AssertErrorIs(fakeT, &fs.PathError{Op: "open", Err: fs.ErrNotExist}, fs.ErrNotExist)
	if fakeT.Failed() {
		t.Error("expected wrapped error to match")
	}
}

func TestAssertFloatNear(t *testing.T) {
	t.Parallel()

	fakeT := &testing.T{}
	AssertFloatNear(fakeT, "x", 1.0000001, 1, 1e-6)
	if fakeT.Failed() {
		t.Error("expected values within tolerance to pass")
	}
}

func TestSquarePerimeter(t *testing.T) {
	t.Parallel()

	pts := SquarePerimeter(4, 0.5, 1.5)
	if len(pts) != 32 {
		t.Fatalf("len = %d, want 32", len(pts))
	}
	if pts[0].X != -2 || pts[0].Y != -2 {
		t.Errorf("first point = %+v, want lower-left corner", pts[0])
	}
	for i, p := range pts {
		if p.Z != 1.5 {
			t.Errorf("point %d z = %g, want 1.5", i, p.Z)
		}
		if m := math.Max(math.Abs(p.X), math.Abs(p.Y)); math.Abs(m-2) > 1e-12 {
			t.Errorf("point %d %+v is off the outline", i, p)
		}
	}
}

func TestHollowSquareCloud(t *testing.T) {
	t.Parallel()

	pc := HollowSquareCloud(4, 3, 0.5, 0, 1)
	// 32 outer + 24 inner per elevation.
	if pc.Count() != 112 {
		t.Fatalf("Count = %d, want 112", pc.Count())
	}
	b := pc.Bounds()
	if b.Min.X != -2 || b.Max.Y != 2 || b.Min.Z != 0 || b.Max.Z != 1 {
		t.Errorf("Bounds = %+v", b)
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := WriteFile(t, "a.txt", "hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
}
