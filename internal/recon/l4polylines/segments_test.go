package l4polylines

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestToLineString(t *testing.T) {
	ls := ToLineString([]orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, true)
	if n := ls.Coordinates().Length(); n != 4 {
		t.Errorf("closed ring has %d coordinates, want 4", n)
	}
	if !ls.IsRing() {
		t.Error("closed triangle is not a ring")
	}
	open := ToLineString([]orb.Point{{0, 0}, {1, 0}, {1, 1}}, false)
	if open.IsClosed() {
		t.Error("open path reported closed")
	}
}

func TestSelfIntersects(t *testing.T) {
	tests := []struct {
		name   string
		pts    []orb.Point
		closed bool
		want   bool
	}{
		{"open zigzag", []orb.Point{{0, 0}, {1, 1}, {2, 0}, {3, 1}}, false, false},
		{"open crossing", []orb.Point{{0, 0}, {2, 2}, {2, 0}, {0, 2}}, false, true},
		{"square ring", []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, true, false},
		{"square ring explicit close", []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}, true, false},
		{"bowtie", []orb.Point{{0, 0}, {1, 1}, {1, 0}, {0, 1}}, true, true},
		{"touching vertex", []orb.Point{{0, 0}, {2, 0}, {2, 2}, {1, 0}, {0, 2}}, true, true},
		{"fold back", []orb.Point{{0, 0}, {2, 0}, {1, 0}}, false, true},
		{"two point ring", []orb.Point{{0, 0}, {1, 0}}, true, true},
		{"single segment", []orb.Point{{0, 0}, {1, 0}}, false, false},
		{"collinear continuation", []orb.Point{{0, 0}, {1, 0}, {2, 0}}, false, false},
		{"repeated vertex", []orb.Point{{0, 0}, {1, 0}, {1, 0}, {2, 1}}, false, false},
		{"closed fold back", []orb.Point{{0, 0}, {2, 0}, {1, 0}, {1, 1}}, true, true},
		{"empty", nil, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelfIntersects(tt.pts, tt.closed); got != tt.want {
				t.Errorf("SelfIntersects = %v, want %v", got, tt.want)
			}
		})
	}
}
