// Package pointcloud reads and writes the ASCII point formats accepted by the
// reconstruction pipeline.
//
// Supported inputs, selected by extension:
//
//	.xyz .txt .asc .csv   one point per line, first three numeric columns
//	.pcd                  PCD with DATA ascii
//	.ply                  PLY with format ascii 1.0
//
// Binary PCD and PLY are rejected with ErrUnsupportedFormat.
package pointcloud

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cloud2fem/internal/fsutil"
	"github.com/banshee-data/cloud2fem/internal/recon"
)

// ErrUnsupportedFormat is returned for unknown extensions and binary encodings.
var ErrUnsupportedFormat = errors.New("unsupported point cloud format")

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Load reads a point cloud from the local filesystem.
func Load(path string) (*recon.PointCloud, error) {
	return LoadFS(fsutil.OSFileSystem{}, path)
}

// LoadFS reads a point cloud through fsys.
func LoadFS(fsys fsutil.FileSystem, path string) (*recon.PointCloud, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var read func(io.Reader) ([]r3.Vec, error)
	switch ext {
	case ".xyz", ".txt", ".asc", ".csv":
		read = readXYZ
	case ".pcd":
		read = readPCD
	case ".ply":
		read = readPLY
	default:
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open point cloud: %w", err)
	}
	defer f.Close()

	pts, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	recon.Opsf("loaded %d points from %s", len(pts), path)
	return recon.NewPointCloud(pts), nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return sc
}

// fields splits on whitespace, commas and semicolons.
func fields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ';' || r == '\r'
	})
}

func parseXYZ(cols []string, ix, iy, iz int) (r3.Vec, error) {
	var v r3.Vec
	var err error
	if v.X, err = strconv.ParseFloat(cols[ix], 64); err != nil {
		return v, err
	}
	if v.Y, err = strconv.ParseFloat(cols[iy], 64); err != nil {
		return v, err
	}
	if v.Z, err = strconv.ParseFloat(cols[iz], 64); err != nil {
		return v, err
	}
	return v, nil
}

func readXYZ(r io.Reader) ([]r3.Vec, error) {
	sc := newScanner(r)
	var pts []r3.Vec
	line, rows := 0, 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}
		rows++
		cols := fields(text)
		if len(cols) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 columns, got %d", line, len(cols))
		}
		p, err := parseXYZ(cols, 0, 1, 2)
		if err != nil {
			// A non-numeric header row is tolerated before any data.
			if rows == 1 {
				recon.Diagf("skipping header row %d: %q", line, text)
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pts = append(pts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return pts, nil
}

func columnIndex(names []string, want string) int {
	for i, n := range names {
		if strings.EqualFold(n, want) {
			return i
		}
	}
	return -1
}

func readPCD(r io.Reader) ([]r3.Vec, error) {
	sc := newScanner(r)
	var names []string
	expected := -1
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Fields(text)
		switch strings.ToUpper(cols[0]) {
		case "FIELDS":
			names = cols[1:]
		case "POINTS":
			if len(cols) > 1 {
				n, err := strconv.Atoi(cols[1])
				if err != nil {
					return nil, fmt.Errorf("line %d: bad POINTS: %w", line, err)
				}
				expected = n
			}
		case "DATA":
			if len(cols) < 2 || !strings.EqualFold(cols[1], "ascii") {
				return nil, fmt.Errorf("%w: pcd DATA %s", ErrUnsupportedFormat, strings.Join(cols[1:], " "))
			}
			pts, err := readColumns(sc, names, &line)
			if err != nil {
				return nil, err
			}
			if expected >= 0 && len(pts) != expected {
				recon.Opsf("pcd header declares %d points, read %d", expected, len(pts))
			}
			return pts, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("pcd: missing DATA line")
}

func readPLY(r io.Reader) ([]r3.Vec, error) {
	sc := newScanner(r)
	line := 0
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "ply" {
		return nil, errors.New("ply: missing magic")
	}
	line++

	var (
		names    []string
		inVertex bool
		vertices = -1
		skipRows int
		beforeV  = true
	)
	for sc.Scan() {
		line++
		cols := strings.Fields(sc.Text())
		if len(cols) == 0 {
			continue
		}
		switch cols[0] {
		case "format":
			if len(cols) < 2 || cols[1] != "ascii" {
				return nil, fmt.Errorf("%w: ply format %s", ErrUnsupportedFormat, strings.Join(cols[1:], " "))
			}
		case "comment", "obj_info":
		case "element":
			if len(cols) < 3 {
				return nil, fmt.Errorf("line %d: malformed element", line)
			}
			n, err := strconv.Atoi(cols[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad element count: %w", line, err)
			}
			inVertex = cols[1] == "vertex"
			if inVertex {
				vertices = n
				beforeV = false
			} else if beforeV {
				skipRows += n
			}
		case "property":
			if inVertex && len(cols) >= 3 {
				names = append(names, cols[len(cols)-1])
			}
		case "end_header":
			if vertices < 0 {
				return nil, errors.New("ply: no vertex element")
			}
			for i := 0; i < skipRows && sc.Scan(); i++ {
				line++
			}
			pts, err := readColumnsN(sc, names, &line, vertices)
			if err != nil {
				return nil, err
			}
			return pts, nil
		default:
			return nil, fmt.Errorf("line %d: unexpected ply header keyword %q", line, cols[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("ply: missing end_header")
}

func xyzColumns(names []string) (ix, iy, iz int, err error) {
	ix, iy, iz = columnIndex(names, "x"), columnIndex(names, "y"), columnIndex(names, "z")
	if ix < 0 || iy < 0 || iz < 0 {
		return 0, 0, 0, fmt.Errorf("fields %v lack x, y or z", names)
	}
	return ix, iy, iz, nil
}

func readColumns(sc *bufio.Scanner, names []string, line *int) ([]r3.Vec, error) {
	return readColumnsN(sc, names, line, -1)
}

// readColumnsN reads up to limit rows (all rows when limit < 0).
func readColumnsN(sc *bufio.Scanner, names []string, line *int, limit int) ([]r3.Vec, error) {
	ix, iy, iz, err := xyzColumns(names)
	if err != nil {
		return nil, err
	}
	need := max(ix, iy, iz) + 1
	var pts []r3.Vec
	if limit > 0 {
		pts = make([]r3.Vec, 0, limit)
	}
	for (limit < 0 || len(pts) < limit) && sc.Scan() {
		*line++
		cols := strings.Fields(sc.Text())
		if len(cols) == 0 {
			continue
		}
		if len(cols) < need {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", *line, need, len(cols))
		}
		p, err := parseXYZ(cols, ix, iy, iz)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", *line, err)
		}
		pts = append(pts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(pts) < limit {
		return nil, fmt.Errorf("expected %d vertices, read %d", limit, len(pts))
	}
	return pts, nil
}
