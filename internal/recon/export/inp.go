package export

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/cloud2fem/internal/fsutil"
	"github.com/banshee-data/cloud2fem/internal/recon"
	"github.com/banshee-data/cloud2fem/internal/recon/l6mesh"
	"github.com/banshee-data/cloud2fem/internal/security"
)

const inpHeader = `*Heading
** Generated by: Cloud2FEM
**
** PARTS
**
*Part, name=PART-1
`

const inpFooter = `*End Part
**
**
** ASSEMBLY
**
*Assembly, name=Assembly
**
*Instance, name=WHOLE_MODEL, part=PART-1
*End Instance
**
*End Assembly
`

// WriteINP writes m as a single-part C3D8 mesh with node coordinates at
// eight decimal places.
func WriteINP(w io.Writer, m *l6mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(inpHeader)
	bw.WriteString("*Node\n")
	if m != nil {
		for _, n := range m.Nodes {
			fmt.Fprintf(bw, "%d, %.8f, %.8f, %.8f\n", n.ID, n.X, n.Y, n.Z)
		}
	}
	bw.WriteString("*Element, type=C3D8\n")
	if m != nil {
		for _, e := range m.Elements {
			n := e.Nodes
			fmt.Fprintf(bw, "%d, %d, %d, %d, %d, %d, %d, %d, %d\n",
				e.ID, n[0], n[1], n[2], n[3], n[4], n[5], n[6], n[7])
		}
	}
	bw.WriteString(inpFooter)
	return bw.Flush()
}

// ReadINP parses the node and element sections written by WriteINP.
// Keyword lines other than *Node and *Element end the current section;
// comment lines starting with ** are ignored.
func ReadINP(r io.Reader) (*l6mesh.Mesh, error) {
	const (
		none = iota
		nodes
		elements
	)
	m := &l6mesh.Mesh{}
	section := none
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "**") {
			continue
		}
		if strings.HasPrefix(line, "*") {
			kw := strings.ToLower(line)
			switch {
			case kw == "*node":
				section = nodes
			case strings.HasPrefix(kw, "*element"):
				if !strings.Contains(strings.ReplaceAll(kw, " ", ""), "type=c3d8") {
					return nil, fmt.Errorf("inp line %d: unsupported element section %q", lineNo, line)
				}
				section = elements
			default:
				section = none
			}
			continue
		}

		fields := strings.Split(line, ",")
		switch section {
		case nodes:
			if len(fields) != 4 {
				return nil, fmt.Errorf("inp line %d: node needs 4 fields, got %d", lineNo, len(fields))
			}
			id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
			if err != nil {
				return nil, fmt.Errorf("inp line %d: node id: %w", lineNo, err)
			}
			var xyz [3]float64
			for i := range xyz {
				if xyz[i], err = strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64); err != nil {
					return nil, fmt.Errorf("inp line %d: coordinate: %w", lineNo, err)
				}
			}
			m.Nodes = append(m.Nodes, l6mesh.Node{ID: id, X: xyz[0], Y: xyz[1], Z: xyz[2]})
		case elements:
			if len(fields) != 9 {
				return nil, fmt.Errorf("inp line %d: C3D8 element needs 9 fields, got %d", lineNo, len(fields))
			}
			var ids [9]int
			for i, f := range fields {
				v, err := strconv.Atoi(strings.TrimSpace(f))
				if err != nil {
					return nil, fmt.Errorf("inp line %d: element field %d: %w", lineNo, i, err)
				}
				ids[i] = v
			}
			e := l6mesh.Element{ID: ids[0]}
			copy(e.Nodes[:], ids[1:])
			m.Elements = append(m.Elements, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading inp: %w", err)
	}
	return m, nil
}

// SaveINP validates path and writes m to it through fsys.
func SaveINP(fsys fsutil.FileSystem, path string, m *l6mesh.Mesh) error {
	if err := security.CheckExtension(path, ".inp"); err != nil {
		return err
	}
	if err := security.ValidateOutputPath(path); err != nil {
		return fmt.Errorf("inp export: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("inp export: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("inp export: %w", err)
	}
	if err := WriteINP(f, m); err != nil {
		f.Close()
		return fmt.Errorf("inp export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("inp export: %w", err)
	}
	recon.Opsf("wrote %d nodes and %d elements to %s", len(m.Nodes), len(m.Elements), path)
	return nil
}
