package stl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/reliefmesh/pkg/mesh"
)

// WriteASCII writes m as an ASCII STL solid. Each facet carries the
// triangle's stored normal and its vertices in stored order.
func WriteASCII(w io.Writer, name string, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "solid %s\n", name)
	for _, t := range m.Triangles {
		fmt.Fprintf(bw, "  facet normal %s\n", vec(t.Normal))
		bw.WriteString("    outer loop\n")
		for _, v := range t.Vertices {
			fmt.Fprintf(bw, "      vertex %s\n", vec(v))
		}
		bw.WriteString("    endloop\n")
		bw.WriteString("  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)

	// bufio keeps the first write error; Flush reports it.
	return bw.Flush()
}

func vec(v mgl64.Vec3) string {
	return ftoa(v[0]) + " " + ftoa(v[1]) + " " + ftoa(v[2])
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteFile writes m to path in the given format. Data goes to a temporary
// file in the same directory which is renamed over path only on success,
// so a failed write never leaves a truncated mesh behind.
func WriteFile(path string, m *mesh.Mesh, format Format) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	switch format {
	case FormatASCII:
		if err = WriteASCII(tmp, SolidName, m); err != nil {
			tmp.Close()
			return fmt.Errorf("writing ASCII STL: %w", err)
		}
		if err = tmp.Close(); err != nil {
			return fmt.Errorf("closing temp file: %w", err)
		}
	case FormatBinary:
		tmp.Close()
		if err = render.SaveSTL(tmpPath, toSDF(m)); err != nil {
			return fmt.Errorf("writing binary STL: %w", err)
		}
	default:
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}

	if err = os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// toSDF converts triangles to the sdfx representation used by its STL encoder.
func toSDF(m *mesh.Mesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, len(m.Triangles))
	for i, t := range m.Triangles {
		out[i] = &sdf.Triangle3{toV3(t.Vertices[0]), toV3(t.Vertices[1]), toV3(t.Vertices[2])}
	}
	return out
}

func toV3(v mgl64.Vec3) v3.Vec {
	return v3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
