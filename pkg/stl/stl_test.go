package stl

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/reliefmesh/pkg/heightmap"
	"github.com/Faultbox/reliefmesh/pkg/mesh"
)

// createTestMesh builds the 12-triangle solid for a 2x2 grid.
func createTestMesh(t *testing.T) *mesh.Mesh {
	t.Helper()
	g, err := heightmap.FromRows([][]uint8{{0, 128}, {128, 255}})
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}
	m, err := mesh.Build(g, mesh.Params{ModelWidth: 10, ModelThickness: 4, BaseThickness: 1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return m
}

func TestWriteASCII_Layout(t *testing.T) {
	m := createTestMesh(t)

	var buf bytes.Buffer
	if err := WriteASCII(&buf, SolidName, m); err != nil {
		t.Fatalf("WriteASCII failed: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if lines[0] != "solid relief_model" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[len(lines)-1] != "endsolid relief_model" {
		t.Errorf("footer = %q", lines[len(lines)-1])
	}

	const facetLines = 7
	if got, want := len(lines), 2+facetLines*m.TriangleCount(); got != want {
		t.Fatalf("expected %d lines, got %d", want, got)
	}

	first := lines[1:8]
	wantPrefixes := []string{
		"  facet normal ",
		"    outer loop",
		"      vertex ",
		"      vertex ",
		"      vertex ",
		"    endloop",
		"  endfacet",
	}
	for i, p := range wantPrefixes {
		if !strings.HasPrefix(first[i], p) {
			t.Errorf("line %d = %q, want prefix %q", i+1, first[i], p)
		}
	}

	// First bottom triangle faces down.
	if first[0] != "  facet normal 0 0 -1" {
		t.Errorf("first normal line = %q", first[0])
	}
	if first[2] != "      vertex 0 5 -1" {
		t.Errorf("first vertex line = %q", first[2])
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteASCII_PropagatesError(t *testing.T) {
	if err := WriteASCII(failingWriter{}, SolidName, createTestMesh(t)); err == nil {
		t.Error("expected write error")
	}
}

func TestWriteFile_ASCIIRoundTrip(t *testing.T) {
	m := createTestMesh(t)
	path := filepath.Join(t.TempDir(), "model.stl")

	if err := WriteFile(path, m, FormatASCII); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if back.TriangleCount() != m.TriangleCount() {
		t.Fatalf("expected %d triangles, got %d", m.TriangleCount(), back.TriangleCount())
	}
	for i := range m.Triangles {
		if back.Triangles[i] != m.Triangles[i] {
			t.Fatalf("triangle %d changed: %+v vs %+v", i, back.Triangles[i], m.Triangles[i])
		}
	}
	if err := back.CheckClosed(); err != nil {
		t.Errorf("reloaded mesh not closed: %v", err)
	}
}

func TestWriteFile_Binary(t *testing.T) {
	m := createTestMesh(t)
	path := filepath.Join(t.TempDir(), "model.stl")

	if err := WriteFile(path, m, FormatBinary); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if want := int64(binaryHeaderSize + 4 + binaryRecordSize*m.TriangleCount()); info.Size() != want {
		t.Errorf("expected %d bytes, got %d", want, info.Size())
	}

	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if back.TriangleCount() != m.TriangleCount() {
		t.Fatalf("expected %d triangles, got %d", m.TriangleCount(), back.TriangleCount())
	}
	for i := range m.Triangles {
		for j := range 3 {
			a, b := m.Triangles[i].Vertices[j], back.Triangles[i].Vertices[j]
			for c := range 3 {
				if math.Abs(a[c]-b[c]) > 1e-5 {
					t.Fatalf("triangle %d vertex %d: %v vs %v", i, j, a, b)
				}
			}
		}
	}
}

func TestWriteFile_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing", "model.stl")

	if err := WriteFile(path, createTestMesh(t), FormatASCII); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file at %s", path)
	}
}

func TestWriteFile_UnsupportedFormatCleansUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.stl")

	err := WriteFile(path, createTestMesh(t), Format(9))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatASCII, false},
		{"ascii", FormatASCII, false},
		{"BINARY", FormatBinary, false},
		{"obj", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "hello world"},
		{"missing endsolid", "solid x\n facet normal 0 0 1\n outer loop\n vertex 0 0 0\n vertex 1 0 0\n vertex 0 1 0\n endloop\n endfacet\n"},
		{"bad number", "solid x\n facet normal 0 zero 1\n"},
		{"truncated facet", "solid x\n facet normal 0 0 1\n outer loop\n vertex 0 0 0\n endsolid x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); !errors.Is(err, ErrInvalidSTL) {
				t.Errorf("expected ErrInvalidSTL, got %v", err)
			}
		})
	}
}
