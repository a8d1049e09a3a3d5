package verify

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/reliefmesh/pkg/heightmap"
	"github.com/Faultbox/reliefmesh/pkg/mesh"
)

func buildTestMesh(t *testing.T, rows [][]uint8) *mesh.Mesh {
	t.Helper()
	g, err := heightmap.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}
	m, err := mesh.Build(g, mesh.Params{ModelWidth: 10, ModelThickness: 4, BaseThickness: 1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return m
}

func TestInspect_ReliefIsSound(t *testing.T) {
	tests := []struct {
		name string
		rows [][]uint8
	}{
		{"2x2", [][]uint8{{0, 128}, {128, 255}}},
		{"flat", [][]uint8{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}}},
		{"ridge", [][]uint8{{10, 200, 10, 5}, {20, 255, 30, 5}, {0, 180, 0, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := buildTestMesh(t, tt.rows)
			r, err := Inspect(m)
			if err != nil {
				t.Fatalf("Inspect failed: %v", err)
			}
			if r.Triangles != m.TriangleCount() {
				t.Errorf("expected %d triangles, got %d", m.TriangleCount(), r.Triangles)
			}
			if !r.Closed {
				t.Errorf("expected closed mesh: %v", r.ClosedErr)
			}
			if !r.Interior {
				t.Errorf("interior probe %v classified outside", r.InteriorProbe)
			}
			if !r.Exterior {
				t.Errorf("exterior probe %v classified inside", r.ExteriorProbe)
			}
			if !r.Sound() {
				t.Error("expected sound report")
			}
			if r.InteriorProbe.Z() != -0.5 {
				t.Errorf("expected slab probe at z=-0.5, got %v", r.InteriorProbe.Z())
			}
		})
	}
}

func TestInspect_OpenMesh(t *testing.T) {
	m := buildTestMesh(t, [][]uint8{{0, 128}, {128, 255}})
	// Drop the first bottom triangle.
	m.Triangles = m.Triangles[1:]

	r, err := Inspect(m)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if r.Closed {
		t.Error("expected open mesh")
	}
	if !errors.Is(r.ClosedErr, mesh.ErrNotClosed) {
		t.Errorf("expected ErrNotClosed, got %v", r.ClosedErr)
	}
	if r.Sound() {
		t.Error("open mesh reported sound")
	}
}

func TestInspect_Empty(t *testing.T) {
	if _, err := Inspect(&mesh.Mesh{}); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("expected ErrEmptyMesh, got %v", err)
	}
}

func TestSolid_Contains(t *testing.T) {
	s, err := NewSolid(buildTestMesh(t, [][]uint8{{0, 0}, {0, 0}}))
	if err != nil {
		t.Fatal(err)
	}

	// Flat 2x2 relief: a 5 x 5 x 1 slab from z=-1 to z=0.
	tests := []struct {
		p    mgl64.Vec3
		want bool
	}{
		{mgl64.Vec3{1.3, 2.1, -0.4}, true},
		{mgl64.Vec3{4.2, 0.7, -0.9}, true},
		{mgl64.Vec3{1.3, 2.1, 0.6}, false},
		{mgl64.Vec3{6.1, 2.1, -0.4}, false},
		{mgl64.Vec3{1.3, 2.1, -1.7}, false},
	}
	for _, tt := range tests {
		if got := s.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
