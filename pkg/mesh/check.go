package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrNotClosed is returned when a mesh has boundary or non-manifold edges.
var ErrNotClosed = errors.New("mesh is not closed")

type edge struct {
	from, to mgl64.Vec3
}

// CheckClosed verifies that every directed edge appears exactly once and
// that its reverse appears exactly once, i.e. the surface is watertight
// with consistent winding. Vertices are matched by exact coordinates.
func (m *Mesh) CheckClosed() error {
	if len(m.Triangles) == 0 {
		return fmt.Errorf("%w: no triangles", ErrNotClosed)
	}

	counts := make(map[edge]int, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		for i := range 3 {
			counts[edge{t.Vertices[i], t.Vertices[(i+1)%3]}]++
		}
	}

	var unmatched, duplicated int
	for e, n := range counts {
		if n > 1 {
			duplicated++
		}
		if counts[edge{e.to, e.from}] != 1 {
			unmatched++
		}
	}
	if unmatched > 0 || duplicated > 0 {
		return fmt.Errorf("%w: %d unmatched and %d duplicated directed edges",
			ErrNotClosed, unmatched, duplicated)
	}
	return nil
}
