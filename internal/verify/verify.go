// Package verify inspects relief meshes independently of how they were built.
//
// Besides the directed-edge closure check, a ray-parity test classifies
// probe points as inside or outside the solid: a ray leaving an interior
// point crosses the surface an odd number of times.
package verify

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"

	"github.com/Faultbox/reliefmesh/pkg/mesh"
)

// ErrEmptyMesh is returned when there is nothing to inspect.
var ErrEmptyMesh = errors.New("mesh has no triangles")

// Probe directions, irregular so rays avoid grid-aligned edges.
var directions = []model3d.Coord3D{
	{X: -0.40475415, Y: 0.86174632, Z: -0.30588783},
	{X: -0.81025101, Y: 0.38452447, Z: -0.44230559},
	{X: -0.09226702, Y: -0.74875317, Z: -0.65639584},
	{X: -0.99668947, Y: 0.08087344, Z: 0.00834144},
	{X: 0.67074042, Y: -0.60098173, Z: 0.43465877},
}

// Solid answers containment queries for a triangle mesh.
type Solid struct {
	model3d.Collider
}

// NewSolid indexes m for ray queries.
func NewSolid(m *mesh.Mesh) (*Solid, error) {
	if m == nil || len(m.Triangles) == 0 {
		return nil, ErrEmptyMesh
	}
	tris := make([]*model3d.Triangle, len(m.Triangles))
	for i, t := range m.Triangles {
		tris[i] = &model3d.Triangle{coord(t.Vertices[0]), coord(t.Vertices[1]), coord(t.Vertices[2])}
	}
	return &Solid{Collider: model3d.MeshToCollider(model3d.NewMeshTriangles(tris))}, nil
}

// Contains reports whether p is inside the solid. Every probe ray must
// agree for p to count as inside.
func (s *Solid) Contains(p mgl64.Vec3) bool {
	c := coord(p)
	if !model3d.InBounds(s, c) {
		return false
	}
	for _, d := range directions {
		if s.crossings(c, d)%2 == 0 {
			return false
		}
	}
	return true
}

// crossings counts distinct surface hits along a ray, merging hits on
// coincident triangles.
func (s *Solid) crossings(origin, direction model3d.Coord3D) int {
	var hits []model3d.RayCollision
	s.Collider.RayCollisions(&model3d.Ray{
		Origin:    origin,
		Direction: direction,
	}, func(r model3d.RayCollision) {
		hits = append(hits, r)
	})
	if len(hits) == 0 {
		return 0
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Scale < hits[j].Scale
	})

	epsilon := s.Max().Sub(s.Min()).Norm() * 1e-8
	var last float64
	var n int
	for _, h := range hits {
		if h.Scale-last > epsilon {
			n++
		}
		last = h.Scale
	}
	return n
}

// Report summarizes an inspection.
type Report struct {
	Triangles int
	Bounds    mesh.Bounds
	Closed    bool
	ClosedErr error

	InteriorProbe mgl64.Vec3
	Interior      bool // InteriorProbe classified inside
	ExteriorProbe mgl64.Vec3
	Exterior      bool // ExteriorProbe classified outside
}

// Sound reports whether every check passed.
func (r *Report) Sound() bool {
	return r.Closed && r.Interior && r.Exterior
}

// Inspect runs the closure check and the parity probes on m. The interior
// probe sits in the middle of the slab below z=0 when the mesh has one,
// otherwise at the bounding box centre.
func Inspect(m *mesh.Mesh) (*Report, error) {
	s, err := NewSolid(m)
	if err != nil {
		return nil, errors.Wrap(err, "inspect")
	}

	b := m.Bounds()
	r := &Report{
		Triangles: m.TriangleCount(),
		Bounds:    b,
	}
	if err := m.CheckClosed(); err != nil {
		r.ClosedErr = errors.Wrap(err, "closure check")
	} else {
		r.Closed = true
	}

	center := b.Center()
	r.InteriorProbe = center
	if b.Min.Z() < 0 && b.Max.Z() >= 0 {
		r.InteriorProbe = mgl64.Vec3{center.X(), center.Y(), b.Min.Z() / 2}
	}
	r.ExteriorProbe = mgl64.Vec3{center.X(), center.Y(), b.Max.Z() + b.Size().Len()}

	r.Interior = s.Contains(r.InteriorProbe)
	r.Exterior = !s.Contains(r.ExteriorProbe)
	return r, nil
}

func coord(v mgl64.Vec3) model3d.Coord3D {
	return model3d.Coord3D{X: v[0], Y: v[1], Z: v[2]}
}
