// Package mesh builds closed relief solids from depth grids.
package mesh

import "github.com/go-gl/mathgl/mgl64"

// Triangle is an ordered vertex triple with its outward unit normal.
// Coordinates are in millimetres.
type Triangle struct {
	Normal   mgl64.Vec3
	Vertices [3]mgl64.Vec3
}

// NewTriangle creates a triangle and derives its normal from the winding
// (v2-v1) x (v3-v1). Zero-area triangles keep a zero normal.
func NewTriangle(v1, v2, v3 mgl64.Vec3) Triangle {
	return Triangle{
		Normal:   faceNormal(v1, v2, v3),
		Vertices: [3]mgl64.Vec3{v1, v2, v3},
	}
}

func faceNormal(v1, v2, v3 mgl64.Vec3) mgl64.Vec3 {
	n := v2.Sub(v1).Cross(v3.Sub(v1))
	l := n.Len()
	if l == 0 {
		return n
	}
	return n.Mul(1 / l)
}

// Mesh is an ordered triangle collection forming a closed solid.
type Mesh struct {
	Triangles []Triangle
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// Bounds holds the axis-aligned bounding box of a mesh.
type Bounds struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// Size returns the box extent along each axis.
func (b Bounds) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the box midpoint.
func (b Bounds) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Bounds computes the bounding box over all vertices.
func (m *Mesh) Bounds() Bounds {
	if len(m.Triangles) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: m.Triangles[0].Vertices[0], Max: m.Triangles[0].Vertices[0]}
	for _, t := range m.Triangles {
		for _, v := range t.Vertices {
			for i := range 3 {
				b.Min[i] = min(b.Min[i], v[i])
				b.Max[i] = max(b.Max[i], v[i])
			}
		}
	}
	return b
}
