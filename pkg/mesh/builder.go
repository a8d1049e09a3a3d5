package mesh

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/reliefmesh/pkg/heightmap"
)

// ErrInvalidSizeParameter is returned for non-positive or non-finite dimensions.
var ErrInvalidSizeParameter = errors.New("invalid size parameter")

// Params holds the physical size of the solid in millimetres.
type Params struct {
	ModelWidth     float64 // x extent of the grid; sets the sample pitch
	ModelThickness float64 // relief height at sample value 255
	BaseThickness  float64 // slab depth below z=0
}

// Validate checks that every dimension is finite and positive.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"model width", p.ModelWidth},
		{"model thickness", p.ModelThickness},
		{"base thickness", p.BaseThickness},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidSizeParameter, f.name, f.v)
		}
	}
	return nil
}

// ExpectedTriangles returns the exact triangle count for a w x h grid:
// bottom and top faces plus the four side walls.
func ExpectedTriangles(w, h int) int {
	cells := (w - 1) * (h - 1)
	return 2*cells + 2*cells + 2*2*(w-1) + 2*2*(h-1)
}

// Builder generates relief meshes. Rows of the bottom and top faces are
// independent and are generated by up to Workers goroutines.
type Builder struct {
	Workers int // 0 means GOMAXPROCS
}

// Build generates a mesh with a single worker.
func Build(g *heightmap.Grid, p Params) (*Mesh, error) {
	b := Builder{Workers: 1}
	return b.Build(context.Background(), g, p)
}

// Build converts a depth grid into a closed box whose top face is the relief.
// Triangle order is bottom face, top face, then the front, right, back and
// left walls.
func (b *Builder) Build(ctx context.Context, g *heightmap.Grid, p Params) (*Mesh, error) {
	if g == nil || g.Width() < 2 || g.Height() < 2 {
		return nil, heightmap.ErrInvalidGridDimensions
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l := newLayout(g, p)
	tris := make([]Triangle, ExpectedTriangles(l.w, l.h))

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for row := range l.h - 1 {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			l.faceRow(tris, row)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("building faces: %w", err)
	}

	l.walls(tris[4*l.cells:])

	return &Mesh{Triangles: tris}, nil
}

// layout maps grid positions to model coordinates.
type layout struct {
	w, h    int
	cells   int
	pitch   float64
	base    float64   // z of the bottom slab
	heights []float64 // top-surface z per sample, row-major
}

func newLayout(g *heightmap.Grid, p Params) *layout {
	w, h := g.Width(), g.Height()
	l := &layout{
		w:       w,
		h:       h,
		cells:   (w - 1) * (h - 1),
		pitch:   p.ModelWidth / float64(w),
		base:    -p.BaseThickness,
		heights: make([]float64, w*h),
	}
	for row := range h {
		for col := range w {
			z := float64(g.At(row, col)) / 255.0 * p.ModelThickness
			l.heights[row*w+col] = math.Min(math.Max(z, 0), p.ModelThickness)
		}
	}
	return l
}

// xy maps a grid position to the model plane. Row 0 is the highest y.
func (l *layout) xy(row, col int) (float64, float64) {
	return float64(col) * l.pitch, float64(l.h-row-1) * l.pitch
}

func (l *layout) top(row, col int) mgl64.Vec3 {
	x, y := l.xy(row, col)
	return mgl64.Vec3{x, y, l.heights[row*l.w+col]}
}

func (l *layout) bottom(row, col int) mgl64.Vec3 {
	x, y := l.xy(row, col)
	return mgl64.Vec3{x, y, l.base}
}

// faceRow writes the bottom and top triangles for one row of cells.
func (l *layout) faceRow(tris []Triangle, row int) {
	for col := range l.w - 1 {
		i := 2 * (row*(l.w-1) + col)

		// Corners: a=(row,col) b=(row,col+1) c=(row+1,col) d=(row+1,col+1).
		// Bottom is wound clockwise seen from above so its normal faces -z.
		a, b, c, d := l.bottom(row, col), l.bottom(row, col+1), l.bottom(row+1, col), l.bottom(row+1, col+1)
		tris[i] = NewTriangle(a, d, c)
		tris[i+1] = NewTriangle(a, b, d)

		a, b, c, d = l.top(row, col), l.top(row, col+1), l.top(row+1, col), l.top(row+1, col+1)
		j := 2*l.cells + i
		tris[j] = NewTriangle(a, c, b)
		tris[j+1] = NewTriangle(b, c, d)
	}
}

// walls closes the solid between the bottom slab and the relief boundary.
// The boundary is walked counter-clockwise seen from above, the same
// direction the top face's boundary edges run, so each wall quad pairs
// its edges with the top, the bottom and both neighbouring quads.
func (l *layout) walls(tris []Triangle) {
	n := 0
	quad := func(pr, pc, qr, qc int) {
		p, q := l.top(pr, pc), l.top(qr, qc)
		pb, qb := l.bottom(pr, pc), l.bottom(qr, qc)
		tris[n] = NewTriangle(pb, qb, q)
		tris[n+1] = NewTriangle(pb, q, p)
		n += 2
	}

	last, right := l.h-1, l.w-1

	// Front (y=0), +x
	for col := range l.w - 1 {
		quad(last, col, last, col+1)
	}
	// Right (max x), +y
	for row := l.h - 2; row >= 0; row-- {
		quad(row+1, right, row, right)
	}
	// Back (max y), -x
	for col := l.w - 2; col >= 0; col-- {
		quad(0, col+1, 0, col)
	}
	// Left (x=0), -y
	for row := range l.h - 1 {
		quad(row, 0, row+1, 0)
	}
}
