// Package heightmap derives normalized depth grids from raster images.
package heightmap

import (
	"errors"
	"fmt"
	"image"
)

// Heightmap errors.
var (
	ErrInvalidGridDimensions = errors.New("invalid grid dimensions: need at least 2x2 samples")
	ErrInvalidDetailLevel    = errors.New("invalid detail level")
	ErrTooManySamples        = errors.New("grid exceeds sample limit")
)

// Grid is an immutable height x width grid of 8-bit depth samples.
// 0 is the lowest relief, 255 the highest.
type Grid struct {
	width  int
	height int
	pix    []uint8 // row-major, row 0 is the image top
}

// NewGrid creates a grid from row-major samples. The slice is copied.
func NewGrid(width, height int, pix []uint8) (*Grid, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidGridDimensions, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("sample count mismatch: expected %d, got %d", width*height, len(pix))
	}
	return &Grid{
		width:  width,
		height: height,
		pix:    append([]uint8(nil), pix...),
	}, nil
}

// FromRows creates a grid from a slice of equally sized rows.
func FromRows(rows [][]uint8) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: got 0 rows", ErrInvalidGridDimensions)
	}
	width := len(rows[0])
	pix := make([]uint8, 0, width*len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d samples, expected %d", i, len(row), width)
		}
		pix = append(pix, row...)
	}
	return NewGrid(width, len(rows), pix)
}

// FromGray creates a grid from a greyscale image.
func FromGray(img *image.Gray) (*Grid, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		pix = append(pix, img.Pix[off:off+w]...)
	}
	return NewGrid(w, h, pix)
}

// Width returns the number of samples per row.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// At returns the sample at the given row and column.
func (g *Grid) At(row, col int) uint8 {
	return g.pix[row*g.width+col]
}

// Image returns a greyscale copy of the grid, used for the depth map preview.
func (g *Grid) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.width, g.height))
	copy(img.Pix, g.pix)
	return img
}
