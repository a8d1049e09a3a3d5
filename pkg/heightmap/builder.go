package heightmap

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// BaseSize is the target sample count along the longer image axis at detail level 1.
const BaseSize = 320

// DefaultMaxSamples caps width*height when Options.MaxSamples is unset.
const DefaultMaxSamples = 1 << 22

// Pipeline selects how depth samples are derived from the source image.
type Pipeline int

const (
	// PipelineDepth resizes in colour, converts to luma, applies the gamma
	// curve and optional inversion, then blurs with a 5x5 kernel.
	PipelineDepth Pipeline = iota
	// PipelineDirect converts to grey, resizes, blurs with a 3x3 kernel and
	// optionally inverts. No gamma shaping.
	PipelineDirect
)

// String returns the pipeline name.
func (p Pipeline) String() string {
	switch p {
	case PipelineDepth:
		return "depth"
	case PipelineDirect:
		return "direct"
	default:
		return fmt.Sprintf("Pipeline(%d)", int(p))
	}
}

// Blur parameters for each pipeline.
const (
	depthBlurSize   = 5
	depthBlurSigma  = 1.5
	directBlurSize  = 3
	directBlurSigma = 0.8
)

// Options controls heightmap derivation.
type Options struct {
	DetailLevel float64  // linear density control, target size = 320 * DetailLevel
	Invert      bool     // flip high and low relief
	Pipeline    Pipeline // derivation mode
	MaxSamples  int      // grid size limit, 0 means DefaultMaxSamples
}

// TargetSize returns the sample count for the longer axis at a detail level.
func TargetSize(detailLevel float64) float64 {
	return BaseSize * detailLevel
}

// ScaledSize returns the resized dimensions that fit width x height into a
// target x target box while preserving aspect ratio. Results round down.
func ScaledSize(width, height int, target float64) (int, int) {
	ratio := math.Min(target/float64(width), target/float64(height))
	return int(float64(width) * ratio), int(float64(height) * ratio)
}

// Build derives a depth grid from a decoded image.
func Build(img image.Image, opts Options) (*Grid, error) {
	if math.IsNaN(opts.DetailLevel) || math.IsInf(opts.DetailLevel, 0) || opts.DetailLevel <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDetailLevel, opts.DetailLevel)
	}

	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, fmt.Errorf("%w: source image is %dx%d", ErrInvalidGridDimensions, b.Dx(), b.Dy())
	}

	target := TargetSize(opts.DetailLevel)
	limit := opts.MaxSamples
	if limit <= 0 {
		limit = DefaultMaxSamples
	}
	// Checked in float so huge detail levels never reach an int conversion.
	ratio := math.Min(target/float64(b.Dx()), target/float64(b.Dy()))
	if n := math.Floor(float64(b.Dx())*ratio) * math.Floor(float64(b.Dy())*ratio); n > float64(limit) {
		return nil, fmt.Errorf("%w: %.0f samples at detail level %v, limit %d",
			ErrTooManySamples, n, opts.DetailLevel, limit)
	}

	w, h := ScaledSize(b.Dx(), b.Dy(), target)
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("%w: %dx%d image resizes to %dx%d",
			ErrInvalidGridDimensions, b.Dx(), b.Dy(), w, h)
	}

	var pix []uint8
	switch opts.Pipeline {
	case PipelineDepth:
		pix = depthSamples(img, w, h, opts.Invert)
	case PipelineDirect:
		pix = directSamples(img, w, h, opts.Invert)
	default:
		return nil, fmt.Errorf("unknown pipeline %v", opts.Pipeline)
	}
	return NewGrid(w, h, pix)
}

// depthSamples implements the gamma pipeline.
func depthSamples(img image.Image, w, h int, invert bool) []uint8 {
	pix := make([]uint8, w*h)

	if isGray(img) {
		dst := Resize(img, w, h)
		for i, v := range dst.Pix {
			pix[i] = shape(float64(v), invert)
		}
	} else {
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		for i := range pix {
			p := dst.Pix[i*4 : i*4+3]
			pix[i] = shape(Luma(p[0], p[1], p[2]), invert)
		}
	}

	return GaussianBlur(pix, w, h, depthBlurSize, depthBlurSigma)
}

// shape applies gamma then optional inversion. The order matters.
func shape(v float64, invert bool) uint8 {
	v = Gamma(v)
	if invert {
		v = Invert(v)
	}
	return quantize(v)
}

// directSamples implements the plain greyscale pipeline.
func directSamples(img image.Image, w, h int, invert bool) []uint8 {
	dst := Resize(ToGray(img), w, h)
	pix := GaussianBlur(dst.Pix, w, h, directBlurSize, directBlurSigma)
	if invert {
		for i, v := range pix {
			pix[i] = 255 - v
		}
	}
	return pix
}

// Resize resamples img to w x h greyscale samples with bicubic interpolation.
func Resize(img image.Image, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ToGray converts img to 8-bit greyscale using BT.601 weights.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// isGray reports whether img carries a single channel.
func isGray(img image.Image) bool {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return true
	}
	return false
}
