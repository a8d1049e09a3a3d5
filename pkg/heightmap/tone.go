package heightmap

import "math"

// GammaExponent shapes the depth curve: shadows are expanded, highlights compressed.
const GammaExponent = 1.5

// BT.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Luma returns the BT.601 luma of an 8-bit RGB triple.
func Luma(r, g, b uint8) float64 {
	return lumaR*float64(r) + lumaG*float64(g) + lumaB*float64(b)
}

// Gamma maps v in [0, 255] through (v/255)^1.5 * 255.
func Gamma(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Pow(v/255.0, GammaExponent) * 255.0
}

// Invert flips a sample in [0, 255].
func Invert(v float64) float64 {
	return 255 - v
}

// quantize rounds half up and clamps to the 8-bit range.
func quantize(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
