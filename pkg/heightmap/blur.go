package heightmap

import "math"

// GaussianKernel returns a normalized 1-D Gaussian kernel of the given odd size.
func GaussianKernel(size int, sigma float64) []float64 {
	kernel := make([]float64, size)
	center := float64(size-1) / 2
	var sum float64
	for i := range size {
		d := float64(i) - center
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianBlur applies a separable size x size Gaussian blur to row-major
// samples. Borders are mirrored without repeating the edge sample.
func GaussianBlur(pix []uint8, width, height, size int, sigma float64) []uint8 {
	kernel := GaussianKernel(size, sigma)
	radius := size / 2

	// Horizontal pass
	tmp := make([]float64, width*height)
	for y := range height {
		row := pix[y*width : (y+1)*width]
		for x := range width {
			var acc float64
			for k, w := range kernel {
				acc += w * float64(row[reflect101(x+k-radius, width)])
			}
			tmp[y*width+x] = acc
		}
	}

	// Vertical pass
	out := make([]uint8, width*height)
	for y := range height {
		for x := range width {
			var acc float64
			for k, w := range kernel {
				acc += w * tmp[reflect101(y+k-radius, height)*width+x]
			}
			out[y*width+x] = quantize(acc)
		}
	}
	return out
}

// reflect101 mirrors an index into [0, n): -1 -> 1, n -> n-2.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
