package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
)

// Intensities converts an image into a row-major array of gray values in [0,1].
//
// This is the intensity image that edge scores are computed from. In a boundary
// probability map bright pixels are membranes; for raw images where boundaries
// are dark, pass the result through Invert.
//
// Parameters:
//   - img: Source image (color or grayscale, 8 or 16 bit).
//   - blurRadius: Radius of a Gaussian pre-smoothing. 0 disables smoothing and
//     keeps the full precision of 16-bit sources.
//
// Returns:
//   - []float64: One value per pixel, index y*width + x.
//
// # Algorithm
//
//  1. Optional Gaussian blur (bild/blur), which quantizes to 8 bits per channel
//
//  2. Grayscale conversion through color.Gray16Model, using the ITU-R BT.601
//     luminance weights (0.299*R + 0.587*G + 0.114*B)
//
//  3. Scaling from [0,65535] to [0,1]
func Intensities(img image.Image, blurRadius float64) []float64 {
	if blurRadius > 0 {
		img = blur.Gaussian(img, blurRadius)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray16)
			out[y*width+x] = float64(g.Y) / math.MaxUint16
		}
	}
	return out
}

// Invert maps every value v of a [0,1] intensity array to 1-v, in place.
func Invert(intensities []float64) {
	for i, v := range intensities {
		intensities[i] = 1 - v
	}
}

// BoundaryMap estimates a boundary strength per pixel from a [0,1] intensity
// image, for sources that are not boundary probability maps already.
//
// Parameters:
//   - intensities: Row-major gray values, length width*height.
//   - width, height: Image size.
//
// Returns:
//   - []float64: Sobel gradient magnitude, scaled so the strongest edge is 1.
//     A uniform image yields all zeros.
//
// Border pixels use clamped (replicated) neighbor values.
func BoundaryMap(intensities []float64, width, height int) []float64 {
	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	out := make([]float64, width*height)
	peak := 0.0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					v := intensities[py*width+px]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			m := math.Sqrt(gx*gx + gy*gy)
			out[y*width+x] = m
			peak = math.Max(peak, m)
		}
	}

	if peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
