package imaging

import (
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// goldenAngle spreads consecutive hues as far apart as possible.
const goldenAngle = 137.50776405003785

// LabelColor returns the display color of a label.
//
// The color depends only on the label value, so the same label has the same
// color in every visualization. Hues step by the golden angle; saturation and
// value alternate in three bands so neighbors with similar hues still differ.
// Label 0 is black.
func LabelColor(label int) color.NRGBA {
	if label == 0 {
		return color.NRGBA{A: 255}
	}
	h := math.Mod(float64(label)*goldenAngle, 360)
	band := float64(label % 3)
	c := colorful.Hsv(h, 0.55+0.15*band, 0.95-0.15*band).Clamped()
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Colorize renders a label array as an RGB image, one color per label.
//
// Parameters:
//   - labels: Row-major labels, length width*height.
//   - width, height: Image size.
//
// Returns:
//   - *image.NRGBA: The colorized label map.
//   - error: Non-nil if labels does not match the image size.
func Colorize(labels []int, width, height int) (*image.NRGBA, error) {
	if len(labels) != width*height {
		return nil, errors.Errorf("%d labels for a %dx%d image", len(labels), width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, l := range labels {
		img.SetNRGBA(i%width, i/width, LabelColor(l))
	}
	return img, nil
}

// ColorizeLevels renders a merge-tree image with a heat ramp: low leaf
// distances (early merges) are blue, the highest boundaries are red and
// pixels that were never a boundary are black.
func ColorizeLevels(pixels []uint16, width, height, maxDistance int) (*image.NRGBA, error) {
	if len(pixels) != width*height {
		return nil, errors.Errorf("%d pixels for a %dx%d image", len(pixels), width, height)
	}
	cold := colorful.Hsv(240, 1, 1)
	hot := colorful.Hsv(0, 1, 1)

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, v := range pixels {
		c := color.NRGBA{A: 255}
		if int(v) <= maxDistance && maxDistance > 0 {
			t := float64(v) / float64(maxDistance)
			c.R, c.G, c.B = cold.BlendHcl(hot, t).Clamped().RGB255()
		}
		img.SetNRGBA(i%width, i/width, c)
	}
	return img, nil
}
