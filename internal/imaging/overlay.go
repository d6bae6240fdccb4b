package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// DefaultBoundaryColor is the line color of boundary overlays.
const DefaultBoundaryColor = "#ff0000"

// BoundaryOverlay draws the boundaries of a label array over a grayscale copy
// of img.
//
// Parameters:
//   - img: Background image; must have the same size as the label array.
//   - labels: Row-major labels.
//   - lineHex: Boundary color as "#RRGGBB". Empty selects DefaultBoundaryColor.
//
// Returns:
//   - *image.NRGBA: The overlay.
//   - error: Non-nil if the sizes differ or lineHex is not a valid color.
//
// A pixel is drawn as boundary if its right or lower neighbor has a different
// label, which gives one-pixel lines between regions.
func BoundaryOverlay(img image.Image, labels []int, lineHex string) (*image.NRGBA, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if len(labels) != width*height {
		return nil, errors.Errorf("%d labels for a %dx%d image", len(labels), width, height)
	}

	if lineHex == "" {
		lineHex = DefaultBoundaryColor
	}
	c, err := colorful.Hex(lineHex)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid boundary color %q", lineHex)
	}
	r, g, b := c.RGB255()
	line := color.NRGBA{R: r, G: g, B: b, A: 255}

	gray := imaging.Grayscale(img)
	result := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(result, result.Bounds(), gray, gray.Bounds().Min, draw.Src)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if (x+1 < width && labels[i+1] != labels[i]) || (y+1 < height && labels[i+width] != labels[i]) {
				result.SetNRGBA(x, y, line)
			}
		}
	}
	return result, nil
}
