package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// DecodeLabels reads a label image into a row-major label array.
//
// Gray and Gray16 images yield their gray value. All other images yield
// r<<16 | g<<8 | b of their 8-bit color channels, so RGB label maps with more
// than 65536 labels survive the round trip.
func DecodeLabels(img image.Image) []int {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	labels := make([]int, width*height)

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				labels[y*width+x] = int(src.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y)
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				labels[y*width+x] = int(src.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y)
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				labels[y*width+x] = int(r>>8)<<16 | int(g>>8)<<8 | int(b>>8)
			}
		}
	}
	return labels
}

// LabelsToGray16 encodes a label array as a 16-bit grayscale image.
//
// Returns an error if a label is negative or does not fit into 16 bits.
func LabelsToGray16(labels []int, width, height int) (*image.Gray16, error) {
	if len(labels) != width*height {
		return nil, errors.Errorf("%d labels for a %dx%d image", len(labels), width, height)
	}
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for i, l := range labels {
		if l < 0 || l > math.MaxUint16 {
			return nil, errors.Errorf("label %d at pixel %d does not fit into 16 bits", l, i)
		}
		img.SetGray16(i%width, i/width, color.Gray16{Y: uint16(l)})
	}
	return img, nil
}

// MergeTreeImage wraps merge-tree pixels into a 16-bit grayscale image
// without copying them.
func MergeTreeImage(pixels []uint16, width, height int) (*image.Gray16, error) {
	if len(pixels) != width*height {
		return nil, errors.Errorf("%d pixels for a %dx%d image", len(pixels), width, height)
	}
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for i, v := range pixels {
		// Gray16 stores big-endian pairs
		img.Pix[2*i] = uint8(v >> 8)
		img.Pix[2*i+1] = uint8(v)
	}
	return img, nil
}

// SaveMergeTree writes merge-tree pixels as a 16-bit grayscale image. The
// format follows the file extension; use .png or .tif to keep 16 bits.
func SaveMergeTree(path string, pixels []uint16, width, height int) error {
	img, err := MergeTreeImage(pixels, width, height)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "failed to save merge tree to %s", path)
	}
	return nil
}

// SaveLabels writes a label array as a 16-bit grayscale image.
func SaveLabels(path string, labels []int, width, height int) error {
	img, err := LabelsToGray16(labels, width, height)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "failed to save labels to %s", path)
	}
	return nil
}

// Save writes any image, picking the format from the file extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "failed to save image to %s", path)
	}
	return nil
}
