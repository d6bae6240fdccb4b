package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Region is a rectangle of interest. (X1,Y1) is inclusive, (X2,Y2) exclusive.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// ParseRegion parses "x1,y1,x2,y2".
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, errors.Errorf("region %q: want x1,y1,x2,y2", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, errors.Wrapf(err, "region %q", s)
		}
		v[i] = n
	}
	return Region{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

// IsZero reports whether r is the zero Region, which selects the whole image.
func (r Region) IsZero() bool { return r == Region{} }

// Width returns X2-X1.
func (r Region) Width() int { return r.X2 - r.X1 }

// Height returns Y2-Y1.
func (r Region) Height() int { return r.Y2 - r.Y1 }

// Validate checks that r is non-empty and lies inside an image of the given
// size.
func (r Region) Validate(width, height int) error {
	if r.X1 < 0 || r.Y1 < 0 || r.X2 > width || r.Y2 > height {
		return errors.Errorf("region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, width, height)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return errors.New("invalid region: x1 must be < x2, y1 must be < y2")
	}
	return nil
}

// CropRegion extracts a region of interest. A zero Region returns img
// unchanged. The result always starts at (0,0).
func CropRegion(img image.Image, r Region) (image.Image, error) {
	if r.IsZero() {
		return img, nil
	}
	bounds := img.Bounds()
	if err := r.Validate(bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}

	// labels must keep their exact values, which imaging.Crop would convert
	// to 8-bit NRGBA
	rect := image.Rect(r.X1, r.Y1, r.X2, r.Y2).Add(bounds.Min)
	switch src := img.(type) {
	case *image.Gray16:
		return rebase(src.SubImage(rect)), nil
	case *image.Gray:
		return rebase(src.SubImage(rect)), nil
	}
	return imaging.Crop(img, rect), nil
}

// rebase copies a gray sub-image so that its bounds start at (0,0).
func rebase(img image.Image) image.Image {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray16:
		out := image.NewGray16(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return out
	case *image.Gray:
		out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return out
	}
	return img
}

// Preview is a PNG rendering of an image for transport in JSON results.
type Preview struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePreview encodes img as base64 PNG. A positive maxSide scales the
// image down so that neither side exceeds it.
func EncodePreview(img image.Image, maxSide int) (*Preview, error) {
	b := img.Bounds()
	if maxSide > 0 && (b.Dx() > maxSide || b.Dy() > maxSide) {
		if b.Dx() >= b.Dy() {
			img = imaging.Resize(img, maxSide, 0, imaging.NearestNeighbor)
		} else {
			img = imaging.Resize(img, 0, maxSide, imaging.NearestNeighbor)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "failed to encode preview")
	}

	return &Preview{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
