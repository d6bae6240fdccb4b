package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// createEdgeTestImage creates an image with a vertical edge: black left half,
// white right half.
func createEdgeTestImage(width, height int) image.Image {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := width / 2; x < width; x++ {
			img.SetGray(x, y, color.Gray{255})
		}
	}
	return img
}

func TestIntensities(t *testing.T) {
	tests := []struct {
		name string
		c    color.Color
		want float64
	}{
		{"black", color.RGBA{0, 0, 0, 255}, 0},
		{"white", color.RGBA{255, 255, 255, 255}, 1},
		{"mid gray", color.RGBA{128, 128, 128, 255}, float64(128*257) / math.MaxUint16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals := Intensities(createInMemoryImage(3, 2, tt.c), 0)
			if len(vals) != 6 {
				t.Fatalf("len: got %d, want 6", len(vals))
			}
			for i, v := range vals {
				if math.Abs(v-tt.want) > 1e-4 {
					t.Errorf("pixel %d: got %v, want %v", i, v, tt.want)
				}
			}
		})
	}
}

func TestIntensities_KeepsGray16Precision(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 1))
	img.SetGray16(0, 0, color.Gray16{Y: 1000})
	img.SetGray16(1, 0, color.Gray16{Y: 1001})

	vals := Intensities(img, 0)
	if vals[0] >= vals[1] {
		t.Errorf("16-bit values collapsed: %v", vals)
	}
}

func TestIntensities_Blur(t *testing.T) {
	img := createEdgeTestImage(20, 4)
	sharp := Intensities(img, 0)
	blurred := Intensities(img, 2)

	// pixel just left of the edge picks up brightness from the right half
	i := 1*20 + 9
	if sharp[i] != 0 {
		t.Fatalf("sharp pixel: got %v, want 0", sharp[i])
	}
	if blurred[i] <= 0 {
		t.Errorf("blurred pixel: got %v, want > 0", blurred[i])
	}
}

func TestInvert(t *testing.T) {
	vals := []float64{0, 0.25, 1}
	Invert(vals)
	want := []float64{1, 0.75, 0}
	for i := range vals {
		if vals[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, vals[i], want[i])
		}
	}
}

func TestBoundaryMap(t *testing.T) {
	w, h := 10, 5
	b := BoundaryMap(Intensities(createEdgeTestImage(w, h), 0), w, h)

	peak := 0.0
	for _, v := range b {
		peak = math.Max(peak, v)
	}
	if peak != 1 {
		t.Errorf("peak: got %v, want 1", peak)
	}

	for y := 0; y < h; y++ {
		if b[y*w+0] != 0 || b[y*w+w-1] != 0 {
			t.Errorf("row %d: flat areas must have zero boundary strength", y)
		}
		if b[y*w+w/2] == 0 || b[y*w+w/2-1] == 0 {
			t.Errorf("row %d: edge pixels must have boundary strength", y)
		}
	}
}

func TestBoundaryMap_Uniform(t *testing.T) {
	b := BoundaryMap(make([]float64, 12), 4, 3)
	for i, v := range b {
		if v != 0 {
			t.Errorf("pixel %d: got %v, want 0", i, v)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}

	for _, tt := range tests {
		if got := clamp(tt.val, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.lo, tt.hi, got, tt.want)
		}
	}
}
