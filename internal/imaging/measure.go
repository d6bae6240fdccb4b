package imaging

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Point represents a 2D point
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegionMeasurement describes one label of a label image.
type RegionMeasurement struct {
	Label         int     `json:"label"`
	Area          int     `json:"area"`
	Centroid      Point   `json:"centroid"`
	Bounds        Region  `json:"bounds"`
	MeanIntensity float64 `json:"mean_intensity"`
}

// MeasureRegions computes area, centroid, bounding box and mean intensity per
// label, sorted by label. intensities may be nil, which leaves MeanIntensity
// at 0.
func MeasureRegions(labels []int, intensities []float64, width, height int) ([]RegionMeasurement, error) {
	if len(labels) != width*height {
		return nil, errors.Errorf("%d labels for a %dx%d image", len(labels), width, height)
	}
	if intensities != nil && len(intensities) != len(labels) {
		return nil, errors.Errorf("%d intensities for %d labels", len(intensities), len(labels))
	}

	type acc struct {
		m            RegionMeasurement
		sumX, sumY   float64
		sumIntensity float64
	}
	byLabel := make(map[int]*acc)

	for i, l := range labels {
		x, y := i%width, i/width
		a, ok := byLabel[l]
		if !ok {
			a = &acc{m: RegionMeasurement{Label: l, Bounds: Region{X1: x, Y1: y, X2: x + 1, Y2: y + 1}}}
			byLabel[l] = a
		}
		a.m.Area++
		a.sumX += float64(x)
		a.sumY += float64(y)
		if intensities != nil {
			a.sumIntensity += intensities[i]
		}
		a.m.Bounds.X1 = min(a.m.Bounds.X1, x)
		a.m.Bounds.Y1 = min(a.m.Bounds.Y1, y)
		a.m.Bounds.X2 = max(a.m.Bounds.X2, x+1)
		a.m.Bounds.Y2 = max(a.m.Bounds.Y2, y+1)
	}

	keys := lo.Keys(byLabel)
	sort.Ints(keys)

	out := make([]RegionMeasurement, 0, len(keys))
	for _, l := range keys {
		a := byLabel[l]
		n := float64(a.m.Area)
		a.m.Centroid = Point{
			X: math.Round(a.sumX/n*100) / 100,
			Y: math.Round(a.sumY/n*100) / 100,
		}
		a.m.MeanIntensity = math.Round(a.sumIntensity/n*1000) / 1000
		out = append(out, a.m)
	}
	return out, nil
}
