package imaging

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMeasureRegions(t *testing.T) {
	labels := []int{
		5, 5, 2,
		5, 2, 2,
	}
	intensities := []float64{
		0.1, 0.3, 1,
		0.2, 0.5, 0.6,
	}

	got, err := MeasureRegions(labels, intensities, 3, 2)
	if err != nil {
		t.Fatalf("MeasureRegions failed: %v", err)
	}

	want := []RegionMeasurement{
		{
			Label:         2,
			Area:          3,
			Centroid:      Point{X: 1.67, Y: 0.67},
			Bounds:        Region{X1: 1, Y1: 0, X2: 3, Y2: 2},
			MeanIntensity: 0.7,
		},
		{
			Label:         5,
			Area:          3,
			Centroid:      Point{X: 0.33, Y: 0.33},
			Bounds:        Region{X1: 0, Y1: 0, X2: 2, Y2: 2},
			MeanIntensity: 0.2,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("measurements mismatch (-want +got):\n%s", diff)
	}
}

func TestMeasureRegions_NoIntensities(t *testing.T) {
	got, err := MeasureRegions([]int{1, 1}, nil, 2, 1)
	if err != nil {
		t.Fatalf("MeasureRegions failed: %v", err)
	}
	if len(got) != 1 || got[0].MeanIntensity != 0 || got[0].Area != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestMeasureRegions_SizeMismatch(t *testing.T) {
	if _, err := MeasureRegions([]int{1}, nil, 2, 1); err == nil {
		t.Error("expected error for label size mismatch")
	}
	if _, err := MeasureRegions([]int{1, 2}, []float64{1}, 2, 1); err == nil {
		t.Error("expected error for intensity size mismatch")
	}
}
