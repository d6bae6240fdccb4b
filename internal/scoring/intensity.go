package scoring

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/image-mergetree/internal/grid"
	"github.com/ironsheep/image-mergetree/internal/rag"
)

// edgeWeights derives one weight per grid edge from per-pixel intensities:
// the mean of the two pixel values.
type edgeWeights struct {
	intensities []float64
}

func newEdgeWeights(intensities []float64, g grid.Grid) (edgeWeights, error) {
	if len(intensities) != g.Size() {
		return edgeWeights{}, errors.Errorf("scoring: intensity array has %d entries, grid needs %d",
			len(intensities), g.Size())
	}
	return edgeWeights{intensities: intensities}, nil
}

func (w edgeWeights) weight(e grid.Edge) float64 {
	return 0.5 * (w.intensities[e.P] + w.intensities[e.Q])
}

func (w edgeWeights) collect(affiliated []grid.Edge) []float64 {
	out := make([]float64, len(affiliated))
	for i, e := range affiliated {
		out[i] = w.weight(e)
	}
	return out
}

// MedianEdgeIntensity scores an edge by the median weight of its affiliated
// grid edges, where a grid edge weighs the mean intensity of its two pixels.
// On boundary-probability images this merges across weak boundaries first.
// For an even number of grid edges the upper median is used.
type MedianEdgeIntensity struct {
	weights edgeWeights
}

// NewMedianEdgeIntensity creates a median scorer over a per-pixel intensity
// array laid out on g.
func NewMedianEdgeIntensity(intensities []float64, g grid.Grid) (*MedianEdgeIntensity, error) {
	w, err := newEdgeWeights(intensities, g)
	if err != nil {
		return nil, err
	}
	return &MedianEdgeIntensity{weights: w}, nil
}

// Score implements Function.
func (m *MedianEdgeIntensity) Score(_ *rag.Graph, e *rag.Edge) float64 {
	values := m.weights.collect(e.Affiliated)
	sort.Float64s(values)
	return values[len(values)/2]
}

// OnMerge implements Function.
func (m *MedianEdgeIntensity) OnMerge(*rag.Graph, *rag.Edge, rag.RegionID) {}

// MeanEdgeIntensity scores an edge by the mean weight of its affiliated grid
// edges.
type MeanEdgeIntensity struct {
	weights edgeWeights
}

// NewMeanEdgeIntensity creates a mean scorer over a per-pixel intensity
// array laid out on g.
func NewMeanEdgeIntensity(intensities []float64, g grid.Grid) (*MeanEdgeIntensity, error) {
	w, err := newEdgeWeights(intensities, g)
	if err != nil {
		return nil, err
	}
	return &MeanEdgeIntensity{weights: w}, nil
}

// Score implements Function.
func (m *MeanEdgeIntensity) Score(_ *rag.Graph, e *rag.Edge) float64 {
	return stat.Mean(m.weights.collect(e.Affiliated), nil)
}

// OnMerge implements Function.
func (m *MeanEdgeIntensity) OnMerge(*rag.Graph, *rag.Edge, rag.RegionID) {}
