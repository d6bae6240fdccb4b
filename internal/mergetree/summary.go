package mergetree

import (
	"github.com/montanaflynn/stats"

	"github.com/ironsheep/image-mergetree/internal/rag"
)

// Summary describes a finished merge run.
type Summary struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	InitialRegions int `json:"initial_regions"`
	InitialEdges   int `json:"initial_edges"`
	Regions        int `json:"regions"`
	Roots          int `json:"roots"`
	MaxDistance    int `json:"max_distance"`

	// Initial region size statistics, in pixels.
	MeanRegionSize   float64 `json:"mean_region_size"`
	MedianRegionSize float64 `json:"median_region_size"`
	P90RegionSize    float64 `json:"p90_region_size"`

	Stats Stats `json:"stats"`
}

// Summarize collects the figures of a merge run. initialEdges is the edge
// count of the graph before merging.
func Summarize(graph *rag.Graph, res *Result, st Stats, initialEdges int) Summary {
	leaves := res.Forest.Leaves()
	sizes := make(stats.Float64Data, len(leaves))
	for i, id := range leaves {
		sizes[i] = float64(graph.Region(id).Size)
	}

	s := Summary{
		Width:          res.Width,
		Height:         res.Height,
		InitialRegions: len(leaves),
		InitialEdges:   initialEdges,
		Regions:        graph.NumRegions(),
		Roots:          graph.ActiveCount(),
		MaxDistance:    res.MaxDistance,
		Stats:          st,
	}
	// errors only signal empty input, which leaves the zero values in place
	s.MeanRegionSize, _ = sizes.Mean()
	s.MedianRegionSize, _ = sizes.Median()
	s.P90RegionSize, _ = sizes.Percentile(90)
	return s
}
