package rag

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ironsheep/image-mergetree/internal/grid"
)

// Build creates the initial region adjacency graph of a label image.
//
// Every distinct label becomes one leaf region; leaf ids are assigned in
// ascending label order. Every grid edge whose pixels carry different labels
// is recorded as an affiliated edge of the corresponding region pair, in grid
// enumeration order. Label values themselves are not validated.
func Build(labels []int, g grid.Grid) (*Graph, error) {
	if len(labels) != g.Size() {
		return nil, errors.Errorf("rag: label array has %d entries, grid %dx%d needs %d",
			len(labels), g.Width, g.Height, g.Size())
	}

	graph := newGraph(g)

	distinct := lo.Uniq(labels)
	sort.Ints(distinct)

	sizes := lo.CountValues(labels)
	for _, label := range distinct {
		graph.byLabel[label] = graph.AddRegion(label, sizes[label])
	}

	// region of every pixel, so the edge loop does not hash twice per edge
	pixelRegion := make([]RegionID, len(labels))
	for i, label := range labels {
		pixelRegion[i] = graph.byLabel[label]
	}

	g.Edges(func(e grid.Edge) bool {
		a, b := pixelRegion[e.P], pixelRegion[e.Q]
		if a == b {
			return true
		}
		id := graph.AddEdge(a, b)
		graph.edges[id].Affiliated = append(graph.edges[id].Affiliated, e)
		return true
	})

	return graph, nil
}
