package mergetree

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ironsheep/image-mergetree/internal/rag"
)

// ErrDepthOverflow is returned when the forest is too deep for the 16-bit
// merge-tree image. Reduce the problem size, e.g. with a larger small-region
// threshold or a region of interest.
var ErrDepthOverflow = errors.New("mergetree: merge tree depth exceeds 16-bit image range")

// MaxEncodableDistance is the largest leaf distance Finalize accepts.
const MaxEncodableDistance = math.MaxUint16 - 1

// Result is a finalized merge tree.
type Result struct {
	Width  int
	Height int

	// Pixels is the row-major merge-tree image. Boundary pixels hold the leaf
	// distance of the region whose creation removed them, all others hold
	// MaxDistance+1.
	Pixels []uint16

	// LeafDistances is indexed by rag.RegionID.
	LeafDistances []int
	MaxDistance   int

	Forest *Forest
}

// Finalize computes leaf distances for every region of graph and converts the
// raw stamps in tree into the merge-tree image.
func Finalize(graph *rag.Graph, tree []int) (*Result, error) {
	g := graph.Grid()
	if len(tree) != g.Size() {
		return nil, errors.Errorf("mergetree: tree has %d pixels, grid needs %d", len(tree), g.Size())
	}

	dist := LeafDistances(graph)
	maxDistance := 0
	if len(dist) > 0 {
		maxDistance = lo.Max(dist)
	}
	if maxDistance > MaxEncodableDistance {
		return nil, errors.Wrapf(ErrDepthOverflow, "max leaf distance %d", maxDistance)
	}

	pixels := make([]uint16, len(tree))
	for i, id := range tree {
		if id == 0 {
			pixels[i] = uint16(maxDistance + 1)
			continue
		}
		pixels[i] = uint16(dist[id])
	}

	return &Result{
		Width:         g.Width,
		Height:        g.Height,
		Pixels:        pixels,
		LeafDistances: dist,
		MaxDistance:   maxDistance,
		Forest:        NewForest(graph, dist),
	}, nil
}

// LeafDistances returns, per region, the length of the longest path down to
// a leaf: 0 for leaves, 1 + max over the children otherwise.
//
// Each leaf walks up its ancestor chain, raising the distance of every
// ancestor it passes. A walk stops at the first ancestor that already holds a
// distance at least as large, since an earlier walk has then raised the rest
// of the chain as well.
func LeafDistances(graph *rag.Graph) []int {
	dist := make([]int, graph.NumRegions())
	for i := range dist {
		r := graph.Region(rag.RegionID(i))
		if !r.IsLeaf() {
			continue
		}
		d := 0
		for p := r.Parent; p != rag.NoRegion; p = graph.Region(p).Parent {
			d++
			if dist[p] >= d {
				break
			}
			dist[p] = d
		}
	}
	return dist
}
