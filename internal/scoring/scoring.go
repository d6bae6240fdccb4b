// Package scoring defines how region adjacency edges are ranked for merging.
//
// A Function maps an edge to a score; lower scores merge earlier. Functions
// compose as decorators: a decorator wraps an inner Function, transforms its
// score and forwards merge notifications, so stateful base functions can keep
// their caches up to date no matter how deeply they are wrapped.
package scoring

import (
	"github.com/ironsheep/image-mergetree/internal/grid"
	"github.com/ironsheep/image-mergetree/internal/rag"
)

// Function scores region adjacency edges.
type Function interface {
	// Score returns the merge priority of e. Lower values merge first.
	// e.Affiliated is never empty.
	Score(g *rag.Graph, e *rag.Edge) float64

	// OnMerge is called after the endpoints of e were merged into merged,
	// before any of merged's edges are scored.
	OnMerge(g *rag.Graph, e *rag.Edge, merged rag.RegionID)
}

// AffiliatedFunc adapts a function of the affiliated grid edges alone. It
// is stateless, so OnMerge does nothing.
type AffiliatedFunc func(affiliated []grid.Edge) float64

// Score implements Function.
func (f AffiliatedFunc) Score(_ *rag.Graph, e *rag.Edge) float64 {
	return f(e.Affiliated)
}

// OnMerge implements Function.
func (f AffiliatedFunc) OnMerge(*rag.Graph, *rag.Edge, rag.RegionID) {}
