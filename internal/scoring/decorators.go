package scoring

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ironsheep/image-mergetree/internal/rag"
)

// RandomPerturbation adds i.i.d. Gaussian noise to the scores of an inner
// function. Running the merge engine with different seeds yields different
// but plausible merge trees, e.g. to sample training data.
type RandomPerturbation struct {
	inner Function
	noise distuv.Normal
}

// NewRandomPerturbation wraps inner with N(0, stdDev²) noise drawn from a
// PCG source seeded with seed.
func NewRandomPerturbation(inner Function, stdDev float64, seed uint64) *RandomPerturbation {
	return &RandomPerturbation{
		inner: inner,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: stdDev,
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}
}

// Score implements Function.
func (p *RandomPerturbation) Score(g *rag.Graph, e *rag.Edge) float64 {
	return p.inner.Score(g, e) + p.noise.Rand()
}

// OnMerge implements Function.
func (p *RandomPerturbation) OnMerge(g *rag.Graph, e *rag.Edge, merged rag.RegionID) {
	p.inner.OnMerge(g, e, merged)
}

// SizeWeighted modulates an inner score by the size of the smaller endpoint:
// score * min(|U|, |V|)^Exponent. A positive exponent favors merging small
// regions early.
type SizeWeighted struct {
	inner    Function
	exponent float64
}

// NewSizeWeighted wraps inner with a size factor.
func NewSizeWeighted(inner Function, exponent float64) *SizeWeighted {
	return &SizeWeighted{inner: inner, exponent: exponent}
}

// Score implements Function.
func (s *SizeWeighted) Score(g *rag.Graph, e *rag.Edge) float64 {
	size := min(g.Region(e.U).Size, g.Region(e.V).Size)
	return s.inner.Score(g, e) * math.Pow(float64(size), s.exponent)
}

// OnMerge implements Function.
func (s *SizeWeighted) OnMerge(g *rag.Graph, e *rag.Edge, merged rag.RegionID) {
	s.inner.OnMerge(g, e, merged)
}

// DefaultSmallRegionOffset is large enough to order any edge touching a small
// region before every edge of normalized [0,1] scores.
const DefaultSmallRegionOffset = 1e6

// SmallRegionFirst lowers the score of every edge with an endpoint of at
// most threshold pixels by a fixed offset, so the queue drains those edges
// before all others while keeping the inner order within each group.
type SmallRegionFirst struct {
	inner     Function
	threshold int
	offset    float64
}

// NewSmallRegionFirst wraps inner. A non-positive offset selects
// DefaultSmallRegionOffset.
func NewSmallRegionFirst(inner Function, threshold int, offset float64) *SmallRegionFirst {
	if offset <= 0 {
		offset = DefaultSmallRegionOffset
	}
	return &SmallRegionFirst{inner: inner, threshold: threshold, offset: offset}
}

// Score implements Function.
func (s *SmallRegionFirst) Score(g *rag.Graph, e *rag.Edge) float64 {
	score := s.inner.Score(g, e)
	if g.Region(e.U).Size <= s.threshold || g.Region(e.V).Size <= s.threshold {
		score -= s.offset
	}
	return score
}

// OnMerge implements Function.
func (s *SmallRegionFirst) OnMerge(g *rag.Graph, e *rag.Edge, merged rag.RegionID) {
	s.inner.OnMerge(g, e, merged)
}
