package mergetree

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/image-mergetree/internal/rag"
	"github.com/ironsheep/image-mergetree/internal/scoring"
)

// Stats counts what a Merger did.
type Stats struct {
	SmallRegionMerges int `json:"small_region_merges"`
	GreedyMerges      int `json:"greedy_merges"`
	StaleEntries      int `json:"stale_entries"`
	EdgesScored       int `json:"edges_scored"`
}

// Merger runs iterative region merging on a region adjacency graph.
type Merger struct {
	graph  *rag.Graph
	score  scoring.Function
	cfg    Config
	logger *zap.SugaredLogger

	queue *mergeQueue
	tree  []int
	stats Stats
}

// NewMerger prepares merging of graph and scores all of its edges. The graph
// must be freshly built: every region active. A nil logger disables logging.
func NewMerger(graph *rag.Graph, fn scoring.Function, cfg Config, logger *zap.SugaredLogger) (*Merger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	m := &Merger{
		graph:  graph,
		score:  fn,
		cfg:    cfg,
		logger: logger,
		queue:  newMergeQueue(2 * graph.NumEdges()),
		tree:   make([]int, graph.Grid().Size()),
	}

	logger.Infow("computing initial edge scores",
		"regions", graph.NumRegions(), "edges", graph.NumEdges())
	for i := 0; i < graph.NumEdges(); i++ {
		m.scoreEdge(rag.EdgeID(i))
	}
	return m, nil
}

// Graph returns the graph being merged.
func (m *Merger) Graph() *rag.Graph { return m.graph }

// MergeTree returns the raw per-pixel stamps: 0 for pixels never stamped,
// otherwise the id of the region whose creation removed that boundary pixel.
func (m *Merger) MergeTree() []int { return m.tree }

// Stats returns the counters collected so far.
func (m *Merger) Stats() Stats {
	s := m.stats
	s.StaleEntries = m.queue.stale
	return s
}

// Run performs the small-region pass, the greedy pass and finalization.
func (m *Merger) Run() (*Result, error) {
	m.logger.Infow("merging small regions first", "threshold", m.cfg.SmallRegionThreshold)
	small := m.MergeSmallRegions()

	m.logger.Infow("merging other regions", "active", m.graph.ActiveCount(), "queued", m.queue.len())
	greedy := m.MergeGreedy()

	m.logger.Infow("merging done",
		"small_region_merges", small,
		"greedy_merges", greedy,
		"roots", m.graph.ActiveCount(),
		"stale_entries", m.queue.stale)

	return Finalize(m.graph, m.tree)
}

// MergeSmallRegions merges every region of at most SmallRegionThreshold
// pixels with the neighbor across its lowest-scored live edge. Regions are
// visited in id order; ties between equally scored edges go to the edge that
// was added to the region first. Regions produced here that are still small
// are visited as well, so at the fixed point no two adjacent active regions
// are both small. It returns the number of merges.
func (m *Merger) MergeSmallRegions() int {
	threshold := m.cfg.SmallRegionThreshold

	var small []rag.RegionID
	for i := 0; i < m.graph.NumRegions(); i++ {
		r := m.graph.Region(rag.RegionID(i))
		if r.Parent == rag.NoRegion && r.Size <= threshold {
			small = append(small, r.ID)
		}
	}

	merges := 0
	for {
		passMerges := 0
		// small may grow while iterating
		for i := 0; i < len(small); i++ {
			region := small[i]
			if !m.graph.IsActive(region) {
				continue
			}

			best := m.lowestLiveEdge(region)
			if best == rag.NoEdge {
				continue
			}

			edge := m.graph.Edge(best)
			u, v, score := edge.U, edge.V, edge.Score
			merged := m.mergeEdge(best)

			m.logger.Debugw("merged small regions", "a", u, "b", v, "score", score, "into", merged)

			if m.graph.Region(merged).Size <= threshold {
				small = append(small, merged)
			}
			passMerges++
		}
		merges += passMerges
		if passMerges == 0 {
			break
		}
	}

	m.stats.SmallRegionMerges += merges
	return merges
}

// lowestLiveEdge returns the live incident edge of region with the lowest
// score, preferring earlier edges on ties, or rag.NoEdge.
func (m *Merger) lowestLiveEdge(region rag.RegionID) rag.EdgeID {
	best := rag.NoEdge
	bestScore := 0.0
	for _, e := range m.graph.IncidentEdges(region) {
		if !m.graph.IsLive(e) {
			continue
		}
		if s := m.graph.Edge(e).Score; best == rag.NoEdge || s < bestScore {
			best, bestScore = e, s
		}
	}
	return best
}

// MergeGreedy merges the endpoints of the lowest-scored live edge until no
// live edge is left in the queue. It returns the number of merges.
func (m *Merger) MergeGreedy() int {
	merges := 0
	for {
		next, score, ok := m.queue.pop(m.graph.IsLive)
		if !ok {
			break
		}
		edge := m.graph.Edge(next)
		u, v := edge.U, edge.V
		merged := m.mergeEdge(next)
		merges++

		m.logger.Debugw("merged regions", "a", u, "b", v, "score", score, "into", merged)
	}
	m.stats.GreedyMerges += merges
	return merges
}

// Merge merges two active regions and returns the new region, or
// rag.NoRegion if they are not adjacent. Merging a region that already has a
// parent panics.
func (m *Merger) Merge(a, b rag.RegionID) rag.RegionID {
	m.mustBeActive(a)
	m.mustBeActive(b)

	e := m.graph.FindEdge(a, b)
	if e == rag.NoEdge {
		return rag.NoRegion
	}
	return m.mergeEdge(e)
}

func (m *Merger) mustBeActive(id rag.RegionID) {
	if r := m.graph.Region(id); r.Parent != rag.NoRegion {
		panic(fmt.Sprintf("mergetree: region %d was already merged into %d", id, r.Parent))
	}
}

// mergeEdge creates c = a + b for the endpoints of e, connects c to the live
// neighbors of a and b and scores every edge of c.
func (m *Merger) mergeEdge(e rag.EdgeID) rag.RegionID {
	edge := m.graph.Edge(e)
	a, b := edge.U, edge.V
	m.mustBeActive(a)
	m.mustBeActive(b)

	c := m.graph.AddRegion(-1, m.graph.Region(a).Size+m.graph.Region(b).Size)

	if m.cfg.StampBoundaries {
		for _, ge := range m.graph.Edge(e).Affiliated {
			m.tree[ge.Min()] = int(c)
		}
	}

	// neighbors must be collected while a and b are still active
	neighborsA, edgesA := m.graph.LiveNeighbors(a)
	neighborsB, edgesB := m.graph.LiveNeighbors(b)

	m.graph.SetParent(a, c)
	m.graph.SetParent(b, c)

	var touched []rag.EdgeID
	connect := func(neighbors []rag.RegionID, edges []rag.EdgeID, other rag.RegionID) {
		for i, n := range neighbors {
			if n == other {
				continue
			}
			ce := m.graph.FindEdge(c, n)
			if ce == rag.NoEdge {
				ce = m.graph.AddEdge(c, n)
				touched = append(touched, ce)
			}
			affiliated := m.graph.Edge(edges[i]).Affiliated
			target := m.graph.Edge(ce)
			target.Affiliated = append(target.Affiliated, affiliated...)
		}
	}
	connect(neighborsA, edgesA, b)
	connect(neighborsB, edgesB, a)

	m.score.OnMerge(m.graph, m.graph.Edge(e), c)

	for _, ce := range touched {
		m.scoreEdge(ce)
	}
	return c
}

func (m *Merger) scoreEdge(id rag.EdgeID) {
	s := m.score.Score(m.graph, m.graph.Edge(id))
	edge := m.graph.Edge(id)
	edge.Score = s
	edge.Scored = true
	m.queue.push(id, s)
	m.stats.EdgesScored++
}
