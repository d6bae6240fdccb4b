package mergetree

import (
	"github.com/pkg/errors"

	"github.com/ironsheep/image-mergetree/internal/rag"
)

// Forest is a read-only view of a merged graph as a binary forest.
type Forest struct {
	graph *rag.Graph
	dist  []int
}

// NewForest wraps a merged graph and its leaf distances.
func NewForest(graph *rag.Graph, leafDistances []int) *Forest {
	return &Forest{graph: graph, dist: leafDistances}
}

// Roots returns the regions without a parent.
func (f *Forest) Roots() []rag.RegionID { return f.graph.Roots() }

// Children returns the children of a region; empty for leaves.
func (f *Forest) Children(id rag.RegionID) []rag.RegionID {
	return f.graph.Region(id).Children
}

// Parent returns the parent of a region, or rag.NoRegion for roots.
func (f *Forest) Parent(id rag.RegionID) rag.RegionID {
	return f.graph.Region(id).Parent
}

// LeafDistance returns the height of a region above its deepest leaf.
func (f *Forest) LeafDistance(id rag.RegionID) int { return f.dist[id] }

// Leaves returns all leaf regions in id order.
func (f *Forest) Leaves() []rag.RegionID {
	var leaves []rag.RegionID
	for i := 0; i < f.graph.NumRegions(); i++ {
		if f.graph.Region(rag.RegionID(i)).IsLeaf() {
			leaves = append(leaves, rag.RegionID(i))
		}
	}
	return leaves
}

// Ancestors returns the chain of parents above id, nearest first.
func (f *Forest) Ancestors(id rag.RegionID) []rag.RegionID {
	var out []rag.RegionID
	for p := f.Parent(id); p != rag.NoRegion; p = f.Parent(p) {
		out = append(out, p)
	}
	return out
}

// ConflictSet is a group of nested candidate regions of which at most one can
// be part of a segmentation.
type ConflictSet struct {
	// Leaf is the region the set was grown from, Label its initial label.
	Leaf  rag.RegionID `json:"leaf"`
	Label int          `json:"label"`

	// Regions lists the leaf and its ancestors, bottom up.
	Regions []rag.RegionID `json:"regions"`
}

// ConflictSets returns one conflict set per leaf: the leaf and every ancestor
// whose leaf distance is at most maxHeight. A maxHeight of 0 or less keeps
// the whole path to the root.
func (f *Forest) ConflictSets(maxHeight int) []ConflictSet {
	leaves := f.Leaves()
	sets := make([]ConflictSet, 0, len(leaves))
	for _, leaf := range leaves {
		regions := []rag.RegionID{leaf}
		for _, a := range f.Ancestors(leaf) {
			if maxHeight > 0 && f.dist[a] > maxHeight {
				break
			}
			regions = append(regions, a)
		}
		sets = append(sets, ConflictSet{
			Leaf:    leaf,
			Label:   f.graph.Region(leaf).Label,
			Regions: regions,
		})
	}
	return sets
}

// Validate checks that the forest is well formed: every parent chain ends in
// a root, every merged region has exactly two children that point back to it,
// and every region's size is the sum of its children's.
func (f *Forest) Validate() error {
	n := f.graph.NumRegions()
	for i := 0; i < n; i++ {
		id := rag.RegionID(i)
		r := f.graph.Region(id)

		steps := 0
		for p := r.Parent; p != rag.NoRegion; p = f.Parent(p) {
			if steps++; steps > n {
				return errors.Errorf("mergetree: cycle above region %d", id)
			}
		}

		if r.IsLeaf() {
			continue
		}
		if len(r.Children) != 2 {
			return errors.Errorf("mergetree: region %d has %d children", id, len(r.Children))
		}
		size := 0
		for _, c := range r.Children {
			if f.Parent(c) != id {
				return errors.Errorf("mergetree: child %d of region %d points to %d", c, id, f.Parent(c))
			}
			size += f.graph.Region(c).Size
		}
		if size != r.Size {
			return errors.Errorf("mergetree: region %d has size %d, children sum to %d", id, r.Size, size)
		}
	}
	return nil
}
