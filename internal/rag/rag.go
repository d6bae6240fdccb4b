// Package rag implements a mutable region adjacency graph over a pixel grid.
//
// Regions live in an arena and are addressed by RegionID. A region is active
// until it receives a parent; after that it is retired but stays in the arena
// so the merge forest can be walked. Edges are never removed either: an edge
// whose endpoints are not both active is simply dead.
package rag

import (
	"fmt"

	"github.com/ironsheep/image-mergetree/internal/grid"
)

// RegionID addresses a region in the graph's arena.
type RegionID int

// NoRegion marks an absent region (no parent, failed lookup).
const NoRegion RegionID = -1

// EdgeID addresses an edge in the graph's arena.
type EdgeID int

// NoEdge marks a failed edge lookup.
const NoEdge EdgeID = -1

// Region is a node of the adjacency graph and of the merge forest.
type Region struct {
	ID RegionID

	// Label is the value of the initial label image for leaves, -1 for
	// regions created by merges.
	Label int

	// Size is the number of pixels covered by the region.
	Size int

	Parent   RegionID
	Children []RegionID

	edges []EdgeID
}

// IsLeaf reports whether the region came from the initial labeling.
func (r *Region) IsLeaf() bool { return len(r.Children) == 0 }

// Edge connects two regions that share at least one pixel adjacency.
type Edge struct {
	ID EdgeID
	U  RegionID
	V  RegionID

	// Affiliated lists the grid edges that realize this adjacency.
	Affiliated []grid.Edge

	Score  float64
	Scored bool
}

type regionPair struct {
	a, b RegionID
}

func pairOf(a, b RegionID) regionPair {
	if a > b {
		a, b = b, a
	}
	return regionPair{a, b}
}

// Graph is the region adjacency graph.
type Graph struct {
	grid    grid.Grid
	regions []Region
	edges   []Edge
	lookup  map[regionPair]EdgeID
	byLabel map[int]RegionID
	active  int
}

func newGraph(g grid.Grid) *Graph {
	return &Graph{
		grid:    g,
		lookup:  make(map[regionPair]EdgeID),
		byLabel: make(map[int]RegionID),
	}
}

// Grid returns the pixel grid the graph was built on.
func (g *Graph) Grid() grid.Grid { return g.grid }

// NumRegions returns the total number of regions, active and retired.
func (g *Graph) NumRegions() int { return len(g.regions) }

// NumEdges returns the total number of edges, live and dead.
func (g *Graph) NumEdges() int { return len(g.edges) }

// ActiveCount returns the number of regions without a parent.
func (g *Graph) ActiveCount() int { return g.active }

// Region returns the region with the given id. It panics on an unknown id.
func (g *Graph) Region(id RegionID) *Region {
	if id < 0 || int(id) >= len(g.regions) {
		panic(fmt.Sprintf("rag: unknown region %d", id))
	}
	return &g.regions[id]
}

// Edge returns the edge with the given id. It panics on an unknown id.
func (g *Graph) Edge(id EdgeID) *Edge {
	if id < 0 || int(id) >= len(g.edges) {
		panic(fmt.Sprintf("rag: unknown edge %d", id))
	}
	return &g.edges[id]
}

// RegionForLabel returns the leaf region created for an initial label.
func (g *Graph) RegionForLabel(label int) (RegionID, bool) {
	id, ok := g.byLabel[label]
	return id, ok
}

// IsActive reports whether the region has not been merged yet.
func (g *Graph) IsActive(id RegionID) bool {
	return g.Region(id).Parent == NoRegion
}

// IsLive reports whether both endpoints of the edge are active.
func (g *Graph) IsLive(id EdgeID) bool {
	e := g.Edge(id)
	return g.IsActive(e.U) && g.IsActive(e.V)
}

// FindEdge returns the edge between a and b, or NoEdge.
func (g *Graph) FindEdge(a, b RegionID) EdgeID {
	if id, ok := g.lookup[pairOf(a, b)]; ok {
		return id
	}
	return NoEdge
}

// IncidentEdges returns the edges of a region in insertion order. The slice
// is owned by the graph and must not be modified.
func (g *Graph) IncidentEdges(id RegionID) []EdgeID {
	return g.Region(id).edges
}

// Other returns the endpoint of e that is not id.
func (g *Graph) Other(e EdgeID, id RegionID) RegionID {
	edge := g.Edge(e)
	if edge.U == id {
		return edge.V
	}
	return edge.U
}

// AddRegion appends a new active region of the given size and returns its id.
func (g *Graph) AddRegion(label, size int) RegionID {
	id := RegionID(len(g.regions))
	g.regions = append(g.regions, Region{
		ID:     id,
		Label:  label,
		Size:   size,
		Parent: NoRegion,
	})
	g.active++
	return id
}

// AddEdge connects a and b and returns the new edge. If the edge already
// exists it is returned unchanged.
func (g *Graph) AddEdge(a, b RegionID) EdgeID {
	if a == b {
		panic(fmt.Sprintf("rag: self edge on region %d", a))
	}
	if id := g.FindEdge(a, b); id != NoEdge {
		return id
	}
	p := pairOf(a, b)
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, Edge{ID: id, U: p.a, V: p.b})
	g.lookup[p] = id
	g.regions[a].edges = append(g.regions[a].edges, id)
	g.regions[b].edges = append(g.regions[b].edges, id)
	return id
}

// SetParent retires child under parent. A region's parent is set exactly
// once; a second call is an engine bug and panics.
func (g *Graph) SetParent(child, parent RegionID) {
	c := g.Region(child)
	if c.Parent != NoRegion {
		panic(fmt.Sprintf("rag: region %d already merged into %d", child, c.Parent))
	}
	p := g.Region(parent)
	c.Parent = parent
	p.Children = append(p.Children, child)
	g.active--
}

// LiveNeighbors returns the active neighbors of an active region together
// with the connecting edges, in incident-edge order.
func (g *Graph) LiveNeighbors(id RegionID) ([]RegionID, []EdgeID) {
	var (
		neighbors []RegionID
		edges     []EdgeID
	)
	for _, e := range g.Region(id).edges {
		n := g.Other(e, id)
		if !g.IsActive(n) {
			continue
		}
		neighbors = append(neighbors, n)
		edges = append(edges, e)
	}
	return neighbors, edges
}

// Roots returns all regions without a parent, in id order.
func (g *Graph) Roots() []RegionID {
	roots := make([]RegionID, 0, g.active)
	for i := range g.regions {
		if g.regions[i].Parent == NoRegion {
			roots = append(roots, RegionID(i))
		}
	}
	return roots
}
