// Package grid models the pixel lattice of a 2D image as an implicit graph.
//
// Pixels are addressed by their row-major linear index (y*Width + x). The grid
// never stores its edges; Edges enumerates them on demand in a fixed order,
// which makes every consumer of the enumeration deterministic.
package grid

import (
	"github.com/pkg/errors"
)

// Connectivity selects which neighboring pixels are considered adjacent.
type Connectivity int

const (
	// Direct connects each pixel to its left, right, upper and lower neighbor.
	Direct Connectivity = 4

	// Indirect additionally connects the four diagonal neighbors.
	Indirect Connectivity = 8
)

// ParseConnectivity converts a neighborhood size (4 or 8) into a Connectivity.
func ParseConnectivity(n int) (Connectivity, error) {
	switch Connectivity(n) {
	case Direct, Indirect:
		return Connectivity(n), nil
	default:
		return 0, errors.Errorf("grid: connectivity must be 4 or 8, got %d", n)
	}
}

// Edge is a pair of adjacent pixels, stored as linear indices with P < Q.
type Edge struct {
	P int `json:"p"`
	Q int `json:"q"`
}

// Min returns the smaller pixel index of the edge.
func (e Edge) Min() int { return e.P }

// Grid is a width x height pixel lattice.
type Grid struct {
	Width        int
	Height       int
	Connectivity Connectivity
}

// New returns a grid of the given size. A zero connectivity defaults to Direct.
func New(width, height int, conn Connectivity) (Grid, error) {
	if width <= 0 || height <= 0 {
		return Grid{}, errors.Errorf("grid: invalid dimensions %dx%d", width, height)
	}
	if conn == 0 {
		conn = Direct
	}
	if _, err := ParseConnectivity(int(conn)); err != nil {
		return Grid{}, err
	}
	return Grid{Width: width, Height: height, Connectivity: conn}, nil
}

// Size returns the number of pixels.
func (g Grid) Size() int { return g.Width * g.Height }

// Index returns the linear index of pixel (x, y).
func (g Grid) Index(x, y int) int { return y*g.Width + x }

// Coord returns the (x, y) position of a linear pixel index.
func (g Grid) Coord(i int) (x, y int) { return i % g.Width, i / g.Width }

// Contains reports whether (x, y) lies inside the grid.
func (g Grid) Contains(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// forward offsets: each undirected edge is produced once, from its lower index.
var (
	directOffsets   = [][2]int{{1, 0}, {0, 1}}
	indirectOffsets = [][2]int{{1, 0}, {-1, 1}, {0, 1}, {1, 1}}
)

// Edges calls fn for every grid edge in row-major order of the lower pixel.
// Iteration stops early if fn returns false.
func (g Grid) Edges(fn func(Edge) bool) {
	offsets := directOffsets
	if g.Connectivity == Indirect {
		offsets = indirectOffsets
	}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			p := g.Index(x, y)
			for _, o := range offsets {
				nx, ny := x+o[0], y+o[1]
				if !g.Contains(nx, ny) {
					continue
				}
				if !fn(Edge{P: p, Q: g.Index(nx, ny)}) {
					return
				}
			}
		}
	}
}

// Neighbors returns the linear indices of the pixels adjacent to i.
func (g Grid) Neighbors(i int) []int {
	x, y := g.Coord(i)
	out := make([]int, 0, int(g.Connectivity))
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if g.Connectivity == Direct && dx != 0 && dy != 0 {
				continue
			}
			if g.Contains(x+dx, y+dy) {
				out = append(out, g.Index(x+dx, y+dy))
			}
		}
	}
	return out
}

// NumEdges returns the number of grid edges without enumerating them.
func (g Grid) NumEdges() int {
	w, h := g.Width, g.Height
	n := (w-1)*h + w*(h-1)
	if g.Connectivity == Indirect {
		n += 2 * (w - 1) * (h - 1)
	}
	return n
}
