// Package mergetree builds a merge tree from a region adjacency graph by
// iterative region merging, and encodes the resulting forest as an image.
//
// # Algorithm
//
// Merging runs in two phases over a rag.Graph whose edges were scored by a
// scoring.Function:
//
//  1. Small-region pass: every region of at most Config.SmallRegionThreshold
//     pixels is merged with the neighbor across its lowest-scored live edge,
//     ignoring the global order. Passes repeat until one of them merges
//     nothing.
//
//  2. Greedy pass: the lowest-scored live edge is taken from a priority queue
//     and its endpoints are merged, until the queue holds no live edge.
//
// Each merge creates a new region as the parent of both endpoints, connects it
// to the union of their live neighbors and scores the new edges. The queue is
// lazily invalidated: entries whose endpoints were merged stay in the heap and
// are discarded when popped.
//
// # Merge-Tree Image
//
// While merging, the pixels on the boundary between two merged regions are
// stamped with the id of the new region. Finalize converts the stamps into
// leaf distances (the height of the region in the forest), and assigns all
// unstamped pixels maxDistance+1, yielding a 16-bit image in which a boundary
// is as dark as the level at which it vanished.
//
// # Errors
//
// Engine invariant violations, such as merging an already merged region,
// panic. A forest deeper than the 16-bit encoding can hold is reported as
// ErrDepthOverflow.
//
// # Thread Safety
//
// A Merger is not safe for concurrent use. It owns the graph it mutates.
package mergetree
