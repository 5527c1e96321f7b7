// Package forest implements a randomized-projection tree forest for
// approximate nearest neighbor search over a static vector store.
//
// A forest is an ordered collection of independently randomized binary
// space-partitioning trees. Each internal node owns one hyperplane split;
// each leaf owns a bounded list of item ids. Trees are immutable after
// Build and safe for unsynchronized concurrent queries.
package forest

import (
	"errors"
	"fmt"

	"github.com/hupe1980/annforest/distance"
)

var (
	// ErrEmptyStore is returned when building from, or searching
	// against, a store with no items.
	ErrEmptyStore = errors.New("forest: store has no items")

	// ErrInvalidK is returned when a search requests a non-positive k.
	ErrInvalidK = errors.New("forest: k must be positive")
)

// ErrInvalidConfig indicates an out-of-range build parameter.
type ErrInvalidConfig struct {
	Param string
	Value int
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("forest: invalid %s: %d", e.Param, e.Value)
}

// ErrDimensionMismatch indicates a query or store whose dimensionality
// differs from the forest's.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("forest: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// NoChild marks a node slot without a child. Leaf nodes carry it in both
// child links.
const NoChild int32 = -1

// Node is one arena slot of a tree: either an internal node (hyperplane
// split plus two child indexes) or a leaf (item id list).
//
// The arena-of-nodes representation with index links keeps the strict
// parent-owns-children hierarchy free of pointers and cycles.
type Node struct {
	// Left and Right index into the owning tree's node arena.
	// Both are NoChild for leaves.
	Left  int32
	Right int32

	// Normal and Offset define the splitting hyperplane of an internal
	// node: items with dot(v, Normal) > Offset fall to the right child.
	Normal []float32
	Offset float32

	// Items holds the ids stored at a leaf.
	Items []uint32
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool {
	return n.Left == NoChild
}

// Tree is one randomized partition of the item set, stored as a node
// arena with the root at index 0.
type Tree struct {
	Nodes []Node
}

// Root returns the root node index. Trees always have at least one node.
func (t *Tree) Root() int32 { return 0 }

// Forest is an immutable collection of randomized trees over the same
// item set, together with the configuration the trees were built under.
type Forest struct {
	dimension    int
	metric       distance.Metric
	leafCapacity int
	seed         uint64
	trees        []Tree
}

// Dimension returns the vector dimensionality the forest was built for.
func (f *Forest) Dimension() int { return f.dimension }

// Metric returns the distance metric used for exact re-ranking.
func (f *Forest) Metric() distance.Metric { return f.metric }

// TreeCount returns the number of trees in the forest.
func (f *Forest) TreeCount() int { return len(f.trees) }

// LeafCapacity returns the maximum leaf size the forest was built with.
func (f *Forest) LeafCapacity() int { return f.leafCapacity }

// Seed returns the build seed.
func (f *Forest) Seed() uint64 { return f.seed }

// Trees exposes the underlying trees. The returned slice and everything
// it references must be treated as read-only.
func (f *Forest) Trees() []Tree { return f.trees }

// Restore assembles a forest from previously persisted parts.
//
// It validates the same invariants Build guarantees: a supported metric,
// positive dimension and leaf capacity, and at least one tree with at
// least one node each.
func Restore(dimension int, metric distance.Metric, leafCapacity int, seed uint64, trees []Tree) (*Forest, error) {
	if dimension < 1 {
		return nil, &ErrInvalidConfig{Param: "dimension", Value: dimension}
	}
	if leafCapacity < 1 {
		return nil, &ErrInvalidConfig{Param: "leaf capacity", Value: leafCapacity}
	}
	if !metric.Valid() {
		return nil, &ErrInvalidConfig{Param: "metric", Value: int(metric)}
	}
	if len(trees) < 1 {
		return nil, &ErrInvalidConfig{Param: "tree count", Value: len(trees)}
	}
	for i := range trees {
		if len(trees[i].Nodes) == 0 {
			return nil, fmt.Errorf("forest: tree %d has no nodes", i)
		}
	}

	return &Forest{
		dimension:    dimension,
		metric:       metric,
		leafCapacity: leafCapacity,
		seed:         seed,
		trees:        trees,
	}, nil
}
