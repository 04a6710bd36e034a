package tree

import (
	"fmt"
	"math"

	"github.com/pbanos/arboretum/feature"
)

/*
Node is a node of the tree
*/
type Node struct {
	// The ID the node had in the exported model
	ID int
	// The constraint samples must satisfy to reach this node
	// from its parent. It is nil for the root node.
	Predicate *feature.Predicate
	// The indices of the nodes directly under this node in the
	// tree's node slice
	Children []int
	// The prediction for samples that satisfied node constraints
	// from the root of the tree up to this node: a string label
	// for classification trees and a float64 for regression trees.
	Output interface{}
	// The number of training instances that reached the node
	Count int
	// The confidence of the output for classification trees and
	// its error for regression trees. NaN if the export lacked it.
	Confidence float64
	// The training instances that reached the node, grouped by
	// objective value (or bin, for regression trees)
	Distribution Distribution
	// Regression trees only statistics of the objective
	// values that reached the node. NaN when unknown.
	Median, Min, Max float64

	parent int
	depth  int
}

// IsLeaf returns whether the node has no children
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Parent returns the index of the node's parent or -1 for the root node
func (n *Node) Parent() int { return n.parent }

// Depth returns the number of edges from the root to the node
func (n *Node) Depth() int { return n.depth }

/*
GiniImpurity returns the Gini impurity of the node's distribution:
1 minus the sum of the squared share of each value.
*/
func (n *Node) GiniImpurity() float64 {
	total := n.Distribution.Total()
	if total == 0 {
		return 0
	}
	result := 1.0
	for _, b := range n.Distribution {
		share := b.Count / total
		result -= share * share
	}
	return result
}

// HasConfidence returns whether the node carries a confidence value
func (n *Node) HasConfidence() bool { return !math.IsNaN(n.Confidence) }

func (n *Node) String() string {
	return fmt.Sprintf("%v (count=%d, confidence=%.5f)", n.Output, n.Count, n.Confidence)
}
