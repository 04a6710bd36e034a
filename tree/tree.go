package tree

import (
	"fmt"
	"math"
	"strings"

	"github.com/pbanos/arboretum/feature"
)

// MissingStrategy is the way a tree handles samples missing
// the field its nodes split on
type MissingStrategy int

const (
	// LastPrediction stops at the node whose children split on
	// the missing field and uses its prediction
	LastPrediction MissingStrategy = iota
	// Proportional follows every child of the node whose children
	// split on the missing field and merges their distributions
	Proportional
)

func (ms MissingStrategy) String() string {
	switch ms {
	case LastPrediction:
		return "last"
	case Proportional:
		return "proportional"
	}
	return fmt.Sprintf("MissingStrategy(%d)", int(ms))
}

// ParseMissingStrategy takes a strategy name and returns the
// corresponding MissingStrategy
func ParseMissingStrategy(name string) (MissingStrategy, error) {
	switch strings.ToLower(name) {
	case "", "last", "last_prediction":
		return LastPrediction, nil
	case "proportional":
		return Proportional, nil
	}
	return 0, fmt.Errorf("unknown missing strategy %q", name)
}

// Error is the type of the errors the tree package returns
type Error string

func (te Error) Error() string {
	return string(te)
}

// ErrMalformedTree is returned when the nodes given to New do not
// form a tree
const ErrMalformedTree = Error("malformed tree")

/*
Tree represents a decision tree: an arena of nodes where the node at
index 0 is the root and every other node is referenced as the child
of exactly one node. It also holds the catalog of fields its
predicates refer to, the ID of the objective field it predicts and
whether it is a regression tree.

A Tree is never modified after construction and can be used
concurrently.
*/
type Tree struct {
	nodes       []Node
	Fields      *feature.Catalog
	ObjectiveID string
	Regression  bool
	// The z-score used when computing confidences. DefaultZ if 0.
	Z float64
}

/*
New takes a slice of nodes, a field catalog, an objective field ID and
whether the tree is a regression tree, and returns a Tree over the
nodes, with the node at index 0 as root. It computes each node's parent
and depth and returns an ErrMalformedTree error if the slice is empty,
a child index is out of range, a child lacks a predicate or a node is
referenced more than once or not at all.
*/
func New(nodes []Node, fields *feature.Catalog, objectiveID string, regression bool) (*Tree, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrMalformedTree)
	}
	t := &Tree{nodes: nodes, Fields: fields, ObjectiveID: objectiveID, Regression: regression}
	for i := range t.nodes {
		t.nodes[i].parent = -2
	}
	t.nodes[0].parent = -1
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range t.nodes[i].Children {
			if c <= 0 || c >= len(t.nodes) {
				return nil, fmt.Errorf("%w: node %d has child index %d out of range", ErrMalformedTree, t.nodes[i].ID, c)
			}
			if t.nodes[c].Predicate == nil {
				return nil, fmt.Errorf("%w: node %d has no predicate", ErrMalformedTree, t.nodes[c].ID)
			}
			if t.nodes[c].parent != -2 {
				return nil, fmt.Errorf("%w: node %d is referenced twice", ErrMalformedTree, t.nodes[c].ID)
			}
			t.nodes[c].parent = i
			t.nodes[c].depth = t.nodes[i].depth + 1
			stack = append(stack, c)
		}
	}
	for i := range t.nodes {
		if t.nodes[i].parent == -2 {
			return nil, fmt.Errorf("%w: node %d is unreachable", ErrMalformedTree, t.nodes[i].ID)
		}
	}
	return t, nil
}

// Len returns the number of nodes in the tree
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node at the given index
func (t *Tree) Node(i int) *Node { return &t.nodes[i] }

// Root returns the root node of the tree
func (t *Tree) Root() *Node { return &t.nodes[0] }

func (t *Tree) z() float64 {
	if t.Z == 0 {
		return DefaultZ
	}
	return t.Z
}

/*
Predict takes a sample and a missing strategy and returns the
prediction of the tree for the sample.
*/
func (t *Tree) Predict(s feature.Sample, ms MissingStrategy) (*Prediction, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tree cannot predict samples")
	}
	if ms == Proportional {
		return t.predictProportional(s)
	}
	return t.predictLast(s), nil
}

func (t *Tree) predictLast(s feature.Sample) *Prediction {
	var path []*feature.Predicate
	i := 0
	for {
		next := -1
		for _, c := range t.nodes[i].Children {
			if t.nodes[c].Predicate.Matches(t.Fields, s) {
				next = c
				break
			}
		}
		if next < 0 {
			break
		}
		path = append(path, t.nodes[next].Predicate)
		i = next
	}
	return t.nodePrediction(i, path)
}

func (t *Tree) nodePrediction(i int, path []*feature.Predicate) *Prediction {
	n := &t.nodes[i]
	p := NewPrediction(n.Output)
	p.Confidence = n.Confidence
	p.Distribution = n.Distribution.Copy()
	p.DistributionUnit = CategoricalUnit
	p.Count = n.Count
	p.Path = path
	if t.Regression {
		p.DistributionUnit = CountsUnit
		if len(p.Distribution) > BinsLimit {
			p.DistributionUnit = BinsUnit
		}
		p.Median, p.Min, p.Max = n.Median, n.Min, n.Max
	} else if total := n.Distribution.Total(); total > 0 {
		p.Probability = Round(n.Distribution.CountOf(n.Output) / total)
	}
	p.NextField = t.splitField(i)
	return p
}

// splitField returns the ID of the field the children of the node at
// index i split on, "" for leaves
func (t *Tree) splitField(i int) string {
	for _, c := range t.nodes[i].Children {
		if pr := t.nodes[c].Predicate; pr != nil {
			return pr.Field
		}
	}
	return ""
}

// Leaves returns the indices of the leaves of the tree in depth
// first order
func (t *Tree) Leaves() []int {
	var result []int
	t.Traverse(false, func(i int) error {
		if t.nodes[i].IsLeaf() {
			result = append(result, i)
		}
		return nil
	})
	return result
}

/*
ImpureLeaves takes an impurity threshold and returns the indices of
the leaves whose Gini impurity is above it. Regression trees have no
impure leaves.
*/
func (t *Tree) ImpureLeaves(threshold float64) []int {
	if t.Regression {
		return nil
	}
	var result []int
	for _, i := range t.Leaves() {
		if t.nodes[i].GiniImpurity() > threshold {
			result = append(result, i)
		}
	}
	return result
}

/*
Path takes the index of a node and returns the predicates on the
way from the root of the tree to the node.
*/
func (t *Tree) Path(i int) []*feature.Predicate {
	var result []*feature.Predicate
	for ; i > 0; i = t.nodes[i].parent {
		result = append(result, t.nodes[i].Predicate)
	}
	for l, r := 0, len(result)-1; l < r; l, r = l+1, r-1 {
		result[l], result[r] = result[r], result[l]
	}
	return result
}

// Depth returns the depth of the deepest node in the tree
func (t *Tree) Depth() int {
	var result int
	for i := range t.nodes {
		if t.nodes[i].depth > result {
			result = t.nodes[i].depth
		}
	}
	return result
}

// Traverse takes a bottomup boolean and an error-returning function
// that takes a node index, and goes through the tree running the
// function with the index of every traversed node. The function
// is called for a parent node before its children if bottomup is
// false, and after them if bottomup is true. If the function returns
// an error, the traversing is aborted and the error is returned.
func (t *Tree) Traverse(bottomup bool, f func(int) error) error {
	return t.traverse(0, bottomup, f)
}

func (t *Tree) traverse(i int, bottomup bool, f func(int) error) error {
	if !bottomup {
		if err := f(i); err != nil {
			return err
		}
	}
	for _, c := range t.nodes[i].Children {
		if err := t.traverse(c, bottomup, f); err != nil {
			return err
		}
	}
	if bottomup {
		return f(i)
	}
	return nil
}

func (t *Tree) String() string {
	return t.subtreeString(0)
}

func (t *Tree) subtreeString(i int) string {
	n := &t.nodes[i]
	result := fmt.Sprintf("[%d]\n", n.ID)
	if n.Predicate != nil {
		result = fmt.Sprintf("%s{ %s }\n", result, n.Predicate.Rule(t.Fields))
	}
	result = fmt.Sprintf("%s{ %v }\n", result, t.outputString(n))
	if len(n.Children) > 0 {
		result = fmt.Sprintf("%s|\n", result)
	} else {
		result = fmt.Sprintf("%s \n", result)
	}
	for ci, c := range n.Children {
		for j, line := range strings.Split(t.subtreeString(c), "\n") {
			if len(line) > 0 {
				if j == 0 {
					result = fmt.Sprintf("%s|__%s\n", result, line)
				} else {
					if ci == len(n.Children)-1 {
						result = fmt.Sprintf("%s   %s\n", result, line)
					} else {
						result = fmt.Sprintf("%s|  %s\n", result, line)
					}
				}
			}
		}
	}
	return result
}

func (t *Tree) outputString(n *Node) string {
	if t.Regression {
		if math.IsNaN(n.Confidence) {
			return fmt.Sprintf("%v (%d instances)", n.Output, n.Count)
		}
		return fmt.Sprintf("%v (error %.5f, %d instances)", n.Output, n.Confidence, n.Count)
	}
	if math.IsNaN(n.Confidence) {
		return fmt.Sprintf("%v (%d instances)", n.Output, n.Count)
	}
	return fmt.Sprintf("%v (confidence %.5f, %d instances)", n.Output, n.Confidence, n.Count)
}
