/*
Package json decodes the JSON node structures found in model exports
into trees.
*/
package json

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/pbanos/arboretum/feature"
	fjson "github.com/pbanos/arboretum/feature/json"
	"github.com/pbanos/arboretum/tree"
)

/*
Node is the JSON representation of an exported node. Its children are
nested node objects. The distribution of the node's training instances
is found in objective_summary or, for older exports, in distribution.
*/
type Node struct {
	ID               int             `json:"id"`
	Predicate        json.RawMessage `json:"predicate"`
	Children         []*Node         `json:"children,omitempty"`
	Output           interface{}     `json:"output"`
	Count            int             `json:"count"`
	Confidence       *float64        `json:"confidence,omitempty"`
	ObjectiveSummary *Summary        `json:"objective_summary,omitempty"`
	Distribution     [][]interface{} `json:"distribution,omitempty"`
	Median           *float64        `json:"median,omitempty"`
	Minimum          *float64        `json:"minimum,omitempty"`
	Maximum          *float64        `json:"maximum,omitempty"`
}

// Summary is the JSON representation of a node's objective summary.
// Each of its lists holds [value, count] pairs.
type Summary struct {
	Categories [][]interface{} `json:"categories,omitempty"`
	Bins       [][]interface{} `json:"bins,omitempty"`
	Counts     [][]interface{} `json:"counts,omitempty"`
}

/*
Nodes takes the JSON representation of a root node and whether it
belongs to a regression tree and returns the arena of nodes it
represents, with the root at index 0 and every child after its
parent.
*/
func (jn *Node) Nodes(regression bool) ([]tree.Node, error) {
	var nodes []tree.Node
	var add func(*Node) (int, error)
	add = func(n *Node) (int, error) {
		tn, err := n.node(regression)
		if err != nil {
			return 0, err
		}
		i := len(nodes)
		nodes = append(nodes, tn)
		children := make([]int, 0, len(n.Children))
		for _, c := range n.Children {
			ci, err := add(c)
			if err != nil {
				return 0, err
			}
			children = append(children, ci)
		}
		if len(children) > 0 {
			nodes[i].Children = children
		}
		return i, nil
	}
	if _, err := add(jn); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (jn *Node) node(regression bool) (tree.Node, error) {
	n := tree.Node{
		ID:         jn.ID,
		Count:      jn.Count,
		Confidence: orNaN(jn.Confidence),
		Median:     orNaN(jn.Median),
		Min:        orNaN(jn.Minimum),
		Max:        orNaN(jn.Maximum),
	}
	if len(jn.Predicate) > 0 {
		p, err := fjson.DecodePredicate(jn.Predicate)
		if err != nil {
			return n, fmt.Errorf("decoding node %d: %v", jn.ID, err)
		}
		n.Predicate = p
	}
	output, err := value(jn.Output, regression)
	if err != nil {
		return n, fmt.Errorf("decoding node %d output: %v", jn.ID, err)
	}
	n.Output = output
	pairs := jn.Distribution
	if s := jn.ObjectiveSummary; s != nil {
		switch {
		case len(s.Categories) > 0:
			pairs = s.Categories
		case len(s.Bins) > 0:
			pairs = s.Bins
		case len(s.Counts) > 0:
			pairs = s.Counts
		}
	}
	for _, pair := range pairs {
		if len(pair) != 2 {
			return n, fmt.Errorf("decoding node %d distribution: expected [value, count] pair, got %v", jn.ID, pair)
		}
		v, err := value(pair[0], regression)
		if err != nil {
			return n, fmt.Errorf("decoding node %d distribution: %v", jn.ID, err)
		}
		count, ok := feature.ToFloat(pair[1])
		if !ok {
			return n, fmt.Errorf("decoding node %d distribution: invalid count %v", jn.ID, pair[1])
		}
		n.Distribution = append(n.Distribution, tree.Bin{Value: v, Count: count})
	}
	return n, nil
}

func value(v interface{}, regression bool) (interface{}, error) {
	if regression {
		f, ok := feature.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %v", v)
		}
		return f, nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	if f, ok := feature.ToFloat(v); ok {
		return feature.Cast(&feature.Field{Optype: feature.Categorical}, f)
	}
	return fmt.Sprintf("%v", v), nil
}

func orNaN(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}

/*
DecodeTree takes a slice of bytes with the JSON representation of a
root node, the catalog of fields its predicates refer to, the ID of
the objective field and whether the tree is a regression tree, and
returns the decoded tree.
*/
func DecodeTree(data []byte, fields *feature.Catalog, objectiveID string, regression bool) (*tree.Tree, error) {
	jn := &Node{}
	if err := json.Unmarshal(data, jn); err != nil {
		return nil, fmt.Errorf("decoding tree: %v", err)
	}
	return jn.Tree(fields, objectiveID, regression)
}

// Tree returns the tree rooted at the JSON node
func (jn *Node) Tree(fields *feature.Catalog, objectiveID string, regression bool) (*tree.Tree, error) {
	nodes, err := jn.Nodes(regression)
	if err != nil {
		return nil, err
	}
	return tree.New(nodes, fields, objectiveID, regression)
}

/*
ReadTree takes an io.Reader, a catalog of fields, an objective field ID
and whether the tree is a regression tree and decodes a tree from the
JSON root node read from the io.Reader.
*/
func ReadTree(r io.Reader, fields *feature.Catalog, objectiveID string, regression bool) (*tree.Tree, error) {
	jn := &Node{}
	if err := json.NewDecoder(r).Decode(jn); err != nil {
		return nil, fmt.Errorf("reading tree: %v", err)
	}
	return jn.Tree(fields, objectiveID, regression)
}
