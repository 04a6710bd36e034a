package tree

import (
	"math"

	"github.com/pbanos/arboretum/feature"
)

// proportionalResult is what the proportional strategy gathers
// while descending the tree
type proportionalResult struct {
	acc        Accumulator
	min, max   float64
	last       int
	parent     int
	population int
	path       []*feature.Predicate
	merged     bool
}

func (t *Tree) predictProportional(s feature.Sample) (*Prediction, error) {
	r := &proportionalResult{min: math.NaN(), max: math.NaN()}
	t.descendProportional(0, -1, s, false, r)
	if !r.merged {
		return t.nodePrediction(r.last, r.path), nil
	}
	if t.Regression {
		return t.regressionProportional(r), nil
	}
	d := r.acc.Distribution().SortByCount()
	if len(d) == 0 {
		return t.nodePrediction(r.last, r.path), nil
	}
	p := NewPrediction(d[0].Value)
	confidence, err := WSConfidence(d[0].Value, d, t.z(), float64(r.population))
	if err != nil {
		return nil, err
	}
	p.Confidence = confidence
	p.Probability = Round(d[0].Count / d.Total())
	p.Distribution = d
	p.DistributionUnit = CategoricalUnit
	p.Count = r.population
	p.Path = r.path
	p.NextField = t.splitField(r.last)
	return p, nil
}

func (t *Tree) regressionProportional(r *proportionalResult) *Prediction {
	d, _ := r.acc.Distribution().Numeric()
	if len(d) == 0 || (len(d) == 1 && d[0].Count == 1) {
		return t.nodePrediction(r.last, r.path)
	}
	d = d.SortByValue()
	unit := CountsUnit
	if len(d) > BinsLimit {
		unit = BinsUnit
	}
	d = MergeBins(d, BinsLimit)
	total := d.Total()
	var p *Prediction
	if len(d) == 1 {
		p = NewPrediction(d[0].Value)
		if total < 2 {
			total = 1
		}
		if r.parent >= 0 {
			p.Confidence = Round(t.nodes[r.parent].Confidence / math.Sqrt(total))
		}
	} else {
		p = NewPrediction(Mean(d))
		p.Confidence = Round(RegressionError(Variance(d), total, t.z()))
	}
	p.Distribution = d
	p.DistributionUnit = unit
	p.Count = int(total)
	p.Path = r.path
	p.Median = Median(d, total)
	p.Min, p.Max = r.min, r.max
	p.NextField = t.splitField(r.last)
	return p
}

/*
descendProportional walks the subtree at index i. Where the sample
lets it choose a single child it follows it, otherwise it follows all
of them and merges what the leaves they reach hold. Predicates are
added to the path only while a single branch is being followed.
*/
func (t *Tree) descendProportional(i, parent int, s feature.Sample, missingFound bool, r *proportionalResult) {
	n := &t.nodes[i]
	if n.IsLeaf() {
		t.collect(i, parent, r)
		return
	}
	if t.oneBranch(i, s) {
		for _, c := range n.Children {
			pr := t.nodes[c].Predicate
			if pr.Matches(t.Fields, s) {
				if !missingFound {
					r.path = append(r.path, pr)
				}
				t.descendProportional(c, i, s, missingFound, r)
				return
			}
		}
		t.collect(i, parent, r)
		return
	}
	r.merged = true
	for _, c := range n.Children {
		t.descendProportional(c, i, s, true, r)
	}
	r.last, r.parent = i, i
}

// collect merges the distribution and statistics of the node at
// index i into the result
func (t *Tree) collect(i, parent int, r *proportionalResult) {
	n := &t.nodes[i]
	r.acc.Add(n.Distribution)
	if !math.IsNaN(n.Min) && (math.IsNaN(r.min) || n.Min < r.min) {
		r.min = n.Min
	}
	if !math.IsNaN(n.Max) && (math.IsNaN(r.max) || n.Max > r.max) {
		r.max = n.Max
	}
	r.population += n.Count
	r.last, r.parent = i, parent
}

/*
oneBranch returns whether a single child of the node at index i has to
be followed for the sample: the field its children split on is present
in the sample, one of them is a missing branch or tests for a missing
value, or the field is a text or items field.
*/
func (t *Tree) oneBranch(i int, s feature.Sample) bool {
	id := t.splitField(i)
	if _, ok := s.ValueFor(id); ok {
		return true
	}
	for _, c := range t.nodes[i].Children {
		pr := t.nodes[c].Predicate
		if pr == nil || pr.Missing || pr.Value == nil {
			return true
		}
	}
	if f := t.Fields.Field(id); f != nil && (f.Optype == feature.Text || f.Optype == feature.Items) {
		return true
	}
	return false
}
