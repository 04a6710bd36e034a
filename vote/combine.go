package vote

import (
	"fmt"
	"math"
	"sort"

	"github.com/pbanos/arboretum/tree"
)

// errorRange is the range regression errors are scaled into before
// turning them into weights
const errorRange = 10

type weightFunc func(Vote) float64

func confidenceWeight(v Vote) float64 { return v.Confidence }

func probabilityWeight(v Vote) float64 { return v.Probability }

/*
average combines regression votes by the mean of their outputs. The
confidence is the mean of the votes' errors, the median the mean of
their medians and the distribution the merge of theirs.
*/
func (mv *MultiVote) average() *tree.Prediction {
	weights := make([]float64, len(mv.votes))
	for i := range weights {
		weights[i] = 1
	}
	return mv.weightedRegression(weights)
}

/*
errorWeighted combines regression votes by the weighted mean of
their outputs, where the weight of each vote is the exponential of
minus its error scaled into [0, errorRange] across the vote set.
All votes weigh the same if their errors are equal.
*/
func (mv *MultiVote) errorWeighted() *tree.Prediction {
	minErr, maxErr := math.Inf(1), math.Inf(-1)
	for _, v := range mv.votes {
		minErr = math.Min(minErr, v.Confidence)
		maxErr = math.Max(maxErr, v.Confidence)
	}
	weights := make([]float64, len(mv.votes))
	spread := maxErr - minErr
	for i, v := range mv.votes {
		weights[i] = 1
		if spread > 0 {
			weights[i] = math.Exp((minErr - v.Confidence) / spread * errorRange)
		}
	}
	return mv.weightedRegression(weights)
}

func (mv *MultiVote) weightedRegression(weights []float64) *tree.Prediction {
	var total, output, confidence, median float64
	var medians int
	count := 0
	dMin, dMax := math.Inf(1), math.Inf(-1)
	var acc tree.Accumulator
	unit := tree.CountsUnit
	for i, v := range mv.votes {
		w := weights[i]
		total += w
		output += v.Value() * w
		if v.HasConfidence() {
			confidence += v.Confidence * w
		}
		if !math.IsNaN(v.Median) {
			median += v.Median * w
			medians++
		}
		if !math.IsNaN(v.Min) {
			dMin = math.Min(dMin, v.Min)
		}
		if !math.IsNaN(v.Max) {
			dMax = math.Max(dMax, v.Max)
		}
		if v.DistributionUnit == tree.BinsUnit {
			unit = tree.BinsUnit
		}
		count += v.Count
		acc.Add(v.Distribution)
	}
	p := tree.NewPrediction(output / total)
	p.Confidence = tree.Round(confidence / total)
	p.Count = count
	if medians == len(mv.votes) {
		p.Median = median / total
	}
	if !math.IsInf(dMin, 1) {
		p.Min = dMin
	}
	if !math.IsInf(dMax, -1) {
		p.Max = dMax
	}
	if acc.Len() > 0 {
		d, _ := acc.Distribution().Numeric()
		d = d.SortByValue()
		if len(d) > tree.BinsLimit {
			unit = tree.BinsUnit
		}
		p.Distribution = tree.MergeBins(d, tree.BinsLimit)
		p.DistributionUnit = unit
	}
	return p
}

// category is the tally of a category in a classification combination
type category struct {
	label  string
	weight float64
	order  int
}

/*
combineCategorical combines classification votes by adding up the
weight of the votes for each category. The category with the greatest
weight wins; ties go to the category voted first and then to the
greatest label.
*/
func (mv *MultiVote) combineCategorical(weight weightFunc, opts *Options) (*tree.Prediction, error) {
	var tally []*category
	index := make(map[string]*category)
	count := 0
	for _, v := range mv.votes {
		w := 1.0
		if weight != nil {
			w = weight(v)
		}
		count += v.Count
		label := v.Label()
		c, ok := index[label]
		if !ok {
			c = &category{label: label, order: v.Order}
			index[label] = c
			tally = append(tally, c)
		}
		c.weight += w
	}
	sort.SliceStable(tally, func(i, j int) bool {
		if tally[i].weight != tally[j].weight {
			return tally[i].weight > tally[j].weight
		}
		if tally[i].order != tally[j].order {
			return tally[i].order < tally[j].order
		}
		return tally[i].label > tally[j].label
	})
	winner := tally[0].label
	p := tree.NewPrediction(winner)
	p.Count = count
	p.DistributionUnit = tree.CategoricalUnit
	for _, c := range tally {
		p.Distribution = append(p.Distribution, tree.Bin{Value: c.label, Count: c.weight})
	}
	d, n := mv.combineDistribution()
	if mv.allHaveConfidence() {
		p.Confidence = tree.Round(mv.weightedConfidence(winner, weight))
	} else if c, err := tree.WSConfidence(winner, d, opts.z(), n); err == nil {
		p.Confidence = c
	}
	if mv.allHaveProbability() && d.Total() > 0 {
		p.Probability = tree.Round(d.CountOf(winner) / d.Total())
	}
	return p, nil
}

func (mv *MultiVote) allHaveConfidence() bool {
	for _, v := range mv.votes {
		if !v.HasConfidence() {
			return false
		}
	}
	return true
}

func (mv *MultiVote) allHaveProbability() bool {
	for _, v := range mv.votes {
		if !v.HasProbability() {
			return false
		}
	}
	return true
}

// weightedConfidence returns the mean confidence of the votes for the
// given label, weighted by the given weight
func (mv *MultiVote) weightedConfidence(label string, weight weightFunc) float64 {
	var total, result float64
	for _, v := range mv.votes {
		if v.Label() != label {
			continue
		}
		w := 1.0
		if weight != nil {
			w = weight(v)
		}
		result += w * v.Confidence
		total += w
	}
	if total <= 0 {
		return math.NaN()
	}
	return result / total
}

/*
combineDistribution returns the distribution of the votes' categories,
weighted by their probability when all of them have one and counting
one per vote otherwise, along the total instance count of the votes.
*/
func (mv *MultiVote) combineDistribution() (tree.Distribution, float64) {
	var acc tree.Accumulator
	withProbability := mv.allHaveProbability()
	var n float64
	for _, v := range mv.votes {
		w := 1.0
		if withProbability {
			w = v.Probability
		}
		acc.Add(tree.Distribution{{Value: v.Label(), Count: w}})
		n += float64(v.Count)
	}
	return acc.Distribution(), n
}

/*
probabilityWeight returns a vote set holding, for each vote and each
category in its distribution, a vote for the category with its share
of the vote's instances as probability. These sub-votes keep the order
of the vote they come from.
*/
func (mv *MultiVote) probabilityWeight() (*MultiVote, error) {
	result := &MultiVote{}
	for _, v := range mv.votes {
		if v.Count < 1 {
			return nil, fmt.Errorf("%w: vote %d has %d instances", ErrInvalidCombination, v.Order, v.Count)
		}
		for _, b := range v.Distribution {
			label, ok := b.Value.(string)
			if !ok {
				label = fmt.Sprintf("%v", b.Value)
			}
			p := tree.NewPrediction(label)
			p.Probability = b.Count / float64(v.Count)
			p.Count = int(b.Count)
			result.votes = append(result.votes, Vote{Prediction: p, Order: v.Order})
		}
	}
	if len(result.votes) == 0 {
		return nil, fmt.Errorf("%w: votes have empty distributions", ErrInvalidCombination)
	}
	return result, nil
}

/*
singleOutCategory returns the votes for opts.Category if there are at
least opts.Threshold of them and the rest of the votes otherwise.
The threshold must be between 1 and the number of votes.
*/
func (mv *MultiVote) singleOutCategory(opts *Options) (*MultiVote, error) {
	if opts == nil || opts.Category == "" {
		return nil, fmt.Errorf("%w: threshold combination needs a category", ErrInvalidCombination)
	}
	if opts.Threshold < 1 || opts.Threshold > len(mv.votes) {
		return nil, fmt.Errorf("%w: threshold must be between 1 and %d, got %d", ErrInvalidCombination, len(mv.votes), opts.Threshold)
	}
	in, out := &MultiVote{}, &MultiVote{}
	for _, v := range mv.votes {
		if v.Label() == opts.Category {
			in.votes = append(in.votes, v)
		} else {
			out.votes = append(out.votes, v)
		}
	}
	if len(in.votes) >= opts.Threshold {
		return in, nil
	}
	return out, nil
}
