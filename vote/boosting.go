package vote

import (
	"fmt"
	"math"
	"sort"

	"github.com/pbanos/arboretum/tree"
)

// boostingRegression adds up the weighted outputs of the votes and
// the offset
func (mv *MultiVote) boostingRegression() *tree.Prediction {
	result := mv.offset
	count := 0
	for _, v := range mv.votes {
		result += v.Weight * v.Value()
		count += v.Count
	}
	p := tree.NewPrediction(result)
	p.Count = count
	return p
}

/*
boostingClassification adds up the weighted outputs of the votes for
each class plus the class offset and turns the resulting scores into
probabilities with the softmax function. The predicted class is the
most probable one, ties going to the class declared first.
*/
func (mv *MultiVote) boostingClassification() (*tree.Prediction, error) {
	classes := mv.classes
	if len(classes) == 0 {
		for _, v := range mv.votes {
			if !containsString(classes, v.Class) {
				classes = append(classes, v.Class)
			}
		}
	}
	scores := make(map[string]float64, len(classes))
	for _, c := range classes {
		scores[c] = mv.classOffsets[c]
	}
	count := 0
	for _, v := range mv.votes {
		if _, ok := scores[v.Class]; !ok {
			return nil, fmt.Errorf("%w: vote %d scores unknown class %q", ErrInvalidCombination, v.Order, v.Class)
		}
		scores[v.Class] += v.Weight * v.Value()
		count += v.Count
	}
	probabilities := Softmax(classes, scores)
	order := make(map[string]int, len(classes))
	for i, c := range classes {
		order[c] = i
	}
	d := make(tree.Distribution, 0, len(classes))
	for _, c := range classes {
		d = append(d, tree.Bin{Value: c, Count: tree.Round(probabilities[c])})
	}
	sort.SliceStable(d, func(i, j int) bool {
		if d[i].Count != d[j].Count {
			return d[i].Count > d[j].Count
		}
		return order[d[i].Value.(string)] < order[d[j].Value.(string)]
	})
	p := tree.NewPrediction(d[0].Value)
	p.Probability = d[0].Count
	p.Distribution = d
	p.DistributionUnit = tree.ProbabilitiesUnit
	p.Count = count
	return p, nil
}

/*
Softmax takes a list of classes and their scores and returns the
probability of each class: the exponential of its score divided by
the sum of the exponentials of all scores.
*/
func Softmax(classes []string, scores map[string]float64) map[string]float64 {
	top := math.Inf(-1)
	for _, c := range classes {
		top = math.Max(top, scores[c])
	}
	result := make(map[string]float64, len(classes))
	var total float64
	for _, c := range classes {
		e := math.Exp(scores[c] - top)
		result[c] = e
		total += e
	}
	for c := range result {
		result[c] /= total
	}
	return result
}

// classified returns whether the boosted votes score classes
func (mv *MultiVote) classified() bool {
	if len(mv.classes) > 0 {
		return true
	}
	for _, v := range mv.votes {
		if v.Class != "" {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
