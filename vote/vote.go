/*
Package vote combines the predictions of several trees into a single
prediction.
*/
package vote

import (
	"fmt"
	"strings"

	"github.com/pbanos/arboretum/feature"
	"github.com/pbanos/arboretum/tree"
)

// Error is the type of the errors returned when votes cannot
// be combined
type Error string

func (ve Error) Error() string {
	return string(ve)
}

const (
	// ErrEmptyVoteSet is returned when combining a vote set without votes
	ErrEmptyVoteSet = Error("no votes to combine")
	// ErrInvalidCombination is returned when the requested method cannot
	// combine the votes: boosted votes with a voting method, votes lacking
	// the data the method needs or invalid method options
	ErrInvalidCombination = Error("invalid combination")
)

// Method is a way of combining votes
type Method string

const (
	// Default combines boosted votes by Boosting and any other
	// votes by Plurality
	Default Method = ""
	// Plurality counts one vote per prediction for classification and
	// averages the outputs for regression
	Plurality Method = "plurality"
	// Confidence weighs each classification vote by its confidence and
	// each regression vote by the exponential of its scaled error
	Confidence Method = "confidence"
	// Probability splits each classification vote among the categories
	// of its distribution proportionally to their instances. It averages
	// outputs for regression.
	Probability Method = "probability"
	// Threshold makes a category win if it gets at least a number of
	// votes and recombines the rest by plurality otherwise
	Threshold Method = "threshold"
	// Boosting adds up the weighted outputs of boosted trees
	Boosting Method = "boosting"
)

// ParseMethod takes a method name and returns the corresponding Method
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(name)); m {
	case Default, Plurality, Confidence, Probability, Threshold, Boosting:
		return m, nil
	case "voting", "avg", "average":
		return Plurality, nil
	case "error_weighted":
		return Confidence, nil
	}
	return "", fmt.Errorf("unknown combination method %q", name)
}

/*
Vote is a prediction taking part in a combination. Order is the
position in which it was added to its vote set and breaks ties in
favour of earlier votes. Weight and Class are only set for votes of
boosted trees: the weight of the tree and the category it scores, if
any.
*/
type Vote struct {
	*tree.Prediction
	Order  int
	Weight float64
	Class  string
}

/*
Options are the parameters of a combination. Threshold and Category
are required by the Threshold method. Z is the z-score for Wilson
confidences, tree.DefaultZ if 0.
*/
type Options struct {
	Threshold int
	Category  string
	Z         float64
}

func (o *Options) z() float64 {
	if o == nil || o.Z == 0 {
		return tree.DefaultZ
	}
	return o.Z
}

/*
MultiVote holds the predictions of several trees for the same sample
so they can be combined into one.

A boosted MultiVote holds the votes of the trees of a boosted
ensemble and can only be combined with the Boosting method.
*/
type MultiVote struct {
	votes        []Vote
	boosting     bool
	offset       float64
	classOffsets map[string]float64
	classes      []string
}

// New returns a MultiVote holding the given predictions
func New(predictions ...*tree.Prediction) *MultiVote {
	mv := &MultiVote{}
	for _, p := range predictions {
		mv.Append(p)
	}
	return mv
}

/*
NewBoosting returns an empty boosted MultiVote. For regression the
offset is added to the weighted sum of the votes. For classification
classes lists the categories in declaration order and classOffsets
holds the offset of each of them.
*/
func NewBoosting(offset float64, classOffsets map[string]float64, classes []string) *MultiVote {
	return &MultiVote{
		boosting:     true,
		offset:       offset,
		classOffsets: classOffsets,
		classes:      classes,
	}
}

// Append adds a prediction to the vote set
func (mv *MultiVote) Append(p *tree.Prediction) {
	mv.votes = append(mv.votes, Vote{Prediction: p, Order: len(mv.votes)})
}

// AppendBoosted adds the prediction of a boosted tree with the given
// weight and objective class to the vote set
func (mv *MultiVote) AppendBoosted(p *tree.Prediction, weight float64, class string) {
	mv.votes = append(mv.votes, Vote{Prediction: p, Order: len(mv.votes), Weight: weight, Class: class})
}

// Extend adds the votes of another vote set after the existing
// ones, renumbering their order
func (mv *MultiVote) Extend(other *MultiVote) {
	for _, v := range other.votes {
		v.Order = len(mv.votes)
		mv.votes = append(mv.votes, v)
	}
}

// Len returns the number of votes in the set
func (mv *MultiVote) Len() int { return len(mv.votes) }

// Votes returns a copy of the votes in the set
func (mv *MultiVote) Votes() []Vote {
	result := make([]Vote, len(mv.votes))
	copy(result, mv.votes)
	return result
}

// IsBoosting returns whether the vote set holds boosted votes
func (mv *MultiVote) IsBoosting() bool { return mv.boosting }

// IsRegression returns whether all votes predict numbers
func (mv *MultiVote) IsRegression() bool {
	if len(mv.votes) == 0 {
		return false
	}
	for _, v := range mv.votes {
		if _, ok := feature.ToFloat(v.Output); !ok {
			return false
		}
	}
	return true
}

/*
Combine takes a method and options and returns the prediction that
results from combining the votes with the method. It returns
ErrEmptyVoteSet if there are no votes, and an error wrapping
ErrInvalidCombination if the votes cannot be combined with the method.
*/
func (mv *MultiVote) Combine(method Method, opts *Options) (*tree.Prediction, error) {
	if len(mv.votes) == 0 {
		return nil, ErrEmptyVoteSet
	}
	if method == Default {
		method = Plurality
		if mv.boosting {
			method = Boosting
		}
	}
	if mv.boosting {
		if method != Boosting {
			return nil, fmt.Errorf("%w: boosted votes cannot be combined by %v", ErrInvalidCombination, method)
		}
		if !mv.classified() {
			return mv.boostingRegression(), nil
		}
		return mv.boostingClassification()
	}
	switch method {
	case Plurality, Confidence, Probability, Threshold:
	default:
		return nil, fmt.Errorf("%w: %v needs boosted votes", ErrInvalidCombination, method)
	}
	if err := mv.checkKeys(method); err != nil {
		return nil, err
	}
	if mv.IsRegression() {
		if method == Confidence {
			return mv.errorWeighted(), nil
		}
		return mv.average(), nil
	}
	switch method {
	case Threshold:
		single, err := mv.singleOutCategory(opts)
		if err != nil {
			return nil, err
		}
		return single.combineCategorical(nil, opts)
	case Probability:
		sub, err := mv.probabilityWeight()
		if err != nil {
			return nil, err
		}
		return sub.combineCategorical(probabilityWeight, opts)
	case Confidence:
		return mv.combineCategorical(confidenceWeight, opts)
	}
	return mv.combineCategorical(nil, opts)
}

// checkKeys verifies that every vote carries the data the method
// weighs votes with
func (mv *MultiVote) checkKeys(method Method) error {
	for _, v := range mv.votes {
		switch method {
		case Confidence:
			if !v.HasConfidence() {
				return fmt.Errorf("%w: vote %d has no confidence", ErrInvalidCombination, v.Order)
			}
		case Probability:
			if v.Distribution == nil || v.Count < 1 {
				return fmt.Errorf("%w: vote %d has no distribution", ErrInvalidCombination, v.Order)
			}
		}
	}
	return nil
}
