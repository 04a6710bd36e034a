package tree

import (
	"fmt"
	"math"
	"strings"

	"github.com/pbanos/arboretum/feature"
)

// Units of the distribution of a prediction
const (
	// CategoricalUnit distributions hold category labels
	CategoricalUnit = "categorical"
	// CountsUnit distributions hold exact numeric values
	CountsUnit = "counts"
	// BinsUnit distributions hold merged numeric values
	BinsUnit = "bins"
	// ProbabilitiesUnit distributions hold the probability of each
	// category instead of an instance count
	ProbabilitiesUnit = "probabilities"
)

/*
Prediction is the result of evaluating a tree or combining several
tree evaluations.

Output is a string label for classification and a float64 for
regression. Confidence holds the confidence of the label for
classification and the error of the value for regression. Statistics
that are unknown or do not apply are NaN.
*/
type Prediction struct {
	Output           interface{}
	Confidence       float64
	Probability      float64
	Distribution     Distribution
	DistributionUnit string
	Count            int
	Path             []*feature.Predicate
	Median           float64
	Min              float64
	Max              float64
	NextField        string
	UnusedFields     []string
}

// NewPrediction returns a prediction of the given output with all
// its statistics unknown
func NewPrediction(output interface{}) *Prediction {
	return &Prediction{
		Output:      output,
		Confidence:  math.NaN(),
		Probability: math.NaN(),
		Median:      math.NaN(),
		Min:         math.NaN(),
		Max:         math.NaN(),
	}
}

// Label returns the output of a classification prediction
func (p *Prediction) Label() string {
	s, _ := p.Output.(string)
	return s
}

// Value returns the output of a regression prediction
func (p *Prediction) Value() float64 {
	v, _ := feature.ToFloat(p.Output)
	return v
}

// HasConfidence returns whether the prediction has a known confidence
func (p *Prediction) HasConfidence() bool { return !math.IsNaN(p.Confidence) }

// HasProbability returns whether the prediction has a known probability
func (p *Prediction) HasProbability() bool { return !math.IsNaN(p.Probability) }

/*
Rules takes a catalog and returns the human readable rendering of
the predicates on the path to the prediction.
*/
func (p *Prediction) Rules(c *feature.Catalog) []string {
	result := make([]string, 0, len(p.Path))
	for _, pr := range p.Path {
		result = append(result, pr.Rule(c))
	}
	return result
}

func (p *Prediction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v", p.Output)
	if p.HasConfidence() {
		fmt.Fprintf(&sb, " (confidence %.5f)", p.Confidence)
	}
	if p.HasProbability() {
		fmt.Fprintf(&sb, " (probability %.5f)", p.Probability)
	}
	return sb.String()
}
