package arboretum

import (
	"fmt"
	"sort"

	"github.com/pbanos/arboretum/tree"
)

/*
OperatingPoint replaces the choice of the best scoring class with a
threshold on the score of a positive class: the positive class is
predicted when its score of the given kind reaches the threshold.
*/
type OperatingPoint struct {
	PositiveClass string    `json:"positive_class" yaml:"positive_class"`
	Kind          ScoreKind `json:"kind" yaml:"kind"`
	Threshold     float64   `json:"threshold" yaml:"threshold"`
}

// Validate returns an error if the operating point has no positive
// class or an unknown kind
func (op *OperatingPoint) Validate() error {
	if op.PositiveClass == "" {
		return fmt.Errorf("operating point has no positive class")
	}
	if _, err := ParseScoreKind(string(op.Kind)); err != nil {
		return fmt.Errorf("operating point: %v", err)
	}
	return nil
}

/*
Choose takes the classes of a model and their scores and returns the
positive class if its score is at least the threshold. Otherwise it
returns the best of the two highest scoring classes that is not the
positive class. Ties in scores go to the class listed first.
*/
func (op *OperatingPoint) Choose(classes []string, scores []float64) (string, float64, error) {
	positive := -1
	for i, c := range classes {
		if c == op.PositiveClass {
			positive = i
			break
		}
	}
	if positive < 0 || positive >= len(scores) {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownClass, op.PositiveClass)
	}
	if scores[positive] >= op.Threshold {
		return classes[positive], scores[positive], nil
	}
	ranked := rank(scores)
	if len(ranked) > 2 {
		ranked = ranked[:2]
	}
	for _, i := range ranked {
		if i != positive {
			return classes[i], scores[i], nil
		}
	}
	return classes[positive], scores[positive], nil
}

// argmax returns the class with the highest score, the first listed
// on ties
func argmax(classes []string, scores []float64) (string, float64, error) {
	ranked := rank(scores)
	if len(ranked) == 0 || len(classes) < len(scores) {
		return "", 0, fmt.Errorf("%w: no class scores", ErrInvalidCombination)
	}
	return classes[ranked[0]], scores[ranked[0]], nil
}

// rank returns the indexes of the scores from highest to lowest score
func rank(scores []float64) []int {
	result := make([]int, len(scores))
	for i := range result {
		result[i] = i
	}
	sort.SliceStable(result, func(i, j int) bool {
		return scores[result[i]] > scores[result[j]]
	})
	return result
}

// scorePrediction builds the prediction of a class chosen by its
// score of the given kind
func scorePrediction(class string, score float64, kind ScoreKind) *tree.Prediction {
	p := tree.NewPrediction(class)
	if kind == ConfidenceKind {
		p.Confidence = score
	} else {
		p.Probability = score
	}
	return p
}
