package arboretum

import "github.com/pbanos/arboretum/vote"

// PredictionError is the type of the errors returned when a model or
// ensemble cannot be built or cannot make a prediction
type PredictionError string

func (pe PredictionError) Error() string {
	return string(pe)
}

const (
	// ErrMalformedModel is returned when an export lacks the structures
	// needed to build a model or ensemble from it
	ErrMalformedModel = PredictionError("malformed model export")

	// ErrUnfinishedResource is returned when an export belongs to a
	// resource whose status is not finished
	ErrUnfinishedResource = PredictionError("resource is not finished")

	// ErrNoResolver is returned when an ensemble refers to member models
	// by ID but was given no resolver to retrieve them
	ErrNoResolver = PredictionError("no model resolver available")

	// ErrUnknownClass is returned when an operating point refers to a
	// class the objective field does not have
	ErrUnknownClass = PredictionError("unknown class")
)

const (
	// ErrInvalidCombination is returned when votes cannot be combined
	// with the requested method
	ErrInvalidCombination = vote.ErrInvalidCombination

	// ErrEmptyVoteSet is returned when there are no votes to combine
	ErrEmptyVoteSet = vote.ErrEmptyVoteSet
)
