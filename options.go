package arboretum

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pbanos/arboretum/feature"
	"github.com/pbanos/arboretum/resolver"
	"github.com/pbanos/arboretum/tree"
	"github.com/pbanos/arboretum/vote"
)

// Options holds the construction parameters of models and ensembles
type Options struct {
	// MaxModels is the maximum number of member models an ensemble
	// holds in memory at once. 0 means no limit.
	MaxModels int
	// Resolver retrieves the exports of the member models of an
	// ensemble that refers to them by ID
	Resolver resolver.ModelResolver
	// Z is the z-score used for Wilson confidences
	Z float64
	// Fields overrides the field catalog found in exports
	Fields *feature.Catalog
}

// Option is a function that sets a construction parameter
type Option func(*Options)

// WithMaxModels sets the maximum number of member models an ensemble
// holds in memory at once
func WithMaxModels(n int) Option {
	return func(o *Options) { o.MaxModels = n }
}

// WithResolver sets the resolver for the member models of an ensemble
func WithResolver(r resolver.ModelResolver) Option {
	return func(o *Options) { o.Resolver = r }
}

// WithZ sets the z-score for Wilson confidences
func WithZ(z float64) Option {
	return func(o *Options) { o.Z = z }
}

// WithFields sets the catalog of fields used instead of the one in
// the export
func WithFields(c *feature.Catalog) Option {
	return func(o *Options) { o.Fields = c }
}

func newOptions(opts []Option) *Options {
	o := &Options{Z: tree.DefaultZ}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ScoreKind is the kind of per-class score used to choose a class
type ScoreKind string

const (
	// ProbabilityKind scores classes by their probability
	ProbabilityKind ScoreKind = "probability"
	// ConfidenceKind scores classes by their confidence
	ConfidenceKind ScoreKind = "confidence"
	// VotesKind scores classes by the share of models voting for them
	VotesKind ScoreKind = "votes"
)

// ParseScoreKind takes a name and returns the ScoreKind it refers to
func ParseScoreKind(name string) (ScoreKind, error) {
	switch k := ScoreKind(strings.ToLower(name)); k {
	case ProbabilityKind, ConfidenceKind, VotesKind:
		return k, nil
	case "voting":
		return VotesKind, nil
	}
	return "", fmt.Errorf("unknown score kind %q", name)
}

// UnmarshalJSON decodes a score kind from any of the names
// ParseScoreKind accepts
func (k *ScoreKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	return k.set(name)
}

// UnmarshalYAML decodes a score kind from any of the names
// ParseScoreKind accepts
func (k *ScoreKind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	return k.set(name)
}

func (k *ScoreKind) set(name string) error {
	if name == "" {
		*k = ""
		return nil
	}
	parsed, err := ParseScoreKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

/*
PredictOptions are the parameters of a prediction.

ByName tells whether the keys of the input are preferably field names
rather than field IDs. Method, Threshold and Category drive the
combination of votes in ensembles. When OperatingPoint is set it
decides the predicted class, and otherwise a non-empty OperatingKind
makes the class with the best score of that kind win.
*/
type PredictOptions struct {
	ByName          bool
	MissingStrategy tree.MissingStrategy
	Method          vote.Method
	Threshold       int
	Category        string
	OperatingPoint  *OperatingPoint
	OperatingKind   ScoreKind
}

// scoreKind returns the kind of score that chooses the predicted
// class, taken from the operating point if there is one
func (po *PredictOptions) scoreKind() (ScoreKind, error) {
	if po.OperatingPoint != nil {
		if err := po.OperatingPoint.Validate(); err != nil {
			return "", err
		}
		return ParseScoreKind(string(po.OperatingPoint.Kind))
	}
	return ParseScoreKind(string(po.OperatingKind))
}

func (po *PredictOptions) voteOptions(z float64) *vote.Options {
	return &vote.Options{Threshold: po.Threshold, Category: po.Category, Z: z}
}

func predictOptions(po *PredictOptions) *PredictOptions {
	if po == nil {
		return &PredictOptions{}
	}
	return po
}
