/*
Package arboretum makes predictions with exported decision tree
models and ensembles of them without further network calls.
*/
package arboretum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"sort"

	"github.com/pbanos/arboretum/feature"
	fjson "github.com/pbanos/arboretum/feature/json"
	"github.com/pbanos/arboretum/tree"
	tjson "github.com/pbanos/arboretum/tree/json"
)

// FinishedCode is the status code of finished resources
const FinishedCode = 5

// Kind tells the kind of model a tree belongs to
type Kind int

const (
	// DecisionTree models predict the objective field directly
	DecisionTree Kind = iota
	// BoostedTree models predict a gradient that is added up with the
	// gradients of the other trees of their boosted ensemble
	BoostedTree
)

func (k Kind) String() string {
	if k == BoostedTree {
		return "boosted tree"
	}
	return "decision tree"
}

/*
Boosting holds the role of a tree within a boosted ensemble: the
weight its output is multiplied by and, for classification, the class
whose score it contributes to.
*/
type Boosting struct {
	Weight         float64 `json:"weight"`
	ObjectiveClass string  `json:"objective_class,omitempty"`
}

// Importance is the importance of a field in the predictions of a model
type Importance struct {
	FieldID string
	Value   float64
}

/*
Model is a decision tree model decoded from its export, ready to make
predictions. It is not modified after construction so it can be
shared among goroutines.
*/
type Model struct {
	ID          string
	Kind        Kind
	Tree        *tree.Tree
	Fields      *feature.Catalog
	ObjectiveID string
	// ClassNames holds the sorted categories of the objective field of
	// classification models
	ClassNames []string
	Boosting   *Boosting
	importance []Importance
	normalizer *feature.Normalizer
	z          float64
}

type status struct {
	Code *int `json:"code"`
}

type modelBody struct {
	Root          json.RawMessage            `json:"root"`
	Fields        map[string]json.RawMessage `json:"fields"`
	ModelFields   map[string]json.RawMessage `json:"model_fields"`
	MissingTokens []string                   `json:"missing_tokens"`
	Importance    [][]interface{}            `json:"importance"`
	Boosting      *Boosting                  `json:"boosting"`
}

type modelExport struct {
	Resource        string     `json:"resource"`
	Status          *status    `json:"status"`
	ObjectiveFields []string   `json:"objective_fields"`
	ObjectiveField  string     `json:"objective_field"`
	InputFields     []string   `json:"input_fields"`
	Boosting        *Boosting  `json:"boosting"`
	Model           *modelBody `json:"model"`
}

// unwrap decodes an export, which may be wrapped in an "object"
// property as the API returns it
func unwrap(data []byte, v interface{}) error {
	envelope := struct {
		Object json.RawMessage `json:"object"`
	}{}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	if len(envelope.Object) > 0 && string(envelope.Object) != "null" {
		data = envelope.Object
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	return nil
}

// checkStatus returns ErrUnfinishedResource if the status is known
// and not finished
func checkStatus(resource string, s *status) error {
	if s != nil && s.Code != nil && *s.Code != FinishedCode {
		return fmt.Errorf("%w: %s has status code %d", ErrUnfinishedResource, resource, *s.Code)
	}
	return nil
}

/*
NewModel takes the JSON export of a model and a list of options and
returns the model it describes. It returns an error wrapping
ErrUnfinishedResource if the model was not finished when exported and
one wrapping ErrMalformedModel if the export lacks its tree, fields or
objective field.
*/
func NewModel(export []byte, opts ...Option) (*Model, error) {
	o := newOptions(opts)
	me := &modelExport{}
	if err := unwrap(export, me); err != nil {
		return nil, err
	}
	if err := checkStatus(me.Resource, me.Status); err != nil {
		return nil, err
	}
	body := me.Model
	if body == nil || len(body.Root) == 0 {
		return nil, fmt.Errorf("%w: %s has no tree", ErrMalformedModel, me.Resource)
	}
	fields := o.Fields
	if fields == nil {
		raw := body.Fields
		if len(raw) == 0 {
			raw = body.ModelFields
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: %s has no fields", ErrMalformedModel, me.Resource)
		}
		var err error
		fields, err = fjson.Catalog(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedModel, me.Resource, err)
		}
	}
	objectiveID := me.ObjectiveField
	if len(me.ObjectiveFields) > 0 {
		objectiveID = me.ObjectiveFields[0]
	}
	objective := fields.Field(objectiveID)
	if objective == nil {
		return nil, fmt.Errorf("%w: %s has no objective field", ErrMalformedModel, me.Resource)
	}
	m := &Model{
		ID:          me.Resource,
		Fields:      fields,
		ObjectiveID: objectiveID,
		Boosting:    me.Boosting,
		z:           o.Z,
	}
	if m.Boosting == nil {
		m.Boosting = body.Boosting
	}
	regression := objective.Optype == feature.Numeric
	if m.Boosting != nil {
		m.Kind = BoostedTree
		regression = true
	}
	t, err := tjson.DecodeTree(body.Root, fields, objectiveID, regression)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedModel, me.Resource, err)
	}
	t.Z = o.Z
	m.Tree = t
	if !regression {
		m.ClassNames = classNames(objective, t.Root().Distribution)
	}
	m.importance, err = importancePairs(body.Importance)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedModel, me.Resource, err)
	}
	m.normalizer = &feature.Normalizer{
		Catalog:       fields,
		InputFields:   me.InputFields,
		ObjectiveID:   objectiveID,
		MissingTokens: body.MissingTokens,
	}
	return m, nil
}

/*
ReadModel takes an io.Reader and a list of options and returns the
model whose JSON export is read from the io.Reader.
*/
func ReadModel(r io.Reader, opts ...Option) (*Model, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading model: %v", err)
	}
	return NewModel(data, opts...)
}

// classNames returns the sorted categories of the objective field or,
// if it has no summary, those in the root distribution
func classNames(objective *feature.Field, root tree.Distribution) []string {
	names := objective.CategoryLabels()
	if len(names) == 0 {
		for _, b := range root {
			names = append(names, fmt.Sprintf("%v", b.Value))
		}
	}
	sort.Strings(names)
	return names
}

func importancePairs(pairs [][]interface{}) ([]Importance, error) {
	result := make([]Importance, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed importance %v", pair)
		}
		id, ok := pair[0].(string)
		value, isNumber := feature.ToFloat(pair[1])
		if !ok || !isNumber {
			return nil, fmt.Errorf("malformed importance %v", pair)
		}
		result = append(result, Importance{id, value})
	}
	return result, nil
}

// Regression returns whether the model predicts numbers
func (m *Model) Regression() bool { return m.Tree.Regression }

// Normalize takes an input and whether its keys are preferably field
// names and returns the sample the model evaluates and the input keys
// it does not use
func (m *Model) Normalize(input map[string]interface{}, byName bool) (feature.Sample, []string, error) {
	return m.normalizer.Normalize(input, byName)
}

/*
Predict takes a context, an input and prediction options and returns
the prediction of the model for the input or an error.

When the options carry an operating point or an operating kind, the
predicted class is chosen from the per-class scores of that kind.
*/
func (m *Model) Predict(ctx context.Context, input map[string]interface{}, opts *PredictOptions) (*tree.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = predictOptions(opts)
	s, unused, err := m.Normalize(input, opts.ByName)
	if err != nil {
		return nil, fmt.Errorf("normalizing input: %v", err)
	}
	if opts.OperatingPoint != nil || opts.OperatingKind != "" {
		return m.predictByScore(s, opts)
	}
	p, err := m.predictSample(s, opts)
	if err != nil {
		return nil, err
	}
	p.UnusedFields = unused
	return p, nil
}

func (m *Model) predictSample(s feature.Sample, opts *PredictOptions) (*tree.Prediction, error) {
	p, err := m.Tree.Predict(s, opts.MissingStrategy)
	if err != nil {
		return nil, fmt.Errorf("predicting with model %s: %v", m.ID, err)
	}
	return p, nil
}

func (m *Model) predictByScore(s feature.Sample, opts *PredictOptions) (*tree.Prediction, error) {
	kind, err := opts.scoreKind()
	if err != nil {
		return nil, err
	}
	if kind == VotesKind {
		return nil, fmt.Errorf("%w: single models have no votes", ErrInvalidCombination)
	}
	scores, err := m.scores(s, kind, opts)
	if err != nil {
		return nil, err
	}
	var class string
	var score float64
	if opts.OperatingPoint != nil {
		class, score, err = opts.OperatingPoint.Choose(m.ClassNames, scores)
	} else {
		class, score, err = argmax(m.ClassNames, scores)
	}
	if err != nil {
		return nil, err
	}
	return scorePrediction(class, score, kind), nil
}

func (m *Model) scores(s feature.Sample, kind ScoreKind, opts *PredictOptions) ([]float64, error) {
	switch kind {
	case ConfidenceKind:
		return m.confidences(s, opts)
	case ProbabilityKind:
		return m.probabilities(s, opts)
	}
	return nil, fmt.Errorf("unknown score kind %q", kind)
}

/*
PredictProbability takes a context, an input and prediction options
and returns the probability of each of the model's class names, in
the same order. Probabilities come from the distribution of the
prediction with a Laplace correction.
*/
func (m *Model) PredictProbability(ctx context.Context, input map[string]interface{}, opts *PredictOptions) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = predictOptions(opts)
	s, _, err := m.Normalize(input, opts.ByName)
	if err != nil {
		return nil, fmt.Errorf("normalizing input: %v", err)
	}
	return m.probabilities(s, opts)
}

func (m *Model) probabilities(s feature.Sample, opts *PredictOptions) ([]float64, error) {
	if m.Regression() {
		return nil, fmt.Errorf("%w: model %s predicts no classes", ErrInvalidCombination, m.ID)
	}
	p, err := m.predictSample(s, opts)
	if err != nil {
		return nil, err
	}
	total := p.Distribution.Total()
	k := float64(len(m.ClassNames))
	result := make([]float64, len(m.ClassNames))
	for i, c := range m.ClassNames {
		result[i] = tree.Round((p.Distribution.CountOf(c) + 1/k) / (total + 1))
	}
	return result, nil
}

/*
PredictConfidence takes a context, an input and prediction options
and returns the Wilson score confidence of each of the model's class
names, in the same order, computed over the distribution of the
prediction.
*/
func (m *Model) PredictConfidence(ctx context.Context, input map[string]interface{}, opts *PredictOptions) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = predictOptions(opts)
	s, _, err := m.Normalize(input, opts.ByName)
	if err != nil {
		return nil, fmt.Errorf("normalizing input: %v", err)
	}
	return m.confidences(s, opts)
}

func (m *Model) confidences(s feature.Sample, opts *PredictOptions) ([]float64, error) {
	if m.Regression() {
		return nil, fmt.Errorf("%w: model %s predicts no classes", ErrInvalidCombination, m.ID)
	}
	p, err := m.predictSample(s, opts)
	if err != nil {
		return nil, err
	}
	result := make([]float64, len(m.ClassNames))
	if p.Distribution.Total() <= 0 {
		return result, nil
	}
	for i, c := range m.ClassNames {
		result[i], err = tree.WSConfidence(c, p.Distribution, m.z, 0)
		if err != nil {
			return nil, fmt.Errorf("predicting confidence of %s: %v", c, err)
		}
	}
	return result, nil
}

// FieldImportance returns the importance of the fields of the model,
// from most to least important
func (m *Model) FieldImportance() []Importance {
	result := make([]Importance, len(m.importance))
	copy(result, m.importance)
	sortImportance(result)
	return result
}

func sortImportance(importance []Importance) {
	sort.SliceStable(importance, func(i, j int) bool {
		if importance[i].Value != importance[j].Value {
			return importance[i].Value > importance[j].Value
		}
		return importance[i].FieldID < importance[j].FieldID
	})
}
