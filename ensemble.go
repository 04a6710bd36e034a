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
	"github.com/pbanos/arboretum/resolver"
	"github.com/pbanos/arboretum/tree"
	"github.com/pbanos/arboretum/vote"
)

/*
Ensemble makes predictions combining those of its member models.

Its member models are listed in ModelIDs and partitioned in Splits of
at most MaxModels models. When all of them fit in a single split they
are built once when the ensemble is created. Otherwise only one split
is resolved and held in memory at a time while predicting, and it is
released before the next one is resolved.
*/
type Ensemble struct {
	ID       string
	ModelIDs []string
	Splits   [][]string
	// Distributions holds the training distribution of the objective
	// field for each member model
	Distributions []tree.Distribution
	Boosted       bool
	Fields        *feature.Catalog
	ObjectiveID   string
	InputFields   []string
	// ClassNames holds the sorted categories of the objective field
	// of classification ensembles
	ClassNames       []string
	Regression       bool
	offset           float64
	classOffsets     map[string]float64
	importance       []Importance
	memberImportance [][]Importance
	resolver         resolver.ModelResolver
	resident         *MultiModel
	normalizer       *feature.Normalizer
	z                float64
}

type distributionExport struct {
	Importance [][]interface{} `json:"importance"`
	Training   struct {
		Categories [][]interface{} `json:"categories"`
		Bins       [][]interface{} `json:"bins"`
		Counts     [][]interface{} `json:"counts"`
	} `json:"training"`
}

type ensembleExport struct {
	Resource        string               `json:"resource"`
	Status          *status              `json:"status"`
	Models          []json.RawMessage    `json:"models"`
	Distributions   []distributionExport `json:"distributions"`
	Boosting        json.RawMessage      `json:"boosting"`
	InitialOffset   float64              `json:"initial_offset"`
	InitialOffsets  json.RawMessage      `json:"initial_offsets"`
	Importance      map[string]float64   `json:"importance"`
	ObjectiveField  string               `json:"objective_field"`
	ObjectiveFields []string             `json:"objective_fields"`
	InputFields     []string             `json:"input_fields"`
	Ensemble        *struct {
		Fields map[string]json.RawMessage `json:"fields"`
	} `json:"ensemble"`
}

/*
Splits takes a list of model IDs and a maximum number of models and
returns the IDs partitioned in consecutive splits of at most that
number of models. A maximum of 0 or less puts all IDs in one split.
*/
func Splits(ids []string, max int) [][]string {
	if max <= 0 || max > len(ids) {
		max = len(ids)
	}
	var result [][]string
	for start := 0; start < len(ids); start += max {
		end := start + max
		if end > len(ids) {
			end = len(ids)
		}
		split := make([]string, end-start)
		copy(split, ids[start:end])
		result = append(result, split)
	}
	return result
}

/*
NewEnsemble takes a context, the JSON export of an ensemble and a list
of options and returns the ensemble it describes.

Member models may be listed by ID, in which case they are retrieved
with the resolver in the options, or embedded as full model exports.
It returns an error wrapping ErrUnfinishedResource if the ensemble was
not finished when exported, one wrapping ErrMalformedModel if the
export lacks its models, fields or objective field and one wrapping
ErrNoResolver if models are listed by ID and there is no resolver.
*/
func NewEnsemble(ctx context.Context, export []byte, opts ...Option) (*Ensemble, error) {
	o := newOptions(opts)
	ee := &ensembleExport{}
	if err := unwrap(export, ee); err != nil {
		return nil, err
	}
	if err := checkStatus(ee.Resource, ee.Status); err != nil {
		return nil, err
	}
	if len(ee.Models) == 0 {
		return nil, fmt.Errorf("%w: %s has no models", ErrMalformedModel, ee.Resource)
	}
	e := &Ensemble{
		ID:          ee.Resource,
		Boosted:     len(ee.Boosting) > 0 && string(ee.Boosting) != "null",
		InputFields: ee.InputFields,
		offset:      ee.InitialOffset,
		resolver:    o.Resolver,
		z:           o.Z,
	}
	err := e.readModels(ctx, ee.Models)
	if err != nil {
		return nil, err
	}
	e.Splits = Splits(e.ModelIDs, o.MaxModels)
	if len(e.Splits) == 1 {
		e.resident, err = e.loadSplit(ctx, e.Splits[0])
		if err != nil {
			return nil, err
		}
	}
	if err = e.readFields(ctx, ee, o); err != nil {
		return nil, err
	}
	if err = e.readDistributions(ee); err != nil {
		return nil, err
	}
	if e.Boosted && !e.Regression {
		e.classOffsets, err = offsets(ee.InitialOffsets, e.ClassNames)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedModel, e.ID, err)
		}
	}
	for id, value := range ee.Importance {
		e.importance = append(e.importance, Importance{id, value})
	}
	e.normalizer = &feature.Normalizer{
		Catalog:     e.Fields,
		InputFields: e.InputFields,
		ObjectiveID: e.ObjectiveID,
	}
	return e, nil
}

/*
ReadEnsemble takes a context, an io.Reader and a list of options and
returns the ensemble whose JSON export is read from the io.Reader.
*/
func ReadEnsemble(ctx context.Context, r io.Reader, opts ...Option) (*Ensemble, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading ensemble: %v", err)
	}
	return NewEnsemble(ctx, data, opts...)
}

// readModels sets the model IDs of the ensemble, saving embedded
// model exports in a memory store that takes precedence over the
// resolver in the options. Exports coming from that resolver are not
// kept in the store.
func (e *Ensemble) readModels(ctx context.Context, models []json.RawMessage) error {
	var store resolver.Store
	for i, raw := range models {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			e.ModelIDs = append(e.ModelIDs, id)
			continue
		}
		embedded := &struct {
			Resource string `json:"resource"`
		}{}
		if err := unwrap(raw, embedded); err != nil || embedded.Resource == "" {
			return fmt.Errorf("%w: %s: model %d has no ID", ErrMalformedModel, e.ID, i)
		}
		if store == nil {
			store = resolver.NewMemoryStore()
		}
		if err := store.Store(ctx, embedded.Resource, raw); err != nil {
			return err
		}
		e.ModelIDs = append(e.ModelIDs, embedded.Resource)
	}
	if store != nil {
		if e.resolver == nil {
			e.resolver = store
		} else {
			e.resolver = resolver.NewChain(store, e.resolver)
		}
	}
	if e.resolver == nil {
		return fmt.Errorf("%w: %s lists its models by ID", ErrNoResolver, e.ID)
	}
	return nil
}

func (e *Ensemble) readFields(ctx context.Context, ee *ensembleExport, o *Options) error {
	e.ObjectiveID = ee.ObjectiveField
	if len(ee.ObjectiveFields) > 0 {
		e.ObjectiveID = ee.ObjectiveFields[0]
	}
	e.Fields = o.Fields
	var err error
	if e.Fields == nil && ee.Ensemble != nil && len(ee.Ensemble.Fields) > 0 {
		e.Fields, err = fjson.Catalog(ee.Ensemble.Fields)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedModel, e.ID, err)
		}
	}
	if e.Fields == nil || e.ObjectiveID == "" {
		// take them from the member models, resolving the first one
		// if they are not resident
		mm := e.resident
		if mm == nil {
			mm, err = e.loadSplit(ctx, e.ModelIDs[:1])
			if err != nil {
				return err
			}
		}
		if e.Fields == nil {
			e.Fields = mm.Fields
		}
		if e.ObjectiveID == "" {
			e.ObjectiveID = mm.Models[0].ObjectiveID
		}
	}
	if e.Fields == nil {
		return fmt.Errorf("%w: %s has no fields", ErrMalformedModel, e.ID)
	}
	objective := e.Fields.Field(e.ObjectiveID)
	if objective == nil {
		return fmt.Errorf("%w: %s has no objective field", ErrMalformedModel, e.ID)
	}
	e.Regression = objective.Optype == feature.Numeric
	if !e.Regression {
		e.ClassNames = objective.CategoryLabels()
		sort.Strings(e.ClassNames)
	}
	return nil
}

func (e *Ensemble) readDistributions(ee *ensembleExport) error {
	for i, de := range ee.Distributions {
		pairs := de.Training.Categories
		if e.Regression {
			pairs = de.Training.Bins
			if len(pairs) == 0 {
				pairs = de.Training.Counts
			}
		}
		d := make(tree.Distribution, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) != 2 {
				return fmt.Errorf("%w: %s: malformed distribution %d", ErrMalformedModel, e.ID, i)
			}
			count, ok := feature.ToFloat(pair[1])
			if !ok {
				return fmt.Errorf("%w: %s: malformed distribution %d", ErrMalformedModel, e.ID, i)
			}
			var value interface{} = fmt.Sprintf("%v", pair[0])
			if e.Regression {
				value, _ = feature.ToFloat(pair[0])
			}
			d = append(d, tree.Bin{Value: value, Count: count})
		}
		e.Distributions = append(e.Distributions, d)
		importance, err := importancePairs(de.Importance)
		if err != nil {
			return fmt.Errorf("%w: %s: distribution %d: %v", ErrMalformedModel, e.ID, i, err)
		}
		if len(importance) > 0 {
			e.memberImportance = append(e.memberImportance, importance)
		}
	}
	if len(e.ClassNames) == 0 && !e.Regression {
		seen := map[string]bool{}
		for _, d := range e.Distributions {
			for _, b := range d {
				if c := b.Value.(string); !seen[c] {
					seen[c] = true
					e.ClassNames = append(e.ClassNames, c)
				}
			}
		}
		if e.resident != nil {
			for _, m := range e.resident.Models {
				for _, c := range m.ClassNames {
					if !seen[c] {
						seen[c] = true
						e.ClassNames = append(e.ClassNames, c)
					}
				}
			}
		}
		sort.Strings(e.ClassNames)
	}
	return nil
}

/*
offsets decodes the initial offsets of a boosted classification
ensemble, given as an object keyed by class, as a list of
[class, offset] pairs or as a list of offsets in class order.
*/
func offsets(raw json.RawMessage, classes []string) (map[string]float64, error) {
	result := map[string]float64{}
	if len(raw) == 0 || string(raw) == "null" {
		return result, nil
	}
	if err := json.Unmarshal(raw, &result); err == nil {
		return result, nil
	}
	var list []interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding initial offsets: %v", err)
	}
	for i, item := range list {
		switch v := item.(type) {
		case float64:
			if i >= len(classes) {
				return nil, fmt.Errorf("initial offset %d has no class", i)
			}
			result[classes[i]] = v
		case []interface{}:
			if len(v) != 2 {
				return nil, fmt.Errorf("malformed initial offset %v", v)
			}
			class, ok := v[0].(string)
			offset, isNumber := v[1].(float64)
			if !ok || !isNumber {
				return nil, fmt.Errorf("malformed initial offset %v", v)
			}
			result[class] = offset
		default:
			return nil, fmt.Errorf("malformed initial offset %v", v)
		}
	}
	return result, nil
}

// loadSplit resolves the models with the given IDs
func (e *Ensemble) loadSplit(ctx context.Context, ids []string) (*MultiModel, error) {
	models := make([]*Model, 0, len(ids))
	for _, id := range ids {
		export, err := e.resolver.Resolve(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolving model %s: %w", id, err)
		}
		m, err := NewModel(export, WithZ(e.z))
		if err != nil {
			return nil, fmt.Errorf("building model %s: %w", id, err)
		}
		models = append(models, m)
	}
	return NewMultiModel(models...)
}

// eachModel calls f with every member model in order, resolving one
// split at a time unless they are all resident
func (e *Ensemble) eachModel(ctx context.Context, f func(*Model) error) error {
	if e.resident != nil {
		for _, m := range e.resident.Models {
			if err := f(m); err != nil {
				return err
			}
		}
		return nil
	}
	for i, split := range e.Splits {
		mm, err := e.loadSplit(ctx, split)
		if err != nil {
			return fmt.Errorf("loading split %d: %w", i, err)
		}
		for _, m := range mm.Models {
			if err = f(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// memberSample returns the sample a member model evaluates for a
// sample of the ensemble
func memberSample(m *Model, s feature.Sample) (feature.Sample, error) {
	ms, _, err := m.Normalize(map[string]interface{}(s), false)
	if err != nil {
		return nil, fmt.Errorf("normalizing input for model %s: %v", m.ID, err)
	}
	return ms, nil
}

func (e *Ensemble) newVoteSet() *vote.MultiVote {
	if e.Boosted {
		return vote.NewBoosting(e.offset, e.classOffsets, e.ClassNames)
	}
	return vote.New()
}

/*
Votes takes a context, an input and prediction options and returns the
vote set with the predictions of all member models for the input.
*/
func (e *Ensemble) Votes(ctx context.Context, input map[string]interface{}, opts *PredictOptions) (*vote.MultiVote, error) {
	opts = predictOptions(opts)
	s, _, err := e.normalizer.Normalize(input, opts.ByName)
	if err != nil {
		return nil, fmt.Errorf("normalizing input: %v", err)
	}
	return e.votes(ctx, s, opts)
}

func (e *Ensemble) votes(ctx context.Context, s feature.Sample, opts *PredictOptions) (*vote.MultiVote, error) {
	mv := e.newVoteSet()
	err := e.eachModel(ctx, func(m *Model) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ms, err := memberSample(m, s)
		if err != nil {
			return err
		}
		p, err := m.predictSample(ms, opts)
		if err != nil {
			return err
		}
		appendVote(mv, m, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

/*
Predict takes a context, an input and prediction options and returns
the combined prediction of the member models for the input.

Boosted ensembles combine predictions by boosting unless another
method is requested, which is an error. Operating points and kinds in
the options make the class be chosen from per-class scores instead.
*/
func (e *Ensemble) Predict(ctx context.Context, input map[string]interface{}, opts *PredictOptions) (*tree.Prediction, error) {
	opts = predictOptions(opts)
	s, unused, err := e.normalizer.Normalize(input, opts.ByName)
	if err != nil {
		return nil, fmt.Errorf("normalizing input: %v", err)
	}
	if opts.OperatingPoint != nil || opts.OperatingKind != "" {
		return e.predictByScore(ctx, s, opts)
	}
	mv, err := e.votes(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	p, err := mv.Combine(opts.Method, opts.voteOptions(e.z))
	if err != nil {
		return nil, fmt.Errorf("combining votes: %w", err)
	}
	p.UnusedFields = unused
	return p, nil
}

func (e *Ensemble) predictByScore(ctx context.Context, s feature.Sample, opts *PredictOptions) (*tree.Prediction, error) {
	kind, err := opts.scoreKind()
	if err != nil {
		return nil, err
	}
	scores, err := e.scores(ctx, s, kind, opts)
	if err != nil {
		return nil, err
	}
	var class string
	var score float64
	if opts.OperatingPoint != nil {
		class, score, err = opts.OperatingPoint.Choose(e.ClassNames, scores)
	} else {
		class, score, err = argmax(e.ClassNames, scores)
	}
	if err != nil {
		return nil, err
	}
	return scorePrediction(class, score, kind), nil
}

func (e *Ensemble) scores(ctx context.Context, s feature.Sample, kind ScoreKind, opts *PredictOptions) ([]float64, error) {
	if e.Regression {
		return nil, fmt.Errorf("%w: ensemble %s predicts no classes", ErrInvalidCombination, e.ID)
	}
	if e.Boosted && kind != ProbabilityKind {
		return nil, fmt.Errorf("%w: boosted ensembles only score classes by probability", ErrInvalidCombination)
	}
	if e.Boosted {
		mv, err := e.votes(ctx, s, opts)
		if err != nil {
			return nil, err
		}
		p, err := mv.Combine(vote.Boosting, opts.voteOptions(e.z))
		if err != nil {
			return nil, fmt.Errorf("combining votes: %w", err)
		}
		result := make([]float64, len(e.ClassNames))
		for i, c := range e.ClassNames {
			result[i] = p.Distribution.CountOf(c)
		}
		return result, nil
	}
	l := &vote.List{}
	err := e.eachModel(ctx, func(m *Model) error {
		ms, err := memberSample(m, s)
		if err != nil {
			return err
		}
		var v []float64
		switch kind {
		case ConfidenceKind:
			v, err = m.confidences(ms, opts)
		case VotesKind:
			var p *tree.Prediction
			p, err = m.predictSample(ms, opts)
			if err == nil {
				v = oneHot(e.ClassNames, p.Label())
			}
		case ProbabilityKind:
			v, err = m.probabilities(ms, opts)
		default:
			err = fmt.Errorf("unknown score kind %q", kind)
		}
		if err != nil {
			return err
		}
		if kind != VotesKind {
			v = align(e.ClassNames, m.ClassNames, v)
		}
		l.Append(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l.CombineToDistribution(kind == VotesKind), nil
}

func oneHot(classes []string, class string) []float64 {
	result := make([]float64, len(classes))
	for i, c := range classes {
		if c == class {
			result[i] = 1
		}
	}
	return result
}

// align reorders a vector of values for the given classes to follow
// the order of the target classes
func align(target, classes []string, values []float64) []float64 {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	result := make([]float64, len(target))
	for i, c := range target {
		if j, ok := index[c]; ok && j < len(values) {
			result[i] = values[j]
		}
	}
	return result
}

// PredictProbability returns the probability of each of the
// ensemble's class names for the input, in the same order
func (e *Ensemble) PredictProbability(ctx context.Context, input map[string]interface{}, opts *PredictOptions) ([]float64, error) {
	return e.predictScores(ctx, input, ProbabilityKind, opts)
}

// PredictConfidence returns the confidence of each of the ensemble's
// class names for the input, in the same order
func (e *Ensemble) PredictConfidence(ctx context.Context, input map[string]interface{}, opts *PredictOptions) ([]float64, error) {
	return e.predictScores(ctx, input, ConfidenceKind, opts)
}

// PredictVotes returns the share of member models predicting each of
// the ensemble's class names for the input, in the same order
func (e *Ensemble) PredictVotes(ctx context.Context, input map[string]interface{}, opts *PredictOptions) ([]float64, error) {
	return e.predictScores(ctx, input, VotesKind, opts)
}

func (e *Ensemble) predictScores(ctx context.Context, input map[string]interface{}, kind ScoreKind, opts *PredictOptions) ([]float64, error) {
	opts = predictOptions(opts)
	s, _, err := e.normalizer.Normalize(input, opts.ByName)
	if err != nil {
		return nil, fmt.Errorf("normalizing input: %v", err)
	}
	return e.scores(ctx, s, kind, opts)
}

/*
FieldImportance takes a context and returns the importance of the
fields of the ensemble, from most to least important. It is the
importance in the export when present and otherwise the average of
the importance of the member models.
*/
func (e *Ensemble) FieldImportance(ctx context.Context) ([]Importance, error) {
	if len(e.importance) > 0 {
		result := make([]Importance, len(e.importance))
		copy(result, e.importance)
		sortImportance(result)
		return result, nil
	}
	totals := map[string]float64{}
	if len(e.memberImportance) > 0 {
		for _, importance := range e.memberImportance {
			for _, i := range importance {
				totals[i.FieldID] += i.Value
			}
		}
	} else {
		err := e.eachModel(ctx, func(m *Model) error {
			for _, i := range m.importance {
				totals[i.FieldID] += i.Value
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	result := make([]Importance, 0, len(totals))
	for id, total := range totals {
		result = append(result, Importance{id, tree.Round(total / float64(len(e.ModelIDs)))})
	}
	sortImportance(result)
	return result, nil
}
