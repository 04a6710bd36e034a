package arboretum_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/arboretum"
	"github.com/pbanos/arboretum/resolver"
	"github.com/pbanos/arboretum/vote"
)

const memberFields = `{
	"000000": {"name": "x", "optype": "numeric", "column_number": 0},
	"000001": {"name": "label", "optype": "categorical", "column_number": 1,
	           "summary": {"categories": [["b", 15], ["a", 15]]}},
	"000002": {"name": "y", "optype": "numeric", "column_number": 2}
}`

func leafSummary(output string) string {
	other := "a"
	if output == "a" {
		other = "b"
	}
	return fmt.Sprintf(`{"categories": [[%q, 8], [%q, 2]]}`, output, other)
}

// memberExport returns the export of a model predicting low for x < 5
// and high otherwise
func memberExport(id int, low, high string) string {
	return fmt.Sprintf(`{
		"resource": "model/%d",
		"status": {"code": 5},
		"objective_fields": ["000001"],
		"model": {
			"fields": %s,
			"importance": [["000000", 1]],
			"root": {
				"id": 0, "predicate": true, "output": "a", "count": 20, "confidence": 0.29929,
				"objective_summary": {"categories": [["a", 10], ["b", 10]]},
				"children": [
					{"id": 1, "predicate": {"operator": "<", "field": "000000", "value": 5},
					 "output": %q, "count": 10, "confidence": 0.6, "objective_summary": %s},
					{"id": 2, "predicate": {"operator": ">=", "field": "000000", "value": 5},
					 "output": %q, "count": 10, "confidence": 0.6, "objective_summary": %s}
				]
			}
		}
	}`, id, memberFields, low, leafSummary(low), high, leafSummary(high))
}

// boostedExport returns the export of a boosted tree predicting low
// for x < 5 and high otherwise
func boostedExport(id int, objective, class string, low, high float64) string {
	return fmt.Sprintf(`{
		"resource": "model/%d",
		"status": {"code": 5},
		"objective_fields": [%q],
		"boosting": {"weight": 0.5, "objective_class": %q},
		"model": {
			"fields": %s,
			"root": {
				"id": 0, "predicate": true, "output": 0, "count": 20,
				"children": [
					{"id": 1, "predicate": {"operator": "<", "field": "000000", "value": 5}, "output": %v, "count": 10},
					{"id": 2, "predicate": {"operator": ">=", "field": "000000", "value": 5}, "output": %v, "count": 10}
				]
			}
		}
	}`, id, objective, class, memberFields, low, high)
}

type countingResolver struct {
	exports map[string]string
	calls   int
}

func (cr *countingResolver) Resolve(ctx context.Context, id string) ([]byte, error) {
	cr.calls++
	export, ok := cr.exports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resolver.ErrModelNotFound, id)
	}
	return []byte(export), nil
}

func votingMembers() *countingResolver {
	return &countingResolver{exports: map[string]string{
		"model/1": memberExport(1, "a", "b"),
		"model/2": memberExport(2, "a", "a"),
		"model/3": memberExport(3, "b", "b"),
	}}
}

const votingEnsemble = `{
	"resource": "ensemble/1",
	"status": {"code": 5},
	"models": ["model/1", "model/2", "model/3"],
	"objective_field": "000001",
	"ensemble": {"fields": ` + memberFields + `}
}`

func TestSplits(t *testing.T) {
	ids := []string{"m0", "m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9"}
	splits := arboretum.Splits(ids, 3)
	require.Len(t, splits, 4)
	var sizes []int
	var joined []string
	for _, s := range splits {
		sizes = append(sizes, len(s))
		joined = append(joined, s...)
	}
	assert.Equal(t, []int{3, 3, 3, 1}, sizes)
	assert.Equal(t, ids, joined)

	assert.Equal(t, [][]string{ids}, arboretum.Splits(ids, 0))
	assert.Equal(t, [][]string{ids}, arboretum.Splits(ids, 20))
	assert.Nil(t, arboretum.Splits(nil, 3))
}

func TestEnsemblePredict(t *testing.T) {
	ctx := context.Background()
	for _, max := range []int{0, 1, 2} {
		t.Run(fmt.Sprintf("max models %d", max), func(t *testing.T) {
			r := votingMembers()
			e, err := arboretum.NewEnsemble(ctx, []byte(votingEnsemble), arboretum.WithResolver(r), arboretum.WithMaxModels(max))
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, e.ClassNames)
			assert.False(t, e.Regression)

			opts := &arboretum.PredictOptions{ByName: true}
			p, err := e.Predict(ctx, map[string]interface{}{"x": 1, "z": 3}, opts)
			require.NoError(t, err)
			assert.Equal(t, "a", p.Output)
			assert.Equal(t, []string{"z"}, p.UnusedFields)

			p, err = e.Predict(ctx, map[string]interface{}{"x": 7}, opts)
			require.NoError(t, err)
			assert.Equal(t, "b", p.Output)

			if max == 0 {
				assert.Equal(t, 3, r.calls)
			} else {
				assert.Equal(t, 6, r.calls)
			}
		})
	}
}

func TestEnsembleMethods(t *testing.T) {
	ctx := context.Background()
	e, err := arboretum.NewEnsemble(ctx, []byte(votingEnsemble), arboretum.WithResolver(votingMembers()), arboretum.WithMaxModels(2))
	require.NoError(t, err)
	input := map[string]interface{}{"000000": 1}
	for _, m := range []vote.Method{vote.Plurality, vote.Confidence, vote.Probability} {
		p, err := e.Predict(ctx, input, &arboretum.PredictOptions{Method: m})
		require.NoError(t, err)
		assert.Equal(t, "a", p.Output, "method %s", m)
	}
	p, err := e.Predict(ctx, input, &arboretum.PredictOptions{Method: vote.Threshold, Threshold: 1, Category: "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", p.Output)

	_, err = e.Predict(ctx, input, &arboretum.PredictOptions{Method: vote.Boosting})
	assert.True(t, errors.Is(err, arboretum.ErrInvalidCombination))

	mv, err := e.Votes(ctx, input, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, mv.Len())
}

func TestEnsembleScores(t *testing.T) {
	ctx := context.Background()
	e, err := arboretum.NewEnsemble(ctx, []byte(votingEnsemble), arboretum.WithResolver(votingMembers()))
	require.NoError(t, err)
	input := map[string]interface{}{"000000": 1}

	probabilities, err := e.PredictProbability(ctx, input, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.59091, 0.40909}, probabilities)

	votes, err := e.PredictVotes(ctx, input, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.66667, 0.33333}, votes)

	confidences, err := e.PredictConfidence(ctx, input, nil)
	require.NoError(t, err)
	require.Len(t, confidences, 2)
	assert.True(t, confidences[0] > confidences[1])
}

func TestEnsembleOperatingPoint(t *testing.T) {
	ctx := context.Background()
	e, err := arboretum.NewEnsemble(ctx, []byte(votingEnsemble), arboretum.WithResolver(votingMembers()))
	require.NoError(t, err)
	input := map[string]interface{}{"000000": 1}
	testCases := []struct {
		kind      arboretum.ScoreKind
		threshold float64
		output    string
	}{
		{arboretum.VotesKind, 0.3, "b"},
		{arboretum.VotesKind, 0.5, "a"},
		{arboretum.ProbabilityKind, 0.4, "b"},
		{arboretum.ProbabilityKind, 0.45, "a"},
	}
	for _, tc := range testCases {
		op := &arboretum.OperatingPoint{PositiveClass: "b", Kind: tc.kind, Threshold: tc.threshold}
		p, err := e.Predict(ctx, input, &arboretum.PredictOptions{OperatingPoint: op})
		require.NoError(t, err)
		assert.Equal(t, tc.output, p.Output, "%s over %f", tc.kind, tc.threshold)
	}

	p, err := e.Predict(ctx, input, &arboretum.PredictOptions{OperatingKind: arboretum.ProbabilityKind})
	require.NoError(t, err)
	assert.Equal(t, "a", p.Output)
	assert.Equal(t, 0.59091, p.Probability)
}

func TestEnsembleOperatingKindAliases(t *testing.T) {
	ctx := context.Background()
	e, err := arboretum.NewEnsemble(ctx, []byte(votingEnsemble), arboretum.WithResolver(votingMembers()))
	require.NoError(t, err)
	input := map[string]interface{}{"000000": 1}
	for _, kind := range []string{"votes", "voting", "Votes"} {
		t.Run(kind, func(t *testing.T) {
			op := &arboretum.OperatingPoint{PositiveClass: "a", Kind: arboretum.ScoreKind(kind), Threshold: 0.6}
			p, err := e.Predict(ctx, input, &arboretum.PredictOptions{OperatingPoint: op})
			require.NoError(t, err)
			assert.Equal(t, "a", p.Output)
			assert.Equal(t, 0.66667, p.Probability)

			p, err = e.Predict(ctx, input, &arboretum.PredictOptions{OperatingKind: arboretum.ScoreKind(kind)})
			require.NoError(t, err)
			assert.Equal(t, "a", p.Output)
			assert.Equal(t, 0.66667, p.Probability)
		})
	}

	op := &arboretum.OperatingPoint{PositiveClass: "a", Kind: "odds", Threshold: 0.6}
	_, err = e.Predict(ctx, input, &arboretum.PredictOptions{OperatingPoint: op})
	assert.Error(t, err)
	_, err = e.Predict(ctx, input, &arboretum.PredictOptions{OperatingKind: "odds"})
	assert.Error(t, err)
}

func TestEnsembleMixedModelsKeepResolverUncached(t *testing.T) {
	ctx := context.Background()
	r := &countingResolver{exports: map[string]string{
		"model/2": memberExport(2, "a", "a"),
		"model/3": memberExport(3, "b", "b"),
	}}
	export := fmt.Sprintf(`{
		"resource": "ensemble/3",
		"models": [%s, "model/2", "model/3"],
		"objective_field": "000001",
		"ensemble": {"fields": %s}
	}`, memberExport(1, "a", "b"), memberFields)
	e, err := arboretum.NewEnsemble(ctx, []byte(export), arboretum.WithResolver(r), arboretum.WithMaxModels(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"model/1", "model/2", "model/3"}, e.ModelIDs)
	for i := 0; i < 3; i++ {
		p, err := e.Predict(ctx, map[string]interface{}{"000000": 1}, nil)
		require.NoError(t, err)
		assert.Equal(t, "a", p.Output)
	}
	assert.Equal(t, 6, r.calls)
}

func TestEnsembleFieldImportance(t *testing.T) {
	ctx := context.Background()
	e, err := arboretum.NewEnsemble(ctx, []byte(votingEnsemble), arboretum.WithResolver(votingMembers()), arboretum.WithMaxModels(1))
	require.NoError(t, err)
	importance, err := e.FieldImportance(ctx)
	require.NoError(t, err)
	assert.Equal(t, []arboretum.Importance{{"000000", 1}}, importance)

	withDistributions := strings.Replace(votingEnsemble, `"models"`, `"distributions": [
		{"importance": [["000000", 0.6], ["000002", 0.4]], "training": {"categories": [["a", 10], ["b", 10]]}},
		{"importance": [["000000", 0.9], ["000002", 0.1]], "training": {"categories": [["a", 10], ["b", 10]]}},
		{"importance": [["000000", 0.3], ["000002", 0.7]], "training": {"categories": [["a", 10], ["b", 10]]}}
	], "models"`, 1)
	e, err = arboretum.NewEnsemble(ctx, []byte(withDistributions), arboretum.WithResolver(votingMembers()))
	require.NoError(t, err)
	require.Len(t, e.Distributions, 3)
	importance, err = e.FieldImportance(ctx)
	require.NoError(t, err)
	assert.Equal(t, []arboretum.Importance{{"000000", 0.6}, {"000002", 0.4}}, importance)

	withImportance := strings.Replace(votingEnsemble, `"models"`, `"importance": {"000000": 0.2, "000002": 0.8}, "models"`, 1)
	e, err = arboretum.NewEnsemble(ctx, []byte(withImportance), arboretum.WithResolver(votingMembers()))
	require.NoError(t, err)
	importance, err = e.FieldImportance(ctx)
	require.NoError(t, err)
	assert.Equal(t, []arboretum.Importance{{"000002", 0.8}, {"000000", 0.2}}, importance)
}

func TestEnsembleEmbeddedModels(t *testing.T) {
	ctx := context.Background()
	export := fmt.Sprintf(`{"object": {
		"resource": "ensemble/2",
		"models": [%s, {"object": %s}],
		"objective_field": "000001"
	}}`, memberExport(1, "a", "b"), memberExport(3, "b", "b"))
	e, err := arboretum.NewEnsemble(ctx, []byte(export), arboretum.WithMaxModels(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"model/1", "model/3"}, e.ModelIDs)
	p, err := e.Predict(ctx, map[string]interface{}{"000000": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", p.Output)
}

func TestNewEnsembleErrors(t *testing.T) {
	ctx := context.Background()
	_, err := arboretum.NewEnsemble(ctx, []byte(votingEnsemble))
	assert.True(t, errors.Is(err, arboretum.ErrNoResolver))

	_, err = arboretum.NewEnsemble(ctx, []byte(`{"resource": "ensemble/1", "status": {"code": 1}, "models": ["model/1"]}`))
	assert.True(t, errors.Is(err, arboretum.ErrUnfinishedResource))

	_, err = arboretum.NewEnsemble(ctx, []byte(`{"resource": "ensemble/1", "models": []}`))
	assert.True(t, errors.Is(err, arboretum.ErrMalformedModel))

	r := &countingResolver{exports: map[string]string{}}
	_, err = arboretum.NewEnsemble(ctx, []byte(votingEnsemble), arboretum.WithResolver(r))
	assert.True(t, errors.Is(err, resolver.ErrModelNotFound))

	e, err := arboretum.NewEnsemble(ctx, []byte(votingEnsemble), arboretum.WithResolver(r), arboretum.WithMaxModels(2))
	require.NoError(t, err)
	_, err = e.Predict(ctx, map[string]interface{}{"000000": 1}, nil)
	assert.True(t, errors.Is(err, resolver.ErrModelNotFound))
}

func TestBoostedRegressionEnsemble(t *testing.T) {
	ctx := context.Background()
	r := &countingResolver{exports: map[string]string{
		"model/1": boostedExport(1, "000002", "", 2, -2),
		"model/2": boostedExport(2, "000002", "", 2, -2),
	}}
	export := `{
		"resource": "ensemble/3",
		"models": ["model/1", "model/2"],
		"boosting": {"iterations": 2, "learning_rate": 0.5},
		"initial_offset": 10,
		"objective_field": "000002",
		"ensemble": {"fields": ` + memberFields + `}
	}`
	e, err := arboretum.NewEnsemble(ctx, []byte(export), arboretum.WithResolver(r))
	require.NoError(t, err)
	assert.True(t, e.Boosted)
	assert.True(t, e.Regression)

	p, err := e.Predict(ctx, map[string]interface{}{"000000": 1}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, p.Value(), 1e-9)

	p, err = e.Predict(ctx, map[string]interface{}{"000000": 8}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, p.Value(), 1e-9)

	_, err = e.Predict(ctx, map[string]interface{}{"000000": 1}, &arboretum.PredictOptions{Method: vote.Plurality})
	assert.True(t, errors.Is(err, arboretum.ErrInvalidCombination))
}

func TestBoostedClassificationEnsemble(t *testing.T) {
	ctx := context.Background()
	r := &countingResolver{exports: map[string]string{
		"model/1": boostedExport(1, "000001", "a", 2, -2),
		"model/2": boostedExport(2, "000001", "b", -2, 2),
	}}
	export := `{
		"resource": "ensemble/4",
		"models": ["model/1", "model/2"],
		"boosting": {"iterations": 1},
		"initial_offsets": [["a", 0], ["b", 0]],
		"objective_field": "000001",
		"ensemble": {"fields": ` + memberFields + `}
	}`
	e, err := arboretum.NewEnsemble(ctx, []byte(export), arboretum.WithResolver(r), arboretum.WithMaxModels(1))
	require.NoError(t, err)
	input := map[string]interface{}{"000000": 1}

	p, err := e.Predict(ctx, input, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", p.Output)
	assert.InDelta(t, 0.8808, p.Probability, 1e-5)

	probabilities, err := e.PredictProbability(ctx, input, nil)
	require.NoError(t, err)
	require.Len(t, probabilities, 2)
	assert.InDelta(t, 0.8808, probabilities[0], 1e-5)
	assert.InDelta(t, 0.1192, probabilities[1], 1e-5)

	_, err = e.PredictConfidence(ctx, input, nil)
	assert.True(t, errors.Is(err, arboretum.ErrInvalidCombination))

	_, err = e.Predict(ctx, input, &arboretum.PredictOptions{Method: vote.Probability})
	assert.True(t, errors.Is(err, arboretum.ErrInvalidCombination))

	op := &arboretum.OperatingPoint{PositiveClass: "b", Kind: arboretum.ProbabilityKind, Threshold: 0.1}
	p, err = e.Predict(ctx, input, &arboretum.PredictOptions{OperatingPoint: op})
	require.NoError(t, err)
	assert.Equal(t, "b", p.Output)
}
