package arboretum_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/arboretum"
	"github.com/pbanos/arboretum/dataset"
	"github.com/pbanos/arboretum/tree"
)

func TestMultiModel(t *testing.T) {
	var models []*arboretum.Model
	for i, outputs := range [][]string{{"a", "b"}, {"b", "b"}, {"b", "a"}} {
		m, err := arboretum.NewModel([]byte(memberExport(i+1, outputs[0], outputs[1])))
		require.NoError(t, err)
		models = append(models, m)
	}
	mm, err := arboretum.NewMultiModel(models...)
	require.NoError(t, err)
	assert.Equal(t, 3, mm.Fields.Len())

	ctx := context.Background()
	p, err := mm.Predict(ctx, map[string]interface{}{"x": 1}, &arboretum.PredictOptions{ByName: true})
	require.NoError(t, err)
	assert.Equal(t, "b", p.Output)

	mv, err := mm.Votes(ctx, map[string]interface{}{"x": 9}, &arboretum.PredictOptions{ByName: true})
	require.NoError(t, err)
	votes := mv.Votes()
	require.Len(t, votes, 3)
	assert.Equal(t, "b", votes[0].Label())
	assert.Equal(t, "a", votes[2].Label())
	assert.Equal(t, 2, votes[2].Order)

	_, err = arboretum.NewMultiModel()
	require.NoError(t, err)
	empty, _ := arboretum.NewMultiModel()
	_, err = empty.Predict(ctx, map[string]interface{}{"x": 1}, nil)
	assert.True(t, errors.Is(err, arboretum.ErrEmptyVoteSet))
}

func TestBatchPredict(t *testing.T) {
	m := irisModel(t)
	ds := dataset.New([]dataset.Record{
		{"petal length": "1.2"},
		{"petal length": "5.1", "color": "red"},
		{"petal length": "5.1", "color": "blue"},
	})
	var outputs []interface{}
	err := arboretum.BatchPredict(context.Background(), m, ds, &arboretum.PredictOptions{ByName: true}, func(i int, r dataset.Record, p *tree.Prediction) error {
		assert.Equal(t, len(outputs), i)
		outputs = append(outputs, p.Output)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Iris-setosa", "Iris-versicolor", "Iris-virginica"}, outputs)

	stop := errors.New("stop")
	err = arboretum.BatchPredict(context.Background(), m, ds, &arboretum.PredictOptions{ByName: true}, func(int, dataset.Record, *tree.Prediction) error {
		return stop
	})
	assert.Equal(t, stop, err)

	bad := dataset.New([]dataset.Record{{"petal length": "long"}})
	err = arboretum.BatchPredict(context.Background(), m, bad, &arboretum.PredictOptions{ByName: true}, func(int, dataset.Record, *tree.Prediction) error {
		return nil
	})
	assert.Error(t, err)
}

func TestEvaluateClassification(t *testing.T) {
	m := irisModel(t)
	ds := dataset.New([]dataset.Record{
		{"petal length": "1.2", "species": "Iris-setosa"},
		{"petal length": "5.1", "color": "red", "species": "Iris-versicolor"},
		{"petal length": "5.1", "color": "blue", "species": "Iris-versicolor"},
		{"petal length": "short", "species": "Iris-setosa"},
		{"petal length": "1.2"},
	})
	ev, err := arboretum.Evaluate(context.Background(), m, ds, "species", &arboretum.PredictOptions{ByName: true})
	require.NoError(t, err)
	assert.Equal(t, 4, ev.Count)
	assert.Equal(t, 2, ev.Correct)
	assert.Equal(t, 1, ev.Errors)
	assert.Equal(t, 0.5, ev.Accuracy)
	assert.True(t, math.IsNaN(ev.MeanAbsoluteError))
}

func TestEvaluateRegression(t *testing.T) {
	r := &countingResolver{exports: map[string]string{
		"model/1": boostedExport(1, "000002", "", 2, -2),
	}}
	export := `{
		"resource": "ensemble/5",
		"models": ["model/1"],
		"boosting": {"iterations": 1},
		"initial_offset": 10,
		"objective_field": "000002",
		"ensemble": {"fields": ` + memberFields + `}
	}`
	e, err := arboretum.NewEnsemble(context.Background(), []byte(export), arboretum.WithResolver(r))
	require.NoError(t, err)
	ds := dataset.New([]dataset.Record{
		{"x": "1", "y": "12"},
		{"x": "7", "y": 8.0},
	})
	ev, err := arboretum.Evaluate(context.Background(), e, ds, "y", &arboretum.PredictOptions{ByName: true})
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Count)
	assert.Equal(t, 0, ev.Errors)
	assert.InDelta(t, 1.0, ev.MeanAbsoluteError, 1e-9)
}
