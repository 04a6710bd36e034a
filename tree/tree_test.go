package tree_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/arboretum/feature"
	"github.com/pbanos/arboretum/tree"
)

func irisCatalog(t *testing.T) *feature.Catalog {
	c, err := feature.NewCatalog([]*feature.Field{
		{ID: "000002", Name: "petal length", Optype: feature.Numeric, ColumnNumber: 2},
		{ID: "000003", Name: "petal width", Optype: feature.Numeric, ColumnNumber: 3},
		{ID: "000004", Name: "species", Optype: feature.Categorical, ColumnNumber: 4},
	})
	require.NoError(t, err)
	return c
}

func irisTree(t *testing.T) *tree.Tree {
	nodes := []tree.Node{
		{
			ID: 0, Children: []int{1, 2}, Output: "setosa", Count: 150, Confidence: 0.26289,
			Distribution: tree.Distribution{{"setosa", 50}, {"versicolor", 50}, {"virginica", 50}},
		},
		{
			ID: 1, Output: "setosa", Count: 50, Confidence: 0.92865,
			Predicate:    &feature.Predicate{Operator: feature.LessThan, Field: "000002", Value: 2.45},
			Distribution: tree.Distribution{{"setosa", 50}},
		},
		{
			ID: 2, Children: []int{3, 4}, Output: "versicolor", Count: 100, Confidence: 0.40383,
			Predicate:    &feature.Predicate{Operator: feature.GreaterOrEqual, Field: "000002", Value: 2.45},
			Distribution: tree.Distribution{{"versicolor", 50}, {"virginica", 50}},
		},
		{
			ID: 3, Output: "versicolor", Count: 54, Confidence: 0.80669,
			Predicate:    &feature.Predicate{Operator: feature.LessThan, Field: "000003", Value: 1.75},
			Distribution: tree.Distribution{{"versicolor", 49}, {"virginica", 5}},
		},
		{
			ID: 4, Output: "virginica", Count: 46, Confidence: 0.88664,
			Predicate:    &feature.Predicate{Operator: feature.GreaterOrEqual, Field: "000003", Value: 1.75},
			Distribution: tree.Distribution{{"versicolor", 1}, {"virginica", 45}},
		},
	}
	for i := range nodes {
		nodes[i].Median, nodes[i].Min, nodes[i].Max = math.NaN(), math.NaN(), math.NaN()
	}
	tr, err := tree.New(nodes, irisCatalog(t), "000004", false)
	require.NoError(t, err)
	return tr
}

func TestNewComputesParentsAndDepths(t *testing.T) {
	tr := irisTree(t)
	assert.Equal(t, 5, tr.Len())
	assert.Equal(t, -1, tr.Root().Parent())
	assert.Equal(t, 2, tr.Node(4).Parent())
	assert.Equal(t, 2, tr.Node(3).Depth())
	assert.Equal(t, 2, tr.Depth())
	assert.Equal(t, []int{1, 3, 4}, tr.Leaves())
}

func TestNewRejectsMalformedTrees(t *testing.T) {
	pred := &feature.Predicate{Operator: feature.Equal, Field: "a", Value: "x"}
	cases := map[string][]tree.Node{
		"empty":         nil,
		"out of range":  {{ID: 0, Children: []int{3}}},
		"twice":         {{ID: 0, Children: []int{1, 1}}, {ID: 1, Predicate: pred}},
		"unreachable":   {{ID: 0}, {ID: 1, Predicate: pred}},
		"root as child": {{ID: 0, Children: []int{0}}},
		"no predicate":  {{ID: 0, Children: []int{1}}, {ID: 1}},
	}
	for name, nodes := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tree.New(nodes, nil, "", false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tree.ErrMalformedTree))
		})
	}
}

func TestPredictLeafIsReturnedVerbatim(t *testing.T) {
	tr := irisTree(t)
	for _, ms := range []tree.MissingStrategy{tree.LastPrediction, tree.Proportional} {
		p, err := tr.Predict(feature.Sample{"000002": 1.0}, ms)
		require.NoError(t, err)
		assert.Equal(t, "setosa", p.Output, ms.String())
		assert.Equal(t, 0.92865, p.Confidence, ms.String())
		assert.Equal(t, 50, p.Count, ms.String())
		assert.Equal(t, tree.Distribution{{"setosa", 50.0}}, p.Distribution, ms.String())
		assert.Len(t, p.Path, 1, ms.String())
		assert.Equal(t, "", p.NextField, ms.String())
	}
}

func TestPredictStrategiesAgreeWhenFieldsArePresent(t *testing.T) {
	tr := irisTree(t)
	samples := []feature.Sample{
		{"000002": 5.0, "000003": 2.0},
		{"000002": 5.0, "000003": 1.0},
		{"000002": 1.5, "000003": 0.2},
	}
	for _, s := range samples {
		last, err := tr.Predict(s, tree.LastPrediction)
		require.NoError(t, err)
		proportional, err := tr.Predict(s, tree.Proportional)
		require.NoError(t, err)
		assert.Equal(t, last.Output, proportional.Output)
		assert.Equal(t, last.Count, proportional.Count)
		assert.Equal(t, last.Distribution, proportional.Distribution)
		assert.Equal(t, last.Path, proportional.Path)
	}
}

func TestPredictLastPredictionStopsAtMissingField(t *testing.T) {
	tr := irisTree(t)
	p, err := tr.Predict(feature.Sample{"000002": 5.0}, tree.LastPrediction)
	require.NoError(t, err)
	assert.Equal(t, "versicolor", p.Output)
	assert.Equal(t, 0.40383, p.Confidence)
	assert.Equal(t, 100, p.Count)
	assert.Equal(t, "000003", p.NextField)
	assert.Equal(t, []string{"petal length >= 2.45"}, p.Rules(tr.Fields))
	assert.InDelta(t, 0.5, p.Probability, 1e-9)
}

func TestPredictProportionalMergesChildren(t *testing.T) {
	tr := irisTree(t)
	p, err := tr.Predict(feature.Sample{"000002": 5.0}, tree.Proportional)
	require.NoError(t, err)
	assert.Equal(t, "versicolor", p.Output)
	assert.Equal(t, 100, p.Count)
	assert.InDelta(t, 0.40383, p.Confidence, 1e-5)
	assert.Equal(t, tree.Distribution{{"versicolor", 50.0}, {"virginica", 50.0}}, p.Distribution)
	assert.Len(t, p.Path, 1)

	p, err = tr.Predict(feature.Sample{}, tree.Proportional)
	require.NoError(t, err)
	assert.Equal(t, "setosa", p.Output)
	assert.Equal(t, 150, p.Count)
	assert.InDelta(t, 0.26289, p.Confidence, 1e-5)
	assert.Empty(t, p.Path)
}

func TestPredictPrefersMissingBranch(t *testing.T) {
	c, err := feature.NewCatalog([]*feature.Field{
		{ID: "000000", Name: "color", Optype: feature.Categorical},
		{ID: "000001", Name: "label", Optype: feature.Categorical},
	})
	require.NoError(t, err)
	nodes := []tree.Node{
		{ID: 0, Children: []int{1, 2}, Output: "yes", Count: 10, Distribution: tree.Distribution{{"yes", 6}, {"no", 4}}},
		{
			ID: 1, Output: "yes", Count: 6, Confidence: 0.6,
			Predicate:    &feature.Predicate{Operator: feature.Equal, Field: "000000", Value: "red"},
			Distribution: tree.Distribution{{"yes", 6}},
		},
		{
			ID: 2, Output: "no", Count: 4, Confidence: 0.5,
			Predicate:    &feature.Predicate{Operator: feature.NotEqual, Field: "000000", Value: "red", Missing: true},
			Distribution: tree.Distribution{{"no", 4}},
		},
	}
	tr, err := tree.New(nodes, c, "000001", false)
	require.NoError(t, err)
	for _, ms := range []tree.MissingStrategy{tree.LastPrediction, tree.Proportional} {
		p, err := tr.Predict(feature.Sample{}, ms)
		require.NoError(t, err)
		assert.Equal(t, "no", p.Output, ms.String())
		assert.Equal(t, 4, p.Count, ms.String())
		assert.Equal(t, []string{"color != red or missing"}, p.Rules(c), ms.String())
	}
}

func TestPathAndImpureLeaves(t *testing.T) {
	tr := irisTree(t)
	path := tr.Path(4)
	require.Len(t, path, 2)
	assert.Equal(t, "petal length >= 2.45", path[0].Rule(tr.Fields))
	assert.Equal(t, "petal width >= 1.75", path[1].Rule(tr.Fields))
	assert.Empty(t, tr.Path(0))

	assert.Empty(t, tr.ImpureLeaves(0.2))
	assert.Equal(t, []int{3}, tr.ImpureLeaves(0.1))
	assert.InDelta(t, 0.16804, tr.Node(3).GiniImpurity(), 1e-5)
}

func TestTraverse(t *testing.T) {
	tr := irisTree(t)
	var topdown, bottomup []int
	require.NoError(t, tr.Traverse(false, func(i int) error {
		topdown = append(topdown, i)
		return nil
	}))
	require.NoError(t, tr.Traverse(true, func(i int) error {
		bottomup = append(bottomup, i)
		return nil
	}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, topdown)
	assert.Equal(t, []int{1, 3, 4, 2, 0}, bottomup)

	stop := errors.New("stop")
	var visited int
	err := tr.Traverse(false, func(int) error {
		visited++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, visited)
}

func TestString(t *testing.T) {
	s := irisTree(t).String()
	assert.Contains(t, s, "[0]\n")
	assert.Contains(t, s, "|__[4]")
	assert.Contains(t, s, "petal width >= 1.75")
}

func regressionTree(t *testing.T, leftValue, rightValue float64, leftCount, rightCount int) *tree.Tree {
	c, err := feature.NewCatalog([]*feature.Field{
		{ID: "000000", Name: "x", Optype: feature.Numeric},
		{ID: "000001", Name: "y", Optype: feature.Numeric},
	})
	require.NoError(t, err)
	nodes := []tree.Node{
		{
			ID: 0, Children: []int{1, 2}, Output: 20.0, Count: leftCount + rightCount, Confidence: 5,
			Distribution: tree.Distribution{{leftValue, float64(leftCount)}, {rightValue, float64(rightCount)}},
			Median:       math.NaN(), Min: leftValue, Max: rightValue,
		},
		{
			ID: 1, Output: leftValue, Count: leftCount, Confidence: 1,
			Predicate:    &feature.Predicate{Operator: feature.LessThan, Field: "000000", Value: 5.0},
			Distribution: tree.Distribution{{leftValue, float64(leftCount)}},
			Median:       leftValue, Min: leftValue, Max: leftValue,
		},
		{
			ID: 2, Output: rightValue, Count: rightCount, Confidence: 2,
			Predicate:    &feature.Predicate{Operator: feature.GreaterOrEqual, Field: "000000", Value: 5.0},
			Distribution: tree.Distribution{{rightValue, float64(rightCount)}},
			Median:       rightValue, Min: rightValue, Max: rightValue,
		},
	}
	tr, err := tree.New(nodes, c, "000001", true)
	require.NoError(t, err)
	return tr
}

func TestPredictRegression(t *testing.T) {
	tr := regressionTree(t, 10, 30, 2, 2)

	p, err := tr.Predict(feature.Sample{"000000": 7.0}, tree.LastPrediction)
	require.NoError(t, err)
	assert.Equal(t, 30.0, p.Value())
	assert.Equal(t, 2.0, p.Confidence)
	assert.Equal(t, tree.CountsUnit, p.DistributionUnit)

	p, err = tr.Predict(feature.Sample{}, tree.LastPrediction)
	require.NoError(t, err)
	assert.Equal(t, 20.0, p.Value())
	assert.Equal(t, 5.0, p.Confidence)

	p, err = tr.Predict(feature.Sample{}, tree.Proportional)
	require.NoError(t, err)
	assert.Equal(t, 20.0, p.Value())
	assert.InDelta(t, 46.97376, p.Confidence, 1e-3)
	assert.Equal(t, 4, p.Count)
	assert.Equal(t, 10.0, p.Min)
	assert.Equal(t, 30.0, p.Max)
	assert.Equal(t, 30.0, p.Median)
	assert.Equal(t, tree.CountsUnit, p.DistributionUnit)
}

func TestPredictRegressionSingleBinUsesParentError(t *testing.T) {
	tr := regressionTree(t, 10, 10, 1, 1)
	p, err := tr.Predict(feature.Sample{}, tree.Proportional)
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.Value())
	assert.InDelta(t, 5/math.Sqrt2, p.Confidence, 1e-5)
	assert.Equal(t, 2, p.Count)
}

func TestParseMissingStrategy(t *testing.T) {
	ms, err := tree.ParseMissingStrategy("proportional")
	require.NoError(t, err)
	assert.Equal(t, tree.Proportional, ms)
	ms, err = tree.ParseMissingStrategy("")
	require.NoError(t, err)
	assert.Equal(t, tree.LastPrediction, ms)
	_, err = tree.ParseMissingStrategy("random")
	assert.Error(t, err)
}
