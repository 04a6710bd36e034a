package vote_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/arboretum/tree"
	"github.com/pbanos/arboretum/vote"
)

func label(l string, confidence float64, count int, d tree.Distribution) *tree.Prediction {
	p := tree.NewPrediction(l)
	p.Confidence = confidence
	p.Count = count
	p.Distribution = d
	if total := d.Total(); total > 0 {
		p.Probability = d.CountOf(l) / total
	}
	return p
}

func value(v, err float64, count int) *tree.Prediction {
	p := tree.NewPrediction(v)
	p.Confidence = err
	p.Count = count
	p.Distribution = tree.Distribution{{Value: v, Count: float64(count)}}
	p.Median, p.Min, p.Max = v, v, v
	return p
}

func TestCombineEmpty(t *testing.T) {
	_, err := vote.New().Combine(vote.Plurality, nil)
	assert.Equal(t, vote.ErrEmptyVoteSet, err)
}

func TestCombinePlurality(t *testing.T) {
	mv := vote.New(
		label("A", 0.8, 10, tree.Distribution{{Value: "A", Count: 8}, {Value: "B", Count: 2}}),
		label("A", 0.6, 10, tree.Distribution{{Value: "A", Count: 6}, {Value: "B", Count: 4}}),
		label("B", 0.9, 10, tree.Distribution{{Value: "B", Count: 10}}),
	)
	p, err := mv.Combine(vote.Plurality, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", p.Output)
	assert.InDelta(t, 0.7, p.Confidence, 1e-9)
	assert.Equal(t, 30, p.Count)
	assert.Equal(t, tree.Distribution{{Value: "A", Count: 2.0}, {Value: "B", Count: 1.0}}, p.Distribution)
}

func TestCombinePluralityTieGoesToFirstVote(t *testing.T) {
	p, err := vote.New(
		label("A", 0.5, 4, tree.Distribution{{Value: "A", Count: 4}}),
		label("B", 0.9, 4, tree.Distribution{{Value: "B", Count: 4}}),
	).Combine(vote.Plurality, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", p.Output)

	p, err = vote.New(
		label("B", 0.9, 4, tree.Distribution{{Value: "B", Count: 4}}),
		label("A", 0.5, 4, tree.Distribution{{Value: "A", Count: 4}}),
	).Combine(vote.Plurality, nil)
	require.NoError(t, err)
	assert.Equal(t, "B", p.Output)
}

func TestCombineConfidence(t *testing.T) {
	mv := vote.New(
		label("A", 0.3, 10, tree.Distribution{{Value: "A", Count: 3}}),
		label("A", 0.3, 10, tree.Distribution{{Value: "A", Count: 3}}),
		label("B", 0.9, 10, tree.Distribution{{Value: "B", Count: 9}}),
	)
	p, err := mv.Combine(vote.Confidence, nil)
	require.NoError(t, err)
	assert.Equal(t, "B", p.Output)
	assert.InDelta(t, 0.9, p.Confidence, 1e-9)

	missing := tree.NewPrediction("A")
	mv.Append(missing)
	_, err = mv.Combine(vote.Confidence, nil)
	assert.True(t, errors.Is(err, vote.ErrInvalidCombination))
}

func TestCombineProbability(t *testing.T) {
	mv := vote.New(
		label("A", 0.5, 10, tree.Distribution{{Value: "A", Count: 6}, {Value: "B", Count: 4}}),
		label("B", 0.5, 10, tree.Distribution{{Value: "A", Count: 1}, {Value: "B", Count: 9}}),
		label("A", 0.5, 10, tree.Distribution{{Value: "A", Count: 5}, {Value: "B", Count: 5}}),
	)
	p, err := mv.Combine(vote.Probability, nil)
	require.NoError(t, err)
	assert.Equal(t, "B", p.Output)
	assert.Equal(t, 30, p.Count)
	assert.InDelta(t, 1.8, p.Distribution.CountOf("B"), 1e-9)
	assert.InDelta(t, 1.2, p.Distribution.CountOf("A"), 1e-9)
	assert.InDelta(t, 0.6, p.Probability, 1e-9)
	assert.True(t, p.Confidence > 0 && p.Confidence < 0.6)

	noDistribution := tree.NewPrediction("A")
	mv.Append(noDistribution)
	_, err = mv.Combine(vote.Probability, nil)
	assert.True(t, errors.Is(err, vote.ErrInvalidCombination))
}

func TestCombineThreshold(t *testing.T) {
	mv := vote.New(
		label("A", 0.5, 1, tree.Distribution{{Value: "A", Count: 1}}),
		label("B", 0.5, 1, tree.Distribution{{Value: "B", Count: 1}}),
		label("C", 0.5, 1, tree.Distribution{{Value: "C", Count: 1}}),
		label("C", 0.5, 1, tree.Distribution{{Value: "C", Count: 1}}),
		label("A", 0.5, 1, tree.Distribution{{Value: "A", Count: 1}}),
	)
	p, err := mv.Combine(vote.Threshold, &vote.Options{Threshold: 1, Category: "B"})
	require.NoError(t, err)
	assert.Equal(t, "B", p.Output)

	p, err = mv.Combine(vote.Threshold, &vote.Options{Threshold: 2, Category: "B"})
	require.NoError(t, err)
	assert.Equal(t, "A", p.Output)

	for _, opts := range []*vote.Options{nil, {Threshold: 0, Category: "B"}, {Threshold: 6, Category: "B"}} {
		_, err = mv.Combine(vote.Threshold, opts)
		assert.True(t, errors.Is(err, vote.ErrInvalidCombination))
	}
}

func TestCombineRegressionAverage(t *testing.T) {
	mv := vote.New(value(10, 1, 2), value(20, 3, 2), value(30, 2, 4))
	p, err := mv.Combine(vote.Plurality, nil)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, p.Value(), 1e-9)
	assert.InDelta(t, 2.0, p.Confidence, 1e-9)
	assert.Equal(t, 8, p.Count)
	assert.InDelta(t, 20.0, p.Median, 1e-9)
	assert.Equal(t, 10.0, p.Min)
	assert.Equal(t, 30.0, p.Max)
	assert.Equal(t, tree.Distribution{{Value: 10.0, Count: 2.0}, {Value: 20.0, Count: 2.0}, {Value: 30.0, Count: 4.0}}, p.Distribution)
	assert.Equal(t, tree.CountsUnit, p.DistributionUnit)

	p, err = mv.Combine(vote.Probability, nil)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, p.Value(), 1e-9)
}

func TestCombineRegressionErrorWeighted(t *testing.T) {
	p, err := vote.New(value(10, 1, 1), value(20, 5, 1)).Combine(vote.Confidence, nil)
	require.NoError(t, err)
	assert.True(t, math.Abs(p.Value()-10) < math.Abs(p.Value()-15))
	w := math.Exp(-10)
	assert.InDelta(t, (10+20*w)/(1+w), p.Value(), 1e-9)

	p, err = vote.New(value(10, 0, 1), value(20, 0, 1)).Combine(vote.Confidence, nil)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, p.Value(), 1e-9)
}

func TestCombineRegressionMergesBins(t *testing.T) {
	mv := vote.New()
	for i := 0; i < 40; i++ {
		mv.Append(value(float64(i), 1, 1))
	}
	p, err := mv.Combine(vote.Plurality, nil)
	require.NoError(t, err)
	assert.Len(t, p.Distribution, tree.BinsLimit)
	assert.Equal(t, 40.0, p.Distribution.Total())
	assert.Equal(t, tree.BinsUnit, p.DistributionUnit)
}

func TestCombineBoostingRegression(t *testing.T) {
	mv := vote.NewBoosting(5, nil, nil)
	mv.AppendBoosted(value(2, math.NaN(), 1), 0.5, "")
	mv.AppendBoosted(value(4, math.NaN(), 1), 0.5, "")
	p, err := mv.Combine(vote.Boosting, nil)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, p.Value(), 1e-9)
	p, err = mv.Combine(vote.Default, nil)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, p.Value(), 1e-9)
}

func TestCombineBoostingClassification(t *testing.T) {
	mv := vote.NewBoosting(0, map[string]float64{"A": 0.1, "B": 0.1, "C": 0.3}, []string{"A", "B", "C"})
	mv.AppendBoosted(value(1, math.NaN(), 1), 1, "A")
	mv.AppendBoosted(value(1, math.NaN(), 1), 1, "B")
	mv.AppendBoosted(value(0.5, math.NaN(), 1), 0.4, "C")
	p, err := mv.Combine(vote.Boosting, nil)
	require.NoError(t, err)
	assert.Equal(t, "A", p.Output)
	require.Len(t, p.Distribution, 3)
	assert.Equal(t, "B", p.Distribution[1].Value)
	assert.Equal(t, "C", p.Distribution[2].Value)
	assert.InDelta(t, 1.0, p.Distribution.Total(), 1e-4)
	assert.Equal(t, tree.ProbabilitiesUnit, p.DistributionUnit)
	e := math.Exp(1.1)
	assert.InDelta(t, e/(2*e+math.Exp(0.5)), p.Probability, 1e-5)

	for _, m := range []vote.Method{vote.Plurality, vote.Confidence, vote.Probability, vote.Threshold} {
		_, err = mv.Combine(m, nil)
		assert.True(t, errors.Is(err, vote.ErrInvalidCombination), string(m))
	}

	_, err = vote.New(value(1, 1, 1)).Combine(vote.Boosting, nil)
	assert.True(t, errors.Is(err, vote.ErrInvalidCombination))
}

func TestExtendRenumbersOrder(t *testing.T) {
	a := vote.New(label("A", 0.5, 1, nil))
	b := vote.New(label("B", 0.5, 1, nil), label("B", 0.5, 1, nil))
	a.Extend(b)
	votes := a.Votes()
	require.Len(t, votes, 3)
	for i, v := range votes {
		assert.Equal(t, i, v.Order)
	}
	assert.Equal(t, 2, b.Len())
}

func TestParseMethod(t *testing.T) {
	cases := map[string]vote.Method{
		"plurality":      vote.Plurality,
		"voting":         vote.Plurality,
		"confidence":     vote.Confidence,
		"error_weighted": vote.Confidence,
		"probability":    vote.Probability,
		"threshold":      vote.Threshold,
		"boosting":       vote.Boosting,
		"":               vote.Default,
	}
	for name, expected := range cases {
		m, err := vote.ParseMethod(name)
		require.NoError(t, err)
		assert.Equal(t, expected, m, name)
	}
	_, err := vote.ParseMethod("majority")
	assert.Error(t, err)
}

func TestListCombineToDistribution(t *testing.T) {
	l := &vote.List{}
	assert.Nil(t, l.CombineToDistribution(false))
	l.Append([]float64{0.2, 0.8})
	l.Append([]float64{0.6, 0.4})
	assert.Equal(t, []float64{0.4, 0.6}, l.CombineToDistribution(false))

	votes := &vote.List{}
	votes.Append([]float64{1, 0, 0})
	votes.Append([]float64{0, 1, 0})
	votes.Append([]float64{1, 0, 0})
	votes.Append([]float64{1, 0, 0})
	assert.Equal(t, []float64{0.75, 0.25, 0}, votes.CombineToDistribution(true))
}
