package tree

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultZ is the z-score of the 95% confidence level used by
	// the Wilson score interval and regression errors
	DefaultZ = 1.96
	// BinsLimit is the maximum number of points regression
	// distributions keep when merged
	BinsLimit = 32
	// Precision is the number of decimals computed statistics are
	// rounded to
	Precision = 5
)

// ErrInvalidDistribution is returned by WSConfidence for
// distributions with negative counts or no instances
var ErrInvalidDistribution = errors.New("invalid distribution")

/*
Round takes a float64 and returns it rounded to Precision decimals.
NaN and infinite values are returned unchanged.
*/
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, _ := decimal.NewFromFloat(v).Round(Precision).Float64()
	return r
}

/*
WSConfidence takes a value, a distribution, a z-score and an
instance count n and returns the lower bound of the Wilson score
interval of the proportion of the value in the distribution.

If n is not positive, the total count of the distribution is used
instead. An error is returned if the distribution has a negative
count or the resulting n is below 1.
*/
func WSConfidence(value interface{}, d Distribution, z, n float64) (float64, error) {
	var total float64
	for _, b := range d {
		if b.Count < 0 {
			return 0, ErrInvalidDistribution
		}
		total += b.Count
	}
	if total <= 0 {
		return 0, ErrInvalidDistribution
	}
	p := d.CountOf(value) / total
	if n <= 0 {
		n = total
	}
	if n < 1 {
		return 0, ErrInvalidDistribution
	}
	if p == 0 {
		return 0, nil
	}
	z2 := z * z
	factor := z2 / n
	lower := p + factor/2 - z*math.Sqrt((p*(1-p)+factor/4)/n)
	return Round(lower / (1 + factor)), nil
}

/*
MergeBins takes a distribution sorted by numeric value and a limit
and returns a distribution with at most limit bins, obtained by
repeatedly replacing the two closest adjacent bins by one bin at
their count-weighted mean holding both counts.
*/
func MergeBins(d Distribution, limit int) Distribution {
	result := d.Copy()
	if limit < 1 {
		limit = 1
	}
	for len(result) > limit {
		best := -1
		bestGap := math.Inf(1)
		for i := 0; i+1 < len(result); i++ {
			a, _ := result[i].Value.(float64)
			b, _ := result[i+1].Value.(float64)
			if gap := b - a; gap < bestGap {
				best, bestGap = i, gap
			}
		}
		left, right := result[best], result[best+1]
		lv, _ := left.Value.(float64)
		rv, _ := right.Value.(float64)
		count := left.Count + right.Count
		merged := Bin{Value: (lv*left.Count + rv*right.Count) / count, Count: count}
		result[best] = merged
		result = append(result[:best+1], result[best+2:]...)
	}
	return result
}

/*
Mean returns the count-weighted mean of the values of a numeric
distribution, NaN if it has no instances.
*/
func Mean(d Distribution) float64 {
	xs, ws := split(d)
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, ws)
}

/*
Variance returns the unbiased count-weighted variance of the values
of a numeric distribution, NaN if it has less than two instances.
*/
func Variance(d Distribution) float64 {
	if d.Total() <= 1 {
		return math.NaN()
	}
	xs, ws := split(d)
	return stat.Variance(xs, ws)
}

func split(d Distribution) ([]float64, []float64) {
	xs := make([]float64, 0, len(d))
	ws := make([]float64, 0, len(d))
	for _, b := range d {
		v, ok := b.Value.(float64)
		if !ok {
			continue
		}
		xs = append(xs, v)
		ws = append(ws, b.Count)
	}
	return xs, ws
}

/*
RegressionError takes a variance, an instance count and a z-score
and returns the error of a regression prediction: the upper bound of
the confidence interval of the standard deviation, derived from the
chi-square distribution with n degrees of freedom, divided by the
square root of n. It returns NaN if it cannot be computed.
*/
func RegressionError(variance, n, z float64) float64 {
	if n <= 0 || math.IsNaN(variance) {
		return math.NaN()
	}
	ppf := distuv.ChiSquared{K: n}.Quantile(1 - math.Erf(z/math.Sqrt2))
	if ppf == 0 {
		return math.NaN()
	}
	e := variance * (n - 1) / ppf
	e *= math.Pow(math.Sqrt(n)+z, 2)
	return math.Sqrt(e / n)
}

/*
Median takes a distribution sorted by numeric value and its
instance count and returns the median of its values.
*/
func Median(d Distribution, count float64) float64 {
	var acc float64
	previous := math.NaN()
	middle := count / 2
	for _, b := range d {
		v, _ := b.Value.(float64)
		acc += b.Count
		if acc > middle {
			if math.Mod(count, 2) == 0 && acc-1 == middle && !math.IsNaN(previous) {
				return (v + previous) / 2
			}
			return v
		}
		previous = v
	}
	return math.NaN()
}
