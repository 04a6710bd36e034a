package tree

import (
	"fmt"
	"sort"

	"github.com/pbanos/arboretum/feature"
)

/*
Bin groups the training instances that share an objective value: a
category label (string) for classification trees, a number (float64)
for regression trees.
*/
type Bin struct {
	Value interface{}
	Count float64
}

// Distribution is an ordered list of bins
type Distribution []Bin

// Total returns the sum of the counts of the distribution's bins
func (d Distribution) Total() float64 {
	var result float64
	for _, b := range d {
		result += b.Count
	}
	return result
}

// CountOf returns the count of the bin with the given value, 0 if
// no bin has it.
func (d Distribution) CountOf(value interface{}) float64 {
	for _, b := range d {
		if b.Value == value {
			return b.Count
		}
	}
	return 0
}

/*
Numeric returns whether all the values in the distribution are
numbers and, if so, the distribution with values as float64.
*/
func (d Distribution) Numeric() (Distribution, bool) {
	result := make(Distribution, 0, len(d))
	for _, b := range d {
		f, ok := feature.ToFloat(b.Value)
		if !ok {
			return nil, false
		}
		result = append(result, Bin{f, b.Count})
	}
	return result, true
}

// Copy returns a copy of the distribution
func (d Distribution) Copy() Distribution {
	if d == nil {
		return nil
	}
	result := make(Distribution, len(d))
	copy(result, d)
	return result
}

/*
SortByValue returns a copy of the distribution sorted by ascending
value. Numeric values are compared as numbers, any other values by
their string representation.
*/
func (d Distribution) SortByValue() Distribution {
	result := d.Copy()
	sort.SliceStable(result, func(i, j int) bool {
		return lessValue(result[i].Value, result[j].Value)
	})
	return result
}

/*
SortByCount returns a copy of the distribution sorted by descending
count, ties broken by ascending value.
*/
func (d Distribution) SortByCount() Distribution {
	result := d.Copy()
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return lessValue(result[i].Value, result[j].Value)
	})
	return result
}

func lessValue(a, b interface{}) bool {
	fa, aok := feature.ToFloat(a)
	fb, bok := feature.ToFloat(b)
	if aok && bok {
		return fa < fb
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

/*
Accumulator merges distributions by adding up the counts of bins
with the same value. Bins keep the order in which their value was
first seen.
*/
type Accumulator struct {
	bins  Distribution
	index map[interface{}]int
}

// Add merges the given distribution into the accumulator
func (a *Accumulator) Add(d Distribution) {
	if a.index == nil {
		a.index = make(map[interface{}]int)
	}
	for _, b := range d {
		i, ok := a.index[b.Value]
		if !ok {
			a.index[b.Value] = len(a.bins)
			a.bins = append(a.bins, b)
			continue
		}
		a.bins[i].Count += b.Count
	}
}

// Distribution returns the merged distribution
func (a *Accumulator) Distribution() Distribution {
	return a.bins.Copy()
}

// Len returns the number of distinct values accumulated
func (a *Accumulator) Len() int {
	return len(a.bins)
}

// MergeDistributions returns the result of adding up the counts of
// the given distributions
func MergeDistributions(ds ...Distribution) Distribution {
	acc := &Accumulator{}
	for _, d := range ds {
		acc.Add(d)
	}
	return acc.Distribution()
}
