package vote

import "github.com/pbanos/arboretum/tree"

/*
List holds per-class vectors predicted by several models for the same
sample, all of them with a value for each class in the same order.
*/
type List struct {
	vectors [][]float64
}

// Append adds a vector to the list
func (l *List) Append(v []float64) {
	l.vectors = append(l.vectors, v)
}

// Extend adds the vectors of another list to the list
func (l *List) Extend(other *List) {
	l.vectors = append(l.vectors, other.vectors...)
}

// Len returns the number of vectors in the list
func (l *List) Len() int { return len(l.vectors) }

/*
CombineToDistribution adds up the vectors in the list and divides the
result by the sum of all their values if normalize is true, or by the
number of vectors otherwise. It returns nil for an empty list.
*/
func (l *List) CombineToDistribution(normalize bool) []float64 {
	if len(l.vectors) == 0 {
		return nil
	}
	result := make([]float64, len(l.vectors[0]))
	var total float64
	for _, v := range l.vectors {
		for i, value := range v {
			if i < len(result) {
				result[i] += value
				total += value
			}
		}
	}
	if !normalize {
		total = float64(len(l.vectors))
	}
	if total == 0 {
		return result
	}
	for i := range result {
		result[i] = tree.Round(result[i] / total)
	}
	return result
}
