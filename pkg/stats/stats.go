package stats

import (
	"math"
	"slices"
)

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// Variance computes the population variance of a slice.
// Two passes keep it stable for large offsets.
func Variance(x []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}
	mean := Mean(x)
	ss := 0.0
	for _, v := range x {
		d := v - mean
		ss += d * d
	}
	return ss / n
}

// EntropyFromCounts is the Shannon entropy (natural log) of a frequency table.
// Zero counts contribute nothing.
func EntropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log(p)
	}
	return res
}

// Quantile returns the q-th quantile (0 <= q <= 1) using linear interpolation
// between closest ranks. Returns false for an empty slice.
func Quantile(x []float64, q float64) (float64, bool) {
	n := len(x)
	if n == 0 {
		return 0, false
	}
	cp := slices.Clone(x)
	slices.Sort(cp)
	if q <= 0 {
		return cp[0], true
	}
	if q >= 1 {
		return cp[n-1], true
	}
	rank := q * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower], true
	}
	return cp[lower]*(1-weight) + cp[upper]*weight, true
}
