// Package tune implements grid search over hyperparameter spaces:
// domains and grids, a worker-pool tuner that evaluates a pipeline
// across every (assignment, fold) pair, result aggregation, and the
// final fit on the initial split. Every randomized piece takes an
// explicit seed, so a tuning run is reproducible end to end.
package tune

import (
	"math/rand/v2"
	"sort"
)

// Domain is one hyperparameter's search domain. The shipped domains are
// Range, IntRange, List, and Value; grids draw candidate values from
// them through GridRegular and GridRandom.
type Domain interface {
	// levels returns the candidate values a regular grid takes from the
	// domain at the given resolution.
	levels(n int) []float64
	// sample draws one value.
	sample(rng *rand.Rand) float64
	// valid reports whether the domain is well formed.
	valid() bool
}

// Range is a continuous interval [Min, Max]. A regular grid spreads its
// levels evenly across the interval, endpoints included.
type Range [2]float64

func (d Range) levels(n int) []float64 {
	if n <= 1 || d[0] == d[1] {
		return []float64{d[0]}
	}
	out := make([]float64, n)
	step := (d[1] - d[0]) / float64(n-1)
	for i := range out {
		out[i] = d[0] + float64(i)*step
	}
	out[n-1] = d[1] // 丸め誤差で端点がずれないように
	return out
}

func (d Range) sample(rng *rand.Rand) float64 {
	return d[0] + rng.Float64()*(d[1]-d[0])
}

func (d Range) valid() bool { return d[0] <= d[1] }

// IntRange is an inclusive integer interval [Min, Max]. A regular grid
// spreads levels evenly and keeps the distinct integers.
type IntRange [2]int

func (d IntRange) levels(n int) []float64 {
	width := d[1] - d[0]
	if n <= 1 || width == 0 {
		return []float64{float64(d[0])}
	}
	if width+1 <= n {
		out := make([]float64, 0, width+1)
		for v := d[0]; v <= d[1]; v++ {
			out = append(out, float64(v))
		}
		return out
	}
	// 等間隔に配置して整数へ丸め、重複を除く
	seen := make(map[int]struct{}, n)
	out := make([]float64, 0, n)
	step := float64(width) / float64(n-1)
	for i := 0; i < n; i++ {
		v := d[0] + int(float64(i)*step+0.5)
		if v > d[1] {
			v = d[1]
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, float64(v))
	}
	return out
}

func (d IntRange) sample(rng *rand.Rand) float64 {
	return float64(d[0] + rng.IntN(d[1]-d[0]+1))
}

func (d IntRange) valid() bool { return d[0] <= d[1] }

// List is an explicit set of candidate values. A regular grid takes the
// whole list regardless of the requested resolution.
type List []float64

func (d List) levels(int) []float64 {
	out := make([]float64, len(d))
	copy(out, d)
	return out
}

func (d List) sample(rng *rand.Rand) float64 {
	return d[rng.IntN(len(d))]
}

func (d List) valid() bool { return len(d) > 0 }

// Value pins a hyperparameter to a single value in every assignment.
type Value float64

func (d Value) levels(int) []float64 { return []float64{float64(d)} }

func (d Value) sample(*rand.Rand) float64 { return float64(d) }

func (d Value) valid() bool { return true }

// Space maps hyperparameter names to their domains.
type Space map[string]Domain

// names returns the parameter names in sorted order, which fixes the
// expansion order of every grid built from the space.
func (s Space) names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
