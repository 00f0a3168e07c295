package tune

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// Measurement is one metric value from one (assignment, fold)
// evaluation.
type Measurement struct {
	Fold       int
	Assignment int
	Metric     string
	Value      float64
}

// Summary aggregates one metric over the folds of one assignment.
type Summary struct {
	Assignment int
	Params     model.Params
	Metric     string
	Folds      int
	Mean       float64
	Min        float64
	Median     float64
	Max        float64
}

// Result holds every measurement of a tuning run together with the grid
// that produced it. Results are immutable; accessors return copies.
type Result struct {
	grid    Grid
	folds   int
	metrics []string
	raw     []Measurement
}

// Raw returns a copy of every measurement in evaluation order
// (assignment-major, then fold, then metric).
func (r *Result) Raw() []Measurement {
	out := make([]Measurement, len(r.raw))
	copy(out, r.raw)
	return out
}

// Grid returns a deep copy of the evaluated grid.
func (r *Result) Grid() Grid { return r.grid.Clone() }

// Folds returns the number of folds each assignment was evaluated on.
func (r *Result) Folds() int { return r.folds }

// MetricNames returns the metric names in run order.
func (r *Result) MetricNames() []string {
	out := make([]string, len(r.metrics))
	copy(out, r.metrics)
	return out
}

// Summarize aggregates the measurements to mean, min, median, and max
// per metric per assignment, ordered by assignment id and then by the
// run's metric order.
func (r *Result) Summarize() []Summary {
	type key struct {
		assignment int
		metric     string
	}
	grouped := make(map[key][]float64, len(r.grid)*len(r.metrics))
	for _, m := range r.raw {
		k := key{m.Assignment, m.Metric}
		grouped[k] = append(grouped[k], m.Value)
	}

	out := make([]Summary, 0, len(r.grid)*len(r.metrics))
	for a := range r.grid {
		for _, name := range r.metrics {
			values := grouped[key{a, name}]
			if len(values) == 0 {
				continue
			}
			mean, min, median, max := aggregate(values)
			out = append(out, Summary{
				Assignment: a,
				Params:     r.grid[a].Clone(),
				Metric:     name,
				Folds:      len(values),
				Mean:       mean,
				Min:        min,
				Median:     median,
				Max:        max,
			})
		}
	}
	return out
}

func aggregate(values []float64) (mean, min, median, max float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	n := len(sorted)
	mean = sum / float64(n)
	min = sorted[0]
	max = sorted[n-1]
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return mean, min, median, max
}

// SelectBest returns the summary of the assignment whose mean for the
// named metric is best in the given direction. Only strict improvements
// replace the incumbent, so ties always resolve to the lowest assignment
// id. Assignments with a NaN mean never win.
func (r *Result) SelectBest(metric string, direction Direction) (Summary, error) {
	var best Summary
	found := false
	for _, s := range r.Summarize() {
		if s.Metric != metric || math.IsNaN(s.Mean) {
			continue
		}
		if !found {
			best = s
			found = true
			continue
		}
		switch direction {
		case Maximize:
			if s.Mean > best.Mean {
				best = s
			}
		case Minimize:
			if s.Mean < best.Mean {
				best = s
			}
		}
	}
	if !found {
		return Summary{}, errors.NewValueError("tune.SelectBest", fmt.Sprintf("no measurements for metric %q", metric))
	}
	return best, nil
}

// resultState is the gob image of a Result.
type resultState struct {
	Grid    Grid
	Folds   int
	Metrics []string
	Raw     []Measurement
}

func (r *Result) state() resultState {
	return resultState{
		Grid:    r.grid.Clone(),
		Folds:   r.folds,
		Metrics: r.MetricNames(),
		Raw:     r.Raw(),
	}
}

// Save writes the result to a file, so a long tuning run can be
// re-summarized or re-plotted without re-running it.
func (r *Result) Save(filename string) error {
	return model.SaveModel(r.state(), filename)
}

// SaveToWriter writes the result to w.
func (r *Result) SaveToWriter(w io.Writer) error {
	return model.SaveModelToWriter(r.state(), w)
}

// LoadResult reads a result previously written by Save.
func LoadResult(filename string) (*Result, error) {
	var st resultState
	if err := model.LoadModel(&st, filename); err != nil {
		return nil, err
	}
	return &Result{grid: st.Grid, folds: st.Folds, metrics: st.Metrics, raw: st.Raw}, nil
}

// LoadResultFromReader reads a result previously written by
// SaveToWriter.
func LoadResultFromReader(rd io.Reader) (*Result, error) {
	var st resultState
	if err := model.LoadModelFromReader(&st, rd); err != nil {
		return nil, err
	}
	return &Result{grid: st.Grid, folds: st.Folds, metrics: st.Metrics, raw: st.Raw}, nil
}
