// Package recipe implements the two-phase transformation chain that sits
// between raw data and a model's design matrix. A Recipe is an immutable
// builder of Steps; Fit estimates each step's parameters on a reference
// dataset (feeding each fitted step's output forward so later steps see
// the columns earlier steps produced) and returns a Prepared chain whose
// Transform applies only learned state, never re-estimating. The same
// Prepared transforms training and assessment data identically, which is
// what keeps resampling estimates honest.
package recipe

import (
	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
)

// Step is one unfitted transformation in a chain. Fit estimates whatever
// the step needs from the reference dataset (column statistics, category
// levels, columns to drop) and returns the frozen, applicable form.
type Step interface {
	// Name identifies the step in logs and error messages.
	Name() string
	// Fit estimates the step's parameters on ds.
	Fit(ds *dataset.Dataset) (PreparedStep, error)
}

// PreparedStep is a fitted transformation. Apply must be deterministic,
// must not mutate its input, and must not re-estimate anything from the
// dataset it is applied to.
type PreparedStep interface {
	Name() string
	Apply(ds *dataset.Dataset) (*dataset.Dataset, error)
}

// Recipe is an ordered, immutable chain of transformation steps.
// Builder methods return a new Recipe; the receiver is never modified,
// so a partially built Recipe can be shared and extended in different
// directions safely.
type Recipe struct {
	steps []Step
}

// New returns an empty recipe.
func New() *Recipe {
	return &Recipe{}
}

// Add returns a new Recipe with the given step appended. The named
// builder methods below all route through Add, and custom Step
// implementations join the chain the same way.
func (r *Recipe) Add(step Step) *Recipe {
	steps := make([]Step, len(r.steps), len(r.steps)+1)
	copy(steps, r.steps)
	return &Recipe{steps: append(steps, step)}
}

// Log は指定列を底baseの対数に変換するステップを追加する
// 列を指定しない場合はfit時点の全数値列が対象になる。
// 0以下の値は適用時に NonPositiveValueError になる。
func (r *Recipe) Log(base float64, cols ...string) *Recipe {
	return r.Add(&logStep{base: base, cols: cols})
}

// LogOffset は log(v+offset) 変換ステップを追加する
// ゼロを含む列を対数変換したいときに使う。
func (r *Recipe) LogOffset(base, offset float64, cols ...string) *Recipe {
	return r.Add(&logStep{base: base, offset: offset, cols: cols})
}

// CorrFilter adds a step that learns, on the reference data, which of the
// named numeric columns to drop so that no retained pair has absolute
// Pearson correlation above threshold. With no columns named, every
// numeric column at fit time participates.
func (r *Recipe) CorrFilter(threshold float64, cols ...string) *Recipe {
	return r.Add(&corrFilterStep{threshold: threshold, cols: cols})
}

// Normalize adds a step that learns per-column mean and standard
// deviation on the reference data and rescales each value to
// (v-mean)/sd on apply. With no columns named, every numeric column at
// fit time participates. A zero-variance column fails the fit.
func (r *Recipe) Normalize(cols ...string) *Recipe {
	return r.Add(&normalizeStep{cols: cols})
}

// Dummy adds a step that one-hot encodes the named nominal columns,
// using the alphabetically first observed level as the reference level.
// With no columns named, every nominal column at fit time is encoded.
func (r *Recipe) Dummy(cols ...string) *Recipe {
	return r.Add(&dummyStep{cols: cols})
}

// DummyAll one-hot encodes every nominal column except the named
// outcomes. The column set is resolved at fit time, so columns created
// or removed by earlier steps are accounted for.
func (r *Recipe) DummyAll(excludeOutcome ...string) *Recipe {
	return r.Add(&dummyStep{all: true, exclude: excludeOutcome})
}

// Steps returns a copy of the configured steps in order.
func (r *Recipe) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Len returns the number of configured steps.
func (r *Recipe) Len() int { return len(r.steps) }

// Fit estimates every step on ds, in order. Each step is fitted on the
// output of the steps before it, exactly as Transform will later replay
// them. Any step failure aborts the whole fit.
func (r *Recipe) Fit(ds *dataset.Dataset) (*Prepared, error) {
	if ds == nil {
		return nil, errors.NewValueError("recipe.Fit", "nil dataset")
	}

	logger := log.GetLoggerWithName("recipe")

	current := ds
	prepared := make([]PreparedStep, 0, len(r.steps))
	for i, step := range r.steps {
		ps, err := step.Fit(current)
		if err != nil {
			return nil, errors.Wrapf(err, "recipe: fit step %d (%s)", i, step.Name())
		}
		next, err := ps.Apply(current)
		if err != nil {
			return nil, errors.Wrapf(err, "recipe: apply step %d (%s) during fit", i, step.Name())
		}

		logger.Debug("step fitted",
			log.OperationKey, log.OperationFit,
			log.ComponentKey, "recipe",
			log.PhaseKey, log.PhasePreprocessing,
			"step", step.Name(),
			log.SamplesKey, next.NumRows(),
			log.FeaturesKey, next.NumCols(),
		)
		current = next
		prepared = append(prepared, ps)
	}

	return &Prepared{steps: prepared, fitted: true}, nil
}

// Prepared is a fitted transformation chain. The zero value is not
// usable; obtain one from Recipe.Fit.
type Prepared struct {
	steps  []PreparedStep
	fitted bool
}

// Transform applies the learned steps to ds, in order, using only state
// estimated during Fit. Calling Transform on a zero or unfitted Prepared
// returns a NotPreparedError.
func (p *Prepared) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if p == nil || !p.fitted {
		return nil, errors.NewNotPreparedError("recipe.Prepared", "Transform")
	}
	if ds == nil {
		return nil, errors.NewValueError("recipe.Transform", "nil dataset")
	}

	current := ds
	for i, ps := range p.steps {
		next, err := ps.Apply(current)
		if err != nil {
			return nil, errors.Wrapf(err, "recipe: apply step %d (%s)", i, ps.Name())
		}
		current = next
	}
	return current, nil
}

// Steps returns a copy of the prepared steps in order.
func (p *Prepared) Steps() []PreparedStep {
	out := make([]PreparedStep, len(p.steps))
	copy(out, p.steps)
	return out
}
