// Package pipeline composes a transformation recipe with a model family
// into one fit/predict unit. Fitting a pipeline estimates the recipe on
// the training data, bakes that same data, extracts the outcome column,
// and fits the model on the remaining numeric columns; the returned
// FittedPipeline replays exactly that learned path on new data. Tuners
// evaluate pipelines, never bare models, so preprocessing is always
// re-estimated inside each resampling iteration.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
	"github.com/YuminosukeSato/modelflow/recipe"
)

// Pipeline is an immutable pairing of a recipe, a model spec, and the
// name of the outcome column. The zero value is not usable; construct
// one with New.
type Pipeline struct {
	rec     *recipe.Recipe
	spec    model.Spec
	outcome string
}

// New pairs a recipe with a model family. A nil recipe means no
// preprocessing. The outcome column must be present in the data handed
// to Fit after all recipe steps have run.
func New(rec *recipe.Recipe, spec model.Spec, outcome string) Pipeline {
	if rec == nil {
		rec = recipe.New()
	}
	return Pipeline{rec: rec, spec: spec, outcome: outcome}
}

// Spec returns the model family this pipeline fits.
func (p Pipeline) Spec() model.Spec { return p.spec }

// Outcome returns the configured outcome column name.
func (p Pipeline) Outcome() string { return p.outcome }

// Fit estimates the recipe on ds, bakes ds through it, extracts the
// outcome, and fits the model on every remaining column with the given
// hyperparameter assignment.
//
// 名義尺度の目的変数はレベルを辞書順に並べてクラス添字に符号化する。
// bake後に名義列が説明変数側に残っていたらダミー符号化漏れとして弾く。
func (p Pipeline) Fit(ds *dataset.Dataset, params model.Params) (*FittedPipeline, error) {
	const op = "pipeline.Fit"

	if p.spec == nil {
		return nil, errors.NewValueError(op, "nil model spec")
	}
	if p.outcome == "" {
		return nil, errors.NewValueError(op, "empty outcome column name")
	}
	if ds == nil {
		return nil, errors.NewValueError(op, "nil dataset")
	}

	start := time.Now()

	prepared, err := p.rec.Fit(ds)
	if err != nil {
		return nil, err
	}
	baked, err := prepared.Transform(ds)
	if err != nil {
		return nil, err
	}

	if !baked.Has(p.outcome) {
		return nil, errors.NewUnknownColumnError(op, p.outcome)
	}
	outCol, err := baked.Column(p.outcome)
	if err != nil {
		return nil, err
	}

	var y []float64
	var levels []string
	switch outCol.Kind() {
	case dataset.Numeric:
		y = outCol.Floats()
	case dataset.Nominal:
		if p.spec.Mode() == model.Regression {
			return nil, errors.NewValueError(op,
				fmt.Sprintf("outcome %q is nominal; a regression family needs a numeric outcome", p.outcome))
		}
		values := outCol.Strings()
		levels = sortedLevels(values)
		index := levelIndex(levels)
		y = make([]float64, len(values))
		for i, v := range values {
			y[i] = float64(index[v])
		}
	}

	features := make([]string, 0, baked.NumCols()-1)
	for _, name := range baked.Names() {
		if name == p.outcome {
			continue
		}
		col, err := baked.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Kind() == dataset.Nominal {
			return nil, errors.NewValueError(op,
				fmt.Sprintf("nominal predictor %q reached the model; encode it with Dummy or DummyAll", name))
		}
		features = append(features, name)
	}
	if len(features) == 0 {
		return nil, errors.NewValueError(op, "no predictor columns left after transformation")
	}

	X, err := baked.Matrix(features...)
	if err != nil {
		return nil, err
	}

	fitted, err := p.spec.Fit(X, y, params)
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("pipeline")
	logger.Debug("pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.ComponentKey, "pipeline",
		log.ModelNameKey, p.spec.Family(),
		log.SamplesKey, baked.NumRows(),
		log.FeaturesKey, len(features),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &FittedPipeline{
		prepared: prepared,
		fitted:   fitted,
		outcome:  p.outcome,
		features: features,
		levels:   levels,
		index:    levelIndex(levels),
	}, nil
}

func sortedLevels(values []string) []string {
	seen := make(map[string]struct{})
	var levels []string
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			levels = append(levels, v)
		}
	}
	sort.Strings(levels)
	return levels
}

func levelIndex(levels []string) map[string]int {
	if levels == nil {
		return nil
	}
	index := make(map[string]int, len(levels))
	for i, l := range levels {
		index[l] = i
	}
	return index
}

// FittedPipeline is the frozen result of Pipeline.Fit: a prepared recipe,
// a fitted model, and the feature schema captured at fit time. The zero
// value is not usable; every method on it returns NotPreparedError.
type FittedPipeline struct {
	prepared *recipe.Prepared
	fitted   model.Fitted
	outcome  string
	features []string
	levels   []string
	index    map[string]int
}

// Model returns the fitted model.
func (f *FittedPipeline) Model() model.Fitted {
	if f == nil {
		return nil
	}
	return f.fitted
}

// Outcome returns the outcome column name captured at fit time.
func (f *FittedPipeline) Outcome() string { return f.outcome }

// Features returns the predictor column names in the order the model was
// fitted on.
func (f *FittedPipeline) Features() []string {
	out := make([]string, len(f.features))
	copy(out, f.features)
	return out
}

// OutcomeLevels returns the sorted levels of a nominal outcome, or nil
// when the outcome was numeric. A ClassLabel prediction of i means
// OutcomeLevels()[i].
func (f *FittedPipeline) OutcomeLevels() []string {
	if f.levels == nil {
		return nil
	}
	out := make([]string, len(f.levels))
	copy(out, f.levels)
	return out
}

// Predict bakes ds through the learned recipe and predicts with the
// captured feature order. A feature column missing after baking is a
// MissingColumnError.
func (f *FittedPipeline) Predict(ds *dataset.Dataset, kind model.OutputKind) (mat.Matrix, error) {
	const op = "pipeline.FittedPipeline.Predict"

	if f == nil || f.fitted == nil {
		return nil, errors.NewNotPreparedError("pipeline.FittedPipeline", "Predict")
	}
	if ds == nil {
		return nil, errors.NewValueError(op, "nil dataset")
	}

	baked, err := f.prepared.Transform(ds)
	if err != nil {
		return nil, err
	}
	for _, name := range f.features {
		if !baked.Has(name) {
			return nil, errors.NewMissingColumnError(op, "predict", name)
		}
	}
	X, err := baked.Matrix(f.features...)
	if err != nil {
		return nil, err
	}
	return f.fitted.Predict(X, kind)
}

// OutcomeVector bakes ds and returns its outcome column encoded exactly
// as it was for training: raw values for a numeric outcome, class
// indices for a nominal one. Tuners use it to score held-out data.
func (f *FittedPipeline) OutcomeVector(ds *dataset.Dataset) (*mat.VecDense, error) {
	const op = "pipeline.FittedPipeline.OutcomeVector"

	if f == nil || f.fitted == nil {
		return nil, errors.NewNotPreparedError("pipeline.FittedPipeline", "OutcomeVector")
	}
	if ds == nil {
		return nil, errors.NewValueError(op, "nil dataset")
	}

	baked, err := f.prepared.Transform(ds)
	if err != nil {
		return nil, err
	}
	if !baked.Has(f.outcome) {
		return nil, errors.NewUnknownColumnError(op, f.outcome)
	}
	col, err := baked.Column(f.outcome)
	if err != nil {
		return nil, err
	}

	if f.levels == nil {
		if col.Kind() != dataset.Numeric {
			return nil, errors.NewValueError(op,
				fmt.Sprintf("outcome %q is nominal but the pipeline was fitted on a numeric outcome", f.outcome))
		}
		values := col.Floats()
		return mat.NewVecDense(len(values), values), nil
	}

	if col.Kind() != dataset.Nominal {
		return nil, errors.NewValueError(op,
			fmt.Sprintf("outcome %q is numeric but the pipeline was fitted on a nominal outcome", f.outcome))
	}
	values := col.Strings()
	y := make([]float64, len(values))
	for i, v := range values {
		idx, ok := f.index[v]
		if !ok {
			return nil, errors.NewValueError(op, fmt.Sprintf("unseen outcome level %q", v))
		}
		y[i] = float64(idx)
	}
	return mat.NewVecDense(len(y), y), nil
}

// DecodeLabels maps an n×1 class-index matrix back to the nominal
// outcome's level strings. It only applies to pipelines fitted on a
// nominal outcome.
func (f *FittedPipeline) DecodeLabels(labels mat.Matrix) ([]string, error) {
	const op = "pipeline.FittedPipeline.DecodeLabels"

	if f == nil || f.fitted == nil {
		return nil, errors.NewNotPreparedError("pipeline.FittedPipeline", "DecodeLabels")
	}
	if f.levels == nil {
		return nil, errors.NewValueError(op, "outcome is numeric; predictions are already in outcome units")
	}

	r, c := labels.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError(op, 1, c, 1)
	}
	out := make([]string, r)
	for i := 0; i < r; i++ {
		v := labels.At(i, 0)
		idx := int(v)
		if float64(idx) != v || idx < 0 || idx >= len(f.levels) {
			return nil, errors.NewValueError(op, fmt.Sprintf("value %v is not a class index", v))
		}
		out[i] = f.levels[idx]
	}
	return out, nil
}
