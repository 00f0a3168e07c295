package tree

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
)

// regressorSpec はCART回帰木のSpec
type regressorSpec struct {
	treeConfig
}

// Regressor returns the decision tree regression family. Splits minimize
// the weighted child variance; leaves predict the mean outcome of their
// training rows. Tunable hyperparameters match the classifier's.
func Regressor(opts ...Option) model.Spec {
	s := regressorSpec{treeConfig: defaultConfig()}
	for _, opt := range opts {
		opt(&s.treeConfig)
	}
	return s
}

// Family returns "decision_tree".
func (s regressorSpec) Family() string { return FamilyTree }

// Mode returns Regression.
func (s regressorSpec) Mode() model.Mode { return model.Regression }

// Fit grows one CART tree on X with continuous outcomes y.
func (s regressorSpec) Fit(X mat.Matrix, y []float64, params model.Params) (model.Fitted, error) {
	const op = "tree.Regressor.Fit"

	if unknown := params.Unknown("max_depth", "min_samples_split", "min_samples_leaf"); len(unknown) > 0 {
		return nil, errors.NewValidationError("params", "unknown hyperparameter", unknown[0])
	}

	criterion := s.criterion
	if criterion == "" {
		criterion = CriterionVariance
	}
	if criterion != CriterionVariance {
		return nil, errors.NewValidationError("criterion", `must be "variance"`, criterion)
	}

	cfg, err := resolveGrowParams(s.treeConfig, params, criterion)
	if err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return nil, errors.NewDimensionError(op, r, len(y), 0)
	}

	start := time.Now()

	g := newGrower(X, y, cfg)
	root := g.grow(allRows(r), 0)

	logger := log.GetLoggerWithName("tree")
	logger.Debug("regression tree grown",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, FamilyTree,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"depth", root.depth(),
		"leaves", root.leaves(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &fittedRegressor{
		root:        root,
		nFeatures:   c,
		importances: g.normalizedImportances(),
	}, nil
}

// fittedRegressor is an immutable fitted regression tree.
type fittedRegressor struct {
	root        *node
	nFeatures   int
	importances []float64
}

// Family returns "decision_tree".
func (f *fittedRegressor) Family() string { return FamilyTree }

// Mode returns Regression.
func (f *fittedRegressor) Mode() model.Mode { return model.Regression }

// Depth returns the longest root-to-leaf path. A stump is 0.
func (f *fittedRegressor) Depth() int { return f.root.depth() }

// Leaves returns the number of terminal nodes.
func (f *fittedRegressor) Leaves() int { return f.root.leaves() }

// FeatureImportances returns the normalized impurity-decrease share per
// feature.
func (f *fittedRegressor) FeatureImportances() []float64 {
	out := make([]float64, len(f.importances))
	copy(out, f.importances)
	return out
}

// Predict は各行が落ちた葉の学習時平均を返す
// 連続値出力のみをサポートする。
func (f *fittedRegressor) Predict(X mat.Matrix, kind model.OutputKind) (mat.Matrix, error) {
	if kind != model.ContinuousValue {
		return nil, errors.NewUnsupportedOutputKindError(FamilyTree, kind.String())
	}

	r, c := X.Dims()
	if c != f.nFeatures {
		return nil, errors.NewDimensionError("tree.Regressor.Predict", f.nFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, f.root.find(X, i).value)
	}
	return predictions, nil
}

// Score はモデルの決定係数（R²）を計算する
func (f *fittedRegressor) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := f.Predict(X, model.ContinuousValue)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	var tss, rss float64
	for i := 0; i < r; i++ {
		yTrue := y.At(i, 0)
		yHat := yPred.At(i, 0)
		tss += (yTrue - yMean) * (yTrue - yMean)
		rss += (yTrue - yHat) * (yTrue - yHat)
	}
	if tss == 0 {
		return 0, errors.Newf("tree.Regressor.Score: total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

// GetParams returns the effective constructor configuration.
func (s regressorSpec) GetParams() map[string]interface{} {
	criterion := s.criterion
	if criterion == "" {
		criterion = CriterionVariance
	}
	return map[string]interface{}{
		"criterion":         criterion,
		"max_depth":         s.maxDepth,
		"min_samples_split": s.minSplit,
		"min_samples_leaf":  s.minLeaf,
		"max_features":      s.maxFeatures,
	}
}

var (
	_ model.Spec            = regressorSpec{}
	_ model.Fitted          = (*fittedRegressor)(nil)
	_ model.Scorer          = (*fittedRegressor)(nil)
	_ model.ParameterGetter = regressorSpec{}
)
