// Package linear provides the linear model families: least-squares
// regression and logistic classification. Both are exposed as
// model.Spec values so pipelines and tuners treat them uniformly.
package linear

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/core/parallel"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
)

// FamilyRegression is the family identifier of the least-squares model.
const FamilyRegression = "linear_reg"

// regressionSpec は最小二乗法による線形回帰のSpec
// チューニング可能なハイパーパラメータは持たない。
type regressionSpec struct {
	intercept bool
}

// Regression returns the least-squares linear regression family.
// The design matrix is solved by the normal equations; there are no
// tunable hyperparameters, so any Params key is rejected.
func Regression(opts ...RegressionOption) model.Spec {
	s := regressionSpec{intercept: true}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Family returns "linear_reg".
func (s regressionSpec) Family() string { return FamilyRegression }

// Mode returns Regression.
func (s regressionSpec) Mode() model.Mode { return model.Regression }

// Fit は正規方程式 w = (X^T X)^(-1) X^T y で重みを求める
func (s regressionSpec) Fit(X mat.Matrix, y []float64, params model.Params) (model.Fitted, error) {
	const op = "linear.Regression.Fit"

	if unknown := params.Unknown(); len(unknown) > 0 {
		return nil, errors.NewValidationError("params", "unknown hyperparameter", unknown[0])
	}

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return nil, errors.NewDimensionError(op, r, len(y), 0)
	}

	start := time.Now()

	design := X
	nCoef := c
	if s.intercept {
		nCoef = c + 1
		// 切片項のために X に 1 の列を追加
		augmented := mat.NewDense(r, nCoef, nil)
		const parallelThreshold = 1000
		parallel.ParallelizeWithThreshold(r, parallelThreshold, func(startRow, endRow int) {
			for i := startRow; i < endRow; i++ {
				augmented.Set(i, 0, 1.0)
				for j := 0; j < c; j++ {
					augmented.Set(i, j+1, X.At(i, j))
				}
			}
		})
		design = augmented
	}

	var xt mat.Dense
	xt.CloneFrom(design.T())

	var xtx mat.Dense
	xtx.Mul(&xt, design)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, errors.NewModelError(op, "singular matrix", errors.ErrSingularMatrix)
	}

	var xty mat.VecDense
	xty.MulVec(&xt, mat.NewVecDense(r, append([]float64(nil), y...)))

	solved := mat.NewVecDense(nCoef, nil)
	solved.MulVec(&xtxInv, &xty)

	// ほぼ特異な行列はInverseを通っても解が発散することがある
	if err := errors.CheckNumericalStability(op, solved.RawVector().Data, 0); err != nil {
		return nil, err
	}

	var intercept float64
	weights := make([]float64, c)
	if s.intercept {
		intercept = solved.AtVec(0)
		for j := 0; j < c; j++ {
			weights[j] = solved.AtVec(j + 1)
		}
	} else {
		for j := 0; j < c; j++ {
			weights[j] = solved.AtVec(j)
		}
	}

	logger := log.GetLoggerWithName("linear")
	logger.Debug("least squares fit",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, FamilyRegression,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &fittedRegression{weights: weights, intercept: intercept, nFeatures: c}, nil
}

// fittedRegression is an immutable least-squares fit.
type fittedRegression struct {
	weights   []float64
	intercept float64
	nFeatures int
}

// Family returns "linear_reg".
func (f *fittedRegression) Family() string { return FamilyRegression }

// Mode returns Regression.
func (f *fittedRegression) Mode() model.Mode { return model.Regression }

// Predict は y = X w + b を列ベクトルで返す
// 連続値出力のみをサポートする。
func (f *fittedRegression) Predict(X mat.Matrix, kind model.OutputKind) (mat.Matrix, error) {
	if kind != model.ContinuousValue {
		return nil, errors.NewUnsupportedOutputKindError(FamilyRegression, kind.String())
	}

	r, c := X.Dims()
	if c != f.nFeatures {
		return nil, errors.NewDimensionError("linear.Regression.Predict", f.nFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := f.intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * f.weights[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Weights は学習された重み（係数）のコピーを返す
func (f *fittedRegression) Weights() []float64 {
	out := make([]float64, len(f.weights))
	copy(out, f.weights)
	return out
}

// Intercept は学習された切片を返す
func (f *fittedRegression) Intercept() float64 { return f.intercept }

// Score はモデルの決定係数（R²）を計算する
func (f *fittedRegression) Score(X, y mat.Matrix) (float64, error) {
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
		return 0, errors.Newf("linear.Regression.Score: total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

// ExportWeights は学習済み係数をシリアライズ可能な形で返す
func (f *fittedRegression) ExportWeights() (*model.ModelWeights, error) {
	return &model.ModelWeights{
		ModelType:       FamilyRegression,
		Version:         "1.0",
		Coefficients:    f.Weights(),
		Intercept:       f.intercept,
		Hyperparameters: map[string]interface{}{},
		Metadata: map[string]interface{}{
			"n_features": f.nFeatures,
		},
		IsFitted: true,
	}, nil
}

var (
	_ model.Spec           = regressionSpec{}
	_ model.Fitted         = (*fittedRegression)(nil)
	_ model.Scorer         = (*fittedRegression)(nil)
	_ model.LinearModel    = (*fittedRegression)(nil)
	_ model.WeightExporter = (*fittedRegression)(nil)
)
