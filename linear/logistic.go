package linear

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
)

// FamilyLogistic is the family identifier of the logistic model.
const FamilyLogistic = "logistic_reg"

// logisticSpec はL2正則化ロジスティック回帰のSpec
// 二値は単一の重みベクトル、多クラスはone-vs-restで学習する。
type logisticSpec struct {
	c         float64
	maxIter   int
	tol       float64
	intercept bool
	seed      uint64
}

// Logistic returns the logistic regression classification family,
// fitted by batch gradient descent with an adaptive learning rate.
// Tunable hyperparameters: "c" (inverse L2 strength) and "max_iter".
func Logistic(opts ...LogisticOption) model.Spec {
	s := logisticSpec{c: 1.0, maxIter: 100, tol: 1e-4, intercept: true, seed: 1}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Family returns "logistic_reg".
func (s logisticSpec) Family() string { return FamilyLogistic }

// Mode returns Classification.
func (s logisticSpec) Mode() model.Mode { return model.Classification }

// Fit learns one weight vector per decision boundary: a single one for
// binary problems, one per class (one-vs-rest) otherwise. y holds class
// indices. Hitting the iteration cap before the gradient drops below
// the tolerance raises a ConvergenceWarning but still returns the fit.
func (s logisticSpec) Fit(X mat.Matrix, y []float64, params model.Params) (model.Fitted, error) {
	const op = "linear.Logistic.Fit"

	if unknown := params.Unknown("c", "max_iter"); len(unknown) > 0 {
		return nil, errors.NewValidationError("params", "unknown hyperparameter", unknown[0])
	}

	c := params.Get("c", s.c)
	maxIter := int(params.Get("max_iter", float64(s.maxIter)))
	if c <= 0 {
		return nil, errors.NewValidationError("c", "must be positive", c)
	}
	if maxIter < 1 {
		return nil, errors.NewValidationError("max_iter", "must be at least 1", maxIter)
	}

	r, cols := X.Dims()
	if r == 0 || cols == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return nil, errors.NewDimensionError(op, r, len(y), 0)
	}

	classes := uniqueClasses(y)
	if len(classes) < 2 {
		return nil, errors.NewValueError(op, "need at least two classes in y")
	}

	start := time.Now()
	rng := rand.New(rand.NewPCG(s.seed, s.seed))
	cfg := gdConfig{
		lambda:    1.0 / c,
		maxIter:   maxIter,
		tol:       s.tol,
		intercept: s.intercept,
	}

	var coef [][]float64
	var intercepts []float64
	converged := true

	if len(classes) == 2 {
		// 二値分類: classes[1]を陽性とする単一の決定境界
		target := make([]float64, r)
		for i, v := range y {
			if v == classes[1] {
				target[i] = 1
			}
		}
		w, b, ok, err := fitBinaryGD(X, target, cfg, rng)
		if err != nil {
			return nil, err
		}
		coef = [][]float64{w}
		intercepts = []float64{b}
		converged = ok
	} else {
		// one-vs-rest: クラスごとに陽性/その他の二値問題を解く
		coef = make([][]float64, len(classes))
		intercepts = make([]float64, len(classes))
		for ci, class := range classes {
			target := make([]float64, r)
			for i, v := range y {
				if v == class {
					target[i] = 1
				}
			}
			w, b, ok, err := fitBinaryGD(X, target, cfg, rng)
			if err != nil {
				return nil, err
			}
			coef[ci] = w
			intercepts[ci] = b
			converged = converged && ok
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning(FamilyLogistic, maxIter,
			"gradient descent hit the iteration cap before reaching tolerance"))
	}

	logger := log.GetLoggerWithName("linear")
	logger.Debug("logistic fit",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, FamilyLogistic,
		log.SamplesKey, r,
		log.FeaturesKey, cols,
		log.RegularizationKey, c,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &fittedLogistic{
		classes:    classes,
		coef:       coef,
		intercepts: intercepts,
		nFeatures:  cols,
		c:          c,
		maxIter:    maxIter,
	}, nil
}

// gdConfig bundles the settings one gradient descent run needs.
type gdConfig struct {
	lambda    float64
	maxIter   int
	tol       float64
	intercept bool
}

// fitBinaryGD runs batch gradient descent for one 0/1 target vector and
// reports whether the gradient reached the tolerance before the cap.
// The learning rate decays as iterations proceed, which keeps early
// steps aggressive without oscillating near the optimum. Diverging
// weights (NaN/Inf) abort the fit instead of silently poisoning the
// decision boundary.
func fitBinaryGD(X mat.Matrix, target []float64, cfg gdConfig, rng *rand.Rand) (weights []float64, intercept float64, converged bool, err error) {
	nSamples, nFeatures := X.Dims()

	weights = make([]float64, nFeatures)
	for j := range weights {
		weights[j] = rng.NormFloat64() * 0.01
	}

	const baseLearningRate = 1.0

	for iter := 0; iter < cfg.maxIter; iter++ {
		gradWeights := make([]float64, nFeatures)
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - target[i]
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] = gradWeights[j]/float64(nSamples) + cfg.lambda*weights[j]
		}
		gradIntercept /= float64(nSamples)

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if cfg.intercept {
			intercept -= learningRate * gradIntercept
		}

		if err := errors.CheckNumericalStability("linear.Logistic.Fit", weights, iter); err != nil {
			return nil, 0, false, err
		}

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			if math.Abs(g) > maxGrad {
				maxGrad = math.Abs(g)
			}
		}
		if maxGrad < cfg.tol {
			return weights, intercept, true, nil
		}
	}
	return weights, intercept, false, nil
}

// uniqueClasses returns the distinct values of y, ascending.
func uniqueClasses(y []float64) []float64 {
	seen := make(map[float64]bool)
	var classes []float64
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)
	return classes
}

// fittedLogistic is an immutable logistic regression fit.
type fittedLogistic struct {
	classes    []float64
	coef       [][]float64
	intercepts []float64
	nFeatures  int
	c          float64
	maxIter    int
}

// Family returns "logistic_reg".
func (f *fittedLogistic) Family() string { return FamilyLogistic }

// Mode returns Classification.
func (f *fittedLogistic) Mode() model.Mode { return model.Classification }

// Classes returns the class values seen at fit time, ascending.
func (f *fittedLogistic) Classes() []float64 {
	out := make([]float64, len(f.classes))
	copy(out, f.classes)
	return out
}

// Predict serves class labels and class probabilities.
//
// ラベルは二値なら確率0.5を閾値に、多クラスなら最大スコアのクラスを返す。
// 確率は二値がシグモイド、多クラスがソフトマックスで正規化される。
func (f *fittedLogistic) Predict(X mat.Matrix, kind model.OutputKind) (mat.Matrix, error) {
	r, c := X.Dims()
	if c != f.nFeatures {
		return nil, errors.NewDimensionError("linear.Logistic.Predict", f.nFeatures, c, 1)
	}

	switch kind {
	case model.ClassLabel:
		return f.predictLabels(X, r), nil
	case model.ClassProbability:
		return f.predictProba(X, r), nil
	default:
		return nil, errors.NewUnsupportedOutputKindError(FamilyLogistic, kind.String())
	}
}

func (f *fittedLogistic) decision(X mat.Matrix, i, boundary int) float64 {
	z := f.intercepts[boundary]
	for j := 0; j < f.nFeatures; j++ {
		z += X.At(i, j) * f.coef[boundary][j]
	}
	return z
}

func (f *fittedLogistic) predictLabels(X mat.Matrix, r int) *mat.Dense {
	labels := mat.NewDense(r, 1, nil)
	if len(f.classes) == 2 {
		for i := 0; i < r; i++ {
			if sigmoid(f.decision(X, i, 0)) >= 0.5 {
				labels.Set(i, 0, f.classes[1])
			} else {
				labels.Set(i, 0, f.classes[0])
			}
		}
		return labels
	}

	for i := 0; i < r; i++ {
		best := 0
		bestScore := math.Inf(-1)
		for ci := range f.classes {
			if score := f.decision(X, i, ci); score > bestScore {
				bestScore = score
				best = ci
			}
		}
		labels.Set(i, 0, f.classes[best])
	}
	return labels
}

func (f *fittedLogistic) predictProba(X mat.Matrix, r int) *mat.Dense {
	k := len(f.classes)
	probas := mat.NewDense(r, k, nil)

	if k == 2 {
		for i := 0; i < r; i++ {
			p := sigmoid(f.decision(X, i, 0))
			probas.Set(i, 0, 1-p)
			probas.Set(i, 1, p)
		}
		return probas
	}

	// 多クラスはスコアのソフトマックス。log-sum-exp経由で正規化する
	for i := 0; i < r; i++ {
		scores := make([]float64, k)
		for ci := range f.classes {
			scores[ci] = f.decision(X, i, ci)
		}
		lse := errors.LogSumExp(scores)
		for ci := range scores {
			probas.Set(i, ci, math.Exp(scores[ci]-lse))
		}
	}
	return probas
}

// ExportWeights は決定境界ごとの係数を行方向に連結して返す
func (f *fittedLogistic) ExportWeights() (*model.ModelWeights, error) {
	coefficients := make([]float64, 0, len(f.coef)*f.nFeatures)
	for _, row := range f.coef {
		coefficients = append(coefficients, row...)
	}
	intercept := f.intercepts[0]

	return &model.ModelWeights{
		ModelType:    FamilyLogistic,
		Version:      "1.0",
		Coefficients: coefficients,
		Intercept:    intercept,
		Hyperparameters: map[string]interface{}{
			"c":        f.c,
			"max_iter": f.maxIter,
		},
		Metadata: map[string]interface{}{
			"n_classes":  len(f.classes),
			"n_features": f.nFeatures,
		},
		IsFitted: true,
	}, nil
}

// sigmoid computes the logistic function with an overflow-safe exp.
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-z))
}

var (
	_ model.Spec           = logisticSpec{}
	_ model.Fitted         = (*fittedLogistic)(nil)
	_ model.WeightExporter = (*fittedLogistic)(nil)
)
