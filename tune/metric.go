package tune

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/metrics"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// Direction says whether larger or smaller metric values are better.
type Direction int

const (
	// Minimize prefers smaller values (errors, losses).
	Minimize Direction = iota
	// Maximize prefers larger values (accuracy, R², AUC).
	Maximize
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	default:
		return "unknown"
	}
}

// Metric scores held-out predictions of one output kind against the
// encoded outcome. Score receives the outcome exactly as the pipeline
// encoded it for training (class indices for a nominal outcome) and the
// prediction matrix in the representation Kind requests.
type Metric struct {
	Name      string
	Kind      model.OutputKind
	Direction Direction
	Score     func(yTrue *mat.VecDense, yPred mat.Matrix) (float64, error)
}

// RMSE is root mean squared error on continuous predictions.
func RMSE() Metric {
	return Metric{
		Name:      "rmse",
		Kind:      model.ContinuousValue,
		Direction: Minimize,
		Score:     scoreVector("rmse", metrics.RMSE),
	}
}

// MAE is mean absolute error on continuous predictions.
func MAE() Metric {
	return Metric{
		Name:      "mae",
		Kind:      model.ContinuousValue,
		Direction: Minimize,
		Score:     scoreVector("mae", metrics.MAE),
	}
}

// R2 is the coefficient of determination on continuous predictions.
func R2() Metric {
	return Metric{
		Name:      "rsq",
		Kind:      model.ContinuousValue,
		Direction: Maximize,
		Score:     scoreVector("rsq", metrics.R2Score),
	}
}

// Accuracy is the fraction of correct class labels.
func Accuracy() Metric {
	return Metric{
		Name:      "accuracy",
		Kind:      model.ClassLabel,
		Direction: Maximize,
		Score:     scoreVector("accuracy", metrics.Accuracy),
	}
}

// LogLoss is binary cross-entropy on class probabilities. The outcome
// must be binary with classes encoded 0 and 1; the positive-class
// probability is the second probability column.
func LogLoss() Metric {
	return Metric{
		Name:      "log_loss",
		Kind:      model.ClassProbability,
		Direction: Minimize,
		Score:     scorePositiveProb("log_loss", metrics.BinaryLogLoss),
	}
}

// ROCAUC is the area under the ROC curve on class probabilities, binary
// outcomes only.
func ROCAUC() Metric {
	return Metric{
		Name:      "roc_auc",
		Kind:      model.ClassProbability,
		Direction: Maximize,
		Score:     scorePositiveProb("roc_auc", metrics.AUC),
	}
}

// scoreVector adapts a vector metric to the n×1 prediction matrices that
// ClassLabel and ContinuousValue produce.
func scoreVector(name string, fn func(yTrue, yPred *mat.VecDense) (float64, error)) func(*mat.VecDense, mat.Matrix) (float64, error) {
	return func(yTrue *mat.VecDense, yPred mat.Matrix) (float64, error) {
		r, c := yPred.Dims()
		if c != 1 {
			return 0, errors.NewDimensionError("tune."+name, 1, c, 1)
		}
		return fn(yTrue, columnVec(yPred, 0, r))
	}
}

// scorePositiveProb adapts a binary metric to n×2 probability matrices,
// scoring the positive-class (second) column.
func scorePositiveProb(name string, fn func(yTrue, yPred *mat.VecDense) (float64, error)) func(*mat.VecDense, mat.Matrix) (float64, error) {
	return func(yTrue *mat.VecDense, yPred mat.Matrix) (float64, error) {
		r, c := yPred.Dims()
		if c != 2 {
			return 0, errors.NewValueError("tune."+name, "needs binary class probabilities (two columns)")
		}
		return fn(yTrue, columnVec(yPred, 1, r))
	}
}

func columnVec(m mat.Matrix, j, rows int) *mat.VecDense {
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, m.At(i, j))
	}
	return v
}
