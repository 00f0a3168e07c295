package linear

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

func TestRegressionRecoversKnownWeights(t *testing.T) {
	// y = 1 + 2*x1 + 3*x2 を厳密に満たすデータ
	X := mat.NewDense(4, 2, []float64{
		1, 1,
		2, 1,
		1, 3,
		3, 2,
	})
	y := []float64{6, 8, 12, 13}

	fitted, err := Regression().Fit(X, y, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	lm, ok := fitted.(*fittedRegression)
	if !ok {
		t.Fatalf("unexpected fitted type %T", fitted)
	}
	if got := lm.Intercept(); math.Abs(got-1) > 1e-8 {
		t.Errorf("intercept = %v, want 1", got)
	}
	wantWeights := []float64{2, 3}
	for i, w := range lm.Weights() {
		if math.Abs(w-wantWeights[i]) > 1e-8 {
			t.Errorf("weight[%d] = %v, want %v", i, w, wantWeights[i])
		}
	}

	pred, err := fitted.Predict(X, model.ContinuousValue)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i, want := range y {
		if got := pred.At(i, 0); math.Abs(got-want) > 1e-8 {
			t.Errorf("pred[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestRegressionWithoutIntercept(t *testing.T) {
	// y = 2x を原点through
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := []float64{2, 4, 6}

	fitted, err := Regression(WithIntercept(false)).Fit(X, y, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	lm := fitted.(*fittedRegression)
	if got := lm.Intercept(); got != 0 {
		t.Errorf("intercept = %v, want 0", got)
	}
	if got := lm.Weights()[0]; math.Abs(got-2) > 1e-8 {
		t.Errorf("weight = %v, want 2", got)
	}
}

func TestRegressionRejectsParams(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := []float64{1, 2, 3}

	_, err := Regression().Fit(X, y, model.Params{"max_depth": 3})
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("expected ValidationError for unknown param, got %v", err)
	}
}

func TestRegressionUnsupportedKind(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := []float64{1, 2, 3}

	fitted, err := Regression().Fit(X, y, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	for _, kind := range []model.OutputKind{model.ClassLabel, model.ClassProbability} {
		_, err := fitted.Predict(X, kind)
		var kindErr *errors.UnsupportedOutputKindError
		if !errors.As(err, &kindErr) {
			t.Errorf("kind %v: expected UnsupportedOutputKindError, got %v", kind, err)
		}
	}
}

func TestRegressionDimensionValidation(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	if _, err := Regression().Fit(X, []float64{1, 2}, nil); err == nil {
		t.Error("expected error for y length mismatch")
	}

	fitted, err := Regression().Fit(X, []float64{1, 2, 3}, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	narrow := mat.NewDense(3, 1, []float64{1, 2, 3})
	if _, err := fitted.Predict(narrow, model.ContinuousValue); err == nil {
		t.Error("expected error for feature count mismatch")
	}
}

func TestRegressionSingularMatrix(t *testing.T) {
	// 2列目が1列目の定数倍なので X^T X は特異
	X := mat.NewDense(4, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		4, 8,
	})
	y := []float64{1, 2, 3, 4}

	if _, err := Regression().Fit(X, y, nil); err == nil {
		t.Error("expected error for singular design matrix")
	}
}

func TestRegressionScore(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := []float64{2, 4, 6, 8}

	fitted, err := Regression().Fit(X, y, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	lm := fitted.(*fittedRegression)
	score, err := lm.Score(X, mat.NewDense(4, 1, y))
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if math.Abs(score-1) > 1e-10 {
		t.Errorf("R² = %v, want 1", score)
	}
}

func TestRegressionExportWeights(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := []float64{3, 5, 7}

	fitted, err := Regression().Fit(X, y, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	exporter, ok := fitted.(model.WeightExporter)
	if !ok {
		t.Fatal("fitted regression should export weights")
	}
	weights, err := exporter.ExportWeights()
	if err != nil {
		t.Fatalf("ExportWeights failed: %v", err)
	}
	if weights.ModelType != FamilyRegression {
		t.Errorf("ModelType = %q, want %q", weights.ModelType, FamilyRegression)
	}
	if len(weights.Coefficients) != 1 {
		t.Fatalf("coefficient count = %d, want 1", len(weights.Coefficients))
	}
	if math.Abs(weights.Coefficients[0]-2) > 1e-8 {
		t.Errorf("coefficient = %v, want 2", weights.Coefficients[0])
	}
	if err := weights.Validate(); err != nil {
		t.Errorf("exported weights failed validation: %v", err)
	}
}
