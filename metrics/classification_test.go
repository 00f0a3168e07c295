package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		yTrue *mat.VecDense
		yPred *mat.VecDense
		want  float64
	}{
		{
			name:  "all correct over three classes",
			yTrue: vec(0, 1, 2, 1, 0),
			yPred: vec(0, 1, 2, 1, 0),
			want:  1.0,
		},
		{
			name:  "one of five wrong",
			yTrue: vec(0, 1, 2, 1, 0),
			yPred: vec(0, 1, 1, 1, 0),
			want:  0.8,
		},
		{
			name:  "nothing right",
			yTrue: vec(1, 1, 1),
			yPred: vec(0, 0, 0),
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(tt.yTrue, tt.yPred)
			if err != nil {
				t.Fatalf("Accuracy failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Accuracy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassificationErrorComplementsAccuracy(t *testing.T) {
	yTrue := vec(0, 0, 1, 1)
	yPred := vec(0, 1, 1, 0)

	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		t.Fatalf("Accuracy failed: %v", err)
	}
	ce, err := ClassificationError(yTrue, yPred)
	if err != nil {
		t.Fatalf("ClassificationError failed: %v", err)
	}
	if math.Abs(acc+ce-1) > 1e-12 {
		t.Errorf("accuracy %v + error %v should sum to 1", acc, ce)
	}
	if math.Abs(ce-0.5) > 1e-12 {
		t.Errorf("ClassificationError = %v, want 0.5", ce)
	}
}

func TestClassificationMetricValidation(t *testing.T) {
	metrics := map[string]func(a, b *mat.VecDense) (float64, error){
		"Accuracy":            Accuracy,
		"ClassificationError": ClassificationError,
		"BinaryLogLoss":       BinaryLogLoss,
		"AUC":                 AUC,
	}

	for name, fn := range metrics {
		t.Run(name, func(t *testing.T) {
			_, err := fn(nil, vec(1))
			var valErr *errors.ValueError
			if !errors.As(err, &valErr) {
				t.Errorf("nil input: expected ValueError, got %v", err)
			}

			_, err = fn(vec(0, 1, 0), vec(0.5, 0.5))
			var dimErr *errors.DimensionError
			if !errors.As(err, &dimErr) {
				t.Errorf("length mismatch: expected DimensionError, got %v", err)
			}
		})
	}

	// 二値前提の指標は0/1以外のラベルを拒否する
	for _, fn := range []func(a, b *mat.VecDense) (float64, error){BinaryLogLoss, AUC} {
		if _, err := fn(vec(0, 2, 1), vec(0.1, 0.5, 0.9)); err == nil {
			t.Error("non-binary labels should fail")
		}
	}
}

func TestBinaryLogLoss(t *testing.T) {
	t.Run("confident correct predictions", func(t *testing.T) {
		// -(2·ln0.9 + 2·ln0.8)/4 ≈ 0.164252
		got, err := BinaryLogLoss(vec(0, 0, 1, 1), vec(0.1, 0.2, 0.8, 0.9))
		if err != nil {
			t.Fatalf("BinaryLogLoss failed: %v", err)
		}
		if math.Abs(got-0.164252) > 1e-4 {
			t.Errorf("log loss = %v, want ≈0.164252", got)
		}
	})

	t.Run("confidently wrong costs ln(10)", func(t *testing.T) {
		got, err := BinaryLogLoss(vec(0, 0, 1, 1), vec(0.9, 0.9, 0.1, 0.1))
		if err != nil {
			t.Fatalf("BinaryLogLoss failed: %v", err)
		}
		if math.Abs(got-math.Log(10)) > 1e-9 {
			t.Errorf("log loss = %v, want ln(10)", got)
		}
	})

	t.Run("hard 0/1 probabilities are clipped", func(t *testing.T) {
		// クリッピングなしだと -ln(0) = +Inf になる入力
		got, err := BinaryLogLoss(vec(0, 1), vec(0, 1))
		if err != nil {
			t.Fatalf("BinaryLogLoss failed: %v", err)
		}
		if math.IsInf(got, 0) || math.IsNaN(got) {
			t.Fatalf("log loss = %v, clipping failed", got)
		}
		if got > 1e-10 {
			t.Errorf("log loss = %v, want tiny epsilon-level value", got)
		}
	})
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name  string
		yTrue *mat.VecDense
		yPred *mat.VecDense
		want  float64
	}{
		{
			name:  "perfect ranking",
			yTrue: vec(0, 0, 0, 1, 1, 1),
			yPred: vec(0.1, 0.2, 0.3, 0.7, 0.8, 0.9),
			want:  1.0,
		},
		{
			name:  "inverted ranking",
			yTrue: vec(0, 0, 0, 1, 1, 1),
			yPred: vec(0.9, 0.8, 0.7, 0.3, 0.2, 0.1),
			want:  0.0,
		},
		{
			name:  "one crossing pair",
			yTrue: vec(0, 0, 1, 1),
			yPred: vec(0.1, 0.4, 0.35, 0.8),
			want:  0.75,
		},
		{
			name:  "uninformative constant score",
			yTrue: vec(0, 1, 0, 1),
			yPred: vec(0.5, 0.5, 0.5, 0.5),
			want:  0.5,
		},
		{
			// 同点グループ{0.4,0.4,0.4}には平均順位2が付く
			name:  "ties get average ranks",
			yTrue: vec(0, 0, 1, 1),
			yPred: vec(0.4, 0.4, 0.4, 0.8),
			want:  0.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.yTrue, tt.yPred)
			if err != nil {
				t.Fatalf("AUC failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AUC = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAUCSingleClassIsUndefined(t *testing.T) {
	// 片方のクラスしか無い場合は警告つきで0.5を返す
	for _, labels := range []*mat.VecDense{vec(1, 1, 1), vec(0, 0, 0)} {
		got, err := AUC(labels, vec(0.2, 0.5, 0.8))
		if err != nil {
			t.Fatalf("AUC failed: %v", err)
		}
		if got != 0.5 {
			t.Errorf("AUC = %v, want the 0.5 fallback", got)
		}
	}
}

func TestAUCMatrix(t *testing.T) {
	yTrue := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	yPred := mat.NewDense(4, 1, []float64{0.1, 0.4, 0.35, 0.8})

	got, err := AUCMatrix(yTrue, yPred)
	if err != nil {
		t.Fatalf("AUCMatrix failed: %v", err)
	}
	if math.Abs(got-0.75) > 1e-9 {
		t.Errorf("AUCMatrix = %v, want 0.75", got)
	}

	// 複数列は先頭列を使う（2列目はラベルでも確率でもないダミー）
	yTrueWide := mat.NewDense(4, 2, []float64{0, 9, 0, 9, 1, 9, 1, 9})
	yPredWide := mat.NewDense(4, 2, []float64{0.1, 9, 0.4, 9, 0.35, 9, 0.8, 9})
	got, err = AUCMatrix(yTrueWide, yPredWide)
	if err != nil {
		t.Fatalf("AUCMatrix failed: %v", err)
	}
	if math.Abs(got-0.75) > 1e-9 {
		t.Errorf("AUCMatrix on wide input = %v, want 0.75", got)
	}

	if _, err := AUCMatrix(nil, yPred); err == nil {
		t.Error("nil matrix should fail")
	}
	if _, err := AUCMatrix(&mat.Dense{}, &mat.Dense{}); err == nil {
		t.Error("empty matrix should fail")
	}
}

func BenchmarkAUC(b *testing.B) {
	const n = 1000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		if i >= n/2 {
			yTrue[i] = 1
		}
		yPred[i] = float64(i) / n
	}
	yTrueVec := mat.NewVecDense(n, yTrue)
	yPredVec := mat.NewVecDense(n, yPred)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(yTrueVec, yPredVec)
	}
}
