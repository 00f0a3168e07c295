package pipeline

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/linear"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/recipe"
	"github.com/YuminosukeSato/modelflow/tree"
)

// regressionDataset は y = 2*x1 + 3*x2 + 1 の完全な線形データを作る
func regressionDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	x1 := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	x2 := []float64{2, 1, 4, 3, 6, 5, 8, 7}
	y := make([]float64, len(x1))
	for i := range y {
		y[i] = 2*x1[i] + 3*x2[i] + 1
	}
	ds, err := dataset.New(
		dataset.NewNumeric("x1", x1),
		dataset.NewNumeric("x2", x2),
		dataset.NewNumeric("price", y),
	)
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}
	return ds
}

// churnDataset は2クラスタの名義尺度目的変数データを作る
func churnDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	var x1, x2 []float64
	var churn []string
	offsets := []float64{-0.3, 0, 0.3}
	for _, dx := range offsets {
		for _, dy := range offsets {
			x1 = append(x1, dx)
			x2 = append(x2, dy)
			churn = append(churn, "no")
			x1 = append(x1, 4+dx)
			x2 = append(x2, 4+dy)
			churn = append(churn, "yes")
		}
	}
	ds, err := dataset.New(
		dataset.NewNumeric("x1", x1),
		dataset.NewNumeric("x2", x2),
		dataset.NewNominal("churn", churn),
	)
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}
	return ds
}

func TestPipelineRegressionFitPredict(t *testing.T) {
	ds := regressionDataset(t)

	rec := recipe.New().Normalize("x1", "x2")
	pl := New(rec, linear.Regression(), "price")

	fitted, err := pl.Fit(ds, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if got := fitted.Features(); len(got) != 2 || got[0] != "x1" || got[1] != "x2" {
		t.Fatalf("features = %v, want [x1 x2]", got)
	}
	if fitted.OutcomeLevels() != nil {
		t.Fatalf("numeric outcome should have nil levels, got %v", fitted.OutcomeLevels())
	}

	preds, err := fitted.Predict(ds, model.ContinuousValue)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	want, err := fitted.OutcomeVector(ds)
	if err != nil {
		t.Fatalf("OutcomeVector failed: %v", err)
	}
	for i := 0; i < want.Len(); i++ {
		if diff := math.Abs(preds.At(i, 0) - want.AtVec(i)); diff > 1e-6 {
			t.Errorf("row %d: prediction %v, want %v", i, preds.At(i, 0), want.AtVec(i))
		}
	}
}

func TestPipelineClassificationNominalOutcome(t *testing.T) {
	ds := churnDataset(t)

	pl := New(nil, tree.Classifier(tree.WithMaxDepth(3)), "churn")

	fitted, err := pl.Fit(ds, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	levels := fitted.OutcomeLevels()
	if len(levels) != 2 || levels[0] != "no" || levels[1] != "yes" {
		t.Fatalf("levels = %v, want [no yes]", levels)
	}

	// 目的変数はレベルの辞書順添字に符号化される
	y, err := fitted.OutcomeVector(ds)
	if err != nil {
		t.Fatalf("OutcomeVector failed: %v", err)
	}
	churnCol, _ := ds.Column("churn")
	for i, s := range churnCol.Strings() {
		want := 0.0
		if s == "yes" {
			want = 1.0
		}
		if y.AtVec(i) != want {
			t.Errorf("row %d: encoded outcome %v, want %v", i, y.AtVec(i), want)
		}
	}

	labels, err := fitted.Predict(ds, model.ClassLabel)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	decoded, err := fitted.DecodeLabels(labels)
	if err != nil {
		t.Fatalf("DecodeLabels failed: %v", err)
	}
	for i, s := range churnCol.Strings() {
		if decoded[i] != s {
			t.Errorf("row %d: decoded %q, want %q", i, decoded[i], s)
		}
	}

	probas, err := fitted.Predict(ds, model.ClassProbability)
	if err != nil {
		t.Fatalf("Predict proba failed: %v", err)
	}
	if _, c := probas.Dims(); c != 2 {
		t.Errorf("probability columns = %d, want 2", c)
	}
}

func TestPipelineDummyEncoding(t *testing.T) {
	ds, err := dataset.New(
		dataset.NewNumeric("bill", []float64{10, 32, 18, 45, 27, 38}),
		dataset.NewNominal("plan", []string{"basic", "pro", "basic", "pro", "basic", "pro"}),
		dataset.NewNumeric("spend", []float64{1, 5, 2, 6, 1.5, 5.5}),
	)
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}

	// ダミー符号化なしで名義列が残っていたら弾く
	_, err = New(nil, linear.Regression(), "spend").Fit(ds, nil)
	var valErr *errors.ValueError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValueError for un-encoded nominal predictor, got %v", err)
	}

	rec := recipe.New().DummyAll("spend")
	fitted, err := New(rec, linear.Regression(), "spend").Fit(ds, nil)
	if err != nil {
		t.Fatalf("Fit with DummyAll failed: %v", err)
	}

	features := fitted.Features()
	found := false
	for _, name := range features {
		if name == "plan_pro" {
			found = true
		}
	}
	if !found {
		t.Errorf("features = %v, want plan_pro indicator present", features)
	}

	if _, err := fitted.Predict(ds, model.ContinuousValue); err != nil {
		t.Errorf("Predict failed: %v", err)
	}
}

func TestPipelineNominalOutcomeForRegression(t *testing.T) {
	ds := churnDataset(t)

	_, err := New(nil, linear.Regression(), "churn").Fit(ds, nil)
	var valErr *errors.ValueError
	if !errors.As(err, &valErr) {
		t.Errorf("expected ValueError for nominal outcome with regression family, got %v", err)
	}
}

func TestPipelineUnknownOutcome(t *testing.T) {
	ds := regressionDataset(t)

	_, err := New(nil, linear.Regression(), "label").Fit(ds, nil)
	var colErr *errors.UnknownColumnError
	if !errors.As(err, &colErr) {
		t.Errorf("expected UnknownColumnError for absent outcome, got %v", err)
	}
}

func TestPipelinePredictMissingFeature(t *testing.T) {
	ds := regressionDataset(t)

	fitted, err := New(nil, linear.Regression(), "price").Fit(ds, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	narrow, err := ds.Drop("x2")
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	_, err = fitted.Predict(narrow, model.ContinuousValue)
	var missErr *errors.MissingColumnError
	if !errors.As(err, &missErr) {
		t.Errorf("expected MissingColumnError, got %v", err)
	}
}

func TestPipelineNotPrepared(t *testing.T) {
	ds := regressionDataset(t)

	var zero FittedPipeline
	checkNotPrepared := func(err error) {
		t.Helper()
		var prepErr *errors.NotPreparedError
		if !errors.As(err, &prepErr) {
			t.Errorf("expected NotPreparedError, got %v", err)
		}
	}

	_, err := zero.Predict(ds, model.ContinuousValue)
	checkNotPrepared(err)
	_, err = zero.OutcomeVector(ds)
	checkNotPrepared(err)
	_, err = zero.DecodeLabels(mat.NewDense(1, 1, []float64{0}))
	checkNotPrepared(err)
}

func TestPipelineOutcomeVectorUnseenLevel(t *testing.T) {
	ds := churnDataset(t)

	fitted, err := New(nil, tree.Classifier(), "churn").Fit(ds, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	other, err := dataset.New(
		dataset.NewNumeric("x1", []float64{0}),
		dataset.NewNumeric("x2", []float64{0}),
		dataset.NewNominal("churn", []string{"maybe"}),
	)
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}

	_, err = fitted.OutcomeVector(other)
	var valErr *errors.ValueError
	if !errors.As(err, &valErr) {
		t.Errorf("expected ValueError for unseen outcome level, got %v", err)
	}
}

func TestPipelineDecodeLabelsNumericOutcome(t *testing.T) {
	ds := regressionDataset(t)

	fitted, err := New(nil, linear.Regression(), "price").Fit(ds, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	_, err = fitted.DecodeLabels(mat.NewDense(1, 1, []float64{0}))
	var valErr *errors.ValueError
	if !errors.As(err, &valErr) {
		t.Errorf("expected ValueError decoding labels of a numeric outcome, got %v", err)
	}
}

func TestPipelineParamsForwarded(t *testing.T) {
	ds := churnDataset(t)

	pl := New(nil, tree.Classifier(), "churn")

	// 未知のハイパーパラメータはモデル側の検証で弾かれる
	_, err := pl.Fit(ds, model.Params{"n_estimators": 3})
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("expected ValidationError for unknown model param, got %v", err)
	}

	fitted, err := pl.Fit(ds, model.Params{"max_depth": 1})
	if err != nil {
		t.Fatalf("Fit with params failed: %v", err)
	}
	if _, err := fitted.Predict(ds, model.ClassLabel); err != nil {
		t.Errorf("Predict failed: %v", err)
	}
}
