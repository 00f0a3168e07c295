package recipe

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

func salesTable(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.NewNumeric("living_area", []float64{1200, 1500, 900, 2100, 1800, 1350}),
		dataset.NewNumeric("lot_area", []float64{8000, 9500, 6000, 14000, 11000, 8500}),
		dataset.NewNominal("neighborhood", []string{"north", "south", "north", "east", "south", "north"}),
		dataset.NewNumeric("price", []float64{210, 260, 150, 390, 330, 240}),
	)
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}
	return ds
}

func TestBuilderImmutability(t *testing.T) {
	r1 := New().Log(10, "living_area")
	r2 := r1.Normalize("living_area")

	if r1.Len() != 1 {
		t.Errorf("original recipe length = %d, want 1", r1.Len())
	}
	if r2.Len() != 2 {
		t.Errorf("extended recipe length = %d, want 2", r2.Len())
	}
}

func TestLogTransform(t *testing.T) {
	ds, err := dataset.New(dataset.NewNumeric("x", []float64{1, 10, 100}))
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}

	prep, err := New().Log(10, "x").Fit(ds)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	col, _ := out.Column("x")
	want := []float64{0, 1, 2}
	for i, v := range col.Floats() {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Errorf("x[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestLogNonPositive(t *testing.T) {
	ds, err := dataset.New(dataset.NewNumeric("x", []float64{5, 0, 3}))
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}

	_, err = New().Log(10, "x").Fit(ds)
	var npErr *errors.NonPositiveValueError
	if !errors.As(err, &npErr) {
		t.Fatalf("expected NonPositiveValueError, got %v", err)
	}
	if npErr.Row != 1 {
		t.Errorf("error row = %d, want 1", npErr.Row)
	}

	// オフセット付きならゼロを含む列も変換できる
	prep, err := New().LogOffset(10, 1, "x").Fit(ds)
	if err != nil {
		t.Fatalf("LogOffset fit failed: %v", err)
	}
	out, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("LogOffset transform failed: %v", err)
	}
	col, _ := out.Column("x")
	if got := col.Floats()[1]; math.Abs(got) > 1e-12 {
		t.Errorf("log10(0+1) = %v, want 0", got)
	}
}

func TestLogInvalidBase(t *testing.T) {
	ds, _ := dataset.New(dataset.NewNumeric("x", []float64{1, 2}))
	for _, base := range []float64{0, -2, 1} {
		if _, err := New().Log(base, "x").Fit(ds); err == nil {
			t.Errorf("base %g: expected error, got nil", base)
		}
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	ds := salesTable(t)

	prep, err := New().Normalize("living_area", "lot_area").Fit(ds)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// fitに使ったデータを変換すると平均0・標準偏差1になる
	for _, name := range []string{"living_area", "lot_area"} {
		col, _ := out.Column(name)
		mean, sd := stat.MeanStdDev(col.Floats(), nil)
		if math.Abs(mean) > 1e-10 {
			t.Errorf("%s: mean = %v, want 0", name, mean)
		}
		if math.Abs(sd-1) > 1e-10 {
			t.Errorf("%s: sd = %v, want 1", name, sd)
		}
	}

	// 対象外の列は手つかずのまま
	price, _ := out.Column("price")
	orig, _ := ds.Column("price")
	if !reflect.DeepEqual(price.Floats(), orig.Floats()) {
		t.Error("price column was modified")
	}
}

func TestNormalizeUsesFitStatistics(t *testing.T) {
	train, _ := dataset.New(dataset.NewNumeric("x", []float64{2, 4, 6, 8}))
	test, _ := dataset.New(dataset.NewNumeric("x", []float64{10, 20}))

	prep, err := New().Normalize("x").Fit(train)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(test)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// 訓練側の mean=5, sd=sqrt(20/3) でスケールされること
	sd := math.Sqrt(20.0 / 3.0)
	want := []float64{(10 - 5) / sd, (20 - 5) / sd}
	col, _ := out.Column("x")
	for i, v := range col.Floats() {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Errorf("x[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestNormalizeZeroVariance(t *testing.T) {
	ds, _ := dataset.New(
		dataset.NewNumeric("x", []float64{1, 2, 3}),
		dataset.NewNumeric("constant", []float64{7, 7, 7}),
	)

	_, err := New().Normalize().Fit(ds)
	var zvErr *errors.ZeroVarianceError
	if !errors.As(err, &zvErr) {
		t.Fatalf("expected ZeroVarianceError, got %v", err)
	}
	if zvErr.Column != "constant" {
		t.Errorf("error column = %q, want %q", zvErr.Column, "constant")
	}
}

func TestCorrFilterDropsCorrelatedColumn(t *testing.T) {
	// x2 = 2*x1 で完全相関。x3 は弱相関。
	ds, _ := dataset.New(
		dataset.NewNumeric("x1", []float64{1, 2, 3, 4, 5, 6}),
		dataset.NewNumeric("x2", []float64{2, 4, 6, 8, 10, 12}),
		dataset.NewNumeric("x3", []float64{1, -1, 1, -1, 1, -1}),
	)

	prep, err := New().CorrFilter(0.95).Fit(ds)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// 平均絶対相関が同点の場合は設定順で後ろのx2が落ちる
	want := []string{"x1", "x3"}
	if got := out.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
}

func TestCorrFilterThresholdProperty(t *testing.T) {
	// 2組の完全相関ペアを含む5列
	ds, _ := dataset.New(
		dataset.NewNumeric("a", []float64{1, 2, 3, 4, 5, 6, 7, 8}),
		dataset.NewNumeric("b", []float64{2, 4, 6, 8, 10, 12, 14, 16}),
		dataset.NewNumeric("c", []float64{5, 1, 4, 2, 8, 3, 7, 6}),
		dataset.NewNumeric("d", []float64{10, 2, 8, 4, 16, 6, 14, 12}),
		dataset.NewNumeric("e", []float64{-1, 1, -1, 1, -1, 1, -1, 1}),
	)

	const threshold = 0.95
	prep, err := New().CorrFilter(threshold).Fit(ds)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// 残った列のどのペアも閾値を超えないこと
	names := out.Names()
	for i := 0; i < len(names); i++ {
		ci, _ := out.Column(names[i])
		for j := i + 1; j < len(names); j++ {
			cj, _ := out.Column(names[j])
			r := math.Abs(stat.Correlation(ci.Floats(), cj.Floats(), nil))
			if r > threshold {
				t.Errorf("|corr(%s, %s)| = %v exceeds %v", names[i], names[j], r, threshold)
			}
		}
	}
}

func TestCorrFilterAppliesLearnedSetToNewData(t *testing.T) {
	train, _ := dataset.New(
		dataset.NewNumeric("x1", []float64{1, 2, 3, 4, 5, 6}),
		dataset.NewNumeric("x2", []float64{2, 4, 6, 8, 10, 12}),
		dataset.NewNumeric("x3", []float64{1, -1, 1, -1, 1, -1}),
	)
	// テスト側では相関構造が違っていても、落とす列はfitで学習したものと同じ
	test, _ := dataset.New(
		dataset.NewNumeric("x1", []float64{3, 1, 4}),
		dataset.NewNumeric("x2", []float64{9, 2, 7}),
		dataset.NewNumeric("x3", []float64{5, 5, 6}),
	)

	prep, err := New().CorrFilter(0.95).Fit(train)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(test)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	want := []string{"x1", "x3"}
	if got := out.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
}

func TestCorrFilterInvalidThreshold(t *testing.T) {
	ds := salesTable(t)
	for _, threshold := range []float64{0, -0.5, 1, 1.5} {
		if _, err := New().CorrFilter(threshold).Fit(ds); err == nil {
			t.Errorf("threshold %g: expected error, got nil", threshold)
		}
	}
}

func TestDummyEncoding(t *testing.T) {
	ds := salesTable(t)

	prep, err := New().Dummy("neighborhood").Fit(ds)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// 水準はソート順 [east north south]、先頭のeastが基準水準になる
	if out.Has("neighborhood") {
		t.Error("source column should be dropped")
	}
	if out.Has("neighborhood_east") {
		t.Error("reference level should not get an indicator")
	}

	north, err := out.Column("neighborhood_north")
	if err != nil {
		t.Fatalf("missing indicator: %v", err)
	}
	wantNorth := []float64{1, 0, 1, 0, 0, 1}
	if !reflect.DeepEqual(north.Floats(), wantNorth) {
		t.Errorf("neighborhood_north = %v, want %v", north.Floats(), wantNorth)
	}

	south, err := out.Column("neighborhood_south")
	if err != nil {
		t.Fatalf("missing indicator: %v", err)
	}
	wantSouth := []float64{0, 1, 0, 0, 1, 0}
	if !reflect.DeepEqual(south.Floats(), wantSouth) {
		t.Errorf("neighborhood_south = %v, want %v", south.Floats(), wantSouth)
	}
}

func TestDummyUnseenCategory(t *testing.T) {
	train, _ := dataset.New(
		dataset.NewNominal("color", []string{"red", "green", "red"}),
		dataset.NewNumeric("y", []float64{1, 2, 3}),
	)
	test, _ := dataset.New(
		dataset.NewNominal("color", []string{"blue", "green"}),
		dataset.NewNumeric("y", []float64{4, 5}),
	)

	prep, err := New().Dummy("color").Fit(train)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(test)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// 水準 [green red]、基準はgreen。未知の"blue"は全指示変数が0になる
	red, err := out.Column("color_red")
	if err != nil {
		t.Fatalf("missing indicator: %v", err)
	}
	want := []float64{0, 0}
	if !reflect.DeepEqual(red.Floats(), want) {
		t.Errorf("color_red = %v, want %v", red.Floats(), want)
	}
}

func TestDummyAllExcludesOutcome(t *testing.T) {
	ds, _ := dataset.New(
		dataset.NewNominal("region", []string{"a", "b", "a"}),
		dataset.NewNominal("churn", []string{"yes", "no", "yes"}),
		dataset.NewNumeric("tenure", []float64{1, 2, 3}),
	)

	prep, err := New().DummyAll("churn").Fit(ds)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if !out.Has("churn") {
		t.Error("outcome column should survive DummyAll")
	}
	if out.Has("region") {
		t.Error("region should be encoded")
	}
	if !out.Has("region_b") {
		t.Error("expected region_b indicator")
	}
}

func TestChainFeedsForward(t *testing.T) {
	ds := salesTable(t)

	// Dummyの後のNormalizeは、fit時に解決されるので指示変数列も対象になる
	prep, err := New().Dummy("neighborhood").Normalize().Fit(ds)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	col, err := out.Column("neighborhood_north")
	if err != nil {
		t.Fatalf("missing indicator after chain: %v", err)
	}
	mean, sd := stat.MeanStdDev(col.Floats(), nil)
	if math.Abs(mean) > 1e-10 || math.Abs(sd-1) > 1e-10 {
		t.Errorf("indicator not normalized: mean=%v sd=%v", mean, sd)
	}
}

func TestTransformDeterminism(t *testing.T) {
	ds := salesTable(t)

	prep, err := New().
		Log(10, "living_area").
		Dummy("neighborhood").
		Normalize("lot_area").
		Fit(ds)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	out1, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("first Transform failed: %v", err)
	}
	out2, err := prep.Transform(ds)
	if err != nil {
		t.Fatalf("second Transform failed: %v", err)
	}

	if !reflect.DeepEqual(out1.Names(), out2.Names()) {
		t.Fatalf("column sets differ: %v vs %v", out1.Names(), out2.Names())
	}
	for _, name := range out1.Names() {
		c1, _ := out1.Column(name)
		c2, _ := out2.Column(name)
		if c1.Kind() == dataset.Numeric {
			if !reflect.DeepEqual(c1.Floats(), c2.Floats()) {
				t.Errorf("column %q differs between applications", name)
			}
		} else if !reflect.DeepEqual(c1.Strings(), c2.Strings()) {
			t.Errorf("column %q differs between applications", name)
		}
	}

	// 入力データセットは変換で変化しない
	orig, _ := ds.Column("living_area")
	want := []float64{1200, 1500, 900, 2100, 1800, 1350}
	if !reflect.DeepEqual(orig.Floats(), want) {
		t.Error("Transform mutated its input dataset")
	}
}

func TestTransformNotPrepared(t *testing.T) {
	ds := salesTable(t)

	var zero Prepared
	_, err := zero.Transform(ds)
	var npErr *errors.NotPreparedError
	if !errors.As(err, &npErr) {
		t.Errorf("expected NotPreparedError, got %v", err)
	}

	var nilPrep *Prepared
	_, err = nilPrep.Transform(ds)
	if !errors.As(err, &npErr) {
		t.Errorf("nil receiver: expected NotPreparedError, got %v", err)
	}
}

func TestFitUnknownColumn(t *testing.T) {
	ds := salesTable(t)

	_, err := New().Normalize("basement_area").Fit(ds)
	var unknownErr *errors.UnknownColumnError
	if !errors.As(err, &unknownErr) {
		t.Errorf("expected UnknownColumnError, got %v", err)
	}
}

func TestApplyMissingColumn(t *testing.T) {
	train := salesTable(t)
	prep, err := New().Normalize("living_area").Fit(train)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// 学習した列が無いデータセットへの適用はエラー
	test, _ := dataset.New(dataset.NewNumeric("price", []float64{100, 200}))
	_, err = prep.Transform(test)
	var missingErr *errors.MissingColumnError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if missingErr.Column != "living_area" {
		t.Errorf("error column = %q, want %q", missingErr.Column, "living_area")
	}
}

func TestFitOnNonNumericColumn(t *testing.T) {
	ds := salesTable(t)
	if _, err := New().Log(10, "neighborhood").Fit(ds); err == nil {
		t.Error("Log on nominal column: expected error, got nil")
	}
	if _, err := New().Dummy("price").Fit(ds); err == nil {
		t.Error("Dummy on numeric column: expected error, got nil")
	}
}
