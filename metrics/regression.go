package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// MSE は平均二乗誤差を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkContinuousVectors("MSE", yTrue, yPred); err != nil {
		return 0, err
	}

	n := yTrue.Len()
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MSEMatrix はn×1行列の入力に対してMSEを計算する
// 回帰の予測行列は単一列なので、複数列はエラーにする。
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	const op = "MSEMatrix"

	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil matrix")
	}

	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}

	yTrueVec := mat.NewVecDense(rTrue, mat.Col(nil, 0, yTrue))
	yPredVec := mat.NewVecDense(rPred, mat.Col(nil, 0, yPred))
	return MSE(yTrueVec, yPredVec)
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkContinuousVectors("MAE", yTrue, yPred); err != nil {
		return 0, err
	}

	n := yTrue.Len()
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数 R² = 1 - RSS/TSS を計算する
// yTrueに分散がない場合はR²が定義できないのでエラーを返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkContinuousVectors("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}

	n := yTrue.Len()
	yMean := stat.Mean(vecData(yTrue), nil)

	var tss, rss float64
	for i := 0; i < n; i++ {
		obs := yTrue.AtVec(i)
		tss += (obs - yMean) * (obs - yMean)
		rss += (obs - yPred.AtVec(i)) * (obs - yPred.AtVec(i))
	}

	if tss == 0 {
		return 0, errors.Newf("R2Score: yTrue has no variance, R² is undefined")
	}
	return 1 - rss/tss, nil
}

// MAPE は平均絶対パーセンテージ誤差を%単位で計算する
// yTrueが0の観測はゼロ除算になるため飛ばし、全てが0ならエラーを返す。
func MAPE(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkContinuousVectors("MAPE", yTrue, yPred); err != nil {
		return 0, err
	}

	n := yTrue.Len()
	var sum float64
	counted := 0
	for i := 0; i < n; i++ {
		obs := yTrue.AtVec(i)
		if obs == 0 {
			continue
		}
		sum += math.Abs(obs-yPred.AtVec(i)) / math.Abs(obs)
		counted++
	}

	if counted == 0 {
		return 0, errors.Newf("MAPE: every yTrue value is zero")
	}
	return sum / float64(counted) * 100, nil
}

// ExplainedVarianceScore は 1 - Var(yTrue-yPred)/Var(yTrue) を計算する
// R²と違い、予測の系統的なオフセットを許容する指標になる。
func ExplainedVarianceScore(yTrue, yPred *mat.VecDense) (float64, error) {
	const op = "ExplainedVarianceScore"

	if err := checkContinuousVectors(op, yTrue, yPred); err != nil {
		return 0, err
	}

	n := yTrue.Len()
	if n < 2 {
		return 0, errors.NewValueError(op, "needs at least two observations")
	}

	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = yTrue.AtVec(i) - yPred.AtVec(i)
	}

	// 比を取るので標本分散(n-1)同士で割れば定義と一致する
	varTrue := stat.Variance(vecData(yTrue), nil)
	if varTrue == 0 {
		return 0, errors.Newf("%s: yTrue has no variance", op)
	}
	return 1 - stat.Variance(residuals, nil)/varTrue, nil
}

// vecData はベクトルの値を連続スライスへ写し取る
// ビュー由来のストライド付きベクトルでもgonum/statへ安全に渡せる。
func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// checkContinuousVectors は回帰指標共通の入力検証
func checkContinuousVectors(op string, yTrue, yPred *mat.VecDense) error {
	if yTrue == nil || yPred == nil {
		return errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return nil
}
