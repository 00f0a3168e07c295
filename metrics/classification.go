package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// logLossEpsilon は log(0) を避けるためのクリッピング値
const logLossEpsilon = 1e-15

// Accuracy は正解率（accuracy）を計算する
// yTrue と yPred はクラスラベル（数値エンコード済み）のベクトル
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkLabelVectors("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}

	n := yTrue.Len()
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - accuracy）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// BinaryLogLoss は二値分類の交差エントロピー損失を計算する
// yTrue は0/1ラベル、yPred は陽性クラスの予測確率。
// 予測確率は [eps, 1-eps] にクリップして log(0) を避ける。
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkLabelVectors("BinaryLogLoss", yTrue, yPred); err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	n := yTrue.Len()
	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEpsilon, 1-logLossEpsilon)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// AUC はROC曲線下面積をMann-Whitney U統計量から計算する
// 同順位の予測値には平均順位を割り当てる。
// 片方のクラスしか存在しない場合はAUCが定義できないため、
// UndefinedMetricWarning を発行して0.5を返す。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkLabelVectors("AUC", yTrue, yPred); err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("AUC", yTrue); err != nil {
		return 0, err
	}

	n := yTrue.Len()

	// 予測値でソートした添字列を作る
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	// 同値グループに平均順位を割り当てつつ陽性例の順位和を取る
	var nPos, nNeg int
	var sumRanksPos float64
	for i := 0; i < n; {
		j := i
		for j < n && yPred.AtVec(idx[j]) == yPred.AtVec(idx[i]) {
			j++
		}
		// 順位は1始まり。グループ [i, j) の平均順位
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				sumRanksPos += avgRank
			}
		}
		i = j
	}
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
		} else {
			nNeg++
		}
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(
			"AUC", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	u := sumRanksPos - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する
// 複数列の場合は先頭列を使う（ラベル列・確率列が先頭にある前提）。
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}

	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 || rPred == 0 || cPred == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if rTrue != rPred {
		return 0, errors.NewDimensionError("AUCMatrix", rTrue, rPred, 0)
	}

	yTrueVec := mat.NewVecDense(rTrue, nil)
	yPredVec := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}

	return AUC(yTrueVec, yPredVec)
}

// checkLabelVectors は分類指標共通の入力検証
func checkLabelVectors(op string, yTrue, yPred *mat.VecDense) error {
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

// checkBinaryLabels はラベルが0/1のみであることを確認する
func checkBinaryLabels(op string, yTrue *mat.VecDense) error {
	for i := 0; i < yTrue.Len(); i++ {
		if v := yTrue.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return nil
}
