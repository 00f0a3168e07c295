package errors

import (
	"math"
)

// CheckNumericalStability は値列にNaN/Infが混ざっていないか検査します。
// 勾配降下の重み更新後や正規方程式の解に対して呼び、発散を
// NumericalInstabilityErrorとして早期に報告します。iterationは
// 反復計算での発生位置（閉形式の解では0）です。
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// ClipValue はvalueを[min, max]に収めます。対数損失の確率クリッピング
// のように、端の値で計算が破綻する箇所で使います。
func ClipValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// StabilizeExp はオーバーフローしないexpです。入力を±700に制限して
// からexpを取るので、シグモイドの分母が+Infになることはありません。
func StabilizeExp(value float64) float64 {
	const maxExp = 700.0
	if value > maxExp {
		return math.Exp(maxExp)
	}
	if value < -maxExp {
		return 0
	}
	return math.Exp(value)
}

// LogSumExp は log(Σ exp(v)) を安定に計算します。ソフトマックスは
// exp(v_i - LogSumExp(v)) と書けるので、スコアの大小に関係なく
// 確率が正しく正規化されます。空列には-Infを返します。
func LogSumExp(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}

	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(maxVal, -1) {
		return math.Inf(-1)
	}

	sum := 0.0
	for _, v := range values {
		sum += math.Exp(v - maxVal)
	}
	return maxVal + math.Log(sum)
}
