package model

import "gonum.org/v1/gonum/mat"

// LinearModel は線形モデルのインターフェース
// 係数ベースの族（linear.Regression等）のFittedが実装する。
type LinearModel interface {
	// Weights は学習された重み（係数）を返す
	Weights() []float64
	// Intercept は学習された切片を返す
	Intercept() float64
	// Score はモデルの決定係数（R²）を計算する
	Score(X, y mat.Matrix) (float64, error)
}
