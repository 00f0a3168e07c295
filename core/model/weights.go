package model

import (
	"encoding/json"

	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// ModelWeights は学習済み線形モデルの係数一式をシリアライズ可能な形で
// 持ち運ぶための構造体。WeightExporterを実装するモデル族が生成する。
type ModelWeights struct {
	// ModelType はモデル族の識別子（linear_reg, logistic_reg等）
	ModelType string `json:"model_type"`

	// Version はフォーマットのバージョン。読み込み側の互換性チェック用
	Version string `json:"version"`

	// Coefficients は特徴量順の重み係数
	Coefficients []float64 `json:"coefficients"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// Features は係数に対応する特徴量名（任意）
	Features []string `json:"features,omitempty"`

	// Hyperparameters は学習時のハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は学習時の統計などの付帯情報（任意）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted は学習済みの重みかどうか
	IsFitted bool `json:"is_fitted"`
}

// ToJSON は人が読めるインデント付きJSONへシリアライズする
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はToJSONの出力からModelWeightsを復元する
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// Validate は重みの整合性を検証する。学習済みフラグと係数の有無が
// 食い違っている場合もエラーになる。
func (mw *ModelWeights) Validate() error {
	const op = "model.ModelWeights.Validate"
	if mw.ModelType == "" {
		return errors.NewValueError(op, "model_type is required")
	}
	if mw.Version == "" {
		return errors.NewValueError(op, "version is required")
	}
	if !mw.IsFitted && len(mw.Coefficients) > 0 {
		return errors.NewValueError(op, "unfitted weights must not carry coefficients")
	}
	if mw.IsFitted && len(mw.Coefficients) == 0 {
		return errors.NewValueError(op, "fitted weights must carry coefficients")
	}
	return nil
}

// Clone はディープコピーを返す。呼び出し側が係数やメタデータを書き換えても
// 元の値には影響しない。
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		Intercept:       mw.Intercept,
		IsFitted:        mw.IsFitted,
		Coefficients:    append([]float64(nil), mw.Coefficients...),
		Features:        append([]string(nil), mw.Features...),
		Hyperparameters: make(map[string]interface{}, len(mw.Hyperparameters)),
		Metadata:        make(map[string]interface{}, len(mw.Metadata)),
	}
	for k, v := range mw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	for k, v := range mw.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}
