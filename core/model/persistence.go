package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// SaveModel は学習済みの状態やチューニング結果をgob形式でファイルに保存する。
// 値はエクスポートされたフィールドだけが書き出される。
//
//	result, _ := tune.Run(pl, folds, grid, metrics)
//	err := model.SaveModel(result.Raw(), "tuning.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "model: create %s", filename)
	}
	defer file.Close()

	return SaveModelToWriter(model, file)
}

// LoadModel はSaveModelで書いたファイルを読み戻す。modelには保存時と同じ型の
// ポインタを渡す。
//
//	var raw []tune.Measurement
//	err := model.LoadModel(&raw, "tuning.gob")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "model: open %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はgobエンコードした値をio.Writerへ書き出す。
// ファイル以外（ネットワーク、バッファ）へ保存したい場合はこちらを使う。
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "model: encode")
	}
	return nil
}

// LoadModelFromReader はSaveModelToWriterの出力をio.Readerから復元する。
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "model: decode")
	}
	return nil
}
