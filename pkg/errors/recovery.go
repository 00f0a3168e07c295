package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// PanicError はリカバーしたパニックをエラーとして表現する型です。
// 評価ワーカーの中で動くモデルやメトリクスのコードがパニックしても、
// プロセスを落とさずに通常のエラー経路へ合流させるために使います。
type PanicError struct {
	// Operation はパニックをリカバーした場所（例: "tune: assignment 3 fold 1"）
	Operation string

	// PanicValue は panic() に渡された元の値
	PanicValue interface{}

	// StackTrace はパニック時点のゴルーチンスタック
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("modelflow: panic in %s: %v", e.Operation, e.PanicValue)
}

// MarshalZerologObject はzerologのイベントに構造化されたパニック情報を追加します。
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Str("panic_value", fmt.Sprintf("%v", e.PanicValue)).
		Str("type", "PanicError")
}

// NewPanicError は新しいPanicErrorを作成します。パニック発生時点の
// スタックを記録するので、defer中のrecover直後に呼んでください。
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		Operation:  operation,
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
	}
}

// Recover はdeferから呼び、パニックをerrに変換します。
//
// 使い方:
//
//	func evaluate(...) (err error) {
//	    defer errors.Recover(&err, "tune: assignment 3 fold 1")
//	    // ユーザー提供のFit/Predict/Scoreを呼ぶ
//	}
//
// パニックがなければ何もしません。既にerrが入っている状態でパニックが
// 起きた場合は、元のエラーを包んでパニック情報を前置します。
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
		return
	}
	*err = errors.WithStack(NewPanicError(operation, r))
}

// SafeExecute はfnを実行し、パニックをPanicErrorとして返します。
// fn自身が返すエラーはそのまま通します。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
