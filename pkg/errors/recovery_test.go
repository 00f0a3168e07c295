package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestRecoverConvertsPanicToError(t *testing.T) {
	evaluate := func() (err error) {
		defer Recover(&err, "tune: assignment 2 fold 1")
		panic("index out of range in Score")
	}

	err := evaluate()
	if err == nil {
		t.Fatal("expected an error from the recovered panic, got nil")
	}

	var panicErr *PanicError
	if !As(err, &panicErr) {
		t.Fatalf("expected *PanicError, got %T: %v", err, err)
	}
	if panicErr.Operation != "tune: assignment 2 fold 1" {
		t.Errorf("operation = %q, want the evaluation slot", panicErr.Operation)
	}
	if panicErr.PanicValue != "index out of range in Score" {
		t.Errorf("panic value = %v", panicErr.PanicValue)
	}

	// パニック時点のスタックが残っていること
	if !strings.Contains(panicErr.StackTrace, "recovery_test.go") {
		t.Error("stack trace should name the panicking file")
	}

	want := "modelflow: panic in tune: assignment 2 fold 1: index out of range in Score"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestRecoverWithoutPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "pipeline.Fit")
		return nil
	}
	if err := fit(); err != nil {
		t.Errorf("Recover invented an error with no panic: %v", err)
	}

	// 通常のエラーはそのまま通る
	fitErr := func() (err error) {
		defer Recover(&err, "pipeline.Fit")
		return NewValueError("pipeline.Fit", "nil dataset")
	}
	err := fitErr()
	var valErr *ValueError
	if !As(err, &valErr) {
		t.Errorf("expected the original ValueError, got %v", err)
	}
}

func TestRecoverWrapsExistingError(t *testing.T) {
	// エラーを返した後のdefer内でさらにパニックした場合、
	// 元のエラーを失わずにパニック情報を前置する
	run := func() (err error) {
		defer Recover(&err, "recipe.Transform")
		defer func() {
			err = New("normalize: column vanished")
			panic("nil column slice")
		}()
		return nil
	}

	err := run()
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "panic in recipe.Transform") {
		t.Errorf("message %q should carry the panic context", msg)
	}
	if !strings.Contains(msg, "normalize: column vanished") {
		t.Errorf("message %q should keep the original error", msg)
	}
}

func TestSafeExecute(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		if err := SafeExecute("metric rmse", func() error { return nil }); err != nil {
			t.Errorf("SafeExecute() = %v, want nil", err)
		}
	})

	t.Run("error passes through", func(t *testing.T) {
		want := NewDimensionError("metric rmse", 10, 8, 0)
		err := SafeExecute("metric rmse", func() error { return want })
		var dimErr *DimensionError
		if !As(err, &dimErr) {
			t.Errorf("expected the metric's own DimensionError, got %v", err)
		}
	})

	t.Run("panic becomes PanicError", func(t *testing.T) {
		err := SafeExecute("model fit", func() error {
			var weights []float64
			_ = weights[3] // 範囲外アクセス
			return nil
		})
		var panicErr *PanicError
		if !As(err, &panicErr) {
			t.Fatalf("expected *PanicError, got %v", err)
		}
		if panicErr.Operation != "model fit" {
			t.Errorf("operation = %q", panicErr.Operation)
		}
	})
}

func TestPanicErrorCarriesCockroachStack(t *testing.T) {
	err := SafeExecute("forest train", func() error { panic("tree depth underflow") })

	// WithStackで包んでいるので%+vにリカバー地点のスタックが出る
	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "recovery") {
		t.Errorf("formatted error should reference the recovery site:\n%s", formatted)
	}
}
