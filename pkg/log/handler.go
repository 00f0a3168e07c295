package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// stackTraceHandler はslogハンドラのラッパー。レコード内のerror属性から
// cockroachdb/errorsのスタックトレースを取り出し、stacktrace属性として
// 同じレコードに足してから内側のハンドラへ渡す。
type stackTraceHandler struct {
	inner slog.Handler
}

// WrapWithStackTraces はハンドラをスタックトレース抽出つきで包む。
// SetupLoggerが使うほか、自前でslogを組むアプリケーションからも呼べる。
func WrapWithStackTraces(handler slog.Handler) slog.Handler {
	return &stackTraceHandler{inner: handler}
}

func (h *stackTraceHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *stackTraceHandler) Handle(ctx context.Context, r slog.Record) error {
	var trace string
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			trace = stackTraceOf(err)
		}
		return false
	})
	if trace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, trace))
	}
	return h.inner.Handle(ctx, r)
}

func (h *stackTraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &stackTraceHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *stackTraceHandler) WithGroup(name string) slog.Handler {
	return &stackTraceHandler{inner: h.inner.WithGroup(name)}
}

// stackTraceOf はWithStack等が記録した安全詳細の先頭をトレースとして返す。
// スタックを持たないエラーなら空文字。
func stackTraceOf(err error) string {
	details := errors.GetSafeDetails(err).SafeDetails
	if len(details) == 0 {
		return ""
	}
	return details[0]
}
