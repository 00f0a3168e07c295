package log

import (
	"fmt"
	"log/slog"
	"os"
)

// SetupLogger はプロセス全体のslogデフォルトをJSONハンドラに差し替える。
// 各レコードにはソース位置が付き、ErrAttrで渡したエラーからは
// cockroachdb/errorsのスタックトレースが抽出されてstacktrace属性になる。
//
// LoggerProvider（SetProvider経由）を使わず、標準のslogだけで
// 動かしたいアプリケーション向けの入口。
func SetupLogger(loglevel string) {
	opts := slog.HandlerOptions{
		AddSource: true,
		Level:     ToLogLevel(loglevel),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			// 収集基盤側の慣例に合わせたキー名へ読み替える
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			case slog.SourceKey:
				attr.Key = "source"
			}
			return attr
		},
	}
	handler := WrapWithStackTraces(slog.NewJSONHandler(os.Stdout, &opts))
	slog.SetDefault(slog.New(handler))
}

// ToLogLevel は"debug"/"info"/"warn"/"error"をslogのレベルへ変換する。
// 空文字はinfo扱い。それ以外の文字列は設定ミスなのでpanicする。
func ToLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "", "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
}

const (
	// ErrAttrKey はエラー値を載せる属性キー
	ErrAttrKey = "error"
	// StacktraceAttrKey は抽出したスタックトレースを載せる属性キー
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr wraps an error for slog so the stack-extracting handler can
// pick it up: slog.Error("fit failed", log.ErrAttr(err)).
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
