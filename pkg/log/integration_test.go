package log

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestTestLoggerCapturesAllLevels(t *testing.T) {
	logger, buffer := NewTestLogger(LevelDebug)

	logger.Debug("per-fold detail", FoldIndexKey, 2, "rows", 40)
	logger.Info("split complete", TrainRowsKey, 120, TestRowsKey, 30)
	logger.Warn("sparse stratum", StrataKey, "species", "stratum_rows", 3)
	logger.Error("fit failed", fmt.Errorf("singular matrix"), ErrorCodeKey, ErrorSingularMatrix)

	if buffer.Len() == 0 {
		t.Fatal("expected captured output")
	}
	for _, msg := range []string{"per-fold detail", "split complete", "sparse stratum", "fit failed"} {
		if !logger.ContainsMessage(msg) {
			t.Errorf("message %q not captured", msg)
		}
	}

	// JSONを経由するので数値はfloat64で比較する
	if !logger.ContainsField(TrainRowsKey, 120.0) {
		t.Errorf("field %s=120 not captured", TrainRowsKey)
	}
	if !logger.ContainsField(StrataKey, "species") {
		t.Errorf("field %s=species not captured", StrataKey)
	}

	// 先頭の裸のエラー値は "error" キーで記録される
	if !logger.ContainsField(ErrAttrKey, "singular matrix") {
		t.Errorf("leading error value not recorded under %s", ErrAttrKey)
	}
	if !logger.ContainsField(ErrorCodeKey, ErrorSingularMatrix) {
		t.Errorf("field %s not captured after leading error", ErrorCodeKey)
	}
}

func TestLoggerWithScopesFields(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)

	assignmentLogger := logger.With(
		ComponentKey, "tune",
		AssignmentKey, 3,
	)
	assignmentLogger.Info("fold evaluated", FoldIndexKey, 1, MetricKey, "rmse")

	if !logger.ContainsField(ComponentKey, "tune") {
		t.Error("scoped component field not captured")
	}
	if !logger.ContainsField(AssignmentKey, 3.0) {
		t.Error("scoped assignment field not captured")
	}
	if !logger.ContainsField(FoldIndexKey, 1.0) {
		t.Error("per-record field not captured")
	}

	// 親ロガーはスコープ付きフィールドを持たない
	logger.Clear()
	logger.Info("plain record")
	if logger.ContainsField(AssignmentKey, 3.0) {
		t.Error("parent logger must not inherit fields from derived logger")
	}
}

func TestEnabledRespectsLevel(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	if !logger.Enabled(ctx, LevelInfo) {
		t.Error("info should be enabled at info level")
	}
	if !logger.Enabled(ctx, LevelError) {
		t.Error("error should be enabled at info level")
	}
	if logger.Enabled(ctx, LevelDebug) {
		t.Error("debug should be disabled at info level")
	}

	logger.Debug("suppressed record")
	logger.Info("visible record")

	if logger.ContainsMessage("suppressed record") {
		t.Error("debug record captured despite info level")
	}
	if !logger.ContainsMessage("visible record") {
		t.Error("info record missing")
	}
}

func TestPipelineAttributeKeys(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	logger.Info("grid search finished",
		OperationKey, OperationTune,
		PhaseKey, PhaseTuning,
		CandidatesKey, 12,
		FoldCountKey, 5,
		WorkersKey, 4,
		MetricKey, "rmse",
		DurationSecondsKey, 1.5,
	)

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatalf("parse entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	want := map[string]any{
		OperationKey:       OperationTune,
		PhaseKey:           PhaseTuning,
		CandidatesKey:      12.0,
		FoldCountKey:       5.0,
		WorkersKey:         4.0,
		MetricKey:          "rmse",
		DurationSecondsKey: 1.5,
	}
	for key, wantValue := range want {
		got, ok := entries[0][key]
		if !ok {
			t.Errorf("field %s missing", key)
			continue
		}
		if got != wantValue {
			t.Errorf("field %s = %v, want %v", key, got, wantValue)
		}
	}
}

func TestProviderServesNamedLoggers(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelDebug)

	provider.GetLogger().Info("plain provider record")
	provider.GetLoggerWithName("resample").Info("fold plan built", FoldCountKey, 5)

	output := buffer.String()
	if !strings.Contains(output, "plain provider record") {
		t.Error("default logger record missing")
	}
	if !strings.Contains(output, "fold plan built") {
		t.Error("named logger record missing")
	}
	if !strings.Contains(output, "resample") {
		t.Error("component name missing from named logger record")
	}
}

func TestErrorRecordCarriesContext(t *testing.T) {
	logger, _ := NewTestLogger(LevelError)

	logger.Error("assignment evaluation failed",
		"error", fmt.Errorf("gradient descent did not converge"),
		OperationKey, OperationTune,
		AssignmentKey, 7,
		ErrorCodeKey, ErrorConvergence,
		SuggestionKey, "increase max_iter or scale the features",
	)

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatalf("parse entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entries[0]["level"])
	}
	if entries[0]["error"] != "gradient descent did not converge" {
		t.Errorf("error field = %v, want flattened message", entries[0]["error"])
	}
	if !logger.ContainsField(ErrorCodeKey, ErrorConvergence) {
		t.Error("error code missing")
	}
	if !logger.ContainsField(SuggestionKey, "increase max_iter or scale the features") {
		t.Error("suggestion missing")
	}
}

func TestClearResetsCapture(t *testing.T) {
	logger, buffer := NewTestLogger(LevelInfo)

	logger.Info("first run", AssignmentKey, 0)
	if buffer.Len() == 0 {
		t.Fatal("expected captured output before Clear")
	}

	logger.Clear()
	if buffer.Len() != 0 {
		t.Error("Clear must empty the buffer")
	}
	if logger.ContainsMessage("first run") {
		t.Error("records must not survive Clear")
	}
}

func BenchmarkTestLoggerStructuredRecord(b *testing.B) {
	logger, _ := NewTestLogger(LevelInfo)
	foldLogger := logger.With(ComponentKey, "resample", FoldCountKey, 5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		foldLogger.Info("fold evaluated",
			FoldIndexKey, i%5,
			MetricKey, "rmse",
			DurationMsKey, 12,
		)
	}
}
