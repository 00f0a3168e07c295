package tune

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/pipeline"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
	"github.com/YuminosukeSato/modelflow/resample"
)

// Option configures a tuning run.
type Option func(*config)

type config struct {
	workers     int
	evalTimeout time.Duration
}

// WithWorkers bounds the number of concurrent evaluations (default: the
// number of CPUs).
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithEvalTimeout sets a wall-clock budget per evaluation. An evaluation
// that exceeds it fails the run. Zero (the default) means no budget.
func WithEvalTimeout(d time.Duration) Option {
	return func(c *config) { c.evalTimeout = d }
}

// Run evaluates every hyperparameter assignment in grid on every fold:
// the pipeline's recipe and model are refitted on the fold's training
// part, the held-out part is scored with each metric, and one
// Measurement per metric lands in the (assignment, fold) slot.
//
// Evaluations are independent, so they run on a bounded worker pool over
// an immutable task list; results and errors go into pre-sized slices
// indexed by task, never shared between goroutines. When evaluations
// fail, the error of the earliest task in assignment-major order is
// returned, wrapped with its assignment, fold, and stage.
func Run(pl pipeline.Pipeline, folds *resample.FoldSet, grid Grid, metrics []Metric, opts ...Option) (*Result, error) {
	cfg := config{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if folds == nil {
		return nil, errors.NewValueError("tune.Run", "nil fold set")
	}
	if len(grid) == 0 {
		return nil, errors.NewValidationError("grid", "must contain at least one assignment", len(grid))
	}
	if err := checkMetrics(metrics); err != nil {
		return nil, err
	}
	if cfg.workers < 1 {
		return nil, errors.NewValidationError("workers", "must be at least 1", cfg.workers)
	}

	k := folds.Len()
	tasks := len(grid) * k
	workers := cfg.workers
	if workers > tasks {
		workers = tasks
	}

	logger := log.GetLoggerWithName("tune")
	logger.Info("grid search started",
		log.OperationKey, log.OperationTune,
		log.CandidatesKey, len(grid),
		log.FoldCountKey, k,
		log.WorkersKey, workers,
	)
	start := time.Now()

	// タスクtは割り当てt/k・フォールドt%k。結果とエラーはタスク番号の
	// スロットに書くだけなので、ワーカー間で共有する可変状態はない。
	results := make([][]Measurement, tasks)
	errs := make([]error, tasks)

	taskCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				a, f := t/k, t%k
				results[t], errs[t] = evaluateWithBudget(pl, folds, grid[a], metrics, a, f, cfg.evalTimeout)
			}
		}()
	}
	for t := 0; t < tasks; t++ {
		taskCh <- t
	}
	close(taskCh)
	wg.Wait()

	// 先頭のタスク（評価順）のエラーが勝つ
	for t := 0; t < tasks; t++ {
		if errs[t] != nil {
			return nil, errs[t]
		}
	}

	raw := make([]Measurement, 0, tasks*len(metrics))
	for t := 0; t < tasks; t++ {
		raw = append(raw, results[t]...)
	}

	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = m.Name
	}

	logger.Info("grid search finished",
		log.OperationKey, log.OperationTune,
		log.CandidatesKey, len(grid),
		log.FoldCountKey, k,
		log.DurationSecondsKey, time.Since(start).Seconds(),
	)

	return &Result{grid: grid.Clone(), folds: k, metrics: names, raw: raw}, nil
}

func checkMetrics(ms []Metric) error {
	if len(ms) == 0 {
		return errors.NewValidationError("metrics", "must contain at least one metric", len(ms))
	}
	seen := make(map[string]struct{}, len(ms))
	for _, m := range ms {
		if m.Name == "" {
			return errors.NewValidationError("metrics", "metric name must not be empty", m.Name)
		}
		if m.Score == nil {
			return errors.NewValidationError("metrics", "metric has no score function", m.Name)
		}
		if _, ok := seen[m.Name]; ok {
			return errors.NewValidationError("metrics", "duplicate metric name", m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

// evaluateWithBudget runs one evaluation, optionally under a wall-clock
// budget. The evaluation itself is not cancellable; on expiry the run
// fails and the stray goroutine finishes into a buffered channel.
func evaluateWithBudget(pl pipeline.Pipeline, folds *resample.FoldSet, params model.Params, metrics []Metric, a, f int, budget time.Duration) ([]Measurement, error) {
	if budget <= 0 {
		return evaluate(pl, folds, params, metrics, a, f)
	}

	type outcome struct {
		ms  []Measurement
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ms, err := evaluate(pl, folds, params, metrics, a, f)
		done <- outcome{ms, err}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case out := <-done:
		return out.ms, out.err
	case <-timer.C:
		return nil, errors.Newf("tune: assignment %d fold %d: evaluation exceeded budget %v", a, f, budget)
	}
}

// evaluate fits the pipeline on fold f's training part with the given
// assignment and scores the held-out part with every metric. Predictions
// are computed once per output kind and shared across metrics.
//
// Spec実装やメトリクスはユーザー提供コードなので、パニックは
// ここでリカバーして通常の評価失敗に変換する。
func evaluate(pl pipeline.Pipeline, folds *resample.FoldSet, params model.Params, metrics []Metric, a, f int) (ms []Measurement, err error) {
	defer errors.Recover(&err, fmt.Sprintf("tune: assignment %d fold %d", a, f))

	wrap := func(err error, stage string) error {
		return errors.Wrapf(err, "tune: assignment %d fold %d: %s", a, f, stage)
	}

	train, err := folds.Train(f)
	if err != nil {
		return nil, wrap(err, "resample")
	}
	heldOut, err := folds.HeldOut(f)
	if err != nil {
		return nil, wrap(err, "resample")
	}

	fitted, err := pl.Fit(train, params)
	if err != nil {
		return nil, wrap(err, "fit")
	}
	yTrue, err := fitted.OutcomeVector(heldOut)
	if err != nil {
		return nil, wrap(err, "outcome")
	}

	predictions := make(map[model.OutputKind]mat.Matrix, 2)
	out := make([]Measurement, 0, len(metrics))
	for _, m := range metrics {
		pred, ok := predictions[m.Kind]
		if !ok {
			pred, err = fitted.Predict(heldOut, m.Kind)
			if err != nil {
				return nil, wrap(err, "predict "+m.Kind.String())
			}
			predictions[m.Kind] = pred
		}

		value, err := m.Score(yTrue, pred)
		if err != nil {
			return nil, wrap(err, "metric "+m.Name)
		}
		out = append(out, Measurement{Fold: f, Assignment: a, Metric: m.Name, Value: value})
	}
	return out, nil
}
