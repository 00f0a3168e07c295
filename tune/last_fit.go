package tune

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/pipeline"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
	"github.com/YuminosukeSato/modelflow/split"
)

// MetricValue is one metric evaluated on the held-out test partition.
type MetricValue struct {
	Metric string
	Value  float64
}

// FinalFit is the outcome of LastFit: the pipeline refitted on the full
// training partition and its metrics on the test partition.
type FinalFit struct {
	Pipeline *pipeline.FittedPipeline
	Metrics  []MetricValue
}

// Metric returns the named test-partition value.
func (f *FinalFit) Metric(name string) (float64, bool) {
	for _, m := range f.Metrics {
		if m.Metric == name {
			return m.Value, true
		}
	}
	return 0, false
}

// LastFit closes a tuning workflow: it refits the pipeline once on the
// full training partition of the initial split using the chosen
// hyperparameters, then evaluates each metric on the held-out test
// partition, which no fitting decision has seen.
func LastFit(pl pipeline.Pipeline, sp *split.Split, params model.Params, metrics []Metric) (*FinalFit, error) {
	if sp == nil {
		return nil, errors.NewValueError("tune.LastFit", "nil split")
	}
	if err := checkMetrics(metrics); err != nil {
		return nil, err
	}

	start := time.Now()

	train, err := sp.Train()
	if err != nil {
		return nil, errors.Wrap(err, "tune: last fit: train partition")
	}
	test, err := sp.Test()
	if err != nil {
		return nil, errors.Wrap(err, "tune: last fit: test partition")
	}

	fitted, err := pl.Fit(train, params)
	if err != nil {
		return nil, errors.Wrap(err, "tune: last fit")
	}
	yTrue, err := fitted.OutcomeVector(test)
	if err != nil {
		return nil, errors.Wrap(err, "tune: last fit: outcome")
	}

	predictions := make(map[model.OutputKind]mat.Matrix, 2)
	values := make([]MetricValue, 0, len(metrics))
	for _, m := range metrics {
		pred, ok := predictions[m.Kind]
		if !ok {
			pred, err = fitted.Predict(test, m.Kind)
			if err != nil {
				return nil, errors.Wrapf(err, "tune: last fit: predict %s", m.Kind.String())
			}
			predictions[m.Kind] = pred
		}
		value, err := m.Score(yTrue, pred)
		if err != nil {
			return nil, errors.Wrapf(err, "tune: last fit: metric %s", m.Name)
		}
		values = append(values, MetricValue{Metric: m.Name, Value: value})
	}

	logger := log.GetLoggerWithName("tune")
	logger.Info("final fit evaluated",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseAssessment,
		log.TrainRowsKey, train.NumRows(),
		log.TestRowsKey, test.NumRows(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &FinalFit{Pipeline: fitted, Metrics: values}, nil
}
