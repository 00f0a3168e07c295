// Package log defines standard attribute keys for machine learning operations.
//
// This file contains predefined attribute keys that provide consistency across
// all logging operations in modelflow. Using these standard keys enables better
// log analysis, monitoring, and debugging of evaluation pipelines.
//
// The attributes are organized into categories:
//   - Model and Operation Context
//   - Data Shape and Characteristics
//   - Splitting and Resampling Context
//   - Tuning Context
//   - Performance Metrics
//   - Error Context
//
// These keys follow a hierarchical naming convention (e.g., "model.family",
// "data.samples") to enable structured log analysis and filtering.

package log

// Model and Operation Context
// These attributes identify the model family, instance, and operation being performed.
const (
	// ModelNameKey identifies the model family being fitted or applied.
	// Examples: "linear_reg", "logistic_reg", "decision_tree", "rand_forest"
	ModelNameKey = "model.family"

	// EstimatorIDKey provides a unique identifier for a specific fitted instance.
	// This is useful for tracking multiple fits of the same family during tuning.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the pipeline operation being performed.
	// Standard values: "fit", "predict", "transform", "split", "resample", "tune"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "split", "recipe", "resample", "tune", "pipeline"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the evaluation lifecycle.
	// Examples: "training", "assessment", "tuning", "preprocessing"
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
// These attributes describe the structure and properties of data being processed.
const (
	// SamplesKey indicates the number of rows in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns in the dataset.
	// Important for dimensionality tracking and debugging shape mismatches.
	FeaturesKey = "data.features"

	// TargetsKey indicates the number of outcome variables for supervised learning.
	TargetsKey = "data.targets"

	// ColumnKey names a single column a transformation step is operating on.
	ColumnKey = "data.column"

	// DataTypeKey specifies the type of data being processed.
	// Examples: "numeric", "nominal", "mixed"
	DataTypeKey = "data.type"
)

// Splitting and Resampling Context
// These attributes describe train/test partitions and fold assignments.
const (
	// TrainFractionKey records the requested training proportion for a split.
	TrainFractionKey = "split.train_fraction"

	// StrataKey names the column used for stratified splitting.
	StrataKey = "split.strata"

	// TrainRowsKey records the number of rows assigned to the training partition.
	TrainRowsKey = "split.train_rows"

	// TestRowsKey records the number of rows assigned to the test partition.
	TestRowsKey = "split.test_rows"

	// FoldCountKey records the total number of folds in a resampling plan.
	FoldCountKey = "fold.count"

	// FoldIndexKey records the index of the fold currently being evaluated.
	FoldIndexKey = "fold.index"
)

// Tuning Context
// These attributes describe grid search configuration and progress.
const (
	// AssignmentKey records the index of a hyperparameter assignment in the grid.
	AssignmentKey = "tune.assignment"

	// CandidatesKey records the number of assignments in the expanded grid.
	CandidatesKey = "tune.candidates"

	// WorkersKey records the number of concurrent evaluation workers.
	WorkersKey = "tune.workers"

	// MetricKey names the evaluation metric being computed or optimized.
	MetricKey = "tune.metric"
)

// Performance Metrics
// These attributes capture timing, accuracy, and resource usage information.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// DurationSecondsKey records the execution time in seconds for longer operations.
	// Useful for tuning runs that take minutes.
	DurationSecondsKey = "perf.duration_seconds"

	// AccuracyKey records model accuracy for evaluation operations.
	// Range typically [0.0, 1.0] for classification accuracy.
	AccuracyKey = "metrics.accuracy"

	// LossKey records loss value during training or evaluation.
	LossKey = "metrics.loss"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// IterationKey records the current iteration number during iterative processes.
	// Useful for tracking convergence in gradient descent.
	IterationKey = "training.iteration"
)

// Error and Warning Context
// These attributes provide additional context for error and warning messages.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	// Examples: "DIMENSION_MISMATCH", "NOT_FITTED", "ZERO_VARIANCE"
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	// Examples: "ValidationError", "ZeroVarianceError", "MissingColumnError"
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated by the error logging functions.
	StacktraceKey = "error.stacktrace"

	// SuggestionKey provides helpful suggestions for resolving issues.
	// Examples: "Check input data shape", "Increase max_iter"
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
// These attributes capture model configuration and hyperparameters.
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	// Useful for tracking assignments during tuning and reproducibility.
	HyperParamsKey = "model.hyperparams"

	// LearningRateKey records the learning rate for gradient-based algorithms.
	LearningRateKey = "hyperparams.learning_rate"

	// RegularizationKey records regularization strength (C, penalty, etc.).
	RegularizationKey = "hyperparams.regularization"

	// RandomSeedKey records the random seed for reproducibility.
	// Essential for debugging and ensuring reproducible splits and folds.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
// Using these constants ensures consistency across the codebase.
const (
	// Standard pipeline operations
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationSplit        = "split"
	OperationResample     = "resample"
	OperationTune         = "tune"

	// Standard pipeline phases
	PhaseTraining      = "training"
	PhaseAssessment    = "assessment"
	PhaseTuning        = "tuning"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	// Standard error codes
	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
	ErrorSingularMatrix    = "SINGULAR_MATRIX"
	ErrorUnknownColumn     = "UNKNOWN_COLUMN"
	ErrorZeroVariance      = "ZERO_VARIANCE"
	ErrorNonPositiveValue  = "NON_POSITIVE_VALUE"
	ErrorInvalidFraction   = "INVALID_FRACTION"
	ErrorUnsupportedOutput = "UNSUPPORTED_OUTPUT"
)
