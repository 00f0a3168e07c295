package linear

// RegressionOption configures the least-squares family.
type RegressionOption func(*regressionSpec)

// WithIntercept sets whether the regression fits an intercept term
// (default true).
func WithIntercept(fit bool) RegressionOption {
	return func(s *regressionSpec) { s.intercept = fit }
}

// LogisticOption configures the logistic family.
type LogisticOption func(*logisticSpec)

// WithC sets the default inverse L2 regularization strength (default 1.0).
// A tuning assignment's "c" key overrides it per fit.
func WithC(c float64) LogisticOption {
	return func(s *logisticSpec) { s.c = c }
}

// WithMaxIter sets the default gradient descent iteration cap
// (default 100). A tuning assignment's "max_iter" key overrides it.
func WithMaxIter(n int) LogisticOption {
	return func(s *logisticSpec) { s.maxIter = n }
}

// WithTol sets the gradient convergence tolerance (default 1e-4).
func WithTol(tol float64) LogisticOption {
	return func(s *logisticSpec) { s.tol = tol }
}

// WithLogisticIntercept sets whether the classifier fits intercept
// terms (default true).
func WithLogisticIntercept(fit bool) LogisticOption {
	return func(s *logisticSpec) { s.intercept = fit }
}

// WithLogisticSeed seeds the weight initialization. The same seed
// always produces the same fit on the same data.
func WithLogisticSeed(seed uint64) LogisticOption {
	return func(s *logisticSpec) { s.seed = seed }
}
