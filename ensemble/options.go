package ensemble

// forestConfig carries the random forest constructor defaults. Each value
// can be overridden per fit through the matching tuning key.
type forestConfig struct {
	trees       int
	maxDepth    int
	minLeaf     int
	maxFeatures int
	seed        uint64
}

func defaultConfig() forestConfig {
	return forestConfig{trees: 100, minLeaf: 1, seed: 1}
}

// Option configures the random forest family.
type Option func(*forestConfig)

// WithTrees sets the default ensemble size (default 100). A tuning
// assignment's "n_estimators" key overrides it per fit.
func WithTrees(n int) Option {
	return func(c *forestConfig) { c.trees = n }
}

// WithMaxDepth sets the default per-tree depth cap (default 0,
// unlimited). A tuning assignment's "max_depth" key overrides it.
func WithMaxDepth(depth int) Option {
	return func(c *forestConfig) { c.maxDepth = depth }
}

// WithMinSamplesLeaf sets the default minimum rows per leaf (default 1).
// A tuning assignment's "min_samples_leaf" key overrides it.
func WithMinSamplesLeaf(n int) Option {
	return func(c *forestConfig) { c.minLeaf = n }
}

// WithMaxFeatures sets the default number of features examined at each
// split (default 0, which resolves to the square root of the feature
// count at fit time). A tuning assignment's "max_features" key overrides
// it.
func WithMaxFeatures(n int) Option {
	return func(c *forestConfig) { c.maxFeatures = n }
}

// WithSeed seeds bootstrap sampling and per-tree feature subsampling.
// Identical seeds produce identical forests.
func WithSeed(seed uint64) Option {
	return func(c *forestConfig) { c.seed = seed }
}
