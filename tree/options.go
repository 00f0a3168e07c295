package tree

// treeConfig carries the settings shared by the classifier and regressor
// specs. A zero criterion resolves per family at fit time.
type treeConfig struct {
	criterion   string
	maxDepth    int
	minSplit    int
	minLeaf     int
	maxFeatures int
	seed        uint64
}

func defaultConfig() treeConfig {
	return treeConfig{minSplit: 2, minLeaf: 1, seed: 1}
}

// Option configures the tree families.
type Option func(*treeConfig)

// WithCriterion sets the split criterion. The classifier accepts
// CriterionGini (default) and CriterionEntropy; the regressor always
// uses variance reduction and rejects anything else.
func WithCriterion(criterion string) Option {
	return func(c *treeConfig) { c.criterion = criterion }
}

// WithMaxDepth sets the default depth cap (default 0, unlimited).
// A tuning assignment's "max_depth" key overrides it per fit.
func WithMaxDepth(depth int) Option {
	return func(c *treeConfig) { c.maxDepth = depth }
}

// WithMinSamplesSplit sets the default minimum number of rows a node
// needs to be split (default 2). A tuning assignment's
// "min_samples_split" key overrides it per fit.
func WithMinSamplesSplit(n int) Option {
	return func(c *treeConfig) { c.minSplit = n }
}

// WithMinSamplesLeaf sets the default minimum number of rows a leaf may
// hold (default 1). A tuning assignment's "min_samples_leaf" key
// overrides it per fit.
func WithMinSamplesLeaf(n int) Option {
	return func(c *treeConfig) { c.minLeaf = n }
}

// WithMaxFeatures limits the number of features examined at each split
// to a seeded random subset (default 0, all features). Random forests
// rely on this; a single tuned tree usually leaves it off.
func WithMaxFeatures(n int) Option {
	return func(c *treeConfig) { c.maxFeatures = n }
}

// WithSeed seeds the feature subsampling source. It has no effect
// unless WithMaxFeatures narrows the candidate set.
func WithSeed(seed uint64) Option {
	return func(c *treeConfig) { c.seed = seed }
}
