// Package ensemble provides the random forest classification family:
// bootstrap-aggregated CART trees with per-split feature subsampling,
// combined by soft voting.
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/core/parallel"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
	"github.com/YuminosukeSato/modelflow/tree"
)

// FamilyForest is the family identifier of the random forest model.
const FamilyForest = "rand_forest"

// forestSpec はバギングされたCART分類木のSpec
type forestSpec struct {
	forestConfig
}

// RandomForest returns the random forest classification family.
// Tunable hyperparameters: "n_estimators", "max_depth",
// "min_samples_leaf" and "max_features".
func RandomForest(opts ...Option) model.Spec {
	s := forestSpec{forestConfig: defaultConfig()}
	for _, opt := range opts {
		opt(&s.forestConfig)
	}
	return s
}

// Family returns "rand_forest".
func (s forestSpec) Family() string { return FamilyForest }

// Mode returns Classification.
func (s forestSpec) Mode() model.Mode { return model.Classification }

// classLister is the capability the forest needs from its member trees
// to map per-tree probability columns into the global class order.
type classLister interface {
	Classes() []float64
}

// importanceLister exposes per-tree impurity importances for averaging.
type importanceLister interface {
	FeatureImportances() []float64
}

// Fit trains the configured number of trees, each on its own bootstrap
// resample with feature subsampling at every split. Bootstrap rows and
// per-tree seeds are drawn sequentially from one seeded source before
// training starts, so the forest is reproducible regardless of how the
// trees are scheduled across CPUs.
func (s forestSpec) Fit(X mat.Matrix, y []float64, params model.Params) (model.Fitted, error) {
	const op = "ensemble.RandomForest.Fit"

	if unknown := params.Unknown("n_estimators", "max_depth", "min_samples_leaf", "max_features"); len(unknown) > 0 {
		return nil, errors.NewValidationError("params", "unknown hyperparameter", unknown[0])
	}

	nTrees := int(params.Get("n_estimators", float64(s.trees)))
	maxDepth := int(params.Get("max_depth", float64(s.maxDepth)))
	minLeaf := int(params.Get("min_samples_leaf", float64(s.minLeaf)))
	maxFeatures := int(params.Get("max_features", float64(s.maxFeatures)))

	if nTrees < 1 {
		return nil, errors.NewValidationError("n_estimators", "must be at least 1", nTrees)
	}
	if maxDepth < 0 {
		return nil, errors.NewValidationError("max_depth", "must not be negative (0 means unlimited)", maxDepth)
	}
	if minLeaf < 1 {
		return nil, errors.NewValidationError("min_samples_leaf", "must be at least 1", minLeaf)
	}
	if maxFeatures < 0 {
		return nil, errors.NewValidationError("max_features", "must not be negative (0 resolves to sqrt of the feature count)", maxFeatures)
	}

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return nil, errors.NewDimensionError(op, r, len(y), 0)
	}
	if maxFeatures > c {
		return nil, errors.NewValidationError("max_features", "must not exceed the feature count", maxFeatures)
	}
	if maxFeatures == 0 {
		maxFeatures = int(math.Sqrt(float64(c)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	start := time.Now()

	classes := uniqueClasses(y)
	classIndex := make(map[float64]int, len(classes))
	for i, v := range classes {
		classIndex[v] = i
	}

	// ブートストラップ標本と木ごとのシードは1本のPCGから逐次生成する
	rng := rand.New(rand.NewPCG(s.seed, s.seed))
	samples := make([][]int, nTrees)
	seeds := make([]uint64, nTrees)
	for t := 0; t < nTrees; t++ {
		rows := make([]int, r)
		for i := range rows {
			rows[i] = rng.IntN(r)
		}
		samples[t] = rows
		seeds[t] = rng.Uint64()
	}

	trees := make([]model.Fitted, nTrees)
	errs := make([]error, nTrees)
	parallel.Parallelize(nTrees, func(startIdx, endIdx int) {
		for t := startIdx; t < endIdx; t++ {
			bx, by := bootstrap(X, y, samples[t])
			fitted, err := tree.Classifier(
				tree.WithMaxDepth(maxDepth),
				tree.WithMinSamplesLeaf(minLeaf),
				tree.WithMaxFeatures(maxFeatures),
				tree.WithSeed(seeds[t]),
			).Fit(bx, by, nil)
			if err != nil {
				errs[t] = err
				continue
			}
			trees[t] = fitted
		}
	})
	for t, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "%s: tree %d", op, t)
		}
	}

	// 各木はブートストラップに現れたクラスしか知らないので、
	// 列→全体クラス添字の対応を木ごとに控えておく
	columnIndex := make([][]int, nTrees)
	importances := make([]float64, c)
	for t, fitted := range trees {
		lister := fitted.(classLister)
		local := lister.Classes()
		cols := make([]int, len(local))
		for j, v := range local {
			cols[j] = classIndex[v]
		}
		columnIndex[t] = cols

		for j, imp := range fitted.(importanceLister).FeatureImportances() {
			importances[j] += imp
		}
	}
	var total float64
	for _, imp := range importances {
		total += imp
	}
	if total > 0 {
		for j := range importances {
			importances[j] /= total
		}
	}

	logger := log.GetLoggerWithName("ensemble")
	logger.Debug("random forest grown",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, FamilyForest,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"trees", nTrees,
		"max_features", maxFeatures,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &fittedForest{
		trees:       trees,
		columnIndex: columnIndex,
		classes:     classes,
		nFeatures:   c,
		importances: importances,
	}, nil
}

// bootstrap materializes sampled rows as a dense matrix plus outcomes.
func bootstrap(X mat.Matrix, y []float64, rows []int) (*mat.Dense, []float64) {
	_, c := X.Dims()
	bx := mat.NewDense(len(rows), c, nil)
	by := make([]float64, len(rows))
	for i, r := range rows {
		for j := 0; j < c; j++ {
			bx.Set(i, j, X.At(r, j))
		}
		by[i] = y[r]
	}
	return bx, by
}

// uniqueClasses returns the distinct values of y in ascending order.
func uniqueClasses(y []float64) []float64 {
	seen := make(map[float64]struct{})
	var classes []float64
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)
	return classes
}

// fittedForest is an immutable trained forest.
type fittedForest struct {
	trees       []model.Fitted
	columnIndex [][]int // 木tの確率列j → 全体クラス添字
	classes     []float64
	nFeatures   int
	importances []float64
}

// Family returns "rand_forest".
func (f *fittedForest) Family() string { return FamilyForest }

// Mode returns Classification.
func (f *fittedForest) Mode() model.Mode { return model.Classification }

// Trees returns the ensemble size.
func (f *fittedForest) Trees() int { return len(f.trees) }

// Classes returns the class values seen at fit time, ascending.
func (f *fittedForest) Classes() []float64 {
	out := make([]float64, len(f.classes))
	copy(out, f.classes)
	return out
}

// FeatureImportances returns the forest-averaged impurity-decrease share
// per feature, normalized to sum to one unless no split gained anything.
func (f *fittedForest) FeatureImportances() []float64 {
	out := make([]float64, len(f.importances))
	copy(out, f.importances)
	return out
}

// Predict serves class labels and soft-voted probabilities: each tree's
// leaf class proportions are mapped into the global class order and
// averaged; labels are the argmax of that average.
func (f *fittedForest) Predict(X mat.Matrix, kind model.OutputKind) (mat.Matrix, error) {
	r, c := X.Dims()
	if c != f.nFeatures {
		return nil, errors.NewDimensionError("ensemble.RandomForest.Predict", f.nFeatures, c, 1)
	}

	switch kind {
	case model.ClassLabel, model.ClassProbability:
	default:
		return nil, errors.NewUnsupportedOutputKindError(FamilyForest, kind.String())
	}

	k := len(f.classes)
	votes := mat.NewDense(r, k, nil)
	for t, member := range f.trees {
		probas, err := member.Predict(X, model.ClassProbability)
		if err != nil {
			return nil, errors.Wrapf(err, "ensemble.RandomForest.Predict: tree %d", t)
		}
		cols := f.columnIndex[t]
		for i := 0; i < r; i++ {
			for j, global := range cols {
				votes.Set(i, global, votes.At(i, global)+probas.At(i, j))
			}
		}
	}
	scale := 1 / float64(len(f.trees))
	votes.Scale(scale, votes)

	if kind == model.ClassProbability {
		return votes, nil
	}

	labels := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		// 同率なら添字の小さいクラスを採る
		best := 0
		for ci := 1; ci < k; ci++ {
			if votes.At(i, ci) > votes.At(i, best) {
				best = ci
			}
		}
		labels.Set(i, 0, f.classes[best])
	}
	return labels, nil
}

// Score はクラスラベル予測の正解率を計算する
func (f *fittedForest) Score(X, y mat.Matrix) (float64, error) {
	labels, err := f.Predict(X, model.ClassLabel)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	if r == 0 {
		return 0, errors.NewValueError("ensemble.RandomForest.Score", "empty data")
	}
	correct := 0
	for i := 0; i < r; i++ {
		if labels.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}

// GetParams returns the effective constructor configuration.
func (s forestSpec) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     s.trees,
		"max_depth":        s.maxDepth,
		"min_samples_leaf": s.minLeaf,
		"max_features":     s.maxFeatures,
	}
}

var (
	_ model.Spec            = forestSpec{}
	_ model.Fitted          = (*fittedForest)(nil)
	_ model.Scorer          = (*fittedForest)(nil)
	_ model.ParameterGetter = forestSpec{}
)
