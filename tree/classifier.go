package tree

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
)

// FamilyTree is the family identifier of the decision tree families.
// The classifier and regressor share it; Mode tells them apart.
const FamilyTree = "decision_tree"

// classifierSpec はCART分類木のSpec
type classifierSpec struct {
	treeConfig
}

// Classifier returns the decision tree classification family.
// Tunable hyperparameters: "max_depth", "min_samples_split" and
// "min_samples_leaf".
func Classifier(opts ...Option) model.Spec {
	s := classifierSpec{treeConfig: defaultConfig()}
	for _, opt := range opts {
		opt(&s.treeConfig)
	}
	return s
}

// Family returns "decision_tree".
func (s classifierSpec) Family() string { return FamilyTree }

// Mode returns Classification.
func (s classifierSpec) Mode() model.Mode { return model.Classification }

// Fit grows one CART tree on X with class values y. Unlike the logistic
// family a single-class y is accepted and yields a stump that always
// predicts that class; bootstrap resamples inside a forest depend on it.
func (s classifierSpec) Fit(X mat.Matrix, y []float64, params model.Params) (model.Fitted, error) {
	const op = "tree.Classifier.Fit"

	if unknown := params.Unknown("max_depth", "min_samples_split", "min_samples_leaf"); len(unknown) > 0 {
		return nil, errors.NewValidationError("params", "unknown hyperparameter", unknown[0])
	}

	criterion := s.criterion
	if criterion == "" {
		criterion = CriterionGini
	}
	if criterion != CriterionGini && criterion != CriterionEntropy {
		return nil, errors.NewValidationError("criterion", `must be "gini" or "entropy"`, criterion)
	}

	cfg, err := resolveGrowParams(s.treeConfig, params, criterion)
	if err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return nil, errors.NewDimensionError(op, r, len(y), 0)
	}

	start := time.Now()

	classes := uniqueClasses(y)
	index := make(map[float64]int, len(classes))
	for i, v := range classes {
		index[v] = i
	}
	encoded := make([]float64, r)
	for i, v := range y {
		encoded[i] = float64(index[v])
	}
	cfg.nClasses = len(classes)

	g := newGrower(X, encoded, cfg)
	root := g.grow(allRows(r), 0)

	logger := log.GetLoggerWithName("tree")
	logger.Debug("classification tree grown",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, FamilyTree,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"depth", root.depth(),
		"leaves", root.leaves(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &fittedClassifier{
		root:        root,
		classes:     classes,
		nFeatures:   c,
		importances: g.normalizedImportances(),
	}, nil
}

// resolveGrowParams merges constructor defaults with the per-fit
// assignment and validates the result.
func resolveGrowParams(cfg treeConfig, params model.Params, criterion string) (growSettings, error) {
	maxDepth := int(params.Get("max_depth", float64(cfg.maxDepth)))
	minSplit := int(params.Get("min_samples_split", float64(cfg.minSplit)))
	minLeaf := int(params.Get("min_samples_leaf", float64(cfg.minLeaf)))

	if maxDepth < 0 {
		return growSettings{}, errors.NewValidationError("max_depth", "must not be negative (0 means unlimited)", maxDepth)
	}
	if minSplit < 2 {
		return growSettings{}, errors.NewValidationError("min_samples_split", "must be at least 2", minSplit)
	}
	if minLeaf < 1 {
		return growSettings{}, errors.NewValidationError("min_samples_leaf", "must be at least 1", minLeaf)
	}

	gs := growSettings{
		criterion:   criterion,
		maxDepth:    maxDepth,
		minSplit:    minSplit,
		minLeaf:     minLeaf,
		maxFeatures: cfg.maxFeatures,
	}
	if cfg.maxFeatures > 0 {
		gs.rng = rand.New(rand.NewPCG(cfg.seed, cfg.seed))
	}
	return gs, nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// fittedClassifier is an immutable fitted classification tree.
type fittedClassifier struct {
	root        *node
	classes     []float64
	nFeatures   int
	importances []float64
}

// Family returns "decision_tree".
func (f *fittedClassifier) Family() string { return FamilyTree }

// Mode returns Classification.
func (f *fittedClassifier) Mode() model.Mode { return model.Classification }

// Classes returns the class values seen at fit time, ascending.
func (f *fittedClassifier) Classes() []float64 {
	out := make([]float64, len(f.classes))
	copy(out, f.classes)
	return out
}

// Depth returns the longest root-to-leaf path. A stump is 0.
func (f *fittedClassifier) Depth() int { return f.root.depth() }

// Leaves returns the number of terminal nodes.
func (f *fittedClassifier) Leaves() int { return f.root.leaves() }

// FeatureImportances returns the normalized impurity-decrease share per
// feature. The values sum to one unless no split gained anything.
func (f *fittedClassifier) FeatureImportances() []float64 {
	out := make([]float64, len(f.importances))
	copy(out, f.importances)
	return out
}

// Predict serves class labels and per-class probabilities.
// 確率は行が落ちた葉の学習時クラス比率をそのまま返す。
func (f *fittedClassifier) Predict(X mat.Matrix, kind model.OutputKind) (mat.Matrix, error) {
	r, c := X.Dims()
	if c != f.nFeatures {
		return nil, errors.NewDimensionError("tree.Classifier.Predict", f.nFeatures, c, 1)
	}

	switch kind {
	case model.ClassLabel:
		labels := mat.NewDense(r, 1, nil)
		for i := 0; i < r; i++ {
			leaf := f.root.find(X, i)
			labels.Set(i, 0, f.classes[int(leaf.value)])
		}
		return labels, nil

	case model.ClassProbability:
		k := len(f.classes)
		probas := mat.NewDense(r, k, nil)
		for i := 0; i < r; i++ {
			leaf := f.root.find(X, i)
			total := float64(leaf.samples)
			for ci := 0; ci < k; ci++ {
				probas.Set(i, ci, leaf.counts[ci]/total)
			}
		}
		return probas, nil

	default:
		return nil, errors.NewUnsupportedOutputKindError(FamilyTree, kind.String())
	}
}

// Score はクラスラベル予測の正解率を計算する
func (f *fittedClassifier) Score(X, y mat.Matrix) (float64, error) {
	labels, err := f.Predict(X, model.ClassLabel)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	if r == 0 {
		return 0, errors.NewValueError("tree.Classifier.Score", "empty data")
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
func (s classifierSpec) GetParams() map[string]interface{} {
	criterion := s.criterion
	if criterion == "" {
		criterion = CriterionGini
	}
	return map[string]interface{}{
		"criterion":         criterion,
		"max_depth":         s.maxDepth,
		"min_samples_split": s.minSplit,
		"min_samples_leaf":  s.minLeaf,
		"max_features":      s.maxFeatures,
	}
}

var (
	_ model.Spec            = classifierSpec{}
	_ model.Fitted          = (*fittedClassifier)(nil)
	_ model.Scorer          = (*fittedClassifier)(nil)
	_ model.ParameterGetter = classifierSpec{}
)
