// Package tree provides CART decision tree model families: a classifier
// using gini or entropy impurity and a regressor using variance reduction.
// Both are exposed as model.Spec values, so pipelines and tuners treat
// them exactly like the linear families.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Split criteria accepted by the classifier.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
	// CriterionVariance is the regressor's criterion; it is not selectable.
	CriterionVariance = "variance"
)

// node は学習済み木の1ノード。feature < 0 なら葉。
// 内部ノードは x[feature] <= threshold で左に降りる。
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node

	// 葉の出力。回帰は平均値、分類は多数派クラスの添字。
	value float64
	// 分類のみ: 学習時にこの葉へ落ちたクラス別サンプル数
	counts  []float64
	samples int
}

func (n *node) leaf() bool { return n.feature < 0 }

// find walks to the leaf responsible for row i of X.
func (n *node) find(X mat.Matrix, i int) *node {
	cur := n
	for !cur.leaf() {
		if X.At(i, cur.feature) <= cur.threshold {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	return cur
}

// depth returns the longest root-to-leaf path length. A lone leaf is 0.
func (n *node) depth() int {
	if n.leaf() {
		return 0
	}
	l, r := n.left.depth(), n.right.depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

// leaves counts the terminal nodes under n.
func (n *node) leaves() int {
	if n.leaf() {
		return 1
	}
	return n.left.leaves() + n.right.leaves()
}

// growSettings は1本の木を成長させるのに必要な設定をまとめたもの
type growSettings struct {
	criterion   string
	maxDepth    int // 0は無制限
	minSplit    int
	minLeaf     int
	maxFeatures int // 0は全特徴量
	nClasses    int // 0なら回帰
	rng         *rand.Rand
}

// grower builds one tree over a fixed design matrix. It is single-use:
// Spec.Fit creates one per call, so nothing here needs locking.
type grower struct {
	X           mat.Matrix
	y           []float64 // class indices for classification, targets otherwise
	cfg         growSettings
	nFeatures   int
	importances []float64 // raw impurity-decrease accumulator per feature
}

func newGrower(X mat.Matrix, y []float64, cfg growSettings) *grower {
	_, c := X.Dims()
	return &grower{
		X:           X,
		y:           y,
		cfg:         cfg,
		nFeatures:   c,
		importances: make([]float64, c),
	}
}

// grow recursively builds the subtree for the given rows.
//
// 標準的なCARTの貪欲法: 候補特徴量ごとに値でソートし、隣り合う異なる値の
// 中点を閾値候補として不純度の減少が最大の分割を選ぶ。減少量ゼロの分割も
// 許容する（XORのような対称パターンは最初の分割では不純度が下がらない）。
func (g *grower) grow(rows []int, depth int) *node {
	imp := g.impurity(rows)

	if g.stop(rows, depth, imp) {
		return g.makeLeaf(rows)
	}

	feature, threshold, decrease, ok := g.bestSplit(rows, imp)
	if !ok {
		return g.makeLeaf(rows)
	}

	g.importances[feature] += float64(len(rows)) * decrease

	var leftRows, rightRows []int
	for _, r := range rows {
		if g.X.At(r, feature) <= threshold {
			leftRows = append(leftRows, r)
		} else {
			rightRows = append(rightRows, r)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      g.grow(leftRows, depth+1),
		right:     g.grow(rightRows, depth+1),
		samples:   len(rows),
	}
}

func (g *grower) stop(rows []int, depth int, imp float64) bool {
	if g.cfg.maxDepth > 0 && depth >= g.cfg.maxDepth {
		return true
	}
	if len(rows) < g.cfg.minSplit || len(rows) < 2*g.cfg.minLeaf {
		return true
	}
	return imp == 0
}

func (g *grower) makeLeaf(rows []int) *node {
	n := &node{feature: -1, samples: len(rows)}

	if g.cfg.nClasses > 0 {
		counts := make([]float64, g.cfg.nClasses)
		for _, r := range rows {
			counts[int(g.y[r])]++
		}
		// 多数決。同数なら添字の小さいクラスを返す
		best := 0
		for c := 1; c < len(counts); c++ {
			if counts[c] > counts[best] {
				best = c
			}
		}
		n.counts = counts
		n.value = float64(best)
		return n
	}

	var sum float64
	for _, r := range rows {
		sum += g.y[r]
	}
	n.value = sum / float64(len(rows))
	return n
}

// candidateFeatures returns the feature indices examined at one node:
// every feature, or a seeded random subset when feature subsampling is on.
func (g *grower) candidateFeatures() []int {
	m := g.cfg.maxFeatures
	if m <= 0 || m >= g.nFeatures || g.cfg.rng == nil {
		all := make([]int, g.nFeatures)
		for j := range all {
			all[j] = j
		}
		return all
	}
	perm := g.cfg.rng.Perm(g.nFeatures)[:m]
	sort.Ints(perm)
	return perm
}

// bestSplit scans the candidate features for the threshold with the
// largest impurity decrease. Ties keep the first candidate found, so the
// result is deterministic for a given feature order.
func (g *grower) bestSplit(rows []int, parentImp float64) (feature int, threshold, decrease float64, ok bool) {
	best := math.Inf(-1)
	for _, j := range g.candidateFeatures() {
		thr, dec, valid := g.scanFeature(rows, j, parentImp)
		if valid && dec > best {
			best = dec
			feature = j
			threshold = thr
			ok = true
		}
	}
	return feature, threshold, best, ok
}

// scanFeature finds the best threshold on one feature by a single sorted
// sweep, maintaining left-side aggregates incrementally.
func (g *grower) scanFeature(rows []int, j int, parentImp float64) (threshold, decrease float64, ok bool) {
	n := len(rows)
	sorted := make([]int, n)
	copy(sorted, rows)
	// 値が同じ行は元の行番号順に並べて決定的にする
	sort.Slice(sorted, func(a, b int) bool {
		va, vb := g.X.At(sorted[a], j), g.X.At(sorted[b], j)
		if va != vb {
			return va < vb
		}
		return sorted[a] < sorted[b]
	})

	if g.cfg.nClasses > 0 {
		return g.scanClassification(sorted, j, parentImp)
	}
	return g.scanRegression(sorted, j, parentImp)
}

func (g *grower) scanClassification(sorted []int, j int, parentImp float64) (threshold, decrease float64, ok bool) {
	n := len(sorted)
	k := g.cfg.nClasses

	total := make([]float64, k)
	for _, r := range sorted {
		total[int(g.y[r])]++
	}
	left := make([]float64, k)

	best := math.Inf(-1)
	for i := 1; i < n; i++ {
		left[int(g.y[sorted[i-1]])]++

		v0, v1 := g.X.At(sorted[i-1], j), g.X.At(sorted[i], j)
		if v0 == v1 {
			continue
		}
		nl, nr := i, n-i
		if nl < g.cfg.minLeaf || nr < g.cfg.minLeaf {
			continue
		}

		impL := g.classImpurity(left, float64(nl))
		impR := g.classImpurityRemainder(total, left, float64(nr))
		childImp := (float64(nl)*impL + float64(nr)*impR) / float64(n)
		dec := parentImp - childImp
		if dec < 0 {
			dec = 0
		}
		if dec > best {
			best = dec
			threshold = (v0 + v1) / 2
			ok = true
		}
	}
	return threshold, best, ok
}

func (g *grower) scanRegression(sorted []int, j int, parentImp float64) (threshold, decrease float64, ok bool) {
	n := len(sorted)

	var totalSum, totalSumSq float64
	for _, r := range sorted {
		totalSum += g.y[r]
		totalSumSq += g.y[r] * g.y[r]
	}
	var leftSum, leftSumSq float64

	best := math.Inf(-1)
	for i := 1; i < n; i++ {
		yv := g.y[sorted[i-1]]
		leftSum += yv
		leftSumSq += yv * yv

		v0, v1 := g.X.At(sorted[i-1], j), g.X.At(sorted[i], j)
		if v0 == v1 {
			continue
		}
		nl, nr := float64(i), float64(n-i)
		if i < g.cfg.minLeaf || n-i < g.cfg.minLeaf {
			continue
		}

		impL := variance(leftSum, leftSumSq, nl)
		impR := variance(totalSum-leftSum, totalSumSq-leftSumSq, nr)
		childImp := (nl*impL + nr*impR) / float64(n)
		dec := parentImp - childImp
		if dec < 0 {
			dec = 0
		}
		if dec > best {
			best = dec
			threshold = (v0 + v1) / 2
			ok = true
		}
	}
	return threshold, best, ok
}

// impurity computes the node impurity of rows under the configured
// criterion.
func (g *grower) impurity(rows []int) float64 {
	if g.cfg.nClasses > 0 {
		counts := make([]float64, g.cfg.nClasses)
		for _, r := range rows {
			counts[int(g.y[r])]++
		}
		return g.classImpurity(counts, float64(len(rows)))
	}

	var sum, sumSq float64
	for _, r := range rows {
		sum += g.y[r]
		sumSq += g.y[r] * g.y[r]
	}
	return variance(sum, sumSq, float64(len(rows)))
}

func (g *grower) classImpurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if g.cfg.criterion == CriterionEntropy {
		var ent float64
		for _, c := range counts {
			if c > 0 {
				p := c / n
				ent -= p * math.Log2(p)
			}
		}
		return ent
	}

	gini := 1.0
	for _, c := range counts {
		p := c / n
		gini -= p * p
	}
	return gini
}

// classImpurityRemainder computes the impurity of (total - left) without
// materializing the right-side counts.
func (g *grower) classImpurityRemainder(total, left []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if g.cfg.criterion == CriterionEntropy {
		var ent float64
		for c := range total {
			if r := total[c] - left[c]; r > 0 {
				p := r / n
				ent -= p * math.Log2(p)
			}
		}
		return ent
	}

	gini := 1.0
	for c := range total {
		p := (total[c] - left[c]) / n
		gini -= p * p
	}
	return gini
}

// variance is the biased sample variance from running sums, clamped at
// zero against floating-point cancellation on near-constant targets.
func variance(sum, sumSq, n float64) float64 {
	if n == 0 {
		return 0
	}
	mean := sum / n
	v := sumSq/n - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

// normalizedImportances rescales the accumulated impurity decreases so
// they sum to one. All-zero accumulators (a stump, or only zero-gain
// splits) stay all zero.
func (g *grower) normalizedImportances() []float64 {
	out := make([]float64, len(g.importances))
	var total float64
	for _, v := range g.importances {
		total += v
	}
	if total == 0 {
		return out
	}
	for i, v := range g.importances {
		out[i] = v / total
	}
	return out
}

// uniqueClasses returns the distinct values of y, ascending.
func uniqueClasses(y []float64) []float64 {
	seen := make(map[float64]bool)
	var classes []float64
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)
	return classes
}
