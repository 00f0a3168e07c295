// Package resample builds v-fold cross-validation plans over a dataset.
// A FoldSet assigns every row to exactly one held-out fold; the training
// side of fold i is everything outside it. Accessors materialize fresh
// copies on every call, so a FoldSet can be iterated repeatedly and
// shared across goroutines during a tuning run.
package resample

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
)

// Option configures VFolds.
type Option func(*config)

type config struct {
	stratify string
	seed     uint64
}

// WithStratify は指定列の値ごとに独立して折りを割り当てる
// 各折りのクラス比率が全体の比率に近くなる。
func WithStratify(column string) Option {
	return func(c *config) { c.stratify = column }
}

// WithSeed sets the seed for the random source. The same seed always
// produces the same fold assignment.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// FoldSet is a complete v-fold assignment over a dataset. Fold i's
// held-out rows appear in no other fold, and every row is held out
// exactly once across the set.
type FoldSet struct {
	ds      *dataset.Dataset
	heldOut [][]int
}

// VFolds partitions ds into k folds. Each stratum (the whole dataset
// when unstratified) is shuffled once and dealt into k contiguous
// chunks, the first len%k chunks taking one extra row, so fold sizes
// never differ by more than one row per stratum.
func VFolds(ds *dataset.Dataset, k int, opts ...Option) (*FoldSet, error) {
	cfg := config{seed: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	if k < 2 {
		return nil, errors.NewValidationError("k", "must be at least 2", k)
	}
	if k > ds.NumRows() {
		return nil, errors.NewValidationError("k", fmt.Sprintf("cannot exceed the %d rows available", ds.NumRows()), k)
	}

	strata, err := strataIndices(ds, cfg.stratify, "resample.VFolds")
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed))

	heldOut := make([][]int, k)
	for _, stratum := range strata {
		shuffled := make([]int, len(stratum))
		copy(shuffled, stratum)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		base := len(shuffled) / k
		rem := len(shuffled) % k
		start := 0
		for f := 0; f < k; f++ {
			size := base
			if f < rem {
				size++
			}
			heldOut[f] = append(heldOut[f], shuffled[start:start+size]...)
			start += size
		}
	}
	for _, fold := range heldOut {
		sort.Ints(fold)
	}

	logger := log.GetLoggerWithName("resample")
	logger.Debug("v-fold plan",
		log.OperationKey, log.OperationResample,
		log.FoldCountKey, k,
		log.StrataKey, len(strata),
		log.SamplesKey, ds.NumRows(),
		log.RandomSeedKey, cfg.seed,
	)

	return &FoldSet{ds: ds, heldOut: heldOut}, nil
}

// strataIndices groups rows for fold assignment. An empty column name
// yields a single stratum holding every row.
func strataIndices(ds *dataset.Dataset, stratify, op string) ([][]int, error) {
	if stratify == "" {
		all := make([]int, ds.NumRows())
		for i := range all {
			all[i] = i
		}
		return [][]int{all}, nil
	}

	strata, err := ds.GroupIndices(stratify)
	if err != nil {
		return nil, errors.NewUnknownColumnError(op, stratify)
	}
	return strata, nil
}

// Len returns the number of folds.
func (f *FoldSet) Len() int { return len(f.heldOut) }

// Dataset returns the dataset the folds were derived from.
func (f *FoldSet) Dataset() *dataset.Dataset { return f.ds }

func (f *FoldSet) checkIndex(i int) error {
	if i < 0 || i >= len(f.heldOut) {
		return errors.NewValueError("resample.FoldSet", fmt.Sprintf("fold index %d out of range [0, %d)", i, len(f.heldOut)))
	}
	return nil
}

// HeldOutIndices returns a copy of fold i's held-out row indices,
// ascending.
func (f *FoldSet) HeldOutIndices(i int) ([]int, error) {
	if err := f.checkIndex(i); err != nil {
		return nil, err
	}
	out := make([]int, len(f.heldOut[i]))
	copy(out, f.heldOut[i])
	return out, nil
}

// TrainIndices returns a copy of the row indices outside fold i,
// ascending.
func (f *FoldSet) TrainIndices(i int) ([]int, error) {
	if err := f.checkIndex(i); err != nil {
		return nil, err
	}
	held := make(map[int]bool, len(f.heldOut[i]))
	for _, r := range f.heldOut[i] {
		held[r] = true
	}
	train := make([]int, 0, f.ds.NumRows()-len(f.heldOut[i]))
	for r := 0; r < f.ds.NumRows(); r++ {
		if !held[r] {
			train = append(train, r)
		}
	}
	return train, nil
}

// HeldOut materializes fold i's held-out rows as a new dataset.
func (f *FoldSet) HeldOut(i int) (*dataset.Dataset, error) {
	rows, err := f.HeldOutIndices(i)
	if err != nil {
		return nil, err
	}
	return f.ds.Subset(rows)
}

// Train materializes fold i's training rows as a new dataset.
func (f *FoldSet) Train(i int) (*dataset.Dataset, error) {
	rows, err := f.TrainIndices(i)
	if err != nil {
		return nil, err
	}
	return f.ds.Subset(rows)
}
