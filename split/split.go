// Package split partitions a dataset into train and test subsets,
// optionally stratified on a column, from a seeded random source.
package split

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
)

// Option configures Initial.
type Option func(*config)

type config struct {
	fraction float64
	stratify string
	seed     uint64
}

// WithTrainFraction は訓練側に割り当てる行の割合を指定する（デフォルト0.75）
func WithTrainFraction(f float64) Option {
	return func(c *config) { c.fraction = f }
}

// WithStratify は指定列の値ごとに独立して分割する（層化抽出）
func WithStratify(column string) Option {
	return func(c *config) { c.stratify = column }
}

// WithSeed sets the seed for the random source. The same seed always
// produces the same partition.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// Split is a train/test partition of a dataset's row indices.
// The underlying dataset is never mutated; Train and Test materialize
// fresh subsets on each call.
type Split struct {
	ds    *dataset.Dataset
	train []int
	test  []int
}

// Initial partitions ds into train and test rows.
//
// Without stratification the whole dataset is shuffled and cut at the
// configured fraction. With WithStratify the rows of each distinct value
// of the stratify column are partitioned independently and the per-stratum
// parts are unioned, so value frequencies stay close between partitions
// even for small minority classes.
func Initial(ds *dataset.Dataset, opts ...Option) (*Split, error) {
	cfg := config{fraction: 0.75, seed: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.fraction <= 0 || cfg.fraction >= 1 {
		return nil, errors.NewInvalidFractionError("split.Initial", cfg.fraction)
	}

	strata, err := strataIndices(ds, cfg.stratify, "split.Initial")
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed))

	var train, test []int
	for _, stratum := range strata {
		tr, te := partition(stratum, cfg.fraction, rng)
		train = append(train, tr...)
		test = append(test, te...)
	}
	sort.Ints(train)
	sort.Ints(test)

	logger := log.GetLoggerWithName("split")
	logger.Debug("initial split",
		log.OperationKey, log.OperationSplit,
		log.TrainFractionKey, cfg.fraction,
		log.StrataKey, len(strata),
		log.TrainRowsKey, len(train),
		log.TestRowsKey, len(test),
		log.RandomSeedKey, cfg.seed,
	)

	return &Split{ds: ds, train: train, test: test}, nil
}

// partition shuffles one stratum and cuts it at the train fraction.
// Both parts keep at least one row when the stratum has two or more;
// a singleton stratum goes whole to the larger target partition.
func partition(stratum []int, fraction float64, rng *rand.Rand) (train, test []int) {
	m := len(stratum)
	if m == 0 {
		return nil, nil
	}
	if m == 1 {
		if fraction >= 0.5 {
			return stratum, nil
		}
		return nil, stratum
	}

	shuffled := make([]int, m)
	copy(shuffled, stratum)
	rng.Shuffle(m, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nTrain := int(math.Round(fraction * float64(m)))
	if nTrain < 1 {
		nTrain = 1
	}
	if nTrain > m-1 {
		nTrain = m - 1
	}
	return shuffled[:nTrain], shuffled[nTrain:]
}

// strataIndices groups row indices by the value of the stratify column,
// in first-appearance order. An empty column name yields one stratum
// holding every row.
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

// Train materializes the training partition as a new dataset.
func (s *Split) Train() (*dataset.Dataset, error) {
	return s.ds.Subset(s.train)
}

// Test materializes the held-out partition as a new dataset.
func (s *Split) Test() (*dataset.Dataset, error) {
	return s.ds.Subset(s.test)
}

// TrainIndices returns a copy of the training row indices, ascending.
func (s *Split) TrainIndices() []int {
	out := make([]int, len(s.train))
	copy(out, s.train)
	return out
}

// TestIndices returns a copy of the held-out row indices, ascending.
func (s *Split) TestIndices() []int {
	out := make([]int, len(s.test))
	copy(out, s.test)
	return out
}

// Dataset returns the dataset the split was derived from.
func (s *Split) Dataset() *dataset.Dataset {
	return s.ds
}
