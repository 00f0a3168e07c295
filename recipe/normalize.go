package recipe

import (
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// normalizeStep はfit時に列ごとの平均と標本標準偏差を学習し、
// applyで (v-mean)/sd に標準化するステップ。
type normalizeStep struct {
	cols []string
}

func (s *normalizeStep) Name() string { return "normalize" }

func (s *normalizeStep) Fit(ds *dataset.Dataset) (PreparedStep, error) {
	const op = "recipe.normalize"

	cols, err := resolveNumericCols(ds, s.cols, op)
	if err != nil {
		return nil, err
	}

	means := make([]float64, len(cols))
	sds := make([]float64, len(cols))
	for i, name := range cols {
		col, err := ds.Column(name)
		if err != nil {
			return nil, errors.NewUnknownColumnError(op, name)
		}
		mean, sd := stat.MeanStdDev(col.Floats(), nil)
		// 標準偏差0はゼロ除算になるのでfitで弾く。
		// 1行しかない場合のNaNも同様に定数列として扱う。
		if !(sd > 0) {
			return nil, errors.NewZeroVarianceError(op, name)
		}
		means[i] = mean
		sds[i] = sd
	}

	return &preparedNormalize{cols: cols, means: means, sds: sds}, nil
}

type preparedNormalize struct {
	cols  []string
	means []float64
	sds   []float64
}

func (p *preparedNormalize) Name() string { return "normalize" }

func (p *preparedNormalize) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	const op = "recipe.normalize"

	current := ds
	for i, name := range p.cols {
		vals, err := numericValues(current, name, "normalize", op)
		if err != nil {
			return nil, err
		}
		mean, sd := p.means[i], p.sds[i]
		for j, v := range vals {
			vals[j] = (v - mean) / sd
		}
		next, err := current.WithColumn(dataset.NewNumeric(name, vals))
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}
