package recipe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// corrFilterStep learns which columns to drop so that no retained pair of
// numeric columns has absolute Pearson correlation above the threshold.
// Only the drop set is learned; apply never recomputes correlations, so
// assessment data is filtered exactly as the training data was.
type corrFilterStep struct {
	threshold float64
	cols      []string
}

func (s *corrFilterStep) Name() string { return "corr_filter" }

func (s *corrFilterStep) Fit(ds *dataset.Dataset) (PreparedStep, error) {
	const op = "recipe.corr_filter"

	if s.threshold <= 0 || s.threshold >= 1 {
		return nil, errors.NewValueError(op, fmt.Sprintf("threshold must be in (0, 1), got %g", s.threshold))
	}

	cols, err := resolveNumericCols(ds, s.cols, op)
	if err != nil {
		return nil, err
	}

	drop := highCorrDrops(ds, cols, s.threshold)
	return &preparedCorrFilter{drop: drop}, nil
}

// highCorrDrops runs the greedy elimination: while any retained pair
// exceeds the threshold, drop the involved column whose mean absolute
// correlation to the other retained columns is highest, breaking ties
// toward the column that appears later in the configured order.
func highCorrDrops(ds *dataset.Dataset, cols []string, threshold float64) []string {
	p := len(cols)
	if p < 2 {
		return nil
	}

	values := make([][]float64, p)
	for i, name := range cols {
		col, _ := ds.Column(name)
		values[i] = col.Floats()
	}

	// 絶対相関行列。定数列とのペアはNaNになるので0として扱う
	// （相関が定義できない列をこのフィルタで落とすことはない）。
	absCorr := make([][]float64, p)
	for i := range absCorr {
		absCorr[i] = make([]float64, p)
	}
	for i := 0; i < p; i++ {
		for j := i + 1; j < p; j++ {
			r := math.Abs(stat.Correlation(values[i], values[j], nil))
			if math.IsNaN(r) {
				r = 0
			}
			absCorr[i][j] = r
			absCorr[j][i] = r
		}
	}

	retained := make([]bool, p)
	for i := range retained {
		retained[i] = true
	}
	nRetained := p

	var drop []string
	for nRetained > 1 {
		// 閾値超えペアに関与している列を候補にする
		involved := make([]bool, p)
		any := false
		for i := 0; i < p; i++ {
			if !retained[i] {
				continue
			}
			for j := i + 1; j < p; j++ {
				if retained[j] && absCorr[i][j] > threshold {
					involved[i] = true
					involved[j] = true
					any = true
				}
			}
		}
		if !any {
			break
		}

		// 候補のうち、他の保持列との平均絶対相関が最大のものを落とす。
		// 同点は設定順で後ろの列を優先して落とす（>= で後勝ち）。
		victim := -1
		worst := -1.0
		for i := 0; i < p; i++ {
			if !involved[i] {
				continue
			}
			var sum float64
			for j := 0; j < p; j++ {
				if j != i && retained[j] {
					sum += absCorr[i][j]
				}
			}
			mean := sum / float64(nRetained-1)
			if mean >= worst {
				worst = mean
				victim = i
			}
		}

		retained[victim] = false
		nRetained--
		drop = append(drop, cols[victim])
	}
	return drop
}

type preparedCorrFilter struct {
	drop []string
}

func (p *preparedCorrFilter) Name() string { return "corr_filter" }

func (p *preparedCorrFilter) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	const op = "recipe.corr_filter"

	if len(p.drop) == 0 {
		return ds, nil
	}
	for _, name := range p.drop {
		if !ds.Has(name) {
			return nil, errors.NewMissingColumnError(op, "corr_filter", name)
		}
	}
	return ds.Drop(p.drop...)
}
