package recipe

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// logStep は対数変換ステップ。学習するパラメータはなく、
// fitでは対象列の解決と底の検証だけを行う。
type logStep struct {
	base   float64
	offset float64
	cols   []string
}

func (s *logStep) Name() string {
	if s.offset != 0 {
		return "log_offset"
	}
	return "log"
}

func (s *logStep) Fit(ds *dataset.Dataset) (PreparedStep, error) {
	op := "recipe." + s.Name()
	if s.base <= 0 || s.base == 1 {
		return nil, errors.NewValueError(op, fmt.Sprintf("invalid log base %g", s.base))
	}

	cols, err := resolveNumericCols(ds, s.cols, op)
	if err != nil {
		return nil, err
	}

	return &preparedLog{
		name:   s.Name(),
		base:   s.base,
		offset: s.offset,
		cols:   cols,
	}, nil
}

type preparedLog struct {
	name   string
	base   float64
	offset float64
	cols   []string
}

func (p *preparedLog) Name() string { return p.name }

// Apply は各対象列を log_base(v+offset) に置き換える
// v+offset が0以下の行があれば NonPositiveValueError で中断する。
func (p *preparedLog) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	op := "recipe." + p.name
	logBase := math.Log(p.base)

	current := ds
	for _, name := range p.cols {
		vals, err := numericValues(current, name, p.name, op)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			shifted := v + p.offset
			if shifted <= 0 {
				return nil, errors.NewNonPositiveValueError(op, name, i, v)
			}
			vals[i] = math.Log(shifted) / logBase
		}
		next, err := current.WithColumn(dataset.NewNumeric(name, vals))
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// resolveNumericCols は対象列を確定する。明示指定があればその存在と
// 数値型を検証し、指定がなければfit時点の全数値列を返す。
func resolveNumericCols(ds *dataset.Dataset, cols []string, op string) ([]string, error) {
	if len(cols) == 0 {
		numeric := ds.NumericNames()
		if len(numeric) == 0 {
			return nil, errors.NewValueError(op, "dataset has no numeric columns")
		}
		return numeric, nil
	}

	out := make([]string, len(cols))
	for i, name := range cols {
		col, err := ds.Column(name)
		if err != nil {
			return nil, errors.NewUnknownColumnError(op, name)
		}
		if col.Kind() != dataset.Numeric {
			return nil, errors.NewValueError(op, fmt.Sprintf("column %q is not numeric", name))
		}
		out[i] = name
	}
	return out, nil
}

// numericValues は適用先データセットから数値列の値を取り出す。
// 列が無ければ MissingColumnError、数値でなければ ValueError。
func numericValues(ds *dataset.Dataset, name, step, op string) ([]float64, error) {
	col, err := ds.Column(name)
	if err != nil {
		return nil, errors.NewMissingColumnError(op, step, name)
	}
	if col.Kind() != dataset.Numeric {
		return nil, errors.NewValueError(op, fmt.Sprintf("column %q is not numeric", name))
	}
	return col.Floats(), nil
}
