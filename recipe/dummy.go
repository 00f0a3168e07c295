package recipe

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/modelflow/dataset"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// dummyStep one-hot encodes nominal columns. Fit enumerates the observed
// levels of each column, sorted, and freezes them; the first level is the
// reference and gets no indicator. Apply emits one 0/1 column per
// non-reference level in place of the source column. A category never
// seen at fit time encodes as all zeros, the same row the reference
// level produces, so prediction-time data with new categories still
// flows through.
type dummyStep struct {
	cols    []string
	all     bool
	exclude []string
}

func (s *dummyStep) Name() string { return "dummy" }

func (s *dummyStep) Fit(ds *dataset.Dataset) (PreparedStep, error) {
	const op = "recipe.dummy"

	cols, err := s.resolveCols(ds, op)
	if err != nil {
		return nil, err
	}

	levels := make([][]string, len(cols))
	for i, name := range cols {
		col, err := ds.Column(name)
		if err != nil {
			return nil, errors.NewUnknownColumnError(op, name)
		}
		seen := make(map[string]bool)
		var lv []string
		for _, v := range col.Strings() {
			if !seen[v] {
				seen[v] = true
				lv = append(lv, v)
			}
		}
		sort.Strings(lv)
		levels[i] = lv
	}

	return &preparedDummy{cols: cols, levels: levels}, nil
}

// resolveCols determines the columns to encode. DummyAll resolves at fit
// time to every nominal column except the excluded outcomes; explicitly
// named columns must exist and be nominal.
func (s *dummyStep) resolveCols(ds *dataset.Dataset, op string) ([]string, error) {
	if s.all {
		excluded := make(map[string]bool, len(s.exclude))
		for _, name := range s.exclude {
			excluded[name] = true
		}
		var cols []string
		for _, name := range ds.NominalNames() {
			if !excluded[name] {
				cols = append(cols, name)
			}
		}
		return cols, nil
	}

	if len(s.cols) == 0 {
		return ds.NominalNames(), nil
	}

	out := make([]string, len(s.cols))
	for i, name := range s.cols {
		col, err := ds.Column(name)
		if err != nil {
			return nil, errors.NewUnknownColumnError(op, name)
		}
		if col.Kind() != dataset.Nominal {
			return nil, errors.NewValueError(op, fmt.Sprintf("column %q is not nominal", name))
		}
		out[i] = name
	}
	return out, nil
}

type preparedDummy struct {
	cols   []string
	levels [][]string
}

func (p *preparedDummy) Name() string { return "dummy" }

func (p *preparedDummy) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	const op = "recipe.dummy"

	if len(p.cols) == 0 {
		return ds, nil
	}

	pos := make(map[string]int, len(p.cols))
	for i, name := range p.cols {
		col, err := ds.Column(name)
		if err != nil {
			return nil, errors.NewMissingColumnError(op, "dummy", name)
		}
		if col.Kind() != dataset.Nominal {
			return nil, errors.NewValueError(op, fmt.Sprintf("column %q is not nominal", name))
		}
		pos[name] = i
	}

	// 元の列位置にインジケータ列を差し込む
	out := make([]dataset.Column, 0, ds.NumCols())
	for _, name := range ds.Names() {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		i, isSource := pos[name]
		if !isSource {
			out = append(out, col)
			continue
		}

		strs := col.Strings()
		for _, level := range p.levels[i][1:] {
			vals := make([]float64, len(strs))
			for r, s := range strs {
				if s == level {
					vals[r] = 1
				}
			}
			out = append(out, dataset.NewNumeric(name+"_"+level, vals))
		}
	}

	if len(out) == 0 {
		return nil, errors.NewValueError(op, "encoding removed every column")
	}
	return dataset.New(out...)
}
