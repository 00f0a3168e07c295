// Package dataset provides the immutable, column-oriented table that flows
// through every pipeline stage. Columns are typed (numeric or nominal) and
// datasets are immutable by API: every operation returns a new Dataset and
// accessors return copies, so splits, folds, and transformation steps can
// share one underlying table across goroutines without locking.
package dataset

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelflow/core/parallel"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// Kind identifies the type of values a column holds.
type Kind int

const (
	// Numeric columns hold float64 values.
	Numeric Kind = iota
	// Nominal columns hold string category values.
	Nominal
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Nominal:
		return "nominal"
	default:
		return "unknown"
	}
}

// Column is an immutable named vector of values. Columns are created through
// NewNumeric and NewNominal, which copy their input, so a Column can never
// observe later mutation of the caller's slice.
type Column struct {
	name string
	kind Kind
	nums []float64
	strs []string
}

// NewNumeric creates a numeric column. The values slice is copied.
func NewNumeric(name string, values []float64) Column {
	nums := make([]float64, len(values))
	copy(nums, values)
	return Column{name: name, kind: Numeric, nums: nums}
}

// NewNominal creates a nominal column. The values slice is copied.
func NewNominal(name string, values []string) Column {
	strs := make([]string, len(values))
	copy(strs, values)
	return Column{name: name, kind: Nominal, strs: strs}
}

// Name returns the column name.
func (c Column) Name() string { return c.name }

// Kind returns the column kind.
func (c Column) Kind() Kind { return c.kind }

// Len returns the number of values in the column.
func (c Column) Len() int {
	if c.kind == Numeric {
		return len(c.nums)
	}
	return len(c.strs)
}

// Floats returns a copy of the numeric values, or nil for nominal columns.
func (c Column) Floats() []float64 {
	if c.kind != Numeric {
		return nil
	}
	out := make([]float64, len(c.nums))
	copy(out, c.nums)
	return out
}

// Strings returns a copy of the nominal values, or nil for numeric columns.
func (c Column) Strings() []string {
	if c.kind != Nominal {
		return nil
	}
	out := make([]string, len(c.strs))
	copy(out, c.strs)
	return out
}

// subset gathers the given rows into a new column.
func (c Column) subset(rows []int) Column {
	if c.kind == Numeric {
		nums := make([]float64, len(rows))
		for i, r := range rows {
			nums[i] = c.nums[r]
		}
		return Column{name: c.name, kind: Numeric, nums: nums}
	}
	strs := make([]string, len(rows))
	for i, r := range rows {
		strs[i] = c.strs[r]
	}
	return Column{name: c.name, kind: Nominal, strs: strs}
}

// Dataset is an ordered collection of equal-length columns.
type Dataset struct {
	cols  []Column
	index map[string]int
}

// New creates a Dataset from the given columns. All columns must have the
// same length and distinct names.
func New(cols ...Column) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, errors.NewValueError("Dataset.New", "at least one column is required")
	}

	nrows := cols[0].Len()
	index := make(map[string]int, len(cols))
	for i, col := range cols {
		if col.name == "" {
			return nil, errors.NewValueError("Dataset.New", fmt.Sprintf("column %d has an empty name", i))
		}
		if _, dup := index[col.name]; dup {
			return nil, errors.NewValueError("Dataset.New", fmt.Sprintf("duplicate column %q", col.name))
		}
		if col.Len() != nrows {
			return nil, errors.NewDimensionError("Dataset.New", nrows, col.Len(), 0)
		}
		index[col.name] = i
	}

	owned := make([]Column, len(cols))
	copy(owned, cols)
	return &Dataset{cols: owned, index: index}, nil
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int {
	if len(d.cols) == 0 {
		return 0
	}
	return d.cols[0].Len()
}

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.cols) }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.cols))
	for i, col := range d.cols {
		names[i] = col.name
	}
	return names
}

// Has reports whether a column with the given name exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns the named column.
func (d *Dataset) Column(name string) (Column, error) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, errors.NewUnknownColumnError("Dataset.Column", name)
	}
	return d.cols[i], nil
}

// NumericNames returns the names of all numeric columns in order.
func (d *Dataset) NumericNames() []string {
	var names []string
	for _, col := range d.cols {
		if col.kind == Numeric {
			names = append(names, col.name)
		}
	}
	return names
}

// NominalNames returns the names of all nominal columns in order.
func (d *Dataset) NominalNames() []string {
	var names []string
	for _, col := range d.cols {
		if col.kind == Nominal {
			names = append(names, col.name)
		}
	}
	return names
}

// Select returns a new Dataset containing only the named columns, in the
// given order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	if len(names) == 0 {
		return nil, errors.NewValueError("Dataset.Select", "at least one column is required")
	}
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		i, ok := d.index[name]
		if !ok {
			return nil, errors.NewUnknownColumnError("Dataset.Select", name)
		}
		cols = append(cols, d.cols[i])
	}
	return New(cols...)
}

// Drop returns a new Dataset without the named columns. Dropping a column
// that does not exist is an error; dropping every column is an error.
func (d *Dataset) Drop(names ...string) (*Dataset, error) {
	dropped := make(map[string]bool, len(names))
	for _, name := range names {
		if !d.Has(name) {
			return nil, errors.NewUnknownColumnError("Dataset.Drop", name)
		}
		dropped[name] = true
	}
	var kept []Column
	for _, col := range d.cols {
		if !dropped[col.name] {
			kept = append(kept, col)
		}
	}
	if len(kept) == 0 {
		return nil, errors.NewValueError("Dataset.Drop", "cannot drop every column")
	}
	return New(kept...)
}

// Subset returns a new Dataset containing the given rows, in the given
// order. Row indices may repeat (bootstrap sampling relies on this).
func (d *Dataset) Subset(rows []int) (*Dataset, error) {
	nrows := d.NumRows()
	for _, r := range rows {
		if r < 0 || r >= nrows {
			return nil, errors.NewValueError("Dataset.Subset", fmt.Sprintf("row index %d out of range [0, %d)", r, nrows))
		}
	}
	cols := make([]Column, len(d.cols))
	for i, col := range d.cols {
		cols[i] = col.subset(rows)
	}
	return New(cols...)
}

// WithColumn returns a new Dataset with the column replaced in place when a
// column of the same name exists, or appended otherwise.
func (d *Dataset) WithColumn(col Column) (*Dataset, error) {
	if col.Len() != d.NumRows() {
		return nil, errors.NewDimensionError("Dataset.WithColumn", d.NumRows(), col.Len(), 0)
	}
	cols := make([]Column, len(d.cols))
	copy(cols, d.cols)
	if i, ok := d.index[col.name]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return New(cols...)
}

// Bind returns a new Dataset with other's columns appended after d's.
// Row counts must match and column names must be disjoint.
func (d *Dataset) Bind(other *Dataset) (*Dataset, error) {
	if other.NumRows() != d.NumRows() {
		return nil, errors.NewDimensionError("Dataset.Bind", d.NumRows(), other.NumRows(), 0)
	}
	cols := make([]Column, 0, len(d.cols)+len(other.cols))
	cols = append(cols, d.cols...)
	for _, col := range other.cols {
		if d.Has(col.name) {
			return nil, errors.NewValueError("Dataset.Bind", fmt.Sprintf("column %q exists on both sides", col.name))
		}
		cols = append(cols, col)
	}
	return New(cols...)
}

// Matrix materializes the named numeric columns as a row-major design
// matrix. With no names given, every numeric column is used in dataset
// order. Nominal columns must be encoded before they can enter a matrix.
func (d *Dataset) Matrix(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		names = d.NumericNames()
	}
	if len(names) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	cols := make([]Column, len(names))
	for j, name := range names {
		i, ok := d.index[name]
		if !ok {
			return nil, errors.NewUnknownColumnError("Dataset.Matrix", name)
		}
		if d.cols[i].kind != Numeric {
			return nil, errors.NewValueError("Dataset.Matrix", fmt.Sprintf("column %q is nominal; encode it before building a design matrix", name))
		}
		cols[j] = d.cols[i]
	}

	nrows := d.NumRows()
	out := mat.NewDense(nrows, len(cols), nil)
	// 大きなデータセットでは行方向に並列化する
	parallel.ParallelizeWithThreshold(nrows, 10000, func(start, end int) {
		for i := start; i < end; i++ {
			for j, col := range cols {
				out.Set(i, j, col.nums[i])
			}
		}
	})
	return out, nil
}

// GroupIndices returns the row indices grouped by the value of the named
// column, groups ordered by first appearance. Numeric values are keyed by
// their shortest exact decimal form. Stratified splitting and resampling
// are built on this.
func (d *Dataset) GroupIndices(column string) ([][]int, error) {
	col, err := d.Column(column)
	if err != nil {
		return nil, err
	}

	n := d.NumRows()
	keys := make([]string, n)
	switch col.kind {
	case Nominal:
		copy(keys, col.strs)
	default:
		for i, v := range col.nums {
			keys[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	}

	slot := make(map[string]int)
	var groups [][]int
	for i, key := range keys {
		j, ok := slot[key]
		if !ok {
			j = len(groups)
			slot[key] = j
			groups = append(groups, nil)
		}
		groups[j] = append(groups[j], i)
	}
	return groups, nil
}

// DropMissing returns a new Dataset without rows that contain a missing
// value: NaN in a numeric column or an empty string in a nominal column.
// When no rows are missing the receiver is returned unchanged.
func (d *Dataset) DropMissing() *Dataset {
	var keep []int
	nrows := d.NumRows()
rows:
	for i := 0; i < nrows; i++ {
		for _, col := range d.cols {
			if col.kind == Numeric && math.IsNaN(col.nums[i]) {
				continue rows
			}
			if col.kind == Nominal && col.strs[i] == "" {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	if len(keep) == nrows {
		return d
	}
	out, err := d.Subset(keep)
	if err != nil {
		// Subset of in-range indices cannot fail
		return d
	}
	return out
}
