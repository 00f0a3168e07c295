// CSV loading and writing. The loader is a boundary collaborator: it turns a
// serialized source into an immutable Dataset and applies no transformations
// beyond type inference and missing-value substitution.

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// missingToken is what WriteCSV emits for missing values and what ReadCSV
// treats as missing by default, together with the empty string.
const missingToken = "NA"

// ReadOption configures ReadCSV.
type ReadOption func(*readConfig)

type readConfig struct {
	kinds   map[string]Kind
	missing map[string]bool
}

// WithKind forces the kind of a column instead of inferring it.
// Forcing Numeric on a column with unparseable non-missing values is an
// error; forcing Nominal keeps the raw strings.
func WithKind(column string, kind Kind) ReadOption {
	return func(cfg *readConfig) {
		cfg.kinds[column] = kind
	}
}

// WithMissingTokens replaces the default missing-value tokens ("", "NA").
func WithMissingTokens(tokens ...string) ReadOption {
	return func(cfg *readConfig) {
		cfg.missing = make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			cfg.missing[tok] = true
		}
	}
}

// ReadCSV reads a header-prefixed CSV stream into a Dataset.
//
// Column kinds are inferred: a column whose every non-missing cell parses as
// a float64 becomes Numeric (missing cells become NaN); anything else becomes
// Nominal (missing cells become ""). A column that mixes numeric and
// non-numeric cells is read as Nominal and a DataConversionWarning is
// emitted through the warning hook.
func ReadCSV(r io.Reader, opts ...ReadOption) (*Dataset, error) {
	cfg := &readConfig{
		kinds:   make(map[string]Kind),
		missing: map[string]bool{"": true, missingToken: true},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "modelflow: ReadCSV: malformed input")
	}
	if len(records) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	header := records[0]
	rows := records[1:]

	cols := make([]Column, 0, len(header))
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			if j >= len(row) {
				return nil, errors.NewValueError("ReadCSV", fmt.Sprintf("row %d has %d fields, want %d", i+1, len(row), len(header)))
			}
			cells[i] = row[j]
		}

		col, err := buildColumn(name, cells, cfg)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	return New(cols...)
}

// ReadCSVFile reads a CSV file into a Dataset.
func ReadCSVFile(path string, opts ...ReadOption) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "modelflow: ReadCSVFile: %s", path)
	}
	defer f.Close()
	return ReadCSV(f, opts...)
}

// buildColumn converts raw cells into a typed column, honoring forced kinds
// and falling back to numeric-then-nominal inference.
func buildColumn(name string, cells []string, cfg *readConfig) (Column, error) {
	if kind, forced := cfg.kinds[name]; forced {
		if kind == Nominal {
			return nominalColumn(name, cells, cfg), nil
		}
		nums, bad := parseNumeric(cells, cfg)
		if bad >= 0 {
			return Column{}, errors.NewValueError("ReadCSV", fmt.Sprintf("column %q forced numeric but row %d holds %q", name, bad, cells[bad]))
		}
		return Column{name: name, kind: Numeric, nums: nums}, nil
	}

	nums, bad := parseNumeric(cells, cfg)
	if bad < 0 {
		return Column{name: name, kind: Numeric, nums: nums}, nil
	}

	// 数値と文字列が混在している場合は名義列として読み込み、警告を出す
	if mixedNumeric(cells, cfg) {
		errors.Warn(errors.NewDataConversionWarning(name, "numeric", "nominal",
			fmt.Sprintf("row %d holds non-numeric value %q", bad, cells[bad])))
	}
	return nominalColumn(name, cells, cfg), nil
}

// parseNumeric parses every non-missing cell as float64. It returns the
// parsed values and -1 on success, or the index of the first unparseable
// cell.
func parseNumeric(cells []string, cfg *readConfig) ([]float64, int) {
	nums := make([]float64, len(cells))
	for i, cell := range cells {
		if cfg.missing[cell] {
			nums[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, i
		}
		nums[i] = v
	}
	return nums, -1
}

// mixedNumeric reports whether at least one non-missing cell parses as a
// number. Used to decide whether falling back to nominal deserves a warning.
func mixedNumeric(cells []string, cfg *readConfig) bool {
	for _, cell := range cells {
		if cfg.missing[cell] {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			return true
		}
	}
	return false
}

func nominalColumn(name string, cells []string, cfg *readConfig) Column {
	strs := make([]string, len(cells))
	for i, cell := range cells {
		if cfg.missing[cell] {
			strs[i] = ""
			continue
		}
		strs[i] = cell
	}
	return Column{name: name, kind: Nominal, strs: strs}
}

// WriteCSV writes the Dataset as header-prefixed CSV. NaN and empty nominal
// values are written as the missing token so a round trip preserves them.
func WriteCSV(d *Dataset, w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(d.Names()); err != nil {
		return errors.Wrap(err, "modelflow: WriteCSV: header")
	}

	nrows := d.NumRows()
	record := make([]string, d.NumCols())
	for i := 0; i < nrows; i++ {
		for j, col := range d.cols {
			if col.kind == Numeric {
				v := col.nums[i]
				if math.IsNaN(v) {
					record[j] = missingToken
				} else {
					record[j] = strconv.FormatFloat(v, 'g', -1, 64)
				}
			} else {
				if col.strs[i] == "" {
					record[j] = missingToken
				} else {
					record[j] = col.strs[i]
				}
			}
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "modelflow: WriteCSV: row %d", i)
		}
	}

	writer.Flush()
	return errors.Wrap(writer.Error(), "modelflow: WriteCSV")
}

// WriteCSVFile writes the Dataset to a CSV file.
func WriteCSVFile(d *Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "modelflow: WriteCSVFile: %s", path)
	}
	defer f.Close()
	return WriteCSV(d, f)
}
