package table

import (
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// Kind selects how AddColumns combines values.
type Kind string

const (
	Number Kind = "number"
	Text   Kind = "text"
)

// AddSpec describes a derived column.
type AddSpec struct {
	Columns   []string
	Name      string
	Kind      Kind
	Separator string // Text only
	Drop      bool   // remove the input columns
}

// AddColumns derives a column from others. Number sums the cells, treating
// NA as zero; the result is NA only when every input is NA. Text joins the
// non-NA cells with Separator.
func AddColumns(df dataframe.DataFrame, spec AddSpec) (dataframe.DataFrame, error) {
	if len(spec.Columns) == 0 {
		return df, errors.New(errors.ErrCodeInvalidInput, "no columns to combine")
	}
	if strings.TrimSpace(spec.Name) == "" {
		return df, errors.New(errors.ErrCodeInvalidInput, "derived column needs a name")
	}
	if err := requireColumns(df, spec.Columns...); err != nil {
		return df, err
	}

	inputs := make([][]string, len(spec.Columns))
	for i, c := range spec.Columns {
		inputs[i] = values(df.Col(c))
	}

	out := make([]string, df.Nrow())
	for r := range out {
		switch spec.Kind {
		case Number:
			sum, seen := 0.0, false
			for i, col := range inputs {
				if col[r] == "" {
					continue
				}
				f, err := strconv.ParseFloat(strings.TrimSpace(col[r]), 64)
				if err != nil {
					return df, errors.New(errors.ErrCodeInvalidInput, "row %d: %q in column %q is not a number", r+1, col[r], spec.Columns[i])
				}
				sum += f
				seen = true
			}
			if seen {
				out[r] = strconv.FormatFloat(sum, 'g', -1, 64)
			}
		case Text:
			var parts []string
			for _, col := range inputs {
				if col[r] != "" {
					parts = append(parts, col[r])
				}
			}
			out[r] = strings.Join(parts, spec.Separator)
		default:
			return df, errors.New(errors.ErrCodeInvalidInput, "unknown column kind %q (want number or text)", spec.Kind)
		}
	}

	if spec.Drop {
		var drop []string
		for _, c := range spec.Columns {
			if c != spec.Name {
				drop = append(drop, c)
			}
		}
		if len(drop) > 0 {
			df = df.Drop(drop)
			if df.Err != nil {
				return df, errors.Wrap(errors.ErrCodeInternal, df.Err, "drop columns")
			}
		}
	}
	return mutate(df, spec.Name, out)
}

// ReplaceValues replaces cells equal to old with replacement in the given columns,
// or in every column when none are given. "" matches NA.
func ReplaceValues(df dataframe.DataFrame, old, replacement string, columns ...string) (dataframe.DataFrame, error) {
	return ProcessValues(df, ProcessOptions{Columns: columns, Replace: map[string]string{old: replacement}})
}

// ProcessOptions configures ProcessValues. Steps run in field order.
type ProcessOptions struct {
	// Columns limits Replace, EmptyToNA and Trim. Empty means all;
	// unknown names are ignored.
	Columns []string

	Replace map[string]string

	// EmptyToNA turns blank, "nan", "None" and "null" cells into NA.
	EmptyToNA bool

	// Fill sets NA cells per column.
	Fill map[string]string

	// Types converts columns. Cells that do not parse are errors.
	Types map[string]series.Type

	Trim bool

	Logger *log.Logger
}

var emptyValues = []string{"nan", "None", "none", "null", "NULL"}

// ProcessValues cleans values in one pass over the selected columns.
func ProcessValues(df dataframe.DataFrame, opts ProcessOptions) (dataframe.DataFrame, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	names := df.Names()
	columns := names
	if len(opts.Columns) > 0 {
		columns = nil
		for _, c := range opts.Columns {
			if slices.Contains(names, c) {
				columns = append(columns, c)
			} else {
				logger.Warn("column not found", "column", c)
			}
		}
	}

	for _, name := range names {
		selected := slices.Contains(columns, name)
		fill, hasFill := opts.Fill[name]
		if !selected && !hasFill {
			continue
		}

		vals := values(df.Col(name))
		for i, v := range vals {
			if selected {
				if r, ok := opts.Replace[v]; ok {
					v = r
				}
				if opts.EmptyToNA && (strings.TrimSpace(v) == "" || slices.Contains(emptyValues, v)) {
					v = ""
				}
			}
			if hasFill && v == "" {
				v = fill
			}
			if selected && opts.Trim {
				v = strings.TrimSpace(v)
			}
			vals[i] = v
		}

		var err error
		if df, err = mutate(df, name, vals); err != nil {
			return df, err
		}
	}

	for name, typ := range opts.Types {
		if !slices.Contains(names, name) {
			logger.Warn("column not found for conversion", "column", name, "type", typ)
			continue
		}
		s, err := convert(df.Col(name), typ)
		if err != nil {
			return df, err
		}
		df = df.Mutate(s)
		if df.Err != nil {
			return df, errors.Wrap(errors.ErrCodeInternal, df.Err, "convert %q", name)
		}
	}
	return df, nil
}

// convert retypes a column, failing on cells that do not parse.
func convert(s series.Series, typ series.Type) (series.Series, error) {
	vals := values(s)
	for i, v := range vals {
		if v == "" {
			vals[i] = nan
			continue
		}
		var err error
		switch typ {
		case series.Float:
			_, err = strconv.ParseFloat(v, 64)
		case series.Int:
			_, err = strconv.Atoi(v)
		case series.Bool:
			_, err = strconv.ParseBool(v)
		case series.String:
		default:
			return s, errors.New(errors.ErrCodeInvalidInput, "unsupported column type %q", typ)
		}
		if err != nil {
			return s, errors.New(errors.ErrCodeInvalidInput, "row %d: %q in column %q is not %s", i+1, v, s.Name, typ)
		}
	}
	return series.New(vals, typ, s.Name), nil
}

// ClearWhenEmpty sets target to NA on rows where every listed column is NA.
func ClearWhenEmpty(df dataframe.DataFrame, target string, columns []string) (dataframe.DataFrame, error) {
	if err := requireColumns(df, append([]string{target}, columns...)...); err != nil {
		return df, err
	}
	inputs := make([][]string, len(columns))
	for i, c := range columns {
		inputs[i] = values(df.Col(c))
	}
	vals := values(df.Col(target))
	for r := range vals {
		empty := true
		for _, col := range inputs {
			if col[r] != "" {
				empty = false
				break
			}
		}
		if empty {
			vals[r] = ""
		}
	}
	return mutate(df, target, vals)
}
