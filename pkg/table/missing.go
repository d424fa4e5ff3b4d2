package table

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"github.com/charmbracelet/log"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// Missing-data modes.
const (
	ModeDetect = "detect"
	ModeFill   = "fill"
)

// Fill methods.
const (
	MethodMode   = "mode"
	MethodMean   = "mean"
	MethodMedian = "median"
)

// MissingOptions configures HandleMissing.
type MissingOptions struct {
	Mode   string // detect (default) or fill
	Method string // mode (default), mean or median

	Code     string   // identifies the evaluated entity
	Week     string   // identifies the evaluation
	Measures []string // columns checked for NA
	Info     []string // extra columns in the detect report

	Logger *log.Logger
}

// MissingResult is the outcome of HandleMissing.
type MissingResult struct {
	// Table is the detect report or the filled table.
	Table dataframe.DataFrame

	// Partial counts rows with some, but not all, measures missing.
	Partial int

	// Filled counts rows changed by fill.
	Filled int
}

// HandleMissing looks at rows where some but not all measures are NA.
// Rows missing every measure are left alone.
//
// In detect mode the result lists those rows with their info, code and
// week columns plus missing_columns (comma separated) and missing_count.
// In fill mode each missing cell takes the mode, mean or median of the
// same code's values in other weeks, when there are any.
func HandleMissing(df dataframe.DataFrame, opts MissingOptions) (MissingResult, error) {
	if opts.Mode == "" {
		opts.Mode = ModeDetect
	}
	if opts.Method == "" {
		opts.Method = MethodMode
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	if opts.Mode != ModeDetect && opts.Mode != ModeFill {
		return MissingResult{}, errors.New(errors.ErrCodeInvalidInput, "invalid mode %q (want detect or fill)", opts.Mode)
	}
	if !slices.Contains([]string{MethodMode, MethodMean, MethodMedian}, opts.Method) {
		return MissingResult{}, errors.New(errors.ErrCodeInvalidInput, "invalid method %q (want mode, mean or median)", opts.Method)
	}
	if len(opts.Measures) == 0 {
		return MissingResult{}, errors.New(errors.ErrCodeInvalidInput, "no measure columns")
	}
	required := append([]string{opts.Code, opts.Week}, opts.Measures...)
	if err := requireColumns(df, append(required, opts.Info...)...); err != nil {
		return MissingResult{}, err
	}

	codes := values(df.Col(opts.Code))
	weeks := values(df.Col(opts.Week))
	measures := make([][]string, len(opts.Measures))
	for i, m := range opts.Measures {
		measures[i] = values(df.Col(m))
	}

	var partial []int
	for r := 0; r < df.Nrow(); r++ {
		n := missingCount(measures, r)
		if n > 0 && n < len(measures) {
			partial = append(partial, r)
		}
	}

	if opts.Mode == ModeDetect {
		table, err := missingReport(df, opts, measures, partial)
		return MissingResult{Table: table, Partial: len(partial)}, err
	}

	filled := make([][]string, len(measures))
	for i := range measures {
		filled[i] = slices.Clone(measures[i])
	}
	changed := 0
	for _, r := range partial {
		rowChanged := false
		for m, col := range measures {
			if col[r] != "" {
				continue
			}
			var pool []string
			for o := range col {
				if codes[o] == codes[r] && weeks[o] != weeks[r] && col[o] != "" {
					pool = append(pool, col[o])
				}
			}
			if len(pool) == 0 {
				continue
			}
			v, err := summarize(pool, opts.Method)
			if err != nil {
				logger.Warn("cannot fill", "column", opts.Measures[m], "code", codes[r], "err", err)
				continue
			}
			filled[m][r] = v
			rowChanged = true
			logger.Debug("filled", "column", opts.Measures[m], "code", codes[r], "week", weeks[r], "value", v)
		}
		if rowChanged {
			changed++
		}
	}
	logger.Info("fill complete", "rows", changed, "method", opts.Method)

	out := df
	for i, m := range opts.Measures {
		var err error
		if out, err = mutate(out, m, filled[i]); err != nil {
			return MissingResult{}, err
		}
	}
	return MissingResult{Table: out, Partial: len(partial), Filled: changed}, nil
}

func missingCount(measures [][]string, r int) int {
	n := 0
	for _, col := range measures {
		if strings.TrimSpace(col[r]) == "" {
			n++
		}
	}
	return n
}

func missingReport(df dataframe.DataFrame, opts MissingOptions, measures [][]string, rows []int) (dataframe.DataFrame, error) {
	cols := append(slices.Clone(opts.Info), opts.Code, opts.Week)
	var out []series.Series
	for _, c := range cols {
		all := values(df.Col(c))
		vals := make([]string, len(rows))
		for i, r := range rows {
			vals[i] = all[r]
		}
		out = append(out, column(c, vals))
	}

	missingCols := make([]string, len(rows))
	counts := make([]string, len(rows))
	for i, r := range rows {
		var names []string
		for m, col := range measures {
			if strings.TrimSpace(col[r]) == "" {
				names = append(names, opts.Measures[m])
			}
		}
		missingCols[i] = strings.Join(names, ",")
		counts[i] = strconv.Itoa(len(names))
	}
	out = append(out, column("missing_columns", missingCols), column("missing_count", counts))

	report := dataframe.New(out...)
	if report.Err != nil {
		return report, errors.Wrap(errors.ErrCodeInternal, report.Err, "missing report")
	}
	return report, nil
}

// summarize reduces a pool of values. Mode ties go to the smallest value.
func summarize(pool []string, method string) (string, error) {
	if method == MethodMode {
		counts := make(map[string]int)
		for _, v := range pool {
			counts[v]++
		}
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, func(a, b string) int {
			if c := cmp.Compare(counts[b], counts[a]); c != 0 {
				return c
			}
			return compareValues(a, b)
		})
		return keys[0], nil
	}

	xs := make([]float64, len(pool))
	for i, v := range pool {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return "", errors.New(errors.ErrCodeInvalidInput, "%q is not a number", v)
		}
		xs[i] = f
	}
	var f float64
	if method == MethodMean {
		f = stats.Mean(xs)
	} else {
		s := stats.Sample{Xs: xs}
		s.Sort()
		f = s.Quantile(0.5)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

// compareValues orders numerically when both values are numbers.
func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(fa, fb)
	}
	return cmp.Compare(a, b)
}
