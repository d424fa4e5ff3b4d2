// Package outlier flags and removes rows whose measurements sit far from
// the rest of their column.
//
// Two rules are available. IQR flags values outside
// [Q1 - k*IQR, Q3 + k*IQR] (k defaults to 3). ZScore flags values whose
// distance from the mean exceeds a threshold in sample standard
// deviations (default 3). Quartiles follow the Hyndman-Fan type 8
// definition used by go-moremath.
//
// A row is an outlier when its flagged columns satisfy the match rule:
// all columns, any column, or a strict majority. Cells that are NA or not
// numeric never flag and do not enter the column statistics.
package outlier

import (
	"math"
	"slices"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"github.com/charmbracelet/log"
	"github.com/go-gota/gota/dataframe"

	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/table"
)

// Method selects the per-column rule.
type Method string

const (
	IQR    Method = "iqr"
	ZScore Method = "zscore"
)

// Match selects how column flags combine into a row flag.
type Match string

const (
	All      Match = "all"
	Any      Match = "any"
	Majority Match = "majority"
)

// Options configures Flag and Clean.
type Options struct {
	Columns []string
	Method  Method  // default IQR
	K       float64 // IQR multiplier, default 3
	Limit   float64 // z-score threshold, default 3
	Match   Match   // default All

	Logger *log.Logger
}

func (o *Options) validate(df dataframe.DataFrame) error {
	o.Method = Method(strings.ToLower(string(o.Method)))
	o.Match = Match(strings.ToLower(string(o.Match)))
	if o.Method == "" {
		o.Method = IQR
	}
	if o.Match == "" {
		o.Match = All
	}
	if o.K == 0 {
		o.K = 3
	}
	if o.Limit == 0 {
		o.Limit = 3
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}

	if len(o.Columns) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "no columns to check")
	}
	names := df.Names()
	for _, c := range o.Columns {
		if !slices.Contains(names, c) {
			return errors.New(errors.ErrCodeInvalidColumn, "column %q not found", c)
		}
	}
	if err := errors.ValidateEnum(errors.ErrCodeInvalidInput, "method", string(o.Method), string(IQR), string(ZScore)); err != nil {
		return err
	}
	if err := errors.ValidateEnum(errors.ErrCodeInvalidInput, "match", string(o.Match), string(All), string(Any), string(Majority)); err != nil {
		return err
	}
	if o.K < 0 || o.Limit < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "outlier limits must be positive")
	}
	return nil
}

// Flag returns the indices of outlier rows in ascending order.
func Flag(df dataframe.DataFrame, opts Options) ([]int, error) {
	if err := opts.validate(df); err != nil {
		return nil, err
	}

	hits := make([]int, df.Nrow())
	for _, c := range opts.Columns {
		flagged := flagColumn(df.Col(c).Float(), opts)
		for _, r := range flagged {
			hits[r]++
		}
		opts.Logger.Info("column outliers", "column", c, "count", len(flagged))
	}

	var rows []int
	for r, n := range hits {
		if matches(n, len(opts.Columns), opts.Match) {
			rows = append(rows, r)
		}
	}
	opts.Logger.Info("outlier rows", "match", opts.Match, "count", len(rows))
	return rows, nil
}

// Clean returns the table without the outlier rows, and those rows'
// indices in the input.
func Clean(df dataframe.DataFrame, opts Options) (dataframe.DataFrame, []int, error) {
	rows, err := Flag(df, opts)
	if err != nil {
		return df, nil, err
	}
	if len(rows) == 0 {
		return df, nil, nil
	}

	var keep []int
	for r := 0; r < df.Nrow(); r++ {
		if _, found := slices.BinarySearch(rows, r); !found {
			keep = append(keep, r)
		}
	}
	if len(keep) == 0 {
		empty, err := table.Load(table.Records(df)[:1])
		return empty, rows, err
	}
	out := df.Subset(keep)
	if out.Err != nil {
		return df, nil, errors.Wrap(errors.ErrCodeInternal, out.Err, "drop outliers")
	}
	return out, rows, nil
}

func matches(hits, columns int, m Match) bool {
	switch m {
	case Any:
		return hits > 0
	case Majority:
		return float64(hits) > float64(columns)/2
	}
	return hits == columns
}

// flagColumn returns the flagged row indices of one column.
func flagColumn(xs []float64, opts Options) []int {
	var valid []float64
	for _, x := range xs {
		if !math.IsNaN(x) {
			valid = append(valid, x)
		}
	}
	if len(valid) < 2 {
		return nil
	}

	var lo, hi float64
	switch opts.Method {
	case ZScore:
		mean, sd := stats.Mean(valid), stats.StdDev(valid)
		if sd == 0 {
			return nil
		}
		lo, hi = mean-opts.Limit*sd, mean+opts.Limit*sd
	default:
		s := stats.Sample{Xs: valid}
		s.Sort()
		q1, q3 := s.Quantile(0.25), s.Quantile(0.75)
		iqr := q3 - q1
		lo, hi = q1-opts.K*iqr, q3+opts.K*iqr
	}

	var out []int
	for r, x := range xs {
		if !math.IsNaN(x) && (x < lo || x > hi) {
			out = append(out, r)
		}
	}
	return out
}
