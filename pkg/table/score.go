package table

import (
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// Score column names added by ScoreTraits.
const (
	ScoreColumn     = "score"
	TraitsColumn    = "traits"
	PointsColumn    = "points"
	EvaluatedColumn = "evaluated"
)

// ScoreOptions configures ScoreTraits.
type ScoreOptions struct {
	// Traits are the graded columns, in order.
	Traits []string

	// Scales maps a trait's grades to points. Traits without an entry use
	// Default.
	Scales  map[string]map[string]float64
	Default map[string]float64
}

// ScoreTraits adds a "<trait>_score" column per trait, then score
// (sum of trait points), traits (number of graded traits), points (number
// of traits considered) and evaluated (1 when any trait was graded, else
// 0). A row with nothing graded has NA score and traits. Grades missing
// from the scale count as ungraded.
func ScoreTraits(df dataframe.DataFrame, opts ScoreOptions) (dataframe.DataFrame, error) {
	if len(opts.Traits) == 0 {
		return df, errors.New(errors.ErrCodeInvalidInput, "no trait columns")
	}
	if err := requireColumns(df, opts.Traits...); err != nil {
		return df, err
	}

	n := df.Nrow()
	sums := make([]float64, n)
	counts := make([]int, n)
	for _, trait := range opts.Traits {
		scale, ok := opts.Scales[trait]
		if !ok {
			scale = opts.Default
		}
		if len(scale) == 0 {
			return df, errors.New(errors.ErrCodeInvalidInput, "no scale for trait %q", trait)
		}

		grades := values(df.Col(trait))
		points := make([]string, n)
		for r, g := range grades {
			p, ok := scale[strings.TrimSpace(g)]
			if !ok || g == "" {
				continue
			}
			points[r] = strconv.FormatFloat(p, 'g', -1, 64)
			sums[r] += p
			counts[r]++
		}
		var err error
		if df, err = mutate(df, trait+"_score", points); err != nil {
			return df, err
		}
	}

	score := make([]string, n)
	traits := make([]string, n)
	total := make([]string, n)
	evaluated := make([]string, n)
	for r := range n {
		total[r] = strconv.Itoa(len(opts.Traits))
		evaluated[r] = "0"
		if counts[r] == 0 {
			continue
		}
		score[r] = strconv.FormatFloat(sums[r], 'g', -1, 64)
		traits[r] = strconv.Itoa(counts[r])
		evaluated[r] = "1"
	}

	for _, c := range []struct {
		name string
		vals []string
	}{
		{ScoreColumn, score},
		{TraitsColumn, traits},
		{PointsColumn, total},
		{EvaluatedColumn, evaluated},
	} {
		var err error
		if df, err = mutate(df, c.name, c.vals); err != nil {
			return df, err
		}
	}
	return df, nil
}
