package table

import (
	"strings"
	"unicode"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// NormalizeName trims, folds accents, lower-cases and joins the words of a
// column name with underscores: " Peso Ñame  (g)" becomes "peso_name_(g)".
func NormalizeName(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), "_")
}

// NormalizeColumns renames every column with NormalizeName. Columns whose
// names collide are merged with FirstNonNull, in column order.
func NormalizeColumns(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	var (
		order  []string
		groups = make(map[string][]series.Series)
	)
	for _, name := range df.Names() {
		n := NormalizeName(name)
		if n == "" {
			n = name
		}
		if _, ok := groups[n]; !ok {
			order = append(order, n)
		}
		groups[n] = append(groups[n], df.Col(name))
	}

	cols := make([]series.Series, len(order))
	for i, n := range order {
		cols[i] = FirstNonNull(n, groups[n]...)
	}
	out := dataframe.New(cols...)
	if out.Err != nil {
		return out, errors.Wrap(errors.ErrCodeInternal, out.Err, "normalize columns")
	}
	return out, nil
}
