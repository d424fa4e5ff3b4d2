package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// NAValues are the cell texts read as missing.
var NAValues = []string{"", "NA", "NaN", "nan", "<nil>"}

// nan is gota's marker for a missing string element.
const nan = "NaN"

// Load builds a frame from records whose first row is the header. Short
// rows are padded with NA and columns with the same name are merged,
// keeping the first non-NA value per row.
func Load(records [][]string) (dataframe.DataFrame, error) {
	if len(records) == 0 {
		return dataframe.DataFrame{}, errors.New(errors.ErrCodeInvalidInput, "table has no header row")
	}
	records = mergeDuplicates(pad(records))
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
		dataframe.NaNValues(NAValues),
	)
	if df.Err != nil {
		return df, errors.Wrap(errors.ErrCodeInvalidInput, df.Err, "load table")
	}
	return df, nil
}

// Records returns the header and rows, writing NA as "".
func Records(df dataframe.DataFrame) [][]string {
	names := df.Names()
	cols := make([][]string, len(names))
	for i, name := range names {
		cols[i] = values(df.Col(name))
	}
	out := make([][]string, 0, df.Nrow()+1)
	out = append(out, slices.Clone(names))
	for r := 0; r < df.Nrow(); r++ {
		row := make([]string, len(names))
		for c := range names {
			row[c] = cols[c][r]
		}
		out = append(out, row)
	}
	return out
}

// values returns the cells of a series with NA as "".
func values(s series.Series) []string {
	out := s.Records()
	if s.Type() == series.Float {
		for i, f := range s.Float() {
			out[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	for i, na := range s.IsNaN() {
		if na {
			out[i] = ""
		}
	}
	return out
}

// column builds a string series, reading "" as NA.
func column(name string, vals []string) series.Series {
	cells := make([]string, len(vals))
	for i, v := range vals {
		if v == "" {
			v = nan
		}
		cells[i] = v
	}
	return series.New(cells, series.String, name)
}

// mutate replaces or appends a column.
func mutate(df dataframe.DataFrame, name string, vals []string) (dataframe.DataFrame, error) {
	out := df.Mutate(column(name, vals))
	if out.Err != nil {
		return out, errors.Wrap(errors.ErrCodeInternal, out.Err, "set column %q", name)
	}
	return out, nil
}

// requireColumns fails with INVALID_COLUMN for the first absent name.
func requireColumns(df dataframe.DataFrame, cols ...string) error {
	names := df.Names()
	for _, c := range cols {
		if !slices.Contains(names, c) {
			return errors.New(errors.ErrCodeInvalidColumn, "column %q not found", c)
		}
	}
	return nil
}

// FirstNonNull merges columns cell by cell, taking the first non-NA value.
func FirstNonNull(name string, cols ...series.Series) series.Series {
	if len(cols) == 0 {
		return column(name, nil)
	}
	merged := values(cols[0])
	for _, c := range cols[1:] {
		for i, v := range values(c) {
			if merged[i] == "" {
				merged[i] = v
			}
		}
	}
	return column(name, merged)
}

func pad(records [][]string) [][]string {
	width := 0
	for _, r := range records {
		width = max(width, len(r))
	}
	out := make([][]string, len(records))
	for i, r := range records {
		if len(r) < width {
			r = append(slices.Clone(r), make([]string, width-len(r))...)
		}
		out[i] = r
	}
	return out
}

// mergeDuplicates collapses same-named columns into the first one.
// Blank header cells are named after their position.
func mergeDuplicates(records [][]string) [][]string {
	header := records[0]
	first := make(map[string]int, len(header))
	var names []string
	target := make([]int, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("unnamed_%d", i+1)
		}
		if j, ok := first[h]; ok {
			target[i] = j
			continue
		}
		first[h] = len(names)
		target[i] = len(names)
		names = append(names, h)
	}
	if len(names) == len(header) && slices.Equal(names, header) {
		return records
	}

	out := make([][]string, len(records))
	out[0] = names
	for r, rec := range records[1:] {
		row := make([]string, len(names))
		for i, v := range rec {
			if row[target[i]] == "" || slices.Contains(NAValues, row[target[i]]) {
				if !slices.Contains(NAValues, v) {
					row[target[i]] = v
				}
			}
		}
		out[r+1] = row
	}
	return out
}

// ReadFile loads a .csv or .xlsx table. CSV bytes are decoded with the
// default decoders.
func ReadFile(path string) (dataframe.DataFrame, error) {
	records, err := readRecords(path, DefaultDecoders)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return Load(records)
}

// WriteFile saves the table as .csv or .xlsx by extension.
func WriteFile(df dataframe.DataFrame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = WriteCSV(f, df)
	case ".xlsx":
		err = WriteXLSX(f, df)
	default:
		err = errors.New(errors.ErrCodeInvalidFormat, "unsupported table extension %q (want .csv or .xlsx)", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes the table with a header row.
func WriteCSV(w io.Writer, df dataframe.DataFrame) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Records(df)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write csv")
	}
	return nil
}

// sheet is the sheet name used for exported tables.
const sheet = "data"

// WriteXLSX writes the table as a single-sheet workbook.
func WriteXLSX(w io.Writer, df dataframe.DataFrame) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "xlsx sheet")
	}
	for i, rec := range Records(df) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "xlsx cell")
		}
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "xlsx row %d", i+1)
		}
	}
	if err := f.Write(w); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write xlsx")
	}
	return nil
}
