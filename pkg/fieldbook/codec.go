package fieldbook

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// Supported encodings.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// SheetName is the worksheet written by the XLSX encoding.
const SheetName = "fieldbook"

// Header is the column order of the tabular encodings.
var Header = []string{"plot", "block", "row", "column", "genotype"}

// headerAliases maps accepted tabular header names to Header positions.
var headerAliases = map[string]int{
	"plot": 0, "plot_number": 0, "number": 0, "plot_id": 0,
	"block": 1, "rep": 1, "replicate": 1,
	"row":    2,
	"column": 3, "col": 3,
	"genotype": 4, "entry": 4, "treatment": 4,
}

// FormatFromPath derives the encoding from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported field book file %q (want .json, .csv or .xlsx)", path)
}

// =============================================================================
// JSON
// =============================================================================

// Marshal serializes a Book to pretty-printed JSON bytes.
func Marshal(b *Book) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// Unmarshal deserializes JSON bytes into a Book.
func Unmarshal(data []byte) (*Book, error) {
	var b Book
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "unmarshal field book")
	}
	if len(b.Plots) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "field book must contain plots")
	}
	b.Infer()
	return &b, nil
}

// =============================================================================
// Tabular encodings
// =============================================================================

// Records returns the book as a header row followed by one row per plot.
func Records(b *Book) [][]string {
	out := make([][]string, 0, len(b.Plots)+1)
	out = append(out, append([]string(nil), Header...))
	for _, p := range b.Plots {
		out = append(out, []string{
			strconv.Itoa(p.Number),
			strconv.Itoa(p.Block),
			strconv.Itoa(p.Row),
			strconv.Itoa(p.Column),
			p.Genotype,
		})
	}
	return out
}

// FromRecords parses a header row and plot rows. Header names are matched
// case-insensitively; extra columns are ignored.
func FromRecords(records [][]string) (*Book, error) {
	if len(records) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "field book must contain a header and at least one plot")
	}

	idx := [5]int{-1, -1, -1, -1, -1}
	for i, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if pos, ok := headerAliases[key]; ok && idx[pos] < 0 {
			idx[pos] = i
		}
	}
	for pos, i := range idx {
		if i < 0 {
			return nil, errors.New(errors.ErrCodeInvalidColumn, "field book is missing column %q", Header[pos])
		}
	}

	b := &Book{Plots: make([]Plot, 0, len(records)-1)}
	for line, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		var nums [4]int
		for pos := 0; pos < 4; pos++ {
			cell := cellAt(rec, idx[pos])
			n, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d: column %q", line+2, Header[pos])
			}
			nums[pos] = n
		}
		b.Plots = append(b.Plots, Plot{
			Number:   nums[0],
			Block:    nums[1],
			Row:      nums[2],
			Column:   nums[3],
			Genotype: strings.TrimSpace(cellAt(rec, idx[4])),
		})
	}
	if len(b.Plots) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "field book must contain plots")
	}
	b.SortByNumber()
	b.Infer()
	return b, nil
}

func cellAt(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes the book as CSV.
func WriteCSV(w io.Writer, b *Book) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Records(b)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV reads a book from CSV.
func ReadCSV(r io.Reader) (*Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read csv")
	}
	return FromRecords(records)
}

// WriteXLSX writes the book as a single-sheet workbook.
func WriteXLSX(w io.Writer, b *Book) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	for i, rec := range Records(b) {
		row := make([]any, len(rec))
		for j, v := range rec {
			if i > 0 && j < 4 {
				n, _ := strconv.Atoi(v)
				row[j] = n
				continue
			}
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}
	return f.Write(w)
}

// ReadXLSX reads a book from the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (*Book, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "open xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read sheet %s", sheets[0])
	}
	return FromRecords(rows)
}

// =============================================================================
// Files
// =============================================================================

// Encode writes the book in the given format.
func Encode(w io.Writer, b *Book, format string) error {
	switch format {
	case FormatJSON:
		data, err := Marshal(b)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatCSV:
		return WriteCSV(w, b)
	case FormatXLSX:
		return WriteXLSX(w, b)
	}
	return errors.New(errors.ErrCodeInvalidFormat, "unsupported field book format %q", format)
}

// Decode reads a book in the given format.
func Decode(r io.Reader, format string) (*Book, error) {
	switch format {
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return Unmarshal(data)
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported field book format %q", format)
}

// Bytes encodes the book in the given format.
func Bytes(b *Book, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, b, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes a Book to path, choosing the encoding from the extension.
func WriteFile(b *Book, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Bytes(b, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a Book from path, choosing the encoding from the extension.
func ReadFile(path string) (*Book, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, format)
}
