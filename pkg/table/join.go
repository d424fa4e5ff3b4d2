package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// Decoder turns raw CSV bytes into text.
type Decoder func([]byte) (string, error)

// DecodeUTF8 accepts valid UTF-8 only and drops a leading byte order mark.
func DecodeUTF8(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.New(errors.ErrCodeInvalidInput, "not valid UTF-8")
	}
	return strings.TrimPrefix(string(b), "\ufeff"), nil
}

// DecodeLatin1 decodes ISO-8859-1. Every byte sequence is valid.
func DecodeLatin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "latin-1")
	}
	return string(out), nil
}

// DefaultDecoders tries UTF-8, then Latin-1.
var DefaultDecoders = []Decoder{DecodeUTF8, DecodeLatin1}

// JoinOptions configures JoinFiles.
type JoinOptions struct {
	// Extensions to read, lower-case with the dot. Default .csv and .xlsx.
	Extensions []string

	// Decoders are tried in order on each CSV file.
	Decoders []Decoder

	// DateColumn, when set, receives the date parsed from each file name
	// as RFC 3339. Files without a date are errors.
	DateColumn string
	Location   *time.Location

	// SuffixColumn, when set, receives each file's base name without
	// extension.
	SuffixColumn string

	// StopOnError aborts on the first unreadable file instead of logging
	// and skipping it.
	StopOnError bool

	Logger *log.Logger
}

func (o *JoinOptions) setDefaults() {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".csv", ".xlsx"}
	}
	if len(o.Decoders) == 0 {
		o.Decoders = DefaultDecoders
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// JoinFiles reads every matching file in dir, in name order, and stacks
// them into one table. Column names are normalized per file; the result
// has the union of all columns in first-seen order.
func JoinFiles(ctx context.Context, dir string, opts JoinOptions) (dataframe.DataFrame, error) {
	opts.setDefaults()
	logger := opts.Logger

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return dataframe.DataFrame{}, errors.New(errors.ErrCodeInvalidPath, "%s is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && slices.Contains(opts.Extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return dataframe.DataFrame{}, errors.New(errors.ErrCodeNotFound, "no %s files in %s", strings.Join(opts.Extensions, " or "), dir)
	}

	var (
		header []string
		index  = make(map[string]int)
		rows   []map[string]string
		read   int
	)
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return dataframe.DataFrame{}, err
		}
		path := filepath.Join(dir, name)

		part, err := readPart(path, name, opts)
		if err != nil {
			if opts.StopOnError {
				return dataframe.DataFrame{}, err
			}
			logger.Error("skipping file", "file", name, "err", err)
			continue
		}
		if part == nil {
			logger.Warn("skipping empty file", "file", name)
			continue
		}

		for _, h := range part[0] {
			if _, ok := index[h]; !ok {
				index[h] = len(header)
				header = append(header, h)
			}
		}
		for _, rec := range part[1:] {
			row := make(map[string]string, len(rec))
			for i, v := range rec {
				row[part[0][i]] = v
			}
			rows = append(rows, row)
		}
		read++
	}

	logger.Infof("read %d of %d files", read, len(files))
	if read == 0 {
		return dataframe.DataFrame{}, errors.New(errors.ErrCodeInvalidInput, "none of the %d files in %s could be read", len(files), dir)
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for _, row := range rows {
		rec := make([]string, len(header))
		for i, h := range header {
			rec[i] = row[h]
		}
		records = append(records, rec)
	}
	return Load(records)
}

// readPart reads one file into normalized records with the extra columns
// applied. It returns nil for an empty file.
func readPart(path, name string, opts JoinOptions) ([][]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "stat %s", name)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	var date string
	if opts.DateColumn != "" {
		t, err := DateFromName(name, opts.Location)
		if err != nil {
			return nil, err
		}
		date = t.Format(time.RFC3339)
	}

	records, err := readRecords(path, opts.Decoders)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	records = pad(records)
	for i, h := range records[0] {
		records[0][i] = NormalizeName(h)
	}
	records = mergeDuplicates(records)

	suffix := strings.TrimSuffix(name, filepath.Ext(name))
	if opts.DateColumn != "" {
		records = withConstant(records, opts.DateColumn, date)
	}
	if opts.SuffixColumn != "" {
		records = withConstant(records, opts.SuffixColumn, suffix)
	}
	return records, nil
}

func withConstant(records [][]string, name, value string) [][]string {
	i := slices.Index(records[0], name)
	if i < 0 {
		for r := range records {
			records[r] = append(records[r], value)
		}
		records[0][len(records[0])-1] = name
		return records
	}
	for r := 1; r < len(records); r++ {
		records[r][i] = value
	}
	return records
}

// readRecords reads a .csv or .xlsx file into raw records.
func readRecords(path string, decoders []Decoder) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		text, err := decode(raw, decoders)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s", filepath.Base(path))
		}
		r := csv.NewReader(strings.NewReader(text))
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", filepath.Base(path))
		}
		return records, nil
	case ".xlsx":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		f, err := excelize.OpenReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", filepath.Base(path))
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read sheet %s", sheets[0])
		}
		return rows, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported table extension %q", filepath.Ext(path))
}

func decode(raw []byte, decoders []Decoder) (string, error) {
	var last error
	for _, d := range decoders {
		text, err := d(raw)
		if err == nil {
			return text, nil
		}
		last = err
	}
	if last == nil {
		last = errors.New(errors.ErrCodeInvalidInput, "no decoders configured")
	}
	return "", last
}

var (
	dateTimeRe = regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}(?:[-_\s]\d{2}:\d{2}:\d{2})?`)
	compactRe  = regexp.MustCompile(`\d{8}`)
	julianRe   = regexp.MustCompile(`\d{4}[-/]\d{3}`)
)

// DateFromName extracts a date from a file name. Patterns are tried in
// order: YYYY-MM-DD with an optional HH:MM:SS, YYYYMMDD, then YYYY-DDD
// (day of year). The result is in loc.
func DateFromName(name string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if m := dateTimeRe.FindString(name); m != "" {
		s := strings.ReplaceAll(m, "/", "-")
		layout := "2006-01-02"
		if len(s) > len(layout) {
			s = s[:10] + " " + s[11:]
			layout = "2006-01-02 15:04:05"
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if m := compactRe.FindString(name); m != "" {
		if t, err := time.ParseInLocation("20060102", m, loc); err == nil {
			return t, nil
		}
	}
	if m := julianRe.FindString(name); m != "" {
		year, _ := strconv.Atoi(m[:4])
		day, _ := strconv.Atoi(m[5:])
		start := time.Date(year, 1, 1, 0, 0, 0, 0, loc)
		if t := start.AddDate(0, 0, day-1); day >= 1 && t.Year() == year {
			return t, nil
		}
	}
	return time.Time{}, errors.New(errors.ErrCodeInvalidInput, "no valid date in file name %q", name)
}
