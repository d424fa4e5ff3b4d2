package fieldbook

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

func sampleBook() *Book {
	seed := uint64(7)
	return &Book{
		Genotypes:  []string{"A", "B", "C"},
		Blocks:     2,
		Rows:       2,
		Columns:    2,
		Serpentine: true,
		Alongside:  AlongsideNo,
		Seed:       &seed,
		Plots: []Plot{
			{1, 1, 1, 1, "B"}, {2, 1, 1, 2, "A"}, {3, 1, 2, 2, "C"},
			{4, 2, 1, 1, "C"}, {5, 2, 1, 2, "B"}, {6, 2, 2, 2, "A"},
		},
	}
}

func TestBookHelpers(t *testing.T) {
	b := sampleBook()

	if got := b.BlockIDs(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("BlockIDs() = %v, want [1 2]", got)
	}
	if got := len(b.BlockPlots(2)); got != 3 {
		t.Errorf("len(BlockPlots(2)) = %d, want 3", got)
	}
	if got := b.DistinctGenotypes(); !reflect.DeepEqual(got, []string{"B", "A", "C"}) {
		t.Errorf("DistinctGenotypes() = %v, want [B A C]", got)
	}
	rows, cols := b.Extent()
	if rows != 2 || cols != 2 {
		t.Errorf("Extent() = %d, %d, want 2, 2", rows, cols)
	}
}

func TestClone(t *testing.T) {
	b := sampleBook()
	c := b.Clone()
	c.Plots[0].Genotype = "Z"
	*c.Seed = 99

	if b.Plots[0].Genotype != "B" {
		t.Error("Clone shares plots with the original")
	}
	if *b.Seed != 7 {
		t.Error("Clone shares seed with the original")
	}
}

func TestInfer(t *testing.T) {
	b := &Book{Plots: sampleBook().Plots}
	b.Infer()

	if b.Blocks != 2 {
		t.Errorf("Blocks = %d, want 2", b.Blocks)
	}
	if !reflect.DeepEqual(b.Genotypes, []string{"B", "A", "C"}) {
		t.Errorf("Genotypes = %v", b.Genotypes)
	}
	if b.Rows != 2 || b.Columns != 2 {
		t.Errorf("Rows, Columns = %d, %d, want 2, 2", b.Rows, b.Columns)
	}
	if b.Alongside != AlongsideNo {
		t.Errorf("Alongside = %q, want %q", b.Alongside, AlongsideNo)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"book.json", FormatJSON, false},
		{"out/Book.CSV", FormatCSV, false},
		{"trial.xlsx", FormatXLSX, false},
		{"trial.xls", "", true},
		{"book", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatFromPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"book.json", "book.csv", "book.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteFile(sampleBook(), path); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if !reflect.DeepEqual(got.Plots, sampleBook().Plots) {
				t.Errorf("Plots = %v, want %v", got.Plots, sampleBook().Plots)
			}
			if got.Blocks != 2 {
				t.Errorf("Blocks = %d, want 2", got.Blocks)
			}
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("ReadFile() error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}
}

func TestReadCSVAliasesAndOrder(t *testing.T) {
	in := "Genotype,Rep,Col,Row,Plot_Number,notes\n" +
		"B,1,2,1,2,x\n" +
		"A,1,1,1,1,\n" +
		",,,,,\n"
	b, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	want := []Plot{{1, 1, 1, 1, "A"}, {2, 1, 1, 2, "B"}}
	if !reflect.DeepEqual(b.Plots, want) {
		t.Errorf("Plots = %v, want %v", b.Plots, want)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code errors.Code
	}{
		{"header only", "plot,block,row,column,genotype\n", errors.ErrCodeInvalidInput},
		{"missing column", "plot,block,row,genotype\n1,1,1,A\n", errors.ErrCodeInvalidColumn},
		{"bad number", "plot,block,row,column,genotype\nx,1,1,1,A\n", errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			if !errors.Is(err, tt.code) {
				t.Errorf("ReadCSV() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestUnmarshalRejectsEmpty(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"blocks": 2, "plots": []}`)); err == nil {
		t.Error("Unmarshal() of empty book succeeded, want error")
	}
	if _, err := Unmarshal([]byte(`{`)); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Unmarshal() error = %v, want %s", err, errors.ErrCodeInvalidFormat)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleBook(), "parquet"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Encode() error = %v, want %s", err, errors.ErrCodeInvalidFormat)
	}
}
