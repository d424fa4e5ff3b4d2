package verify

import (
	"reflect"
	"testing"

	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
)

func TestCheckGeneratedLayout(t *testing.T) {
	tests := []struct {
		name string
		opts design.Options
	}{
		{"four genotypes", design.Options{Genotypes: []string{"A", "B", "C", "D"}, Blocks: 2, Columns: 2}},
		{"serpentine", design.Options{Genotypes: []string{"A", "B", "C", "D", "E", "F", "G"}, Blocks: 3, Serpentine: true}},
		{"variable", design.Options{Genotypes: []string{"A", "B", "C"}, Blocks: 2, VariableCapacity: true, Capacities: []int{2, 2, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, book, err := design.Generate(tt.opts)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			r := Check(book)
			if len(r.Problems) != 0 {
				t.Errorf("Problems = %v, want none", r.Problems)
			}
			if len(r.WithinBlock) != 0 {
				t.Errorf("WithinBlock = %v, want none", r.WithinBlock)
			}
			if !r.OK() {
				t.Error("OK() = false, want true")
			}
			for _, p := range r.AcrossBlocks {
				if p.Row < 1 || p.Column < 1 {
					t.Errorf("echo at invalid position %+v", p)
				}
			}
		})
	}
}

func TestCheckDoesNotMutate(t *testing.T) {
	_, book, err := design.Generate(design.Options{Genotypes: []string{"A", "B", "C"}, Blocks: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	before := book.Clone()
	Check(book)
	if !reflect.DeepEqual(before, book) {
		t.Error("Check mutated the book")
	}
}

func TestCompleteness(t *testing.T) {
	book := &fieldbook.Book{
		Genotypes: []string{"A", "B", "C"},
		Plots: []fieldbook.Plot{
			{Number: 1, Block: 1, Row: 1, Column: 1, Genotype: "A"},
			{Number: 2, Block: 1, Row: 2, Column: 1, Genotype: "A"},
			{Number: 3, Block: 1, Row: 3, Column: 1, Genotype: "B"},
			{Number: 4, Block: 2, Row: 1, Column: 1, Genotype: "C"},
			{Number: 5, Block: 2, Row: 2, Column: 1, Genotype: "B"},
			{Number: 6, Block: 2, Row: 3, Column: 1, Genotype: "A"},
		},
	}
	r := Check(book)
	want := []BlockProblem{{Block: 1, Missing: []string{"C"}, Repeated: []string{"A"}}}
	if !reflect.DeepEqual(r.Problems, want) {
		t.Errorf("Problems = %+v, want %+v", r.Problems, want)
	}
	if r.OK() {
		t.Error("OK() = true, want false")
	}
}

func TestCheckAgainstExplicitSet(t *testing.T) {
	book := &fieldbook.Book{Plots: []fieldbook.Plot{
		{Number: 1, Block: 1, Row: 1, Column: 1, Genotype: "A"},
		{Number: 2, Block: 2, Row: 1, Column: 1, Genotype: "B"},
	}}

	r := Check(book)
	if !reflect.DeepEqual(r.Genotypes, []string{"A", "B"}) {
		t.Errorf("Genotypes = %v, want [A B]", r.Genotypes)
	}
	want := []BlockProblem{
		{Block: 1, Missing: []string{"B"}},
		{Block: 2, Missing: []string{"A"}},
	}
	if !reflect.DeepEqual(r.Problems, want) {
		t.Errorf("Problems = %+v, want %+v", r.Problems, want)
	}

	r = CheckAgainst(book, []string{"A", "B", "X"})
	if len(r.Problems) != 2 || r.Problems[0].Missing[len(r.Problems[0].Missing)-1] != "X" {
		t.Errorf("Problems = %+v, want X missing from both blocks", r.Problems)
	}
}

func TestWithinBlockCollisions(t *testing.T) {
	book := &fieldbook.Book{Plots: []fieldbook.Plot{
		{Number: 1, Block: 1, Row: 1, Column: 1, Genotype: "A"},
		{Number: 2, Block: 1, Row: 1, Column: 1, Genotype: "B"},
		{Number: 3, Block: 1, Row: 2, Column: 1, Genotype: "C"},
		{Number: 4, Block: 2, Row: 1, Column: 1, Genotype: "A"},
	}}
	r := Check(book)
	var got []int
	for _, p := range r.WithinBlock {
		got = append(got, p.Number)
	}
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("WithinBlock plots = %v, want [1 2]", got)
	}
}

func TestAcrossBlockEchoes(t *testing.T) {
	book := &fieldbook.Book{Plots: []fieldbook.Plot{
		{Number: 1, Block: 1, Row: 2, Column: 1, Genotype: "B"},
		{Number: 2, Block: 1, Row: 1, Column: 1, Genotype: "A"},
		{Number: 3, Block: 2, Row: 1, Column: 1, Genotype: "A"},
		{Number: 4, Block: 2, Row: 2, Column: 1, Genotype: "B"},
		{Number: 5, Block: 3, Row: 2, Column: 1, Genotype: "C"},
		{Number: 6, Block: 3, Row: 1, Column: 1, Genotype: "A"},
	}}
	r := Check(book)

	want := []fieldbook.Plot{
		{Number: 2, Block: 1, Row: 1, Column: 1, Genotype: "A"},
		{Number: 3, Block: 2, Row: 1, Column: 1, Genotype: "A"},
		{Number: 6, Block: 3, Row: 1, Column: 1, Genotype: "A"},
		{Number: 1, Block: 1, Row: 2, Column: 1, Genotype: "B"},
		{Number: 4, Block: 2, Row: 2, Column: 1, Genotype: "B"},
	}
	if !reflect.DeepEqual(r.AcrossBlocks, want) {
		t.Errorf("AcrossBlocks = %+v, want %+v", r.AcrossBlocks, want)
	}
	if !r.HasEchoes() {
		t.Error("HasEchoes() = false, want true")
	}
}

func TestEchoNeedsDistinctBlocks(t *testing.T) {
	// A within-block duplicate is a collision, not an echo.
	book := &fieldbook.Book{Plots: []fieldbook.Plot{
		{Number: 1, Block: 1, Row: 1, Column: 1, Genotype: "A"},
		{Number: 2, Block: 1, Row: 1, Column: 1, Genotype: "A"},
	}}
	r := Check(book)
	if len(r.AcrossBlocks) != 0 {
		t.Errorf("AcrossBlocks = %v, want none", r.AcrossBlocks)
	}
	if len(r.WithinBlock) != 2 {
		t.Errorf("len(WithinBlock) = %d, want 2", len(r.WithinBlock))
	}
}

func TestBalance(t *testing.T) {
	book := &fieldbook.Book{Plots: []fieldbook.Plot{
		{Number: 1, Block: 1, Row: 1, Column: 1, Genotype: "A"},
		{Number: 2, Block: 1, Row: 1, Column: 2, Genotype: "B"},
		{Number: 3, Block: 2, Row: 1, Column: 1, Genotype: "B"},
		{Number: 4, Block: 2, Row: 1, Column: 2, Genotype: "B"},
		{Number: 5, Block: 2, Row: 2, Column: 1, Genotype: "C"},
	}}
	r := Check(book)
	if want := map[int]int{1: 2, 2: 1}; !reflect.DeepEqual(r.RowBalance, want) {
		t.Errorf("RowBalance = %v, want %v", r.RowBalance, want)
	}
	if want := map[int]int{1: 3, 2: 1}; !reflect.DeepEqual(r.ColumnBalance, want) {
		t.Errorf("ColumnBalance = %v, want %v", r.ColumnBalance, want)
	}
}

func TestSummary(t *testing.T) {
	ok := Report{Genotypes: []string{"A", "B"}}
	if got := ok.Summary(); got != "2 genotypes, no problems" {
		t.Errorf("Summary() = %q", got)
	}
	bad := Report{
		Problems:     []BlockProblem{{Block: 1, Missing: []string{"A"}}},
		AcrossBlocks: make([]fieldbook.Plot, 2),
	}
	if got := bad.Summary(); got != "1 incomplete blocks, 2 echoed plots" {
		t.Errorf("Summary() = %q", got)
	}
}
