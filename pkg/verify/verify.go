// Package verify checks a field book and reports what it finds.
//
// Verification never fails: an augmented design may legitimately omit or
// repeat entries, so every finding is returned in a [Report] and the caller
// decides which ones matter. Four independent checks run on every call:
//
//  1. Completeness: every genotype exactly once per block.
//  2. Within-block collisions: two plots on the same (block, row, column).
//  3. Cross-block echoes: the same genotype on the same (row, column) in
//     more than one block, a sign of weak randomization.
//  4. Balance: distinct genotypes per row and per column over all blocks.
package verify

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/fieldbook/pkg/fieldbook"
)

// BlockProblem lists completeness findings for one block.
type BlockProblem struct {
	Block    int      `json:"block"`
	Missing  []string `json:"missing,omitempty"`
	Repeated []string `json:"repeated,omitempty"`
}

// Report is the result of Check.
type Report struct {
	Genotypes     []string         `json:"genotypes"`
	Problems      []BlockProblem   `json:"problems"`
	WithinBlock   []fieldbook.Plot `json:"within_block"`
	AcrossBlocks  []fieldbook.Plot `json:"across_blocks"`
	RowBalance    map[int]int      `json:"row_balance"`
	ColumnBalance map[int]int      `json:"column_balance"`
}

// OK reports whether every block is complete and no two plots share a
// position. Echoes and balance are informational.
func (r *Report) OK() bool {
	return len(r.Problems) == 0 && len(r.WithinBlock) == 0
}

// HasEchoes reports whether any cross-block echo was found.
func (r *Report) HasEchoes() bool { return len(r.AcrossBlocks) > 0 }

// Summary renders a one-line description.
func (r *Report) Summary() string {
	if r.OK() && !r.HasEchoes() {
		return fmt.Sprintf("%d genotypes, no problems", len(r.Genotypes))
	}
	var parts []string
	if n := len(r.Problems); n > 0 {
		parts = append(parts, fmt.Sprintf("%d incomplete blocks", n))
	}
	if n := len(r.WithinBlock); n > 0 {
		parts = append(parts, fmt.Sprintf("%d colliding plots", n))
	}
	if n := len(r.AcrossBlocks); n > 0 {
		parts = append(parts, fmt.Sprintf("%d echoed plots", n))
	}
	return strings.Join(parts, ", ")
}

// Check verifies book against its own genotype set: Book.Genotypes when set,
// otherwise the plot genotypes in order of first appearance.
func Check(book *fieldbook.Book) Report {
	genotypes := book.Genotypes
	if len(genotypes) == 0 {
		genotypes = book.DistinctGenotypes()
	}
	return CheckAgainst(book, genotypes)
}

// CheckAgainst verifies book against an explicit genotype set.
func CheckAgainst(book *fieldbook.Book, genotypes []string) Report {
	return Report{
		Genotypes:     slices.Clone(genotypes),
		Problems:      completeness(book, genotypes),
		WithinBlock:   withinBlock(book),
		AcrossBlocks:  acrossBlocks(book),
		RowBalance:    balance(book, func(p fieldbook.Plot) int { return p.Row }),
		ColumnBalance: balance(book, func(p fieldbook.Plot) int { return p.Column }),
	}
}

func completeness(book *fieldbook.Book, genotypes []string) []BlockProblem {
	var out []BlockProblem
	for _, block := range book.BlockIDs() {
		counts := make(map[string]int)
		for _, p := range book.BlockPlots(block) {
			counts[p.Genotype]++
		}
		var prob BlockProblem
		for _, g := range genotypes {
			switch n := counts[g]; {
			case n == 0:
				prob.Missing = append(prob.Missing, g)
			case n > 1:
				prob.Repeated = append(prob.Repeated, g)
			}
		}
		if len(prob.Missing) > 0 || len(prob.Repeated) > 0 {
			prob.Block = block
			out = append(out, prob)
		}
	}
	return out
}

// withinBlock returns every plot of each (block, row, column) group with more
// than one member, in book order.
func withinBlock(book *fieldbook.Book) []fieldbook.Plot {
	type key struct{ block, row, col int }
	counts := make(map[key]int)
	for _, p := range book.Plots {
		counts[key{p.Block, p.Row, p.Column}]++
	}
	var out []fieldbook.Plot
	for _, p := range book.Plots {
		if counts[key{p.Block, p.Row, p.Column}] > 1 {
			out = append(out, p)
		}
	}
	return out
}

// acrossBlocks returns plots whose (row, column, genotype) occurs in more
// than one block, sorted by row, column, genotype and block.
func acrossBlocks(book *fieldbook.Book) []fieldbook.Plot {
	type key struct {
		row, col int
		genotype string
	}
	blocks := make(map[key]map[int]bool)
	for _, p := range book.Plots {
		k := key{p.Row, p.Column, p.Genotype}
		if blocks[k] == nil {
			blocks[k] = make(map[int]bool)
		}
		blocks[k][p.Block] = true
	}
	var out []fieldbook.Plot
	for _, p := range book.Plots {
		if len(blocks[key{p.Row, p.Column, p.Genotype}]) > 1 {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b fieldbook.Plot) int {
		return cmp.Or(
			cmp.Compare(a.Row, b.Row),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.Genotype, b.Genotype),
			cmp.Compare(a.Block, b.Block),
		)
	})
	return out
}

func balance(book *fieldbook.Book, axis func(fieldbook.Plot) int) map[int]int {
	sets := make(map[int]map[string]bool)
	for _, p := range book.Plots {
		i := axis(p)
		if sets[i] == nil {
			sets[i] = make(map[string]bool)
		}
		sets[i][p.Genotype] = true
	}
	out := make(map[int]int, len(sets))
	for i, s := range sets {
		out[i] = len(s)
	}
	return out
}
