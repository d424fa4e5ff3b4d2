// Package fieldbook defines the field book: the flattened, numbered list of
// plots produced by a field layout, and its JSON, CSV and XLSX encodings.
//
// A [Book] is the contract between layout generation (package design),
// verification (package verify) and rendering (package render/fieldmap).
// It carries the plots in plot-number order together with the parameters
// that produced them, so a book read back from disk can be verified and
// re-rendered without the original request.
package fieldbook

import (
	"slices"
	"time"
)

// Alongside values stored in [Book.Alongside].
const (
	AlongsideNo      = "no"
	AlongsideRows    = "rows"
	AlongsideColumns = "columns"
)

// =============================================================================
// Plot
// =============================================================================

// Plot is one numbered field plot.
//
// Row and Column are 1-based. For books generated with alongside "rows" or
// "columns" they are coordinates in the combined grid; otherwise they are
// local to the block.
type Plot struct {
	Number   int    `json:"plot" bson:"plot"`
	Block    int    `json:"block" bson:"block"`
	Row      int    `json:"row" bson:"row"`
	Column   int    `json:"column" bson:"column"`
	Genotype string `json:"genotype" bson:"genotype"`
}

// =============================================================================
// Book
// =============================================================================

// Book is an ordered field book.
type Book struct {
	ID         string    `json:"id,omitempty" bson:"id,omitempty"`
	Genotypes  []string  `json:"genotypes,omitempty" bson:"genotypes,omitempty"`
	Blocks     int       `json:"blocks" bson:"blocks"`
	Rows       int       `json:"rows,omitempty" bson:"rows,omitempty"`       // max rows per block
	Columns    int       `json:"columns,omitempty" bson:"columns,omitempty"` // columns per block
	Capacities []int     `json:"capacities,omitempty" bson:"capacities,omitempty"`
	Serpentine bool      `json:"serpentine" bson:"serpentine"`
	Alongside  string    `json:"alongside,omitempty" bson:"alongside,omitempty"`
	Seed       *uint64   `json:"seed,omitempty" bson:"seed,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero" bson:"created_at,omitempty"`
	Plots      []Plot    `json:"plots" bson:"plots"`
}

// Len returns the number of plots.
func (b *Book) Len() int { return len(b.Plots) }

// IsAlongside reports whether plot coordinates are in a combined grid.
func (b *Book) IsAlongside() bool {
	return b.Alongside == AlongsideRows || b.Alongside == AlongsideColumns
}

// BlockIDs returns the distinct block numbers in ascending order.
func (b *Book) BlockIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, p := range b.Plots {
		if !seen[p.Block] {
			seen[p.Block] = true
			ids = append(ids, p.Block)
		}
	}
	slices.Sort(ids)
	return ids
}

// BlockPlots returns the plots of one block in book order.
func (b *Book) BlockPlots(block int) []Plot {
	var out []Plot
	for _, p := range b.Plots {
		if p.Block == block {
			out = append(out, p)
		}
	}
	return out
}

// DistinctGenotypes returns the genotypes of the plots in order of first
// appearance.
func (b *Book) DistinctGenotypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range b.Plots {
		if !seen[p.Genotype] {
			seen[p.Genotype] = true
			out = append(out, p.Genotype)
		}
	}
	return out
}

// Extent returns the largest row and column used by any plot.
func (b *Book) Extent() (rows, cols int) {
	for _, p := range b.Plots {
		rows = max(rows, p.Row)
		cols = max(cols, p.Column)
	}
	return rows, cols
}

// Infer fills metadata that a tabular encoding does not carry: the block
// count, the genotype set and, for per-block coordinates, the grid extent.
func (b *Book) Infer() {
	if b.Blocks == 0 {
		b.Blocks = len(b.BlockIDs())
	}
	if len(b.Genotypes) == 0 {
		b.Genotypes = b.DistinctGenotypes()
	}
	if b.Alongside == "" {
		b.Alongside = AlongsideNo
	}
	if !b.IsAlongside() && (b.Rows == 0 || b.Columns == 0) {
		r, c := b.Extent()
		if b.Rows == 0 {
			b.Rows = r
		}
		if b.Columns == 0 {
			b.Columns = c
		}
	}
}

// SortByNumber orders plots by plot number.
func (b *Book) SortByNumber() {
	slices.SortStableFunc(b.Plots, func(x, y Plot) int { return x.Number - y.Number })
}

// Clone returns a deep copy.
func (b *Book) Clone() *Book {
	c := *b
	c.Genotypes = slices.Clone(b.Genotypes)
	c.Capacities = slices.Clone(b.Capacities)
	c.Plots = slices.Clone(b.Plots)
	if b.Seed != nil {
		s := *b.Seed
		c.Seed = &s
	}
	return &c
}
