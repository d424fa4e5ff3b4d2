package design

import (
	"encoding/json"
	"slices"
)

// Cell is one position of a block grid.
type Cell struct {
	Genotype string
	Filled   bool
}

// MarshalJSON encodes an empty cell as null and a filled cell as its label.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Filled {
		return []byte("null"), nil
	}
	return json.Marshal(c.Genotype)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*c = Cell{}
		return nil
	}
	*c = Cell{Genotype: *s, Filled: true}
	return nil
}

// Grid is a rows x columns array of cells, indexed [row][column] from zero.
type Grid [][]Cell

// NewGrid returns an empty grid.
func NewGrid(rows, cols int) Grid {
	g := make(Grid, rows)
	for i := range g {
		g[i] = make([]Cell, cols)
	}
	return g
}

// Rows returns the row count.
func (g Grid) Rows() int { return len(g) }

// Columns returns the column count.
func (g Grid) Columns() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// At returns the genotype at a 1-based position.
func (g Grid) At(row, col int) (string, bool) {
	if row < 1 || row > len(g) || col < 1 || col > len(g[row-1]) {
		return "", false
	}
	c := g[row-1][col-1]
	return c.Genotype, c.Filled
}

// Filled counts the filled cells.
func (g Grid) Filled() int {
	n := 0
	for _, row := range g {
		for _, c := range row {
			if c.Filled {
				n++
			}
		}
	}
	return n
}

// Plan is the randomized arrangement of every block, keyed by 1-based block
// number. All blocks share the same extent.
type Plan struct {
	Rows       int          `json:"rows"`
	Columns    int          `json:"columns"`
	Capacities []int        `json:"capacities"`
	Blocks     map[int]Grid `json:"blocks"`
}

// BlockIDs returns block numbers in ascending order.
func (p *Plan) BlockIDs() []int {
	ids := make([]int, 0, len(p.Blocks))
	for k := range p.Blocks {
		ids = append(ids, k)
	}
	slices.Sort(ids)
	return ids
}

// Combined lays the blocks out in one grid: side by side for
// AlongsideRows, stacked for AlongsideColumns. AlongsideNo returns nil.
func (p *Plan) Combined(a Alongside) Grid {
	nb := len(p.Blocks)
	switch a {
	case AlongsideRows:
		out := NewGrid(p.Rows, p.Columns*nb)
		for i, k := range p.BlockIDs() {
			for r, row := range p.Blocks[k] {
				copy(out[r][i*p.Columns:], row)
			}
		}
		return out
	case AlongsideColumns:
		out := NewGrid(p.Rows*nb, p.Columns)
		for i, k := range p.BlockIDs() {
			for r, row := range p.Blocks[k] {
				copy(out[i*p.Rows+r], row)
			}
		}
		return out
	}
	return nil
}
