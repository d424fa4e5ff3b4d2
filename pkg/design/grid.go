package design

import (
	"math"
	"slices"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// gridSpec is the per-block grid shape.
type gridSpec struct {
	rows       int   // max capacity
	cols       int   // columns per block
	capacities []int // cells usable per column, top-down
}

func (g gridSpec) total() int {
	n := 0
	for _, c := range g.capacities {
		n += c
	}
	return n
}

// sizeGrid derives the grid of one block for ng genotypes and nb blocks.
func sizeGrid(ng, nb int, o Options) (gridSpec, error) {
	if o.VariableCapacity {
		return variableGrid(ng, nb, o.Columns, o.Capacities)
	}
	if o.Columns == 0 {
		nc := int(math.Ceil(math.Sqrt(float64(ng))))
		nr := ceilDiv(ng, nc)
		return gridSpec{rows: nr, cols: nc, capacities: repeat(nr, nc)}, nil
	}

	nc := o.Columns
	// Blocks split the columns; with fewer columns than blocks every
	// block still claims one full column.
	perBlock := max(nc/nb, 1)
	g := ceilDiv(ng, perBlock)
	caps := repeat(g, perBlock)
	if nc > perBlock {
		caps = append(caps, repeat(g-1, nc-perBlock)...)
	}
	caps = caps[:nc]
	return gridSpec{rows: g, cols: nc, capacities: caps}, nil
}

func variableGrid(ng, nb, nc int, caps []int) (gridSpec, error) {
	if len(caps) == 0 {
		return gridSpec{}, errors.New(errors.ErrCodeCapacityMismatch, "column capacities are required with variable capacity")
	}
	if nc == 0 {
		nc = len(caps)
	}
	if len(caps) != nc {
		return gridSpec{}, errors.New(errors.ErrCodeCapacityMismatch,
			"got %d column capacities for %d columns", len(caps), nc)
	}
	for i, c := range caps {
		if c < 0 {
			return gridSpec{}, errors.New(errors.ErrCodeInvalidInput, "capacity of column %d is negative (%d)", i+1, c)
		}
	}
	g := gridSpec{rows: slices.Max(caps), cols: nc, capacities: slices.Clone(caps)}
	if need := ng * nb; g.total() < need {
		return gridSpec{}, errors.New(errors.ErrCodeInsufficientCapacity,
			"total column capacity %d is less than the %d plots required", g.total(), need)
	}
	return g, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}
