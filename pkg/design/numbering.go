package design

import "github.com/matzehuels/fieldbook/pkg/fieldbook"

// traversal lists the 0-based (row, column) visiting order of a block.
//
// Linear order is column-major. Serpentine order walks rows, reversing the
// column direction on odd rows.
func traversal(rows, cols int, serpentine bool) [][2]int {
	order := make([][2]int, 0, rows*cols)
	if !serpentine {
		for c := 0; c < cols; c++ {
			for r := 0; r < rows; r++ {
				order = append(order, [2]int{r, c})
			}
		}
		return order
	}
	for r := 0; r < rows; r++ {
		for i := 0; i < cols; i++ {
			c := i
			if r%2 == 1 {
				c = cols - 1 - i
			}
			order = append(order, [2]int{r, c})
		}
	}
	return order
}

// number flattens the plan into plots. Numbers continue across blocks and
// skip empty cells, so the result is ordered and contiguous from 1.
func number(plan *Plan, serpentine bool) []fieldbook.Plot {
	order := traversal(plan.Rows, plan.Columns, serpentine)
	plots := make([]fieldbook.Plot, 0, len(plan.Blocks)*len(order))
	n := 0
	for _, k := range plan.BlockIDs() {
		grid := plan.Blocks[k]
		for _, pos := range order {
			cell := grid[pos[0]][pos[1]]
			if !cell.Filled {
				continue
			}
			n++
			plots = append(plots, fieldbook.Plot{
				Number:   n,
				Block:    k,
				Row:      pos[0] + 1,
				Column:   pos[1] + 1,
				Genotype: cell.Genotype,
			})
		}
	}
	return plots
}
