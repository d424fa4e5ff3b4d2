package design

import (
	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
)

// applyAlongside shifts per-block coordinates into the combined grid and
// checks that every plot stays inside its block's band without overlap.
func applyAlongside(plots []fieldbook.Plot, a Alongside, rows, cols int) error {
	if a == AlongsideNo || a == "" {
		return nil
	}

	type pos struct{ row, col int }
	taken := make(map[pos]int, len(plots))
	for i := range plots {
		p := &plots[i]
		if p.Row < 1 || p.Row > rows || p.Column < 1 || p.Column > cols {
			return errors.New(errors.ErrCodeInternal,
				"plot %d at row %d column %d lies outside the %dx%d block grid", p.Number, p.Row, p.Column, rows, cols)
		}
		switch a {
		case AlongsideRows:
			p.Column += (p.Block - 1) * cols
		case AlongsideColumns:
			p.Row += (p.Block - 1) * rows
		}
		key := pos{p.Row, p.Column}
		if other, ok := taken[key]; ok {
			return errors.New(errors.ErrCodeInternal,
				"plots %d and %d overlap at row %d column %d", other, p.Number, p.Row, p.Column)
		}
		taken[key] = p.Number
	}
	return nil
}

// Unalong returns a copy of book with per-block coordinates restored.
// Books without an alongside remap are returned as a plain copy.
func Unalong(book *fieldbook.Book) *fieldbook.Book {
	out := book.Clone()
	for i := range out.Plots {
		p := &out.Plots[i]
		switch Alongside(book.Alongside) {
		case AlongsideRows:
			p.Column -= (p.Block - 1) * book.Columns
		case AlongsideColumns:
			p.Row -= (p.Block - 1) * book.Rows
		}
	}
	out.Alongside = string(AlongsideNo)
	return out
}
