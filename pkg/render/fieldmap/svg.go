package fieldmap

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/fieldbook/pkg/fieldbook"
)

// SVGOption configures RenderSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	cell        float64
	showNumbers bool
	title       string
}

// WithNumbers adds the plot number under each genotype label.
func WithNumbers() SVGOption { return func(r *svgRenderer) { r.showNumbers = true } }

// WithCellSize sets the cell edge in pixels (default 48).
func WithCellSize(px float64) SVGOption {
	return func(r *svgRenderer) {
		if px > 0 {
			r.cell = px
		}
	}
}

// WithTitle sets the figure title (default "Field Layout").
func WithTitle(s string) SVGOption { return func(r *svgRenderer) { r.title = s } }

const (
	margin     = 40.0
	panelGap   = 32.0
	titleSpace = 44.0
	axisSpace  = 28.0
)

// panel is one drawn grid.
type panel struct {
	title      string
	rows, cols int
	plots      []fieldbook.Plot
}

// RenderSVG draws the book as a heatmap.
func RenderSVG(book *fieldbook.Book, opts ...SVGOption) []byte {
	r := svgRenderer{cell: 48, title: "Field Layout"}
	for _, opt := range opts {
		opt(&r)
	}

	panels := buildPanels(book)
	colors := colorMap(book)

	width := margin*2 + axisSpace
	height := 0.0
	for i, p := range panels {
		if i > 0 {
			width += panelGap
		}
		width += float64(p.cols) * r.cell
		height = max(height, float64(p.rows)*r.cell)
	}
	height += margin*2 + titleSpace + axisSpace*2

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="Helvetica, Arial, sans-serif">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="#FFFFFF"/>`+"\n")
	fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" font-size="20" text-anchor="middle" fill="%s">%s</text>`+"\n",
		width/2, margin, textColor, html.EscapeString(r.title))

	x := margin + axisSpace
	top := margin + titleSpace
	for i, p := range panels {
		r.renderPanel(&buf, p, x, top, colors, i == 0)
		if book.IsAlongside() {
			r.renderBlockBounds(&buf, book, x, top)
		}
		x += float64(p.cols)*r.cell + panelGap
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func buildPanels(book *fieldbook.Book) []panel {
	if book.IsAlongside() {
		rows, cols := book.Extent()
		return []panel{{title: fmt.Sprintf("Blocks 1-%d", len(book.BlockIDs())), rows: rows, cols: cols, plots: book.Plots}}
	}
	rows, cols := book.Rows, book.Columns
	if er, ec := book.Extent(); er > rows || ec > cols {
		rows, cols = max(rows, er), max(cols, ec)
	}
	var out []panel
	for _, b := range book.BlockIDs() {
		out = append(out, panel{title: fmt.Sprintf("Block %d", b), rows: rows, cols: cols, plots: book.BlockPlots(b)})
	}
	return out
}

func (r *svgRenderer) renderPanel(buf *bytes.Buffer, p panel, x, y float64, colors map[string]string, rowAxis bool) {
	w, h := float64(p.cols)*r.cell, float64(p.rows)*r.cell

	fmt.Fprintf(buf, `  <g class="panel">`+"\n")
	fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="14" text-anchor="middle" fill="%s">%s</text>`+"\n",
		x+w/2, y-10, textColor, html.EscapeString(p.title))

	for row := 0; row < p.rows; row++ {
		for col := 0; col < p.cols; col++ {
			fmt.Fprintf(buf, `    <rect class="cell" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" stroke="%s"/>`+"\n",
				x+float64(col)*r.cell, y+float64(row)*r.cell, r.cell, r.cell, emptyFill, gridStroke)
		}
	}

	for _, pl := range p.plots {
		cx := x + float64(pl.Column-1)*r.cell
		cy := y + float64(pl.Row-1)*r.cell
		fill := colors[pl.Genotype]
		fmt.Fprintf(buf, `    <rect class="plot" id="plot-%d" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" stroke="%s"/>`+"\n",
			pl.Number, cx, cy, r.cell, r.cell, fill, gridStroke)
		label := html.EscapeString(pl.Genotype)
		ty := cy + r.cell/2 + 4
		if r.showNumbers {
			ty -= 6
		}
		fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="%.0f" text-anchor="middle" fill="%s">%s</text>`+"\n",
			cx+r.cell/2, ty, r.cell/4, textOn(fill), label)
		if r.showNumbers {
			fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="%.0f" text-anchor="middle" fill="%s" opacity="0.8">%d</text>`+"\n",
				cx+r.cell/2, ty+r.cell/4, r.cell/5, textOn(fill), pl.Number)
		}
	}

	for col := 1; col <= p.cols; col++ {
		fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="11" text-anchor="middle" fill="%s">%d</text>`+"\n",
			x+(float64(col)-0.5)*r.cell, y+h+14, textColor, col)
	}
	fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="12" text-anchor="middle" fill="%s">Column</text>`+"\n",
		x+w/2, y+h+axisSpace+6, textColor)
	if rowAxis {
		for row := 1; row <= p.rows; row++ {
			fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="11" text-anchor="end" fill="%s">%d</text>`+"\n",
				x-6, y+(float64(row)-0.5)*r.cell+4, textColor, row)
		}
		fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="12" text-anchor="middle" fill="%s" transform="rotate(-90 %.1f %.1f)">Row</text>`+"\n",
			x-axisSpace, y+h/2, textColor, x-axisSpace, y+h/2)
	}
	buf.WriteString("  </g>\n")
}

// renderBlockBounds outlines each block inside a combined panel.
func (r *svgRenderer) renderBlockBounds(buf *bytes.Buffer, book *fieldbook.Book, x, y float64) {
	if book.Rows == 0 || book.Columns == 0 {
		return
	}
	for i := range book.BlockIDs() {
		bx, by := x, y
		w, h := float64(book.Columns)*r.cell, float64(book.Rows)*r.cell
		switch book.Alongside {
		case fieldbook.AlongsideRows:
			bx += float64(i) * w
		case fieldbook.AlongsideColumns:
			by += float64(i) * h
		}
		fmt.Fprintf(buf, `  <rect class="block" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
			bx, by, w, h, blockStroke)
	}
}
