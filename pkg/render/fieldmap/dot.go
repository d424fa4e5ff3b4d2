package fieldmap

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/fieldbook/pkg/fieldbook"
)

// ToDOT renders the book as Graphviz HTML-table nodes, one per panel.
func ToDOT(book *fieldbook.Book, showNumbers bool) string {
	colors := colorMap(book)

	var buf bytes.Buffer
	buf.WriteString("digraph fieldbook {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=plaintext, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	for i, p := range buildPanels(book) {
		cells := make(map[[2]int]fieldbook.Plot, len(p.plots))
		for _, pl := range p.plots {
			cells[[2]int{pl.Row, pl.Column}] = pl
		}

		fmt.Fprintf(&buf, "  panel%d [label=<\n", i+1)
		buf.WriteString("    <TABLE BORDER=\"0\" CELLBORDER=\"1\" CELLSPACING=\"0\" CELLPADDING=\"6\">\n")
		fmt.Fprintf(&buf, "      <TR><TD COLSPAN=\"%d\" BORDER=\"0\"><B>%s</B></TD></TR>\n", p.cols, html.EscapeString(p.title))
		for row := 1; row <= p.rows; row++ {
			buf.WriteString("      <TR>")
			for col := 1; col <= p.cols; col++ {
				pl, ok := cells[[2]int{row, col}]
				if !ok {
					fmt.Fprintf(&buf, "<TD BGCOLOR=\"%s\"> </TD>", emptyFill)
					continue
				}
				label := html.EscapeString(pl.Genotype)
				if showNumbers {
					label += "<BR/>" + strconv.Itoa(pl.Number)
				}
				fmt.Fprintf(&buf, "<TD BGCOLOR=\"%s\">%s</TD>", colors[pl.Genotype], label)
			}
			buf.WriteString("</TR>\n")
		}
		buf.WriteString("    </TABLE>\n  >];\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderGraphviz lays out a DOT document with the embedded Graphviz and
// returns SVG.
func RenderGraphviz(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element with a zero-origin viewBox and
// explicit pixel size so rsvg-convert scales it predictably.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
