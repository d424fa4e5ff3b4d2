// Package fieldmap draws a field book.
//
// [RenderSVG] produces a heatmap with one panel per block: each plot is a
// cell colored by its genotype and labelled with the genotype (and
// optionally the plot number). Books laid out alongside are drawn as a
// single combined panel with block boundaries outlined.
//
// [ToDOT] produces the same grid as a Graphviz HTML table, rendered to SVG
// by [RenderGraphviz] through go-graphviz. Both SVG outputs convert to PNG
// or PDF with package render.
//
// Rendering only reads book fields; it never validates the layout.
package fieldmap
