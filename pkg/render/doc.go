// Package render converts rendered SVG to raster and print formats.
//
// The [fieldmap] subpackage draws a field book as a heatmap (one panel per
// block) or as a Graphviz grid; [chart] draws trial results as grouped
// stacked bar and line charts. Both produce SVG or HTML; [ToPNG] and
// [ToPDF] convert SVG using the external rsvg-convert tool (librsvg).
//
//	svg := fieldmap.RenderSVG(book)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
package render
