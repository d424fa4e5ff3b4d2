package fieldmap

import (
	"context"

	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/render"
)

// Visualization types.
const (
	VizHeatmap  = "heatmap"
	VizGraphviz = "graphviz"
)

// Output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
	FormatDOT = "dot"
)

// Options configures Render.
type Options struct {
	Viz         string
	ShowNumbers bool
	Scale       float64 // PNG scale
	Title       string
}

// Render produces one artifact of the book in the given format.
// DOT output is only available for the graphviz visualization.
func Render(ctx context.Context, book *fieldbook.Book, format string, opts Options) ([]byte, error) {
	if opts.Viz == "" {
		opts.Viz = VizHeatmap
	}

	var svg []byte
	switch opts.Viz {
	case VizHeatmap:
		if format == FormatDOT {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "dot output requires the graphviz visualization")
		}
		svgOpts := []SVGOption{}
		if opts.ShowNumbers {
			svgOpts = append(svgOpts, WithNumbers())
		}
		if opts.Title != "" {
			svgOpts = append(svgOpts, WithTitle(opts.Title))
		}
		svg = RenderSVG(book, svgOpts...)
	case VizGraphviz:
		dot := ToDOT(book, opts.ShowNumbers)
		if format == FormatDOT {
			return []byte(dot), nil
		}
		var err error
		if svg, err = RenderGraphviz(ctx, dot); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "graphviz")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidVizType, "unknown visualization %q (want heatmap or graphviz)", opts.Viz)
	}

	switch format {
	case FormatSVG:
		return svg, nil
	case FormatPNG:
		scale := opts.Scale
		if scale == 0 {
			scale = 2
		}
		return render.ToPNG(ctx, svg, scale)
	case FormatPDF:
		return render.ToPDF(ctx, svg)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported render format %q", format)
}
