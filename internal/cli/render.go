package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/pipeline"
)

// renderCommand creates the render command for drawing field maps.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formats string
		output  string
	)
	opts := pipeline.Options{}
	opts.SetDefaults()

	cmd := &cobra.Command{
		Use:   "render [book]",
		Short: "Draw the field map of a field book",
		Long: `Draw the field map of a field book (json, csv or xlsx).

The heatmap style colors each plot by genotype, one panel per block, or a
single panel when blocks are laid out alongside. The graphviz style draws
the same grid through Graphviz and can also emit the DOT source.

PNG and PDF output require rsvg-convert on the PATH.`,
		Example: `  fieldbook render trial.csv -f svg,png --numbers
  fieldbook render trial.json --viz graphviz -f dot,svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(formats)
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0]))
			}
			return c.runRender(cmd.Context(), args[0], opts, output)
		},
	}

	cmd.Flags().StringVarP(&formats, "format", "f", pipeline.FormatSVG, "output formats: svg, png, pdf, dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path without extension (default: input path)")
	cmd.Flags().StringVar(&opts.Viz, "viz", opts.Viz, "field map style: heatmap, graphviz")
	cmd.Flags().BoolVar(&opts.ShowNumbers, "numbers", false, "show plot numbers")
	cmd.Flags().Float64Var(&opts.Scale, "scale", opts.Scale, "PNG scale factor")
	cmd.Flags().StringVar(&opts.Title, "title", "", "field map title")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string) error {
	book, err := fieldbook.ReadFile(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner()
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	spinner := newSpinner(ctx, os.Stderr, pipeline.StageRender, strings.Join(opts.Formats, ", "))
	spinner.Start()
	artifacts, cached, err := runner.RenderWithCacheInfo(ctx, book, opts)
	if err != nil {
		spinner.Fail()
		return err
	}
	spinner.Stop()

	printSuccess("Rendered %d plots", book.Len())
	if err := writeArtifacts(output, artifacts); err != nil {
		return err
	}
	printStats(book, cached)
	return nil
}
