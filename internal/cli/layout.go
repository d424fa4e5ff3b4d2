package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/internal/config"
	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/pipeline"
	"github.com/matzehuels/fieldbook/pkg/table"
)

// layoutFlags are the layout command's flags before they are merged with a
// trial file.
type layoutFlags struct {
	config        string
	genotypes     []string
	genotypesFile string
	blocks        int
	columns       int
	serpentine    string
	alongside     string
	seed          uint64
	variable      bool
	capacities    []int

	formats string
	output  string
	viz     string
	numbers bool
	title   string
}

// layoutCommand creates the layout command for generating a field layout.
func (c *CLI) layoutCommand() *cobra.Command {
	var f layoutFlags

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Generate a randomized block layout",
		Long: `Generate a randomized complete block layout.

Every genotype is placed once per block at a random position of the block
grid. Plots are numbered <block><index>, following a serpentine path when
requested. Settings come from flags or from a trial file (--config); flags
given explicitly override the file.

The field book is written as json, csv or xlsx and the field map as svg,
png, pdf or dot, depending on --format.

Layouts with a fixed --seed are cached locally.`,
		Example: `  fieldbook layout -g A,B,C,D -b 2 --columns 2 --seed 42
  fieldbook layout --config trial.toml -f csv,svg -o trial`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.pipelineOptions(cmd)
			if err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), opts, f.output)
		},
	}

	cmd.Flags().StringVarP(&f.config, "config", "c", "", "trial file (TOML)")
	cmd.Flags().StringSliceVarP(&f.genotypes, "genotypes", "g", nil, "genotypes, comma separated")
	cmd.Flags().StringVar(&f.genotypesFile, "genotypes-file", "", "csv or xlsx file listing genotypes (genotype column or first column)")
	cmd.Flags().IntVarP(&f.blocks, "blocks", "b", 2, "number of blocks")
	cmd.Flags().IntVar(&f.columns, "columns", 0, "columns per block (default: square-ish)")
	cmd.Flags().StringVar(&f.serpentine, "serpentine", "no", "serpentine numbering: yes or no")
	cmd.Flags().StringVar(&f.alongside, "alongside", "no", "place blocks alongside: no, rows, columns")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed (default: random)")
	cmd.Flags().BoolVar(&f.variable, "variable-capacity", false, "columns hold different numbers of plots")
	cmd.Flags().IntSliceVar(&f.capacities, "capacities", nil, "plots per column with --variable-capacity")

	cmd.Flags().StringVarP(&f.formats, "format", "f", "json,svg", "outputs: json, csv, xlsx, svg, png, pdf, dot")
	cmd.Flags().StringVarP(&f.output, "output", "o", "fieldbook", "output path without extension")
	cmd.Flags().StringVar(&f.viz, "viz", pipeline.DefaultViz, "field map style: heatmap, graphviz")
	cmd.Flags().BoolVar(&f.numbers, "numbers", false, "show plot numbers on the field map")
	cmd.Flags().StringVar(&f.title, "title", "", "field map title")

	return cmd
}

// pipelineOptions merges the trial file, when given, with the flags set on
// the command line.
func (f *layoutFlags) pipelineOptions(cmd *cobra.Command) (pipeline.Options, error) {
	var (
		opts   pipeline.Options
		output config.Output
	)
	if f.config != "" {
		trial, err := config.LoadTrial(f.config)
		if err != nil {
			return opts, err
		}
		if opts.Design, err = trial.DesignOptions(); err != nil {
			return opts, err
		}
		output = trial.Output
	} else {
		opts.Design.Blocks = f.blocks
	}

	changed := func(name string) bool {
		return f.config == "" || cmd.Flags().Changed(name)
	}
	d := &opts.Design
	if cmd.Flags().Changed("genotypes") {
		d.Genotypes = f.genotypes
	}
	if f.genotypesFile != "" {
		names, err := readGenotypes(f.genotypesFile)
		if err != nil {
			return opts, err
		}
		d.Genotypes = names
	}
	if cmd.Flags().Changed("blocks") {
		d.Blocks = f.blocks
	}
	if changed("columns") {
		d.Columns = f.columns
	}
	if changed("serpentine") {
		s, err := design.ParseSerpentine(f.serpentine)
		if err != nil {
			return opts, err
		}
		d.Serpentine = s
	}
	if changed("alongside") {
		a, err := design.ParseAlongside(f.alongside)
		if err != nil {
			return opts, err
		}
		d.Alongside = a
	}
	if cmd.Flags().Changed("seed") {
		seed := f.seed
		d.Seed = &seed
	}
	if changed("variable-capacity") {
		d.VariableCapacity = f.variable
	}
	if changed("capacities") {
		d.Capacities = f.capacities
	}

	opts.Formats = output.Formats
	if len(opts.Formats) == 0 || cmd.Flags().Changed("format") {
		opts.Formats = parseFormats(f.formats)
	}
	if output.Path != "" && !cmd.Flags().Changed("output") {
		f.output = output.Path
	}
	opts.Viz = output.Viz
	if opts.Viz == "" || cmd.Flags().Changed("viz") {
		opts.Viz = f.viz
	}
	opts.ShowNumbers = output.ShowNumbers || f.numbers
	opts.Title = f.title
	return opts, nil
}

// readGenotypes reads the genotype column of a table file, or its first
// column when there is none.
func readGenotypes(path string) ([]string, error) {
	df, err := table.ReadFile(path)
	if err != nil {
		return nil, err
	}
	df, err = table.NormalizeColumns(df)
	if err != nil {
		return nil, err
	}
	names := df.Names()
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidGenotypes, "%s has no columns", path)
	}
	col := names[0]
	if slices.Contains(names, "genotype") {
		col = "genotype"
	}
	var out []string
	for _, rec := range table.Records(df.Select(col))[1:] {
		if g := strings.TrimSpace(rec[0]); g != "" {
			out = append(out, g)
		}
	}
	return out, nil
}

// runLayout generates the layout, writes every requested output and prints
// the verification summary.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string) error {
	books, renders := splitFormats(opts.Formats)
	opts.Formats = renders
	opts.Logger = c.Logger

	runner, err := c.newRunner()
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, os.Stderr, pipeline.StageGenerate, "")
	opts.Progress = spinner.Advance
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.Fail()
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	printSuccess("Layout complete")
	for _, format := range books {
		path := output + "." + format
		if err := fieldbook.WriteFile(result.Book, path); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	if err := writeArtifacts(output, result.Artifacts); err != nil {
		return err
	}
	printStats(result.Book, result.CacheInfo.LayoutHit)

	printNewline()
	printReportSummary(&result.Report)
	if len(books) > 0 {
		printNewline()
		printNextStep("Browse", fmt.Sprintf("%s plan %s.%s", config.AppName, output, books[0]))
	}
	return nil
}

// writeArtifacts writes rendered outputs as <base>.<format>, in format order.
func writeArtifacts(base string, artifacts map[string][]byte) error {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	for _, f := range formats {
		path := base + "." + f
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}
