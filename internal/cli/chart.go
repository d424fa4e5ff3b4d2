package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/render/chart"
)

// chartCommand creates the chart command for grouped result charts.
func (c *CLI) chartCommand() *cobra.Command {
	var (
		output string
		opts   chart.Options
	)

	cmd := &cobra.Command{
		Use:   "chart [table]",
		Short: "Draw stacked bar and line charts per group",
		Long: `Draw one chart per --group value as an HTML page.

--stacked columns are percentages stacked on a 0-100 axis; --lines are
drawn on a secondary axis scaled to 1.2 times their largest value. Groups
listed in --order come first, the rest follow sorted.`,
		Example: `  fieldbook chart summary.csv --group site --x genotype --stacked healthy,mild,severe --lines yield`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, err := readTable(args[0])
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", output)
			}
			defer f.Close()
			if err := chart.Render(f, df, opts); err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			printSuccess("Chart written")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "chart.html", "output HTML file")
	cmd.Flags().StringVar(&opts.Group, "group", "", "one chart per value of this column")
	cmd.Flags().StringVar(&opts.X, "x", "", "category axis column")
	cmd.Flags().StringSliceVar(&opts.Stacked, "stacked", nil, "stacked percentage columns")
	cmd.Flags().StringSliceVar(&opts.Lines, "lines", nil, "line columns on the secondary axis")
	cmd.Flags().StringSliceVar(&opts.Order, "order", nil, "groups drawn first")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "x values to leave out")
	cmd.Flags().StringSliceVar(&opts.Colors, "colors", nil, "bar colors")
	cmd.Flags().StringSliceVar(&opts.LineColors, "line-colors", nil, "line colors")
	cmd.Flags().StringVar(&opts.Title, "title", "", "page title")

	return cmd
}
