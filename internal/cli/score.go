package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/internal/config"
	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/table"
)

// scoreCommand creates the score command for grading quality traits.
func (c *CLI) scoreCommand() *cobra.Command {
	var (
		output    string
		scale     map[string]string
		scaleFile string
		opts      table.ScoreOptions
	)

	cmd := &cobra.Command{
		Use:   "score [table]",
		Short: "Convert quality grades to points",
		Long: `Convert categorical quality grades to points.

Each trait column gets a <trait>_score column. The row totals go to score,
the number of graded traits to traits and the number of traits considered
to points; evaluated is 1 when anything was graded.

Scales come from --scale (applied to every trait) or from a TOML file with
a [default] table and per-trait tables under [traits.<name>].`,
		Example: `  fieldbook score field.csv --traits vigor,color --scale good=3,fair=2,poor=1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scaleFile != "" {
				s, err := config.LoadScales(scaleFile)
				if err != nil {
					return err
				}
				opts.Default, opts.Scales = s.Default, s.Traits
			}
			if len(scale) > 0 {
				opts.Default = make(map[string]float64, len(scale))
				for grade, v := range scale {
					p, err := strconv.ParseFloat(v, 64)
					if err != nil {
						return errors.Wrap(errors.ErrCodeInvalidInput, err, "scale %s=%s", grade, v)
					}
					opts.Default[grade] = p
				}
			}

			df, err := readTable(args[0])
			if err != nil {
				return err
			}
			if df, err = table.ScoreTraits(df, opts); err != nil {
				return err
			}

			path := outputPath(args[0], output, "scored")
			if err := table.WriteFile(df, path); err != nil {
				return err
			}
			printSuccess("Scored %d rows on %d traits", df.Nrow(), len(opts.Traits))
			printFile(path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output table (default: <input>_scored.<ext>)")
	cmd.Flags().StringSliceVar(&opts.Traits, "traits", nil, "graded columns")
	cmd.Flags().StringToStringVar(&scale, "scale", nil, "grade=points for every trait")
	cmd.Flags().StringVar(&scaleFile, "scale-file", "", "TOML file with [default] and [traits.<name>] scales")

	return cmd
}
