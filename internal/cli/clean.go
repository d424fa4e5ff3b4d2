package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/outlier"
	"github.com/matzehuels/fieldbook/pkg/table"
)

// cleanCommand creates the clean command for outliers and missing data.
func (c *CLI) cleanCommand() *cobra.Command {
	var (
		output     string
		outliers   outlier.Options
		missing    table.MissingOptions
		clearEmpty []string
	)

	cmd := &cobra.Command{
		Use:   "clean [table]",
		Short: "Remove outliers and detect or fill missing measurements",
		Long: `Clean a trial table (csv or xlsx).

--outliers removes rows whose values in the listed columns fall outside the
IQR fences (Q1 - k*IQR, Q3 + k*IQR) or beyond a z-score limit. --match
decides whether all, any or a majority of the columns must flag a row.

--missing looks at rows where some but not all --measures are empty. In
detect mode it writes a report of those rows; in fill mode each gap takes
the mode, mean or median of the same --code in other --week values.`,
		Example: `  fieldbook clean yield.csv --outliers yield,height --method zscore --limit 2.5
  fieldbook clean scores.csv --missing fill --code plot --week week --measures vigor,color`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(outliers.Columns) == 0 && missing.Mode == "" && len(clearEmpty) == 0 {
				return errors.New(errors.ErrCodeInvalidInput, "nothing to do: pass --outliers, --missing or --clear-empty")
			}

			df, err := readTable(args[0])
			if err != nil {
				return err
			}
			rows := df.Nrow()

			if len(clearEmpty) > 0 {
				if df, err = table.ClearWhenEmpty(df, clearEmpty[0], clearEmpty[1:]); err != nil {
					return err
				}
			}

			if len(outliers.Columns) > 0 {
				outliers.Logger = commandLogger(cmd.Context(), "clean")
				var flagged []int
				if df, flagged, err = outlier.Clean(df, outliers); err != nil {
					return err
				}
				printInfo("Removed %d of %d rows as outliers", len(flagged), rows)
			}

			if missing.Mode != "" {
				missing.Logger = commandLogger(cmd.Context(), "clean")
				res, err := table.HandleMissing(df, missing)
				if err != nil {
					return err
				}
				printInfo("%d rows partially missing", res.Partial)
				if missing.Mode == table.ModeFill {
					printInfo("Filled %d rows", res.Filled)
				}
				df = res.Table
			}

			path := outputPath(args[0], output, "clean")
			if err := table.WriteFile(df, path); err != nil {
				return err
			}
			printSuccess("Wrote %d rows", df.Nrow())
			printFile(path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output table (default: <input>_clean.<ext>)")

	cmd.Flags().StringSliceVar(&outliers.Columns, "outliers", nil, "numeric columns to check for outliers")
	cmd.Flags().StringVar((*string)(&outliers.Method), "method", string(outlier.IQR), "outlier rule: iqr, zscore")
	cmd.Flags().Float64Var(&outliers.K, "k", 3, "IQR fence multiplier")
	cmd.Flags().Float64Var(&outliers.Limit, "limit", 3, "z-score limit")
	cmd.Flags().StringVar((*string)(&outliers.Match), "match", string(outlier.All), "columns that must flag a row: all, any, majority")

	cmd.Flags().StringVar(&missing.Mode, "missing", "", "missing data handling: detect, fill")
	cmd.Flags().StringVar(&missing.Method, "fill-method", table.MethodMode, "fill value: mode, mean, median")
	cmd.Flags().StringVar(&missing.Code, "code", "code", "column identifying the evaluated entity")
	cmd.Flags().StringVar(&missing.Week, "week", "week", "column identifying the evaluation")
	cmd.Flags().StringSliceVar(&missing.Measures, "measures", nil, "measured columns")
	cmd.Flags().StringSliceVar(&missing.Info, "info", nil, "extra columns in the detect report")

	cmd.Flags().StringSliceVar(&clearEmpty, "clear-empty", nil, "target,col1,col2...: clear target when every listed column is empty")

	return cmd
}
