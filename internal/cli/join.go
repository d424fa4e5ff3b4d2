package cli

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/table"
)

// joinCommand creates the join command for stacking data files.
func (c *CLI) joinCommand() *cobra.Command {
	var (
		output     string
		extensions []string
		timezone   string
		opts       table.JoinOptions
		process    table.ProcessOptions
	)

	cmd := &cobra.Command{
		Use:   "join [dir]",
		Short: "Stack the CSV and XLSX files of a directory into one table",
		Long: `Stack the CSV and XLSX files of a directory into one table.

Files are read in name order. CSV files are decoded as UTF-8, falling back
to Latin-1. Column names are normalized per file (trimmed, accents removed,
lower case, inner spaces as underscores) and the result holds the union of
all columns; cells a file does not have are left empty.

--date-column stores the date found in each file name (2024-05-01_10:30:00,
20240501 or 2024-122) and --suffix-column the file name itself.`,
		Example: `  fieldbook join ./harvest -o harvest.csv --date-column date
  fieldbook join ./scores --suffix-column source --trim --empty-na`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, e := range extensions {
				e = strings.ToLower(strings.TrimSpace(e))
				if !strings.HasPrefix(e, ".") {
					e = "." + e
				}
				opts.Extensions = append(opts.Extensions, e)
			}
			if timezone != "" {
				loc, err := time.LoadLocation(timezone)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "timezone %q", timezone)
				}
				opts.Location = loc
			}
			return c.runJoin(cmd.Context(), args[0], output, opts, process)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "joined.csv", "output table (.csv or .xlsx)")
	cmd.Flags().StringSliceVar(&extensions, "ext", []string{"csv", "xlsx"}, "file extensions to read")
	cmd.Flags().StringVar(&opts.DateColumn, "date-column", "", "column receiving the date parsed from each file name")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "time zone of file name dates")
	cmd.Flags().StringVar(&opts.SuffixColumn, "suffix-column", "", "column receiving each file's name")
	cmd.Flags().BoolVar(&opts.StopOnError, "stop-on-error", false, "fail on the first unreadable file instead of skipping it")

	cmd.Flags().StringToStringVar(&process.Replace, "replace", nil, "replace values, old=new")
	cmd.Flags().BoolVar(&process.EmptyToNA, "empty-na", false, "treat blank, nan, None and null cells as missing")
	cmd.Flags().StringToStringVar(&process.Fill, "fill", nil, "fill missing cells per column, column=value")
	cmd.Flags().BoolVar(&process.Trim, "trim", false, "trim surrounding whitespace")

	return cmd
}

func (c *CLI) runJoin(ctx context.Context, dir, output string, opts table.JoinOptions, process table.ProcessOptions) error {
	logger := commandLogger(ctx, "join")
	opts.Logger = logger
	process.Logger = logger

	prog := newProgress(logger, "joined files")
	df, err := table.JoinFiles(ctx, dir, opts)
	if err != nil {
		return err
	}
	if needsProcessing(process) {
		if df, err = table.ProcessValues(df, process); err != nil {
			return err
		}
	}
	prog.done("rows", df.Nrow(), "columns", df.Ncol())

	if err := table.WriteFile(df, output); err != nil {
		return err
	}
	printSuccess("Wrote %d rows, %d columns", df.Nrow(), df.Ncol())
	printFile(output)
	return nil
}

func needsProcessing(p table.ProcessOptions) bool {
	return len(p.Replace) > 0 || p.EmptyToNA || len(p.Fill) > 0 || p.Trim
}

// readTable loads a table file and normalizes its column names.
func readTable(path string) (dataframe.DataFrame, error) {
	df, err := table.ReadFile(path)
	if err != nil {
		return df, err
	}
	return table.NormalizeColumns(df)
}

// outputPath derives "<input>_<suffix>.<ext>" when no output was given.
func outputPath(input, output, suffix string) string {
	if output != "" {
		return output
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_" + suffix + ext
}
