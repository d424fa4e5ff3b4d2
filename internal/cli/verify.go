package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/verify"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
	tableBorderStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// verifyCommand creates the verify command for checking a field book.
func (c *CLI) verifyCommand() *cobra.Command {
	var (
		genotypes     []string
		genotypesFile string
		strict        bool
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "verify [book]",
		Short: "Check a field book for completeness and collisions",
		Long: `Check a field book (json, csv or xlsx).

Every block must contain each genotype exactly once and no two plots of a
block may share a position. Plots repeating a position and genotype across
blocks (echoes) and the per-row and per-column genotype balance are
reported for information.

The genotype list defaults to the book's own; pass --genotypes or
--genotypes-file to check against an entry list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := fieldbook.ReadFile(args[0])
			if err != nil {
				return err
			}
			if genotypesFile != "" {
				if genotypes, err = readGenotypes(genotypesFile); err != nil {
					return err
				}
			}

			var report verify.Report
			if len(genotypes) > 0 {
				report = verify.CheckAgainst(book, genotypes)
			} else {
				runner, err := c.newRunner()
				if err != nil {
					return err
				}
				defer runner.Close()
				report = runner.Verify(cmd.Context(), book)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(&report)
			}
			if strict && !report.OK() {
				return errors.New(errors.ErrCodeInvalidInput, "%s failed verification: %s", args[0], report.Summary())
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&genotypes, "genotypes", "g", nil, "expected genotypes, comma separated")
	cmd.Flags().StringVar(&genotypesFile, "genotypes-file", "", "csv or xlsx file listing the expected genotypes")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the book fails verification")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	return cmd
}

// printReport prints the verdict followed by one table per finding.
func printReport(r *verify.Report) {
	printReportSummary(r)

	if len(r.Problems) > 0 {
		printNewline()
		fmt.Println(StyleTitle.Render("Incomplete blocks"))
		rows := make([][]string, len(r.Problems))
		for i, p := range r.Problems {
			rows[i] = []string{strconv.Itoa(p.Block), listOrDash(p.Missing), listOrDash(p.Repeated)}
		}
		fmt.Println(newTable([]string{"Block", "Missing", "Repeated"}, rows))
	}
	if len(r.WithinBlock) > 0 {
		printNewline()
		fmt.Println(StyleTitle.Render("Colliding plots"))
		fmt.Println(newTable(plotHeader, plotRows(r.WithinBlock)))
	}
	if len(r.AcrossBlocks) > 0 {
		printNewline()
		fmt.Println(StyleTitle.Render("Echoes across blocks"))
		fmt.Println(newTable(plotHeader, plotRows(r.AcrossBlocks)))
	}

	printNewline()
	fmt.Println(StyleTitle.Render("Balance"))
	fmt.Println(newTable([]string{"Axis", "Distinct genotypes per line"}, [][]string{
		{"Row", balanceLine(r.RowBalance)},
		{"Column", balanceLine(r.ColumnBalance)},
	}))
}

var plotHeader = []string{"Plot", "Block", "Row", "Column", "Genotype"}

func plotRows(plots []fieldbook.Plot) [][]string {
	rows := make([][]string, len(plots))
	for i, p := range plots {
		rows[i] = []string{
			strconv.Itoa(p.Number),
			strconv.Itoa(p.Block),
			strconv.Itoa(p.Row),
			strconv.Itoa(p.Column),
			p.Genotype,
		}
	}
	return rows
}

// balanceLine renders a balance map as "1:4 2:4 3:3" in key order.
func balanceLine(m map[int]int) string {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d:%d", k, m[k])
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func listOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}

func newTable(header []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers(header...).
		Rows(rows...)
}
