package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/verify"
)

// planCommand creates the plan command for browsing a layout block by block.
func (c *CLI) planCommand() *cobra.Command {
	var (
		noTUI   bool
		numbers bool
	)

	cmd := &cobra.Command{
		Use:   "plan [book]",
		Short: "Browse the blocks of a field book",
		Long: `Browse the blocks of a field book (json, csv or xlsx) in the terminal.

Each block is drawn as a grid of genotypes. Use --no-tui to print every
block instead, for example when piping the output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := fieldbook.ReadFile(args[0])
			if err != nil {
				return err
			}
			report := verify.Check(book)

			if noTUI {
				colors := genotypeIndex(book)
				for i, p := range planPanels(book) {
					if i > 0 {
						printNewline()
					}
					fmt.Print(renderPanel(p, colors, numbers))
				}
				printNewline()
				printReportSummary(&report)
				return nil
			}

			m := NewPlanModel(book, report.Summary())
			m.Numbers = numbers
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "print every block instead of the interactive browser")
	cmd.Flags().BoolVar(&numbers, "numbers", false, "show plot numbers")

	return cmd
}
