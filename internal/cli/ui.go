package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/verify"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorRed   = lipgloss.Color("167")
	colorBlue  = lipgloss.Color("75")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	// StyleTitle heads report tables and plan panels.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim is used for paths, stats and spinner text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleCached  = lipgloss.NewStyle().Foreground(colorGreen)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
)

// A verdict is how a verification report reads at a glance: complete,
// complete but with positions echoed across blocks, or broken.
type verdict int

const (
	verdictOK verdict = iota
	verdictEchoes
	verdictProblem
)

var (
	verdictIcons  = [...]string{"✓", "!", "✗"}
	verdictStyles = [...]lipgloss.Style{
		lipgloss.NewStyle().Foreground(colorGreen),
		lipgloss.NewStyle().Foreground(colorAmber),
		lipgloss.NewStyle().Foreground(colorRed),
	}
)

func (v verdict) icon() string { return verdictStyles[v].Render(verdictIcons[v]) }

const (
	iconInfo  = "›"
	iconArrow = "→"
	iconEmpty = "·"
)

func verdictOf(r *verify.Report) verdict {
	switch {
	case !r.OK():
		return verdictProblem
	case r.HasEchoes():
		return verdictEchoes
	}
	return verdictOK
}

// verdictLine renders the report summary behind its verdict icon.
func verdictLine(r *verify.Report) string {
	v := verdictOf(r)
	msg := r.Summary()
	if v == verdictEchoes {
		msg = verdictStyles[v].Render(msg)
	}
	return v.icon() + " " + msg
}

func printReportSummary(r *verify.Report) {
	fmt.Println(verdictLine(r))
}

func printSuccess(format string, args ...any) {
	fmt.Println(verdictOK.icon() + " " + fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + styleValue.Render(path))
}

// statsLine describes a book: plots, blocks, field extent, seed and
// whether it came from cache.
func statsLine(book *fieldbook.Book, cached bool) string {
	rows, cols := book.Extent()
	parts := []string{
		fmt.Sprintf("%d plots", book.Len()),
		fmt.Sprintf("%d blocks", len(book.BlockIDs())),
		fmt.Sprintf("%dx%d field", rows, cols),
	}
	if book.Seed != nil {
		parts = append(parts, fmt.Sprintf("seed %d", *book.Seed))
	}
	status := StyleDim.Render("fresh")
	if cached {
		status = styleCached.Render("cached")
	}
	return "  " + StyleDim.Render(strings.Join(parts, " · ")) + StyleDim.Render(" · ") + status
}

func printStats(book *fieldbook.Book, cached bool) {
	fmt.Println(statsLine(book, cached))
}

// printNextStep prints a suggested follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}
