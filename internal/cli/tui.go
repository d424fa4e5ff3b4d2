package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
)

// Grid styles
var (
	gridCellStyle  = lipgloss.NewStyle().Padding(0, 1)
	gridEmptyStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(colorDim)
	gridAxisStyle  = lipgloss.NewStyle().Foreground(colorGray)
	gridHelpStyle  = lipgloss.NewStyle().Foreground(colorDim)

	genotypeColors = []lipgloss.Color{"36", "220", "75", "167", "35", "141", "209", "110", "181", "149"}
)

// =============================================================================
// Panels
// =============================================================================

// planPanel is one grid of the browser: a block, or every block when they
// share coordinates.
type planPanel struct {
	Title string
	Cells [][]fieldbook.Plot // [row][column], zero Plot when empty
}

// planPanels arranges the book's plots into grids. Alongside books with a
// known block size are split back into blocks; otherwise they are shown as
// one combined grid.
func planPanels(book *fieldbook.Book) []planPanel {
	if book.IsAlongside() {
		if book.Rows == 0 || book.Columns == 0 {
			return []planPanel{newPanel("All blocks", book.Plots)}
		}
		book = design.Unalong(book)
	}
	ids := book.BlockIDs()
	panels := make([]planPanel, 0, len(ids))
	for _, id := range ids {
		panels = append(panels, newPanel(fmt.Sprintf("Block %d", id), book.BlockPlots(id)))
	}
	return panels
}

func newPanel(title string, plots []fieldbook.Plot) planPanel {
	var rows, cols int
	for _, p := range plots {
		rows = max(rows, p.Row)
		cols = max(cols, p.Column)
	}
	cells := make([][]fieldbook.Plot, rows)
	for i := range cells {
		cells[i] = make([]fieldbook.Plot, cols)
	}
	for _, p := range plots {
		if p.Row >= 1 && p.Column >= 1 {
			cells[p.Row-1][p.Column-1] = p
		}
	}
	return planPanel{Title: title, Cells: cells}
}

// genotypeIndex assigns each genotype a stable color slot.
func genotypeIndex(book *fieldbook.Book) map[string]int {
	names := book.Genotypes
	if len(names) == 0 {
		names = book.DistinctGenotypes()
	}
	idx := make(map[string]int, len(names))
	for i, g := range names {
		idx[g] = i
	}
	for _, g := range book.DistinctGenotypes() {
		if _, ok := idx[g]; !ok {
			idx[g] = len(idx)
		}
	}
	return idx
}

// renderPanel draws a panel as a text grid with row and column headings.
func renderPanel(p planPanel, colors map[string]int, numbers bool) string {
	width := 1
	for _, row := range p.Cells {
		for _, c := range row {
			width = max(width, lipgloss.Width(cellLabel(c, numbers)))
		}
	}
	cols := 0
	if len(p.Cells) > 0 {
		cols = len(p.Cells[0])
	}
	rowLabel := len(strconv.Itoa(len(p.Cells)))

	var b strings.Builder
	b.WriteString(StyleTitle.Render(p.Title))
	b.WriteString("\n")

	b.WriteString(strings.Repeat(" ", rowLabel+1))
	for c := 1; c <= cols; c++ {
		b.WriteString(gridAxisStyle.Render(gridCellStyle.Width(width + 2).Render(strconv.Itoa(c))))
	}
	b.WriteString("\n")

	for r, row := range p.Cells {
		b.WriteString(gridAxisStyle.Render(fmt.Sprintf("%*d ", rowLabel, r+1)))
		for _, c := range row {
			label := cellLabel(c, numbers)
			if c.Genotype == "" {
				b.WriteString(gridEmptyStyle.Width(width + 2).Render(label))
				continue
			}
			color := genotypeColors[colors[c.Genotype]%len(genotypeColors)]
			b.WriteString(gridCellStyle.Width(width + 2).Foreground(color).Render(label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cellLabel(c fieldbook.Plot, numbers bool) string {
	if c.Genotype == "" {
		return iconEmpty
	}
	if numbers {
		return fmt.Sprintf("%s #%d", c.Genotype, c.Number)
	}
	return c.Genotype
}

// =============================================================================
// PlanModel - Interactive block browser
// =============================================================================

// PlanModel is the bubbletea model for browsing the blocks of a layout.
type PlanModel struct {
	Panels  []planPanel
	Colors  map[string]int
	Index   int
	Numbers bool
	Summary string
}

// NewPlanModel creates a browser over the book's blocks.
func NewPlanModel(book *fieldbook.Book, summary string) PlanModel {
	return PlanModel{
		Panels:  planPanels(book),
		Colors:  genotypeIndex(book),
		Summary: summary,
	}
}

func (m PlanModel) Init() tea.Cmd {
	return nil
}

func (m PlanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l", "tab", "n":
			if m.Index < len(m.Panels)-1 {
				m.Index++
			}
		case "left", "h", "shift+tab", "p":
			if m.Index > 0 {
				m.Index--
			}
		case "home", "g":
			m.Index = 0
		case "end", "G":
			m.Index = max(len(m.Panels)-1, 0)
		case "#":
			m.Numbers = !m.Numbers
		}
	}
	return m, nil
}

func (m PlanModel) View() string {
	var b strings.Builder
	if len(m.Panels) == 0 {
		b.WriteString(StyleDim.Render("No plots"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(gridHelpStyle.Render(fmt.Sprintf("%d/%d  ←/→ block  # plot numbers  q quit", m.Index+1, len(m.Panels))))
	b.WriteString("\n\n")
	b.WriteString(renderPanel(m.Panels[m.Index], m.Colors, m.Numbers))
	if m.Summary != "" {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render(m.Summary))
		b.WriteString("\n")
	}
	return b.String()
}
