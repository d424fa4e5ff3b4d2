package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/table"
	"github.com/matzehuels/fieldbook/pkg/verify"
)

// run executes the root command with args and a private cache directory.
func run(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"svg", []string{"svg"}},
		{"json, CSV ,svg", []string{"json", "csv", "svg"}},
		{"svg,,png", []string{"svg", "png"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitFormats(t *testing.T) {
	books, renders := splitFormats([]string{"json", "svg", "xlsx", "png", "csv"})
	if !slices.Equal(books, []string{"json", "xlsx", "csv"}) {
		t.Errorf("books = %v", books)
	}
	if !slices.Equal(renders, []string{"svg", "png"}) {
		t.Errorf("renders = %v", renders)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, output, suffix, want string
	}{
		{"data/yield.csv", "", "clean", "data/yield_clean.csv"},
		{"yield.xlsx", "", "scored", "yield_scored.xlsx"},
		{"yield", "", "clean", "yield_clean"},
		{"yield.csv", "out.csv", "clean", "out.csv"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.input, tt.output, tt.suffix); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.input, tt.output, got, tt.want)
		}
	}
}

func TestLayoutCommand(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "trial")

	err := run(t, "layout", "-g", "A,B,C,D", "-b", "2", "--columns", "2", "--seed", "42",
		"--serpentine", "yes", "-f", "json,csv,svg", "-o", base)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}

	book, err := fieldbook.ReadFile(base + ".json")
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if book.Len() != 8 {
		t.Errorf("plots = %d, want 8", book.Len())
	}
	report := verify.Check(book)
	if !report.OK() {
		t.Errorf("report = %s", report.Summary())
	}

	fromCSV, err := fieldbook.ReadFile(base + ".csv")
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	sorted := book.Clone()
	sorted.SortByNumber()
	if !slices.Equal(fromCSV.Plots, sorted.Plots) {
		t.Errorf("csv plots differ from json plots")
	}

	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("svg output is not an SVG document")
	}

	// Same seed, same book.
	again := filepath.Join(dir, "again")
	if err := run(t, "layout", "-g", "A,B,C,D", "-b", "2", "--columns", "2", "--seed", "42",
		"--serpentine", "yes", "-f", "json", "-o", again); err != nil {
		t.Fatal(err)
	}
	book2, err := fieldbook.ReadFile(again + ".json")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(book.Plots, book2.Plots) {
		t.Error("same seed produced different plots")
	}
}

func TestLayoutCommandConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "trial.toml", `
genotypes = ["A", "B", "C", "D", "E", "F"]
blocks = 3
serpentine = "no"
alongside = "rows"
seed = 7

[output]
formats = ["json"]
path = "`+filepath.ToSlash(filepath.Join(dir, "from-config"))+`"
`)

	if err := run(t, "layout", "--config", cfg); err != nil {
		t.Fatalf("layout: %v", err)
	}
	book, err := fieldbook.ReadFile(filepath.Join(dir, "from-config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if book.Len() != 18 || book.Blocks != 3 {
		t.Errorf("plots = %d, blocks = %d, want 18 and 3", book.Len(), book.Blocks)
	}
	if book.Alongside != fieldbook.AlongsideRows {
		t.Errorf("alongside = %q, want rows", book.Alongside)
	}

	// A flag overrides the file.
	if err := run(t, "layout", "--config", cfg, "-b", "2"); err != nil {
		t.Fatal(err)
	}
	book, err = fieldbook.ReadFile(filepath.Join(dir, "from-config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if book.Blocks != 2 {
		t.Errorf("blocks = %d, want 2", book.Blocks)
	}
}

func TestLayoutCommandGenotypesFile(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "entries.csv", "Entry No,Genotype\n1,G1\n2,G2\n3,G3\n")
	base := filepath.Join(dir, "trial")

	if err := run(t, "layout", "--genotypes-file", list, "-b", "2", "--seed", "1", "-f", "json", "-o", base); err != nil {
		t.Fatalf("layout: %v", err)
	}
	book, err := fieldbook.ReadFile(base + ".json")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(book.Genotypes, []string{"G1", "G2", "G3"}) {
		t.Errorf("genotypes = %v", book.Genotypes)
	}
}

func TestLayoutCommandErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"one block", []string{"-g", "A,B", "-b", "1"}, errors.ErrCodeInvalidBlocks},
		{"duplicate", []string{"-g", "A,A", "-b", "2"}, errors.ErrCodeDuplicateGenotype},
		{"bad serpentine", []string{"-g", "A,B", "--serpentine", "maybe"}, errors.ErrCodeInvalidSerpentine},
		{"bad alongside", []string{"-g", "A,B", "--alongside", "diagonal"}, errors.ErrCodeInvalidAlongside},
		{"insufficient", []string{"-g", "A,B,C", "--variable-capacity", "--capacities", "1,1"}, errors.ErrCodeInsufficientCapacity},
		{"missing config", []string{"--config", filepath.Join(dir, "nope.toml")}, errors.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"layout", "-f", "json", "-o", filepath.Join(dir, "out")}, tt.args...)
			if err := run(t, args...); !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

const brokenBook = `plot,block,row,column,genotype
101,1,1,1,A
102,1,1,1,B
201,2,1,1,A
`

func TestVerifyCommand(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "ok")
	if err := run(t, "layout", "-g", "A,B,C,D", "-b", "2", "--seed", "3", "-f", "csv", "-o", base); err != nil {
		t.Fatal(err)
	}
	if err := run(t, "verify", "--strict", base+".csv"); err != nil {
		t.Errorf("verify ok book: %v", err)
	}

	broken := writeFile(t, dir, "broken.csv", brokenBook)
	if err := run(t, "verify", broken); err != nil {
		t.Errorf("verify without --strict: %v", err)
	}
	if err := run(t, "verify", "--strict", broken); err == nil {
		t.Error("verify --strict on a broken book should fail")
	}
	if err := run(t, "verify", "--strict", "-g", "A,B,C,D", base+".csv"); err != nil {
		t.Errorf("verify against the same list: %v", err)
	}
	if err := run(t, "verify", "--strict", "-g", "A,B,C,D,E", base+".csv"); err == nil {
		t.Error("verify against a longer list should fail")
	}
}

func TestPlanCommandNoTUI(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "trial")
	if err := run(t, "layout", "-g", "A,B,C", "-b", "2", "--seed", "5", "-f", "json", "-o", base); err != nil {
		t.Fatal(err)
	}
	if err := run(t, "plan", "--no-tui", "--numbers", base+".json"); err != nil {
		t.Errorf("plan: %v", err)
	}
}

func TestPlanPanels(t *testing.T) {
	book := &fieldbook.Book{
		Blocks:    2,
		Rows:      1,
		Columns:   2,
		Alongside: fieldbook.AlongsideRows,
		Plots: []fieldbook.Plot{
			{Number: 101, Block: 1, Row: 1, Column: 1, Genotype: "A"},
			{Number: 102, Block: 1, Row: 1, Column: 2, Genotype: "B"},
			{Number: 201, Block: 2, Row: 1, Column: 3, Genotype: "B"},
			{Number: 202, Block: 2, Row: 1, Column: 4, Genotype: "A"},
		},
	}
	panels := planPanels(book)
	if len(panels) != 2 {
		t.Fatalf("panels = %d, want 2", len(panels))
	}
	if got := panels[1].Cells[0][0].Genotype; got != "B" {
		t.Errorf("block 2 first cell = %q, want B", got)
	}

	book.Rows, book.Columns = 0, 0
	panels = planPanels(book)
	if len(panels) != 1 || len(panels[0].Cells[0]) != 4 {
		t.Errorf("combined panel = %+v", panels)
	}

	out := renderPanel(panels[0], genotypeIndex(book), true)
	if !strings.Contains(out, "A #101") || !strings.Contains(out, "All blocks") {
		t.Errorf("renderPanel() = %q", out)
	}
}

func TestPlanModelNavigation(t *testing.T) {
	book := &fieldbook.Book{
		Blocks: 3,
		Plots: []fieldbook.Plot{
			{Number: 101, Block: 1, Row: 1, Column: 1, Genotype: "A"},
			{Number: 201, Block: 2, Row: 1, Column: 1, Genotype: "A"},
			{Number: 301, Block: 3, Row: 1, Column: 1, Genotype: "A"},
		},
	}
	var m tea.Model = NewPlanModel(book, "")
	press := func(key tea.KeyType) {
		m, _ = m.Update(tea.KeyMsg{Type: key})
	}

	press(tea.KeyRight)
	press(tea.KeyRight)
	press(tea.KeyRight)
	if got := m.(PlanModel).Index; got != 2 {
		t.Errorf("index after 3x right = %d, want 2", got)
	}
	press(tea.KeyLeft)
	if got := m.(PlanModel).Index; got != 1 {
		t.Errorf("index after left = %d, want 1", got)
	}
	if !strings.Contains(m.View(), "Block 2") {
		t.Errorf("View() should show block 2")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q should quit")
	}
}

func TestJoinCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, in, "20240501.csv", "Plot,Yield \n101, 4.5\n102,5.1\n")
	writeFile(t, in, "20240508.csv", "plot,Height\n101,80\n")
	out := filepath.Join(dir, "joined.csv")

	if err := run(t, "join", in, "-o", out, "--date-column", "date", "--trim"); err != nil {
		t.Fatalf("join: %v", err)
	}
	df, err := table.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if df.Nrow() != 3 {
		t.Errorf("rows = %d, want 3", df.Nrow())
	}
	if got := df.Names(); !slices.Equal(got, []string{"plot", "yield", "date", "height"}) {
		t.Errorf("columns = %v", got)
	}
	if got := table.Records(df)[1][1]; got != "4.5" {
		t.Errorf("trimmed yield = %q, want 4.5", got)
	}

	if err := run(t, "join", filepath.Join(dir, "missing")); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("missing dir: error = %v, want INVALID_PATH", err)
	}
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "yield.csv", "plot,yield\n1,10\n2,11\n3,10\n4,12\n5,11\n6,200\n")

	if err := run(t, "clean", in, "--outliers", "yield"); err != nil {
		t.Fatalf("clean: %v", err)
	}
	df, err := table.ReadFile(filepath.Join(dir, "yield_clean.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if df.Nrow() != 5 {
		t.Errorf("rows = %d, want 5", df.Nrow())
	}

	if err := run(t, "clean", in); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("no action: error = %v, want INVALID_INPUT", err)
	}
	if err := run(t, "clean", in, "--outliers", "weight"); !errors.Is(err, errors.ErrCodeInvalidColumn) {
		t.Errorf("unknown column: error = %v, want INVALID_COLUMN", err)
	}
}

func TestCleanCommandMissing(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "scores.csv", "code,week,vigor,color\nP1,1,3,2\nP1,2,,2\nP1,3,3,4\n")
	out := filepath.Join(dir, "filled.csv")

	if err := run(t, "clean", in, "-o", out, "--missing", "fill", "--measures", "vigor,color"); err != nil {
		t.Fatalf("clean: %v", err)
	}
	df, err := table.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Records(df)[2][2]; got != "3" {
		t.Errorf("filled vigor = %q, want 3", got)
	}
}

func TestScoreCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "field.csv", "plot,vigor,color\n1,good,poor\n2,fair,\n")

	if err := run(t, "score", in, "--traits", "vigor,color", "--scale", "good=3,fair=2,poor=1"); err != nil {
		t.Fatalf("score: %v", err)
	}
	df, err := table.ReadFile(filepath.Join(dir, "field_scored.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(df.Names(), "score") {
		t.Fatalf("columns = %v, want score", df.Names())
	}
	if got := df.Col("score").Records(); got[0] != "4" || got[1] != "2" {
		t.Errorf("score = %v, want [4 2]", got)
	}
}

func TestChartCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "summary.csv", "site,genotype,healthy,sick,yield\nN,A,80,20,4.1\nN,B,60,40,3.2\nS,A,90,10,5.0\n")
	out := filepath.Join(dir, "chart.html")

	if err := run(t, "chart", in, "-o", out, "--group", "site", "--x", "genotype", "--stacked", "healthy,sick", "--lines", "yield"); err != nil {
		t.Fatalf("chart: %v", err)
	}
	html, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "echarts") {
		t.Error("chart output should load echarts")
	}

	if err := run(t, "chart", in, "-o", out, "--group", "site", "--x", "genotype"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("no stacked columns: error = %v, want INVALID_INPUT", err)
	}
}

func TestCachePathCommand(t *testing.T) {
	if err := run(t, "cache", "path"); err != nil {
		t.Errorf("cache path: %v", err)
	}
	if err := run(t, "cache", "clear"); err != nil {
		t.Errorf("cache clear: %v", err)
	}
}
