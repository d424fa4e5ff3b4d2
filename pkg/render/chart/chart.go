// Package chart renders grouped trial results as interactive HTML charts.
//
// Each value of the group column becomes one chart: the stacked columns
// are drawn as stacked bars on a 0-100 percentage axis, and the line
// columns on a secondary axis that runs to 1.2 times the largest line
// value across all groups, so every chart shares the same scale.
package chart

import (
	"cmp"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/aclements/go-moremath/stats"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-gota/gota/dataframe"

	"github.com/matzehuels/fieldbook/pkg/errors"
)

// DefaultColors is the stacked-bar palette.
var DefaultColors = []string{"#6C8EBF", "#D6A461", "#82B366", "#B4666E", "#8E44AD", "#3498DB"}

// wideColors is used when there are more stacked columns than DefaultColors.
var wideColors = []string{
	"#1F77B4", "#AEC7E8", "#FF7F0E", "#FFBB78", "#2CA02C", "#98DF8A", "#D62728",
	"#FF9896", "#9467BD", "#C5B0D5", "#8C564B", "#C49C94", "#E377C2", "#F7B6D2",
	"#7F7F7F", "#C7C7C7", "#BCBD22", "#DBDB8D", "#17BECF", "#9EDAE5",
}

const defaultLineColor = "black"

// Options configures the chart.
type Options struct {
	Group   string   // one chart per distinct value
	X       string   // category axis
	Stacked []string // stacked bar columns, percentages
	Lines   []string // line columns on the secondary axis

	Order   []string // preferred group order; the rest follow sorted
	Exclude []string // x values to leave out

	Colors     []string
	LineColors []string
	Title      string
}

// Panel is the data of one group's chart.
type Panel struct {
	Group   string
	X       []string
	Stacked [][]float64 // per stacked column, aligned with X
	Lines   [][]float64 // per line column, aligned with X
}

// Build validates the options against the table and splits it into
// panels. It also returns the upper bound of the line axis.
func Build(df dataframe.DataFrame, o Options) ([]Panel, float64, error) {
	if len(o.Stacked) == 0 {
		return nil, 0, errors.New(errors.ErrCodeInvalidInput, "at least one stacked column is required")
	}
	names := df.Names()
	required := append([]string{o.Group, o.X}, o.Stacked...)
	required = append(required, o.Lines...)
	for _, col := range required {
		if !slices.Contains(names, col) {
			return nil, 0, errors.New(errors.ErrCodeInvalidColumn, "column %q not found", col)
		}
	}

	groupCol := df.Col(o.Group)
	groups := groupCol.Records()
	na := groupCol.IsNaN()
	xs := df.Col(o.X).Records()

	stacked := make([][]float64, len(o.Stacked))
	for i, col := range o.Stacked {
		stacked[i] = df.Col(col).Float()
	}
	lines := make([][]float64, len(o.Lines))
	for i, col := range o.Lines {
		lines[i] = df.Col(col).Float()
	}

	order := groupOrder(groups, na, o.Order)
	if len(order) == 0 {
		return nil, 0, errors.New(errors.ErrCodeInvalidInput, "column %q has no values", o.Group)
	}

	panels := make([]Panel, 0, len(order))
	for _, g := range order {
		var rows []int
		for i := range groups {
			if !na[i] && groups[i] == g && !slices.Contains(o.Exclude, xs[i]) {
				rows = append(rows, i)
			}
		}
		slices.SortStableFunc(rows, func(a, b int) int { return compareX(xs[a], xs[b]) })

		p := Panel{Group: g, Stacked: pick(stacked, rows), Lines: pick(lines, rows)}
		for _, r := range rows {
			p.X = append(p.X, xs[r])
		}
		panels = append(panels, p)
	}

	source := lines
	if len(source) == 0 {
		source = stacked[:1]
	}
	var all []float64
	for _, col := range source {
		for _, v := range col {
			if !math.IsNaN(v) {
				all = append(all, v)
			}
		}
	}
	lineMax := 0.0
	if len(all) > 0 {
		_, hi := stats.Bounds(all)
		lineMax = hi * 1.2
	}
	return panels, lineMax, nil
}

// groupOrder lists the preferred groups that occur, then the others sorted.
func groupOrder(groups []string, na []bool, preferred []string) []string {
	present := make(map[string]bool)
	for i, g := range groups {
		if !na[i] {
			present[g] = true
		}
	}
	var out []string
	for _, g := range preferred {
		if present[g] && !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	var rest []string
	for g := range present {
		if !slices.Contains(out, g) {
			rest = append(rest, g)
		}
	}
	slices.SortFunc(rest, compareX)
	return append(out, rest...)
}

// compareX orders numerically when both values are numbers.
func compareX(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(fa, fb)
	}
	return cmp.Compare(a, b)
}

func pick(cols [][]float64, rows []int) [][]float64 {
	out := make([][]float64, len(cols))
	for i, col := range cols {
		out[i] = make([]float64, len(rows))
		for j, r := range rows {
			out[i][j] = col[r]
		}
	}
	return out
}

// Render writes an HTML page with one chart per group.
func Render(w io.Writer, df dataframe.DataFrame, o Options) error {
	panels, lineMax, err := Build(df, o)
	if err != nil {
		return err
	}

	colors := o.Colors
	if len(colors) < len(o.Stacked) {
		colors = DefaultColors
		if len(o.Stacked) > len(DefaultColors) {
			colors = wideColors
		}
	}
	lineColors := o.LineColors
	if len(lineColors) < len(o.Lines) {
		lineColors = slices.Repeat([]string{defaultLineColor}, len(o.Lines))
	}
	title := o.Title
	if title == "" {
		title = "Trial results"
	}

	page := components.NewPage()
	page.PageTitle = title
	for _, p := range panels {
		page.AddCharts(panelChart(p, o, lineMax, colors, lineColors))
	}
	if err := page.Render(w); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render chart")
	}
	return nil
}

func panelChart(p Panel, o Options, lineMax float64, colors, lineColors []string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: p.Group}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: o.X}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%", Min: 0, Max: 100}),
	)
	bar.SetXAxis(p.X)

	for i, col := range o.Stacked {
		data := make([]opts.BarData, len(p.X))
		for j, v := range p.Stacked[i] {
			if math.IsNaN(v) {
				v = 0
			}
			data[j] = opts.BarData{Value: v}
		}
		bar.AddSeries(col, data,
			charts.WithBarChartOpts(opts.BarChart{Stack: "stacked"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colors[i%len(colors)]}),
		)
	}

	if len(o.Lines) == 0 {
		return bar
	}

	bar.ExtendYAxis(opts.YAxis{Name: o.Lines[0], Min: 0, Max: lineMax})
	line := charts.NewLine()
	line.SetXAxis(p.X)
	for i, col := range o.Lines {
		data := make([]opts.LineData, len(p.X))
		for j, v := range p.Lines[i] {
			if math.IsNaN(v) {
				data[j] = opts.LineData{Value: "-"}
				continue
			}
			data[j] = opts.LineData{Value: v}
		}
		line.AddSeries(col, data,
			charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: lineColors[i]}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: lineColors[i]}),
		)
	}
	bar.Overlap(line)
	return bar
}
