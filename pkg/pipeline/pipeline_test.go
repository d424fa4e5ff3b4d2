package pipeline

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fieldbook/pkg/cache"
	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/errors"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"dot", false},
		{"json", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateVizType(t *testing.T) {
	tests := []struct {
		viz     string
		wantErr bool
	}{
		{"heatmap", false},
		{"graphviz", false},
		{"tower", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateVizType(tt.viz)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateVizType(%q) error = %v, wantErr %v", tt.viz, err, tt.wantErr)
		}
	}
}

func seeded(seed uint64) Options {
	return Options{
		Design: design.Options{
			Genotypes: []string{"A", "B", "C", "D", "E"},
			Blocks:    3,
			Seed:      &seed,
		},
		Logger: log.NewWithOptions(&bytes.Buffer{}, log.Options{}),
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := seeded(1)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.Viz != DefaultViz {
		t.Errorf("Viz = %q, want %q", opts.Viz, DefaultViz)
	}
	if opts.Scale != DefaultScale {
		t.Errorf("Scale = %v, want %v", opts.Scale, DefaultScale)
	}

	dot := seeded(1)
	dot.Formats = []string{"dot"}
	if err := dot.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("dot with heatmap: error = %v, want INVALID_FORMAT", err)
	}

	bad := seeded(1)
	bad.Design.Blocks = 1
	if err := bad.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidBlocks) {
		t.Errorf("one block: error = %v, want INVALID_BLOCKS", err)
	}
}

func newFileRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, log.NewWithOptions(&bytes.Buffer{}, log.Options{}))
	t.Cleanup(func() { r.Close() })
	return r
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	opts := seeded(3)
	opts.Formats = []string{"svg"}

	result, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Stats.Plots != 15 {
		t.Errorf("Plots = %d, want 15", result.Stats.Plots)
	}
	if !result.Report.OK() {
		t.Errorf("report not OK: %s", result.Report.Summary())
	}
	if result.BookHash == "" {
		t.Error("BookHash is empty")
	}
	if !strings.HasPrefix(string(result.Artifacts["svg"]), "<svg") {
		t.Error("svg artifact missing")
	}
	if result.CacheInfo.LayoutHit || result.CacheInfo.RenderHit {
		t.Error("null cache reported a hit")
	}
}

func TestExecuteReportsStages(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		want    []Stage
	}{
		{"book only", nil, []Stage{StageGenerate, StageVerify}},
		{"with render", []string{"svg"}, []Stage{StageGenerate, StageVerify, StageRender}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Stage
			var details []string
			opts := seeded(3)
			opts.Formats = tt.formats
			opts.Progress = func(stage Stage, detail string) {
				got = append(got, stage)
				details = append(details, detail)
			}
			if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("stages = %v, want %v", got, tt.want)
			}
			if details[0] != "5 genotypes, 3 blocks" || details[1] != "15 plots" {
				t.Errorf("details = %q", details)
			}
		})
	}
}

func TestGenerateCachesSeededLayouts(t *testing.T) {
	r := newFileRunner(t)
	ctx := context.Background()

	_, first, hit, err := r.GenerateWithCacheInfo(ctx, seeded(11))
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if hit {
		t.Error("first generate was a cache hit")
	}

	_, second, hit, err := r.GenerateWithCacheInfo(ctx, seeded(11))
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if !hit {
		t.Error("second generate was not a cache hit")
	}
	for i := range first.Plots {
		if first.Plots[i] != second.Plots[i] {
			t.Fatalf("plot %d = %+v, want %+v", i, second.Plots[i], first.Plots[i])
		}
	}

	noCache := seeded(11)
	noCache.NoCache = true
	if _, _, hit, _ := r.GenerateWithCacheInfo(ctx, noCache); hit {
		t.Error("NoCache generate was a cache hit")
	}
}

func TestGenerateUnseededNotCached(t *testing.T) {
	r := newFileRunner(t)
	opts := seeded(0)
	opts.Design.Seed = nil

	for range 2 {
		_, book, hit, err := r.GenerateWithCacheInfo(context.Background(), opts)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if hit {
			t.Error("unseeded layout served from cache")
		}
		if book.Seed == nil {
			t.Error("book does not record the drawn seed")
		}
	}
}

func TestRenderCachesArtifacts(t *testing.T) {
	r := newFileRunner(t)
	ctx := context.Background()

	opts := seeded(5)
	opts.Formats = []string{"svg"}
	_, book, err := r.Generate(ctx, opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	first, hit, err := r.RenderWithCacheInfo(ctx, book, opts)
	if err != nil || hit {
		t.Fatalf("first render: hit=%v err=%v", hit, err)
	}
	second, hit, err := r.RenderWithCacheInfo(ctx, book, opts)
	if err != nil || !hit {
		t.Fatalf("second render: hit=%v err=%v", hit, err)
	}
	if !bytes.Equal(first["svg"], second["svg"]) {
		t.Error("cached svg differs from rendered svg")
	}

	opts.ShowNumbers = true
	if _, hit, _ := r.RenderWithCacheInfo(ctx, book, opts); hit {
		t.Error("different render options shared a cache entry")
	}
}

func TestRenderTitleNotServedFromCache(t *testing.T) {
	r := newFileRunner(t)
	ctx := context.Background()

	opts := seeded(5)
	opts.Formats = []string{"svg"}
	_, book, err := r.Generate(ctx, opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	opts.Title = "Trial One"
	if _, err := r.Render(ctx, book, opts); err != nil {
		t.Fatalf("first render: %v", err)
	}
	opts.Title = "Trial Two"
	out, hit, err := r.RenderWithCacheInfo(ctx, book, opts)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if hit {
		t.Error("render with a new title was a cache hit")
	}
	svg := string(out["svg"])
	if !strings.Contains(svg, "Trial Two") || strings.Contains(svg, "Trial One") {
		t.Error("svg does not carry the requested title")
	}
}

func TestLayoutKeyNormalizesAlongside(t *testing.T) {
	keyer := cache.NewDefaultKeyer()
	key := func(a design.Alongside) string {
		opts := seeded(3)
		opts.Design.Alongside = a
		return keyer.LayoutKey(opts.LayoutKeyOpts())
	}

	want := key(design.AlongsideNo)
	for _, a := range []design.Alongside{"", "NO", " no "} {
		if got := key(a); got != want {
			t.Errorf("key(%q) = %s, want %s", a, got, want)
		}
	}
	if key(design.AlongsideRows) == want {
		t.Error("rows and no produced the same key")
	}
}

func TestRenderInvalidViz(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	opts := seeded(1)
	_, book, err := r.Generate(context.Background(), opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	opts.Viz = "tower"
	opts.Formats = []string{"svg"}
	if _, err := r.Render(context.Background(), book, opts); !errors.Is(err, errors.ErrCodeInvalidVizType) {
		t.Errorf("Render() error = %v, want INVALID_VIZ_TYPE", err)
	}
}
