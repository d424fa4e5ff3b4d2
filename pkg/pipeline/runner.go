package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fieldbook/pkg/cache"
	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/observability"
	"github.com/matzehuels/fieldbook/pkg/render/fieldmap"
	"github.com/matzehuels/fieldbook/pkg/verify"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger; multiple
// goroutines can share one with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer uses DefaultKeyer and a nil
// cache disables caching.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs generate, verify and render.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.logger(opts)
	result := &Result{}

	opts.enter(StageGenerate, fmt.Sprintf("%d genotypes, %d blocks", len(opts.Design.Genotypes), opts.Design.Blocks))
	start := time.Now()
	plan, book, hit, err := r.GenerateWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Plan, result.Book = plan, book
	result.CacheInfo.LayoutHit = hit
	result.Stats.GenerateTime = time.Since(start)
	result.Stats.Plots = book.Len()
	result.Stats.Blocks = book.Blocks
	logger.Info("generated layout",
		"plots", book.Len(),
		"blocks", book.Blocks,
		"seed", seedOf(book),
		"cached", hit,
		"duration", result.Stats.GenerateTime)

	opts.enter(StageVerify, fmt.Sprintf("%d plots", book.Len()))
	start = time.Now()
	result.Report = r.Verify(ctx, book)
	result.Stats.VerifyTime = time.Since(start)
	if !result.Report.OK() {
		return nil, errors.New(errors.ErrCodeInternal, "generated layout failed verification: %s", result.Report.Summary())
	}
	if result.Report.HasEchoes() {
		logger.Warn("layout repeats positions across blocks", "echoes", len(result.Report.AcrossBlocks))
	}

	if result.BookHash, err = BookHash(book); err != nil {
		return nil, err
	}
	if len(opts.Formats) == 0 {
		return result, nil
	}

	opts.enter(StageRender, strings.Join(opts.Formats, ", "))
	start = time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, book, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = hit
	result.Stats.RenderTime = time.Since(start)
	logger.Info("rendered outputs", "formats", opts.Formats, "cached", hit, "duration", result.Stats.RenderTime)

	return result, nil
}

// cachedLayout is the cache payload of a generated layout.
type cachedLayout struct {
	Plan *design.Plan    `json:"plan"`
	Book *fieldbook.Book `json:"book"`
}

// GenerateWithCacheInfo generates a layout and reports whether it came from
// cache. Only seeded layouts are cached; without a seed every call draws a
// new one.
func (r *Runner) GenerateWithCacheInfo(ctx context.Context, opts Options) (*design.Plan, *fieldbook.Book, bool, error) {
	if err := opts.Design.Validate(); err != nil {
		return nil, nil, false, err
	}
	hooks := observability.Pipeline()
	cacheable := opts.Design.Seed != nil && !opts.NoCache

	var key string
	if cacheable {
		key = r.Keyer.LayoutKey(opts.LayoutKeyOpts())
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached cachedLayout
			if err := json.Unmarshal(data, &cached); err == nil && cached.Plan != nil && cached.Book != nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return cached.Plan, cached.Book, true, nil
			}
		} else if err != nil {
			r.logger(opts).Warn("cache read failed", "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	start := time.Now()
	hooks.OnGenerateStart(ctx, len(opts.Design.Genotypes), opts.Design.Blocks)
	plan, book, err := design.Generate(opts.Design)
	plots := 0
	if book != nil {
		plots = book.Len()
	}
	hooks.OnGenerateComplete(ctx, plots, time.Since(start), err)
	if err != nil {
		return nil, nil, false, err
	}

	if cacheable {
		if data, err := json.Marshal(cachedLayout{Plan: plan, Book: book}); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err == nil {
				observability.Cache().OnCacheSet(ctx, "layout", len(data))
			}
		}
	}
	return plan, book, false, nil
}

// Generate is GenerateWithCacheInfo without the cache hit flag.
func (r *Runner) Generate(ctx context.Context, opts Options) (*design.Plan, *fieldbook.Book, error) {
	plan, book, _, err := r.GenerateWithCacheInfo(ctx, opts)
	return plan, book, err
}

// Verify checks a book. It never fails; problems are in the report.
func (r *Runner) Verify(ctx context.Context, book *fieldbook.Book) verify.Report {
	start := time.Now()
	report := verify.Check(book)
	observability.Pipeline().OnVerifyComplete(ctx, report.OK(), len(report.AcrossBlocks), time.Since(start))
	return report
}

// RenderWithCacheInfo renders every requested format and reports whether
// all of them came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, book *fieldbook.Book, opts Options) (map[string][]byte, bool, error) {
	opts.SetDefaults()
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	bookHash, err := BookHash(book)
	if err != nil {
		return nil, false, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.NoCache {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(bookHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered, err := Render(ctx, book, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if !opts.NoCache {
		for format, data := range rendered {
			key := r.Keyer.ArtifactKey(bookHash, opts.ArtifactKeyOpts(format))
			if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
				observability.Cache().OnCacheSet(ctx, "artifact", len(data))
			}
		}
	}
	return rendered, false, nil
}

// Render is RenderWithCacheInfo without the cache hit flag.
func (r *Runner) Render(ctx context.Context, book *fieldbook.Book, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, book, opts)
	return artifacts, err
}

// Render produces each requested format without caching.
func Render(ctx context.Context, book *fieldbook.Book, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := fieldmap.Render(ctx, book, format, opts.fieldmapOptions())
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// BookHash identifies a book's content for artifact caching.
func BookHash(book *fieldbook.Book) (string, error) {
	h, err := cache.HashJSON(book)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "hash field book")
	}
	return h, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}

func seedOf(book *fieldbook.Book) any {
	if book.Seed == nil {
		return "none"
	}
	return *book.Seed
}
