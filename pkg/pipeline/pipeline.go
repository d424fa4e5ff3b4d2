// Package pipeline runs the generate → verify → render pipeline for field
// layouts.
//
// The CLI and the HTTP server both go through a [Runner] so that caching,
// validation and defaults behave the same at every entry point.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	seed := uint64(42)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Design:  design.Options{Genotypes: names, Blocks: 4, Seed: &seed},
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Stages can also run on their own:
//
//	plan, book, err := runner.Generate(ctx, opts)
//	report := runner.Verify(ctx, book)
//	artifacts, err := runner.Render(ctx, book, opts)
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fieldbook/pkg/cache"
	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/render/fieldmap"
	"github.com/matzehuels/fieldbook/pkg/verify"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultViz is the default visualization.
	DefaultViz = fieldmap.VizHeatmap

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0
)

// Output formats. Field book encodings (json, csv, xlsx) are written by
// package fieldbook; these are the rendered ones.
const (
	FormatSVG = fieldmap.FormatSVG
	FormatPNG = fieldmap.FormatPNG
	FormatPDF = fieldmap.FormatPDF
	FormatDOT = fieldmap.FormatDOT
)

// ValidFormats is the set of supported render formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
	FormatDOT: true,
}

// ValidVizTypes is the set of supported visualizations.
var ValidVizTypes = map[string]bool{
	fieldmap.VizHeatmap:  true,
	fieldmap.VizGraphviz: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one pipeline run. It is also the body of API layout
// requests.
type Options struct {
	Design design.Options `json:"design"`

	// Render options. No formats means no rendering.
	Formats     []string `json:"formats,omitempty"`
	Viz         string   `json:"viz,omitempty"`
	ShowNumbers bool     `json:"show_numbers,omitempty"`
	Scale       float64  `json:"scale,omitempty"`
	Title       string   `json:"title,omitempty"`

	// NoCache bypasses the cache for reads and writes.
	NoCache bool `json:"-"`

	// Progress, when set, is called as Execute enters each stage.
	Progress func(stage Stage, detail string) `json:"-"`

	Logger *log.Logger `json:"-"`
}

// Stage names a step of Runner.Execute.
type Stage string

const (
	StageGenerate Stage = "generate"
	StageVerify   Stage = "verify"
	StageRender   Stage = "render"
)

func (o *Options) enter(stage Stage, detail string) {
	if o.Progress != nil {
		o.Progress(stage, detail)
	}
}

// ValidateAndSetDefaults fills defaults and validates every stage's options.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	if err := o.Design.Validate(); err != nil {
		return err
	}
	return o.ValidateForRender()
}

// SetDefaults fills unset render options.
func (o *Options) SetDefaults() {
	if o.Viz == "" {
		o.Viz = DefaultViz
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
}

// ValidateForRender checks the render options.
func (o *Options) ValidateForRender() error {
	if err := ValidateVizType(o.Viz); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be positive, got %g", o.Scale)
	}
	for _, f := range o.Formats {
		if f == FormatDOT && o.Viz != fieldmap.VizGraphviz {
			return errors.New(errors.ErrCodeInvalidFormat, "dot output requires the graphviz visualization")
		}
	}
	return nil
}

// ValidateFormat checks a single render format. Formats are case-sensitive.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (want svg, png, pdf or dot)", format)
	}
	return nil
}

// ValidateFormats checks every format. An empty list is valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVizType checks the visualization name.
func ValidateVizType(viz string) error {
	if !ValidVizTypes[viz] {
		return errors.New(errors.ErrCodeInvalidVizType, "invalid visualization %q (want heatmap or graphviz)", viz)
	}
	return nil
}

// LayoutKeyOpts returns the cache key inputs of the design options. Only
// meaningful when a seed is set.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	d := o.Design
	k := cache.LayoutKeyOpts{
		Genotypes:        d.Genotypes,
		Blocks:           d.Blocks,
		Columns:          d.Columns,
		VariableCapacity: d.VariableCapacity,
		Capacities:       d.Capacities,
		Serpentine:       d.Serpentine,
		Alongside:        string(d.Alongside),
	}
	if a, err := design.ParseAlongside(string(d.Alongside)); err == nil {
		k.Alongside = string(a)
	}
	if d.Seed != nil {
		k.Seed = *d.Seed
	}
	return k
}

// ArtifactKeyOpts returns the cache key inputs of one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, Viz: o.Viz, ShowNumbers: o.ShowNumbers, Title: o.Title}
	if format == FormatPNG {
		k.Scale = o.Scale
	}
	return k
}

func (o *Options) fieldmapOptions() fieldmap.Options {
	return fieldmap.Options{Viz: o.Viz, ShowNumbers: o.ShowNumbers, Scale: o.Scale, Title: o.Title}
}

// =============================================================================
// Result - Pipeline Output
// =============================================================================

// Result holds everything a pipeline run produced.
type Result struct {
	Plan      *design.Plan      `json:"plan"`
	Book      *fieldbook.Book   `json:"book"`
	Report    verify.Report     `json:"report"`
	Artifacts map[string][]byte `json:"-"`
	BookHash  string            `json:"book_hash"`
	CacheInfo CacheInfo         `json:"cache"`
	Stats     Stats             `json:"stats"`
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	LayoutHit bool `json:"layout_hit"`
	RenderHit bool `json:"render_hit"`
}

// Stats holds stage timings and sizes.
type Stats struct {
	GenerateTime time.Duration `json:"generate_ns"`
	VerifyTime   time.Duration `json:"verify_ns"`
	RenderTime   time.Duration `json:"render_ns"`
	Plots        int           `json:"plots"`
	Blocks       int           `json:"blocks"`
}
