// Package pkg provides the libraries behind fieldbook, a layout generator and
// data toolkit for randomized field trials.
//
// # Overview
//
// A trial places every genotype (entry, treatment) once per block. The pkg
// directory is organized by stage:
//
//  1. [design] - Grid sizing, random assignment and plot numbering
//  2. [fieldbook] - The field book type and its json, csv and xlsx encodings
//  3. [verify] - Completeness, collision, echo and balance checks
//  4. [render] - Field maps ([render/fieldmap]) and result charts ([render/chart])
//  5. [pipeline] - Orchestration (generate → verify → render) with caching
//  6. [table], [outlier] - Preparing the data collected during the trial
//
// Supporting packages: [cache] (file, Redis), [store] (memory, MongoDB),
// [errors] (coded errors), [observability] (metrics hooks) and [buildinfo].
//
// # Data Flow
//
//	design.Options
//	      ↓
//	 [design] Generate (seeded *rand.Rand)
//	      ↓
//	 *design.Plan + *fieldbook.Book
//	      ↓
//	 [verify] Check ──→ verify.Report
//	      ↓
//	 [render/fieldmap] ──→ SVG/PNG/PDF/DOT
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/fieldbook/pkg/design"
//	    "github.com/matzehuels/fieldbook/pkg/fieldbook"
//	    "github.com/matzehuels/fieldbook/pkg/verify"
//	)
//
//	seed := uint64(42)
//	_, book, err := design.Generate(design.Options{
//	    Genotypes:  []string{"A", "B", "C", "D"},
//	    Blocks:     2,
//	    Columns:    2,
//	    Serpentine: true,
//	    Seed:       &seed,
//	})
//	if err != nil {
//	    return err
//	}
//	report := verify.Check(book)
//	fmt.Println(report.Summary())
//	err = fieldbook.WriteFile(book, "trial.csv")
//
// For caching and rendering in one call, use [pipeline.Runner]:
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Design:  opts,
//	    Formats: []string{"svg", "png"},
//	})
//
// # Trial Data
//
// Measurements arrive as many CSV or XLSX files. [table.JoinFiles] stacks
// them with normalized column names; [table.HandleMissing] reports or fills
// partially missing rows; [outlier.Clean] drops rows outside IQR or z-score
// limits; [table.ScoreTraits] turns grades into points; [chart.Render]
// draws the summary.
package pkg
