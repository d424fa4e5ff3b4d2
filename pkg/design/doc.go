// Package design generates randomized complete-block field layouts.
//
// # Overview
//
// A layout places every genotype of a trial exactly once in each block. Each
// block is a rows x columns grid; the genotypes of a block are shuffled
// independently and poured into the grid column by column, each column
// holding at most its capacity. The filled cells are then numbered into a
// field book, either column-major (linear) or row by row with alternating
// direction (serpentine), and optionally remapped so that all blocks share
// one combined grid (alongside).
//
// # Pipeline
//
//  1. Sizing: derive the grid extent and per-column capacities from the
//     genotype count, the block count and the column options.
//  2. Assignment: one permutation per block, filled column-major.
//  3. Numbering: cumulative plot numbers across blocks.
//  4. Alongside: shift block coordinates into one combined grid.
//
// # Usage
//
//	seed := uint64(42)
//	plan, book, err := design.Generate(design.Options{
//	    Genotypes:  []string{"A", "B", "C", "D"},
//	    Blocks:     2,
//	    Columns:    2,
//	    Serpentine: true,
//	    Alongside:  design.AlongsideRows,
//	    Seed:       &seed,
//	})
//
// Configuration errors are returned before any randomization takes place.
// Randomness always comes from an explicit [math/rand/v2.Rand]; concurrent
// calls never share a source.
package design
