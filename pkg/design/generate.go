package design

import (
	"math/rand/v2"
	"slices"

	"github.com/matzehuels/fieldbook/pkg/fieldbook"
)

// Generate builds a plan and its field book. The random source is seeded
// from Options.Seed, or from a fresh seed that is recorded in the book.
func Generate(opts Options) (*Plan, *fieldbook.Book, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	seed := opts.seedOrRandom()
	opts.Seed = &seed
	return GenerateWithRand(opts, newRand(seed))
}

// GenerateWithRand is Generate with a caller-supplied random source.
// Options.Seed is only recorded in the book. A nil rng behaves like Generate.
func GenerateWithRand(opts Options, rng *rand.Rand) (*Plan, *fieldbook.Book, error) {
	if rng == nil {
		return Generate(opts)
	}
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	alongside, _ := ParseAlongside(string(opts.Alongside))

	ng, nb := len(opts.Genotypes), opts.Blocks
	spec, err := sizeGrid(ng, nb, opts)
	if err != nil {
		return nil, nil, err
	}

	plan := assign(opts.Genotypes, nb, spec, rng)
	plots := number(plan, opts.Serpentine)
	if err := applyAlongside(plots, alongside, spec.rows, spec.cols); err != nil {
		return nil, nil, err
	}

	book := &fieldbook.Book{
		Genotypes:  slices.Clone(opts.Genotypes),
		Blocks:     nb,
		Rows:       spec.rows,
		Columns:    spec.cols,
		Capacities: slices.Clone(spec.capacities),
		Serpentine: opts.Serpentine,
		Alongside:  string(alongside),
		Plots:      plots,
	}
	if opts.Seed != nil {
		s := *opts.Seed
		book.Seed = &s
	}
	return plan, book, nil
}
