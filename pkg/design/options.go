package design

import (
	"math"
	"strings"

	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
)

// MaxPlots caps genotypes times blocks for a single layout.
const MaxPlots = 1 << 20

// Alongside selects how blocks share coordinates in the field book.
type Alongside string

const (
	// AlongsideNo keeps per-block coordinates.
	AlongsideNo Alongside = fieldbook.AlongsideNo
	// AlongsideRows places blocks next to each other along the column axis.
	AlongsideRows Alongside = fieldbook.AlongsideRows
	// AlongsideColumns stacks blocks along the row axis.
	AlongsideColumns Alongside = fieldbook.AlongsideColumns
)

// ParseAlongside parses "no", "rows" or "columns". Empty means "no".
func ParseAlongside(s string) (Alongside, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return AlongsideNo, nil
	}
	if err := errors.ValidateEnum(errors.ErrCodeInvalidAlongside, "alongside", v,
		string(AlongsideNo), string(AlongsideRows), string(AlongsideColumns)); err != nil {
		return "", err
	}
	return Alongside(v), nil
}

// ParseSerpentine parses a yes/no switch. Accepts yes, no, y, n, true,
// false, 1 and 0.
func ParseSerpentine(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0":
		return false, nil
	}
	return false, errors.New(errors.ErrCodeInvalidSerpentine, "invalid serpentine %q (want yes or no)", s)
}

// Options configures layout generation.
type Options struct {
	// Genotypes are the entries placed once per block. At least two,
	// non-empty and distinct.
	Genotypes []string `json:"genotypes" bson:"genotypes"`

	// Blocks is the number of replicates. At least two.
	Blocks int `json:"blocks" bson:"blocks"`

	// Columns per block. Zero derives a square-ish grid from the genotype
	// count (or the capacity list length when VariableCapacity is set).
	Columns int `json:"columns,omitempty" bson:"columns,omitempty"`

	// VariableCapacity enables explicit per-column capacities.
	VariableCapacity bool  `json:"variable_capacity,omitempty" bson:"variable_capacity,omitempty"`
	Capacities       []int `json:"capacities,omitempty" bson:"capacities,omitempty"`

	// Serpentine numbers plots row by row with alternating direction.
	Serpentine bool `json:"serpentine" bson:"serpentine"`

	Alongside Alongside `json:"alongside,omitempty" bson:"alongside,omitempty"`

	// Seed makes assignment reproducible. Nil draws a fresh seed.
	Seed *uint64 `json:"seed,omitempty" bson:"seed,omitempty"`
}

// Validate checks the options without generating anything. It is called by
// Generate; callers only need it to reject a request early.
func (o *Options) Validate() error {
	if err := errors.ValidateMin(errors.ErrCodeInvalidBlocks, "blocks", o.Blocks, 2); err != nil {
		return err
	}
	if err := errors.ValidateMin(errors.ErrCodeInvalidGenotypes, "genotypes", len(o.Genotypes), 2); err != nil {
		return err
	}
	seen := make(map[string]bool, len(o.Genotypes))
	for _, g := range o.Genotypes {
		if err := errors.ValidateLabel("genotype", g); err != nil {
			return err
		}
		if seen[g] {
			return errors.New(errors.ErrCodeDuplicateGenotype, "genotype %q listed more than once", g)
		}
		seen[g] = true
	}
	if o.Seed != nil && *o.Seed > math.MaxInt64 {
		return errors.New(errors.ErrCodeInvalidInput, "seed %d exceeds %d", *o.Seed, int64(math.MaxInt64))
	}
	if o.Columns < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "columns must be positive, got %d", o.Columns)
	}
	if err := o.validateExtent(); err != nil {
		return err
	}
	if _, err := ParseAlongside(string(o.Alongside)); err != nil {
		return err
	}
	_, err := sizeGrid(len(o.Genotypes), o.Blocks, *o)
	return err
}

// validateExtent bounds the grid before anything is allocated. A column or
// capacity beyond the plot count can never be filled.
func (o *Options) validateExtent() error {
	ng, nb := len(o.Genotypes), o.Blocks
	if ng > MaxPlots/nb {
		return errors.New(errors.ErrCodeInvalidInput,
			"%d genotypes in %d blocks exceed the limit of %d plots", ng, nb, MaxPlots)
	}
	plots := ng * nb
	if o.Columns > plots {
		return errors.New(errors.ErrCodeInvalidInput,
			"%d columns exceed the %d plots to place", o.Columns, plots)
	}
	if len(o.Capacities) > plots {
		return errors.New(errors.ErrCodeCapacityMismatch,
			"%d column capacities exceed the %d plots to place", len(o.Capacities), plots)
	}
	for i, c := range o.Capacities {
		if c > plots {
			return errors.New(errors.ErrCodeInvalidInput,
				"capacity of column %d (%d) exceeds the %d plots to place", i+1, c, plots)
		}
	}
	return nil
}

// seedOrRandom returns the configured seed, or draws one.
func (o *Options) seedOrRandom() uint64 {
	if o.Seed != nil {
		return *o.Seed
	}
	return randomSeed()
}
