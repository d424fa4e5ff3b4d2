package design

import "math/rand/v2"

// newRand returns the PCG source used for a seed.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// randomSeed stays below 2^63 so seeds survive BSON and JSON number handling.
func randomSeed() uint64 {
	return uint64(rand.Int64())
}

// assign shuffles the genotypes once per block and fills each grid
// column-major, up to each column's capacity.
func assign(genotypes []string, nb int, spec gridSpec, rng *rand.Rand) *Plan {
	plan := &Plan{
		Rows:       spec.rows,
		Columns:    spec.cols,
		Capacities: append([]int(nil), spec.capacities...),
		Blocks:     make(map[int]Grid, nb),
	}
	for k := 1; k <= nb; k++ {
		grid := NewGrid(spec.rows, spec.cols)
		perm := rng.Perm(len(genotypes))
		next := 0
		for c, capacity := range spec.capacities {
			for r := 0; r < capacity && next < len(perm); r++ {
				grid[r][c] = Cell{Genotype: genotypes[perm[next]], Filled: true}
				next++
			}
		}
		plan.Blocks[k] = grid
	}
	return plan
}
