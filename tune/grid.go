package tune

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/modelflow/core/model"
	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

// Grid is a finite ordered sequence of fully-bound hyperparameter
// assignments. The position of an assignment is its id in every result.
type Grid []model.Params

// GridRegular expands the space into the full cross product of each
// domain's candidate levels. Parameter names are taken in sorted order
// and the last name varies fastest, so the expansion order is fixed
// regardless of map iteration.
func GridRegular(space Space, levels int) (Grid, error) {
	if len(space) == 0 {
		return nil, errors.NewValidationError("space", "must contain at least one domain", len(space))
	}
	if levels < 1 {
		return nil, errors.NewValidationError("levels", "must be at least 1", levels)
	}

	names := space.names()
	candidates := make([][]float64, len(names))
	total := 1
	for i, name := range names {
		d := space[name]
		if d == nil || !d.valid() {
			return nil, errors.NewValidationError(name, "domain is empty or inverted", d)
		}
		candidates[i] = d.levels(levels)
		total *= len(candidates[i])
	}

	grid := make(Grid, 0, total)
	odometer := make([]int, len(names))
	for {
		params := make(model.Params, len(names))
		for i, name := range names {
			params[name] = candidates[i][odometer[i]]
		}
		grid = append(grid, params)

		// 末尾の桁から繰り上げる
		pos := len(odometer) - 1
		for pos >= 0 {
			odometer[pos]++
			if odometer[pos] < len(candidates[pos]) {
				break
			}
			odometer[pos] = 0
			pos--
		}
		if pos < 0 {
			return grid, nil
		}
	}
}

// GridRandom draws n assignments by sampling every domain independently
// with a seeded source. Draws are independent, so assignments can
// repeat; identical seeds produce identical grids.
func GridRandom(space Space, n int, seed uint64) (Grid, error) {
	if len(space) == 0 {
		return nil, errors.NewValidationError("space", "must contain at least one domain", len(space))
	}
	if n < 1 {
		return nil, errors.NewValidationError("n", "must be at least 1", n)
	}

	names := space.names()
	for _, name := range names {
		d := space[name]
		if d == nil || !d.valid() {
			return nil, errors.NewValidationError(name, "domain is empty or inverted", d)
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	grid := make(Grid, 0, n)
	for i := 0; i < n; i++ {
		params := make(model.Params, len(names))
		for _, name := range names {
			params[name] = space[name].sample(rng)
		}
		grid = append(grid, params)
	}
	return grid, nil
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for i, params := range g {
		out[i] = params.Clone()
	}
	return out
}
