package tune

import (
	"reflect"
	"testing"

	"github.com/YuminosukeSato/modelflow/pkg/errors"
)

func TestGridRegularCrossProduct(t *testing.T) {
	space := Space{
		"max_depth":        IntRange{1, 3},
		"min_samples_leaf": List{1, 5},
	}

	grid, err := GridRegular(space, 3)
	if err != nil {
		t.Fatalf("GridRegular failed: %v", err)
	}

	// 名前はソート順に並び、末尾のパラメータが最も速く変わる
	want := []struct {
		depth, leaf float64
	}{
		{1, 1}, {1, 5},
		{2, 1}, {2, 5},
		{3, 1}, {3, 5},
	}
	if len(grid) != len(want) {
		t.Fatalf("grid size = %d, want %d", len(grid), len(want))
	}
	for i, w := range want {
		if grid[i]["max_depth"] != w.depth || grid[i]["min_samples_leaf"] != w.leaf {
			t.Errorf("assignment %d = %v, want {max_depth:%g min_samples_leaf:%g}",
				i, grid[i], w.depth, w.leaf)
		}
	}
}

func TestGridRegularExpansionOrderDeterministic(t *testing.T) {
	space := Space{
		"c":        Range{0.1, 1.0},
		"max_iter": IntRange{50, 150},
	}

	a, err := GridRegular(space, 4)
	if err != nil {
		t.Fatalf("GridRegular failed: %v", err)
	}
	// マップの反復順に依存しないこと
	for range [20]struct{}{} {
		b, err := GridRegular(space, 4)
		if err != nil {
			t.Fatalf("GridRegular failed: %v", err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatal("identical spaces expanded to different grids")
		}
	}
}

func TestGridRegularRangeLevels(t *testing.T) {
	grid, err := GridRegular(Space{"c": Range{0, 1}}, 5)
	if err != nil {
		t.Fatalf("GridRegular failed: %v", err)
	}

	want := []float64{0, 0.25, 0.5, 0.75, 1}
	if len(grid) != len(want) {
		t.Fatalf("grid size = %d, want %d", len(grid), len(want))
	}
	for i, w := range want {
		if got := grid[i]["c"]; got != w {
			t.Errorf("level %d = %v, want %v", i, got, w)
		}
	}
}

func TestGridRegularIntRangeDeduplicates(t *testing.T) {
	// 幅2の整数区間に5レベル要求しても整数は3つしかない
	grid, err := GridRegular(Space{"max_depth": IntRange{1, 3}}, 5)
	if err != nil {
		t.Fatalf("GridRegular failed: %v", err)
	}
	if len(grid) != 3 {
		t.Fatalf("grid size = %d, want 3", len(grid))
	}
	for i, w := range []float64{1, 2, 3} {
		if got := grid[i]["max_depth"]; got != w {
			t.Errorf("level %d = %v, want %v", i, got, w)
		}
	}
}

func TestGridRegularValueAndSingleLevel(t *testing.T) {
	space := Space{
		"c":        Value(0.5),
		"max_iter": IntRange{50, 200},
	}

	grid, err := GridRegular(space, 1)
	if err != nil {
		t.Fatalf("GridRegular failed: %v", err)
	}
	if len(grid) != 1 {
		t.Fatalf("grid size = %d, want 1", len(grid))
	}
	if grid[0]["c"] != 0.5 || grid[0]["max_iter"] != 50 {
		t.Errorf("assignment = %v, want {c:0.5 max_iter:50}", grid[0])
	}
}

func TestGridRegularValidation(t *testing.T) {
	check := func(name string, _ Grid, err error) {
		t.Helper()
		var valErr *errors.ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("%s: expected ValidationError, got %v", name, err)
		}
	}

	g, err := GridRegular(Space{}, 3)
	check("empty space", g, err)

	g, err = GridRegular(Space{"c": Range{0, 1}}, 0)
	check("levels < 1", g, err)

	g, err = GridRegular(Space{"c": Range{1, 0}}, 3)
	check("inverted range", g, err)

	g, err = GridRegular(Space{"c": List{}}, 3)
	check("empty list", g, err)

	g, err = GridRegular(Space{"c": nil}, 3)
	check("nil domain", g, err)
}

func TestGridRandomReproducible(t *testing.T) {
	space := Space{
		"c":         Range{0.01, 10},
		"max_depth": IntRange{1, 30},
		"criterion": List{0, 1},
	}

	a, err := GridRandom(space, 25, 7)
	if err != nil {
		t.Fatalf("GridRandom failed: %v", err)
	}
	b, err := GridRandom(space, 25, 7)
	if err != nil {
		t.Fatalf("GridRandom failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical seeds produced different grids")
	}

	c, err := GridRandom(space, 25, 8)
	if err != nil {
		t.Fatalf("GridRandom failed: %v", err)
	}
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical grids")
	}
}

func TestGridRandomBounds(t *testing.T) {
	grid, err := GridRandom(Space{"c": Range{0.5, 2.5}, "max_depth": IntRange{2, 6}}, 100, 3)
	if err != nil {
		t.Fatalf("GridRandom failed: %v", err)
	}
	if len(grid) != 100 {
		t.Fatalf("grid size = %d, want 100", len(grid))
	}
	for i, params := range grid {
		if c := params["c"]; c < 0.5 || c >= 2.5 {
			t.Errorf("draw %d: c = %v outside [0.5, 2.5)", i, c)
		}
		d := params["max_depth"]
		if d != float64(int(d)) || d < 2 || d > 6 {
			t.Errorf("draw %d: max_depth = %v outside integer range [2, 6]", i, d)
		}
	}
}

func TestGridRandomValidation(t *testing.T) {
	_, err := GridRandom(Space{}, 5, 1)
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("empty space: expected ValidationError, got %v", err)
	}

	_, err = GridRandom(Space{"c": Range{0, 1}}, 0, 1)
	if !errors.As(err, &valErr) {
		t.Errorf("n < 1: expected ValidationError, got %v", err)
	}
}

func TestGridCloneIsDeep(t *testing.T) {
	grid, err := GridRegular(Space{"c": List{0.1, 1}}, 1)
	if err != nil {
		t.Fatalf("GridRegular failed: %v", err)
	}

	clone := grid.Clone()
	clone[0]["c"] = 99
	if grid[0]["c"] != 0.1 {
		t.Error("mutating the clone leaked into the source grid")
	}
}
