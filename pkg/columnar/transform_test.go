package columnar

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func column(t *testing.T, d *DataCurve, name string) []float64 {
	t.Helper()
	data, err := d.Column(name)
	require.NoError(t, err)
	return data
}

func TestFilterPositive(t *testing.T) {
	d := mustNew(t,
		ColumnField("X", "", []float64{0, 1, 2, 3}),
		ColumnField("Y", "", []float64{-1, 2, -3, 4}),
	)
	mask, err := d.Where("Y", func(v float64) bool { return v > 0 })
	require.NoError(t, err)

	require.NoError(t, d.Filter(mask))
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []float64{2, 4}, column(t, d, "Y"))
	assert.Equal(t, []float64{1, 3}, column(t, d, "X"))
	assertAligned(t, d)
}

func TestFilterRejectsWrongMaskLength(t *testing.T) {
	d := mustNew(t, ColumnField("Y", "", []float64{1, 2}))
	err := d.Filter(Mask{true})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
	assert.Equal(t, []float64{1, 2}, column(t, d, "Y"))

	_, err = d.Where("nope", func(float64) bool { return true })
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnknownColumn))
}

func TestFilteredLeavesSourceIntact(t *testing.T) {
	d := mustNew(t, ColumnField("Y", "", []float64{-1, 2, -3, 4}))

	out, err := d.Filtered(Mask{false, true, false, true})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, column(t, out, "Y"))
	assert.Equal(t, []float64{-1, 2, -3, 4}, column(t, d, "Y"))
}

func TestSelectValueAndRange(t *testing.T) {
	d := mustNew(t,
		ColumnField("T", "K", []float64{1.98, 2.0, 2.03, 5, 10}),
		ColumnField("R", "ohm", []float64{1, 2, 3, 4, 5}),
	)

	near, err := d.Derive(func(c *DataCurve) error { return c.SelectValue("T", 2, 0.05) })
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, column(t, near, "R"))

	mid, err := d.Derive(func(c *DataCurve) error { return c.SelectRange("T", 2, 10) })
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, column(t, mid, "R"))

	assert.Equal(t, 5, d.Len())
	assert.True(t, errors.IsType(d.SelectValue("x", 0, 1), errors.ErrorTypeUnknownColumn))
	assert.True(t, errors.IsType(d.SelectRange("x", 0, 1), errors.ErrorTypeUnknownColumn))
}

func TestGradient(t *testing.T) {
	g, err := Gradient([]float64{1, 2, 4, 7, 11})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1.5, 2.5, 3.5, 4}, g)

	g, err = Gradient(nil)
	require.NoError(t, err)
	assert.Empty(t, g)

	_, err = Gradient([]float64{1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestSelectDirection(t *testing.T) {
	// Field sweep 0 -> 2 -> -2 -> 0.
	field := []float64{0, 1, 2, 1, 0, -1, -2, -1, 0}
	idx := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}
	d := mustNew(t, ColumnField("H", "Oe", field), ColumnField("i", "", idx))

	up, err := d.Derive(func(c *DataCurve) error { return c.SelectDirection("H", +1) })
	require.NoError(t, err)
	// Index 2 has zero centered gradient and is dropped.
	assert.Equal(t, []float64{0, 1, 7, 8}, column(t, up, "i"))

	down, err := d.Derive(func(c *DataCurve) error { return c.SelectDirection("H", -1) })
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, column(t, down, "i"))

	assert.True(t, errors.IsType(d.SelectDirection("H", 0), errors.ErrorTypeValidation))
	assert.True(t, errors.IsType(d.SelectDirection("x", 1), errors.ErrorTypeUnknownColumn))
}

func TestAverageMultipleMeasurement(t *testing.T) {
	d := mustNew(t,
		ColumnField("x", "", []float64{0.95, 1.05, 1.95, 2.05}),
		ColumnField("y", "", []float64{1, 1, 2, 2}),
	)

	require.NoError(t, d.AverageMultipleMeasurement("x", 1))
	assert.Equal(t, 2, d.Len())
	assert.True(t, cmp.Equal([]float64{1, 2}, column(t, d, "y"), approx))
	assert.True(t, cmp.Equal([]float64{1, 2}, column(t, d, "x"), approx))
	assertAligned(t, d)
}

func TestAverageMultipleMeasurementOverlappingWindows(t *testing.T) {
	// 1.6 rounds to 2 but lies within step/sqrt(2) of 1 as well.
	d := mustNew(t,
		ColumnField("x", "", []float64{1.0, 1.6, 2.0}),
		ColumnField("y", "", []float64{0, 3, 6}),
	)

	require.NoError(t, d.AverageMultipleMeasurement("x", 1))
	assert.True(t, cmp.Equal([]float64{1.5, 4.5}, column(t, d, "y"), approx))
}

func TestAverageMultipleMeasurementNonFiniteControl(t *testing.T) {
	d := mustNew(t,
		ColumnField("x", "", []float64{1, math.NaN(), 1, math.Inf(1)}),
		ColumnField("y", "", []float64{2, 100, 4, 7}),
	)

	require.NoError(t, d.AverageMultipleMeasurement("x", 1))
	nan := cmpopts.EquateNaNs()
	// The NaN row joins no bin; the infinite one gets a bin nothing falls into.
	assert.True(t, cmp.Equal([]float64{1, math.NaN()}, column(t, d, "x"), nan))
	assert.True(t, cmp.Equal([]float64{3, math.NaN()}, column(t, d, "y"), nan))
	assertAligned(t, d)
}

func TestAverageMultipleMeasurementErrors(t *testing.T) {
	d := mustNew(t, ColumnField("x", "", []float64{1, 2}))
	assert.True(t, errors.IsType(d.AverageMultipleMeasurement("x", 0), errors.ErrorTypeValidation))
	assert.True(t, errors.IsType(d.AverageMultipleMeasurement("x", math.NaN()), errors.ErrorTypeValidation))
	assert.True(t, errors.IsType(d.AverageMultipleMeasurement("z", 1), errors.ErrorTypeUnknownColumn))
	assert.Equal(t, []float64{1, 2}, column(t, d, "x"))
}

func TestQuantizedGrid(t *testing.T) {
	grid := QuantizedGrid([]float64{2.1, math.NaN(), -0.4, 0.2, 1.9}, 0.5)
	assert.Equal(t, []float64{-0.5, 0, 2}, grid)
}

func TestInterpolate(t *testing.T) {
	d := mustNew(t,
		ColumnField("x", "", []float64{0, 1, 2, 3}),
		ColumnField("y", "", []float64{0, 1, 4, 9}),
	)

	out, err := d.Interpolated("x", []float64{1.5})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, []float64{1.5}, column(t, out, "x"))
	assert.InDelta(t, 2.5, column(t, out, "y")[0], 1e-12)

	// Source untouched.
	assert.Equal(t, 4, d.Len())
}

func TestInterpolateExtrapolatesAndSorts(t *testing.T) {
	d := mustNew(t,
		ColumnField("x", "", []float64{3, 2, 1, 0}),
		ColumnField("y", "", []float64{9, 4, 1, 0}),
	)

	xs := []float64{-1, 0.5, 4}
	require.NoError(t, d.Interpolate("x", xs))
	assert.Equal(t, xs, column(t, d, "x"))
	assert.True(t, cmp.Equal([]float64{-1, 0.5, 14}, column(t, d, "y"), approx))
	assertAligned(t, d)

	xs[0] = 100
	assert.Equal(t, -1.0, column(t, d, "x")[0])
}

func TestInterpolateErrors(t *testing.T) {
	d := mustNew(t, ColumnField("x", "", []float64{1}), ColumnField("y", "", []float64{2}))
	err := d.Interpolate("x", []float64{1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, []float64{2}, column(t, d, "y"))

	assert.True(t, errors.IsType(d.Interpolate("z", nil), errors.ErrorTypeUnknownColumn))
}

func TestYAtX(t *testing.T) {
	d := mustNew(t,
		ColumnField("x", "", []float64{0, 1, 2, 3}),
		ColumnField("y", "", []float64{0, 1, 4, 9}),
	)
	ys, err := d.YAtX("x", "y", []float64{0.5, 2.5})
	require.NoError(t, err)
	assert.True(t, cmp.Equal([]float64{0.5, 6.5}, ys, approx))

	_, err = d.YAtX("x", "z", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnknownColumn))
}

func symmetrizeInput(t *testing.T) *DataCurve {
	return mustNew(t,
		ColumnField("x", "", []float64{-2, -1, 0, 1, 2}),
		ColumnField("y", "", []float64{4, 1, 0, 1, 4}),
		ColumnField("z", "", []float64{-2, -1, 0, 1, 2}),
		ColumnField("w", "", []float64{7, 7, 7, 7, 7}),
	)
}

func TestSymmetrizeEvenFunction(t *testing.T) {
	d := symmetrizeInput(t)

	sym, err := d.Symmetrized("x", []string{"y"}, nil, GridStep(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, sym.ColumnNames())
	assert.True(t, cmp.Equal([]float64{0, 1, 2}, column(t, sym, "x"), approx))
	assert.True(t, cmp.Equal([]float64{0, 1, 4}, column(t, sym, "y"), approx))

	anti, err := d.Symmetrized("x", nil, []string{"y"}, GridStep(1))
	require.NoError(t, err)
	assert.True(t, cmp.Equal([]float64{0, 0, 0}, column(t, anti, "y"), approx))
}

func TestSymmetrizeOddFunctionAndDrop(t *testing.T) {
	d := symmetrizeInput(t)

	out, err := d.Symmetrized("x", []string{"y"}, []string{"z"}, GridValues([]float64{0.5, 1.5}))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, out.ColumnNames())
	assert.Equal(t, []float64{0.5, 1.5}, column(t, out, "x"))
	assert.True(t, cmp.Equal([]float64{0.5, 2.5}, column(t, out, "y"), approx))
	assert.True(t, cmp.Equal([]float64{0.5, 1.5}, column(t, out, "z"), approx))
	assertAligned(t, out)
}

func TestSymmetrizeGridSpecification(t *testing.T) {
	d := symmetrizeInput(t)

	err := d.Symmetrize("x", []string{"y"}, nil, SymmetrizeGrid{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeAmbiguousGrid))

	err = d.Symmetrize("x", []string{"y"}, nil, SymmetrizeGrid{Values: []float64{1}, Step: 1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeAmbiguousGrid))

	err = d.Symmetrize("x", []string{"y"}, []string{"y"}, GridStep(1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	err = d.Symmetrize("x", []string{"nope"}, nil, GridStep(1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnknownColumn))

	// Failed calls leave the table unchanged.
	assert.Equal(t, 4, d.NumColumns())
	assert.Equal(t, 5, d.Len())
}

func TestAutoSymmetricGrid(t *testing.T) {
	grid, err := AutoSymmetricGrid([]float64{-3, 1.26, 0}, 0.5)
	require.NoError(t, err)
	assert.True(t, cmp.Equal([]float64{0, 0.5, 1, 1.5}, grid, approx))

	grid, err = AutoSymmetricGrid([]float64{-1, 0.1}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, grid)

	grid, err = AutoSymmetricGrid([]float64{-5, -3}, 1)
	require.NoError(t, err)
	assert.Empty(t, grid)

	_, err = AutoSymmetricGrid([]float64{1}, -1)
	assert.Error(t, err)
	_, err = AutoSymmetricGrid([]float64{math.NaN()}, 1)
	assert.Error(t, err)
}

func TestSortByStable(t *testing.T) {
	d := mustNew(t,
		ColumnField("k", "", []float64{2, 1, 2, 0}),
		ColumnField("v", "", []float64{10, 20, 30, 40}),
	)
	require.NoError(t, d.SortBy("k"))
	assert.Equal(t, []float64{0, 1, 2, 2}, column(t, d, "k"))
	assert.Equal(t, []float64{40, 20, 10, 30}, column(t, d, "v"))

	assert.True(t, errors.IsType(d.SortBy("z"), errors.ErrorTypeUnknownColumn))
}

func TestAppend(t *testing.T) {
	a := mustNew(t, ColumnField("x", "", []float64{1, 2}), ColumnField("y", "", []float64{3, 4}))
	b := mustNew(t, ColumnField("y", "", []float64{30}), ColumnField("x", "", []float64{10}))

	merged, err := a.Merge(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 10}, column(t, merged, "x"))
	assert.Equal(t, []float64{3, 4, 30}, column(t, merged, "y"))
	assert.Equal(t, 2, a.Len())

	require.NoError(t, a.Append(a))
	assert.Equal(t, []float64{1, 2, 1, 2}, column(t, a, "x"))

	c := mustNew(t, ColumnField("x", "", []float64{1}), ColumnField("z", "", []float64{1}))
	err = a.Append(c)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
	assert.Equal(t, 4, a.Len())
}

func TestSliceAndExtract(t *testing.T) {
	d := mustNew(t, ColumnField("x", "", []float64{1, 2, 3, 4}))

	s, err := d.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, column(t, s, "x"))
	_, err = d.Slice(3, 5)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	out, err := d.Extract(Mask{true, false, true, false}, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, column(t, out, "x"))
	assert.Equal(t, []float64{2, 4}, column(t, d, "x"))

	kept, err := d.Extract(Mask{true, false}, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, column(t, kept, "x"))
	assert.Equal(t, 2, d.Len())

	_, err = d.Extract(Mask{true}, true)
	assert.Error(t, err)
	assert.Equal(t, 2, d.Len())
}
