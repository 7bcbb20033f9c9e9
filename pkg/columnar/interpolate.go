package columnar

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

// linearInterpolant evaluates a piecewise-linear function through sorted
// points, extending the first and last segments beyond the data.
type linearInterpolant struct {
	xs []float64
	ys []float64
}

func newLinearInterpolant(x, y []float64) (*linearInterpolant, error) {
	order := make([]int, 0, len(x))
	for i, v := range x {
		if !math.IsNaN(v) {
			order = append(order, i)
		}
	}
	if len(order) < 2 {
		return nil, errors.New(errors.ErrorTypeValidation, "interpolation needs at least two points").
			WithDetail("points", len(order))
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(x[a], x[b]) })

	f := &linearInterpolant{
		xs: make([]float64, len(order)),
		ys: make([]float64, len(order)),
	}
	for k, i := range order {
		f.xs[k] = x[i]
		f.ys[k] = y[i]
	}
	return f, nil
}

func (f *linearInterpolant) at(q float64) float64 {
	n := len(f.xs)
	i := sort.SearchFloat64s(f.xs, q)
	switch {
	case i < 1:
		i = 1
	case i > n-1:
		i = n - 1
	}
	x0, x1 := f.xs[i-1], f.xs[i]
	y0, y1 := f.ys[i-1], f.ys[i]
	if x1 == x0 {
		return y0
	}
	return y0 + (q-x0)*(y1-y0)/(x1-x0)
}

func (f *linearInterpolant) atAll(qs []float64) []float64 {
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = f.at(q)
	}
	return out
}

// Interpolate resamples the table onto new values of column x. Every other
// column is evaluated by piecewise-linear interpolation against x, with
// linear extrapolation outside the measured range. Afterwards the x column
// equals xs and the table has len(xs) rows.
func (d *DataCurve) Interpolate(xName string, xs []float64) error {
	xc, err := d.column(xName)
	if err != nil {
		return err
	}

	resampled := make([][]float64, len(d.columns))
	for j, c := range d.columns {
		if c == xc {
			resampled[j] = slices.Clone(xs)
			continue
		}
		f, err := newLinearInterpolant(xc.Data(), c.Data())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeValidation, "cannot interpolate column").
				WithDetail("column", c.name)
		}
		resampled[j] = f.atAll(xs)
	}

	d.replaceData(resampled)
	d.length = len(xs)
	d.capacity = d.length
	return nil
}

// Interpolated is the copy-producing form of Interpolate.
func (d *DataCurve) Interpolated(xName string, xs []float64) (*DataCurve, error) {
	return d.Derive(func(c *DataCurve) error { return c.Interpolate(xName, xs) })
}

// SymmetrizeGrid chooses the x values a symmetrized table is sampled on.
// Exactly one of Values and Step must be set.
type SymmetrizeGrid struct {
	Values []float64
	Step   float64
}

// GridValues samples on explicit x values.
func GridValues(xs []float64) SymmetrizeGrid { return SymmetrizeGrid{Values: xs} }

// GridStep samples from zero to the rounded maximum of x every step.
func GridStep(step float64) SymmetrizeGrid { return SymmetrizeGrid{Step: step} }

// AutoSymmetricGrid returns evenly spaced points from 0 to
// round(max(x)/step)*step, spaced by step.
func AutoSymmetricGrid(x []float64, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, errors.New(errors.ErrorTypeValidation, "step must be positive and finite").
			WithDetail("step", step)
	}
	finite := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "column has no finite values")
	}

	n := int(math.Round(floats.Max(finite)/step)) + 1
	switch {
	case n < 1:
		return []float64{}, nil
	case n == 1:
		return []float64{0}, nil
	}
	return floats.Span(make([]float64, n), 0, float64(n-1)*step), nil
}

// Symmetrize replaces the table with the even and odd parts of selected
// columns about x = 0. Columns in sym become (f(x)+f(-x))/2, columns in
// antisym become (f(x)-f(-x))/2, the x column becomes the grid and all
// other columns are dropped.
func (d *DataCurve) Symmetrize(xName string, sym, antisym []string, grid SymmetrizeGrid) error {
	hasValues := grid.Values != nil
	hasStep := grid.Step != 0
	if hasValues == hasStep {
		return errors.New(errors.ErrorTypeAmbiguousGrid, "exactly one of grid values and grid step is required").
			WithDetail("values", hasValues).
			WithDetail("step", hasStep)
	}

	xc, err := d.column(xName)
	if err != nil {
		return err
	}

	parity := make(map[string]float64, len(sym)+len(antisym))
	for _, name := range sym {
		if _, err := d.column(name); err != nil {
			return err
		}
		parity[name] = 1
	}
	for _, name := range antisym {
		if _, err := d.column(name); err != nil {
			return err
		}
		if _, dup := parity[name]; dup {
			return errors.New(errors.ErrorTypeValidation, "column listed as both symmetric and antisymmetric").
				WithDetail("column", name)
		}
		parity[name] = -1
	}

	xs := grid.Values
	if hasStep {
		if xs, err = AutoSymmetricGrid(xc.Data(), grid.Step); err != nil {
			return err
		}
	}
	negated := make([]float64, len(xs))
	for i, v := range xs {
		negated[i] = -v
	}

	var kept []*Column
	var data [][]float64
	for _, c := range d.columns {
		if c == xc {
			kept = append(kept, c)
			data = append(data, slices.Clone(xs))
			continue
		}
		sign, ok := parity[c.name]
		if !ok {
			continue
		}
		f, err := newLinearInterpolant(xc.Data(), c.Data())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeValidation, "cannot symmetrize column").
				WithDetail("column", c.name)
		}
		pos := f.atAll(xs)
		neg := f.atAll(negated)
		out := make([]float64, len(xs))
		for i := range out {
			out[i] = (pos[i] + sign*neg[i]) / 2
		}
		kept = append(kept, c)
		data = append(data, out)
	}

	d.columns = kept
	d.reindex()
	d.replaceData(data)
	return nil
}

// Symmetrized is the copy-producing form of Symmetrize.
func (d *DataCurve) Symmetrized(xName string, sym, antisym []string, grid SymmetrizeGrid) (*DataCurve, error) {
	return d.Derive(func(c *DataCurve) error { return c.Symmetrize(xName, sym, antisym, grid) })
}
