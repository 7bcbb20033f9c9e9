package columnar

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

// Filter keeps the rows where mask is true, in every column.
func (d *DataCurve) Filter(mask Mask) error {
	if len(mask) != d.length {
		return errors.New(errors.ErrorTypeSchemaMismatch, "mask length does not match table length").
			WithDetail("mask_length", len(mask)).
			WithDetail("length", d.length)
	}
	for _, c := range d.columns {
		// Lengths were checked above; Column.Filter cannot fail here.
		_ = c.Filter(mask)
	}
	d.length = mask.Count()
	d.capacity = d.length
	return nil
}

// Filtered returns a new table holding the rows where mask is true.
func (d *DataCurve) Filtered(mask Mask) (*DataCurve, error) {
	return d.Derive(func(c *DataCurve) error { return c.Filter(mask) })
}

// Where builds a mask from a predicate on one column.
func (d *DataCurve) Where(name string, pred func(float64) bool) (Mask, error) {
	c, err := d.column(name)
	if err != nil {
		return nil, err
	}
	return c.Where(pred), nil
}

// SelectValue keeps the rows where |name - value| < tol.
func (d *DataCurve) SelectValue(name string, value, tol float64) error {
	c, err := d.column(name)
	if err != nil {
		return err
	}
	return d.Filter(c.EqualsWithinTolerance(value, tol))
}

// SelectRange keeps the rows where lo < name < hi.
func (d *DataCurve) SelectRange(name string, lo, hi float64) error {
	c, err := d.column(name)
	if err != nil {
		return err
	}
	return d.Filter(c.InRange(lo, hi))
}

// SelectDirection keeps the rows where the discrete gradient of a column
// has the sign of direction, isolating up or down sweeps. Rows where the
// gradient is exactly zero are dropped.
func (d *DataCurve) SelectDirection(name string, direction float64) error {
	c, err := d.column(name)
	if err != nil {
		return err
	}
	if direction == 0 || math.IsNaN(direction) {
		return errors.New(errors.ErrorTypeValidation, "direction must be positive or negative").
			WithDetail("direction", direction)
	}
	grad, err := Gradient(c.Data())
	if err != nil {
		return err
	}
	mask := make(Mask, len(grad))
	for i, g := range grad {
		if direction > 0 {
			mask[i] = g > 0
		} else {
			mask[i] = g < 0
		}
	}
	return d.Filter(mask)
}

// Gradient returns the discrete derivative of y with respect to its index,
// using centered differences inside and one-sided differences at the ends.
func Gradient(y []float64) ([]float64, error) {
	n := len(y)
	switch {
	case n == 0:
		return []float64{}, nil
	case n == 1:
		return nil, errors.New(errors.ErrorTypeValidation, "gradient needs at least two points")
	}
	g := make([]float64, n)
	g[0] = y[1] - y[0]
	g[n-1] = y[n-1] - y[n-2]
	for i := 1; i < n-1; i++ {
		g[i] = (y[i+1] - y[i-1]) / 2
	}
	return g, nil
}

// AverageMultipleMeasurement collapses repeated measurements taken at
// nominally the same setting of a control column. The control values are
// rounded to multiples of step; each distinct multiple v becomes one row
// holding, for every column, the mean over the rows with
// (x - v)^2 < step^2/2. Windows of neighbouring bins overlap. Rows whose
// control value is NaN belong to no bin and are dropped. An infinite
// control value yields a bin no row falls into, which averages to NaN.
func (d *DataCurve) AverageMultipleMeasurement(name string, step float64) error {
	c, err := d.column(name)
	if err != nil {
		return err
	}
	if !(step > 0) || math.IsInf(step, 0) {
		return errors.New(errors.ErrorTypeValidation, "step must be positive and finite").
			WithDetail("step", step)
	}

	x := c.Data()
	grid := QuantizedGrid(x, step)

	// Sort row indices by x so each bin scans only nearby rows.
	order := make([]int, 0, len(x))
	for i, v := range x {
		if !math.IsNaN(v) {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(x[a], x[b]) })
	sortedX := make([]float64, len(order))
	for k, i := range order {
		sortedX[k] = x[i]
	}

	threshold := step * step / 2
	averaged := make([][]float64, len(d.columns))
	for j := range averaged {
		averaged[j] = make([]float64, len(grid))
	}
	members := make([]int, 0)
	values := make([]float64, 0)
	for g, v := range grid {
		lo := sort.SearchFloat64s(sortedX, v-step)
		hi := sort.SearchFloat64s(sortedX, math.Nextafter(v+step, math.Inf(1)))
		members = members[:0]
		for k := lo; k < hi; k++ {
			dx := sortedX[k] - v
			if dx*dx < threshold {
				members = append(members, order[k])
			}
		}
		for j, col := range d.columns {
			if len(members) == 0 {
				averaged[j][g] = math.NaN()
				continue
			}
			values = values[:0]
			for _, i := range members {
				values = append(values, col.values[i])
			}
			averaged[j][g] = stat.Mean(values, nil)
		}
	}

	d.replaceData(averaged)
	return nil
}

// QuantizedGrid returns the sorted distinct values of round(x/step)*step.
// NaN entries are ignored.
func QuantizedGrid(x []float64, step float64) []float64 {
	seen := make(map[float64]struct{})
	keys := make([]float64, 0)
	for _, v := range x {
		k := math.Round(v / step)
		if math.IsNaN(k) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	grid := make([]float64, len(keys))
	for i, k := range keys {
		grid[i] = k * step
	}
	return grid
}

// SortBy reorders every column by ascending values of one column. The sort
// is stable.
func (d *DataCurve) SortBy(name string) error {
	c, err := d.column(name)
	if err != nil {
		return err
	}
	key := c.Data()
	order := make([]int, d.length)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(key[a], key[b]) })

	sorted := make([][]float64, len(d.columns))
	for j, col := range d.columns {
		data := col.Data()
		out := make([]float64, d.length)
		for k, i := range order {
			out[k] = data[i]
		}
		sorted[j] = out
	}
	d.replaceData(sorted)
	return nil
}

// Append concatenates the rows of other, which must have the same set of
// column names. Columns are matched by name.
func (d *DataCurve) Append(other *DataCurve) error {
	if len(other.columns) != len(d.columns) {
		return schemaSetError(d, other)
	}
	for _, c := range d.columns {
		if !other.HasColumn(c.name) {
			return schemaSetError(d, other)
		}
	}

	joined := make([][]float64, len(d.columns))
	for j, c := range d.columns {
		tail := other.columns[other.index[c.name]].Data()
		out := make([]float64, 0, d.length+len(tail))
		out = append(out, c.Data()...)
		joined[j] = append(out, tail...)
	}
	if len(d.columns) == 0 {
		return nil
	}
	d.replaceData(joined)
	return nil
}

func schemaSetError(d, other *DataCurve) error {
	return errors.New(errors.ErrorTypeSchemaMismatch, "tables have different column names").
		WithDetail("columns", d.ColumnNames()).
		WithDetail("other", other.ColumnNames())
}

// Merge returns a new table with the rows of d followed by those of other.
func (d *DataCurve) Merge(other *DataCurve) (*DataCurve, error) {
	return d.Derive(func(c *DataCurve) error { return c.Append(other) })
}

// Slice returns a new table with rows [i, j).
func (d *DataCurve) Slice(i, j int) (*DataCurve, error) {
	if i < 0 || j > d.length || i > j {
		return nil, errors.New(errors.ErrorTypeValidation, "slice bounds out of range").
			WithDetail("start", i).
			WithDetail("end", j).
			WithDetail("length", d.length)
	}
	out := d.EmptyCopy()
	for k, c := range d.columns {
		out.columns[k].SetData(c.Data()[i:j])
	}
	out.length = j - i
	out.capacity = out.length
	return out, nil
}

// Extract returns the rows selected by mask as a new table. With remove set,
// those rows are also dropped from d.
func (d *DataCurve) Extract(mask Mask, remove bool) (*DataCurve, error) {
	out, err := d.Filtered(mask)
	if err != nil {
		return nil, err
	}
	if remove {
		// Same length as the successful Filtered call above.
		_ = d.Filter(mask.Not())
	}
	return out, nil
}

// YAtX evaluates column y at the given x values by piecewise-linear
// interpolation against column x.
func (d *DataCurve) YAtX(xName, yName string, xs []float64) ([]float64, error) {
	xc, err := d.column(xName)
	if err != nil {
		return nil, err
	}
	yc, err := d.column(yName)
	if err != nil {
		return nil, err
	}
	f, err := newLinearInterpolant(xc.Data(), yc.Data())
	if err != nil {
		return nil, err
	}
	return f.atAll(xs), nil
}
