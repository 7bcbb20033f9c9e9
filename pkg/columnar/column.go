package columnar

import (
	"math"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

// Column is a named, unit-tagged numeric series with separate logical
// length and buffer capacity. Entries past Len are never exposed.
type Column struct {
	name   string
	unit   string
	values []float64 // len(values) is the capacity
	length int
}

// NewColumn creates a column holding a copy of data, with capacity equal
// to its length.
func NewColumn(name, unit string, data []float64) *Column {
	c := &Column{name: name, unit: unit}
	c.SetData(data)
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Unit returns the unit label, empty when dimensionless.
func (c *Column) Unit() string { return c.unit }

// Len returns the logical length.
func (c *Column) Len() int { return c.length }

// Cap returns the buffer capacity.
func (c *Column) Cap() int { return len(c.values) }

// SetData replaces the buffer with a copy of data. Length and capacity both
// become len(data).
func (c *Column) SetData(data []float64) {
	c.values = make([]float64, len(data))
	copy(c.values, data)
	c.length = len(data)
}

// Data returns the logical values. The slice shares the column's storage
// and has no spare capacity, so appending to it never writes into the
// column.
func (c *Column) Data() []float64 {
	return c.values[:c.length:c.length]
}

// At returns the value at row i.
func (c *Column) At(i int) float64 {
	return c.values[:c.length][i]
}

// AddDataPoint writes v after the last valid entry. The buffer must have
// spare capacity; growing it is the owning table's job.
func (c *Column) AddDataPoint(v float64) error {
	if c.length >= len(c.values) {
		return errors.New(errors.ErrorTypeValidation, "column has no spare capacity").
			WithDetail("column", c.name).
			WithDetail("capacity", len(c.values))
	}
	c.values[c.length] = v
	c.length++
	return nil
}

// ExtendChunk grows the capacity by exactly chunkSize, keeping the valid
// entries. Growth is linear: n appends cost n/chunkSize reallocations.
func (c *Column) ExtendChunk(chunkSize int) {
	if chunkSize <= 0 {
		return
	}
	grown := make([]float64, len(c.values)+chunkSize)
	copy(grown, c.values[:c.length])
	c.values = grown
}

// Crop shrinks the capacity to the logical length.
func (c *Column) Crop() {
	if len(c.values) == c.length {
		return
	}
	cropped := make([]float64, c.length)
	copy(cropped, c.values[:c.length])
	c.values = cropped
}

// Filter keeps the entries where mask is true.
func (c *Column) Filter(mask Mask) error {
	if len(mask) != c.length {
		return errors.New(errors.ErrorTypeSchemaMismatch, "mask length does not match column length").
			WithDetail("column", c.name).
			WithDetail("mask_length", len(mask)).
			WithDetail("length", c.length)
	}
	c.SetData(selectMasked(c.Data(), mask))
	return nil
}

// Copy returns a column with the same name and unit and its own copy of the
// logical data.
func (c *Column) Copy() *Column {
	return NewColumn(c.name, c.unit, c.Data())
}

// EqualsWithinTolerance marks entries with |x - value| < tol.
func (c *Column) EqualsWithinTolerance(value, tol float64) Mask {
	mask := make(Mask, c.length)
	for i, x := range c.Data() {
		mask[i] = math.Abs(x-value) < tol
	}
	return mask
}

// InRange marks entries with lo < x < hi.
func (c *Column) InRange(lo, hi float64) Mask {
	mask := make(Mask, c.length)
	for i, x := range c.Data() {
		mask[i] = lo < x && x < hi
	}
	return mask
}

// Where marks entries for which pred returns true.
func (c *Column) Where(pred func(float64) bool) Mask {
	mask := make(Mask, c.length)
	for i, x := range c.Data() {
		mask[i] = pred(x)
	}
	return mask
}

// ColumnView is a read-only handle on a column owned by a DataCurve. The
// table stays the only mutator of its columns.
type ColumnView struct {
	c *Column
}

// Name returns the column name.
func (v ColumnView) Name() string { return v.c.name }

// Unit returns the unit label, empty when dimensionless.
func (v ColumnView) Unit() string { return v.c.unit }

// Len returns the logical length.
func (v ColumnView) Len() int { return v.c.length }

// Cap returns the buffer capacity.
func (v ColumnView) Cap() int { return len(v.c.values) }

// At returns the value at row i.
func (v ColumnView) At(i int) float64 { return v.c.At(i) }

// Data returns the logical values. The slice shares storage with the
// table; copy it before modifying.
func (v ColumnView) Data() []float64 { return v.c.Data() }

// Copy returns an independent Column holding the same values.
func (v ColumnView) Copy() *Column { return v.c.Copy() }

func selectMasked(data []float64, mask Mask) []float64 {
	out := make([]float64, 0, mask.Count())
	for i, keep := range mask {
		if keep {
			out = append(out, data[i])
		}
	}
	return out
}
