package columnar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/units"
)

func mustNew(t *testing.T, fields ...Field) *DataCurve {
	t.Helper()
	d, err := New(fields)
	require.NoError(t, err)
	return d
}

func assertAligned(t *testing.T, d *DataCurve) {
	t.Helper()
	for i := 0; i < d.NumColumns(); i++ {
		c := d.ColumnAt(i)
		assert.Equal(t, d.Len(), c.Len(), "column %q", c.Name())
		assert.GreaterOrEqual(t, c.Cap(), c.Len(), "column %q", c.Name())
	}
}

func TestChunkGrowthCadence(t *testing.T) {
	d, err := NewEmpty([]string{"x"}, []string{""}, WithChunkSize(2))
	require.NoError(t, err)

	var capsBefore, lengthsAfter []int
	for i := 0; i < 5; i++ {
		capsBefore = append(capsBefore, d.ColumnAt(0).Cap())
		require.NoError(t, d.AddDataPoint([]float64{float64(i)}))
		lengthsAfter = append(lengthsAfter, d.Len())
		if i == 3 {
			assert.Equal(t, 2, d.Reallocations(), "growth happens at the 1st and 3rd appends")
		}
	}

	assert.Equal(t, []int{0, 2, 2, 4, 4}, capsBefore)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, lengthsAfter)
	// The 5th append finds the table full again.
	assert.Equal(t, 3, d.Reallocations())
	assert.Equal(t, 6, d.Cap())
	assertAligned(t, d)
}

func TestAddDataPointGrowsAllColumnsTogether(t *testing.T) {
	d, err := NewEmpty([]string{"a", "b", "c"}, []string{"s", "K", "Oe"})
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, d.ChunkSize())

	for i := 0; i < 25; i++ {
		require.NoError(t, d.AddDataPoint([]float64{float64(i), 2 * float64(i), 3 * float64(i)}))
		for j := 0; j < 3; j++ {
			assert.Equal(t, d.Cap(), d.ColumnAt(j).Cap())
		}
	}
	assert.Equal(t, 30, d.Cap())
	assert.Equal(t, 3, d.Reallocations())

	d.Crop()
	assert.Equal(t, 25, d.Cap())
	assertAligned(t, d)
}

func TestAddDataPointRejectsWrongArity(t *testing.T) {
	d, err := NewEmpty([]string{"a", "b"}, nil)
	require.NoError(t, err)

	err = d.AddDataPoint([]float64{1})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 0, d.Cap())

	empty, err := NewEmpty(nil, nil)
	require.NoError(t, err)
	assert.Error(t, empty.AddDataPoint(nil))
}

func TestAddDataPointMap(t *testing.T) {
	d, err := NewEmpty([]string{"a", "b"}, []string{"s", "K"})
	require.NoError(t, err)

	require.NoError(t, d.AddDataPointMap(map[string]float64{"b": 2, "a": 1}))
	assert.Equal(t, []float64{1, 2}, d.Row(0))

	err = d.AddDataPointMap(map[string]float64{"a": 1, "c": 2})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
	err = d.AddDataPointMap(map[string]float64{"a": 1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
	assert.Equal(t, 1, d.Len())
}

func TestAddQuantityPointConverts(t *testing.T) {
	ctx := units.NewContext()
	d, err := NewEmpty([]string{"Field", "Temperature"}, []string{"Oe", "K"})
	require.NoError(t, err)

	field, err := ctx.Parse("1.5 kOe")
	require.NoError(t, err)
	temp, err := ctx.Quantity(25, "degC")
	require.NoError(t, err)

	require.NoError(t, d.AddQuantityPoint([]any{field, temp}))
	require.NoError(t, d.AddQuantityPoint([]any{10.0, 4}))

	fieldData, err := d.Column("Field")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1500, 10}, fieldData, 1e-9)

	tempData, err := d.Column("Temperature")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{298.15, 4}, tempData, 1e-9)

	seconds, err := ctx.Quantity(1, "s")
	require.NoError(t, err)
	err = d.AddQuantityPoint([]any{seconds, 1.0})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnit))

	err = d.AddQuantityPoint([]any{"1.5", 1.0})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, 2, d.Len())

	require.NoError(t, d.AddQuantityPointMap(map[string]any{"Temperature": 3.0, "Field": field}))
	assert.Equal(t, 3, d.Len())
}

func TestUnitlessColumnRejectsDimensionedQuantity(t *testing.T) {
	ctx := units.NewContext()
	d, err := NewEmpty([]string{"ratio"}, []string{""})
	require.NoError(t, err)

	pct, err := ctx.Quantity(50, "%")
	require.NoError(t, err)
	require.NoError(t, d.AddQuantityPoint([]any{pct}))

	kelvin, err := ctx.Quantity(1, "K")
	require.NoError(t, err)
	assert.Error(t, d.AddQuantityPoint([]any{kelvin}))

	data, err := d.Column("ratio")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5}, data, 1e-12)
}

func TestFromColumnsUnequalLengths(t *testing.T) {
	d, err := New([]Field{
		ColumnField("a", "", []float64{1, 2, 3}),
		ColumnField("b", "", []float64{1, 2, 3, 4}),
	})
	require.Error(t, err)
	assert.Nil(t, d)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
}

func TestFromColumnsDuplicateNames(t *testing.T) {
	_, err := FromColumns([]*Column{
		NewColumn("a", "", []float64{1}),
		NewColumn("a", "", []float64{2}),
	})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))

	_, err = NewEmpty([]string{"a", "a"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
}

func TestFromColumnsCopiesInput(t *testing.T) {
	x := NewColumn("x", "", []float64{1, 2})
	d, err := FromColumns([]*Column{x})
	require.NoError(t, err)

	x.SetData([]float64{9})
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []float64{1, 2}, column(t, d, "x"))
	require.NoError(t, d.AddDataPoint([]float64{3}))
	assertAligned(t, d)
}

func TestColumnAtDoesNotExposeMutators(t *testing.T) {
	d := mustNew(t,
		ColumnField("x", "", []float64{1, 2, 3}),
		ColumnField("y", "", []float64{4, 5, 6}),
	)

	view := d.ColumnAt(1)
	assert.Equal(t, "y", view.Name())
	assert.Equal(t, 3, view.Len())
	assert.Equal(t, 6.0, view.At(2))

	detached := view.Copy()
	detached.Crop()
	detached.SetData([]float64{9})
	assert.Equal(t, 3, view.Len())

	d.Crop()
	require.NoError(t, d.AddDataPoint([]float64{7, 8}))
	assert.Equal(t, 4, d.Len())
	assert.Equal(t, []float64{4, 5, 6, 8}, column(t, d, "y"))
	assertAligned(t, d)
}

func TestNewSeparatesColumnsAndParameters(t *testing.T) {
	d := mustNew(t,
		ColumnField("Field", "Oe", []float64{0, 10}),
		ParameterField("Angle", "deg", 45),
		ColumnField("Moment", "emu", []float64{1e-5, 2e-5}),
	)

	assert.Equal(t, []string{"Field", "Moment"}, d.ColumnNames())
	assert.Equal(t, []string{"Oe", "emu"}, d.ColumnUnits())
	p, ok := d.Parameter("Angle")
	require.True(t, ok)
	assert.Equal(t, Parameter{Value: 45, Unit: "deg"}, p)
	assert.Equal(t, 2, d.Len())
}

func TestNewEmptyDefaults(t *testing.T) {
	d, err := NewEmpty(nil, []string{"s", "K"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Data Field 1", "Data Field 2"}, d.ColumnNames())
	assert.Equal(t, []string{"s", "K"}, d.ColumnUnits())

	d, err = NewEmpty([]string{"a", "b"}, []string{"s"})
	require.NoError(t, err)
	assert.Equal(t, []string{units.ArbitraryUnit, units.ArbitraryUnit}, d.ColumnUnits())
}

func TestNewEmptyDoesNotShareState(t *testing.T) {
	a, err := NewEmpty(nil, nil)
	require.NoError(t, err)
	b, err := NewEmpty(nil, nil)
	require.NoError(t, err)

	a.AddParameter("p", 1, "")
	_, ok := b.Parameter("p")
	assert.False(t, ok)
}

func TestAddColumn(t *testing.T) {
	d, err := NewEmpty(nil, nil)
	require.NoError(t, err)

	require.NoError(t, d.AddColumn("x", "s", []float64{1, 2, 3}))
	assert.Equal(t, 3, d.Len())

	err = d.AddColumn("y", "K", []float64{1, 2})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))

	err = d.AddColumn("x", "K", []float64{1, 2, 3})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))

	require.NoError(t, d.AddColumn("y", "K", []float64{4, 5, 6}))
	require.NoError(t, d.AddDataPoint([]float64{4, 7}))
	assertAligned(t, d)
	assert.Equal(t, []float64{4, 7}, d.Row(3))
}

func TestAddColumnAfterGrowthMatchesCapacity(t *testing.T) {
	d, err := NewEmpty([]string{"x"}, nil, WithChunkSize(4))
	require.NoError(t, err)
	require.NoError(t, d.AddDataPoint([]float64{1}))

	require.NoError(t, d.AddColumn("y", "", []float64{2}))
	assert.Equal(t, d.Cap(), d.ColumnAt(1).Cap())
	require.NoError(t, d.AddDataPoint([]float64{3, 4}))
	assert.Equal(t, 1, d.Reallocations())
}

func TestRemoveColumn(t *testing.T) {
	d := mustNew(t, ColumnField("a", "", []float64{1}), ColumnField("b", "", []float64{2}))

	require.NoError(t, d.RemoveColumn("a"))
	assert.Equal(t, []string{"b"}, d.ColumnNames())
	idx, err := d.ColumnIndex("b")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	assert.True(t, errors.IsType(d.RemoveColumn("a"), errors.ErrorTypeUnknownColumn))
	require.NoError(t, d.RemoveColumn("b"))
	assert.Equal(t, 0, d.Len())
}

func TestRenameColumn(t *testing.T) {
	d := mustNew(t, ColumnField("a", "s", []float64{1}), ColumnField("b", "K", []float64{2}))

	require.NoError(t, d.RenameColumn("a", "time"))
	assert.Equal(t, []string{"time", "b"}, d.ColumnNames())
	assert.Equal(t, "time", d.ColumnAt(0).Name())
	assert.False(t, d.HasColumn("a"))

	assert.True(t, errors.IsType(d.RenameColumn("missing", "x"), errors.ErrorTypeUnknownColumn))
	assert.True(t, errors.IsType(d.RenameColumn("time", "b"), errors.ErrorTypeSchemaMismatch))
	assert.NoError(t, d.RenameColumn("b", "b"))
}

func TestUpdateColumn(t *testing.T) {
	d := mustNew(t, ColumnField("a", "", []float64{1, 2}))

	require.NoError(t, d.UpdateColumn("a", []float64{3, 4}))
	data, err := d.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, data)

	assert.True(t, errors.IsType(d.UpdateColumn("a", []float64{1}), errors.ErrorTypeSchemaMismatch))
	assert.True(t, errors.IsType(d.UpdateColumn("b", []float64{1, 2}), errors.ErrorTypeUnknownColumn))
}

func TestColumnLookup(t *testing.T) {
	d := mustNew(t, ColumnField("x", "s", []float64{1, 2}), ColumnField("y", "K", []float64{3, 4}))

	_, err := d.Column("z")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnknownColumn))

	cols, err := d.Columns("y", "x")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3, 4}, {1, 2}}, cols)

	_, err = d.Columns("y", "z")
	assert.Error(t, err)

	unit, err := d.ColumnUnit("y")
	require.NoError(t, err)
	assert.Equal(t, "K", unit)
	_, err = d.ColumnUnit("z")
	assert.Error(t, err)
}

func TestValuesArray(t *testing.T) {
	d, err := NewEmpty([]string{"x", "y"}, nil)
	require.NoError(t, err)
	require.NoError(t, d.AddDataPoint([]float64{1, 10}))
	require.NoError(t, d.AddDataPoint([]float64{2, 20}))
	require.NoError(t, d.AddDataPoint([]float64{3, 30}))

	rows := d.ValuesArray()
	assert.Equal(t, [][]float64{{1, 10}, {2, 20}, {3, 30}}, rows)
	assert.Equal(t, 3, d.Cap())
}

func TestCopyDoesNotAlias(t *testing.T) {
	d := mustNew(t, ColumnField("x", "", []float64{1, 2}), ParameterField("p", "", 1))
	cp := d.Copy()

	require.NoError(t, d.UpdateColumn("x", []float64{5, 6}))
	d.AddParameter("p", 2, "")
	require.NoError(t, d.RenameColumn("x", "y"))

	data, err := cp.Column("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, data)
	p, _ := cp.Parameter("p")
	assert.Equal(t, 1.0, p.Value)
}

func TestEmptyCopy(t *testing.T) {
	d := mustNew(t, ColumnField("x", "s", []float64{1, 2}), ParameterField("p", "K", 3))
	d.SetTag("run1")

	e := d.EmptyCopy()
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, []string{"x"}, e.ColumnNames())
	assert.Equal(t, "run1", e.Tag())
	require.NoError(t, e.AddDataPoint([]float64{9}))
	assert.Equal(t, 2, d.Len())
}

func TestStringSummary(t *testing.T) {
	d := mustNew(t,
		ColumnField("x", "s", []float64{1, 2}),
		ColumnField("n", "", []float64{1, 2}),
		ParameterField("angle", "deg", 45),
	)
	assert.Equal(t, "x (s)\nn\nangle = 45 deg\nnumber of data points = 2", d.String())
}

func TestParameterQuantity(t *testing.T) {
	ctx := units.NewContext()
	q, err := ctx.Parse("2 K")
	require.NoError(t, err)

	d, err := NewEmpty(nil, nil)
	require.NoError(t, err)
	d.AddParameterQuantity("T0", q)
	d.AddParameter("B", math.Pi, "T")

	assert.Equal(t, []string{"B", "T0"}, d.ParameterNames())
	assert.Equal(t, Parameter{Value: 2, Unit: "K"}, d.Parameters()["T0"])
}
