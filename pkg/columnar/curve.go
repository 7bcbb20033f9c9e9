package columnar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/units"
)

// DefaultChunkSize is the number of rows reserved each time a table runs
// out of capacity during streaming appends.
const DefaultChunkSize = 10

// Parameter is a scalar attached to a table, outside the row structure.
type Parameter struct {
	Value float64
	Unit  string
}

// DataCurve is an ordered table of uniquely named columns of equal length,
// plus scalar parameters.
//
// A DataCurve has a single mutator at a time; it does no locking.
type DataCurve struct {
	columns    []*Column
	index      map[string]int
	parameters map[string]Parameter
	tag        string

	length        int
	capacity      int
	chunkSize     int
	reallocations int
}

// Option configures a DataCurve at construction.
type Option func(*DataCurve)

// WithChunkSize sets the growth increment used by AddDataPoint.
func WithChunkSize(n int) Option {
	return func(d *DataCurve) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithTag sets a free-form label, usually the source file name.
func WithTag(tag string) Option {
	return func(d *DataCurve) { d.tag = tag }
}

func newDataCurve(opts []Option) *DataCurve {
	d := &DataCurve{
		index:      make(map[string]int),
		parameters: make(map[string]Parameter),
		chunkSize:  DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GenericNames returns n placeholder column names.
func GenericNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Data Field %d", i+1)
	}
	return names
}

// NewEmpty creates a table with the given schema and no rows. When names is
// empty, generic names are generated from the number of units. When units
// does not match names one-to-one, every column gets the arbitrary unit.
func NewEmpty(names, unitLabels []string, opts ...Option) (*DataCurve, error) {
	if len(names) == 0 {
		names = GenericNames(len(unitLabels))
	}
	if len(unitLabels) != len(names) {
		unitLabels = make([]string, len(names))
		for i := range unitLabels {
			unitLabels[i] = units.ArbitraryUnit
		}
	}

	d := newDataCurve(opts)
	for i, name := range names {
		if err := d.checkNewName(name); err != nil {
			return nil, err
		}
		d.index[name] = i
		d.columns = append(d.columns, &Column{name: name, unit: unitLabels[i]})
	}
	return d, nil
}

// FromColumns builds a table from copies of the given columns, so later
// changes to them do not reach the table. All columns must share one
// logical length.
func FromColumns(columns []*Column, opts ...Option) (*DataCurve, error) {
	d := newDataCurve(opts)
	for i, c := range columns {
		if i > 0 && c.Len() != columns[0].Len() {
			return nil, errors.New(errors.ErrorTypeSchemaMismatch, "columns have different lengths").
				WithDetail("column", c.Name()).
				WithDetail("length", c.Len()).
				WithDetail("expected", columns[0].Len())
		}
		if err := d.checkNewName(c.Name()); err != nil {
			return nil, err
		}
		d.index[c.Name()] = i
	}
	for _, c := range columns {
		d.columns = append(d.columns, c.Copy())
	}
	if len(columns) > 0 {
		d.length = columns[0].Len()
		d.capacity = d.length
	}
	return d, nil
}

// FieldKind says whether a Field is tabular or scalar.
type FieldKind int

const (
	// KindColumn marks a row-indexed series.
	KindColumn FieldKind = iota
	// KindParameter marks a scalar parameter.
	KindParameter
)

// Field is one tagged construction argument for New.
type Field struct {
	Kind  FieldKind
	Name  string
	Unit  string
	Data  []float64
	Value float64
}

// ColumnField declares a column for New.
func ColumnField(name, unit string, data []float64) Field {
	return Field{Kind: KindColumn, Name: name, Unit: unit, Data: data}
}

// ParameterField declares a scalar parameter for New.
func ParameterField(name, unit string, value float64) Field {
	return Field{Kind: KindParameter, Name: name, Unit: unit, Value: value}
}

// New builds a table from explicitly tagged columns and parameters.
func New(fields []Field, opts ...Option) (*DataCurve, error) {
	var columns []*Column
	params := make(map[string]Parameter)
	for _, f := range fields {
		switch f.Kind {
		case KindColumn:
			columns = append(columns, NewColumn(f.Name, f.Unit, f.Data))
		case KindParameter:
			params[f.Name] = Parameter{Value: f.Value, Unit: f.Unit}
		default:
			return nil, errors.New(errors.ErrorTypeValidation, "unknown field kind").
				WithDetail("field", f.Name)
		}
	}

	d, err := FromColumns(columns, opts...)
	if err != nil {
		return nil, err
	}
	d.parameters = params
	return d, nil
}

func (d *DataCurve) checkNewName(name string) error {
	if _, exists := d.index[name]; exists {
		return errors.New(errors.ErrorTypeSchemaMismatch, "duplicate column name").
			WithDetail("column", name)
	}
	return nil
}

func (d *DataCurve) column(name string) (*Column, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeUnknownColumn, "column not found").
			WithDetail("column", name).
			WithDetail("available", d.ColumnNames())
	}
	return d.columns[i], nil
}

func (d *DataCurve) lengthError(name string, got int) error {
	return errors.New(errors.ErrorTypeSchemaMismatch, "data length does not match table length").
		WithDetail("column", name).
		WithDetail("length", got).
		WithDetail("expected", d.length)
}

// Len returns the number of rows.
func (d *DataCurve) Len() int { return d.length }

// Cap returns the number of rows the columns can hold before growing.
func (d *DataCurve) Cap() int { return d.capacity }

// ChunkSize returns the growth increment.
func (d *DataCurve) ChunkSize() int { return d.chunkSize }

// Reallocations returns how many synchronized growth passes AddDataPoint
// has performed.
func (d *DataCurve) Reallocations() int { return d.reallocations }

// NumColumns returns the number of columns.
func (d *DataCurve) NumColumns() int { return len(d.columns) }

// Tag returns the table label.
func (d *DataCurve) Tag() string { return d.tag }

// SetTag sets the table label.
func (d *DataCurve) SetTag(tag string) { d.tag = tag }

// AddColumn appends a column. On an empty table data defines the length;
// otherwise its length must match. A nil data on an empty-length table
// creates an empty column.
func (d *DataCurve) AddColumn(name, unit string, data []float64) error {
	if err := d.checkNewName(name); err != nil {
		return err
	}
	if len(d.columns) == 0 {
		d.length = len(data)
		d.capacity = len(data)
	} else if len(data) != d.length {
		return d.lengthError(name, len(data))
	}

	values := make([]float64, d.capacity)
	copy(values, data)
	d.index[name] = len(d.columns)
	d.columns = append(d.columns, &Column{name: name, unit: unit, values: values, length: d.length})
	return nil
}

// RemoveColumn drops a column.
func (d *DataCurve) RemoveColumn(name string) error {
	i, ok := d.index[name]
	if !ok {
		_, err := d.column(name)
		return err
	}
	d.columns = append(d.columns[:i], d.columns[i+1:]...)
	d.reindex()
	if len(d.columns) == 0 {
		d.length, d.capacity = 0, 0
	}
	return nil
}

func (d *DataCurve) reindex() {
	d.index = make(map[string]int, len(d.columns))
	for i, c := range d.columns {
		d.index[c.name] = i
	}
}

// AddParameter sets a scalar parameter, replacing any previous value.
func (d *DataCurve) AddParameter(name string, value float64, unit string) {
	d.parameters[name] = Parameter{Value: value, Unit: unit}
}

// AddParameterQuantity stores a quantity as a parameter with its own unit.
func (d *DataCurve) AddParameterQuantity(name string, q units.Quantity) {
	d.AddParameter(name, q.Magnitude(), q.Unit())
}

// Parameter returns a scalar parameter.
func (d *DataCurve) Parameter(name string) (Parameter, bool) {
	p, ok := d.parameters[name]
	return p, ok
}

// Parameters returns a copy of all parameters.
func (d *DataCurve) Parameters() map[string]Parameter {
	out := make(map[string]Parameter, len(d.parameters))
	for k, v := range d.parameters {
		out[k] = v
	}
	return out
}

// ParameterNames returns the parameter names in sorted order.
func (d *DataCurve) ParameterNames() []string {
	names := make([]string, 0, len(d.parameters))
	for k := range d.parameters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RenameColumn changes a column name, keeping its position.
func (d *DataCurve) RenameColumn(oldName, newName string) error {
	c, err := d.column(oldName)
	if err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	if err := d.checkNewName(newName); err != nil {
		return err
	}
	i := d.index[oldName]
	delete(d.index, oldName)
	d.index[newName] = i
	c.name = newName
	return nil
}

// UpdateColumn overwrites a column's values in place.
func (d *DataCurve) UpdateColumn(name string, data []float64) error {
	c, err := d.column(name)
	if err != nil {
		return err
	}
	if len(data) != d.length {
		return d.lengthError(name, len(data))
	}
	copy(c.values[:c.length], data)
	return nil
}

// AddDataPoint appends one row given in column order. When no column has
// spare capacity, every column grows by the chunk size first.
func (d *DataCurve) AddDataPoint(row []float64) error {
	if len(d.columns) == 0 {
		return errors.New(errors.ErrorTypeSchemaMismatch, "table has no columns")
	}
	if len(row) != len(d.columns) {
		return errors.New(errors.ErrorTypeSchemaMismatch, "row length does not match column count").
			WithDetail("row_length", len(row)).
			WithDetail("columns", len(d.columns))
	}

	if d.capacity == d.length {
		for _, c := range d.columns {
			c.ExtendChunk(d.chunkSize)
		}
		d.capacity += d.chunkSize
		d.reallocations++
	}
	for i, c := range d.columns {
		if err := c.AddDataPoint(row[i]); err != nil {
			// Capacity was ensured above for every column.
			return errors.Wrap(err, errors.ErrorTypeInternal, "column out of step with table")
		}
	}
	d.length++
	return nil
}

// AddDataPointMap appends one row keyed by column name. The key set must
// equal the column set.
func (d *DataCurve) AddDataPointMap(row map[string]float64) error {
	values, err := d.orderRow(len(row), func(name string) (float64, bool, error) {
		v, ok := row[name]
		return v, ok, nil
	})
	if err != nil {
		return err
	}
	return d.AddDataPoint(values)
}

// AddQuantityPoint appends one row in column order whose entries are either
// bare numbers, taken to be in the column unit, or units.Quantity values,
// converted to the column unit.
func (d *DataCurve) AddQuantityPoint(row []any) error {
	if len(row) != len(d.columns) {
		return errors.New(errors.ErrorTypeSchemaMismatch, "row length does not match column count").
			WithDetail("row_length", len(row)).
			WithDetail("columns", len(d.columns))
	}
	values := make([]float64, len(row))
	for i, c := range d.columns {
		v, err := toColumnUnit(c, row[i])
		if err != nil {
			return err
		}
		values[i] = v
	}
	return d.AddDataPoint(values)
}

// AddQuantityPointMap is AddQuantityPoint keyed by column name.
func (d *DataCurve) AddQuantityPointMap(row map[string]any) error {
	values, err := d.orderRow(len(row), func(name string) (float64, bool, error) {
		raw, ok := row[name]
		if !ok {
			return 0, false, nil
		}
		v, err := toColumnUnit(d.columns[d.index[name]], raw)
		return v, true, err
	})
	if err != nil {
		return err
	}
	return d.AddDataPoint(values)
}

func (d *DataCurve) orderRow(size int, get func(string) (float64, bool, error)) ([]float64, error) {
	if size != len(d.columns) {
		return nil, errors.New(errors.ErrorTypeSchemaMismatch, "row keys do not match column names").
			WithDetail("row_length", size).
			WithDetail("columns", d.ColumnNames())
	}
	values := make([]float64, len(d.columns))
	for i, c := range d.columns {
		v, ok, err := get(c.name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(errors.ErrorTypeSchemaMismatch, "row keys do not match column names").
				WithDetail("missing", c.name)
		}
		values[i] = v
	}
	return values, nil
}

func toColumnUnit(c *Column, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case units.Quantity:
		if v.Unit() == c.unit {
			return v.Magnitude(), nil
		}
		converted, err := v.To(c.unit)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeUnit, "cannot convert value to column unit").
				WithDetail("column", c.name).
				WithDetail("unit", c.unit)
		}
		return converted.Magnitude(), nil
	default:
		return 0, errors.Newf(errors.ErrorTypeValidation, "unsupported row value type %T", raw).
			WithDetail("column", c.name)
	}
}

// Crop shrinks every column's capacity to the table length.
func (d *DataCurve) Crop() {
	for _, c := range d.columns {
		c.Crop()
	}
	d.capacity = d.length
}

// HasColumn reports whether a column exists.
func (d *DataCurve) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns the logical values of a column. The slice shares storage
// with the table; copy it before modifying.
func (d *DataCurve) Column(name string) ([]float64, error) {
	c, err := d.column(name)
	if err != nil {
		return nil, err
	}
	return c.Data(), nil
}

// Columns returns the logical values of several columns, in the order
// requested.
func (d *DataCurve) Columns(names ...string) ([][]float64, error) {
	out := make([][]float64, len(names))
	for i, name := range names {
		data, err := d.Column(name)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

// ColumnAt returns a read-only view of the column at position i in
// declaration order.
func (d *DataCurve) ColumnAt(i int) ColumnView {
	return ColumnView{c: d.columns[i]}
}

// ColumnIndex returns the declaration position of a column.
func (d *DataCurve) ColumnIndex(name string) (int, error) {
	if _, err := d.column(name); err != nil {
		return -1, err
	}
	return d.index[name], nil
}

// ColumnUnit returns the unit label of a column.
func (d *DataCurve) ColumnUnit(name string) (string, error) {
	c, err := d.column(name)
	if err != nil {
		return "", err
	}
	return c.unit, nil
}

// ColumnNames returns the column names in declaration order.
func (d *DataCurve) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.name
	}
	return names
}

// ColumnUnits returns the unit labels in declaration order.
func (d *DataCurve) ColumnUnits() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.unit
	}
	return out
}

// Row returns a copy of row i in column order.
func (d *DataCurve) Row(i int) []float64 {
	row := make([]float64, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.At(i)
	}
	return row
}

// ValuesArray crops the table and returns its rows as a dense
// length-by-columns matrix in declaration order.
func (d *DataCurve) ValuesArray() [][]float64 {
	d.Crop()
	flat := make([]float64, d.length*len(d.columns))
	rows := make([][]float64, d.length)
	for i := range rows {
		rows[i] = flat[i*len(d.columns) : (i+1)*len(d.columns)]
	}
	for j, c := range d.columns {
		for i, v := range c.Data() {
			rows[i][j] = v
		}
	}
	return rows
}

// Copy returns a deep copy sharing no storage with d.
func (d *DataCurve) Copy() *DataCurve {
	out := d.EmptyCopy()
	for i, c := range d.columns {
		out.columns[i] = c.Copy()
	}
	out.length = d.length
	out.capacity = d.length
	return out
}

// EmptyCopy returns a table with the same schema, parameters and settings
// but no rows.
func (d *DataCurve) EmptyCopy() *DataCurve {
	out := &DataCurve{
		columns:    make([]*Column, len(d.columns)),
		index:      make(map[string]int, len(d.columns)),
		parameters: d.Parameters(),
		tag:        d.tag,
		chunkSize:  d.chunkSize,
	}
	for i, c := range d.columns {
		out.columns[i] = &Column{name: c.name, unit: c.unit}
		out.index[c.name] = i
	}
	return out
}

// Derive applies fn to a deep copy of d and returns the copy. It is the
// copy-producing counterpart of every in-place transform.
func (d *DataCurve) Derive(fn func(*DataCurve) error) (*DataCurve, error) {
	out := d.Copy()
	if err := fn(out); err != nil {
		return nil, err
	}
	return out, nil
}

// String summarises the schema and the row count.
func (d *DataCurve) String() string {
	var b strings.Builder
	if d.tag != "" {
		fmt.Fprintf(&b, "%s\n", d.tag)
	}
	for _, c := range d.columns {
		if c.unit != "" {
			fmt.Fprintf(&b, "%s (%s)\n", c.name, c.unit)
		} else {
			fmt.Fprintf(&b, "%s\n", c.name)
		}
	}
	for _, name := range d.ParameterNames() {
		p := d.parameters[name]
		fmt.Fprintf(&b, "%s = %s\n", name, strings.TrimSpace(fmt.Sprintf("%g %s", p.Value, p.Unit)))
	}
	fmt.Fprintf(&b, "number of data points = %d", d.length)
	return b.String()
}

func (d *DataCurve) replaceData(data [][]float64) {
	for i, c := range d.columns {
		c.SetData(data[i])
	}
	if len(data) > 0 {
		d.length = len(data[0])
	} else {
		d.length = 0
	}
	d.capacity = d.length
}
