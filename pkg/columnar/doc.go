// Package columnar implements the in-memory table that instrument data files
// are read into and transformed with.
//
// # Overview
//
// A Column is a named, unit-tagged series of float64 values whose buffer
// capacity is tracked separately from its logical length. A DataCurve is an
// ordered set of uniquely named Columns that always share one length, plus
// scalar parameters that are not row-indexed.
//
// Readers build a table in two steps: they declare the schema with NewEmpty
// and stream rows into it with AddDataPoint. When no column has spare
// capacity the table grows every column by the same fixed chunk, so n
// appends cost n/ChunkSize reallocations:
//
//	curve, err := columnar.NewEmpty([]string{"Field", "Moment"}, []string{"Oe", "emu"})
//	if err != nil {
//	    return err
//	}
//	for rows.Next() {
//	    if err := curve.AddDataPoint(rows.Values()); err != nil {
//	        return err
//	    }
//	}
//
// # Transforms
//
// Filter, SelectValue, SelectRange, SelectDirection, AverageMultipleMeasurement,
// Interpolate, Symmetrize, SortBy and Append modify the table in place and
// fail without changing it. Derive runs any of them on a deep copy instead:
//
//	upSweep, err := curve.Derive(func(c *columnar.DataCurve) error {
//	    return c.SelectDirection("Field", +1)
//	})
//
// # Units
//
// Column units are labels. AddQuantityPoint accepts units.Quantity values
// and converts them to the column unit through the quantity's own context.
package columnar
