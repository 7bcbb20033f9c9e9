package columnar_test

import (
	"fmt"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
)

// Example shows streaming rows into a table and isolating the up-sweep of a
// field loop.
func Example() {
	curve, err := columnar.NewEmpty([]string{"Field", "Moment"}, []string{"Oe", "emu"})
	if err != nil {
		panic(err)
	}

	field := []float64{-2, -1, 0, 1, 2, 1, 0, -1, -2}
	for _, h := range field {
		if err := curve.AddDataPoint([]float64{h, 1e-3 * h}); err != nil {
			panic(err)
		}
	}

	up, err := curve.Derive(func(c *columnar.DataCurve) error {
		return c.SelectDirection("Field", +1)
	})
	if err != nil {
		panic(err)
	}

	values, _ := up.Column("Field")
	fmt.Println(values)
	fmt.Println(curve.Len(), up.Len())

	// Output:
	// [-2 -1 0 1]
	// 9 4
}

// ExampleDataCurve_Symmetrize extracts the even part of a magnetoresistance
// curve.
func ExampleDataCurve_Symmetrize() {
	curve, err := columnar.New([]columnar.Field{
		columnar.ColumnField("Field", "T", []float64{-2, -1, 0, 1, 2}),
		columnar.ColumnField("Resistance", "ohm", []float64{14, 11, 10, 11, 14}),
	})
	if err != nil {
		panic(err)
	}

	if err := curve.Symmetrize("Field", []string{"Resistance"}, nil, columnar.GridStep(1)); err != nil {
		panic(err)
	}
	fmt.Println(curve.ValuesArray())

	// Output:
	// [[0 10] [1 11] [2 14]]
}
