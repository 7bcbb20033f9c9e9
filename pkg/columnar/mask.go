package columnar

import "github.com/oneminimax/AsciiDataFile/pkg/errors"

// Mask selects rows of a table. It must have one entry per row.
type Mask []bool

// Count returns the number of selected rows.
func (m Mask) Count() int {
	n := 0
	for _, keep := range m {
		if keep {
			n++
		}
	}
	return n
}

// Indices returns the positions of the selected rows in increasing order.
func (m Mask) Indices() []int {
	out := make([]int, 0, m.Count())
	for i, keep := range m {
		if keep {
			out = append(out, i)
		}
	}
	return out
}

// Not returns the complement of m.
func (m Mask) Not() Mask {
	out := make(Mask, len(m))
	for i, keep := range m {
		out[i] = !keep
	}
	return out
}

// And returns the element-wise conjunction of two masks of equal length.
func (m Mask) And(other Mask) (Mask, error) {
	if len(m) != len(other) {
		return nil, maskLengthError(len(m), len(other))
	}
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] && other[i]
	}
	return out, nil
}

// Or returns the element-wise disjunction of two masks of equal length.
func (m Mask) Or(other Mask) (Mask, error) {
	if len(m) != len(other) {
		return nil, maskLengthError(len(m), len(other))
	}
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] || other[i]
	}
	return out, nil
}

func maskLengthError(a, b int) error {
	return errors.New(errors.ErrorTypeSchemaMismatch, "masks have different lengths").
		WithDetail("left", a).
		WithDetail("right", b)
}
