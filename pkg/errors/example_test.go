package errors_test

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

// Example demonstrates basic error creation with context details.
func Example() {
	err := errors.New(errors.ErrorTypeUnknownColumn, "column not found").
		WithDetail("column", "Temperature").
		WithDetail("available", []string{"Time", "Field"})

	fmt.Println(err.Error())

	// Output:
	// unknown_column: column not found
}

// ExampleWrap shows how to wrap a reader failure.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFile, "failed to read data file").
		WithDetail("path", "sample_001.dat")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Cause is preserved")
	}

	// Output:
	// This is a file error
	// Cause is preserved
}

// ExampleTypeOf shows dispatching on the error kind.
func ExampleTypeOf() {
	errs := []error{
		errors.New(errors.ErrorTypeSchemaMismatch, "columns have unequal lengths"),
		errors.Newf(errors.ErrorTypeAmbiguousGrid, "got %d grid specifications", 2),
		io.EOF,
	}
	for _, err := range errs {
		fmt.Println(errors.TypeOf(err))
	}

	// Output:
	// schema_mismatch
	// ambiguous_grid
	// internal
}
