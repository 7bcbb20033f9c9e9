// Package core defines the contracts between DataCurves and the readers and
// writers of instrument files.
//
// A single generic reader is parameterised by two strategies: a
// HeaderProvider, which consumes the header of a file and returns its
// Schema, and a LineTokenizer, which splits data lines into fields. New
// instrument formats are added by writing a HeaderProvider, not by
// specialising the reader.
package core

import (
	"context"
	"fmt"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// Schema is what a header yields: ordered column names, parallel units and,
// for each name, the position of its field on a data line.
type Schema struct {
	Names []string
	Units []string
	// Fields holds the field index of each column. Nil means 0..N-1.
	Fields []int
}

// NewSchema creates a schema whose columns are the first len(names) fields.
func NewSchema(names, units []string) *Schema {
	return &Schema{
		Names: append([]string(nil), names...),
		Units: append([]string(nil), units...),
	}
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.Names) }

// Field returns the line field index of column i.
func (s *Schema) Field(i int) int {
	if s.Fields == nil {
		return i
	}
	return s.Fields[i]
}

// Validate checks that the parallel slices agree and names are unique.
func (s *Schema) Validate() error {
	if len(s.Names) == 0 {
		return errors.New(errors.ErrorTypeValidation, "schema has no columns")
	}
	if len(s.Units) > 0 && len(s.Units) != len(s.Names) {
		return errors.Newf(errors.ErrorTypeSchemaMismatch, "schema has %d names but %d units", len(s.Names), len(s.Units))
	}
	if s.Fields != nil && len(s.Fields) != len(s.Names) {
		return errors.Newf(errors.ErrorTypeSchemaMismatch, "schema has %d names but %d field positions", len(s.Names), len(s.Fields))
	}
	seen := make(map[string]struct{}, len(s.Names))
	for i, name := range s.Names {
		if _, dup := seen[name]; dup {
			return errors.Newf(errors.ErrorTypeValidation, "duplicate column name %q", name)
		}
		seen[name] = struct{}{}
		if s.Field(i) < 0 {
			return errors.Newf(errors.ErrorTypeValidation, "negative field position for column %q", name)
		}
	}
	return nil
}

// String lists "name (unit)" pairs.
func (s *Schema) String() string {
	out := ""
	for i, name := range s.Names {
		if i > 0 {
			out += ", "
		}
		unit := ""
		if i < len(s.Units) {
			unit = s.Units[i]
		}
		out += fmt.Sprintf("%s (%s)", name, unit)
	}
	return out
}

// LineReader yields the lines of a file without their terminators. It
// returns io.EOF once the input is exhausted.
type LineReader interface {
	ReadLine() (string, error)
}

// HeaderProvider consumes the header of a file and describes its columns.
// After ReadHeader returns, the next line of lines is the first data line.
type HeaderProvider interface {
	Name() string
	ReadHeader(lines LineReader) (*Schema, error)
}

// LineTokenizer splits one data line into fields.
type LineTokenizer interface {
	Tokenize(line string) []string
}

// Table is the view of a curve a writer needs.
type Table interface {
	Len() int
	ColumnNames() []string
	ColumnUnits() []string
	Column(name string) ([]float64, error)
	ValuesArray() [][]float64
}

var _ Table = (*columnar.DataCurve)(nil)

// Source ingests one instrument file into a DataCurve.
type Source interface {
	// Format returns the registered format name.
	Format() string
	// Read opens uri, parses its header and ingests every data line.
	Read(ctx context.Context, uri string) (*columnar.DataCurve, error)
	// Metrics returns the totals of the last reads.
	Metrics() map[string]interface{}
}

// Destination exports DataCurves.
type Destination interface {
	// Format returns the registered format name.
	Format() string
	// Extension returns the conventional file suffix, such as ".txt".
	Extension() string
	// Write exports curve to uri and returns the location actually
	// written, which differs from uri when auto-numbering applies.
	Write(ctx context.Context, uri string, curve *columnar.DataCurve) (string, error)
	// Metrics returns the totals of the writes so far.
	Metrics() map[string]interface{}
}

// Loader reads back what a Destination wrote.
type Loader interface {
	Load(ctx context.Context, uri string) (*columnar.DataCurve, error)
}
