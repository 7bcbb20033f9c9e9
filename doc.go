// Package asciidatafile reads the ASCII data files written by lab
// instruments into unit-aware column tables and writes them back out.
//
// # Architecture
//
// A DataCurve (pkg/columnar) is an ordered set of named, unit-tagged float64
// columns of equal length plus scalar parameters. Rows are appended in place;
// storage grows by a configurable chunk, so a file being ingested line by
// line never reallocates per row.
//
// Instrument files are ingested by one generic reader parameterised by a
// header strategy and a line tokenizer (pkg/connector/sources/ascii). The
// supported headers are:
//   - generic: names and units given by the caller
//   - column: one "name (unit)" line
//   - md: a names line followed by a units line
//   - squid: Quantum Design MPMS ".dat" files
//   - ppms-resistivity and ppms-acms: Quantum Design PPMS files
//
// Curves are written as text, JSON, Arrow IPC, Parquet, Avro or SQLite
// (pkg/connector/destinations), to local paths or to s3:// and gs://
// buckets (pkg/storage), compressed by file extension (pkg/compression).
//
// # Transformations
//
// DataCurve methods select rows by value, range or sweep direction, average
// over bins, sort, interpolate onto a new abscissa and split a field sweep
// into its symmetric and antisymmetric parts. Derive runs any of them on a
// copy.
//
// # Quick Start
//
//	asciidata convert -f squid run.dat run.parquet
//	asciidata transform -f squid run.dat up.txt --direction "Magnetic Field:1" --sort "Magnetic Field"
//	asciidata plot -f squid run.dat run.png -x "Temperature" -y "Long Moment"
//
// See cmd/asciidata for the full command set.
package asciidatafile
