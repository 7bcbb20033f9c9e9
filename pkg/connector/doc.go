// Package connector groups the readers and writers that move DataCurves in
// and out of files.
//
// # Architecture Overview
//
//   - core: the Source, Destination and Loader contracts, the Schema a
//     header yields, and the HeaderProvider and LineTokenizer strategies
//     the generic reader is built from.
//
//   - base: Destination, the shared part of every writer. It resolves the
//     output location, applies auto-numbering, compresses by extension,
//     retries remote uploads and keeps the write metrics.
//
//   - sources/ascii: the instrument formats (generic, column, md, squid,
//     ppms-resistivity, ppms-acms) and the hot reader that follows a file
//     still being written.
//
//   - destinations: text (ascii, column, md), json, arrow, parquet, avro
//     and sqlite writers. Every writer except the plain ascii one can load
//     back what it wrote.
//
//   - registry: factories keyed by format name plus a catalog of
//     FormatInfo. Formats register themselves from init, so importing a
//     package is enough to make its formats available.
//
// # Example Usage
//
//	cfg := config.NewBaseConfig("asciidata")
//	cfg.Ingest.Format = "squid"
//
//	src, err := registry.CreateSource("squid", cfg)
//	if err != nil {
//		return err
//	}
//	curve, err := src.Read(ctx, "run.dat")
//	if err != nil {
//		return err
//	}
//
//	dst, err := destinations.New("parquet", cfg)
//	if err != nil {
//		return err
//	}
//	written, err := dst.Write(ctx, "run.parquet", curve)
//
// Writes never overwrite by default: with Output.AutoNumbering set, an
// existing run.parquet makes the second write land in run_002.parquet and
// Write returns that location.
package connector
