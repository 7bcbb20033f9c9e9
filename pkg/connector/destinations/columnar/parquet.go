package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
)

func getParquetCompression(codec string) compress.Compression {
	switch codec {
	case "none":
		return compress.Codecs.Uncompressed
	case "gzip", "deflate":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "lz4":
		return compress.Codecs.Lz4Raw
	default:
		return compress.Codecs.Snappy
	}
}

func writeParquet(w io.Writer, curve *columnar.DataCurve, codec string) error {
	schema, err := curveToArrowSchema(curve)
	if err != nil {
		return err
	}
	mem := memory.NewGoAllocator()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(getParquetCompression(codec)),
		parquet.WithAllocator(mem),
	)
	// The stored Arrow schema keeps the unit metadata of each field.
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(mem),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	rec := curveToRecord(mem, schema, curve)
	defer rec.Release()

	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write row group: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return nil
}

func readParquet(ctx context.Context, data []byte) (*curveData, error) {
	fr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet reader: %w", err)
	}
	defer fr.Close()

	mem := memory.NewGoAllocator()
	ar, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}

	tbl, err := ar.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer tbl.Release()

	cd, err := arrowToCurveData(tbl.Schema())
	if err != nil {
		return nil, err
	}
	for j := range cd.columns {
		cd.columns[j] = make([]float64, 0, tbl.NumRows())
		for _, chunk := range tbl.Column(j).Data().Chunks() {
			if cd.columns[j], err = appendArray(cd.columns[j], chunk); err != nil {
				return nil, err
			}
		}
	}
	return cd, nil
}
