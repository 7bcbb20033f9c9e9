package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
)

// curveToArrowSchema describes curve as float64 fields carrying their unit
// as field metadata.
func curveToArrowSchema(curve *columnar.DataCurve) (*arrow.Schema, error) {
	params, err := encodeParameters(curve)
	if err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, curve.NumColumns())
	for i := range fields {
		c := curve.ColumnAt(i)
		fields[i] = arrow.Field{
			Name:     c.Name(),
			Type:     arrow.PrimitiveTypes.Float64,
			Nullable: true,
			Metadata: arrow.NewMetadata([]string{metaUnit}, []string{c.Unit()}),
		}
	}
	md := arrow.NewMetadata([]string{metaName, metaParameters}, []string{curve.Tag(), params})
	return arrow.NewSchema(fields, &md), nil
}

// curveToRecord builds a single record batch holding every row.
func curveToRecord(mem memory.Allocator, schema *arrow.Schema, curve *columnar.DataCurve) arrow.Record {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i := range schema.Fields() {
		b.Field(i).(*array.Float64Builder).AppendValues(curve.ColumnAt(i).Data(), nil)
	}
	return b.NewRecord()
}

// arrowToCurveData reads names, units and parameters from schema and
// allocates empty columns for them.
func arrowToCurveData(schema *arrow.Schema) (*curveData, error) {
	cd := &curveData{
		names:   make([]string, schema.NumFields()),
		units:   make([]string, schema.NumFields()),
		columns: make([][]float64, schema.NumFields()),
	}
	for i, f := range schema.Fields() {
		if f.Type.ID() != arrow.FLOAT64 {
			return nil, fmt.Errorf("field %s has type %s, want float64", f.Name, f.Type)
		}
		cd.names[i] = f.Name
		cd.units[i] = metadataValue(f.Metadata, metaUnit)
	}

	md := schema.Metadata()
	cd.name = metadataValue(md, metaName)
	params, err := decodeParameters(metadataValue(md, metaParameters))
	if err != nil {
		return nil, fmt.Errorf("invalid parameters metadata: %w", err)
	}
	cd.parameters = params
	return cd, nil
}

// appendArray appends the values of a float64 array, nulls becoming NaN.
func appendArray(dst []float64, arr arrow.Array) ([]float64, error) {
	f, ok := arr.(*array.Float64)
	if !ok {
		return nil, fmt.Errorf("unexpected array type %s", arr.DataType())
	}
	if f.NullN() == 0 {
		return append(dst, f.Float64Values()...), nil
	}
	for i := 0; i < f.Len(); i++ {
		if f.IsNull(i) {
			dst = append(dst, math.NaN())
			continue
		}
		dst = append(dst, f.Value(i))
	}
	return dst, nil
}

func metadataValue(md arrow.Metadata, key string) string {
	if i := md.FindKey(key); i >= 0 {
		return md.Values()[i]
	}
	return ""
}

func arrowIPCOptions(codec string) []ipc.Option {
	switch codec {
	case "zstd":
		return []ipc.Option{ipc.WithZstd()}
	case "lz4":
		return []ipc.Option{ipc.WithLZ4()}
	default:
		// IPC buffers support only zstd and lz4.
		return nil
	}
}

func writeArrow(w io.Writer, curve *columnar.DataCurve, codec string) error {
	schema, err := curveToArrowSchema(curve)
	if err != nil {
		return err
	}
	mem := memory.NewGoAllocator()

	opts := append([]ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(mem)}, arrowIPCOptions(codec)...)
	fw, err := ipc.NewFileWriter(w, opts...)
	if err != nil {
		return fmt.Errorf("failed to create Arrow writer: %w", err)
	}

	rec := curveToRecord(mem, schema, curve)
	defer rec.Release()

	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	return nil
}

func readArrow(_ context.Context, data []byte) (*curveData, error) {
	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}
	defer fr.Close()

	cd, err := arrowToCurveData(fr.Schema())
	if err != nil {
		return nil, err
	}
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		for j := range cd.columns {
			if cd.columns[j], err = appendArray(cd.columns[j], rec.Column(j)); err != nil {
				return nil, err
			}
		}
	}
	return cd, nil
}
