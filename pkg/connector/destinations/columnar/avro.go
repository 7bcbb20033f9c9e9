package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
)

// avroColumn maps an Avro field back to the column it was written from.
// Avro names are restricted to [A-Za-z_][A-Za-z0-9_]*, column names are
// not.
type avroColumn struct {
	Field string `json:"field"`
	Name  string `json:"name"`
	Unit  string `json:"unit"`
}

func getAvroCompression(codec string) string {
	switch codec {
	case "none":
		return goavro.CompressionNullLabel
	case "deflate", "gzip":
		return goavro.CompressionDeflateLabel
	default:
		return goavro.CompressionSnappyLabel
	}
}

// avroFieldNames turns column names into unique Avro names.
func avroFieldNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		var b strings.Builder
		for j, r := range name {
			switch {
			case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
				b.WriteRune(r)
			case r >= '0' && r <= '9':
				if j == 0 {
					b.WriteByte('_')
				}
				b.WriteRune(r)
			default:
				b.WriteByte('_')
			}
		}
		field := b.String()
		if field == "" {
			field = "_"
		}
		for seen[field] {
			field += "_" + strconv.Itoa(i)
		}
		seen[field] = true
		out[i] = field
	}
	return out
}

func curveToAvroSchema(fields []string) (string, error) {
	avroFields := make([]map[string]interface{}, len(fields))
	for i, name := range fields {
		avroFields[i] = map[string]interface{}{
			"name": name,
			"type": "double",
		}
	}
	b, err := gojson.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   "DataPoint",
		"fields": avroFields,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeAvro(w io.Writer, curve *columnar.DataCurve, codec string) error {
	names := curve.ColumnNames()
	fields := avroFieldNames(names)

	schema, err := curveToAvroSchema(fields)
	if err != nil {
		return err
	}
	avroCodec, err := goavro.NewCodec(schema)
	if err != nil {
		return fmt.Errorf("failed to create Avro codec: %w", err)
	}

	units := curve.ColumnUnits()
	mapping := make([]avroColumn, len(names))
	for i := range names {
		mapping[i] = avroColumn{Field: fields[i], Name: names[i], Unit: units[i]}
	}
	columnsMeta, err := gojson.Marshal(mapping)
	if err != nil {
		return err
	}
	params, err := encodeParameters(curve)
	if err != nil {
		return err
	}

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           avroCodec,
		CompressionName: getAvroCompression(codec),
		MetaData: map[string][]byte{
			metaName:       []byte(curve.Tag()),
			metaColumns:    columnsMeta,
			metaParameters: []byte(params),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create Avro writer: %w", err)
	}

	const batch = 1024
	columns := make([][]float64, len(names))
	for j := range columns {
		columns[j] = curve.ColumnAt(j).Data()
	}
	buf := make([]interface{}, 0, batch)
	for i := 0; i < curve.Len(); i++ {
		datum := make(map[string]interface{}, len(fields))
		for j, field := range fields {
			datum[field] = columns[j][i]
		}
		buf = append(buf, datum)
		if len(buf) == batch {
			if err := ocf.Append(buf); err != nil {
				return fmt.Errorf("failed to append rows: %w", err)
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if err := ocf.Append(buf); err != nil {
			return fmt.Errorf("failed to append rows: %w", err)
		}
	}
	return nil
}

func readAvro(_ context.Context, data []byte) (*curveData, error) {
	ocf, err := goavro.NewOCFReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create Avro reader: %w", err)
	}
	meta := ocf.MetaData()

	var mapping []avroColumn
	if raw := meta[metaColumns]; len(raw) > 0 {
		if err := gojson.Unmarshal(raw, &mapping); err != nil {
			return nil, fmt.Errorf("invalid columns metadata: %w", err)
		}
	}
	params, err := decodeParameters(string(meta[metaParameters]))
	if err != nil {
		return nil, fmt.Errorf("invalid parameters metadata: %w", err)
	}

	cd := &curveData{
		name:       string(meta[metaName]),
		names:      make([]string, len(mapping)),
		units:      make([]string, len(mapping)),
		columns:    make([][]float64, len(mapping)),
		parameters: params,
	}
	for i, m := range mapping {
		cd.names[i], cd.units[i] = m.Name, m.Unit
	}

	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row, ok := datum.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected Avro datum %T", datum)
		}
		for i, m := range mapping {
			v, ok := row[m.Field].(float64)
			if !ok {
				v = math.NaN()
			}
			cd.columns[i] = append(cd.columns[i], v)
		}
	}
	if err := ocf.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return cd, nil
}
