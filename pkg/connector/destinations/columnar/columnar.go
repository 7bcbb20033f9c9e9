// Package columnar exports DataCurves to the binary columnar formats:
//
//   - arrow: Arrow IPC file
//   - parquet: Apache Parquet through pqarrow
//   - avro: Avro object container file
//
// Every column becomes a float64 field. The curve tag, the column units and
// the scalar parameters travel in the format's metadata so that Load
// restores the curve exactly:
//
//	dest, _ := columnar.NewDestination(columnar.Parquet, cfg)
//	uri, err := dest.Write(ctx, "s3://bucket/run.parquet", curve)
//	back, err := dest.Load(ctx, uri)
package columnar

import (
	"context"
	"io"
	"math"

	gojson "github.com/goccy/go-json"
	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/base"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

// Format represents a columnar storage format
type Format string

const (
	// Arrow is the Arrow IPC file format
	Arrow Format = "arrow"
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Avro is the Avro object container format
	Avro Format = "avro"
)

// Metadata keys.
const (
	metaName       = "asciidata.name"
	metaParameters = "asciidata.parameters"
	metaColumns    = "asciidata.columns"
	metaUnit       = "unit"
)

var formats = map[Format]struct {
	extension   string
	description string
	encode      func(w io.Writer, curve *columnar.DataCurve, codec string) error
	decode      func(ctx context.Context, data []byte) (*curveData, error)
}{
	Arrow:   {".arrow", "Arrow IPC file of float64 columns", writeArrow, readArrow},
	Parquet: {".parquet", "Apache Parquet file of float64 columns", writeParquet, readParquet},
	Avro:    {".avro", "Avro object container file with one record per row", writeAvro, readAvro},
}

func init() {
	for _, format := range []Format{Arrow, Parquet, Avro} {
		format := format
		_ = registry.RegisterDestination(string(format), func(cfg *config.BaseConfig) (core.Destination, error) {
			return NewDestination(format, cfg)
		})
		_ = registry.RegisterFormatInfo(&registry.FormatInfo{
			Name:         string(format),
			Type:         string(core.ConnectorTypeDestination),
			Description:  formats[format].description,
			Extensions:   []string{formats[format].extension},
			Capabilities: []string{"load", "parameters", "codec", "s3", "gcs"},
			Options:      map[string]string{"codec": "snappy, gzip, zstd, lz4, deflate or none"},
		})
	}
}

// Destination writes one columnar format.
type Destination struct {
	*base.Destination
	format Format
	codec  string
}

// NewDestination creates a destination for format.
func NewDestination(format Format, cfg *config.BaseConfig) (*Destination, error) {
	if _, ok := formats[format]; !ok {
		return nil, errors.Newf(errors.ErrorTypeCapability, "unknown columnar format %q", format)
	}
	d := &Destination{
		Destination: base.NewDestination(string(format), formats[format].extension, cfg),
		format:      format,
	}
	d.codec = d.Config().Output.Codec
	return d, nil
}

// Write implements core.Destination.
func (d *Destination) Write(ctx context.Context, uri string, curve *columnar.DataCurve) (string, error) {
	return d.Export(ctx, uri, curve, func(w io.Writer) error {
		// Some encoders close the sink they are given.
		if err := formats[d.format].encode(nopCloser{w}, curve, d.codec); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to encode "+string(d.format)).
				WithDetail("codec", d.codec)
		}
		return nil
	})
}

// Load implements core.Loader.
func (d *Destination) Load(ctx context.Context, uri string) (*columnar.DataCurve, error) {
	rc, err := d.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// The readers need random access.
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read "+uri)
	}
	cd, err := formats[d.format].decode(ctx, data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedRow, "failed to decode "+string(d.format)).
			WithDetail("uri", uri)
	}
	return cd.curve(columnar.WithChunkSize(d.Config().Ingest.ChunkSize))
}

// curveData is the format-neutral content of a decoded file.
type curveData struct {
	name       string
	names      []string
	units      []string
	columns    [][]float64
	parameters map[string]columnar.Parameter
}

func (cd *curveData) curve(opts ...columnar.Option) (*columnar.DataCurve, error) {
	fields := make([]columnar.Field, 0, len(cd.names)+len(cd.parameters))
	for i, name := range cd.names {
		fields = append(fields, columnar.ColumnField(name, cd.units[i], cd.columns[i]))
	}
	for name, p := range cd.parameters {
		fields = append(fields, columnar.ParameterField(name, p.Unit, p.Value))
	}
	return columnar.New(fields, append(opts, columnar.WithTag(cd.name))...)
}

type parameter struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

func encodeParameters(curve *columnar.DataCurve) (string, error) {
	params := curve.Parameters()
	out := make(map[string]parameter, len(params))
	for name, p := range params {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return "", errors.Newf(errors.ErrorTypeValidation, "parameter %q is not finite", name)
		}
		out[name] = parameter{Value: p.Value, Unit: p.Unit}
	}
	b, err := gojson.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeParameters(s string) (map[string]columnar.Parameter, error) {
	if s == "" {
		return nil, nil
	}
	var in map[string]parameter
	if err := gojson.Unmarshal([]byte(s), &in); err != nil {
		return nil, err
	}
	out := make(map[string]columnar.Parameter, len(in))
	for name, p := range in {
		out[name] = columnar.Parameter{Value: p.Value, Unit: p.Unit}
	}
	return out, nil
}

type nopCloser struct {
	io.Writer
}

var (
	_ core.Destination = (*Destination)(nil)
	_ core.Loader      = (*Destination)(nil)
)
