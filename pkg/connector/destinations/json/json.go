// Package json exports DataCurves as JSON documents and reads them back:
//
//	{
//	  "name": "cooldown",
//	  "parameters": {"field": {"value": 1000, "unit": "Oe"}},
//	  "columns": [
//	    {"name": "Time", "unit": "s", "values": [0, 1, 2]},
//	    {"name": "R", "unit": "ohm", "values": [1.5, null, 1.2]}
//	  ]
//	}
//
// Missing values (NaN) are written as null.
package json

import (
	"bytes"
	"context"
	"io"
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"
	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/base"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
)

// Format is the registered name of the JSON destination.
const Format = "json"

func init() {
	_ = registry.RegisterDestination(Format, func(cfg *config.BaseConfig) (core.Destination, error) {
		return NewDestination(cfg), nil
	})
	_ = registry.RegisterFormatInfo(&registry.FormatInfo{
		Name:         Format,
		Type:         string(core.ConnectorTypeDestination),
		Description:  "JSON document with parameters and named, unit-tagged columns",
		Extensions:   []string{".json"},
		Capabilities: []string{"compression", "auto_numbering", "load", "parameters", "s3", "gcs"},
	})
}

// Document is the JSON layout of a curve.
type Document struct {
	Name       string               `json:"name"`
	Parameters map[string]Parameter `json:"parameters,omitempty"`
	Columns    []Column             `json:"columns"`
}

// Parameter is a scalar parameter with its unit.
type Parameter struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Column is one named series.
type Column struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Values Values `json:"values"`
}

// Values encodes NaN and infinities as null.
type Values []float64

// MarshalJSON implements json.Marshaler.
func (v Values) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.Grow(len(v) * 12)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			b.WriteString("null")
			continue
		}
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for i, x := range raw {
		if x == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *x
	}
	*v = out
	return nil
}

// NewDocument converts a curve.
func NewDocument(curve *columnar.DataCurve) *Document {
	doc := &Document{
		Name:    curve.Tag(),
		Columns: make([]Column, curve.NumColumns()),
	}
	if params := curve.Parameters(); len(params) > 0 {
		doc.Parameters = make(map[string]Parameter, len(params))
		for name, p := range params {
			doc.Parameters[name] = Parameter{Value: p.Value, Unit: p.Unit}
		}
	}
	for i := range doc.Columns {
		c := curve.ColumnAt(i)
		doc.Columns[i] = Column{Name: c.Name(), Unit: c.Unit(), Values: c.Data()}
	}
	return doc
}

// Curve converts the document back into a curve.
func (doc *Document) Curve(opts ...columnar.Option) (*columnar.DataCurve, error) {
	fields := make([]columnar.Field, 0, len(doc.Columns)+len(doc.Parameters))
	for _, c := range doc.Columns {
		fields = append(fields, columnar.ColumnField(c.Name, c.Unit, c.Values))
	}
	for name, p := range doc.Parameters {
		fields = append(fields, columnar.ParameterField(name, p.Unit, p.Value))
	}
	opts = append(opts, columnar.WithTag(doc.Name))
	return columnar.New(fields, opts...)
}

// Destination writes JSON documents.
type Destination struct {
	*base.Destination
	indent string
}

// NewDestination creates a JSON destination.
func NewDestination(cfg *config.BaseConfig) *Destination {
	return &Destination{Destination: base.NewDestination(Format, ".json", cfg)}
}

// SetIndent enables pretty printing with the given indent.
func (d *Destination) SetIndent(indent string) { d.indent = indent }

// Write implements core.Destination.
func (d *Destination) Write(ctx context.Context, uri string, curve *columnar.DataCurve) (string, error) {
	return d.Export(ctx, uri, curve, func(w io.Writer) error {
		return d.Encode(w, curve)
	})
}

// Encode writes the document of curve to w.
func (d *Destination) Encode(w io.Writer, curve *columnar.DataCurve) error {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if d.indent != "" {
		enc.SetIndent("", d.indent)
	}
	if err := enc.Encode(NewDocument(curve)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to encode curve")
	}
	return nil
}

// Load implements core.Loader.
func (d *Destination) Load(ctx context.Context, uri string) (*columnar.DataCurve, error) {
	rc, err := d.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return d.Decode(rc)
}

// Decode reads one document from r.
func (d *Destination) Decode(r io.Reader) (*columnar.DataCurve, error) {
	var doc Document
	if err := gojson.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedRow, "invalid curve document")
	}
	return doc.Curve(columnar.WithChunkSize(d.Config().Ingest.ChunkSize))
}

var (
	_ core.Destination = (*Destination)(nil)
	_ core.Loader      = (*Destination)(nil)
)
