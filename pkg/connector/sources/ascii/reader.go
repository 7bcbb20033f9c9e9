// Package ascii reads line-oriented instrument files into DataCurves.
//
// One Reader handles every format. The format-specific part is the
// core.HeaderProvider, which consumes the header and returns the column
// schema; a core.LineTokenizer splits the data lines:
//
//	tok, _ := ascii.NewRegexpTokenizer(",")
//	r := ascii.NewReader(ascii.SquidHeader{}, tok)
//	curve, err := r.ReadFrom(ctx, f)
//
// Data lines are tolerant: a field that is not a number becomes the fill
// value (NaN by default) and a line with fewer fields than columns is
// skipped. Neither stops the ingestion.
package ascii

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
	"github.com/oneminimax/AsciiDataFile/pkg/metrics"
	"go.uber.org/zap"
)

const (
	// SkipShortRow is the reason logged for lines with too few fields.
	SkipShortRow = "short_row"
	// SkipBlank is the reason logged for empty lines.
	SkipBlank = "blank"

	ctxCheckInterval = 1024
)

// Option configures a Reader.
type Option func(*Reader)

// WithChunkSize sets the growth increment of the ingested curve.
func WithChunkSize(n int) Option {
	return func(r *Reader) { r.chunkSize = n }
}

// WithFillValue sets the value stored for unparsable fields.
func WithFillValue(v float64) Option {
	return func(r *Reader) { r.fill = v }
}

// WithLogger sets the logger. Skipped lines are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// WithCollector reports ingestion totals to c.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Reader) { r.collector = c }
}

// WithTag sets the tag of the ingested curve.
func WithTag(tag string) Option {
	return func(r *Reader) { r.tag = tag }
}

// Reader ingests data lines into a DataCurve using a header provider and a
// tokenizer.
type Reader struct {
	provider  core.HeaderProvider
	tokenizer core.LineTokenizer

	chunkSize int
	fill      float64
	tag       string
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewReader creates a reader for the format described by provider.
func NewReader(provider core.HeaderProvider, tokenizer core.LineTokenizer, opts ...Option) *Reader {
	r := &Reader{
		provider:  provider,
		tokenizer: tokenizer,
		chunkSize: columnar.DefaultChunkSize,
		fill:      math.NaN(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get()
	}
	if r.collector == nil {
		r.collector = metrics.NewCollector(provider.Name())
	}
	return r
}

// Format returns the name of the header provider.
func (r *Reader) Format() string { return r.provider.Name() }

// ReadFrom parses the header of src and ingests all its data lines.
func (r *Reader) ReadFrom(ctx context.Context, src io.Reader) (*columnar.DataCurve, error) {
	timer := metrics.NewTimer("ingest")
	ing, err := r.start(src, false)
	if err != nil {
		return nil, err
	}
	if _, err := ing.readAvailable(ctx); err != nil {
		return nil, err
	}
	r.collector.ObserveIngest(timer.Stop())
	ing.logSummary()
	return ing.curve, nil
}

// ingestion is the state of one file being read.
type ingestion struct {
	r      *Reader
	lines  *lineReader
	schema *core.Schema
	curve  *columnar.DataCurve
	width  int

	rows    int
	skipped int
	filled  int
}

func (r *Reader) start(src io.Reader, follow bool) (*ingestion, error) {
	lines := newLineReader(src, follow)

	schema, err := r.provider.ReadHeader(lines)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	curve, err := columnar.NewEmpty(schema.Names, schema.Units,
		columnar.WithChunkSize(r.chunkSize), columnar.WithTag(r.tag))
	if err != nil {
		return nil, err
	}

	r.logger.Debug("header parsed",
		zap.String("format", r.provider.Name()),
		zap.Strings("columns", schema.Names),
		zap.Strings("units", schema.Units),
		zap.Int("header_lines", lines.Line()))

	return &ingestion{
		r:      r,
		lines:  lines,
		schema: schema,
		curve:  curve,
		width:  schema.Len(),
	}, nil
}

// readAvailable ingests lines until the end of the currently available
// input and returns the number of rows appended.
func (ing *ingestion) readAvailable(ctx context.Context) (int, error) {
	appended := 0
	reallocs := ing.curve.Reallocations()

	for i := 0; ; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return appended, err
			}
		}

		line, err := ing.lines.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return appended, errors.Wrap(err, errors.ErrorTypeFile, "failed to read data line").
				WithDetail("line", ing.lines.Line()+1)
		}

		row, ok := ing.parse(line)
		if !ok {
			continue
		}
		if err := ing.curve.AddDataPoint(row); err != nil {
			return appended, err
		}
		ing.rows++
		appended++
		ing.r.collector.RowIngested()
	}

	ing.r.collector.Reallocations(ing.curve.Reallocations() - reallocs)
	return appended, nil
}

// parse converts one data line. Fields are selected by the schema's field
// positions; fields that are missing or not numbers become the fill value.
func (ing *ingestion) parse(line string) ([]float64, bool) {
	if strings.TrimSpace(line) == "" {
		ing.skip(SkipBlank, 0)
		return nil, false
	}

	fields := ing.r.tokenizer.Tokenize(line)
	if len(fields) < ing.width {
		ing.skip(SkipShortRow, len(fields))
		return nil, false
	}

	row := make([]float64, ing.width)
	filled := 0
	for i := range row {
		pos := ing.schema.Field(i)
		if pos >= len(fields) {
			row[i] = ing.r.fill
			filled++
			continue
		}
		v, err := parseField(fields[pos])
		if err != nil {
			row[i] = ing.r.fill
			filled++
			continue
		}
		row[i] = v
	}

	if filled > 0 {
		ing.filled += filled
		ing.r.collector.FieldsFilled(filled)
	}
	return row, true
}

func (ing *ingestion) skip(reason string, fields int) {
	ing.skipped++
	ing.r.collector.RowSkipped(reason)
	ing.r.logger.Debug("data line skipped",
		zap.Int("line", ing.lines.Line()),
		zap.String("reason", reason),
		zap.Int("fields", fields),
		zap.Int("expected", ing.width))
}

func (ing *ingestion) logSummary() {
	ing.r.logger.Info("file ingested",
		zap.String("format", ing.r.provider.Name()),
		zap.Int("rows", ing.rows),
		zap.Int("skipped", ing.skipped),
		zap.Int("filled", ing.filled),
		zap.Int("reallocations", ing.curve.Reallocations()))
}

// parseField parses a number, also accepting the signed "+NaN" that the
// writers produce for missing values.
func parseField(field string) (float64, error) {
	field = strings.TrimSpace(field)
	v, err := strconv.ParseFloat(field, 64)
	if err != nil && len(field) == 4 && (field[0] == '+' || field[0] == '-') && strings.EqualFold(field[1:], "nan") {
		return math.NaN(), nil
	}
	return v, err
}
