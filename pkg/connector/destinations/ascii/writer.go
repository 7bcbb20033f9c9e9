// Package ascii writes DataCurves as delimited text, the way the
// acquisition software does, so that the files can be read back by the
// ascii source.
//
// Three layouts are registered:
//   - ascii: data rows only
//   - column: one "name (unit)" title line, then data rows
//   - md: a timestamp, a [Header] block of "Column NN : name<TAB>unit"
//     lines and [Header end], then data rows
//
// Values are formatted with the output float format, "%+10.8e" by default,
// and joined with the output separator. Files are never overwritten while
// auto-numbering is enabled: run.txt is followed by run_002.txt.
package ascii

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/compression"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/base"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	asciisrc "github.com/oneminimax/AsciiDataFile/pkg/connector/sources/ascii"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
	"go.uber.org/zap"
)

// Layouts registered by this package.
const (
	FormatASCII  = "ascii"
	FormatColumn = "column"
	FormatMD     = "md"
)

// TimestampLayout is the layout of the first line of md files.
const TimestampLayout = "Mon Jan _2 15:04:05 2006"

var descriptions = map[string]string{
	FormatASCII:  "Delimited numbers without header",
	FormatColumn: "Title line of \"name (unit)\" fields followed by delimited numbers",
	FormatMD:     "Timestamped [Header] block followed by delimited numbers",
}

func init() {
	for _, format := range []string{FormatASCII, FormatColumn, FormatMD} {
		format := format
		_ = registry.RegisterDestination(format, func(cfg *config.BaseConfig) (core.Destination, error) {
			return NewWriter(format, cfg)
		})
		caps := []string{"compression", "auto_numbering", "streaming", "s3", "gcs"}
		if format != FormatASCII {
			caps = append(caps, "load")
		}
		_ = registry.RegisterFormatInfo(&registry.FormatInfo{
			Name:         format,
			Type:         string(core.ConnectorTypeDestination),
			Description:  descriptions[format],
			Extensions:   []string{".txt"},
			Capabilities: caps,
		})
	}
}

// Writer writes curves in one text layout.
type Writer struct {
	*base.Destination

	separator   string
	floatFormat string
	now         func() time.Time
}

// NewWriter creates a writer for format (ascii, column or md).
func NewWriter(format string, cfg *config.BaseConfig) (*Writer, error) {
	if _, ok := descriptions[format]; !ok {
		return nil, errors.Newf(errors.ErrorTypeCapability, "unknown text layout %q", format)
	}
	if cfg == nil {
		cfg = config.NewBaseConfig(format)
	}
	floatFormat := cfg.Output.FloatFormat
	if floatFormat == "" {
		floatFormat = "%+10.8e"
	}
	if s := fmt.Sprintf(floatFormat, 1.0); strings.Contains(s, "%!") {
		return nil, errors.Newf(errors.ErrorTypeConfig, "float format %q is not a float verb", floatFormat)
	}
	separator := cfg.Output.Separator
	if separator == "" {
		separator = ", "
	}

	return &Writer{
		Destination: base.NewDestination(format, ".txt", cfg),
		separator:   separator,
		floatFormat: floatFormat,
		now:         time.Now,
	}, nil
}

// SetClock replaces the clock used for md timestamps.
func (w *Writer) SetClock(now func() time.Time) { w.now = now }

// Write implements core.Destination.
func (w *Writer) Write(ctx context.Context, uri string, curve *columnar.DataCurve) (string, error) {
	return w.Export(ctx, uri, curve, func(out io.Writer) error {
		bw := bufio.NewWriter(out)
		if err := w.writeHeader(bw, curve.ColumnNames(), curve.ColumnUnits()); err != nil {
			return err
		}
		n := curve.Len()
		columns := make([][]float64, curve.NumColumns())
		for j := range columns {
			columns[j] = curve.ColumnAt(j).Data()
		}
		row := make([]float64, len(columns))
		for i := 0; i < n; i++ {
			if i%1024 == 0 && ctx.Err() != nil {
				return ctx.Err()
			}
			for j := range columns {
				row[j] = columns[j][i]
			}
			if err := w.writeRow(bw, row); err != nil {
				return err
			}
		}
		if err := bw.Flush(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write rows")
		}
		return nil
	})
}

// writeHeader writes the layout header for the given schema.
func (w *Writer) writeHeader(out io.Writer, names, units []string) error {
	var err error
	switch w.Format() {
	case FormatColumn:
		fields := make([]string, len(names))
		for i, name := range names {
			fields[i] = fmt.Sprintf("%s (%s)", name, units[i])
		}
		_, err = fmt.Fprintln(out, strings.Join(fields, w.separator))
	case FormatMD:
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n[Header]\n", w.now().Format(TimestampLayout))
		for i, name := range names {
			fmt.Fprintf(&b, "Column %2d : %-20s\t%s\n", i, name, units[i])
		}
		b.WriteString("[Header end]\n\n")
		_, err = io.WriteString(out, b.String())
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write header")
	}
	return nil
}

func (w *Writer) writeRow(out io.Writer, row []float64) error {
	if len(row) == 0 {
		return nil
	}
	var b strings.Builder
	for j, v := range row {
		if j > 0 {
			b.WriteString(w.separator)
		}
		fmt.Fprintf(&b, w.floatFormat, v)
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(out, b.String()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write row")
	}
	return nil
}

// Load implements core.Loader for the column and md layouts. Files of the
// ascii layout carry no schema and cannot be loaded without one; use the
// generic source instead.
func (w *Writer) Load(ctx context.Context, uri string) (*columnar.DataCurve, error) {
	var provider core.HeaderProvider
	tokenizer, err := w.tokenizer()
	if err != nil {
		return nil, err
	}
	switch w.Format() {
	case FormatColumn:
		provider = &asciisrc.ColumnHeader{Tokenizer: tokenizer}
	case FormatMD:
		provider = asciisrc.MDHeader{}
	default:
		return nil, errors.New(errors.ErrorTypeCapability, "ascii layout has no header to load a schema from").
			WithDetail("uri", uri)
	}

	rc, err := w.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := asciisrc.NewReader(provider, tokenizer,
		asciisrc.WithChunkSize(w.Config().Ingest.ChunkSize),
		asciisrc.WithTag(compression.StripExtension(path.Base(uri))),
		asciisrc.WithLogger(w.Logger().With(zap.String(string(logger.FileKey), uri))),
	)
	return reader.ReadFrom(ctx, rc)
}

// tokenizer returns a tokenizer splitting what writeRow joins.
func (w *Writer) tokenizer() (core.LineTokenizer, error) {
	sep := strings.TrimSpace(w.separator)
	if sep == "" {
		return asciisrc.WhitespaceTokenizer{}, nil
	}
	return asciisrc.NewTokenizer(`\s*` + regexp.QuoteMeta(sep) + `\s*`)
}

var (
	_ core.Destination = (*Writer)(nil)
	_ core.Loader      = (*Writer)(nil)
)
