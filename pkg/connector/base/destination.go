// Package base provides the plumbing shared by every destination: output
// naming, storage and compression, retries of remote uploads, metrics and
// tracing.
//
// # Usage
//
// Format packages embed *Destination and implement only the encoding:
//
//	type Writer struct {
//	    *base.Destination
//	}
//
//	func (w *Writer) Write(ctx context.Context, uri string, curve *columnar.DataCurve) (string, error) {
//	    return w.Export(ctx, uri, curve, func(out io.Writer) error {
//	        return encode(out, curve)
//	    })
//	}
package base

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/compression"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
	"github.com/oneminimax/AsciiDataFile/pkg/metrics"
	"github.com/oneminimax/AsciiDataFile/pkg/observability"
	"github.com/oneminimax/AsciiDataFile/pkg/storage"
	"go.uber.org/zap"
)

// Destination holds the configuration and collaborators of one output
// format.
type Destination struct {
	format    string
	extension string
	cfg       *config.BaseConfig
	opener    *storage.Opener
	retry     *RetryPolicy
	collector *metrics.Collector
	tracer    *observability.FormatTracer
	logger    *zap.Logger
	namer     func(ctx context.Context, uri string) (string, error)
}

// NewDestination creates the shared part of a destination. A nil cfg uses
// the defaults of config.NewBaseConfig.
func NewDestination(format, extension string, cfg *config.BaseConfig) *Destination {
	if cfg == nil {
		cfg = config.NewBaseConfig(format)
	}
	return &Destination{
		format:    format,
		extension: extension,
		cfg:       cfg,
		opener:    storage.NewOpener(nil),
		retry:     DefaultRetryPolicy(),
		collector: metrics.NewCollector(format),
		tracer:    observability.NewFormatTracer(string(core.ConnectorTypeDestination), format),
		logger:    logger.With(zap.String(string(logger.FormatKey), format)),
	}
}

// Format returns the registered format name.
func (d *Destination) Format() string { return d.format }

// Extension returns the conventional file suffix.
func (d *Destination) Extension() string { return d.extension }

// Config returns the configuration the destination was built with.
func (d *Destination) Config() *config.BaseConfig { return d.cfg }

// Logger returns the destination logger.
func (d *Destination) Logger() *zap.Logger { return d.logger }

// Opener returns the storage opener.
func (d *Destination) Opener() *storage.Opener { return d.opener }

// Metrics returns the export totals.
func (d *Destination) Metrics() map[string]interface{} { return d.collector.GetAll() }

// SetOpener replaces the storage opener.
func (d *Destination) SetOpener(o *storage.Opener) { d.opener = o }

// SetRetryPolicy replaces the retry policy used for remote locations.
func (d *Destination) SetRetryPolicy(p *RetryPolicy) { d.retry = p }

// SetLogger replaces the destination logger.
func (d *Destination) SetLogger(l *zap.Logger) { d.logger = l }

// SetNamer replaces the auto-numbering of Target for destinations whose
// uri does not name a single file.
func (d *Destination) SetNamer(fn func(ctx context.Context, uri string) (string, error)) { d.namer = fn }

// Target returns the location to write for uri. With auto-numbering
// enabled, an existing file is never overwritten: the first free name of
// the sequence name.ext, name_002.ext, name_003.ext, ... is returned.
func (d *Destination) Target(ctx context.Context, uri string) (string, error) {
	if !d.cfg.Output.AutoNumbering {
		return uri, nil
	}
	if d.namer != nil {
		return d.namer(ctx, uri)
	}
	return NextFreeName(ctx, d.opener.Exists, uri)
}

// Create opens uri for writing, compressing the stream when the output
// configuration or the file extension asks for it.
func (d *Destination) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	alg, err := compression.ParseAlgorithm(d.cfg.Output.Compression)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid output compression")
	}
	alg = compression.Resolve(alg, uri)

	raw, err := d.opener.Create(ctx, uri)
	if err != nil {
		return nil, err
	}
	w, err := compression.NewWriter(raw, alg, compression.Default)
	if err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to start compressed stream").
			WithDetail("algorithm", string(alg))
	}
	return &stackedWriteCloser{WriteCloser: w, under: raw}, nil
}

// Open opens uri for reading, decompressing by file extension.
func (d *Destination) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	alg := compression.DetectFromPath(uri)
	raw, err := d.opener.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	r, err := compression.NewReader(raw, alg)
	if err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open compressed stream").
			WithDetail("algorithm", string(alg))
	}
	return &stackedReadCloser{ReadCloser: r, under: raw}, nil
}

// Export resolves the target of uri, opens it and lets encode write the
// curve. Remote uploads are retried on storage failures. The location
// written is returned.
func (d *Destination) Export(ctx context.Context, uri string, curve *columnar.DataCurve, encode func(w io.Writer) error) (string, error) {
	return d.ExportTo(ctx, uri, curve, func(ctx context.Context, target string) error {
		w, err := d.Create(ctx, target)
		if err != nil {
			return err
		}
		if err := encode(w); err != nil {
			_ = w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to finish output").WithDetail("uri", target)
		}
		return nil
	})
}

// ExportTo is Export for encoders that manage the target themselves, such
// as databases.
func (d *Destination) ExportTo(ctx context.Context, uri string, curve *columnar.DataCurve, write func(ctx context.Context, target string) error) (string, error) {
	if curve == nil {
		return "", errors.New(errors.ErrorTypeValidation, "nil curve")
	}

	timer := metrics.NewTimer(d.format)
	var target string
	err := d.tracer.Trace(ctx, "write", func(ctx context.Context, span *observability.Span) error {
		var err error
		target, err = d.Target(ctx, uri)
		if err != nil {
			return err
		}
		span.SetAttribute("uri", target)
		span.SetAttribute("rows", curve.Len())
		span.SetAttribute("columns", curve.NumColumns())

		policy := NoRetryPolicy()
		if loc, perr := storage.Parse(target); perr == nil && loc.Scheme != storage.SchemeFile && d.retry != nil {
			policy = d.retry
		}
		return policy.Execute(ctx, func() error { return write(ctx, target) }, retryableStorageError)
	})
	elapsed := timer.Stop()
	d.collector.CurveWritten(elapsed, err)
	if err != nil {
		d.logger.Error("curve export failed", zap.String(string(logger.FileKey), uri), zap.Error(err))
		return "", err
	}

	d.logger.Info("curve written",
		zap.String(string(logger.FileKey), target),
		zap.Int("rows", curve.Len()),
		zap.Int("columns", curve.NumColumns()),
		zap.Duration("duration", elapsed))
	return target, nil
}

var numberedName = regexp.MustCompile(`^(.+)_(\d{3})(\.[^./]*)?$`)

// NextFreeName returns uri if nothing exists there, otherwise the first
// numbered variant that does not exist. A compression suffix is kept at
// the end: run.dat.gz is followed by run_002.dat.gz.
func NextFreeName(ctx context.Context, exists func(context.Context, string) (bool, error), uri string) (string, error) {
	candidate := uri
	for {
		found, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !found {
			return candidate, nil
		}
		candidate = nextNumberedName(candidate)
	}
}

func nextNumberedName(uri string) string {
	dir, file := path.Split(uri)
	stem := compression.StripExtension(file)
	compressed := strings.TrimPrefix(file, stem)

	if m := numberedName.FindStringSubmatch(stem); m != nil {
		n, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s%s_%03d%s%s", dir, m[1], n+1, m[3], compressed)
	}
	ext := path.Ext(stem)
	return fmt.Sprintf("%s%s_002%s%s", dir, strings.TrimSuffix(stem, ext), ext, compressed)
}

type stackedWriteCloser struct {
	io.WriteCloser
	under io.Closer
}

// Flush pushes buffered compressed data to the underlying stream.
func (c *stackedWriteCloser) Flush() error {
	if f, ok := c.WriteCloser.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (c *stackedWriteCloser) Close() error {
	err := c.WriteCloser.Close()
	if uerr := c.under.Close(); err == nil {
		err = uerr
	}
	return err
}

type stackedReadCloser struct {
	io.ReadCloser
	under io.Closer
}

func (c *stackedReadCloser) Close() error {
	err := c.ReadCloser.Close()
	if uerr := c.under.Close(); err == nil {
		err = uerr
	}
	return err
}
