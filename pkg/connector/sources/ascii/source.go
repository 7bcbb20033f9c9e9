package ascii

import (
	"context"
	"io"
	"path"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/compression"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
	"github.com/oneminimax/AsciiDataFile/pkg/metrics"
	"github.com/oneminimax/AsciiDataFile/pkg/observability"
	"github.com/oneminimax/AsciiDataFile/pkg/storage"
	"go.uber.org/zap"
)

var formatDescriptions = map[string]string{
	"generic":          "Delimited numbers with names and units given in the configuration",
	"column":           "Title line of \"name (unit)\" fields followed by delimited numbers",
	"md":               "[Header] block of \"Column NN : name<TAB>unit\" lines",
	"squid":            "Quantum Design MPMS SQUID magnetometer .dat file",
	"ppms-resistivity": "Quantum Design PPMS resistivity option .dat file",
	"ppms-acms":        "Quantum Design PPMS AC susceptibility .dat file",
}

func init() {
	for _, format := range config.InputFormats {
		format := format
		_ = registry.RegisterSource(format, func(cfg *config.BaseConfig) (core.Source, error) {
			return NewSource(format, cfg)
		})
		_ = registry.RegisterFormatInfo(&registry.FormatInfo{
			Name:         format,
			Type:         string(core.ConnectorTypeSource),
			Description:  formatDescriptions[format],
			Capabilities: []string{"compression", "follow", "s3", "gcs"},
		})
	}
}

// Source reads instrument files of one format from any storage location,
// decompressing them as configured.
type Source struct {
	format    string
	cfg       *config.BaseConfig
	opener    *storage.Opener
	collector *metrics.Collector
	tracer    *observability.FormatTracer
	logger    *zap.Logger
}

// NewSource creates a source for format. The header provider and tokenizer
// are built from cfg.Ingest.
func NewSource(format string, cfg *config.BaseConfig) (*Source, error) {
	if cfg == nil {
		cfg = config.NewBaseConfig(format)
	}
	// Fail early on bad provider options.
	if _, err := NewHeaderProvider(format, cfg.Ingest); err != nil {
		return nil, err
	}
	if _, err := NewTokenizer(cfg.Ingest.Separator); err != nil {
		return nil, err
	}

	return &Source{
		format:    format,
		cfg:       cfg,
		opener:    storage.NewOpener(nil),
		collector: metrics.NewCollector(format),
		tracer:    observability.NewFormatTracer(string(core.ConnectorTypeSource), format),
		logger:    logger.With(zap.String("format", format)),
	}, nil
}

// WithOpener replaces the storage opener, for example to set a region.
func (s *Source) WithOpener(o *storage.Opener) *Source {
	s.opener = o
	return s
}

// Format implements core.Source.
func (s *Source) Format() string { return s.format }

// Metrics implements core.Source.
func (s *Source) Metrics() map[string]interface{} { return s.collector.GetAll() }

// Read implements core.Source.
func (s *Source) Read(ctx context.Context, uri string) (*columnar.DataCurve, error) {
	var curve *columnar.DataCurve
	err := s.tracer.Trace(ctx, "read", func(ctx context.Context, span *observability.Span) error {
		span.SetAttribute("uri", uri)

		rc, err := s.open(ctx, uri)
		if err != nil {
			return err
		}
		defer rc.Close()

		reader, err := s.newReader(uri)
		if err != nil {
			return err
		}
		curve, err = reader.ReadFrom(ctx, rc)
		if err != nil {
			return errors.Wrap(err, errors.TypeOf(err), "failed to ingest "+uri)
		}
		span.SetAttribute("rows", curve.Len())
		span.SetAttribute("columns", curve.ColumnNames())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return curve, nil
}

// Follow opens a local file for hot reading. Compressed files cannot be
// followed.
func (s *Source) Follow(ctx context.Context, uri string) (*HotReader, error) {
	loc, err := storage.Parse(uri)
	if err != nil {
		return nil, err
	}
	if loc.Scheme != storage.SchemeFile {
		return nil, errors.New(errors.ErrorTypeCapability, "only local files can be followed").WithDetail("uri", uri)
	}
	if compression.Resolve(compression.Algorithm(s.cfg.Ingest.Compression), loc.Key) != compression.None {
		return nil, errors.New(errors.ErrorTypeCapability, "compressed files cannot be followed").WithDetail("uri", uri)
	}

	rc, err := s.opener.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	reader, err := s.newReader(uri)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	h, err := reader.Follow(ctx, rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return h, nil
}

func (s *Source) newReader(uri string) (*Reader, error) {
	provider, err := NewHeaderProvider(s.format, s.cfg.Ingest)
	if err != nil {
		return nil, err
	}
	tokenizer, err := NewTokenizer(s.cfg.Ingest.Separator)
	if err != nil {
		return nil, err
	}
	return NewReader(provider, tokenizer,
		WithChunkSize(s.cfg.Ingest.ChunkSize),
		WithFillValue(s.cfg.Ingest.FillValue),
		WithTag(compression.StripExtension(path.Base(uri))),
		WithLogger(s.logger.With(zap.String(string(logger.FileKey), uri))),
		WithCollector(s.collector),
	), nil
}

// open returns the decompressed content of uri.
func (s *Source) open(ctx context.Context, uri string) (io.ReadCloser, error) {
	alg, err := compression.ParseAlgorithm(s.cfg.Ingest.Compression)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid ingest compression")
	}
	alg = compression.Resolve(alg, uri)

	raw, err := s.opener.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	dec, err := compression.NewReader(raw, alg)
	if err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open compressed stream").
			WithDetail("algorithm", string(alg))
	}
	return &stackedCloser{ReadCloser: dec, under: raw}, nil
}

// stackedCloser closes a decompressor and the stream beneath it.
type stackedCloser struct {
	io.ReadCloser
	under io.Closer
}

func (c *stackedCloser) Close() error {
	err := c.ReadCloser.Close()
	if uerr := c.under.Close(); err == nil {
		err = uerr
	}
	return err
}
