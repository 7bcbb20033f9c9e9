package config

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/oneminimax/AsciiDataFile/pkg/logger"
)

// BaseConfig is the configuration shared by the CLI and the library entry
// points. It is organised into three sections:
//   - Ingest: how instrument files are read into a data curve
//   - Output: how data curves are written
//   - Observability: logging, metrics and tracing
type BaseConfig struct {
	// Name identifies the run, used as the default curve tag
	Name string `yaml:"name" json:"name"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	// Ingest settings for file readers
	Ingest IngestConfig `yaml:"ingest" json:"ingest"`

	// Output settings for file writers
	Output OutputConfig `yaml:"output" json:"output"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// IngestConfig controls reading instrument files.
type IngestConfig struct {
	// Format names the header provider (generic, column, md, squid, ppms-resistivity, ppms-acms)
	Format string `yaml:"format" json:"format"`
	// ChunkSize is the number of rows reserved at each table growth
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// Separator is a regular expression splitting data lines into fields
	Separator string `yaml:"separator" json:"separator"`
	// HeadLines is the number of lines skipped before data (generic format)
	HeadLines int `yaml:"head_lines" json:"head_lines"`
	// FillValue replaces fields that fail numeric conversion
	FillValue float64 `yaml:"fill_value" json:"-"`
	// Compression is an algorithm name, "auto" to detect from the file extension, or "none"
	Compression string `yaml:"compression" json:"compression"`
	// Names overrides the column names (generic format)
	Names []string `yaml:"names" json:"names"`
	// Units overrides the column units (generic format)
	Units []string `yaml:"units" json:"units"`
	// Sample selects the PPMS resistivity channel, 0 for all three
	Sample int `yaml:"sample" json:"sample"`
	// Harmonics is the number of ACMS harmonics recorded
	Harmonics int `yaml:"harmonics" json:"harmonics"`
	// PollInterval is how often a followed file is checked for new lines
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// OutputConfig controls writing data curves.
type OutputConfig struct {
	// Format selects the writer (ascii, md, column, json, arrow, parquet, avro, sqlite)
	Format string `yaml:"format" json:"format"`
	// Separator is written between fields of text formats
	Separator string `yaml:"separator" json:"separator"`
	// AutoNumbering appends _002, _003, ... instead of overwriting files
	AutoNumbering bool `yaml:"auto_numbering" json:"auto_numbering"`
	// Compression is an algorithm name, "auto" to detect from the file extension, or "none"
	Compression string `yaml:"compression" json:"compression"`
	// Codec is the internal codec of arrow, parquet and avro files (snappy, gzip, zstd, lz4, deflate, none)
	Codec string `yaml:"codec" json:"codec"`
	// FloatFormat is the fmt verb used for values in text formats
	FloatFormat string `yaml:"float_format" json:"float_format"`
	// Table names the SQLite table receiving the curve
	Table string `yaml:"table" json:"table"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogEncoding selects json or console log output
	LogEncoding string `yaml:"log_encoding" json:"log_encoding"`
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// MetricsAddr serves /metrics when set, e.g. ":9090"
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// EnableTracing activates OpenTelemetry tracing to stdout
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
}

// InputFormats lists the header providers known to the ascii source.
var InputFormats = []string{"generic", "column", "md", "squid", "ppms-resistivity", "ppms-acms"}

// OutputFormats lists the writers known to the CLI.
var OutputFormats = []string{"ascii", "column", "md", "json", "arrow", "parquet", "avro", "sqlite"}

// Codecs lists the internal codecs of the binary columnar formats. The
// empty string selects each format's default.
var Codecs = []string{"", "none", "snappy", "gzip", "zstd", "lz4", "deflate"}

// NewBaseConfig creates a BaseConfig with defaults matching the instrument
// file conventions: comma separated, ten-row growth chunks, NaN fill.
func NewBaseConfig(name string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Version: "1.0.0",
		Ingest: IngestConfig{
			Format:       "column",
			ChunkSize:    10,
			Separator:    ",",
			FillValue:    math.NaN(),
			Compression:  "auto",
			Harmonics:    1,
			PollInterval: time.Second,
		},
		Output: OutputConfig{
			Format:        "md",
			Separator:     ", ",
			AutoNumbering: true,
			Compression:   "auto",
			Codec:         "snappy",
			FloatFormat:   "%+10.8e",
			Table:         "curve",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogEncoding: "console",
		},
	}
}

// Validate checks the configuration for values the readers and writers
// cannot work with.
func (bc *BaseConfig) Validate() error {
	if bc.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive")
	}
	if bc.Ingest.Separator == "" {
		return fmt.Errorf("ingest.separator is required")
	}
	if _, err := regexp.Compile(bc.Ingest.Separator); err != nil {
		return fmt.Errorf("ingest.separator is not a valid regular expression: %w", err)
	}
	if bc.Ingest.HeadLines < 0 {
		return fmt.Errorf("ingest.head_lines cannot be negative")
	}
	if !contains(InputFormats, bc.Ingest.Format) {
		return fmt.Errorf("unknown ingest.format %q", bc.Ingest.Format)
	}
	if bc.Ingest.Sample < 0 || bc.Ingest.Sample > 3 {
		return fmt.Errorf("ingest.sample must be between 0 and 3")
	}
	if bc.Ingest.Harmonics < 1 {
		return fmt.Errorf("ingest.harmonics must be at least 1")
	}
	if len(bc.Ingest.Units) > 0 && len(bc.Ingest.Names) > 0 && len(bc.Ingest.Units) != len(bc.Ingest.Names) {
		return fmt.Errorf("ingest.units must have one entry per name")
	}
	if !contains(OutputFormats, bc.Output.Format) {
		return fmt.Errorf("unknown output.format %q", bc.Output.Format)
	}
	if bc.Output.Separator == "" {
		return fmt.Errorf("output.separator is required")
	}
	if !contains(Codecs, bc.Output.Codec) {
		return fmt.Errorf("unknown output.codec %q", bc.Output.Codec)
	}
	return nil
}

// LoggerConfig converts the observability section for logger.Init.
func (o *ObservabilityConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       o.LogLevel,
		Development: o.LogLevel == "debug",
		Encoding:    o.LogEncoding,
	}
}

// IsCompressionEnabled returns true if a compression setting other than
// "none" is configured.
func (o *OutputConfig) IsCompressionEnabled() bool {
	return o.Compression != "" && o.Compression != "none"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
