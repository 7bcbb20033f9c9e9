package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/destinations"
)

// loadConfig starts from the defaults, applies the YAML file when given,
// then every key set by a flag or an environment variable.
func loadConfig(v *viper.Viper, cfgFile string) (*config.BaseConfig, error) {
	cfg := config.NewBaseConfig("asciidata")
	if cfgFile != "" {
		if err := config.Load(cfgFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", cfgFile, err)
		}
	}

	setters := map[string]func(key string){
		"ingest.format":                func(k string) { cfg.Ingest.Format = v.GetString(k) },
		"ingest.separator":             func(k string) { cfg.Ingest.Separator = v.GetString(k) },
		"ingest.chunk_size":            func(k string) { cfg.Ingest.ChunkSize = v.GetInt(k) },
		"ingest.head_lines":            func(k string) { cfg.Ingest.HeadLines = v.GetInt(k) },
		"ingest.names":                 func(k string) { cfg.Ingest.Names = v.GetStringSlice(k) },
		"ingest.units":                 func(k string) { cfg.Ingest.Units = v.GetStringSlice(k) },
		"ingest.sample":                func(k string) { cfg.Ingest.Sample = v.GetInt(k) },
		"ingest.harmonics":             func(k string) { cfg.Ingest.Harmonics = v.GetInt(k) },
		"ingest.compression":           func(k string) { cfg.Ingest.Compression = v.GetString(k) },
		"ingest.poll_interval":         func(k string) { cfg.Ingest.PollInterval = v.GetDuration(k) },
		"output.format":                func(k string) { cfg.Output.Format = v.GetString(k) },
		"output.separator":             func(k string) { cfg.Output.Separator = v.GetString(k) },
		"output.auto_numbering":        func(k string) { cfg.Output.AutoNumbering = v.GetBool(k) },
		"output.compression":           func(k string) { cfg.Output.Compression = v.GetString(k) },
		"output.codec":                 func(k string) { cfg.Output.Codec = v.GetString(k) },
		"output.float_format":          func(k string) { cfg.Output.FloatFormat = v.GetString(k) },
		"output.table":                 func(k string) { cfg.Output.Table = v.GetString(k) },
		"observability.log_level":      func(k string) { cfg.Observability.LogLevel = v.GetString(k) },
		"observability.log_encoding":   func(k string) { cfg.Observability.LogEncoding = v.GetString(k) },
		"observability.metrics_addr":   func(k string) { cfg.Observability.MetricsAddr = v.GetString(k) },
		"observability.enable_tracing": func(k string) { cfg.Observability.EnableTracing = v.GetBool(k) },
	}
	for key, set := range setters {
		if v.IsSet(key) {
			set(key)
		}
	}

	// The output format is only known once the output path is.
	if cfg.Output.Format == "" {
		cfg.Output.Format = "md"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// outputFormat returns the destination for uri: the configured format when
// the flag or environment set it, otherwise the destination registered for
// the extension, otherwise the configured default.
func outputFormat(v *viper.Viper, cfg *config.BaseConfig, uri string) string {
	if v.IsSet("output.format") && v.GetString("output.format") != "" {
		return cfg.Output.Format
	}
	if format, ok := destinations.FormatForPath(uri); ok {
		return format
	}
	return cfg.Output.Format
}
