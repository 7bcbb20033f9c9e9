package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
	"github.com/oneminimax/AsciiDataFile/pkg/metrics"
	"github.com/oneminimax/AsciiDataFile/pkg/observability"

	// Import all formats to register them
	_ "github.com/oneminimax/AsciiDataFile/pkg/connector/sources/ascii"
)

var version = "0.1.0"

// app carries what the commands share once the root pre-run has loaded
// the configuration.
type app struct {
	v       *viper.Viper
	cfg     *config.BaseConfig
	log     *zap.Logger
	server  *http.Server
	tracing bool
}

// flagKeys maps command line flags to configuration keys. The same keys
// are read from ASCIIDATA_* environment variables.
var flagKeys = map[string]string{
	"format":          "ingest.format",
	"separator":       "ingest.separator",
	"chunk-size":      "ingest.chunk_size",
	"head-lines":      "ingest.head_lines",
	"names":           "ingest.names",
	"units":           "ingest.units",
	"sample":          "ingest.sample",
	"harmonics":       "ingest.harmonics",
	"compression":     "ingest.compression",
	"poll-interval":   "ingest.poll_interval",
	"to":              "output.format",
	"out-separator":   "output.separator",
	"auto-numbering":  "output.auto_numbering",
	"out-compression": "output.compression",
	"codec":           "output.codec",
	"float-format":    "output.float_format",
	"table":           "output.table",
	"log-level":       "observability.log_level",
	"log-encoding":    "observability.log_encoding",
	"metrics-addr":    "observability.metrics_addr",
	"trace":           "observability.enable_tracing",
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "asciidata",
		Short: "AsciiDataFile - instrument data files as typed column tables",
		Long: `asciidata reads the ASCII data files written by lab instruments (QD MPMS and
PPMS, home-made acquisition programs) into unit-aware column tables, transforms
them and writes them back as text, JSON, Arrow, Parquet, Avro or SQLite.

Every flag can also be set in the YAML file given with --config or through
ASCIIDATA_<SECTION>_<KEY> environment variables, e.g. ASCIIDATA_INGEST_FORMAT.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-encoding", "console", "Log encoding (console or json)")
	root.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	root.PersistentFlags().Bool("trace", false, "Write OpenTelemetry spans to stderr")

	root.AddCommand(
		newVersionCmd(),
		newFormatsCmd(),
		newInfoCmd(a),
		newConvertCmd(a),
		newTransformCmd(a),
		newPlotCmd(a),
		newFollowCmd(a),
	)
	return root
}

// addIngestFlags declares the flags of commands that read a data file.
func addIngestFlags(fs *pflag.FlagSet) {
	fs.StringP("format", "f", "column", "Input format (generic, column, md, squid, ppms-resistivity, ppms-acms)")
	fs.String("separator", ",", "Field separator, a regular expression")
	fs.Int("chunk-size", 10, "Rows added to every column when a curve grows")
	fs.Int("head-lines", 0, "Lines skipped before the data (generic format)")
	fs.StringSlice("names", nil, "Column names (generic format)")
	fs.StringSlice("units", nil, "Column units (generic format)")
	fs.Int("sample", 0, "PPMS resistivity channel 1-3, 0 for all")
	fs.Int("harmonics", 1, "Number of ACMS harmonics")
	fs.String("compression", "auto", "Input compression, auto detects it from the extension")
}

// addOutputFlags declares the flags of commands that write a curve.
func addOutputFlags(fs *pflag.FlagSet) {
	fs.StringP("to", "t", "", "Output format, guessed from the output extension when empty")
	fs.String("out-separator", ", ", "Field separator of text outputs")
	fs.Bool("auto-numbering", true, "Write name_002.ext instead of overwriting an existing output")
	fs.String("out-compression", "auto", "Output compression, auto detects it from the extension")
	fs.String("codec", "snappy", "Internal codec of arrow, parquet and avro outputs")
	fs.String("float-format", "%+10.8e", "fmt verb of values in text outputs")
	fs.String("table", "curve", "SQLite table receiving the curve")
}

func (a *app) setup(cmd *cobra.Command) error {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = a.v.BindPFlag(key, f)
		}
	})
	a.v.SetEnvPrefix("ASCIIDATA")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(a.v, cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Init(cfg.Observability.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = logger.With(zap.String("component", "asciidata-cli"), zap.String("command", cmd.Name()))

	if cfg.Observability.EnableTracing {
		tc := observability.DefaultConfig()
		tc.ServiceVersion = version
		tc.Writer = os.Stderr
		if err := observability.Init(tc); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.tracing = true
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		a.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
			}
		}()
		a.log.Info("serving metrics", zap.String("addr", addr))
	}
	return nil
}

func (a *app) teardown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.Warn("failed to stop metrics server", zap.Error(err))
		}
	}
	if a.tracing {
		if err := observability.Shutdown(ctx); err != nil {
			a.log.Warn("failed to flush traces", zap.Error(err))
		}
	}
	_ = logger.Sync()
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
