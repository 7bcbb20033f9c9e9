package main

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/destinations"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "asciidata v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the input and output formats",
		Run: func(cmd *cobra.Command, args []string) {
			infos := registry.ListFormatInfo()
			sort.Slice(infos, func(i, j int) bool {
				if infos[i].Type != infos[j].Type {
					// sources first
					return infos[i].Type > infos[j].Type
				}
				return infos[i].Name < infos[j].Name
			})

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tNAME\tEXTENSIONS\tCAPABILITIES\tDESCRIPTION")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					info.Type, info.Name,
					strings.Join(info.Extensions, ","),
					strings.Join(info.Capabilities, ","),
					info.Description)
			}
			_ = tw.Flush()
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Describe the columns and parameters of a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, src, err := a.read(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows, %d columns\n", curve.Tag(), curve.Len(), curve.NumColumns())
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tCOLUMN\tUNIT\tMIN\tMAX")
			for i := 0; i < curve.NumColumns(); i++ {
				c := curve.ColumnAt(i)
				lo, hi := bounds(c.Data())
				fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%g\n", i+1, c.Name(), c.Unit(), lo, hi)
			}
			_ = tw.Flush()

			for _, name := range curve.ParameterNames() {
				p, _ := curve.Parameter(name)
				fmt.Fprintf(out, "parameter %s = %g %s\n", name, p.Value, p.Unit)
			}
			m := src.Metrics()
			fmt.Fprintf(out, "skipped lines: %v, filled fields: %v\n", m["skipped"], m["filled"])
			return nil
		},
	}
	addIngestFlags(cmd.Flags())
	return cmd
}

// read ingests uri with the configured input format.
func (a *app) read(ctx context.Context, uri string) (*columnar.DataCurve, core.Source, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	src, err := registry.CreateSource(a.cfg.Ingest.Format, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	curve, err := src.Read(ctx, uri)
	if err != nil {
		return nil, nil, err
	}
	a.log.Debug("file read",
		zap.String(string(logger.FileKey), uri),
		zap.String(string(logger.FormatKey), src.Format()),
		zap.Int("rows", curve.Len()))
	return curve, src, nil
}

// write exports curve to uri in the format chosen by outputFormat and
// reports the location actually written.
func (a *app) write(cmd *cobra.Command, uri string, curve *columnar.DataCurve) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	format := outputFormat(a.v, a.cfg, uri)
	dest, err := destinations.New(format, a.cfg)
	if err != nil {
		return err
	}
	target, err := dest.Write(ctx, uri, curve)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s (%s)\n", curve.Len(), target, format)
	return nil
}

func bounds(data []float64) (lo, hi float64) {
	first := true
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		if first || v < lo {
			lo = v
		}
		if first || v > hi {
			hi = v
		}
		first = false
	}
	return lo, hi
}
