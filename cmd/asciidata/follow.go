package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	asciidst "github.com/oneminimax/AsciiDataFile/pkg/connector/destinations/ascii"
	asciisrc "github.com/oneminimax/AsciiDataFile/pkg/connector/sources/ascii"
)

func newFollowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "follow INPUT OUTPUT",
		Short: "Mirror a data file that an acquisition is still writing",
		Long: `Read a local data file, then keep reading the lines appended to it and
copy each new row to OUTPUT as soon as it is seen. OUTPUT is a text file in
output.format (ascii, column or md). Stop with Ctrl-C.

Example:
  asciidata follow -f squid --poll-interval 2s live.dat live_copy.txt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.follow(ctx, cmd, args[0], args[1])
		},
	}
	addIngestFlags(cmd.Flags())
	addOutputFlags(cmd.Flags())
	cmd.Flags().Duration("poll-interval", time.Second, "How often the input is checked for new lines")
	return cmd
}

func (a *app) follow(ctx context.Context, cmd *cobra.Command, in, out string) error {
	src, err := asciisrc.NewSource(a.cfg.Ingest.Format, a.cfg)
	if err != nil {
		return err
	}
	hot, err := src.Follow(ctx, in)
	if err != nil {
		return err
	}
	defer hot.Close()

	w, err := asciidst.NewWriter(a.cfg.Output.Format, a.cfg)
	if err != nil {
		return err
	}
	curve := hot.Curve()
	rows, err := w.OpenStream(ctx, out, curve.ColumnNames(), curve.ColumnUnits())
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := copyRows(rows, curve, 0); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "following %s into %s\n", in, rows.URI())

	err = hot.Poll(ctx, a.cfg.Ingest.PollInterval, func(curve *columnar.DataCurve, n int) {
		if err := copyRows(rows, curve, curve.Len()-n); err != nil {
			a.log.Error("failed to copy rows", zap.String("output", rows.URI()), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "copied %d rows to %s\n", rows.Rows(), rows.URI())
	return nil
}

func copyRows(w *asciidst.RowWriter, curve *columnar.DataCurve, from int) error {
	for i := from; i < curve.Len(); i++ {
		if err := w.WriteDataPoint(curve.Row(i)); err != nil {
			return err
		}
	}
	return nil
}
