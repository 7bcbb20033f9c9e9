package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/oneminimax/AsciiDataFile/pkg/plot"
)

func newPlotCmd(a *app) *cobra.Command {
	var (
		o             plot.Options
		width, height float64
	)
	cmd := &cobra.Command{
		Use:   "plot INPUT OUTPUT",
		Short: "Plot columns of a data file against one another",
		Long: `Plot columns of a data file against one another. The OUTPUT extension
selects the image format: png, svg, pdf, or html for an interactive chart.

Example:
  asciidata plot -f squid run.dat run.png -x "Temperature (K)" -y "Long Moment (emu)"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, _, err := a.read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if o.X == "" {
				if curve.NumColumns() == 0 {
					return fmt.Errorf("%s has no columns", args[0])
				}
				o.X = curve.ColumnAt(0).Name()
			}
			o.Width = vg.Length(width) * vg.Inch
			o.Height = vg.Length(height) * vg.Inch

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := plot.Save(ctx, args[1], curve, o); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plotted %d rows to %s\n", curve.Len(), args[1])
			return nil
		},
	}

	fs := cmd.Flags()
	addIngestFlags(fs)
	fs.StringVarP(&o.X, "x", "x", "", "Abscissa column, the first column by default")
	fs.StringSliceVarP(&o.Y, "y", "y", nil, "Ordinate columns, every other column by default")
	fs.StringVar(&o.Title, "title", "", "Plot title, the file tag by default")
	fs.BoolVar(&o.Markers, "markers", false, "Mark every data point")
	fs.Float64Var(&width, "width", 8, "Image width in inches")
	fs.Float64Var(&height, "height", 5, "Image height in inches")
	return cmd
}
