// Package plot draws y(x) views of a DataCurve. Static images (png, svg,
// pdf) are rendered with gonum/plot, interactive html pages with
// go-echarts.
package plot

import (
	"context"
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/storage"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Format is an output image format.
type Format string

const (
	PNG  Format = "png"
	SVG  Format = "svg"
	PDF  Format = "pdf"
	HTML Format = "html"
)

// Formats lists the supported formats.
var Formats = []Format{PNG, SVG, PDF, HTML}

// Options selects what to draw.
type Options struct {
	// X is the abscissa column.
	X string
	// Y lists the ordinate columns, every other column when empty.
	Y []string
	// Title defaults to the curve tag.
	Title string
	// Markers draws a glyph at every data point.
	Markers bool
	// Width and Height of static images, in points.
	Width  vg.Length
	Height vg.Length
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 8 * vg.Inch
	}
	if h <= 0 {
		h = 5 * vg.Inch
	}
	return w, h
}

// FormatFromPath picks the format from the extension of uri.
func FormatFromPath(uri string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(uri)), ".")
	for _, f := range Formats {
		if Format(ext) == f {
			return f, nil
		}
	}
	return "", errors.Newf(errors.ErrorTypeCapability, "no plot format for extension %q", ext).
		WithDetail("uri", uri)
}

type series struct {
	name string
	xys  plotter.XYs
}

// collect returns one series per y column. Rows where x or y is not
// finite are left out.
func collect(curve *columnar.DataCurve, o Options) (xLabel string, ys []series, err error) {
	x, err := curve.Column(o.X)
	if err != nil {
		return "", nil, err
	}
	xLabel = label(curve, o.X)

	names := o.Y
	if len(names) == 0 {
		for _, name := range curve.ColumnNames() {
			if name != o.X {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return "", nil, errors.New(errors.ErrorTypeValidation, "nothing to plot against "+o.X)
	}

	for _, name := range names {
		y, err := curve.Column(name)
		if err != nil {
			return "", nil, err
		}
		xys := make(plotter.XYs, 0, len(y))
		for i := range y {
			if finite(x[i]) && finite(y[i]) {
				xys = append(xys, plotter.XY{X: x[i], Y: y[i]})
			}
		}
		ys = append(ys, series{name: label(curve, name), xys: xys})
	}
	return xLabel, ys, nil
}

func label(curve *columnar.DataCurve, name string) string {
	unit, _ := curve.ColumnUnit(name)
	if unit == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, unit)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Render draws curve to w.
func Render(w io.Writer, curve *columnar.DataCurve, format Format, o Options) error {
	if curve == nil {
		return errors.New(errors.ErrorTypeValidation, "nil curve")
	}
	if o.Title == "" {
		o.Title = curve.Tag()
	}
	xLabel, ys, err := collect(curve, o)
	if err != nil {
		return err
	}

	switch format {
	case PNG, SVG, PDF:
		return renderImage(w, format, xLabel, ys, o)
	case HTML:
		return renderHTML(w, xLabel, ys, o)
	default:
		return errors.Newf(errors.ErrorTypeCapability, "unknown plot format %q", format)
	}
}

func renderImage(w io.Writer, format Format, xLabel string, ys []series, o Options) error {
	p := gonumplot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = xLabel
	if len(ys) == 1 {
		p.Y.Label.Text = ys[0].name
	}
	p.Add(plotter.NewGrid())

	for i, s := range ys {
		if len(s.xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.xys)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeValidation, "failed to build line").WithDetail("series", s.name)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)

		if o.Markers {
			points, err := plotter.NewScatter(s.xys)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeValidation, "failed to build markers").WithDetail("series", s.name)
			}
			points.Color = plotutil.Color(i)
			points.Shape = plotutil.Shape(i)
			p.Add(points)
			p.Legend.Add(s.name, line, points)
		} else {
			p.Legend.Add(s.name, line)
		}
	}

	width, height := o.size()
	wt, err := p.WriterTo(width, height, string(format))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeCapability, "failed to render "+string(format))
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write plot")
	}
	return nil
}

func renderHTML(w io.Writer, xLabel string, ys []series, o Options) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xLabel, NameLocation: "middle", NameGap: 25, Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Scale: opts.Bool(true)}),
	)

	for _, s := range ys {
		data := make([]opts.LineData, len(s.xys))
		for i, xy := range s.xys {
			data[i] = opts.LineData{Value: []interface{}{xy.X, xy.Y}}
		}
		line.AddSeries(s.name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(o.Markers)}))
	}

	if err := line.Render(w); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write plot")
	}
	return nil
}

// Save renders curve to uri, which may be local, s3:// or gs://. The
// format comes from the extension.
func Save(ctx context.Context, uri string, curve *columnar.DataCurve, o Options) error {
	format, err := FormatFromPath(uri)
	if err != nil {
		return err
	}
	out, err := storage.Create(ctx, uri)
	if err != nil {
		return err
	}
	if err := Render(out, curve, format, o); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to finish plot").WithDetail("uri", uri)
	}
	return nil
}
