package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
)

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert INPUT OUTPUT",
		Short: "Read a data file and write it in another format",
		Long: `Read a data file and write it in another format.

The output format is taken from --to, or guessed from the OUTPUT extension
(.json, .arrow, .parquet, .avro, .db). Text outputs (.txt, .dat) use the
configured output.format, md by default.

Example:
  asciidata convert -f squid run.dat run.parquet
  asciidata convert -f md run.txt s3://bucket/runs/run.json.zst
  asciidata convert run.txt runs.db#cooldown`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, _, err := a.read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.write(cmd, args[1], curve)
		},
	}
	addIngestFlags(cmd.Flags())
	addOutputFlags(cmd.Flags())
	return cmd
}

// transformSteps holds the transform flags. Steps run in the order of the
// fields.
type transformSteps struct {
	rename      []string
	remove      []string
	selectValue []string
	selectRange []string
	direction   []string
	average     []string
	sortBy      string
	interpolate string
	symmetrize  string
}

func newTransformCmd(a *app) *cobra.Command {
	var steps transformSteps
	cmd := &cobra.Command{
		Use:   "transform INPUT OUTPUT",
		Short: "Select, average, interpolate or symmetrize a data file",
		Long: `Apply table transforms to a data file and write the result.

Steps run in this order: rename, remove, select-value, select-range,
direction, average, sort, interpolate, symmetrize.

Example:
  asciidata transform -f md sweep.txt sweep_sym.txt \
      --select-range "T:1.9:2.1" --symmetrize "H:Rxx:Rxy:10"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, _, err := a.read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := steps.apply(curve); err != nil {
				return err
			}
			return a.write(cmd, args[1], curve)
		},
	}

	fs := cmd.Flags()
	addIngestFlags(fs)
	addOutputFlags(fs)
	fs.StringArrayVar(&steps.rename, "rename", nil, "Rename a column, OLD=NEW")
	fs.StringArrayVar(&steps.remove, "remove", nil, "Remove a column")
	fs.StringArrayVar(&steps.selectValue, "select-value", nil, "Keep rows where COL is VALUE within TOL, COL:VALUE:TOL")
	fs.StringArrayVar(&steps.selectRange, "select-range", nil, "Keep rows where LO <= COL <= HI, COL:LO:HI")
	fs.StringArrayVar(&steps.direction, "direction", nil, "Keep rows where COL moves in direction +1 or -1, COL:DIR")
	fs.StringArrayVar(&steps.average, "average", nil, "Average repeated measurements on a grid of STEP, COL:STEP")
	fs.StringVar(&steps.sortBy, "sort", "", "Sort rows by a column")
	fs.StringVar(&steps.interpolate, "interpolate", "", "Resample on a regular grid, COL:START:STOP:STEP")
	fs.StringVar(&steps.symmetrize, "symmetrize", "", "Symmetrize columns around 0 of X, X:SYM,..:ANTISYM,..:STEP")
	return cmd
}

func (s *transformSteps) apply(curve *columnar.DataCurve) error {
	for _, spec := range s.rename {
		oldName, newName, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("--rename %q: want OLD=NEW", spec)
		}
		if err := curve.RenameColumn(oldName, newName); err != nil {
			return err
		}
	}
	for _, name := range s.remove {
		if err := curve.RemoveColumn(name); err != nil {
			return err
		}
	}
	for _, spec := range s.selectValue {
		name, v, err := splitSpec("select-value", spec, 2)
		if err != nil {
			return err
		}
		if err := curve.SelectValue(name, v[0], v[1]); err != nil {
			return err
		}
	}
	for _, spec := range s.selectRange {
		name, v, err := splitSpec("select-range", spec, 2)
		if err != nil {
			return err
		}
		if err := curve.SelectRange(name, v[0], v[1]); err != nil {
			return err
		}
	}
	for _, spec := range s.direction {
		name, v, err := splitSpec("direction", spec, 1)
		if err != nil {
			return err
		}
		if err := curve.SelectDirection(name, v[0]); err != nil {
			return err
		}
	}
	for _, spec := range s.average {
		name, v, err := splitSpec("average", spec, 1)
		if err != nil {
			return err
		}
		if err := curve.AverageMultipleMeasurement(name, v[0]); err != nil {
			return err
		}
	}
	if s.sortBy != "" {
		if err := curve.SortBy(s.sortBy); err != nil {
			return err
		}
	}
	if s.interpolate != "" {
		name, v, err := splitSpec("interpolate", s.interpolate, 3)
		if err != nil {
			return err
		}
		xs, err := regularGrid(v[0], v[1], v[2])
		if err != nil {
			return err
		}
		if err := curve.Interpolate(name, xs); err != nil {
			return err
		}
	}
	if s.symmetrize != "" {
		parts := strings.Split(s.symmetrize, ":")
		if len(parts) != 4 {
			return fmt.Errorf("--symmetrize %q: want X:SYM,..:ANTISYM,..:STEP", s.symmetrize)
		}
		step, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return fmt.Errorf("--symmetrize %q: %w", s.symmetrize, err)
		}
		if err := curve.Symmetrize(parts[0], list(parts[1]), list(parts[2]), columnar.GridStep(step)); err != nil {
			return err
		}
	}
	return nil
}

// splitSpec parses NAME:N1:..:Nn. The name itself may contain colons.
func splitSpec(flag, spec string, n int) (string, []float64, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < n+1 {
		return "", nil, fmt.Errorf("--%s %q: want a column and %d numbers separated by ':'", flag, spec, n)
	}
	name := strings.Join(parts[:len(parts)-n], ":")
	values := make([]float64, n)
	for i, p := range parts[len(parts)-n:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", nil, fmt.Errorf("--%s %q: %w", flag, spec, err)
		}
		values[i] = v
	}
	return name, values, nil
}

func regularGrid(start, stop, step float64) ([]float64, error) {
	if step <= 0 || stop < start {
		return nil, fmt.Errorf("invalid grid %g:%g:%g", start, stop, step)
	}
	n := int((stop-start)/step+1e-9) + 1
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = start + float64(i)*step
	}
	return xs, nil
}

func list(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
