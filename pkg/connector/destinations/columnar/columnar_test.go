package columnar

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/core"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleCurve(t *testing.T, rows int) *columnar.DataCurve {
	t.Helper()
	temp := make([]float64, rows)
	res := make([]float64, rows)
	for i := range temp {
		temp[i] = 2 + 0.5*float64(i)
		res[i] = 100 / temp[i]
	}
	res[rows/2] = math.NaN()
	curve, err := columnar.New([]columnar.Field{
		columnar.ColumnField("Temperature (K)", "K", temp),
		columnar.ColumnField("R-xx", "ohm", res),
		columnar.ParameterField("field", "Oe", 5000),
		columnar.ParameterField("angle", "deg", 90),
	}, columnar.WithTag("cooldown_003"))
	require.NoError(t, err)
	return curve
}

func newDestination(t *testing.T, format Format, codec string) *Destination {
	t.Helper()
	cfg := config.NewBaseConfig("test")
	cfg.Output.Codec = codec
	d, err := NewDestination(format, cfg)
	require.NoError(t, err)
	d.SetLogger(zap.NewNop())
	return d
}

func assertSameCurve(t *testing.T, want, got *columnar.DataCurve) {
	t.Helper()
	assert.Equal(t, want.Tag(), got.Tag())
	assert.Equal(t, want.ColumnNames(), got.ColumnNames())
	assert.Equal(t, want.ColumnUnits(), got.ColumnUnits())
	assert.Equal(t, want.Parameters(), got.Parameters())
	assert.Equal(t, want.Len(), got.Len())
	if diff := cmp.Diff(want.ValuesArray(), got.ValuesArray(), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		format Format
		codec  string
	}{
		{Arrow, "none"},
		{Arrow, "zstd"},
		{Arrow, "lz4"},
		{Parquet, "snappy"},
		{Parquet, "gzip"},
		{Parquet, "zstd"},
		{Parquet, "none"},
		{Avro, "snappy"},
		{Avro, "deflate"},
		{Avro, "none"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format)+"/"+tt.codec, func(t *testing.T) {
			ctx := context.Background()
			d := newDestination(t, tt.format, tt.codec)
			curve := sampleCurve(t, 2500)

			uri, err := d.Write(ctx, filepath.Join(t.TempDir(), "run"+d.Extension()), curve)
			require.NoError(t, err)

			back, err := d.Load(ctx, uri)
			require.NoError(t, err)
			assertSameCurve(t, curve, back)
		})
	}
}

func TestRoundTripCompressedFile(t *testing.T) {
	ctx := context.Background()
	d := newDestination(t, Parquet, "none")
	curve := sampleCurve(t, 10)

	uri, err := d.Write(ctx, filepath.Join(t.TempDir(), "run.parquet.gz"), curve)
	require.NoError(t, err)

	back, err := d.Load(ctx, uri)
	require.NoError(t, err)
	assertSameCurve(t, curve, back)
}

func TestAutoNumbering(t *testing.T) {
	ctx := context.Background()
	d := newDestination(t, Arrow, "")
	curve := sampleCurve(t, 4)
	target := filepath.Join(t.TempDir(), "run.arrow")

	first, err := d.Write(ctx, target, curve)
	require.NoError(t, err)
	second, err := d.Write(ctx, target, curve)
	require.NoError(t, err)

	assert.Equal(t, target, first)
	assert.Equal(t, filepath.Join(filepath.Dir(target), "run_002.arrow"), second)
}

func TestAvroFieldNames(t *testing.T) {
	got := avroFieldNames([]string{"Temperature (K)", "R-xx", "2theta", "R_xx", "", "ok"})
	assert.Equal(t, []string{"Temperature__K_", "R_xx", "_2theta", "R_xx_3", "_", "ok"}, got)
}

func TestCodecMapping(t *testing.T) {
	assert.Equal(t, "null", getAvroCompression("none"))
	assert.Equal(t, "deflate", getAvroCompression("gzip"))
	assert.Equal(t, "snappy", getAvroCompression(""))
	assert.Equal(t, compress.Codecs.Lz4Raw, getParquetCompression("lz4"))
	assert.Equal(t, compress.Codecs.Gzip, getParquetCompression("deflate"))
	assert.Equal(t, compress.Codecs.Snappy, getParquetCompression(""))
	assert.Empty(t, arrowIPCOptions("snappy"))
	assert.Len(t, arrowIPCOptions("zstd"), 1)
}

func TestErrors(t *testing.T) {
	_, err := NewDestination("orc", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))

	d := newDestination(t, Parquet, "")
	curve := sampleCurve(t, 4)
	curve.AddParameter("bad", math.Inf(1), "")
	_, err = d.Write(context.Background(), filepath.Join(t.TempDir(), "bad.parquet"), curve)
	require.Error(t, err)

	// A file of another format does not decode.
	a := newDestination(t, Arrow, "")
	uri, err := a.Write(context.Background(), filepath.Join(t.TempDir(), "x.arrow"), sampleCurve(t, 4))
	require.NoError(t, err)
	_, err = newDestination(t, Avro, "").Load(context.Background(), uri)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedRow))
}

func TestRegistered(t *testing.T) {
	for _, format := range []Format{Arrow, Parquet, Avro} {
		dest, err := registry.CreateDestination(string(format), nil)
		require.NoError(t, err)
		_, ok := dest.(core.Loader)
		assert.True(t, ok)

		info, err := registry.GetFormatInfo(string(core.ConnectorTypeDestination), string(format))
		require.NoError(t, err)
		assert.Contains(t, info.Capabilities, "load")
	}
}
