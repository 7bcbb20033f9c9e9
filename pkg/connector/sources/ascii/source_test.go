package ascii

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oneminimax/AsciiDataFile/pkg/compression"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const columnFile = "Time (s), Temperature (K)\n0, 300\n1, 299.5\n2, 299\n"

func writeCompressed(t *testing.T, path string, alg compression.Algorithm, text string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := compression.NewWriter(f, alg, compression.Default)
	require.NoError(t, err)
	_, err = w.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestRegisteredFormats(t *testing.T) {
	for _, format := range config.InputFormats {
		assert.True(t, registry.HasSource(format), format)
		info, err := registry.GetFormatInfo("source", format)
		require.NoError(t, err)
		assert.NotEmpty(t, info.Description)
	}
}

func TestSourceRead(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "cooldown.dat")
	require.NoError(t, os.WriteFile(plain, []byte(columnFile), 0o644))
	gz := filepath.Join(dir, "cooldown_002.dat.gz")
	writeCompressed(t, gz, compression.Gzip, columnFile)
	zst := filepath.Join(dir, "cooldown_003.dat.zst")
	writeCompressed(t, zst, compression.Zstd, columnFile)

	cfg := config.NewBaseConfig("t")
	src, err := registry.CreateSource("column", cfg)
	require.NoError(t, err)
	assert.Equal(t, "column", src.Format())

	for _, path := range []string{plain, gz, zst} {
		curve, err := src.Read(context.Background(), path)
		require.NoError(t, err, path)
		assert.Equal(t, []string{"Time", "Temperature"}, curve.ColumnNames())
		assert.Equal(t, []string{"s", "K"}, curve.ColumnUnits())
		temp, err := curve.Column("Temperature")
		require.NoError(t, err)
		assert.Equal(t, []float64{300, 299.5, 299}, temp)
	}

	curve, err := src.Read(context.Background(), gz)
	require.NoError(t, err)
	assert.Equal(t, "cooldown_002.dat", curve.Tag())

	assert.Equal(t, int64(12), src.Metrics()["rows"])
}

func TestSourceErrors(t *testing.T) {
	cfg := config.NewBaseConfig("t")
	src, err := NewSource("column", cfg)
	require.NoError(t, err)

	_, err = src.Read(context.Background(), filepath.Join(t.TempDir(), "missing.dat"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	cfg.Ingest.Sample = 9
	_, err = NewSource("ppms-resistivity", cfg)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	cfg = config.NewBaseConfig("t")
	cfg.Ingest.Compression = "brotli"
	src, err = NewSource("column", cfg)
	require.NoError(t, err)
	_, err = src.Read(context.Background(), "x.dat")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSourceFollow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.dat")
	require.NoError(t, os.WriteFile(path, []byte(columnFile), 0o644))

	src, err := NewSource("column", config.NewBaseConfig("t"))
	require.NoError(t, err)

	h, err := src.Follow(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Curve().Len())
	require.NoError(t, h.Close())

	_, err = src.Follow(context.Background(), "s3://bucket/live.dat")
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
	_, err = src.Follow(context.Background(), path+".gz")
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}
