package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sweepFile = `Field (Oe), Rxx (ohm), Rxy (ohm)
-200, 10.4, -0.2
-100, 10.1, -0.1
0, 10.0, 0.0
100, 10.1, 0.1
200, 10.4, 0.2
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.txt")
	require.NoError(t, os.WriteFile(path, []byte(sweepFile), 0o644))
	return path
}

func TestVersionAndFormats(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "asciidata v"+version)

	out, err = run(t, "formats")
	require.NoError(t, err)
	for _, name := range []string{"squid", "ppms-acms", "md", "parquet", "sqlite"} {
		assert.Contains(t, out, name)
	}
}

func TestInfo(t *testing.T) {
	out, err := run(t, "info", writeInput(t))
	require.NoError(t, err)
	assert.Contains(t, out, "5 rows, 3 columns")
	assert.Contains(t, out, "Rxy")
	assert.Contains(t, out, "ohm")
}

func TestConvert(t *testing.T) {
	in := writeInput(t)
	dir := t.TempDir()

	out, err := run(t, "convert", in, filepath.Join(dir, "sweep.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "(json)")

	out, err = run(t, "convert", in, filepath.Join(dir, "sweep.txt"), "--to", "column")
	require.NoError(t, err)
	assert.Contains(t, out, "(column)")

	data, err := os.ReadFile(filepath.Join(dir, "sweep.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Field (Oe), Rxx (ohm), Rxy (ohm)\n"))

	// Read back what was written.
	out, err = run(t, "info", filepath.Join(dir, "sweep.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "5 rows, 3 columns")
}

func TestTransform(t *testing.T) {
	in := writeInput(t)
	target := filepath.Join(t.TempDir(), "up.txt")

	_, err := run(t, "transform", in, target, "--to", "column",
		"--rename", "Field=H", "--select-range", "H:-150:150", "--remove", "Rxy")
	require.NoError(t, err)

	out, err := run(t, "info", target)
	require.NoError(t, err)
	assert.Contains(t, out, "3 rows, 2 columns")
	assert.Contains(t, out, "H")
	assert.NotContains(t, out, "Rxy")

	_, err = run(t, "transform", in, target, "--select-range", "H:bad")
	assert.Error(t, err)
}

func TestPlot(t *testing.T) {
	target := filepath.Join(t.TempDir(), "sweep.svg")
	out, err := run(t, "plot", writeInput(t), target, "-y", "Rxx")
	require.NoError(t, err)
	assert.Contains(t, out, "plotted 5 rows")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("ASCIIDATA_OUTPUT_CODEC", "zstd")
	t.Setenv("ASCIIDATA_INGEST_CHUNK_SIZE", "64")

	v := viper.New()
	v.SetEnvPrefix("ASCIIDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg, err := loadConfig(v, "")
	require.NoError(t, err)
	assert.Equal(t, "zstd", cfg.Output.Codec)
	assert.Equal(t, 64, cfg.Ingest.ChunkSize)
	assert.Equal(t, "column", cfg.Ingest.Format)
}

func TestOutputFormat(t *testing.T) {
	v := viper.New()
	cfg, err := loadConfig(v, "")
	require.NoError(t, err)

	assert.Equal(t, "parquet", outputFormat(v, cfg, "run.parquet"))
	assert.Equal(t, "json", outputFormat(v, cfg, "s3://bucket/run.json.zst"))
	assert.Equal(t, "sqlite", outputFormat(v, cfg, "runs.db#cooldown"))
	assert.Equal(t, "md", outputFormat(v, cfg, "run.txt"))

	v.Set("output.format", "avro")
	cfg.Output.Format = "avro"
	assert.Equal(t, "avro", outputFormat(v, cfg, "run.parquet"))
}

func TestSplitSpec(t *testing.T) {
	name, v, err := splitSpec("select-range", "Temp: sample:1.5:3", 2)
	require.NoError(t, err)
	assert.Equal(t, "Temp: sample", name)
	assert.Equal(t, []float64{1.5, 3}, v)

	_, _, err = splitSpec("average", "T", 1)
	assert.Error(t, err)

	xs, err := regularGrid(0, 1, 0.25)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, xs)
}
