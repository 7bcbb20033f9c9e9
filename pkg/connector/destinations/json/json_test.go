package json

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"
	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleCurve(t *testing.T) *columnar.DataCurve {
	t.Helper()
	curve, err := columnar.New([]columnar.Field{
		columnar.ColumnField("Time", "s", []float64{0, 1, 2}),
		columnar.ColumnField("R", "ohm", []float64{1.5, math.NaN(), 1.25}),
		columnar.ParameterField("field", "Oe", 1000),
	}, columnar.WithTag("cooldown"))
	require.NoError(t, err)
	return curve
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDestination(nil).Encode(&buf, sampleCurve(t)))
	assert.JSONEq(t, `{
		"name": "cooldown",
		"parameters": {"field": {"value": 1000, "unit": "Oe"}},
		"columns": [
			{"name": "Time", "unit": "s", "values": [0, 1, 2]},
			{"name": "R", "unit": "ohm", "values": [1.5, null, 1.25]}
		]
	}`, buf.String())
}

func TestRoundTrip(t *testing.T) {
	d := NewDestination(config.NewBaseConfig("t"))
	d.SetLogger(zap.NewNop())
	d.SetIndent("  ")

	uri, err := d.Write(context.Background(), filepath.Join(t.TempDir(), "curve.json.zst"), sampleCurve(t))
	require.NoError(t, err)

	back, err := d.Load(context.Background(), uri)
	require.NoError(t, err)

	orig := sampleCurve(t)
	assert.Equal(t, "cooldown", back.Tag())
	assert.Equal(t, orig.ColumnNames(), back.ColumnNames())
	assert.Equal(t, orig.ColumnUnits(), back.ColumnUnits())
	assert.Equal(t, orig.Parameters(), back.Parameters())
	assert.True(t, cmp.Equal(orig.ValuesArray(), back.ValuesArray(), cmpopts.EquateNaNs()))
}

func TestDecodeErrors(t *testing.T) {
	d := NewDestination(nil)

	_, err := d.Decode(strings.NewReader("{not json"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedRow))

	_, err = d.Decode(strings.NewReader(`{"columns":[{"name":"a","values":[1,2]},{"name":"b","values":[1]}]}`))
	assert.True(t, errors.IsSchemaMismatch(err))
}

func TestRegistered(t *testing.T) {
	dest, err := registry.CreateDestination(Format, nil)
	require.NoError(t, err)
	assert.Equal(t, ".json", dest.Extension())
}
