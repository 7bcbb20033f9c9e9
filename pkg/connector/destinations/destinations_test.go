package destinations

import (
	"testing"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		uri    string
		format string
		ok     bool
	}{
		{"run.parquet", "parquet", true},
		{"s3://bucket/run.json.zst", "json", true},
		{"runs.db#cooldown", "sqlite", true},
		{"runs.sqlite", "sqlite", true},
		{"run.ARROW", "arrow", true},
		{"run.avro.gz", "avro", true},
		{"run.txt", "", false},
		{"run", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			format, ok := FormatForPath(tt.uri)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.format, format)
		})
	}
}

func TestNewLoader(t *testing.T) {
	for _, format := range []string{"md", "column", "json", "arrow", "parquet", "avro", "sqlite"} {
		_, err := NewLoader(format, nil)
		require.NoError(t, err, format)
	}

	_, err := NewLoader("xlsx", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}
