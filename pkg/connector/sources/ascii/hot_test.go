package ascii

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func appendText(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestHotReader(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "live.dat")
	require.NoError(t, os.WriteFile(path, []byte("[Data]\ntitle\n1,10,0,300,0,0,0,0\n"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)

	r := NewReader(&PPMSResistivityHeader{Sample: 1}, commaTokenizer(t), WithLogger(zap.NewNop()))
	assert.Equal(t, "ppms-resistivity", r.Format())

	h, err := r.Follow(ctx, f)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, 1, h.Curve().Len())

	// a row still being written is held back
	appendText(t, path, "2,20,0,290,0,0,5.5,1")
	n, err := h.ReadAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	appendText(t, path, "00\n3,30,0,280,0,0,6.5,100\n")
	n, err = h.ReadAvailable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := h.Curve().Column("resistance")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5.5, 6.5}, res)
	cur, err := h.Curve().Column("current")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 100, 100}, cur)
}

func TestHotReaderPoll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.dat")
	require.NoError(t, os.WriteFile(path, []byte("1,2\n"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)

	r := NewReader(&GenericHeader{Names: []string{"a", "b"}}, commaTokenizer(t), WithLogger(zap.NewNop()))
	h, err := r.Follow(context.Background(), f)
	require.NoError(t, err)
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	appendText(t, path, "3,4\n")
	got := 0
	err = h.Poll(ctx, 5*time.Millisecond, func(curve *columnar.DataCurve, n int) {
		got += n
		if curve.Len() == 2 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, h.Curve().ValuesArray())
}
