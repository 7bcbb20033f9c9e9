package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorTotals(t *testing.T) {
	c := NewCollector("test_totals")
	assert.Equal(t, "test_totals", c.Format())

	c.RowIngested()
	c.RowIngested()
	c.RowSkipped("short_row")
	c.RowSkipped("short_row")
	c.RowSkipped("blank")
	c.FieldsFilled(3)
	c.FieldsFilled(0)
	c.Reallocations(2)
	c.ObserveIngest(10 * time.Millisecond)
	c.CurveWritten(time.Millisecond, nil)
	c.CurveWritten(time.Millisecond, errors.New("disk full"))

	all := c.GetAll()
	assert.Equal(t, int64(2), all["rows"])
	assert.Equal(t, map[string]int64{"short_row": 2, "blank": 1}, all["skipped"])
	assert.Equal(t, int64(3), all["filled"])
	assert.Equal(t, int64(2), all["reallocations"])
	assert.Equal(t, int64(1), all["curves_written"])
	assert.Equal(t, int64(3), c.Skipped())

	assert.Equal(t, 2.0, testutil.ToFloat64(RowsIngested.WithLabelValues("test_totals")))
	assert.Equal(t, 2.0, testutil.ToFloat64(RowsSkipped.WithLabelValues("test_totals", "short_row")))
	assert.Equal(t, 3.0, testutil.ToFloat64(FieldsFilled.WithLabelValues("test_totals")))
	assert.Equal(t, 2.0, testutil.ToFloat64(ChunkReallocations.WithLabelValues("test_totals")))
	assert.Equal(t, 1.0, testutil.ToFloat64(CurvesWritten.WithLabelValues("test_totals", "failure")))
}

func TestThroughputTracker(t *testing.T) {
	tr := NewThroughputTracker("test_throughput")
	tr.Increment(100)
	time.Sleep(5 * time.Millisecond)
	rate := tr.GetAndReset()
	assert.Greater(t, rate, 0.0)
	assert.Equal(t, rate, testutil.ToFloat64(Throughput.WithLabelValues("test_throughput")))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("ingest")
	assert.Equal(t, "ingest", timer.Name())
	first := timer.Stop()
	assert.GreaterOrEqual(t, timer.Stop(), first)
}

func TestHandler(t *testing.T) {
	NewCollector("test_handler").RowIngested()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `asciidata_rows_ingested_total{format="test_handler"} 1`))
}
