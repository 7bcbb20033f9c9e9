package ascii

import (
	"context"
	"io"
	"time"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/metrics"
	"go.uber.org/zap"
)

// HotReader keeps a file open while an acquisition is still writing it and
// ingests the lines appended since the previous call.
//
// A HotReader and its curve have a single user; do not call ReadAvailable
// concurrently with reads of Curve.
type HotReader struct {
	ing        *ingestion
	src        io.Reader
	throughput *metrics.ThroughputTracker
}

// Follow parses the header of src and ingests the lines already present.
// src must return io.EOF at its current end and more data once the file
// grows, as an *os.File does.
func (r *Reader) Follow(ctx context.Context, src io.Reader) (*HotReader, error) {
	ing, err := r.start(src, true)
	if err != nil {
		return nil, err
	}
	h := &HotReader{
		ing:        ing,
		src:        src,
		throughput: metrics.NewThroughputTracker(r.provider.Name()),
	}
	if _, err := h.ReadAvailable(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Curve returns the curve being filled.
func (h *HotReader) Curve() *columnar.DataCurve { return h.ing.curve }

// ReadAvailable ingests the complete lines written since the last call and
// returns how many rows were appended.
func (h *HotReader) ReadAvailable(ctx context.Context) (int, error) {
	n, err := h.ing.readAvailable(ctx)
	h.throughput.Increment(int64(n))
	return n, err
}

// Poll calls ReadAvailable every interval until ctx is done, invoking
// onRows after each call that appended rows. It returns nil when ctx is
// cancelled.
func (h *HotReader) Poll(ctx context.Context, interval time.Duration, onRows func(curve *columnar.DataCurve, n int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.ing.logSummary()
			return nil
		case <-ticker.C:
			n, err := h.ReadAvailable(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if n > 0 {
				h.ing.r.logger.Debug("rows appended",
					zap.Int("rows", n),
					zap.Int("total", h.ing.curve.Len()),
					zap.Float64("rows_per_second", h.throughput.GetAndReset()))
				if onRows != nil {
					onRows(h.ing.curve, n)
				}
			}
		}
	}
}

// Close closes the underlying source when it is an io.Closer.
func (h *HotReader) Close() error {
	if c, ok := h.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
