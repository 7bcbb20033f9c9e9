package ascii

import (
	"context"
	"io"
	"sync"

	"github.com/oneminimax/AsciiDataFile/pkg/errors"
	"github.com/oneminimax/AsciiDataFile/pkg/logger"
	"go.uber.org/zap"
)

// RowWriter appends rows to an open file as they are acquired. Every row
// is flushed to the file before WriteDataPoint returns.
type RowWriter struct {
	mu      sync.Mutex
	w       *Writer
	out     io.WriteCloser
	uri     string
	columns int
	rows    int
	closed  bool
}

// OpenStream opens a file for streaming and writes the header of names and
// units. The returned writer reports the location it writes, which differs
// from uri when auto-numbering applies.
func (w *Writer) OpenStream(ctx context.Context, uri string, names, units []string) (*RowWriter, error) {
	if len(names) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "at least one column is required")
	}
	if len(units) == 0 {
		units = make([]string, len(names))
	}
	if len(units) != len(names) {
		return nil, errors.Newf(errors.ErrorTypeSchemaMismatch, "%d names but %d units", len(names), len(units))
	}

	target, err := w.Target(ctx, uri)
	if err != nil {
		return nil, err
	}
	out, err := w.Create(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := w.writeHeader(out, names, units); err != nil {
		_ = out.Close()
		return nil, err
	}
	if err := flush(out); err != nil {
		_ = out.Close()
		return nil, err
	}

	w.Logger().Info("streaming file opened",
		zap.String(string(logger.FileKey), target),
		zap.Strings("columns", names))

	return &RowWriter{w: w, out: out, uri: target, columns: len(names)}, nil
}

// URI returns the location being written.
func (r *RowWriter) URI() string { return r.uri }

// Rows returns the number of rows written.
func (r *RowWriter) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// WriteDataPoint writes one row and flushes it.
func (r *RowWriter) WriteDataPoint(row []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New(errors.ErrorTypeValidation, "row writer is closed")
	}
	if len(row) != r.columns {
		return errors.Newf(errors.ErrorTypeSchemaMismatch, "row has %d values, file has %d columns", len(row), r.columns)
	}
	if err := r.w.writeRow(r.out, row); err != nil {
		return err
	}
	if err := flush(r.out); err != nil {
		return err
	}
	r.rows++
	return nil
}

// WriteData writes several rows.
func (r *RowWriter) WriteData(rows [][]float64) error {
	for _, row := range rows {
		if err := r.WriteDataPoint(row); err != nil {
			return err
		}
	}
	return nil
}

// Close finishes the file. It is safe to call more than once.
func (r *RowWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.out.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close file").WithDetail("uri", r.uri)
	}
	r.w.Logger().Debug("streaming file closed",
		zap.String(string(logger.FileKey), r.uri),
		zap.Int("rows", r.rows))
	return nil
}

func flush(w io.Writer) error {
	f, ok := w.(interface{ Flush() error })
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush")
	}
	return nil
}
