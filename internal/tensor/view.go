// Package tensor provides bounds-checked views over flat model output
// buffers, replacing raw offset arithmetic with explicit shape checks.
package tensor

import (
	"errors"
	"fmt"
)

// ErrShortBuffer indicates a buffer shorter than its declared shape implies.
// This is a malformed-input condition, distinct from configuration errors
// such as invalid dimensions.
var ErrShortBuffer = errors.New("tensor: buffer shorter than declared shape")

// View2D is a read-only rows x cols view over a flat float32 buffer.
// Row i spans data[i*cols : (i+1)*cols].
type View2D struct {
	data []float32
	rows int
	cols int
}

// NewView2D validates the declared shape against the buffer length and
// returns a view. Non-positive dimensions are a configuration error; a
// buffer with fewer than rows*cols elements wraps ErrShortBuffer.
func NewView2D(data []float32, rows, cols int) (View2D, error) {
	if rows <= 0 || cols <= 0 {
		return View2D{}, fmt.Errorf("tensor: invalid shape %dx%d", rows, cols)
	}
	if len(data) < rows*cols {
		return View2D{}, fmt.Errorf("%w: need %d elements for %dx%d, have %d",
			ErrShortBuffer, rows*cols, rows, cols, len(data))
	}
	return View2D{data: data[:rows*cols], rows: rows, cols: cols}, nil
}

// Rows returns the number of rows.
func (v View2D) Rows() int { return v.rows }

// Cols returns the number of columns.
func (v View2D) Cols() int { return v.cols }

// Row returns row i as a sub-slice of the underlying buffer.
// The caller must not mutate it while the view is in use.
func (v View2D) Row(i int) []float32 {
	return v.data[i*v.cols : (i+1)*v.cols]
}

// At returns the element at row i, column j.
func (v View2D) At(i, j int) float32 {
	return v.data[i*v.cols+j]
}
