package detector

import (
	"fmt"

	"github.com/MeKo-Tech/platekit/internal/geometry"
	"github.com/MeKo-Tech/platekit/internal/tensor"
)

// boxFields is the number of leading columns holding center-form box
// coordinates (cx, cy, w, h) in a detector output row.
const boxFields = 4

// Detection is a single decoded detector candidate. The box is in
// normalized [0,1] corner-form coordinates relative to the frame.
// Detections are immutable values once created.
type Detection struct {
	Box        geometry.Box
	Confidence float64
	ClassID    int
}

// DecodeOptions controls tensor decoding.
type DecodeOptions struct {
	ConfThreshold float64 // minimum combined confidence to keep a row
	NumClasses    int     // per-class score columns after the box fields (>= 1)
}

// DefaultDecodeOptions returns decoding defaults for a single-class
// plate detector.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{
		ConfThreshold: 0.5,
		NumClasses:    1,
	}
}

// DecodeDetections converts a flat detector output of rows x stride into
// candidate detections above the confidence threshold.
//
// Row layout: columns 0-3 are center-x, center-y, width, height in
// normalized [0,1] coordinates; columns 4..4+NumClasses-1 are combined
// objectness x class scores. The best-scoring class wins the row.
//
// A stride smaller than the box fields plus the class count is a
// configuration error and fails fast. A buffer shorter than rows*stride
// wraps tensor.ErrShortBuffer. Output preserves input row order; rows
// below the threshold and degenerate boxes are dropped silently.
func DecodeDetections(data []float32, rows, stride int, opts DecodeOptions) ([]Detection, error) {
	if opts.NumClasses < 1 {
		return nil, fmt.Errorf("detector: num classes must be >= 1, got %d", opts.NumClasses)
	}
	minStride := boxFields + opts.NumClasses
	if stride < minStride {
		return nil, fmt.Errorf("detector: stride %d below minimum %d for %d class(es)",
			stride, minStride, opts.NumClasses)
	}

	view, err := tensor.NewView2D(data, rows, stride)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}

	detections := make([]Detection, 0, rows/8)
	for i := range rows {
		row := view.Row(i)

		classID := 0
		conf := float64(row[boxFields])
		for k := 1; k < opts.NumClasses; k++ {
			if c := float64(row[boxFields+k]); c > conf {
				conf = c
				classID = k
			}
		}
		if conf < opts.ConfThreshold {
			continue
		}

		// Corner-form conversion stays in float32: the tensor carries
		// float32 coordinates, and widening before the subtraction
		// shifts boxes that land exactly on a pixel boundary.
		cx, cy, w, h := row[0], row[1], row[2], row[3]
		if w < 0 {
			w = 0
		}
		if h < 0 {
			h = 0
		}
		box := geometry.NewBox(float64(cx-w/2), float64(cy-h/2),
			float64(cx+w/2), float64(cy+h/2))
		if box.Empty() {
			continue
		}

		detections = append(detections, Detection{
			Box:        box,
			Confidence: conf,
			ClassID:    classID,
		})
	}

	return detections, nil
}
