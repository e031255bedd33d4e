// Package crop maps normalized detections onto pixel-accurate frame
// regions sized for the downstream recognition model.
package crop

import (
	"github.com/MeKo-Tech/platekit/internal/detector"
)

// Default recognition model input size.
const (
	DefaultTargetWidth  = 200
	DefaultTargetHeight = 64
)

// Region is an absolute-pixel crop rectangle with the fixed target size
// the recognition model expects, plus the originating detection.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int

	TargetWidth  int
	TargetHeight int

	Detection detector.Detection
}

// Transform projects a normalized detection box onto a frameW x frameH
// pixel frame. Coordinates are scaled and truncated (never rounded, so
// crop coordinates stay reproducible), then clamped so the region never
// reads outside the frame. Detections whose clamped size is not positive
// yield no region (ok=false); this is an expected outcome, not an error.
func Transform(det detector.Detection, frameW, frameH, targetW, targetH int) (Region, bool) {
	if frameW <= 0 || frameH <= 0 {
		return Region{}, false
	}

	// The pixel projection multiplies in float32. Detector coordinates
	// are float32 values; the float64 product of e.g. 0.4 x 800 falls
	// fractionally below 320 and truncation would lose a pixel.
	x := int(float32(det.Box.MinX) * float32(frameW))
	y := int(float32(det.Box.MinY) * float32(frameH))
	w := int(float32(det.Box.Width()) * float32(frameW))
	h := int(float32(det.Box.Height()) * float32(frameH))

	x = clamp(x, 0, frameW-1)
	y = clamp(y, 0, frameH-1)
	if w > frameW-x {
		w = frameW - x
	}
	if h > frameH-y {
		h = frameH - y
	}

	if w <= 0 || h <= 0 {
		return Region{}, false
	}

	return Region{
		X:            x,
		Y:            y,
		Width:        w,
		Height:       h,
		TargetWidth:  targetW,
		TargetHeight: targetH,
		Detection:    det,
	}, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
