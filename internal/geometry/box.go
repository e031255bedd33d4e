package geometry

import "math"

// Box represents an axis-aligned bounding box in float coordinates.
// The coordinate space is caller-defined: normalized [0,1] for detector
// output, absolute pixels once a box has been projected onto a frame.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBox constructs a Box from corner coordinates ensuring ordering.
func NewBox(x1, y1, x2, y2 float64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// FromCenter converts a center-form box (cx, cy, w, h) to corner form.
// Negative sizes produce an empty box at the center point.
func FromCenter(cx, cy, w, h float64) Box {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Box{
		MinX: cx - w/2,
		MinY: cy - h/2,
		MaxX: cx + w/2,
		MaxY: cy + h/2,
	}
}

// Width returns the box width.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the box height.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Area returns the box area; 0 for empty boxes.
func (b Box) Area() float64 {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// Empty reports whether the box is degenerate (non-positive width or height).
// Degenerate boxes must be discarded by consumers.
func (b Box) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// IoU computes Intersection over Union for two corner-form boxes.
// Non-overlapping boxes yield 0; a non-positive union also yields 0,
// so no negative-area artifacts propagate.
func IoU(a, b Box) float64 {
	interLeft := math.Max(a.MinX, b.MinX)
	interTop := math.Max(a.MinY, b.MinY)
	interRight := math.Min(a.MaxX, b.MaxX)
	interBottom := math.Min(a.MaxY, b.MaxY)

	if interLeft >= interRight || interTop >= interBottom {
		return 0.0
	}

	interArea := (interRight - interLeft) * (interBottom - interTop)
	unionArea := a.Width()*a.Height() + b.Width()*b.Height() - interArea

	if unionArea <= 0 {
		return 0.0
	}

	return interArea / unionArea
}
