package crop

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// Extract crops the region from a frame and resizes it to the region's
// target size, producing the recognition model input image.
func Extract(frame image.Image, region Region) (image.Image, error) {
	if frame == nil {
		return nil, errors.New("nil frame")
	}
	if region.TargetWidth <= 0 || region.TargetHeight <= 0 {
		return nil, errors.New("non-positive target size")
	}

	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
	cropped := imaging.Crop(frame, rect)
	return imaging.Resize(cropped, region.TargetWidth, region.TargetHeight, imaging.Linear), nil
}
