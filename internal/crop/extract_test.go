package crop

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	return img
}

func TestExtract(t *testing.T) {
	frame := testFrame(320, 240)
	region := Region{
		X: 40, Y: 60, Width: 120, Height: 48,
		TargetWidth: DefaultTargetWidth, TargetHeight: DefaultTargetHeight,
	}

	out, err := Extract(frame, region)
	require.NoError(t, err)

	bounds := out.Bounds()
	assert.Equal(t, DefaultTargetWidth, bounds.Dx())
	assert.Equal(t, DefaultTargetHeight, bounds.Dy())
}

func TestExtract_NilFrame(t *testing.T) {
	region := Region{X: 0, Y: 0, Width: 10, Height: 10, TargetWidth: 200, TargetHeight: 64}
	_, err := Extract(nil, region)
	assert.Error(t, err)
}

func TestExtract_InvalidTargetSize(t *testing.T) {
	frame := testFrame(100, 100)
	region := Region{X: 0, Y: 0, Width: 10, Height: 10}
	_, err := Extract(frame, region)
	assert.Error(t, err)
}
