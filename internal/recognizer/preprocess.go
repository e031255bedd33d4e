package recognizer

import (
	"errors"
	"image"

	"github.com/MeKo-Tech/platekit/internal/mempool"
	"github.com/disintegration/imaging"
)

// preprocessCrop converts a plate crop to a normalized NCHW float32
// buffer of the model input size (RGB, /255). Crops that are not already
// at the target size are resized. The returned buffer comes from the
// shared pool; callers return it via mempool.PutFloat32.
func preprocessCrop(crop image.Image, width, height int) ([]float32, error) {
	if crop == nil {
		return nil, errors.New("nil crop")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("non-positive input size")
	}

	img := crop
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		img = imaging.Resize(img, width, height, imaging.Linear)
	}

	nrgba := imaging.Clone(img)
	data := mempool.GetFloat32(3 * width * height)
	plane := width * height
	for y := range height {
		for x := range width {
			c := nrgba.NRGBAAt(x, y)
			i := y*width + x
			data[i] = float32(c.R) / 255.0
			data[plane+i] = float32(c.G) / 255.0
			data[2*plane+i] = float32(c.B) / 255.0
		}
	}
	return data, nil
}
