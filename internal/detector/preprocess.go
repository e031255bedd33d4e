package detector

import (
	"errors"
	"image"

	"github.com/MeKo-Tech/platekit/internal/mempool"
	"github.com/disintegration/imaging"
)

// preprocessImage resizes a frame to the square model input and converts
// it to a normalized NCHW float32 buffer (RGB, /255). The returned buffer
// comes from the shared pool; the caller must return it via
// mempool.PutFloat32 after inference.
func preprocessImage(img image.Image, size int) ([]float32, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if size <= 0 {
		return nil, errors.New("non-positive input size")
	}

	resized := imaging.Resize(img, size, size, imaging.Linear)

	data := mempool.GetFloat32(3 * size * size)
	plane := size * size
	for y := range size {
		for x := range size {
			r, g, b, _ := resized.At(x, y).RGBA()
			i := y*size + x
			data[i] = float32(r>>8) / 255.0
			data[plane+i] = float32(g>>8) / 255.0
			data[2*plane+i] = float32(b>>8) / 255.0
		}
	}
	return data, nil
}
