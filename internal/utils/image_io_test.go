package utils

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
	require.NoError(t, f.Close())
	return path
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("frame.png"))
	assert.True(t, IsSupportedImage("frame.JPG"))
	assert.True(t, IsSupportedImage("frame.jpeg"))
	assert.True(t, IsSupportedImage("frame.bmp"))
	assert.False(t, IsSupportedImage("frame.gif"))
	assert.False(t, IsSupportedImage("frame"))
}

func TestLoadImage(t *testing.T) {
	path := writeTestPNG(t, 120, 80)

	img, meta, err := LoadImage(path)
	require.NoError(t, err)
	require.NotNil(t, img)

	assert.Equal(t, path, meta.Path)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 120, meta.Width)
	assert.Equal(t, 80, meta.Height)
	assert.Positive(t, meta.SizeBytes)
	assert.InDelta(t, 1.5, meta.AspectRatio, 1e-9)
}

func TestLoadImageErrors(t *testing.T) {
	_, _, err := LoadImage("")
	require.Error(t, err)

	_, _, err = LoadImage("frame.gif")
	require.Error(t, err)
	var perr *ImageProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load", perr.Operation)

	_, _, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestLoadImageCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o600))

	_, _, err := LoadImage(path)
	require.Error(t, err)
	var perr *ImageProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "decode", perr.Operation)
}

func TestValidateImageConstraints(t *testing.T) {
	cons := DefaultImageConstraints()

	assert.Error(t, ValidateImageConstraints(nil, cons))
	assert.Error(t, ValidateImageConstraints(image.NewRGBA(image.Rect(0, 0, 8, 8)), cons))
	assert.NoError(t, ValidateImageConstraints(image.NewRGBA(image.Rect(0, 0, 640, 480)), cons))
}
