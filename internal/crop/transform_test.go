package crop

import (
	"testing"

	"github.com/MeKo-Tech/platekit/internal/detector"
	"github.com/MeKo-Tech/platekit/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normDet(x, y, w, h float64) detector.Detection {
	return detector.Detection{
		Box:        geometry.NewBox(x, y, x+w, y+h),
		Confidence: 0.9,
	}
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name           string
		det            detector.Detection
		frameW, frameH int
		wantOK         bool
		want           Region
	}{
		{
			name:   "centered box",
			det:    normDet(0.4, 0.45, 0.2, 0.1),
			frameW: 800, frameH: 400,
			wantOK: true,
			want:   Region{X: 320, Y: 180, Width: 160, Height: 40},
		},
		{
			name:   "full frame box",
			det:    normDet(0, 0, 1, 1),
			frameW: 640, frameH: 480,
			wantOK: true,
			want:   Region{X: 0, Y: 0, Width: 640, Height: 480},
		},
		{
			name:   "box exceeding right edge is clamped",
			det:    normDet(0.9, 0.2, 0.3, 0.2),
			frameW: 100, frameH: 100,
			wantOK: true,
			want:   Region{X: 90, Y: 20, Width: 10, Height: 20},
		},
		{
			name:   "negative origin clamps to zero",
			det:    normDet(-0.2, -0.1, 0.4, 0.3),
			frameW: 100, frameH: 100,
			wantOK: true,
			want:   Region{X: 0, Y: 0, Width: 40, Height: 30},
		},
		{
			name:   "far outside box clamps to edge sliver",
			det:    normDet(1.5, 1.5, 0.2, 0.2),
			frameW: 100, frameH: 100,
			wantOK: true,
			want:   Region{X: 99, Y: 99, Width: 1, Height: 1},
		},
		{
			name:   "sub-pixel box is dropped",
			det:    normDet(0.5, 0.5, 0.001, 0.001),
			frameW: 100, frameH: 100,
			wantOK: false,
		},
		{
			name:   "invalid frame dimensions",
			det:    normDet(0.4, 0.4, 0.2, 0.2),
			frameW: 0, frameH: 100,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, ok := Transform(tt.det, tt.frameW, tt.frameH, DefaultTargetWidth, DefaultTargetHeight)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want.X, region.X)
			assert.Equal(t, tt.want.Y, region.Y)
			assert.Equal(t, tt.want.Width, region.Width)
			assert.Equal(t, tt.want.Height, region.Height)
			assert.Equal(t, DefaultTargetWidth, region.TargetWidth)
			assert.Equal(t, DefaultTargetHeight, region.TargetHeight)
			assert.Equal(t, tt.det, region.Detection)
		})
	}
}

func TestTransform_PixelBoundaryKept(t *testing.T) {
	// Corner form of a float32 detector row {cx=0.5, w=0.2} lands a
	// hair off 0.4 once widened; the projection must still hit pixel
	// column 320 rather than truncating to 319.
	cx, cy := float32(0.5), float32(0.5)
	w, h := float32(0.2), float32(0.1)
	det := detector.Detection{
		Box: geometry.NewBox(float64(cx-w/2), float64(cy-h/2),
			float64(cx+w/2), float64(cy+h/2)),
		Confidence: 0.9,
	}

	region, ok := Transform(det, 800, 400, DefaultTargetWidth, DefaultTargetHeight)
	require.True(t, ok)
	assert.Equal(t, 320, region.X)
	assert.Equal(t, 180, region.Y)
	assert.Equal(t, 160, region.Width)
	assert.Equal(t, 40, region.Height)
}

func TestTransform_TruncatesNotRounds(t *testing.T) {
	// 0.709 * 100 = 70.9 must truncate to 70, not round to 71.
	region, ok := Transform(normDet(0.709, 0.2, 0.1, 0.1), 100, 100, DefaultTargetWidth, DefaultTargetHeight)
	require.True(t, ok)
	assert.Equal(t, 70, region.X)
}

func TestTransform_NeverExceedsFrame(t *testing.T) {
	boxes := []detector.Detection{
		normDet(-0.5, -0.5, 2, 2),
		normDet(0.99, 0.99, 0.5, 0.5),
		normDet(0.5, -1, 0.2, 3),
		normDet(0, 0, 1.2, 1.2),
	}
	const frameW, frameH = 320, 240

	for _, det := range boxes {
		region, ok := Transform(det, frameW, frameH, DefaultTargetWidth, DefaultTargetHeight)
		if !ok {
			continue
		}
		assert.GreaterOrEqual(t, region.X, 0)
		assert.GreaterOrEqual(t, region.Y, 0)
		assert.LessOrEqual(t, region.X+region.Width, frameW)
		assert.LessOrEqual(t, region.Y+region.Height, frameH)
	}
}
