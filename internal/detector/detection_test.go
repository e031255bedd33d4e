package detector

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/platekit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// row builds one detector output row: cx, cy, w, h, then class scores.
func row(cx, cy, w, h float32, scores ...float32) []float32 {
	return append([]float32{cx, cy, w, h}, scores...)
}

func flatten(rows ...[]float32) []float32 {
	var out []float32
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

func TestDecodeDetections_Thresholding(t *testing.T) {
	data := flatten(
		row(0.5, 0.5, 0.2, 0.1, 0.9),
		row(0.3, 0.3, 0.1, 0.1, 0.49),
		row(0.7, 0.7, 0.1, 0.1, 0.5),
	)

	dets, err := DecodeDetections(data, 3, 5, DecodeOptions{ConfThreshold: 0.5, NumClasses: 1})
	require.NoError(t, err)
	require.Len(t, dets, 2)

	// Output follows input row order, not confidence order.
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	assert.InDelta(t, 0.5, dets[1].Confidence, 1e-6)
}

func TestDecodeDetections_CenterToCorner(t *testing.T) {
	data := row(0.5, 0.5, 0.2, 0.1, 0.9)

	dets, err := DecodeDetections(data, 1, 5, DefaultDecodeOptions())
	require.NoError(t, err)
	require.Len(t, dets, 1)

	box := dets[0].Box
	assert.InDelta(t, 0.4, box.MinX, 1e-6)
	assert.InDelta(t, 0.45, box.MinY, 1e-6)
	assert.InDelta(t, 0.2, box.Width(), 1e-6)
	assert.InDelta(t, 0.1, box.Height(), 1e-6)
	assert.Equal(t, 0, dets[0].ClassID)
}

func TestDecodeDetections_DegenerateBoxDropped(t *testing.T) {
	data := flatten(
		row(0.5, 0.5, 0, 0.1, 0.9),
		row(0.5, 0.5, 0.1, 0, 0.9),
		row(0.5, 0.5, 0.1, 0.1, 0.9),
	)

	dets, err := DecodeDetections(data, 3, 5, DefaultDecodeOptions())
	require.NoError(t, err)
	assert.Len(t, dets, 1)
}

func TestDecodeDetections_StrideTooSmall(t *testing.T) {
	data := make([]float32, 16)

	_, err := DecodeDetections(data, 4, 4, DefaultDecodeOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stride")
	assert.False(t, errors.Is(err, tensor.ErrShortBuffer))
}

func TestDecodeDetections_ShortBuffer(t *testing.T) {
	data := make([]float32, 9) // 2 rows x 5 needs 10

	_, err := DecodeDetections(data, 2, 5, DefaultDecodeOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensor.ErrShortBuffer))
}

func TestDecodeDetections_InvalidNumClasses(t *testing.T) {
	_, err := DecodeDetections(make([]float32, 10), 2, 5,
		DecodeOptions{ConfThreshold: 0.5, NumClasses: 0})
	require.Error(t, err)
}

func TestDecodeDetections_MultiClass(t *testing.T) {
	data := flatten(
		row(0.5, 0.5, 0.2, 0.1, 0.2, 0.8, 0.1),
		row(0.2, 0.2, 0.1, 0.1, 0.6, 0.3, 0.1),
	)

	dets, err := DecodeDetections(data, 2, 7, DecodeOptions{ConfThreshold: 0.5, NumClasses: 3})
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, 1, dets[0].ClassID)
	assert.InDelta(t, 0.8, dets[0].Confidence, 1e-6)
	assert.Equal(t, 0, dets[1].ClassID)
}

func TestDecodeDetections_EmptyOutcome(t *testing.T) {
	data := flatten(
		row(0.5, 0.5, 0.2, 0.1, 0.1),
		row(0.3, 0.3, 0.1, 0.1, 0.2),
	)

	dets, err := DecodeDetections(data, 2, 5, DefaultDecodeOptions())
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestInterpretOutputShape(t *testing.T) {
	tests := []struct {
		name       string
		shape      []int64
		numClasses int
		rows       int
		stride     int
		transposed bool
		wantErr    bool
	}{
		{name: "anchor major", shape: []int64{1, 8400, 5}, numClasses: 1, rows: 8400, stride: 5},
		{name: "attribute major", shape: []int64{1, 5, 8400}, numClasses: 1, rows: 8400, stride: 5, transposed: true},
		{name: "multi class", shape: []int64{1, 84, 8400}, numClasses: 80, rows: 8400, stride: 84, transposed: true},
		{name: "mismatched", shape: []int64{1, 6, 8400}, numClasses: 1, wantErr: true},
		{name: "wrong rank", shape: []int64{2, 3, 4, 5}, numClasses: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, stride, transposed, err := interpretOutputShape(tt.shape, tt.numClasses)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rows, rows)
			assert.Equal(t, tt.stride, stride)
			assert.Equal(t, tt.transposed, transposed)
		})
	}
}

func TestTransposeAttributeMajor(t *testing.T) {
	// 2 rows x 3 attributes stored attribute-major.
	src := []float32{
		1, 4, // attribute 0
		2, 5, // attribute 1
		3, 6, // attribute 2
	}
	dst := make([]float32, 6)
	transposeAttributeMajor(src, dst, 2, 3)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, dst)
}
