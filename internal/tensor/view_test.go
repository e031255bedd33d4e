package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewView2D(t *testing.T) {
	tests := []struct {
		name      string
		data      []float32
		rows      int
		cols      int
		wantErr   bool
		wantShort bool
	}{
		{
			name: "exact fit",
			data: make([]float32, 12),
			rows: 3, cols: 4,
		},
		{
			name: "oversized buffer",
			data: make([]float32, 20),
			rows: 3, cols: 4,
		},
		{
			name: "short buffer",
			data: make([]float32, 11),
			rows: 3, cols: 4,
			wantErr: true, wantShort: true,
		},
		{
			name: "zero rows",
			data: make([]float32, 12),
			rows: 0, cols: 4,
			wantErr: true,
		},
		{
			name: "negative cols",
			data: make([]float32, 12),
			rows: 3, cols: -1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewView2D(tt.data, tt.rows, tt.cols)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantShort, errors.Is(err, ErrShortBuffer))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rows, v.Rows())
			assert.Equal(t, tt.cols, v.Cols())
		})
	}
}

func TestView2D_RowAndAt(t *testing.T) {
	data := []float32{
		1, 2, 3,
		4, 5, 6,
	}
	v, err := NewView2D(data, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 2, 3}, v.Row(0))
	assert.Equal(t, []float32{4, 5, 6}, v.Row(1))
	assert.InDelta(t, 5, v.At(1, 1), 1e-9)
}
