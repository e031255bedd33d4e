package recognizer

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/platekit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// abCharset is a two-token charset: 0='A', 1='B', blank=2.
func abCharset(t *testing.T) *Charset {
	t.Helper()
	cs, err := NewCharset([]string{"A", "B"})
	require.NoError(t, err)
	return cs
}

// steps builds a T x C buffer from per-timestep rows.
func steps(rows ...[]float32) []float32 {
	var out []float32
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

func TestDecodeGreedy_CollapsesRepeatsAndBlanks(t *testing.T) {
	cs := abCharset(t)
	// Argmax sequence [A, A, blank, B, B, blank] -> "AB".
	data := steps(
		[]float32{0.9, 0.05, 0.05},
		[]float32{0.8, 0.1, 0.1},
		[]float32{0.1, 0.1, 0.8},
		[]float32{0.1, 0.85, 0.05},
		[]float32{0.05, 0.9, 0.05},
		[]float32{0.2, 0.1, 0.7},
	)

	seq, err := DecodeGreedy(data, 6, 3, cs)
	require.NoError(t, err)
	assert.Equal(t, "AB", seq.Text)
	require.Len(t, seq.CharConfidences, 2)
	assert.InDelta(t, 0.9, seq.CharConfidences[0], 1e-6)
	assert.InDelta(t, 0.85, seq.CharConfidences[1], 1e-6)
	assert.InDelta(t, (0.9+0.85)/2, seq.Confidence, 1e-6)
}

func TestDecodeGreedy_AllBlank(t *testing.T) {
	cs := abCharset(t)
	data := steps(
		[]float32{0.1, 0.1, 0.8},
		[]float32{0.2, 0.2, 0.6},
		[]float32{0.0, 0.1, 0.9},
	)

	seq, err := DecodeGreedy(data, 3, 3, cs)
	require.NoError(t, err)
	assert.Empty(t, seq.Text)
	assert.Zero(t, seq.Confidence)
	assert.Empty(t, seq.CharConfidences)
}

func TestDecodeGreedy_RepeatCollapsesToOne(t *testing.T) {
	cs := abCharset(t)
	// All timesteps pick 'A'.
	data := steps(
		[]float32{0.9, 0.05, 0.05},
		[]float32{0.9, 0.05, 0.05},
		[]float32{0.9, 0.05, 0.05},
		[]float32{0.9, 0.05, 0.05},
	)

	seq, err := DecodeGreedy(data, 4, 3, cs)
	require.NoError(t, err)
	assert.Equal(t, "A", seq.Text)
}

func TestDecodeGreedy_BlankSeparatesRepeats(t *testing.T) {
	cs := abCharset(t)
	// [A, blank, A] -> "AA".
	data := steps(
		[]float32{0.9, 0.05, 0.05},
		[]float32{0.1, 0.1, 0.8},
		[]float32{0.9, 0.05, 0.05},
	)

	seq, err := DecodeGreedy(data, 3, 3, cs)
	require.NoError(t, err)
	assert.Equal(t, "AA", seq.Text)
}

func TestDecodeGreedy_TieBreaksToLowestIndex(t *testing.T) {
	cs := abCharset(t)
	// Equal probabilities: first-seen maximum (index 0, 'A') wins.
	data := steps(
		[]float32{0.4, 0.4, 0.2},
		[]float32{0.1, 0.1, 0.8},
	)

	seq, err := DecodeGreedy(data, 2, 3, cs)
	require.NoError(t, err)
	assert.Equal(t, "A", seq.Text)
}

func TestDecodeGreedy_ClassCountTooSmall(t *testing.T) {
	cs := abCharset(t)
	_, err := DecodeGreedy(make([]float32, 4), 4, 1, cs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "class count")
}

func TestDecodeGreedy_CharsetMismatch(t *testing.T) {
	cs := abCharset(t)
	// 5 classes but charset has 2 tokens + blank = 3.
	_, err := DecodeGreedy(make([]float32, 10), 2, 5, cs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charset")
}

func TestDecodeGreedy_NilCharset(t *testing.T) {
	_, err := DecodeGreedy(make([]float32, 6), 2, 3, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charset")
}

func TestDecodeBeam_NilCharset(t *testing.T) {
	_, err := DecodeBeam(make([]float32, 6), 2, 3, 4, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charset")
}

func TestDecodeGreedy_ShortBuffer(t *testing.T) {
	cs := abCharset(t)
	_, err := DecodeGreedy(make([]float32, 5), 2, 3, cs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensor.ErrShortBuffer))
}

func TestMeanConfidence(t *testing.T) {
	assert.Zero(t, meanConfidence(nil))
	assert.InDelta(t, 0.5, meanConfidence([]float64{0.4, 0.6}), 1e-9)
}
