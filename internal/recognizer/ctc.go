package recognizer

import (
	"fmt"

	"github.com/MeKo-Tech/platekit/internal/tensor"
)

// DecodedSequence is the result of CTC-decoding one recognition output.
// Confidence is the mean of the per-character confidences (0 when no
// characters were emitted); CharConfidences is aligned with the emitted
// charset tokens in Text.
type DecodedSequence struct {
	Text            string
	Confidence      float64
	CharConfidences []float64
}

// validateShape checks the recognition output shape against the charset.
// The class count must be at least 2 (one symbol plus blank) and match
// the charset plus the blank symbol.
func validateShape(classes int, charset *Charset) error {
	if charset == nil {
		return fmt.Errorf("recognizer: charset is required")
	}
	if classes < 2 {
		return fmt.Errorf("recognizer: class count must be >= 2, got %d", classes)
	}
	if classes != charset.Size()+1 {
		return fmt.Errorf("recognizer: class count %d does not match charset size %d plus blank",
			classes, charset.Size())
	}
	return nil
}

// argmaxRow returns the index of the maximum value and the value; ties
// resolve to the lowest index (first-seen maximum wins).
func argmaxRow(v []float32) (int, float32) {
	idx := 0
	maxVal := v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > maxVal {
			maxVal = v[i]
			idx = i
		}
	}
	return idx, maxVal
}

// DecodeGreedy decodes a timesteps x classes probability matrix with CTC
// greedy decoding: per-timestep argmax, collapsing blanks and
// consecutive repeats. The blank symbol is the last class index.
//
// An invalid class count is a configuration error; a buffer shorter than
// timesteps*classes wraps tensor.ErrShortBuffer. Each emitted character
// contributes its timestep's max probability; the aggregate confidence
// is their mean.
func DecodeGreedy(data []float32, timesteps, classes int, charset *Charset) (DecodedSequence, error) {
	if err := validateShape(classes, charset); err != nil {
		return DecodedSequence{}, err
	}
	view, err := tensor.NewView2D(data, timesteps, classes)
	if err != nil {
		return DecodedSequence{}, fmt.Errorf("recognizer: %w", err)
	}

	blank := classes - 1
	prev := blank
	var text []byte
	var charConfs []float64

	for t := range timesteps {
		idx, prob := argmaxRow(view.Row(t))
		if idx != blank && idx != prev {
			text = append(text, charset.Token(idx)...)
			charConfs = append(charConfs, float64(prob))
		}
		prev = idx
	}

	return DecodedSequence{
		Text:            string(text),
		Confidence:      meanConfidence(charConfs),
		CharConfidences: charConfs,
	}, nil
}

// meanConfidence returns the average of per-character confidences; 0 if
// none were emitted.
func meanConfidence(charConfs []float64) float64 {
	if len(charConfs) == 0 {
		return 0
	}
	var sum float64
	for _, p := range charConfs {
		sum += p
	}
	return sum / float64(len(charConfs))
}
