package recognizer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/platekit/internal/tensor"
)

// beamState tracks one candidate prefix during prefix beam search.
// pBlank and pChar are the probabilities of the paths producing this
// prefix that end in a blank and in the prefix's last character,
// respectively.
type beamState struct {
	prefix    []int
	pBlank    float64
	pChar     float64
	charProbs []float64
	emitProb  float64 // strongest single contribution, used to pick charProbs on merges
}

func (b *beamState) total() float64 { return b.pBlank + b.pChar }

func prefixKey(prefix []int) string {
	var sb strings.Builder
	for i, idx := range prefix {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// DecodeBeam decodes a timesteps x classes probability matrix with CTC
// prefix beam search of the given width. It honors the same contract as
// DecodeGreedy (blank = last class, collapse semantics, mean aggregate
// confidence) while tracking multiple candidate prefixes. A width below
// 2 is a configuration error, not a greedy fallback.
func DecodeBeam(data []float32, timesteps, classes, width int, charset *Charset) (DecodedSequence, error) {
	if width < 2 {
		return DecodedSequence{}, fmt.Errorf("recognizer: beam width must be >= 2, got %d", width)
	}
	if err := validateShape(classes, charset); err != nil {
		return DecodedSequence{}, err
	}
	view, err := tensor.NewView2D(data, timesteps, classes)
	if err != nil {
		return DecodedSequence{}, fmt.Errorf("recognizer: %w", err)
	}

	blank := classes - 1
	beams := []*beamState{{pBlank: 1.0}}

	for t := range timesteps {
		row := view.Row(t)
		next := make(map[string]*beamState, len(beams)*2)

		for _, b := range beams {
			stepBeam(b, row, blank, next)
		}

		// An all-zero row contributes nothing; keep the current beams.
		if len(next) == 0 {
			continue
		}
		beams = pruneBeams(next, width)
	}

	best := beams[0]
	for _, b := range beams[1:] {
		if b.total() > best.total() {
			best = b
		}
	}

	var text []byte
	for _, idx := range best.prefix {
		text = append(text, charset.Token(idx)...)
	}
	return DecodedSequence{
		Text:            string(text),
		Confidence:      meanConfidence(best.charProbs),
		CharConfidences: best.charProbs,
	}, nil
}

// stepBeam expands one beam by one timestep into the next generation.
func stepBeam(b *beamState, row []float32, blank int, next map[string]*beamState) {
	last := -1
	if len(b.prefix) > 0 {
		last = b.prefix[len(b.prefix)-1]
	}

	for c, pf := range row {
		p := float64(pf)
		if p <= 0 {
			continue
		}
		switch {
		case c == blank:
			// Prefix unchanged; path now ends in blank.
			nb := obtainState(next, b.prefix, b.charProbs, b.emitProb)
			nb.pBlank += b.total() * p
		case c == last:
			// Repeat collapses into the same prefix unless a blank
			// separated it, which extends the prefix instead.
			nb := obtainState(next, b.prefix, b.charProbs, b.emitProb)
			nb.pChar += b.pChar * p

			if b.pBlank > 0 {
				extendState(next, b, c, b.pBlank*p, p)
			}
		default:
			extendState(next, b, c, b.total()*p, p)
		}
	}
}

// obtainState finds or creates the next-generation state for a prefix.
func obtainState(next map[string]*beamState, prefix []int, charProbs []float64, emitProb float64) *beamState {
	key := prefixKey(prefix)
	if nb, ok := next[key]; ok {
		return nb
	}
	nb := &beamState{prefix: prefix, charProbs: charProbs, emitProb: emitProb}
	next[key] = nb
	return nb
}

// extendState adds probability mass to the prefix extended by class c.
// When several paths merge into the same extended prefix, the
// per-character confidences of the strongest contribution win.
func extendState(next map[string]*beamState, b *beamState, c int, contribution, p float64) {
	prefix := make([]int, 0, len(b.prefix)+1)
	prefix = append(prefix, b.prefix...)
	prefix = append(prefix, c)

	key := prefixKey(prefix)
	nb, ok := next[key]
	if !ok {
		nb = &beamState{prefix: prefix}
		next[key] = nb
	}
	nb.pChar += contribution
	if contribution > nb.emitProb {
		nb.emitProb = contribution
		nb.charProbs = append(append([]float64(nil), b.charProbs...), p)
	}
}

// pruneBeams keeps the width most probable states.
func pruneBeams(next map[string]*beamState, width int) []*beamState {
	beams := make([]*beamState, 0, len(next))
	for _, nb := range next {
		beams = append(beams, nb)
	}
	sort.Slice(beams, func(i, j int) bool {
		ti, tj := beams[i].total(), beams[j].total()
		if ti != tj {
			return ti > tj
		}
		// Deterministic order for equal probabilities.
		return prefixKey(beams[i].prefix) < prefixKey(beams[j].prefix)
	})
	if len(beams) > width {
		beams = beams[:width]
	}
	return beams
}
